package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CristopherRL/talent-inbound-os/internal/config"
	"github.com/CristopherRL/talent-inbound-os/internal/model"
	"github.com/CristopherRL/talent-inbound-os/internal/store"
)

var salaryNumberRe = regexp.MustCompile(`\d[\d,]*`)

// Analyst scores an opportunity against the candidate's profile. When the
// extractor reported missing critical fields the stage is skipped entirely:
// absent score, not a zero score.
type Analyst struct {
	model    *ModelHandle
	profiles store.ProfileReader
	weights  config.ScoringWeights
}

// NewAnalyst binds the scoring weights, the profile source, and the optional
// smart-tier model.
func NewAnalyst(weights config.ScoringWeights, profiles store.ProfileReader, handle *ModelHandle) *Analyst {
	return &Analyst{model: handle, profiles: profiles, weights: weights}
}

func (a *Analyst) Name() string { return StageAnalyst }

// scoreResult is what either scoring path produces.
type scoreResult struct {
	Score     int
	Reasoning string
}

// scoreHeuristic applies the weighted formula: base, plus skills overlap,
// plus/minus work-model and salary adjustments, clamped to [0,100].
func (a *Analyst) scoreHeuristic(profile *model.Profile, d *model.ExtractedData) scoreResult {
	w := a.weights
	score := w.Base
	var reasons []string

	if profile != nil && len(profile.Skills) > 0 && len(d.TechStack) > 0 {
		candidate := make(map[string]bool, len(profile.Skills))
		for _, s := range profile.Skills {
			candidate[strings.ToLower(s)] = true
		}
		matched := 0
		for _, tech := range d.TechStack {
			if candidate[strings.ToLower(tech)] {
				matched++
			}
		}
		ratio := float64(matched) / float64(len(d.TechStack))
		score += int(ratio * float64(w.Skills))
		reasons = append(reasons, fmt.Sprintf("Skills: %d/%d match (%.0f%%)", matched, len(d.TechStack), ratio*100))
	}

	if profile != nil && profile.WorkModel != "" && d.WorkModel != "" {
		if profile.WorkModel == d.WorkModel {
			score += w.WorkModelMatch
			reasons = append(reasons, fmt.Sprintf("Work model: %s matches", profile.WorkModel))
		} else {
			score += w.WorkModelMismatch
			reasons = append(reasons, fmt.Sprintf("Work model: prefers %s, offer is %s", profile.WorkModel, d.WorkModel))
		}
	}

	if profile != nil && profile.MinSalary > 0 && d.SalaryRange != "" {
		if top, ok := parseSalaryTop(d.SalaryRange); ok {
			diff := top - profile.MinSalary
			if diff >= 0 {
				score += w.SalaryMeets
				reasons = append(reasons, fmt.Sprintf("Salary: meets minimum (+%d)", diff))
			} else {
				score += w.SalaryBelow
				reasons = append(reasons, fmt.Sprintf("Salary: below minimum (%d)", diff))
			}
		}
	}

	reasoning := "Base score with limited data"
	if len(reasons) > 0 {
		reasoning = strings.Join(reasons, ". ")
	}
	return scoreResult{Score: clampScore(score), Reasoning: reasoning}
}

// parseSalaryTop reads the last number out of a salary-range string as the
// top of the range. Amounts under 1000 are read as thousands ("150" means
// 150,000).
func parseSalaryTop(salaryRange string) (int, bool) {
	numbers := salaryNumberRe.FindAllString(salaryRange, -1)
	if len(numbers) == 0 {
		return 0, false
	}
	raw := strings.ReplaceAll(numbers[len(numbers)-1], ",", "")
	top, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	if top < 1000 {
		top *= 1000
	}
	return top, true
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// profileContext formats the profile for the scoring prompt.
func profileContext(p *model.Profile) string {
	if p == nil {
		return "No profile data available"
	}
	var parts []string
	if p.DisplayName != "" {
		parts = append(parts, "Name: "+p.DisplayName)
	}
	if p.ProfessionalTitle != "" {
		parts = append(parts, "Title: "+p.ProfessionalTitle)
	}
	if len(p.Skills) > 0 {
		parts = append(parts, "Skills: "+strings.Join(p.Skills, ", "))
	}
	if p.MinSalary > 0 {
		currency := p.PreferredCurrency
		if currency == "" {
			currency = "USD"
		}
		parts = append(parts, fmt.Sprintf("Minimum salary: %d %s", p.MinSalary, currency))
	}
	if p.WorkModel != "" {
		parts = append(parts, "Work model preference: "+string(p.WorkModel))
	}
	if len(p.PreferredLocations) > 0 {
		parts = append(parts, "Locations: "+strings.Join(p.PreferredLocations, ", "))
	}
	if len(p.Industries) > 0 {
		parts = append(parts, "Industries: "+strings.Join(p.Industries, ", "))
	}
	if len(parts) == 0 {
		return "No profile data available"
	}
	return strings.Join(parts, "\n")
}

// opportunityContext formats the extracted record for prompts.
func opportunityContext(d *model.ExtractedData) string {
	if d == nil {
		return "No opportunity data available"
	}
	var parts []string
	if d.CompanyName != "" {
		parts = append(parts, "Company: "+d.CompanyName)
	}
	if d.RoleTitle != "" {
		parts = append(parts, "Role: "+d.RoleTitle)
	}
	if d.SalaryRange != "" {
		parts = append(parts, "Salary: "+d.SalaryRange)
	}
	if len(d.TechStack) > 0 {
		parts = append(parts, "Tech stack: "+strings.Join(d.TechStack, ", "))
	}
	if d.WorkModel != "" {
		parts = append(parts, "Work model: "+string(d.WorkModel))
	}
	if d.RecruiterName != "" {
		parts = append(parts, "Recruiter: "+d.RecruiterName)
	}
	if d.RecruiterType != "" {
		parts = append(parts, "Recruiter type: "+d.RecruiterType)
	}
	if len(parts) == 0 {
		return "No opportunity data available"
	}
	return strings.Join(parts, "\n")
}

// scoreModel asks the smart tier for a score. Any parse failure or absent
// subfield falls back to the heuristic result.
func (a *Analyst) scoreModel(ctx context.Context, st *State, profile *model.Profile) (scoreResult, bool, int) {
	system := fmt.Sprintf(analystSystemPrompt, profileContext(profile), opportunityContext(st.Extracted))
	reply, usage, err := a.model.Invoke(ctx, system, "Score this opportunity.")
	tokens := int(usage.InputTokens + usage.OutputTokens)
	if err != nil {
		zap.L().Warn("analyst: model call failed, using heuristic",
			zap.String("interaction_id", st.InteractionID),
			zap.Error(err),
		)
		return scoreResult{}, false, tokens
	}

	var parsed struct {
		Score     *int   `json:"score"`
		Reasoning string `json:"reasoning"`
	}
	if parseErr := decodeModelJSON(reply, &parsed); parseErr != nil || parsed.Score == nil || parsed.Reasoning == "" {
		zap.L().Warn("analyst: incomplete model reply, using heuristic",
			zap.String("interaction_id", st.InteractionID),
			zap.String("reply_preview", preview(reply)),
		)
		return scoreResult{}, false, tokens
	}
	return scoreResult{Score: clampScore(*parsed.Score), Reasoning: parsed.Reasoning}, true, tokens
}

func (a *Analyst) Run(ctx context.Context, st *State) error {
	start := time.Now()

	if st.Extracted != nil && len(st.Extracted.MissingFields) > 0 {
		detail := fmt.Sprintf("Skipped: missing critical fields %v", st.Extracted.MissingFields)
		st.AppendLog(StageAnalyst, model.StepSkipped, detail, start, 0)
		return nil
	}

	var profile *model.Profile
	if a.profiles != nil && st.CandidateID != "" {
		p, err := a.profiles.GetProfileByCandidate(ctx, st.CandidateID)
		if err != nil {
			zap.L().Warn("analyst: profile lookup failed, scoring without profile",
				zap.String("candidate_id", st.CandidateID),
				zap.Error(err),
			)
		} else {
			profile = p
		}
	}

	var result scoreResult
	source := "heuristic"
	tokens := 0

	if a.model != nil && profile != nil {
		if r, ok, t := a.scoreModel(ctx, st, profile); ok {
			result, source, tokens = r, "llm", t
		} else {
			tokens = t
		}
	}
	if source != "llm" {
		result = a.scoreHeuristic(profile, st.Extracted)
	}

	score := result.Score
	st.MatchScore = &score
	st.MatchReasoning = result.Reasoning

	detail := fmt.Sprintf("Score: %d/100 via %s. %s", result.Score, source, result.Reasoning)
	st.AppendLog(StageAnalyst, model.StepCompleted, detail, start, tokens)
	return nil
}
