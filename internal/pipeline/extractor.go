package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CristopherRL/talent-inbound-os/internal/model"
)

var (
	// companyRe finds "at/from/with <Capitalized phrase>" up to a clause break.
	companyRe = regexp.MustCompile(`(?:at|from|with)\s+([A-Z][A-Za-z0-9\s&.]+?)(?:\.|,|\s+(?:we|is|are|looking|for|and))`)
	// roleRe matches an optional seniority prefix plus a title word.
	roleRe = regexp.MustCompile(`(?i)((?:Senior|Staff|Principal|Lead|Junior)?\s*\w+\s*(?:Engineer|Developer|Architect|Manager))`)
	// salaryRe matches numeric ranges like "$150-180K" or "90k to 120k".
	salaryRe = regexp.MustCompile(`[\$€£]?\s*\d{2,3}[kK,\d]*\s*[-–to]+\s*[\$€£]?\s*\d{2,3}[kK,\d]*`)
	// recruiterRe finds self-introductions like "I'm Sarah" or "my name is Ana Pérez".
	recruiterRe = regexp.MustCompile(`(?:I'?m|my name is|this is)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)
)

// Extractor pulls the structured record out of a message. The model path
// returns the whole record as JSON; a parse failure falls back to the
// heuristic extractor entirely, never a partial merge, so the record always
// has one provenance.
type Extractor struct {
	model     *ModelHandle
	techVocab []string
}

// NewExtractor binds the tech vocabulary and optional smart-tier model.
func NewExtractor(techVocab []string, handle *ModelHandle) *Extractor {
	return &Extractor{model: handle, techVocab: techVocab}
}

func (e *Extractor) Name() string { return StageExtractor }

// extractHeuristic runs the per-field regex extraction.
func (e *Extractor) extractHeuristic(text string) *model.ExtractedData {
	lower := strings.ToLower(text)
	d := &model.ExtractedData{}

	if m := companyRe.FindStringSubmatch(text); m != nil {
		d.CompanyName = strings.TrimSpace(m[1])
	}
	if m := roleRe.FindStringSubmatch(text); m != nil {
		d.RoleTitle = strings.TrimSpace(m[1])
	}
	if m := salaryRe.FindString(text); m != "" {
		d.SalaryRange = strings.TrimSpace(m)
	}

	for _, tech := range e.techVocab {
		if strings.Contains(lower, strings.ToLower(tech)) {
			d.TechStack = append(d.TechStack, tech)
		}
	}

	switch {
	case strings.Contains(lower, "hybrid"):
		d.WorkModel = model.WorkModelHybrid
	case strings.Contains(lower, "remote"):
		d.WorkModel = model.WorkModelRemote
	case strings.Contains(lower, "onsite"), strings.Contains(lower, "on-site"), strings.Contains(lower, "in-office"):
		d.WorkModel = model.WorkModelOnsite
	}

	if m := recruiterRe.FindStringSubmatch(text); m != nil {
		d.RecruiterName = strings.TrimSpace(m[1])
	}

	d.RecomputeMissingFields()
	return d
}

// modelRecord mirrors the JSON shape the extractor prompt demands.
type modelRecord struct {
	CompanyName      string   `json:"company_name"`
	ClientName       string   `json:"client_name"`
	RoleTitle        string   `json:"role_title"`
	SalaryRange      string   `json:"salary_range"`
	TechStack        []string `json:"tech_stack"`
	WorkModel        string   `json:"work_model"`
	RecruiterName    string   `json:"recruiter_name"`
	RecruiterType    string   `json:"recruiter_type"`
	RecruiterCompany string   `json:"recruiter_company"`
}

// extractModel asks the smart tier for the full record. Returns nil when the
// reply is unusable; the caller then runs the heuristic.
func (e *Extractor) extractModel(ctx context.Context, st *State, text string) (*model.ExtractedData, int) {
	reply, usage, err := e.model.Invoke(ctx, extractorSystemPrompt, text)
	tokens := int(usage.InputTokens + usage.OutputTokens)
	if err != nil {
		zap.L().Warn("extractor: model call failed, using heuristic",
			zap.String("interaction_id", st.InteractionID),
			zap.Error(err),
		)
		return nil, tokens
	}

	var rec modelRecord
	if parseErr := decodeModelJSON(reply, &rec); parseErr != nil {
		zap.L().Warn("extractor: unparseable model reply, using heuristic",
			zap.String("interaction_id", st.InteractionID),
			zap.String("reply_preview", preview(reply)),
		)
		return nil, tokens
	}

	d := &model.ExtractedData{
		CompanyName:      rec.CompanyName,
		ClientName:       rec.ClientName,
		RoleTitle:        rec.RoleTitle,
		SalaryRange:      rec.SalaryRange,
		TechStack:        rec.TechStack,
		RecruiterName:    rec.RecruiterName,
		RecruiterType:    rec.RecruiterType,
		RecruiterCompany: rec.RecruiterCompany,
	}
	switch model.WorkModel(strings.ToUpper(rec.WorkModel)) {
	case model.WorkModelRemote:
		d.WorkModel = model.WorkModelRemote
	case model.WorkModelHybrid:
		d.WorkModel = model.WorkModelHybrid
	case model.WorkModelOnsite:
		d.WorkModel = model.WorkModelOnsite
	}
	d.RecomputeMissingFields()
	return d, tokens
}

// hallucinationWarnings flags company and role values that do not literally
// appear in the source text. Log-only: extraction is never rejected, the
// warnings just land in the step log for human review.
func hallucinationWarnings(d *model.ExtractedData, source string) []string {
	lowerSource := strings.ToLower(source)
	var warnings []string
	if d.CompanyName != "" && !strings.Contains(lowerSource, strings.ToLower(d.CompanyName)) {
		warnings = append(warnings, fmt.Sprintf("company_name=%q not found in source text", d.CompanyName))
	}
	if d.RoleTitle != "" && !strings.Contains(lowerSource, strings.ToLower(d.RoleTitle)) {
		warnings = append(warnings, fmt.Sprintf("role_title=%q not found in source text", d.RoleTitle))
	}
	return warnings
}

func (e *Extractor) Run(ctx context.Context, st *State) error {
	start := time.Now()
	text := st.Text()

	var extracted *model.ExtractedData
	source := "heuristic"
	tokens := 0

	if e.model != nil {
		extracted, tokens = e.extractModel(ctx, st, text)
		if extracted != nil {
			source = "llm"
		}
	}
	if extracted == nil {
		extracted = e.extractHeuristic(text)
	}

	warnings := hallucinationWarnings(extracted, text)
	for _, w := range warnings {
		zap.L().Warn("extractor: possible hallucination",
			zap.String("interaction_id", st.InteractionID),
			zap.String("warning", w),
		)
	}

	st.Extracted = extracted

	detailParts := []string{
		"Extracted via " + source,
		fmt.Sprintf("missing: %v", extracted.MissingFields),
	}
	if len(warnings) > 0 {
		detailParts = append(detailParts, "hallucination warnings: "+strings.Join(warnings, "; "))
	}
	st.AppendLog(StageExtractor, model.StepCompleted, strings.Join(detailParts, " | "), start, tokens)
	return nil
}
