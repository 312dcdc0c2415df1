package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/CristopherRL/talent-inbound-os/internal/model"
	"github.com/CristopherRL/talent-inbound-os/internal/store"
)

// Communicator drafts a reply to the recruiter. In a graph run it always
// produces an EXPRESS_INTEREST draft in the detected language; GenerateDraft
// serves on-demand generation with a caller-chosen type.
type Communicator struct {
	model    *ModelHandle
	profiles store.ProfileReader
	guard    *Guardrail
}

func NewCommunicator(profiles store.ProfileReader, guard *Guardrail, handle *ModelHandle) *Communicator {
	return &Communicator{model: handle, profiles: profiles, guard: guard}
}

func (c *Communicator) Name() string { return StageCommunicator }

// draftTemplate builds the template-based draft used when no model is
// configured or the model path fails.
func draftTemplate(responseType model.ResponseType, d *model.ExtractedData, profile *model.Profile) string {
	company := "your company"
	role := "the role"
	recruiter := ""
	var stack, missing []string
	if d != nil {
		if d.CompanyName != "" {
			company = d.CompanyName
		}
		if d.RoleTitle != "" {
			role = d.RoleTitle
		}
		recruiter = d.RecruiterName
		stack = d.TechStack
		missing = d.MissingFields
	}

	greeting := "Hi,"
	if recruiter != "" {
		greeting = fmt.Sprintf("Hi %s,", recruiter)
	}
	signOff := "\nBest regards"
	if profile != nil && profile.DisplayName != "" {
		signOff = fmt.Sprintf("\nBest regards,\n%s", profile.DisplayName)
	}

	switch responseType {
	case model.ResponseRequestInfo:
		missingText := "salary range, team size, and project details"
		if len(missing) > 0 {
			missingText = strings.Join(missing, ", ")
		}
		return fmt.Sprintf("%s\n\n"+
			"Thank you for reaching out about the %s position at %s. "+
			"I'd be interested in learning more, but I'd appreciate some additional details before we proceed.\n\n"+
			"Could you share information on the following: %s?\n\n"+
			"Looking forward to hearing from you."+
			"%s",
			greeting, role, company, missingText, signOff)

	case model.ResponseExpressInterest:
		stackMention := ""
		if len(stack) > 0 {
			overlap := stack
			if len(overlap) > 3 {
				overlap = overlap[:3]
			}
			stackMention = fmt.Sprintf(" My experience with %s aligns well with what you're looking for.", strings.Join(overlap, ", "))
		}
		return fmt.Sprintf("%s\n\n"+
			"Thank you for reaching out about the %s opportunity at %s. "+
			"This sounds like an interesting position that aligns with my background.%s\n\n"+
			"I'd be happy to schedule a call to discuss the role in more detail and learn about the team and upcoming projects.\n\n"+
			"What times work best for you?"+
			"%s",
			greeting, role, company, stackMention, signOff)

	default: // DECLINE
		return fmt.Sprintf("%s\n\n"+
			"Thank you for considering me for the %s position at %s. I appreciate you reaching out.\n\n"+
			"After reviewing the opportunity, I've decided to pass at this time. "+
			"However, I'd be open to exploring future opportunities that may be a better fit.\n\n"+
			"Wishing you the best in your search."+
			"%s",
			greeting, role, company, signOff)
	}
}

// draftModel asks the smart tier to write the reply. The reply is plain text,
// not JSON, so any non-empty response is accepted as-is.
func (c *Communicator) draftModel(ctx context.Context, responseType model.ResponseType, d *model.ExtractedData, profile *model.Profile, lang, additional string) (string, int, error) {
	system := fmt.Sprintf(communicatorSystemPrompt,
		string(responseType),
		opportunityContext(d),
		profileContext(profile),
		lang,
	)
	user := fmt.Sprintf("Generate a %s draft response.", responseType)
	if additional != "" {
		user += fmt.Sprintf("\n\nAdditional instructions from the user (incorporate naturally, do not change the response language): %s", additional)
	}
	reply, usage, err := c.model.Invoke(ctx, system, user)
	tokens := int(usage.InputTokens + usage.OutputTokens)
	if err != nil {
		return "", tokens, err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", tokens, eris.New("communicator: empty model reply")
	}
	return reply, tokens, nil
}

func (c *Communicator) loadProfile(ctx context.Context, candidateID string) *model.Profile {
	if c.profiles == nil || candidateID == "" {
		return nil
	}
	p, err := c.profiles.GetProfileByCandidate(ctx, candidateID)
	if err != nil {
		zap.L().Warn("communicator: profile lookup failed, drafting without profile",
			zap.String("candidate_id", candidateID),
			zap.Error(err),
		)
		return nil
	}
	return p
}

func (c *Communicator) Run(ctx context.Context, st *State) error {
	start := time.Now()

	profile := c.loadProfile(ctx, st.CandidateID)
	lang := st.DetectedLanguage
	if lang == "" {
		lang = "en"
	}

	draft := ""
	source := "template"
	tokens := 0
	if c.model != nil {
		text, t, err := c.draftModel(ctx, model.ResponseExpressInterest, st.Extracted, profile, lang, "")
		tokens = t
		if err != nil {
			zap.L().Warn("communicator: model call failed, using template",
				zap.String("interaction_id", st.InteractionID),
				zap.Error(err),
			)
		} else {
			draft, source = text, "llm"
		}
	}
	if draft == "" {
		draft = draftTemplate(model.ResponseExpressInterest, st.Extracted, profile)
	}

	st.DraftResponse = draft
	detail := fmt.Sprintf("Draft generated (%s) via %s", model.ResponseExpressInterest, source)
	st.AppendLog(StageCommunicator, model.StepCompleted, detail, start, tokens)
	return nil
}

// GenerateDraft produces a reply outside of a graph run. Additional
// instructions come from the caller and get the full guardrail treatment
// before they reach the model: PII is redacted and the sanitized text is
// forwarded only when the injection check (model layer included) passes.
func (c *Communicator) GenerateDraft(ctx context.Context, responseType model.ResponseType, d *model.ExtractedData, candidateID, lang, additional string) (string, error) {
	if !model.ValidResponseType(string(responseType)) {
		return "", eris.Errorf("unknown response type %q", responseType)
	}
	if additional != "" && c.guard != nil {
		sanitized, unsafe := c.guard.Screen(ctx, additional)
		if unsafe {
			return "", eris.New("additional instructions rejected: prompt injection detected")
		}
		additional = sanitized
	}
	if lang == "" {
		lang = "en"
	}

	profile := c.loadProfile(ctx, candidateID)
	if c.model != nil {
		text, _, err := c.draftModel(ctx, responseType, d, profile, lang, additional)
		if err == nil {
			return text, nil
		}
		zap.L().Warn("communicator: model draft failed, using template", zap.Error(err))
	}
	return draftTemplate(responseType, d, profile), nil
}
