package pipeline

import (
	"time"

	"github.com/CristopherRL/talent-inbound-os/internal/model"
)

// State is the single mutable context threaded through one pipeline run.
// Fields accumulate monotonically: later stages only add values, never
// retract ones set earlier. One State per run; nothing holds a reference
// past run completion.
type State struct {
	// Input, set once at construction.
	RawInput      string
	InteractionID string
	OpportunityID string
	CandidateID   string

	// Guardrail output.
	SanitizedText           string
	PIIItemsFound           int
	PromptInjectionDetected bool

	// Gatekeeper output.
	Classification           model.Classification
	ClassificationConfidence float64

	// Extractor output.
	Extracted *model.ExtractedData

	// Language detector output.
	DetectedLanguage string

	// Analyst output. Nil when scoring was skipped.
	MatchScore     *int
	MatchReasoning string

	// Communicator output.
	DraftResponse string

	// Stage detector output.
	SuggestedStage       model.OpportunityStage
	SuggestedStageReason string

	// Audit trail, append-only via AppendLog.
	Log []model.StepLog
}

// NewState builds the initial state for a run.
func NewState(rawInput, interactionID, opportunityID, candidateID string) *State {
	return &State{
		RawInput:      rawInput,
		InteractionID: interactionID,
		OpportunityID: opportunityID,
		CandidateID:   candidateID,
	}
}

// AppendLog records one stage invocation. All nodes go through this helper so
// the log stays ordered and append-only.
func (s *State) AppendLog(step, status, detail string, started time.Time, tokens int) {
	s.Log = append(s.Log, model.StepLog{
		Step:      step,
		Status:    status,
		LatencyMS: float64(time.Since(started).Microseconds()) / 1000.0,
		Tokens:    tokens,
		Timestamp: time.Now().UTC(),
		Detail:    detail,
	})
}

// Text returns the sanitized text when the guardrail has run, otherwise the
// raw input. Every stage after the guardrail reads through this.
func (s *State) Text() string {
	if s.SanitizedText != "" {
		return s.SanitizedText
	}
	return s.RawInput
}
