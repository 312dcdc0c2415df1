package model

import "time"

// StepLog is a single audit-trail entry for one pipeline stage invocation.
// Entries are append-only and ordered by invocation.
type StepLog struct {
	Step      string    `json:"step"`
	Status    string    `json:"status"` // "completed" or "skipped"
	LatencyMS float64   `json:"latency_ms"`
	Tokens    int       `json:"tokens"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail"`
}

// Step statuses.
const (
	StepCompleted = "completed"
	StepSkipped   = "skipped"
)

// Interaction is one inbound recruiter message (or candidate reply) tied to
// an opportunity.
type Interaction struct {
	ID             string            `json:"id"`
	CandidateID    string            `json:"candidate_id"`
	OpportunityID  string            `json:"opportunity_id,omitempty"`
	Source         InteractionSource `json:"source"`
	Type           InteractionType   `json:"type"`
	RawContent     string            `json:"raw_content"`
	Status         ProcessingStatus  `json:"status"`
	Classification Classification    `json:"classification,omitempty"`
	PipelineLog    []StepLog         `json:"pipeline_log,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// MarkProcessing transitions the interaction to PROCESSING.
func (i *Interaction) MarkProcessing() {
	i.Status = StatusProcessing
	i.UpdatedAt = time.Now().UTC()
}

// MarkCompleted transitions to COMPLETED and records the classification.
func (i *Interaction) MarkCompleted(c Classification) {
	i.Status = StatusCompleted
	i.Classification = c
	i.UpdatedAt = time.Now().UTC()
}

// MarkFailed transitions to FAILED.
func (i *Interaction) MarkFailed() {
	i.Status = StatusFailed
	i.UpdatedAt = time.Now().UTC()
}
