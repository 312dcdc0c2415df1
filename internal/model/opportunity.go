package model

import "time"

// Opportunity is a hiring conversation with one company/recruiter, enriched
// by the pipeline with extracted fields, a match score, and stage suggestions.
type Opportunity struct {
	ID          string `json:"id"`
	CandidateID string `json:"candidate_id"`

	// Extracted fields (populated by the pipeline).
	CompanyName      string    `json:"company_name,omitempty"`
	ClientName       string    `json:"client_name,omitempty"`
	RoleTitle        string    `json:"role_title,omitempty"`
	SalaryRange      string    `json:"salary_range,omitempty"`
	TechStack        []string  `json:"tech_stack,omitempty"`
	WorkModel        WorkModel `json:"work_model,omitempty"`
	RecruiterName    string    `json:"recruiter_name,omitempty"`
	RecruiterType    string    `json:"recruiter_type,omitempty"`
	RecruiterCompany string    `json:"recruiter_company,omitempty"`
	MissingFields    []string  `json:"missing_fields,omitempty"`

	// Language of the recruiter's messages, from the pipeline.
	DetectedLanguage string `json:"detected_language,omitempty"`

	// Analyst output. Nil score means scoring was skipped, not zero.
	MatchScore     *int   `json:"match_score,omitempty"`
	MatchReasoning string `json:"match_reasoning,omitempty"`

	// Stage tracking.
	Stage                OpportunityStage `json:"stage"`
	StageNote            string           `json:"stage_note,omitempty"`
	SuggestedStage       OpportunityStage `json:"suggested_stage,omitempty"`
	SuggestedStageReason string           `json:"suggested_stage_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChangeStage moves the opportunity to a new stage and records why.
func (o *Opportunity) ChangeStage(stage OpportunityStage, note string) {
	o.Stage = stage
	o.StageNote = note
	o.UpdatedAt = time.Now().UTC()
}

// ApplyExtracted copies non-empty extracted fields onto the opportunity.
// Empty values never overwrite data from an earlier run; the missing-fields
// list is always replaced since it is recomputed per run.
func (o *Opportunity) ApplyExtracted(d *ExtractedData) {
	if d == nil {
		return
	}
	if d.CompanyName != "" {
		o.CompanyName = d.CompanyName
	}
	if d.ClientName != "" {
		o.ClientName = d.ClientName
	}
	if d.RoleTitle != "" {
		o.RoleTitle = d.RoleTitle
	}
	if d.SalaryRange != "" {
		o.SalaryRange = d.SalaryRange
	}
	if len(d.TechStack) > 0 {
		o.TechStack = d.TechStack
	}
	if d.WorkModel != "" {
		o.WorkModel = d.WorkModel
	}
	if d.RecruiterName != "" {
		o.RecruiterName = d.RecruiterName
	}
	if d.RecruiterType != "" {
		o.RecruiterType = d.RecruiterType
	}
	if d.RecruiterCompany != "" {
		o.RecruiterCompany = d.RecruiterCompany
	}
	o.MissingFields = d.MissingFields
}
