package model

import "time"

// Profile holds the candidate's stated preferences, used by the analyst for
// scoring and by the communicator for drafting.
type Profile struct {
	ID                 string    `json:"id"`
	CandidateID        string    `json:"candidate_id"`
	DisplayName        string    `json:"display_name,omitempty"`
	ProfessionalTitle  string    `json:"professional_title,omitempty"`
	Skills             []string  `json:"skills,omitempty"`
	MinSalary          int       `json:"min_salary,omitempty"`
	PreferredCurrency  string    `json:"preferred_currency,omitempty"`
	WorkModel          WorkModel `json:"work_model,omitempty"`
	PreferredLocations []string  `json:"preferred_locations,omitempty"`
	Industries         []string  `json:"industries,omitempty"`
	CVExtractedText    string    `json:"cv_extracted_text,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DraftResponse is a stored reply draft produced by the communicator.
type DraftResponse struct {
	ID            string       `json:"id"`
	OpportunityID string       `json:"opportunity_id"`
	ResponseType  ResponseType `json:"response_type"`
	Content       string       `json:"content"`
	CreatedAt     time.Time    `json:"created_at"`
}
