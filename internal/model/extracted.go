package model

// Critical extraction fields. An offer missing any of these cannot be scored
// or drafted against; the executor skips those stages.
var CriticalFields = []string{"role_title", "salary_range", "tech_stack"}

// ExtractedData is the structured record pulled out of a recruiter message.
type ExtractedData struct {
	CompanyName      string    `json:"company_name,omitempty"`
	ClientName       string    `json:"client_name,omitempty"`
	RoleTitle        string    `json:"role_title,omitempty"`
	SalaryRange      string    `json:"salary_range,omitempty"`
	TechStack        []string  `json:"tech_stack,omitempty"`
	WorkModel        WorkModel `json:"work_model,omitempty"`
	RecruiterName    string    `json:"recruiter_name,omitempty"`
	RecruiterType    string    `json:"recruiter_type,omitempty"`
	RecruiterCompany string    `json:"recruiter_company,omitempty"`
	MissingFields    []string  `json:"missing_fields"`
}

// RecomputeMissingFields rebuilds MissingFields as the critical-field set
// minus fields that hold a non-empty value. This is the sole gate downstream
// routing consults, so it must be called after every extraction.
func (d *ExtractedData) RecomputeMissingFields() {
	missing := make([]string, 0, len(CriticalFields))
	for _, f := range CriticalFields {
		switch f {
		case "role_title":
			if d.RoleTitle == "" {
				missing = append(missing, f)
			}
		case "salary_range":
			if d.SalaryRange == "" {
				missing = append(missing, f)
			}
		case "tech_stack":
			if len(d.TechStack) == 0 {
				missing = append(missing, f)
			}
		}
	}
	d.MissingFields = missing
}
