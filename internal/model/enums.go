package model

// Classification is the gatekeeper's verdict for an inbound message.
type Classification string

const (
	ClassificationRealOffer  Classification = "REAL_OFFER"
	ClassificationSpam       Classification = "SPAM"
	ClassificationNotAnOffer Classification = "NOT_AN_OFFER"
)

// ProcessingStatus tracks an interaction through the pipeline.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "PENDING"
	StatusProcessing ProcessingStatus = "PROCESSING"
	StatusCompleted  ProcessingStatus = "COMPLETED"
	StatusFailed     ProcessingStatus = "FAILED"
)

// InteractionType distinguishes the first recruiter message from follow-ups
// and from the candidate's own outgoing replies.
type InteractionType string

const (
	InteractionInitial           InteractionType = "INITIAL"
	InteractionFollowUp          InteractionType = "FOLLOW_UP"
	InteractionCandidateResponse InteractionType = "CANDIDATE_RESPONSE"
)

// InteractionSource records where a message arrived from.
type InteractionSource string

const (
	SourceLinkedIn          InteractionSource = "LINKEDIN"
	SourceEmail             InteractionSource = "EMAIL"
	SourceFreelancePlatform InteractionSource = "FREELANCE_PLATFORM"
	SourceOther             InteractionSource = "OTHER"
)

// OpportunityStage is the hiring-process stage of an opportunity.
type OpportunityStage string

const (
	StageDiscovery    OpportunityStage = "DISCOVERY"
	StageEngaging     OpportunityStage = "ENGAGING"
	StageInterviewing OpportunityStage = "INTERVIEWING"
	StageNegotiating  OpportunityStage = "NEGOTIATING"
	StageOffer        OpportunityStage = "OFFER"
	StageRejected     OpportunityStage = "REJECTED"
	StageDeclined     OpportunityStage = "DECLINED"
	StageGhosted      OpportunityStage = "GHOSTED"
)

// StageFlow is the ordered active-process stages. Stage suggestions must move
// strictly forward along this sequence; terminal stages are not part of it.
var StageFlow = []OpportunityStage{
	StageDiscovery,
	StageEngaging,
	StageInterviewing,
	StageNegotiating,
}

// StageFlowIndex returns the position of a stage in StageFlow, or -1 if the
// stage is terminal or unknown.
func StageFlowIndex(s OpportunityStage) int {
	for i, fs := range StageFlow {
		if fs == s {
			return i
		}
	}
	return -1
}

// IsForwardMove reports whether suggested is strictly ahead of current in
// StageFlow. Either stage being terminal or unknown means no.
func IsForwardMove(current, suggested OpportunityStage) bool {
	ci := StageFlowIndex(current)
	si := StageFlowIndex(suggested)
	if ci < 0 || si < 0 {
		return false
	}
	return si > ci
}

// WorkModel is the offered working arrangement.
type WorkModel string

const (
	WorkModelRemote WorkModel = "REMOTE"
	WorkModelHybrid WorkModel = "HYBRID"
	WorkModelOnsite WorkModel = "ONSITE"
)

// RecruiterType distinguishes the kind of recruiter behind a message.
type RecruiterType string

const (
	RecruiterAgency       RecruiterType = "AGENCY"
	RecruiterHeadhunter   RecruiterType = "HEADHUNTER"
	RecruiterDirectClient RecruiterType = "DIRECT_CLIENT"
	RecruiterPlatform     RecruiterType = "PLATFORM"
)

// ResponseType selects the kind of reply the communicator drafts.
type ResponseType string

const (
	ResponseRequestInfo     ResponseType = "REQUEST_INFO"
	ResponseExpressInterest ResponseType = "EXPRESS_INTEREST"
	ResponseDecline         ResponseType = "DECLINE"
)

// ValidResponseType reports whether s names a known response type.
func ValidResponseType(s string) bool {
	switch ResponseType(s) {
	case ResponseRequestInfo, ResponseExpressInterest, ResponseDecline:
		return true
	}
	return false
}
