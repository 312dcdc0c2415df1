package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/CristopherRL/talent-inbound-os/internal/model"
	"github.com/CristopherRL/talent-inbound-os/internal/store"
)

// DraftRequest is an on-demand draft generation request.
type DraftRequest struct {
	OpportunityID string
	ResponseType  model.ResponseType
	// Language overrides the opportunity's detected language when set.
	Language string
	// AdditionalInstructions are free-text steering from the candidate. They
	// pass through the injection screen before reaching the model.
	AdditionalInstructions string
}

// DraftService generates and persists drafts outside of a pipeline run, with
// the caller choosing the response type.
type DraftService struct {
	store        store.Store
	communicator *Communicator
}

func NewDraftService(st store.Store, communicator *Communicator) *DraftService {
	return &DraftService{store: st, communicator: communicator}
}

// Generate builds a draft from the opportunity's stored extraction and
// persists it under the requested response type.
func (s *DraftService) Generate(ctx context.Context, req DraftRequest) (*model.DraftResponse, error) {
	opp, err := s.store.GetOpportunity(ctx, req.OpportunityID)
	if err != nil {
		return nil, eris.Wrapf(err, "draft: load opportunity %s", req.OpportunityID)
	}

	lang := req.Language
	if lang == "" {
		lang = opp.DetectedLanguage
	}
	extracted := extractedFromOpportunity(opp)

	zap.L().Info("draft: generation started",
		zap.String("opportunity_id", req.OpportunityID),
		zap.String("response_type", string(req.ResponseType)),
		zap.String("language", lang),
	)

	content, err := s.communicator.GenerateDraft(ctx, req.ResponseType, extracted, opp.CandidateID, lang, req.AdditionalInstructions)
	if err != nil {
		return nil, err
	}

	draft := &model.DraftResponse{
		OpportunityID: req.OpportunityID,
		ResponseType:  req.ResponseType,
		Content:       content,
	}
	if err := s.store.SaveDraft(ctx, draft); err != nil {
		return nil, eris.Wrap(err, "draft: save")
	}
	return draft, nil
}

// extractedFromOpportunity rebuilds the extraction record from the persisted
// opportunity fields.
func extractedFromOpportunity(o *model.Opportunity) *model.ExtractedData {
	return &model.ExtractedData{
		CompanyName:      o.CompanyName,
		ClientName:       o.ClientName,
		RoleTitle:        o.RoleTitle,
		SalaryRange:      o.SalaryRange,
		TechStack:        o.TechStack,
		WorkModel:        o.WorkModel,
		RecruiterName:    o.RecruiterName,
		RecruiterType:    o.RecruiterType,
		RecruiterCompany: o.RecruiterCompany,
		MissingFields:    o.MissingFields,
	}
}
