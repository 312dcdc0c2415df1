package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/CristopherRL/talent-inbound-os/internal/config"
	"github.com/CristopherRL/talent-inbound-os/internal/model"
	"github.com/CristopherRL/talent-inbound-os/internal/store"
)

// Processor orchestrates one pipeline run: load the interaction, execute the
// graph, persist outcomes, and stream progress. Stages mutate only the State;
// every side effect lives here.
type Processor struct {
	store         store.Store
	emitter       *Emitter
	fullGraph     *Graph
	followUpGraph *Graph
	communicator  *Communicator
}

// NewProcessor wires the stage nodes from config, router, and store, and
// assembles both graph topologies.
func NewProcessor(cfg *config.Config, router *ModelRouter, st store.Store, emitter *Emitter) (*Processor, error) {
	guardrail, err := NewGuardrail(cfg.Vocab.InjectionPatterns, cfg.Pipeline.GuardrailMaxChars, router.Model(StageGuardrail))
	if err != nil {
		return nil, err
	}
	communicator := NewCommunicator(st, guardrail, router.Model(StageCommunicator))
	nodes := Nodes{
		Guardrail:        guardrail,
		Gatekeeper:       NewGatekeeper(cfg.Vocab.OfferKeywords, cfg.Vocab.SpamKeywords, router.Model(StageGatekeeper)),
		Extractor:        NewExtractor(cfg.Vocab.TechVocabulary, router.Model(StageExtractor)),
		LanguageDetector: NewLanguageDetector(cfg.Pipeline.Languages, cfg.Vocab.SpanishMarkers, router.Model(StageLanguageDetector)),
		Analyst:          NewAnalyst(cfg.Pipeline.Scoring, st, router.Model(StageAnalyst)),
		Communicator:     communicator,
		StageDetector:    NewStageDetector(st, router.Model(StageStageDetector)),
	}
	return &Processor{
		store:         st,
		emitter:       emitter,
		fullGraph:     NewFullGraph(nodes),
		followUpGraph: NewFollowUpGraph(nodes),
		communicator:  communicator,
	}, nil
}

// Communicator exposes the drafting node for on-demand generation.
func (p *Processor) Communicator() *Communicator {
	return p.communicator
}

// Process runs the pipeline for one interaction end to end. The run_complete
// event is emitted on every path, success or failure, so subscribers never
// wait forever.
func (p *Processor) Process(ctx context.Context, interactionID string) error {
	log := zap.L().With(zap.String("interaction_id", interactionID))

	interaction, err := p.store.GetInteraction(ctx, interactionID)
	if err != nil {
		return eris.Wrapf(err, "process: load interaction %s", interactionID)
	}
	opportunityID := interaction.OpportunityID
	log = log.With(zap.String("opportunity_id", opportunityID))

	interaction.MarkProcessing()
	if err := p.store.UpdateInteraction(ctx, interaction); err != nil {
		return eris.Wrap(err, "process: mark processing")
	}
	p.emitter.Progress(interactionID, "pipeline", "started", "")

	rawInput := interaction.RawContent
	isFollowUp := interaction.Type == model.InteractionFollowUp
	if isFollowUp && opportunityID != "" {
		combined, err := p.combinedRecruiterText(ctx, opportunityID)
		if err != nil {
			log.Warn("process: combining prior messages failed, using raw content", zap.Error(err))
		} else if combined != "" {
			rawInput = combined
		}
	}

	st := NewState(rawInput, interactionID, opportunityID, interaction.CandidateID)

	graph := p.fullGraph
	if isFollowUp {
		graph = p.followUpGraph
	}

	if err := graph.Run(ctx, st); err != nil {
		log.Error("process: pipeline run failed", zap.Error(err))
		p.failInteraction(ctx, interaction, opportunityID)
		p.emitter.Complete(interactionID, opportunityID, string(model.StageDiscovery))
		return eris.Wrap(err, "process: run")
	}

	for _, step := range st.Log {
		p.emitter.Progress(interactionID, step.Step, step.Status, step.Detail)
	}

	classification := st.Classification
	if classification == "" {
		classification = model.ClassificationRealOffer
	}
	interaction.MarkCompleted(classification)
	interaction.PipelineLog = st.Log
	if err := p.store.UpdateInteraction(ctx, interaction); err != nil {
		log.Error("process: persisting interaction failed", zap.Error(err))
		p.failInteraction(ctx, interaction, opportunityID)
		p.emitter.Complete(interactionID, opportunityID, string(model.StageDiscovery))
		return eris.Wrap(err, "process: mark completed")
	}

	finalStage := model.StageDiscovery
	if opportunityID != "" {
		stage, err := p.applyResults(ctx, opportunityID, st, classification, isFollowUp)
		if err != nil {
			log.Error("process: persisting results failed", zap.Error(err))
			p.failInteraction(ctx, interaction, opportunityID)
			p.emitter.Complete(interactionID, opportunityID, string(model.StageDiscovery))
			return err
		}
		finalStage = stage
	}

	p.emitter.Complete(interactionID, opportunityID, string(finalStage))
	log.Info("process: pipeline completed",
		zap.String("classification", string(classification)),
		zap.String("final_stage", string(finalStage)),
	)
	return nil
}

// applyResults copies pipeline output onto the opportunity and persists the
// draft. Only an initial run forces a stage transition; follow-ups leave the
// stage alone and rely on the suggestion fields.
func (p *Processor) applyResults(ctx context.Context, opportunityID string, st *State, classification model.Classification, isFollowUp bool) (model.OpportunityStage, error) {
	opp, err := p.store.GetOpportunity(ctx, opportunityID)
	if err != nil {
		return model.StageDiscovery, eris.Wrap(err, "process: load opportunity")
	}

	opp.ApplyExtracted(st.Extracted)
	if st.DetectedLanguage != "" {
		opp.DetectedLanguage = st.DetectedLanguage
	}
	if st.MatchScore != nil {
		opp.MatchScore = st.MatchScore
	}
	if st.MatchReasoning != "" {
		opp.MatchReasoning = st.MatchReasoning
	}
	if st.SuggestedStage != "" {
		opp.SuggestedStage = st.SuggestedStage
		opp.SuggestedStageReason = st.SuggestedStageReason
	}

	if !isFollowUp {
		opp.ChangeStage(finalStageFor(classification), fmt.Sprintf("Pipeline completed: %s", classification))
	}

	if err := p.store.UpdateOpportunity(ctx, opp); err != nil {
		return model.StageDiscovery, eris.Wrap(err, "process: update opportunity")
	}

	if st.DraftResponse != "" {
		draft := &model.DraftResponse{
			OpportunityID: opportunityID,
			ResponseType:  model.ResponseExpressInterest,
			Content:       st.DraftResponse,
		}
		if err := p.store.SaveDraft(ctx, draft); err != nil {
			return model.StageDiscovery, eris.Wrap(err, "process: save draft")
		}
	}

	return opp.Stage, nil
}

// finalStageFor maps the classification to the forced post-run stage for
// initial messages. Real offers land in DISCOVERY for the candidate to
// evaluate; everything else is rejected outright.
func finalStageFor(c model.Classification) model.OpportunityStage {
	switch c {
	case model.ClassificationSpam, model.ClassificationNotAnOffer:
		return model.StageRejected
	default:
		return model.StageDiscovery
	}
}

// failInteraction marks the interaction FAILED and parks the opportunity in
// DISCOVERY so it does not stay stuck in a half-processed state.
func (p *Processor) failInteraction(ctx context.Context, interaction *model.Interaction, opportunityID string) {
	interaction.MarkFailed()
	if err := p.store.UpdateInteraction(ctx, interaction); err != nil {
		zap.L().Error("process: mark failed", zap.Error(err))
	}
	if opportunityID == "" {
		return
	}
	opp, err := p.store.GetOpportunity(ctx, opportunityID)
	if err != nil {
		zap.L().Error("process: load opportunity after failure", zap.Error(err))
		return
	}
	opp.ChangeStage(model.StageDiscovery, "Pipeline failed, manual review needed")
	if err := p.store.UpdateOpportunity(ctx, opp); err != nil {
		zap.L().Error("process: update opportunity after failure", zap.Error(err))
	}
}

// combinedRecruiterText concatenates every recruiter message for the
// opportunity in order, so follow-up runs extract from the full conversation.
// Candidate replies are excluded by the store query.
func (p *Processor) combinedRecruiterText(ctx context.Context, opportunityID string) (string, error) {
	messages, err := p.store.ListRecruiterMessages(ctx, opportunityID)
	if err != nil {
		return "", err
	}
	var parts []string
	followUpNum := 0
	for _, m := range messages {
		if m.Type == model.InteractionInitial {
			parts = append(parts, fmt.Sprintf("--- Initial message ---\n%s", m.RawContent))
		} else {
			followUpNum++
			parts = append(parts, fmt.Sprintf("--- Follow-up #%d ---\n%s", followUpNum, m.RawContent))
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
