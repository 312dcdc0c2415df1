package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/CristopherRL/talent-inbound-os/internal/model"
	"github.com/CristopherRL/talent-inbound-os/internal/store"
)

// Keyword signals for stage detection, English and Spanish.
var (
	interviewingSignalsRe = regexp.MustCompile(`(?i)\b(interview|technical\s+test|coding\s+challenge|call\s+scheduled|` +
		`meet\s+the\s+team|screening\s+call|phone\s+screen|video\s+call|` +
		`on-?site\s+visit|assessment|` +
		`entrevista|prueba\s+t[eé]cnica|llamada|videollamada|` +
		`agendar|agendemos|agendamos|programar\s+una|` +
		`conocer\s+al\s+equipo|visita\s+presencial)\b`)

	negotiatingSignalsRe = regexp.MustCompile(`(?i)\b(offer\s+letter|compensation|package|start\s+date|salary\s+proposal|` +
		`benefits|stock\s+options|equity|signing\s+bonus|notice\s+period|` +
		`contract\s+terms|terms\s+of\s+employment|` +
		`carta\s+de\s+oferta|compensaci[oó]n|paquete\s+salarial|` +
		`fecha\s+de\s+inicio|propuesta\s+salarial|beneficios|` +
		`opciones\s+sobre\s+acciones|periodo\s+de\s+prueba|` +
		`condiciones\s+del\s+contrato|t[eé]rminos\s+de\s+empleo)\b`)
)

// StageDetector suggests forward stage transitions for the opportunity. It
// never suggests a move backwards or into a terminal stage; the orchestrator
// still decides whether to apply a suggestion.
type StageDetector struct {
	model         *ModelHandle
	opportunities store.OpportunityReader
}

func NewStageDetector(opportunities store.OpportunityReader, handle *ModelHandle) *StageDetector {
	return &StageDetector{model: handle, opportunities: opportunities}
}

func (s *StageDetector) Name() string { return StageStageDetector }

// detectHeuristic checks keyword signals. Negotiating signals win over
// interviewing signals when both are present.
func detectStageHeuristic(text string, current model.OpportunityStage) (model.OpportunityStage, string) {
	if negotiatingSignalsRe.MatchString(text) && model.IsForwardMove(current, model.StageNegotiating) {
		return model.StageNegotiating, "Message contains compensation/offer discussion signals"
	}
	if interviewingSignalsRe.MatchString(text) && model.IsForwardMove(current, model.StageInterviewing) {
		return model.StageInterviewing, "Message contains interview scheduling signals"
	}
	return "", ""
}

// currentStage loads the opportunity's stage, defaulting to DISCOVERY when
// the opportunity cannot be loaded.
func (s *StageDetector) currentStage(ctx context.Context, opportunityID string) model.OpportunityStage {
	if s.opportunities == nil || opportunityID == "" {
		return model.StageDiscovery
	}
	opp, err := s.opportunities.GetOpportunity(ctx, opportunityID)
	if err != nil || opp == nil || opp.Stage == "" {
		if err != nil {
			zap.L().Warn("stage detector: opportunity lookup failed",
				zap.String("opportunity_id", opportunityID),
				zap.Error(err),
			)
		}
		return model.StageDiscovery
	}
	return opp.Stage
}

// detectModel asks the fast tier for a suggestion. Only forward moves are
// accepted; anything else falls through to the heuristic.
func (s *StageDetector) detectModel(ctx context.Context, text string, current model.OpportunityStage) (model.OpportunityStage, string, int) {
	system := fmt.Sprintf(stageDetectorSystemPrompt, current)
	reply, usage, err := s.model.Invoke(ctx, system, "Analyze this conversation:\n\n"+text)
	tokens := int(usage.InputTokens + usage.OutputTokens)
	if err != nil {
		zap.L().Warn("stage detector: model call failed, using heuristic", zap.Error(err))
		return "", "", tokens
	}

	var parsed struct {
		SuggestedStage string `json:"suggested_stage"`
		Reason         string `json:"reason"`
	}
	if parseErr := decodeModelJSON(reply, &parsed); parseErr != nil {
		zap.L().Warn("stage detector: unparseable model reply, using heuristic",
			zap.String("reply_preview", preview(reply)),
		)
		return "", "", tokens
	}
	suggested := model.OpportunityStage(parsed.SuggestedStage)
	if parsed.SuggestedStage == "" || !model.IsForwardMove(current, suggested) {
		return "", "", tokens
	}
	return suggested, parsed.Reason, tokens
}

func (s *StageDetector) Run(ctx context.Context, st *State) error {
	start := time.Now()

	current := s.currentStage(ctx, st.OpportunityID)

	var suggested model.OpportunityStage
	var reason string
	source := "none"
	tokens := 0

	if s.model != nil {
		stage, r, t := s.detectModel(ctx, st.Text(), current)
		tokens = t
		if stage != "" {
			suggested, reason, source = stage, r, "llm"
		}
	}
	if suggested == "" {
		if stage, r := detectStageHeuristic(st.Text(), current); stage != "" {
			suggested, reason, source = stage, r, "heuristic"
		}
	}

	st.SuggestedStage = suggested
	st.SuggestedStageReason = reason

	detail := "No stage change suggested"
	if suggested != "" {
		detail = fmt.Sprintf("Suggested %s via %s", suggested, source)
	}
	st.AppendLog(StageStageDetector, model.StepCompleted, detail, start, tokens)
	return nil
}
