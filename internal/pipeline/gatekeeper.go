package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CristopherRL/talent-inbound-os/internal/model"
)

// Gatekeeper classifies a message as REAL_OFFER, SPAM, or NOT_AN_OFFER.
// Heuristic path counts hits from two curated keyword lists; the model path
// asks the fast tier for a JSON verdict and falls back to the heuristic when
// the reply cannot be parsed.
type Gatekeeper struct {
	model         *ModelHandle
	offerKeywords []string
	spamKeywords  []string
}

// NewGatekeeper binds the configured keyword lists and optional model.
func NewGatekeeper(offerKeywords, spamKeywords []string, handle *ModelHandle) *Gatekeeper {
	return &Gatekeeper{
		model:         handle,
		offerKeywords: offerKeywords,
		spamKeywords:  spamKeywords,
	}
}

func (g *Gatekeeper) Name() string { return StageGatekeeper }

// classifyHeuristic is the keyword-counting fallback. Two or more spam hits
// outweigh offer signals; three or more offer hits make a confident offer;
// a single offer hit is a tentative one.
func (g *Gatekeeper) classifyHeuristic(text string) (model.Classification, float64) {
	lower := strings.ToLower(text)

	offerHits := 0
	for _, kw := range g.offerKeywords {
		if strings.Contains(lower, kw) {
			offerHits++
		}
	}
	spamHits := 0
	for _, kw := range g.spamKeywords {
		if strings.Contains(lower, kw) {
			spamHits++
		}
	}

	switch {
	case spamHits >= 2:
		return model.ClassificationSpam, capConfidence(0.5 + float64(spamHits)*0.1)
	case offerHits >= 3:
		return model.ClassificationRealOffer, capConfidence(0.5 + float64(offerHits)*0.05)
	case offerHits >= 1:
		return model.ClassificationRealOffer, 0.6
	default:
		return model.ClassificationNotAnOffer, 0.7
	}
}

func capConfidence(c float64) float64 {
	if c > 0.95 {
		return 0.95
	}
	return c
}

func validClassification(s string) bool {
	switch model.Classification(s) {
	case model.ClassificationRealOffer, model.ClassificationSpam, model.ClassificationNotAnOffer:
		return true
	}
	return false
}

func (g *Gatekeeper) Run(ctx context.Context, st *State) error {
	start := time.Now()
	text := st.Text()

	classification, confidence := model.Classification(""), 0.0
	source := "heuristic"
	tokens := 0

	if g.model != nil {
		reply, usage, err := g.model.Invoke(ctx, gatekeeperSystemPrompt, text)
		tokens = int(usage.InputTokens + usage.OutputTokens)
		if err != nil {
			zap.L().Warn("gatekeeper: model call failed, using heuristic",
				zap.String("interaction_id", st.InteractionID),
				zap.Error(err),
			)
		} else {
			var parsed struct {
				Classification string  `json:"classification"`
				Confidence     float64 `json:"confidence"`
			}
			if parseErr := decodeModelJSON(reply, &parsed); parseErr == nil && validClassification(parsed.Classification) {
				classification = model.Classification(parsed.Classification)
				confidence = parsed.Confidence
				if confidence == 0 {
					confidence = 0.8
				}
				source = "llm"
			} else {
				zap.L().Warn("gatekeeper: unparseable model reply, using heuristic",
					zap.String("interaction_id", st.InteractionID),
					zap.String("reply_preview", preview(reply)),
				)
			}
		}
	}

	if source != "llm" {
		classification, confidence = g.classifyHeuristic(text)
	}

	st.Classification = classification
	st.ClassificationConfidence = confidence

	detail := fmt.Sprintf("%s (%.0f%%) via %s", classification, confidence*100, source)
	st.AppendLog(StageGatekeeper, model.StepCompleted, detail, start, tokens)
	return nil
}
