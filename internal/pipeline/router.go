package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/CristopherRL/talent-inbound-os/internal/config"
	"github.com/CristopherRL/talent-inbound-os/pkg/anthropic"
)

// ModelTier is a cost/capability class of model.
type ModelTier string

const (
	TierFast  ModelTier = "FAST"
	TierSmart ModelTier = "SMART"
)

// Stage node names. The order here is the canonical full-run sequence.
const (
	StageGuardrail        = "guardrail"
	StageGatekeeper       = "gatekeeper"
	StageExtractor        = "extractor"
	StageLanguageDetector = "language_detector"
	StageAnalyst          = "analyst"
	StageCommunicator     = "communicator"
	StageStageDetector    = "stage_detector"
)

// stageTiers maps each stage to its tier. Classification and pattern matching
// run on the fast tier; extraction, reasoning, and generation on the smart tier.
var stageTiers = map[string]ModelTier{
	StageGuardrail:        TierFast,
	StageGatekeeper:       TierFast,
	StageExtractor:        TierSmart,
	StageLanguageDetector: TierFast,
	StageAnalyst:          TierSmart,
	StageCommunicator:     TierSmart,
	StageStageDetector:    TierFast,
}

// ModelHandle binds a client to a concrete model name. A nil handle means
// "use the heuristic path".
type ModelHandle struct {
	client  anthropic.Client
	model   string
	limiter *rate.Limiter
}

// Invoke sends a system+user exchange and returns the concatenated text reply.
// Calls block on the shared rate limiter when one is configured.
func (h *ModelHandle) Invoke(ctx context.Context, system, user string) (string, anthropic.TokenUsage, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return "", anthropic.TokenUsage{}, eris.Wrapf(err, "model %s: rate limit wait", h.model)
		}
	}
	resp, err := h.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     h.model,
		MaxTokens: 1024,
		System:    system,
		Messages: []anthropic.Message{
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", anthropic.TokenUsage{}, eris.Wrapf(err, "model %s: invoke", h.model)
	}
	return anthropic.ExtractText(resp), resp.Usage, nil
}

// ModelRouter maps stage names to model handles by tier. Handles are built
// once at construction; unconfigured tiers yield nil handles, which every
// stage treats as "run the heuristic".
type ModelRouter struct {
	handles map[ModelTier]*ModelHandle
}

// NewModelRouter builds a router from provider credentials. An empty API key
// leaves both tiers unconfigured. Both tiers share one rate limiter since they
// hit the same provider quota.
func NewModelRouter(cfg config.AnthropicConfig) *ModelRouter {
	r := &ModelRouter{handles: map[ModelTier]*ModelHandle{}}
	if cfg.Key == "" {
		return r
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	client := anthropic.NewClient(cfg.Key)
	r.handles[TierFast] = &ModelHandle{client: client, model: cfg.FastModel, limiter: limiter}
	r.handles[TierSmart] = &ModelHandle{client: client, model: cfg.SmartModel, limiter: limiter}
	return r
}

// NewModelRouterWithClient builds a router around an existing client. Tests
// use this to inject stubs.
func NewModelRouterWithClient(client anthropic.Client, fastModel, smartModel string) *ModelRouter {
	return &ModelRouter{handles: map[ModelTier]*ModelHandle{
		TierFast:  {client: client, model: fastModel},
		TierSmart: {client: client, model: smartModel},
	}}
}

// Model returns the handle for a stage, or nil when its tier is unconfigured.
// Unknown stages route to the smart tier.
func (r *ModelRouter) Model(stage string) *ModelHandle {
	if r == nil {
		return nil
	}
	tier, ok := stageTiers[stage]
	if !ok {
		tier = TierSmart
	}
	return r.handles[tier]
}

// Configured reports whether any tier has a model.
func (r *ModelRouter) Configured() bool {
	if r == nil {
		return false
	}
	for _, h := range r.handles {
		if h != nil {
			return true
		}
	}
	return false
}
