package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/CristopherRL/talent-inbound-os/internal/config"
)

func TestModelRouter_TierMapping(t *testing.T) {
	client := &stubClient{}
	r := NewModelRouterWithClient(client, "fast-model", "smart-model")

	fastStages := []string{StageGuardrail, StageGatekeeper, StageLanguageDetector, StageStageDetector}
	for _, stage := range fastStages {
		assert.Equal(t, "fast-model", r.Model(stage).model, stage)
	}
	smartStages := []string{StageExtractor, StageAnalyst, StageCommunicator}
	for _, stage := range smartStages {
		assert.Equal(t, "smart-model", r.Model(stage).model, stage)
	}
}

func TestModelRouter_UnknownStageUsesSmartTier(t *testing.T) {
	r := NewModelRouterWithClient(&stubClient{}, "fast-model", "smart-model")

	assert.Equal(t, "smart-model", r.Model("something_new").model)
}

func TestModelRouter_EmptyKeyLeavesTiersUnconfigured(t *testing.T) {
	r := NewModelRouter(config.AnthropicConfig{})

	assert.Nil(t, r.Model(StageGuardrail))
	assert.Nil(t, r.Model(StageExtractor))
	assert.False(t, r.Configured())
}

func TestModelRouter_NilRouter(t *testing.T) {
	var r *ModelRouter

	assert.Nil(t, r.Model(StageGuardrail))
	assert.False(t, r.Configured())
}

func TestModelHandle_InvokeWithLimiter(t *testing.T) {
	client := &stubClient{replies: []string{"ok"}}
	h := &ModelHandle{client: client, model: "m", limiter: rate.NewLimiter(rate.Inf, 1)}

	reply, _, err := h.Invoke(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
}

func TestModelHandle_LimiterRejection(t *testing.T) {
	client := &stubClient{replies: []string{"ok"}}
	// Zero burst can never admit a request.
	h := &ModelHandle{client: client, model: "m", limiter: rate.NewLimiter(1, 0)}

	_, _, err := h.Invoke(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Empty(t, client.requests)
}

func TestModelHandle_Invoke(t *testing.T) {
	client := &stubClient{replies: []string{"hello"}}
	h := fastHandle(client)

	reply, usage, err := h.Invoke(context.Background(), "system prompt", "user message")
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)
	assert.Equal(t, int64(10), usage.InputTokens)

	require.Len(t, client.requests, 1)
	assert.Equal(t, "system prompt", client.requests[0].System)
	require.Len(t, client.requests[0].Messages, 1)
	assert.Equal(t, "user message", client.requests[0].Messages[0].Content)
}
