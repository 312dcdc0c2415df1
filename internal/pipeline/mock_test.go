package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/CristopherRL/talent-inbound-os/pkg/anthropic"
)

// stubClient queues canned replies for CreateMessage and records requests.
type stubClient struct {
	replies  []string
	err      error
	requests []anthropic.MessageRequest
}

func (c *stubClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.replies) == 0 {
		return nil, eris.New("stub: no replies queued")
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: reply}},
		Usage:   anthropic.TokenUsage{InputTokens: 10, OutputTokens: 5},
	}, nil
}

// fastHandle builds a fast-tier handle around a stub client.
func fastHandle(c *stubClient) *ModelHandle {
	return &ModelHandle{client: c, model: "stub-fast"}
}

// smartHandle builds a smart-tier handle around a stub client.
func smartHandle(c *stubClient) *ModelHandle {
	return &ModelHandle{client: c, model: "stub-smart"}
}
