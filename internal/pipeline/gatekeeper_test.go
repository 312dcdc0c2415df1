package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CristopherRL/talent-inbound-os/internal/config"
	"github.com/CristopherRL/talent-inbound-os/internal/model"
)

func newTestGatekeeper(handle *ModelHandle) *Gatekeeper {
	return NewGatekeeper(config.DefaultOfferKeywords, config.DefaultSpamKeywords, handle)
}

func TestGatekeeper_HeuristicRealOffer(t *testing.T) {
	g := newTestGatekeeper(nil)
	st := NewState("We are hiring a Senior Engineer for a remote position, salary is competitive.", "i1", "o1", "c1")

	require.NoError(t, g.Run(context.Background(), st))

	assert.Equal(t, model.ClassificationRealOffer, st.Classification)
	assert.GreaterOrEqual(t, st.ClassificationConfidence, 0.6)
	assert.LessOrEqual(t, st.ClassificationConfidence, 0.95)
}

func TestGatekeeper_HeuristicSpam(t *testing.T) {
	g := newTestGatekeeper(nil)
	st := NewState("Click here for FREE bitcoin prize! Limited time guaranteed!", "i1", "o1", "c1")

	require.NoError(t, g.Run(context.Background(), st))

	assert.Equal(t, model.ClassificationSpam, st.Classification)
}

func TestGatekeeper_SpamOutweighsOfferSignals(t *testing.T) {
	g := newTestGatekeeper(nil)
	// Offer words present, but two spam signals win.
	st := NewState("Click here to apply for this role, free guaranteed salary, unsubscribe below.", "i1", "o1", "c1")

	require.NoError(t, g.Run(context.Background(), st))

	assert.Equal(t, model.ClassificationSpam, st.Classification)
}

func TestGatekeeper_HeuristicNotAnOffer(t *testing.T) {
	g := newTestGatekeeper(nil)
	st := NewState("Thanks for connecting! Loved your conference talk.", "i1", "o1", "c1")

	require.NoError(t, g.Run(context.Background(), st))

	assert.Equal(t, model.ClassificationNotAnOffer, st.Classification)
	assert.InDelta(t, 0.7, st.ClassificationConfidence, 0.001)
}

func TestGatekeeper_ConfidenceCapped(t *testing.T) {
	g := newTestGatekeeper(nil)
	classification, confidence := g.classifyHeuristic(
		"free free winner prize bitcoin crypto investment guaranteed limited time click here unsubscribe")

	assert.Equal(t, model.ClassificationSpam, classification)
	assert.LessOrEqual(t, confidence, 0.95)
}

func TestGatekeeper_ModelPath(t *testing.T) {
	client := &stubClient{replies: []string{`{"classification": "REAL_OFFER", "confidence": 0.92}`}}
	g := newTestGatekeeper(fastHandle(client))
	st := NewState("Short note.", "i1", "o1", "c1")

	require.NoError(t, g.Run(context.Background(), st))

	assert.Equal(t, model.ClassificationRealOffer, st.Classification)
	assert.InDelta(t, 0.92, st.ClassificationConfidence, 0.001)
}

func TestGatekeeper_ModelZeroConfidenceDefaults(t *testing.T) {
	client := &stubClient{replies: []string{`{"classification": "SPAM"}`}}
	g := newTestGatekeeper(fastHandle(client))
	st := NewState("Buy now.", "i1", "o1", "c1")

	require.NoError(t, g.Run(context.Background(), st))

	assert.Equal(t, model.ClassificationSpam, st.Classification)
	assert.InDelta(t, 0.8, st.ClassificationConfidence, 0.001)
}

func TestGatekeeper_InvalidModelReplyFallsBack(t *testing.T) {
	client := &stubClient{replies: []string{`{"classification": "MAYBE_OFFER"}`}}
	g := newTestGatekeeper(fastHandle(client))
	st := NewState("We are hiring a developer for our team, apply for this position.", "i1", "o1", "c1")

	require.NoError(t, g.Run(context.Background(), st))

	assert.Equal(t, model.ClassificationRealOffer, st.Classification)
}

func TestGatekeeper_ModelErrorFallsBack(t *testing.T) {
	client := &stubClient{err: eris.New("timeout")}
	g := newTestGatekeeper(fastHandle(client))
	st := NewState("Click here, free prize!", "i1", "o1", "c1")

	require.NoError(t, g.Run(context.Background(), st))

	assert.Equal(t, model.ClassificationSpam, st.Classification)
}
