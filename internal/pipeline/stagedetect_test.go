package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CristopherRL/talent-inbound-os/internal/model"
)

type stubOpportunities struct {
	opp *model.Opportunity
	err error
}

func (s *stubOpportunities) GetOpportunity(_ context.Context, _ string) (*model.Opportunity, error) {
	return s.opp, s.err
}

func oppAtStage(stage model.OpportunityStage) *stubOpportunities {
	return &stubOpportunities{opp: &model.Opportunity{ID: "o1", Stage: stage}}
}

func TestStageDetector_HeuristicInterviewing(t *testing.T) {
	d := NewStageDetector(oppAtStage(model.StageDiscovery), nil)
	st := NewState("Great news! Can we schedule a screening call next week?", "i1", "o1", "c1")

	require.NoError(t, d.Run(context.Background(), st))

	assert.Equal(t, model.StageInterviewing, st.SuggestedStage)
	require.Len(t, st.Log, 1)
	assert.Contains(t, st.Log[0].Detail, "INTERVIEWING")
	assert.Contains(t, st.Log[0].Detail, "heuristic")
}

func TestStageDetector_NegotiatingOutranksInterviewing(t *testing.T) {
	d := NewStageDetector(oppAtStage(model.StageEngaging), nil)
	st := NewState("The interview went well, here is the offer letter with the compensation details.", "i1", "o1", "c1")

	require.NoError(t, d.Run(context.Background(), st))

	assert.Equal(t, model.StageNegotiating, st.SuggestedStage)
}

func TestStageDetector_HeuristicSpanishSignals(t *testing.T) {
	d := NewStageDetector(oppAtStage(model.StageDiscovery), nil)
	st := NewState("Me gustaría agendar una entrevista con el equipo esta semana.", "i1", "o1", "c1")

	require.NoError(t, d.Run(context.Background(), st))

	assert.Equal(t, model.StageInterviewing, st.SuggestedStage)
}

func TestStageDetector_NeverSuggestsBackwardMove(t *testing.T) {
	d := NewStageDetector(oppAtStage(model.StageNegotiating), nil)
	st := NewState("Let's set up one more interview with the team.", "i1", "o1", "c1")

	require.NoError(t, d.Run(context.Background(), st))

	assert.Empty(t, st.SuggestedStage)
	require.Len(t, st.Log, 1)
	assert.Equal(t, "No stage change suggested", st.Log[0].Detail)
}

func TestStageDetector_LookupFailureDefaultsToDiscovery(t *testing.T) {
	d := NewStageDetector(&stubOpportunities{err: eris.New("not found")}, nil)
	st := NewState("We'd like to discuss the compensation package and start date.", "i1", "o1", "c1")

	require.NoError(t, d.Run(context.Background(), st))

	assert.Equal(t, model.StageNegotiating, st.SuggestedStage)
}

func TestStageDetector_ModelForwardMoveAccepted(t *testing.T) {
	client := &stubClient{replies: []string{`{"suggested_stage": "INTERVIEWING", "reason": "Call being scheduled"}`}}
	d := NewStageDetector(oppAtStage(model.StageDiscovery), fastHandle(client))
	st := NewState("Looking forward to next steps.", "i1", "o1", "c1")

	require.NoError(t, d.Run(context.Background(), st))

	assert.Equal(t, model.StageInterviewing, st.SuggestedStage)
	assert.Equal(t, "Call being scheduled", st.SuggestedStageReason)
	assert.Contains(t, st.Log[0].Detail, "llm")
}

func TestStageDetector_ModelBackwardMoveIgnored(t *testing.T) {
	client := &stubClient{replies: []string{`{"suggested_stage": "ENGAGING", "reason": "Early conversation"}`}}
	d := NewStageDetector(oppAtStage(model.StageInterviewing), fastHandle(client))
	st := NewState("Thanks for the update.", "i1", "o1", "c1")

	require.NoError(t, d.Run(context.Background(), st))

	assert.Empty(t, st.SuggestedStage)
	assert.Equal(t, "No stage change suggested", st.Log[0].Detail)
}

func TestStageDetector_ModelNullFallsToHeuristic(t *testing.T) {
	client := &stubClient{replies: []string{`{"suggested_stage": null, "reason": null}`}}
	d := NewStageDetector(oppAtStage(model.StageDiscovery), fastHandle(client))
	st := NewState("Here is the signing bonus and equity breakdown.", "i1", "o1", "c1")

	require.NoError(t, d.Run(context.Background(), st))

	assert.Equal(t, model.StageNegotiating, st.SuggestedStage)
	assert.Contains(t, st.Log[0].Detail, "heuristic")
}
