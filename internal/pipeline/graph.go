package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/CristopherRL/talent-inbound-os/internal/model"
)

// End is the terminal routing target.
const End = "__end__"

// Node is one pipeline stage: a heuristic implementation plus an optional
// model-backed path, bound at construction. Nodes mutate only the State;
// side effects belong to the orchestrator.
type Node interface {
	Name() string
	Run(ctx context.Context, st *State) error
}

// RouteFunc inspects the accumulated state after a node and names the next
// node, or End to terminate.
type RouteFunc func(st *State) string

// Graph is a directed graph of named nodes with per-node routing. Execution
// is strictly sequential along the routed path; early termination is a normal
// outcome that leaves the partial state and log intact.
type Graph struct {
	start  string
	nodes  map[string]Node
	routes map[string]RouteFunc
}

// Run executes the graph from the start node until a route returns End.
// A node error aborts the run; callers translate it into a failed outcome.
func (g *Graph) Run(ctx context.Context, st *State) error {
	current := g.start
	for current != End {
		node, ok := g.nodes[current]
		if !ok {
			return eris.Errorf("pipeline: unknown node %q", current)
		}
		if err := node.Run(ctx, st); err != nil {
			return eris.Wrapf(err, "pipeline: node %s", current)
		}
		route, ok := g.routes[current]
		if !ok {
			return eris.Errorf("pipeline: no route after node %q", current)
		}
		next := route(st)
		if next != End {
			zap.L().Debug("pipeline: advancing",
				zap.String("from", current),
				zap.String("to", next),
			)
		}
		current = next
	}
	return nil
}

// always is an unconditional edge.
func always(next string) RouteFunc {
	return func(*State) string { return next }
}

func routeAfterGuardrail(st *State) string {
	if st.PromptInjectionDetected {
		return End
	}
	return StageGatekeeper
}

func routeAfterGuardrailFollowUp(st *State) string {
	if st.PromptInjectionDetected {
		return End
	}
	return StageExtractor
}

func routeAfterGatekeeper(st *State) string {
	if st.Classification == model.ClassificationRealOffer {
		return StageExtractor
	}
	return End
}

// routeAfterLanguageDetector skips scoring and drafting when critical fields
// are missing. Language detection itself always runs so on-demand drafts can
// match the recruiter's language even for incomplete offers.
func routeAfterLanguageDetector(st *State) string {
	if st.Extracted != nil && len(st.Extracted.MissingFields) > 0 {
		return End
	}
	return StageAnalyst
}

// Nodes bundles the seven constructed stage nodes for graph assembly.
type Nodes struct {
	Guardrail        *Guardrail
	Gatekeeper       *Gatekeeper
	Extractor        *Extractor
	LanguageDetector *LanguageDetector
	Analyst          *Analyst
	Communicator     *Communicator
	StageDetector    *StageDetector
}

func nodeMap(n Nodes) map[string]Node {
	return map[string]Node{
		StageGuardrail:        n.Guardrail,
		StageGatekeeper:       n.Gatekeeper,
		StageExtractor:        n.Extractor,
		StageLanguageDetector: n.LanguageDetector,
		StageAnalyst:          n.Analyst,
		StageCommunicator:     n.Communicator,
		StageStageDetector:    n.StageDetector,
	}
}

// NewFullGraph builds the full-run topology:
// guardrail → gatekeeper → extractor → language_detector → analyst →
// communicator → stage_detector, with conditional short-circuits after
// guardrail (unsafe), gatekeeper (non-offer), and language detector
// (missing critical fields).
func NewFullGraph(n Nodes) *Graph {
	return &Graph{
		start: StageGuardrail,
		nodes: nodeMap(n),
		routes: map[string]RouteFunc{
			StageGuardrail:        routeAfterGuardrail,
			StageGatekeeper:       routeAfterGatekeeper,
			StageExtractor:        always(StageLanguageDetector),
			StageLanguageDetector: routeAfterLanguageDetector,
			StageAnalyst:          always(StageCommunicator),
			StageCommunicator:     always(StageStageDetector),
			StageStageDetector:    always(End),
		},
	}
}

// NewFollowUpGraph builds the follow-up topology: identical to the full run
// but without the gatekeeper; the classification was established when the
// initial message was processed.
func NewFollowUpGraph(n Nodes) *Graph {
	return &Graph{
		start: StageGuardrail,
		nodes: nodeMap(n),
		routes: map[string]RouteFunc{
			StageGuardrail:        routeAfterGuardrailFollowUp,
			StageExtractor:        always(StageLanguageDetector),
			StageLanguageDetector: routeAfterLanguageDetector,
			StageAnalyst:          always(StageCommunicator),
			StageCommunicator:     always(StageStageDetector),
			StageStageDetector:    always(End),
		},
	}
}
