package pipeline

import (
	"sync"
	"time"
)

// Event kinds published by the emitter.
const (
	EventStageProgress = "stage_progress"
	EventRunComplete   = "run_complete"
)

// Event is one progress notification for a pipeline run.
type Event struct {
	Kind          string    `json:"event"`
	Stage         string    `json:"stage,omitempty"`
	Status        string    `json:"status,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	OpportunityID string    `json:"opportunity_id,omitempty"`
	FinalStatus   string    `json:"final_status,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Emitter fans pipeline progress out to per-interaction channels. The
// orchestrator writes, the SSE endpoint reads. Channels are buffered; a slow
// or absent reader never blocks a run, overflow events are dropped.
type Emitter struct {
	mu       sync.Mutex
	channels map[string]chan Event
}

func NewEmitter() *Emitter {
	return &Emitter{channels: make(map[string]chan Event)}
}

// Subscribe returns the event channel for an interaction, creating it when
// needed. The channel is closed by Complete.
func (e *Emitter) Subscribe(interactionID string) <-chan Event {
	return e.channel(interactionID)
}

func (e *Emitter) channel(interactionID string) chan Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch, ok := e.channels[interactionID]
	if !ok {
		ch = make(chan Event, 64)
		e.channels[interactionID] = ch
	}
	return ch
}

// Progress publishes a stage_progress event.
func (e *Emitter) Progress(interactionID, stage, status, detail string) {
	e.send(interactionID, Event{
		Kind:      EventStageProgress,
		Stage:     stage,
		Status:    status,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
}

// Complete publishes the terminal run_complete event, then closes the channel
// and drops the registry entry. After Complete the interaction id can be
// reused for a fresh run.
func (e *Emitter) Complete(interactionID, opportunityID, finalStatus string) {
	e.send(interactionID, Event{
		Kind:          EventRunComplete,
		OpportunityID: opportunityID,
		FinalStatus:   finalStatus,
		Timestamp:     time.Now().UTC(),
	})
	e.mu.Lock()
	defer e.mu.Unlock()
	if ch, ok := e.channels[interactionID]; ok {
		close(ch)
		delete(e.channels, interactionID)
	}
}

func (e *Emitter) send(interactionID string, ev Event) {
	ch := e.channel(interactionID)
	select {
	case ch <- ev:
	default:
	}
}
