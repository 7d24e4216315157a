package orchestrator

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/kpenrose/finscope/pkg/logx"
	"github.com/kpenrose/finscope/pkg/models"
)

// EventType identifies what happened inside a plan run.
type EventType string

const (
	EventPlanCreated          EventType = "plan_created"
	EventStepQueued           EventType = "step_queued"
	EventStepAwaitingFeedback EventType = "step_awaiting_feedback"
	EventStepApproved         EventType = "step_approved"
	EventStepRejected         EventType = "step_rejected"
	EventStepStarted          EventType = "step_started"
	EventStepCompleted        EventType = "step_completed"
	EventStepFailed           EventType = "step_failed"
	EventPlanDone             EventType = "plan_done"
)

// Event is a progress notification about a plan or one of its steps.
type Event struct {
	Type      EventType        `json:"type"`
	PlanID    string           `json:"plan_id,omitempty"`
	StepID    string           `json:"step_id,omitempty"`
	Agent     models.AgentType `json:"agent,omitempty"`
	Message   string           `json:"message,omitempty"`
	Err       string           `json:"error,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// EventEmitter fans plan progress out to a subscriber over a buffered
// channel. Emission never blocks the run loop: with no one draining the
// channel, events are dropped and counted instead.
type EventEmitter struct {
	events  chan Event
	dropped atomic.Uint64
	log     zerolog.Logger
}

// NewEventEmitter creates an emitter with the given buffer size.
func NewEventEmitter(buffer int) *EventEmitter {
	if buffer <= 0 {
		buffer = 64
	}
	return &EventEmitter{
		events: make(chan Event, buffer),
		log:    logx.Component("events"),
	}
}

// Emit sends the event without blocking, stamping the timestamp if unset.
// A nil emitter swallows events, so components can emit unconditionally.
func (e *EventEmitter) Emit(ev Event) {
	if e == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	select {
	case e.events <- ev:
	default:
		n := e.dropped.Add(1)
		if n%10 == 1 { // log every tenth drop
			e.log.Warn().Uint64("dropped", n).Str("type", string(ev.Type)).Msg("event channel full")
		}
	}
}

// Events returns the channel subscribers drain.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// DroppedCount returns how many events were discarded because the channel
// was full.
func (e *EventEmitter) DroppedCount() uint64 {
	if e == nil {
		return 0
	}
	return e.dropped.Load()
}

// Close closes the event channel. Emit must not be called afterwards.
func (e *EventEmitter) Close() {
	if e != nil {
		close(e.events)
	}
}
