package batch

import "time"

// EventKind identifies a progress event.
type EventKind string

// Progress event kinds, in the order a run emits them.
const (
	EventRunStarted   EventKind = "run_started"
	EventItemStarted  EventKind = "item_started"
	EventItemFinished EventKind = "item_finished"
	EventDelay        EventKind = "delay"
	EventRunFinished  EventKind = "run_finished"
)

// Event is passed to the ProgressCallback as a run advances.
type Event struct {
	Kind   EventKind
	Action string

	// Index is the 0-based worklist position. It is -1 for run events.
	Index int
	Total int
	PID   string

	// Mutated is set on item_finished when the item was recorded.
	Mutated bool

	// Delay is the pause about to be taken, set on delay events.
	Delay time.Duration

	// State is the engine state after the event; set on run_finished.
	State string

	// Err is set on item_finished and run_finished when the run aborts.
	Err error

	Progress ProgressSnapshot
}

// ProgressCallback receives every Event synchronously on the engine's
// goroutine. It must not block for long; the next item waits for it.
type ProgressCallback func(Event)
