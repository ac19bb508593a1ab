package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/looplab/fsm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dvtools/dvbatch/internal/logging"
)

// Engine states.
const (
	StateIdle      = "idle"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateAborted   = "aborted"
)

const (
	eventStart    = "start"
	eventComplete = "complete"
	eventAbort    = "abort"

	tracerName = "github.com/dvtools/dvbatch/internal/engine/batch"
)

// Engine construction and usage errors.
var (
	ErrNilAction     = errors.New("batch action cannot be nil")
	ErrNilSink       = errors.New("batch sink cannot be nil")
	ErrNegativeDelay = errors.New("batch delay cannot be negative")
	ErrEngineUsed    = errors.New("batch engine has already run")
)

// Action decides whether one dataset needs changing and changes it.
// Apply reports mutated=true only when it changed the dataset.
type Action interface {
	Name() string
	Apply(ctx context.Context, pid string) (mutated bool, err error)
}

// Sink durably records mutated PIDs. Record must not return until the PID
// is persisted.
type Sink interface {
	Record(pid string) error
}

// Sleeper blocks for d. time.Sleep is the default.
type Sleeper func(d time.Duration)

// AbortError reports the item that stopped a run.
type AbortError struct {
	// Index is the 0-based worklist position of the failed item.
	Index int
	PID   string
	Err   error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("batch aborted at item %d (%s): %v", e.Index+1, e.PID, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }

// Result summarizes a finished run.
type Result struct {
	Action    string
	State     string
	Total     int
	Processed int

	// Mutated lists recorded PIDs in the order they were recorded.
	Mutated []string

	StartedAt time.Time
	Duration  time.Duration

	// Abort is set when State is StateAborted.
	Abort *AbortError
}

// Engine runs one Action over one worklist. It is single-use.
type Engine struct {
	action     Action
	sink       Sink
	delay      time.Duration
	sleep      Sleeper
	onProgress ProgressCallback
	now        func() time.Time
	tracer     trace.Tracer
	machine    *fsm.FSM
}

// Option configures an Engine.
type Option func(*Engine)

// WithDelay sets the pause between consecutive items.
func WithDelay(d time.Duration) Option {
	return func(e *Engine) { e.delay = d }
}

// WithSleeper replaces time.Sleep for the inter-item delay.
func WithSleeper(s Sleeper) Option {
	return func(e *Engine) {
		if s != nil {
			e.sleep = s
		}
	}
}

// WithProgressCallback sets a progress callback for the engine.
func WithProgressCallback(callback ProgressCallback) Option {
	return func(e *Engine) { e.onProgress = callback }
}

// NewEngine creates an idle engine for action, recording mutations in sink.
func NewEngine(action Action, sink Sink, opts ...Option) (*Engine, error) {
	if action == nil {
		return nil, ErrNilAction
	}
	if sink == nil {
		return nil, ErrNilSink
	}

	e := &Engine{
		action: action,
		sink:   sink,
		sleep:  time.Sleep,
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.delay < 0 {
		return nil, fmt.Errorf("%w: got %s", ErrNegativeDelay, e.delay)
	}

	e.machine = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventStart, Src: []string{StateIdle}, Dst: StateRunning},
			{Name: eventComplete, Src: []string{StateRunning}, Dst: StateCompleted},
			{Name: eventAbort, Src: []string{StateRunning}, Dst: StateAborted},
		},
		fsm.Callbacks{
			"enter_state": func(ctx context.Context, ev *fsm.Event) {
				logging.FromContext(ctx).Debug().Ctx(ctx).
					Str("action", action.Name()).
					Str("from", ev.Src).
					Str("to", ev.Dst).
					Msg("batch engine state change")
			},
		},
	)
	return e, nil
}

// State returns the current engine state.
func (e *Engine) State() string {
	return e.machine.Current()
}

// Delay returns the configured inter-item delay.
func (e *Engine) Delay() time.Duration {
	return e.delay
}

// Run processes pids in order. It stops at the first failing item and
// returns the partial Result together with an *AbortError. ctx is passed to
// the Action but the loop itself does not stop when ctx is done.
func (e *Engine) Run(ctx context.Context, pids []string) (*Result, error) {
	if err := e.transition(ctx, eventStart); err != nil {
		return nil, fmt.Errorf("%w (state %s)", ErrEngineUsed, e.machine.Current())
	}

	name := e.action.Name()
	total := len(pids)

	ctx, span := e.tracer.Start(ctx, "batch.run", trace.WithAttributes(
		attribute.String("batch.action", name),
		attribute.Int("batch.total", total),
		attribute.Int64("batch.delay_ms", e.delay.Milliseconds()),
	))
	defer span.End()

	progress := newProgressWithClock(total, e.now)
	result := &Result{
		Action:    name,
		State:     StateRunning,
		Total:     total,
		Mutated:   []string{},
		StartedAt: progress.StartTime,
	}

	e.emit(Event{Kind: EventRunStarted, Action: name, Index: -1, Total: total}, progress)

	for i, pid := range pids {
		e.emit(Event{Kind: EventItemStarted, Action: name, Index: i, Total: total, PID: pid}, progress)

		mutated, err := e.processItem(ctx, i, pid)
		if err != nil {
			abort := &AbortError{Index: i, PID: pid, Err: err}
			e.emit(Event{Kind: EventItemFinished, Action: name, Index: i, Total: total, PID: pid, Err: abort}, progress)
			return e.finish(ctx, span, result, progress, abort)
		}

		progress.AddProcessed(mutated)
		result.Processed++
		if mutated {
			result.Mutated = append(result.Mutated, pid)
		}
		e.emit(Event{Kind: EventItemFinished, Action: name, Index: i, Total: total, PID: pid, Mutated: mutated}, progress)

		if i < total-1 && e.delay > 0 {
			e.emit(Event{Kind: EventDelay, Action: name, Index: i, Total: total, PID: pid, Delay: e.delay}, progress)
			e.sleep(e.delay)
		}
	}

	return e.finish(ctx, span, result, progress, nil)
}

// processItem applies the action to one PID and records it if mutated.
func (e *Engine) processItem(ctx context.Context, index int, pid string) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "batch.item", trace.WithAttributes(
		attribute.Int("batch.index", index),
		attribute.String("dataverse.pid", pid),
	))
	defer span.End()

	mutated, err := e.action.Apply(ctx, pid)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	span.SetAttributes(attribute.Bool("batch.mutated", mutated))
	if !mutated {
		return false, nil
	}

	if err := e.sink.Record(pid); err != nil {
		err = fmt.Errorf("recording mutated pid: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	return true, nil
}

func (e *Engine) finish(
	ctx context.Context,
	span trace.Span,
	result *Result,
	progress *Progress,
	abort *AbortError,
) (*Result, error) {
	event := eventComplete
	if abort != nil {
		event = eventAbort
	}
	if err := e.transition(ctx, event); err != nil {
		return nil, fmt.Errorf("batch engine %s: %w", event, err)
	}

	result.State = e.machine.Current()
	result.Duration = e.now().Sub(result.StartedAt)
	span.SetAttributes(
		attribute.String("batch.state", result.State),
		attribute.Int("batch.processed", result.Processed),
		attribute.Int("batch.mutated", len(result.Mutated)),
	)

	finished := Event{Kind: EventRunFinished, Action: result.Action, Index: -1, Total: result.Total, State: result.State}
	if abort == nil {
		e.emit(finished, progress)
		return result, nil
	}

	result.Abort = abort
	span.RecordError(abort)
	span.SetStatus(codes.Error, abort.Error())
	finished.Err = abort
	e.emit(finished, progress)
	return result, abort
}

// transition fires a state machine event. The caller's cancellation must
// not leave the engine stuck in running.
func (e *Engine) transition(ctx context.Context, event string) error {
	return e.machine.Event(context.WithoutCancel(ctx), event)
}

func (e *Engine) emit(ev Event, progress *Progress) {
	if e.onProgress == nil {
		return
	}
	ev.Progress = progress.Snapshot()
	e.onProgress(ev)
}
