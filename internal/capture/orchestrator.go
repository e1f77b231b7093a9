// Package capture drives a single-camera countdown-then-capture state machine.
//
// An Orchestrator is owned by one capture context (a CLI invocation, a websocket
// session) and is never shared between cameras. Ticks and the final fire are
// scheduled callbacks; tearing the orchestrator down while arming suppresses the
// scheduled fire, not just the visible countdown.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"camvault/internal/apperror"
	"camvault/internal/dto"
)

var (
	ErrBusy      = errors.New("capture: a capture is already armed or in flight")
	ErrClosed    = errors.New("capture: orchestrator closed")
	ErrCancelled = errors.New("capture: cancelled before firing")
)

// State is the orchestrator phase.
type State int

const (
	Idle State = iota
	Arming
	Firing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Arming:
		return "arming"
	case Firing:
		return "firing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Target identifies the camera to capture from, by its current name and stream url.
type Target struct {
	Name string
	URL  string
}

// Capturer issues one capture-and-ingest request.
type Capturer interface {
	Capture(ctx context.Context, target Target) (*dto.IngestResult, error)
}

// CapturerFunc adapts a function to Capturer.
type CapturerFunc func(ctx context.Context, target Target) (*dto.IngestResult, error)

func (f CapturerFunc) Capture(ctx context.Context, target Target) (*dto.IngestResult, error) {
	return f(ctx, target)
}

// Outcome is delivered once per CaptureAfter call.
type Outcome struct {
	Result *dto.IngestResult
	Err    error
}

// EventType classifies observer notifications.
type EventType string

const (
	EventState    EventType = "state"
	EventTick     EventType = "tick"
	EventCaptured EventType = "captured"
	EventError    EventType = "error"
)

// Event is reported to the observer outside the orchestrator's lock.
type Event struct {
	Type      EventType
	State     State
	Remaining int
	Result    *dto.IngestResult
	Err       error
}

// Timer is a scheduled callback that can be stopped.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. The callback must not run synchronously inside AfterFunc.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithObserver registers a callback for state changes, ticks and results.
func WithObserver(fn func(Event)) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

// WithTick sets the countdown step. It defaults to one second.
func WithTick(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.tick = d
		}
	}
}

// Orchestrator runs at most one armed or in-flight capture at a time.
type Orchestrator struct {
	capturer Capturer
	clock    Clock
	tick     time.Duration
	observer func(Event)

	mu        sync.Mutex
	state     State
	remaining int
	gen       uint64
	timer     Timer
	stopWatch func() bool
	pending   chan Outcome
	target    Target
	armCtx    context.Context
	closed    bool
}

// New creates an idle orchestrator.
func New(capturer Capturer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		capturer: capturer,
		clock:    realClock{},
		tick:     time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Remaining returns the seconds left on the countdown, or 0 when not arming.
func (o *Orchestrator) Remaining() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.remaining
}

// CaptureNow fires immediately. Failures are returned, never retried.
func (o *Orchestrator) CaptureNow(ctx context.Context, target Target) (*dto.IngestResult, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	if o.state != Idle {
		o.mu.Unlock()
		return nil, ErrBusy
	}
	o.state = Firing
	o.mu.Unlock()

	o.emit(Event{Type: EventState, State: Firing})
	return o.fire(ctx, target)
}

// CaptureAfter arms a countdown of the given seconds and fires when it reaches zero.
// The returned channel receives exactly one Outcome. Cancelling ctx while arming,
// Cancel and Close all deliver ErrCancelled without invoking the capturer.
func (o *Orchestrator) CaptureAfter(ctx context.Context, target Target, seconds int) (<-chan Outcome, error) {
	if seconds < 1 {
		return nil, apperror.Validation("capture after", "seconds must be at least 1, got %d", seconds)
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	if o.state != Idle {
		o.mu.Unlock()
		return nil, ErrBusy
	}

	o.gen++
	gen := o.gen
	out := make(chan Outcome, 1)

	o.state = Arming
	o.remaining = seconds
	o.pending = out
	o.target = target
	o.armCtx = ctx
	o.timer = o.clock.AfterFunc(o.tick, func() { o.onTick(gen) })
	o.stopWatch = context.AfterFunc(ctx, func() { o.cancelArming(gen, context.Cause(ctx)) })
	o.mu.Unlock()

	o.emit(Event{Type: EventState, State: Arming, Remaining: seconds})
	return out, nil
}

// Cancel tears down an armed countdown. It reports whether one was armed.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	gen := o.gen
	o.mu.Unlock()
	return o.cancelArming(gen, nil)
}

// Close cancels any armed countdown and rejects further captures.
// A capture already firing runs to completion.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	gen := o.gen
	o.mu.Unlock()

	o.cancelArming(gen, nil)
	return nil
}

func (o *Orchestrator) onTick(gen uint64) {
	o.mu.Lock()
	if gen != o.gen || o.state != Arming {
		// Stale callback from a countdown that was torn down or replaced.
		o.mu.Unlock()
		return
	}

	o.remaining--
	if o.remaining > 0 {
		remaining := o.remaining
		o.timer = o.clock.AfterFunc(o.tick, func() { o.onTick(gen) })
		o.mu.Unlock()
		o.emit(Event{Type: EventTick, State: Arming, Remaining: remaining})
		return
	}

	o.state = Firing
	out, target, ctx := o.pending, o.target, o.armCtx
	o.releaseArmingLocked()
	o.mu.Unlock()

	o.emit(Event{Type: EventState, State: Firing})
	res, err := o.fire(ctx, target)
	out <- Outcome{Result: res, Err: err}
}

// cancelArming tears down the countdown identified by gen, if it is still armed.
func (o *Orchestrator) cancelArming(gen uint64, cause error) bool {
	o.mu.Lock()
	if gen != o.gen || o.state != Arming {
		o.mu.Unlock()
		return false
	}

	if o.timer != nil {
		o.timer.Stop()
	}
	o.gen++
	o.state = Idle
	out := o.pending
	o.releaseArmingLocked()
	o.mu.Unlock()

	err := ErrCancelled
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrCancelled, cause)
	}
	o.emit(Event{Type: EventError, State: Idle, Err: err})
	o.emit(Event{Type: EventState, State: Idle})
	out <- Outcome{Err: err}
	return true
}

func (o *Orchestrator) releaseArmingLocked() {
	if o.stopWatch != nil {
		o.stopWatch()
	}
	o.stopWatch = nil
	o.timer = nil
	o.remaining = 0
	o.pending = nil
	o.target = Target{}
	o.armCtx = nil
}

func (o *Orchestrator) fire(ctx context.Context, target Target) (*dto.IngestResult, error) {
	res, err := o.capturer.Capture(ctx, target)

	o.mu.Lock()
	o.state = Idle
	o.mu.Unlock()

	if err != nil {
		o.emit(Event{Type: EventError, State: Idle, Err: err})
	} else {
		o.emit(Event{Type: EventCaptured, State: Idle, Result: res})
	}
	o.emit(Event{Type: EventState, State: Idle})
	return res, err
}

func (o *Orchestrator) emit(ev Event) {
	if o.observer != nil {
		o.observer(ev)
	}
}
