package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"camvault/internal/apperror"
	"camvault/internal/dto"
)

// fakeClock only moves when Advance is called. Callbacks run synchronously
// inside Advance and may schedule further timers.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*fakeTimer
	// leaky timers ignore Stop, like a timer whose callback already started.
	leaky bool
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &fakeTimer{clock: c, at: c.now + d, seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.clock.leaky || t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at > target {
				continue
			}
			if next == nil || t.at < next.at || (t.at == next.at && t.seq < next.seq) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		next.fired = true
		c.mu.Unlock()

		next.f()
	}
}

// recorder counts capture calls and remembers when they happened.
type recorder struct {
	mu      sync.Mutex
	clock   *fakeClock
	calls   []Target
	firedAt []time.Duration
	err     error
}

func (r *recorder) Capture(_ context.Context, target Target) (*dto.IngestResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, target)
	if r.clock != nil {
		r.firedAt = append(r.firedAt, r.clock.Now())
	}
	if r.err != nil {
		return nil, r.err
	}
	return &dto.IngestResult{ID: "photo-1", CameraName: target.Name}, nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

var frontDoor = Target{Name: "Front Door", URL: "http://10.0.0.5:8080/video"}

func newTestOrchestrator(opts ...Option) (*Orchestrator, *fakeClock, *recorder) {
	clock := &fakeClock{}
	rec := &recorder{clock: clock}
	o := New(rec, append([]Option{WithClock(clock)}, opts...)...)
	return o, clock, rec
}

func receive(t *testing.T, ch <-chan Outcome) Outcome {
	t.Helper()

	select {
	case out := <-ch:
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outcome")
		return Outcome{}
	}
}

func TestCaptureAfter_FiresExactlyOnceAfterCountdown(t *testing.T) {
	o, clock, rec := newTestOrchestrator()

	out, err := o.CaptureAfter(context.Background(), frontDoor, 5)
	require.NoError(t, err)
	assert.Equal(t, Arming, o.State())
	assert.Equal(t, 5, o.Remaining())

	for i := 1; i <= 4; i++ {
		clock.Advance(time.Second)
		assert.Equal(t, 5-i, o.Remaining())
		assert.Zero(t, rec.count(), "fired early at tick %d", i)
	}

	clock.Advance(time.Second)
	outcome := receive(t, out)
	require.NoError(t, outcome.Err)
	assert.Equal(t, "Front Door", outcome.Result.CameraName)

	require.Equal(t, 1, rec.count())
	assert.GreaterOrEqual(t, rec.firedAt[0], 5*time.Second)
	assert.Equal(t, frontDoor, rec.calls[0])
	assert.Equal(t, Idle, o.State())

	clock.Advance(time.Minute)
	assert.Equal(t, 1, rec.count(), "no second fire")
}

func TestCaptureAfter_CloseAtTickThreeNeverFires(t *testing.T) {
	o, clock, rec := newTestOrchestrator()

	out, err := o.CaptureAfter(context.Background(), frontDoor, 5)
	require.NoError(t, err)

	clock.Advance(3 * time.Second)
	assert.Equal(t, 2, o.Remaining())

	require.NoError(t, o.Close())

	outcome := receive(t, out)
	assert.ErrorIs(t, outcome.Err, ErrCancelled)

	clock.Advance(time.Minute)
	assert.Zero(t, rec.count())
	assert.Equal(t, Idle, o.State())
}

func TestCaptureAfter_ContextCancelTearsDown(t *testing.T) {
	o, clock, rec := newTestOrchestrator()
	ctx, cancel := context.WithCancel(context.Background())

	out, err := o.CaptureAfter(ctx, frontDoor, 3)
	require.NoError(t, err)

	clock.Advance(time.Second)
	cancel()

	outcome := receive(t, out)
	assert.ErrorIs(t, outcome.Err, ErrCancelled)
	assert.ErrorIs(t, outcome.Err, context.Canceled)

	clock.Advance(time.Minute)
	assert.Zero(t, rec.count())

	// The orchestrator is reusable after a cancelled arming.
	out, err = o.CaptureAfter(context.Background(), frontDoor, 1)
	require.NoError(t, err)
	clock.Advance(time.Second)
	require.NoError(t, receive(t, out).Err)
	assert.Equal(t, 1, rec.count())
}

func TestCaptureAfter_CancelThenRearm(t *testing.T) {
	o, clock, rec := newTestOrchestrator()

	out, err := o.CaptureAfter(context.Background(), frontDoor, 5)
	require.NoError(t, err)
	clock.Advance(2 * time.Second)

	assert.True(t, o.Cancel())
	assert.ErrorIs(t, receive(t, out).Err, ErrCancelled)
	assert.False(t, o.Cancel(), "nothing left to cancel")

	out, err = o.CaptureAfter(context.Background(), frontDoor, 2)
	require.NoError(t, err)
	clock.Advance(2 * time.Second)
	require.NoError(t, receive(t, out).Err)
	assert.Equal(t, 1, rec.count())
}

func TestCaptureAfter_StaleTimerIsNoop(t *testing.T) {
	o, clock, rec := newTestOrchestrator()
	clock.leaky = true

	first, err := o.CaptureAfter(context.Background(), frontDoor, 5)
	require.NoError(t, err)
	clock.Advance(500 * time.Millisecond)
	require.True(t, o.Cancel())
	assert.ErrorIs(t, receive(t, first).Err, ErrCancelled)

	second, err := o.CaptureAfter(context.Background(), frontDoor, 5)
	require.NoError(t, err)

	// The first countdown's timer is still live and fires at 1s; it must not
	// decrement the second countdown.
	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, 5, o.Remaining())

	clock.Advance(5 * time.Second)
	require.NoError(t, receive(t, second).Err)
	assert.Equal(t, 1, rec.count())
}

func TestCaptureAfter_RejectsConcurrentArming(t *testing.T) {
	o, clock, rec := newTestOrchestrator()

	out, err := o.CaptureAfter(context.Background(), frontDoor, 3)
	require.NoError(t, err)

	_, err = o.CaptureAfter(context.Background(), frontDoor, 3)
	assert.ErrorIs(t, err, ErrBusy)

	_, err = o.CaptureNow(context.Background(), frontDoor)
	assert.ErrorIs(t, err, ErrBusy)

	clock.Advance(3 * time.Second)
	require.NoError(t, receive(t, out).Err)
	assert.Equal(t, 1, rec.count())
}

func TestCaptureAfter_InvalidSeconds(t *testing.T) {
	o, _, _ := newTestOrchestrator()

	for _, s := range []int{0, -3} {
		_, err := o.CaptureAfter(context.Background(), frontDoor, s)
		assert.True(t, apperror.IsValidation(err))
	}
	assert.Equal(t, Idle, o.State())
}

func TestCaptureAfter_FailureIsReportedNotRetried(t *testing.T) {
	o, clock, rec := newTestOrchestrator()
	rec.err = apperror.Storage("ingest photo", errors.New("upload failed"))

	out, err := o.CaptureAfter(context.Background(), frontDoor, 1)
	require.NoError(t, err)
	clock.Advance(time.Second)

	outcome := receive(t, out)
	assert.True(t, apperror.IsStorage(outcome.Err))

	clock.Advance(time.Minute)
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, Idle, o.State())
}

func TestCaptureNow(t *testing.T) {
	o, _, rec := newTestOrchestrator()

	res, err := o.CaptureNow(context.Background(), frontDoor)
	require.NoError(t, err)
	assert.Equal(t, "photo-1", res.ID)
	assert.Equal(t, Idle, o.State())

	rec.err = errors.New("camera offline")
	_, err = o.CaptureNow(context.Background(), frontDoor)
	assert.Error(t, err)
	assert.Equal(t, Idle, o.State(), "failure returns to idle")
	assert.Equal(t, 2, rec.count())
}

func TestCaptureNow_BusyWhileFiring(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	o := New(CapturerFunc(func(ctx context.Context, target Target) (*dto.IngestResult, error) {
		close(entered)
		<-release
		return &dto.IngestResult{ID: "x"}, nil
	}))

	done := make(chan error, 1)
	go func() {
		_, err := o.CaptureNow(context.Background(), frontDoor)
		done <- err
	}()

	<-entered
	assert.Equal(t, Firing, o.State())
	_, err := o.CaptureNow(context.Background(), frontDoor)
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)
}

func TestClose_RejectsFurtherCaptures(t *testing.T) {
	o, _, rec := newTestOrchestrator()
	require.NoError(t, o.Close())
	require.NoError(t, o.Close(), "close is idempotent")

	_, err := o.CaptureNow(context.Background(), frontDoor)
	assert.ErrorIs(t, err, ErrClosed)

	_, err = o.CaptureAfter(context.Background(), frontDoor, 2)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Zero(t, rec.count())
}

func TestObserver_EventSequence(t *testing.T) {
	var (
		mu     sync.Mutex
		events []Event
	)
	o, clock, _ := newTestOrchestrator(WithObserver(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	}))

	out, err := o.CaptureAfter(context.Background(), frontDoor, 3)
	require.NoError(t, err)
	clock.Advance(3 * time.Second)
	require.NoError(t, receive(t, out).Err)

	mu.Lock()
	defer mu.Unlock()

	var types []EventType
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []EventType{EventState, EventTick, EventTick, EventState, EventCaptured, EventState}, types)
	assert.Equal(t, 3, events[0].Remaining)
	assert.Equal(t, 2, events[1].Remaining)
	assert.Equal(t, 1, events[2].Remaining)
	assert.Equal(t, Firing, events[3].State)
	assert.Equal(t, Idle, events[5].State)
}

func TestCaptureAfter_RealClock(t *testing.T) {
	rec := &recorder{}
	o := New(rec, WithTick(5*time.Millisecond))

	out, err := o.CaptureAfter(context.Background(), frontDoor, 2)
	require.NoError(t, err)

	require.NoError(t, receive(t, out).Err)
	assert.Equal(t, 1, rec.count())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "arming", Arming.String())
	assert.Equal(t, "firing", Firing.String())
}
