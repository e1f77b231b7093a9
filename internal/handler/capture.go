package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"camvault/internal/apperror"
	"camvault/internal/capture"
	"camvault/internal/dto"
	"camvault/internal/logger"
	"camvault/internal/metrics"
	"camvault/internal/service/camera"
	"camvault/internal/service/snapshot"

	"github.com/gorilla/websocket"
)

const captureWriteWait = 10 * time.Second

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Capture session actions sent by the client.
const (
	actionCapture = "capture"
	actionArm     = "arm"
	actionCancel  = "cancel"
)

type captureMessage struct {
	Action  string `json:"action"`
	Seconds int    `json:"seconds,omitempty"`
}

type captureEvent struct {
	Type      string            `json:"type"`
	State     string            `json:"state"`
	Remaining int               `json:"remaining,omitempty"`
	Photo     *dto.IngestResult `json:"photo,omitempty"`
	Error     string            `json:"error,omitempty"`
	Kind      string            `json:"kind,omitempty"`
}

// captureConn serializes writes; observer callbacks arrive from timer goroutines.
// The first failed write calls onFail and every later send is dropped.
type captureConn struct {
	conn   *websocket.Conn
	onFail func(error)

	mu  sync.Mutex
	err error
}

func (c *captureConn) send(ev captureEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.conn.SetWriteDeadline(time.Now().Add(captureWriteWait))
	if err := c.conn.WriteJSON(ev); err != nil {
		c.err = err
		if c.onFail != nil {
			c.onFail(err)
		}
		return err
	}
	return nil
}

func errorEvent(state capture.State, err error) captureEvent {
	kind, _, msg := classify(err)
	return captureEvent{Type: string(capture.EventError), State: state.String(), Error: msg, Kind: kind}
}

func wireEvent(ev capture.Event) captureEvent {
	if ev.Type == capture.EventError {
		return errorEvent(ev.State, ev.Err)
	}
	return captureEvent{
		Type:      string(ev.Type),
		State:     ev.State.String(),
		Remaining: ev.Remaining,
		Photo:     ev.Result,
	}
}

func captureOutcome(ev capture.Event) string {
	switch {
	case ev.Type == capture.EventCaptured:
		return "captured"
	case errors.Is(ev.Err, capture.ErrCancelled):
		return "cancelled"
	default:
		return "failed"
	}
}

// CaptureSessions tracks open capture sessions so a server shutdown can tear
// them down; hijacked connections are invisible to http.Server.Shutdown.
type CaptureSessions struct {
	mu       sync.Mutex
	closed   bool
	sessions map[*captureSession]struct{}
}

type captureSession struct {
	cancel context.CancelFunc
	orch   *capture.Orchestrator
	conn   *websocket.Conn
}

func (s *captureSession) close() {
	s.cancel()
	s.orch.Close()
	s.conn.Close()
}

// NewCaptureSessions creates an empty session set.
func NewCaptureSessions() *CaptureSessions {
	return &CaptureSessions{sessions: make(map[*captureSession]struct{})}
}

func (s *CaptureSessions) add(sess *captureSession) bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.sessions[sess] = struct{}{}
	return true
}

func (s *CaptureSessions) remove(sess *captureSession) {
	if s == nil {
		return
	}
	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
}

// Closed reports whether CloseAll has been called.
func (s *CaptureSessions) Closed() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Len returns the number of open sessions.
func (s *CaptureSessions) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// CloseAll tears down every open session, suppressing armed countdowns, and
// rejects sessions opened afterwards.
func (s *CaptureSessions) CloseAll() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.closed = true
	open := make([]*captureSession, 0, len(s.sessions))
	for sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()

	for _, sess := range open {
		sess.close()
	}
}

// CaptureSessionHandler runs a capture session over WebSocket. Each connection owns
// one orchestrator; closing the connection tears it down and suppresses a pending fire.
func CaptureSessionHandler(registry *camera.Registry, frames FrameSource, pipeline *snapshot.Pipeline,
	sessions *CaptureSessions, logger *logger.Logger, m *metrics.Metrics) http.HandlerFunc {
	capturer := serverCapturer(frames, pipeline)

	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if sessions.Closed() {
			writeError(w, logger, capture.ErrClosed)
			return
		}
		if _, err := registry.Get(r.Context(), id); err != nil {
			writeError(w, logger, err)
			return
		}

		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		defer connection.Close()

		ctx, cancel := context.WithCancel(context.Background())
		conn := &captureConn{conn: connection, onFail: func(err error) {
			// Cancelling ctx disarms any countdown; closing unblocks the read loop.
			logger.Warning("Capture session for camera %s: write failed, closing: %v", id, err)
			cancel()
			connection.Close()
		}}

		orch := capture.New(capturer, capture.WithObserver(func(ev capture.Event) {
			if ev.Type == capture.EventCaptured || ev.Type == capture.EventError {
				m.Capture(captureOutcome(ev))
			}
			conn.send(wireEvent(ev))
		}))

		var inflight sync.WaitGroup
		defer inflight.Wait()
		defer orch.Close()
		defer cancel()

		sess := &captureSession{cancel: cancel, orch: orch, conn: connection}
		if !sessions.add(sess) {
			conn.send(errorEvent(orch.State(), capture.ErrClosed))
			return
		}
		defer sessions.remove(sess)

		logger.Info("Capture session opened for camera %s", id)

		for {
			var msg captureMessage
			if err := connection.ReadJSON(&msg); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Capture session for camera %s closed normally", id)
				} else {
					logger.Warning("Capture session for camera %s ended: %v", id, err)
				}
				return
			}

			switch msg.Action {
			case actionCapture, actionArm:
				// Resolve on every action so a rename or url change is picked up.
				cam, err := registry.Get(ctx, id)
				if err != nil {
					conn.send(errorEvent(orch.State(), err))
					continue
				}
				target := capture.Target{Name: cam.Name, URL: cam.URL}

				if msg.Action == actionArm {
					out, err := orch.CaptureAfter(ctx, target, msg.Seconds)
					if err != nil {
						conn.send(errorEvent(orch.State(), err))
						continue
					}
					inflight.Add(1)
					go func() {
						defer inflight.Done()
						<-out
					}()
					continue
				}

				inflight.Add(1)
				go func() {
					defer inflight.Done()
					_, err := orch.CaptureNow(ctx, target)
					if errors.Is(err, capture.ErrBusy) || errors.Is(err, capture.ErrClosed) {
						// Rejected before firing, so the observer never saw it.
						conn.send(errorEvent(orch.State(), err))
					}
				}()
			case actionCancel:
				orch.Cancel()
			default:
				conn.send(errorEvent(orch.State(), apperror.Validation("capture session", "unknown action %q", msg.Action)))
			}
		}
	}
}
