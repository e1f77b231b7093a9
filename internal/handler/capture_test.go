package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"camvault/internal/apperror"
	"camvault/internal/capture"
	"camvault/internal/frame"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialCapture(t *testing.T, env *testEnv, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/cameras/" + id + "/capture"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads events until one of the given type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, eventType string) (captureEvent, []captureEvent) {
	t.Helper()
	var seen []captureEvent
	for {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var ev captureEvent
		require.NoError(t, conn.ReadJSON(&ev))
		seen = append(seen, ev)
		if ev.Type == eventType {
			return ev, seen
		}
	}
}

func TestCaptureSession_CaptureNow(t *testing.T) {
	env := setupTestEnv(t)
	id := env.createCamera(t, "Lobby", fakeCamera(t).URL)
	conn := dialCapture(t, env, id)

	require.NoError(t, conn.WriteJSON(captureMessage{Action: actionCapture}))
	ev, seen := readUntil(t, conn, "captured")

	require.NotNil(t, ev.Photo)
	assert.Equal(t, "Lobby", ev.Photo.CameraName)
	assert.Equal(t, "idle", ev.State)
	assert.Equal(t, "firing", seen[0].State)

	page := listPhotos(t, env, "")
	assert.Equal(t, 1, page.Total)
}

func TestCaptureSession_ArmTicksThenFires(t *testing.T) {
	env := setupTestEnv(t)
	id := env.createCamera(t, "Lobby", fakeCamera(t).URL)
	conn := dialCapture(t, env, id)

	require.NoError(t, conn.WriteJSON(captureMessage{Action: actionArm, Seconds: 2}))
	ev, seen := readUntil(t, conn, "captured")
	require.NotNil(t, ev.Photo)

	require.GreaterOrEqual(t, len(seen), 3)
	assert.Equal(t, captureEvent{Type: "state", State: "arming", Remaining: 2}, seen[0])
	assert.Equal(t, captureEvent{Type: "tick", State: "arming", Remaining: 1}, seen[1])
	assert.Equal(t, 1, listPhotos(t, env, "").Total)
}

func TestCaptureSession_CancelSuppressesFire(t *testing.T) {
	env := setupTestEnv(t)
	id := env.createCamera(t, "Lobby", fakeCamera(t).URL)
	conn := dialCapture(t, env, id)

	require.NoError(t, conn.WriteJSON(captureMessage{Action: actionArm, Seconds: 30}))
	first, _ := readUntil(t, conn, "state")
	assert.Equal(t, "arming", first.State)

	require.NoError(t, conn.WriteJSON(captureMessage{Action: actionCancel}))
	ev, _ := readUntil(t, conn, "error")
	assert.Equal(t, kindCancelled, ev.Kind)

	idle, _ := readUntil(t, conn, "state")
	assert.Equal(t, "idle", idle.State)
	assert.Equal(t, 0, listPhotos(t, env, "").Total)
}

func TestCaptureSession_RejectsBadRequests(t *testing.T) {
	env := setupTestEnv(t)
	id := env.createCamera(t, "Lobby", fakeCamera(t).URL)
	conn := dialCapture(t, env, id)

	require.NoError(t, conn.WriteJSON(captureMessage{Action: actionArm, Seconds: 0}))
	ev, _ := readUntil(t, conn, "error")
	assert.Equal(t, "validation", ev.Kind)
	assert.Equal(t, "idle", ev.State)

	require.NoError(t, conn.WriteJSON(captureMessage{Action: "zoom"}))
	ev, _ = readUntil(t, conn, "error")
	assert.Equal(t, "validation", ev.Kind)

	require.NoError(t, conn.WriteJSON(captureMessage{Action: actionArm, Seconds: 30}))
	readUntil(t, conn, "state")
	require.NoError(t, conn.WriteJSON(captureMessage{Action: actionArm, Seconds: 30}))
	ev, _ = readUntil(t, conn, "error")
	assert.Equal(t, kindBusy, ev.Kind)
	assert.Equal(t, "arming", ev.State)
}

func TestCaptureSession_UnknownCamera(t *testing.T) {
	env := setupTestEnv(t)
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/cameras/4242/capture"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		kind   string
		status int
	}{
		{apperror.Validation("op", "bad"), "validation", http.StatusBadRequest},
		{apperror.Storage("op", errors.New("s3 down")), "storage", http.StatusBadGateway},
		{fmt.Errorf("%w: timeout", frame.ErrUnavailable), kindUnavailable, http.StatusBadGateway},
		{capture.ErrBusy, kindBusy, http.StatusConflict},
		{fmt.Errorf("%w: %w", capture.ErrCancelled, errors.New("ctx")), kindCancelled, http.StatusConflict},
		{capture.ErrClosed, kindClosed, http.StatusGone},
		{errors.New("boom"), kindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		kind, status, msg := classify(tt.err)
		assert.Equal(t, tt.kind, kind, tt.err.Error())
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.NotEmpty(t, msg)
	}

	_, _, msg := classify(errors.New("secret dsn"))
	assert.Equal(t, "internal server error", msg)
}

// readClosed reads until the server closes the connection.
func readClosed(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	for {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var ev captureEvent
		if err := conn.ReadJSON(&ev); err != nil {
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				t.Fatal("session was not closed")
			}
			return
		}
	}
}

func TestCaptureSessions_CloseAllSuppressesArmedFire(t *testing.T) {
	env := setupTestEnv(t)
	id := env.createCamera(t, "Lobby", fakeCamera(t).URL)
	conn := dialCapture(t, env, id)

	require.NoError(t, conn.WriteJSON(captureMessage{Action: actionArm, Seconds: 1}))
	first, _ := readUntil(t, conn, "state")
	assert.Equal(t, "arming", first.State)
	assert.Equal(t, 1, env.sessions.Len())

	env.sessions.CloseAll()
	readClosed(t, conn)

	require.Eventually(t, func() bool { return env.sessions.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, 0, listPhotos(t, env, "").Total)

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/cameras/" + id + "/capture"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestCaptureConn_FirstWriteFailureEndsSession(t *testing.T) {
	serverConns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- c
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()

	server := <-serverConns
	var failures []error
	conn := &captureConn{conn: server, onFail: func(err error) { failures = append(failures, err) }}

	require.NoError(t, conn.send(captureEvent{Type: "state", State: "idle"}))

	server.Close()
	err = conn.send(captureEvent{Type: "tick", State: "arming", Remaining: 3})
	require.Error(t, err)
	assert.ErrorIs(t, conn.send(captureEvent{Type: "tick", State: "arming", Remaining: 2}), err)
	assert.Len(t, failures, 1, "onFail runs once for the first failed write")
}

func TestCaptureSessions_NilIsInert(t *testing.T) {
	var s *CaptureSessions
	assert.False(t, s.Closed())
	assert.Equal(t, 0, s.Len())
	s.CloseAll()
}
