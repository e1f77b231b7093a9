package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"camvault/internal/frame"
	"camvault/internal/logger"
	"camvault/internal/objectstore"
	"camvault/internal/repository/sqlite"
	"camvault/internal/service/camera"
	"camvault/internal/service/snapshot"

	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server   *httptest.Server
	db       *sqlite.DB
	objects  *objectstore.Filesystem
	registry *camera.Registry
	pipeline *snapshot.Pipeline
	sessions *CaptureSessions
	log      *logger.Logger
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Kind    string          `json:"kind"`
}

// setupTestEnv wires the handlers against a temp SQLite database and media directory.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "camvault-handler-test-*")
	require.NoError(t, err)

	db, err := sqlite.New(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)

	objects, err := objectstore.NewFilesystem(filepath.Join(tmpDir, "media"), "http://localhost/media")
	require.NoError(t, err)

	log := logger.Nop()
	env := &testEnv{
		db:       db,
		objects:  objects,
		registry: camera.NewRegistry(db.Cameras(), log, nil),
		pipeline: snapshot.NewPipeline(db.Photos(), objects, log, nil, snapshot.WithMaxBytes(64<<10)),
		sessions: NewCaptureSessions(),
		log:      log,
	}
	frames := frame.NewGrabber(2*time.Second, 0)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", HealthHandler(db, objects, log))
	mux.HandleFunc("GET /api/cameras", ListCamerasHandler(env.registry, log))
	mux.HandleFunc("POST /api/cameras", CreateCameraHandler(env.registry, log))
	mux.HandleFunc("GET /api/cameras/{id}", GetCameraHandler(env.registry, log))
	mux.HandleFunc("PATCH /api/cameras/{id}", UpdateCameraHandler(env.registry, log))
	mux.HandleFunc("DELETE /api/cameras/{id}", DeleteCameraHandler(env.registry, log))
	mux.HandleFunc("POST /api/cameras/{id}/snapshot", SnapshotHandler(env.registry, frames, env.pipeline, log))
	mux.HandleFunc("GET /api/cameras/{id}/capture", CaptureSessionHandler(env.registry, frames, env.pipeline, env.sessions, log, nil))
	mux.HandleFunc("POST /api/photos", UploadPhotoHandler(env.pipeline, log))
	mux.HandleFunc("GET /api/photos", ListPhotosHandler(env.pipeline, log))
	mux.HandleFunc("GET /api/photos/{id}", GetPhotoHandler(env.pipeline, log))
	mux.HandleFunc("DELETE /api/photos/{id}", DeletePhotoHandler(env.pipeline, log))

	env.server = httptest.NewServer(mux)

	t.Cleanup(func() {
		env.server.Close()
		db.Close()
		os.RemoveAll(tmpDir)
	})
	return env
}

// fakeCamera serves one JPEG per request.
func fakeCamera(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(jpegBytes(2048))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// jpegBytes returns a buffer that sniffs as JPEG.
func jpegBytes(size int) []byte {
	data := make([]byte, size)
	copy(data, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	return data
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte, contentType string) (*http.Response, apiResponse) {
	t.Helper()

	req, err := http.NewRequest(method, e.server.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func (e *testEnv) doJSON(t *testing.T, method, path string, payload interface{}) (*http.Response, apiResponse) {
	t.Helper()
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		require.NoError(t, err)
	}
	return e.do(t, method, path, body, "application/json")
}

func (e *testEnv) createCamera(t *testing.T, name, url string) string {
	t.Helper()
	resp, out := e.doJSON(t, http.MethodPost, "/api/cameras", map[string]string{"name": name, "url": url})
	require.Equal(t, http.StatusCreated, resp.StatusCode, out.Error)

	var cam struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &cam))
	require.NotEmpty(t, cam.ID)
	return cam.ID
}

// uploadForm builds a multipart ingest body. A nil image omits the part.
func uploadForm(t *testing.T, fields map[string]string, image []byte) ([]byte, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="snapshot.jpg"`)
		h.Set("Content-Type", "image/jpeg")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func newServer(t *testing.T, h http.Handler) string {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}
