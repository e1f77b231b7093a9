package route

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"camvault/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMedia_ServesBlobsButNotDirectories(t *testing.T) {
	dir := t.TempDir()
	folder := filepath.Join(dir, "camvault", "snapshots")
	require.NoError(t, os.MkdirAll(folder, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "a.jpg"), []byte("jpeg"), 0644))

	srv := httptest.NewServer(SetupRoutes(Dependencies{Logger: logger.Nop(), MediaDir: dir}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/media/camvault/snapshots/a.jpg")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "jpeg", string(body))

	for _, path := range []string{"/media/", "/media/camvault/", "/media/camvault/snapshots/", "/media/camvault/snapshots"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err, path)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.NotContains(t, string(body), "a.jpg", path)
	}
}

func TestMedia_NotMountedWithoutDirectory(t *testing.T) {
	srv := httptest.NewServer(SetupRoutes(Dependencies{Logger: logger.Nop()}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/media/a.jpg")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
