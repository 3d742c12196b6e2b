package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, body string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestChangeDetector(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	touch(t, filepath.Join(dir, "content", "a.md"), "a", base)
	config := filepath.Join(dir, "config.yaml")
	touch(t, config, "", base)

	d := NewChangeDetector(filepath.Join(dir, "content"), config, filepath.Join(dir, "missing"))

	changed, err := d.Changed()
	require.NoError(t, err)
	assert.False(t, changed, "first scan only primes")

	changed, err = d.Changed()
	require.NoError(t, err)
	assert.False(t, changed)

	touch(t, filepath.Join(dir, "content", "a.md"), "b", base.Add(time.Minute))
	changed, err = d.Changed()
	require.NoError(t, err)
	assert.True(t, changed)

	touch(t, filepath.Join(dir, "content", "sub", "b.md"), "", time.Unix(0, 0))
	changed, err = d.Changed()
	require.NoError(t, err)
	assert.True(t, changed, "a new file with a zero mtime still counts")

	require.NoError(t, os.Remove(config))
	changed, err = d.Changed()
	require.NoError(t, err)
	assert.True(t, changed)
}

func newTestServer(t *testing.T) (*Server, string, *int) {
	t.Helper()
	dir := t.TempDir()
	out := filepath.Join(dir, "output")
	src := filepath.Join(dir, "content")
	touch(t, filepath.Join(out, "index.html"), "<html><body><p>hi</p></body></html>", time.Now())
	touch(t, filepath.Join(out, "style.css"), "body {}", time.Now())
	touch(t, filepath.Join(src, "index.md"), "hi", time.Now())

	builds := 0
	log, _ := test.NewNullLogger()
	s := New(Options{
		OutputDir: out,
		Watch:     []string{src},
		Build:     func() error { builds++; return nil },
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "metrics")
		}),
		Log: log,
	})
	_, err := s.detector.Changed()
	require.NoError(t, err)
	return s, src, &builds
}

func TestHandlerInjectsLiveReload(t *testing.T) {
	s, _, _ := newTestServer(t)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<p>hi</p>")
	assert.Contains(t, rec.Body.String(), `new WebSocket("ws://"`)
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/style.css", nil))
	assert.Equal(t, "body {}", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing.html", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "WebSocket")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "metrics", rec.Body.String())
}

func TestRebuildOnlyOnChange(t *testing.T) {
	s, src, builds := newTestServer(t)

	assert.False(t, s.Rebuild())
	assert.Zero(t, *builds)

	touch(t, filepath.Join(src, "new.md"), "new", time.Now())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, 1, *builds, "page requests rebuild changed sources")

	assert.False(t, s.Rebuild())
	assert.Equal(t, 1, *builds)
}

func TestLiveReloadBroadcast(t *testing.T) {
	s, src, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	touch(t, filepath.Join(src, "index.md"), "changed", time.Now().Add(time.Hour))
	require.True(t, s.Rebuild())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "reload", string(msg))
}
