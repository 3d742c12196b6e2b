// internal/server/server.go

// Package server is the development server: it serves the output
// directory, rebuilds the site when its sources change and tells open
// browser tabs to reload.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const debounceDuration = 500 * time.Millisecond

// Options configure a Server.
type Options struct {
	Address   string
	Port      int
	OutputDir string
	// Watch lists the directories and files whose changes trigger a rebuild.
	Watch []string
	// Build runs one full build.
	Build func() error
	// Metrics, when set, is served at /metrics.
	Metrics http.Handler
	Log     logrus.FieldLogger
}

// Server serves a built site and rebuilds it on change.
type Server struct {
	opts     Options
	hub      *Hub
	detector *ChangeDetector
	log      logrus.FieldLogger

	mu sync.Mutex
}

func New(opts Options) *Server {
	return &Server{
		opts:     opts,
		hub:      newHub(opts.Log),
		detector: NewChangeDetector(opts.Watch...),
		log:      opts.Log,
	}
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.opts.Address, strconv.Itoa(s.opts.Port))
}

// Run builds the site, then serves it until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if err := s.opts.Build(); err != nil {
		return fmt.Errorf("initial build failed: %w", err)
	}
	if _, err := s.detector.Changed(); err != nil {
		return fmt.Errorf("scanning watched paths: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create file watcher: %w", err)
	}
	defer watcher.Close()
	if err := s.watch(watcher); err != nil {
		return err
	}
	go s.watchForChanges(ctx, watcher)

	srv := &http.Server{Addr: s.Addr(), Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Infof("serving %s on http://%s (Ctrl+C to stop)", s.opts.OutputDir, srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// watch adds every watched directory, and the parent of every watched
// file, to the watcher. Editors that save by renaming replace the file, so
// files are watched through their directory.
func (s *Server) watch(watcher *fsnotify.Watcher) error {
	watched := make(map[string]bool)
	add := func(dir string) {
		dir = filepath.Clean(dir)
		if watched[dir] {
			return
		}
		if err := watcher.Add(dir); err != nil {
			s.log.WithError(err).Warnf("could not watch %s", dir)
			return
		}
		s.log.Debugf("watching %s", dir)
		watched[dir] = true
	}

	for _, path := range s.opts.Watch {
		info, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("could not stat path %s: %w", path, err)
		}
		if !info.IsDir() {
			add(filepath.Dir(path))
			continue
		}
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				add(p)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", path, err)
		}
	}
	return nil
}

func (s *Server) watchForChanges(ctx context.Context, watcher *fsnotify.Watcher) {
	var lastBuild time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if time.Since(lastBuild) < debounceDuration {
				continue
			}
			time.Sleep(100 * time.Millisecond)
			s.log.Debugf("change detected in %s", event.Name)
			s.Rebuild()
			lastBuild = time.Now()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.WithError(err).Warn("watcher error")
		}
	}
}

// Rebuild runs a build when the watched paths changed since the last
// check, and tells clients to reload when it succeeds. Rebuilds never
// overlap. It reports whether a build ran.
func (s *Server) Rebuild() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := s.detector.Changed()
	if err != nil {
		s.log.WithError(err).Error("could not scan watched paths")
		return false
	}
	if !changed {
		return false
	}
	s.log.Info("sources changed, rebuilding")
	if err := s.opts.Build(); err != nil {
		s.log.WithError(err).Error("rebuild failed")
		return true
	}
	s.hub.broadcast([]byte("reload"))
	return true
}

// Handler serves the output directory with live reload, the websocket the
// reload script connects to, and metrics when configured. Page requests
// check for changes first, so a browser refresh picks up edits even when
// file events are missed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.hub.serveWs)
	if s.opts.Metrics != nil {
		mux.Handle("/metrics", s.opts.Metrics)
	}
	files := http.FileServer(http.Dir(s.opts.OutputDir))
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPage(r.URL.Path) {
			s.Rebuild()
		}
		liveReloadWrapper(files).ServeHTTP(w, r)
	}))
	return mux
}

func isPage(path string) bool {
	return strings.HasSuffix(path, ".html") || strings.HasSuffix(path, "/")
}

func liveReloadWrapper(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		if !isPage(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		iw := newInterceptingWriter()
		next.ServeHTTP(iw, r)
		for key, values := range iw.Header() {
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}

		body := iw.body.Bytes()
		if iw.statusCode == http.StatusOK {
			body = bytes.Replace(body, []byte("</body>"), []byte(liveReloadScript+"</body>"), 1)
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(iw.statusCode)
		_, _ = w.Write(body)
	})
}

// interceptingWriter buffers a response so the reload script can be
// injected before it is sent.
type interceptingWriter struct {
	body       *bytes.Buffer
	statusCode int
	header     http.Header
}

func newInterceptingWriter() *interceptingWriter {
	return &interceptingWriter{
		body:       new(bytes.Buffer),
		header:     make(http.Header),
		statusCode: http.StatusOK,
	}
}

func (iw *interceptingWriter) Header() http.Header { return iw.header }

func (iw *interceptingWriter) Write(b []byte) (int, error) { return iw.body.Write(b) }

func (iw *interceptingWriter) WriteHeader(statusCode int) { iw.statusCode = statusCode }

const liveReloadScript = `
<script>
  (function() {
    let socket = new WebSocket("ws://" + window.location.host + "/ws");
    socket.onmessage = function(event) {
      if (event.data === "reload") {
        window.location.reload();
      }
    };
    socket.onerror = function() {
      console.error("Live reload connection error. Please restart 'skillet serve'.");
    };
  })();
</script>
`
