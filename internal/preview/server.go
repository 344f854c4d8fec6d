// Package preview serves generated artifacts over HTTP and regenerates them
// when the design script or config changes.
package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/preview/notifier"
)

// DebounceInterval is how long the watcher waits for more changes before
// regenerating.
const DebounceInterval = 100 * time.Millisecond

// RebuildFunc regenerates the artifacts in the served directory.
type RebuildFunc func(ctx context.Context) error

// Config holds configuration for the preview server.
type Config struct {
	// Dir is the artifact directory.
	Dir  string
	Host string
	Port int
	// Watch lists files whose changes trigger Rebuild.
	Watch   []string
	Rebuild RebuildFunc
	Logger  *slog.Logger
}

// Server is the preview server.
type Server struct {
	dir      string
	addr     string
	watch    []string
	rebuild  RebuildFunc
	logger   *slog.Logger
	notifier *notifier.Notifier

	// pending holds at most one queued rebuild; buildMu keeps rebuilds from
	// overlapping, since they all write the same files.
	pending chan string
	buildMu sync.Mutex

	mu         sync.Mutex
	generation int
	lastErr    error
}

// NewServer creates a preview server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	return &Server{
		dir:      cfg.Dir,
		addr:     net.JoinHostPort(host, strconv.Itoa(cfg.Port)),
		watch:    cfg.Watch,
		rebuild:  cfg.Rebuild,
		logger:   logger,
		notifier: notifier.New(),
		pending:  make(chan string, 1),
	}
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		requestLogger(s.logger),
	)
	h := &handlers{dir: s.dir, server: s}
	r.Get("/", h.index)
	r.Get("/api/artifacts", h.artifacts)
	r.Get("/api/report/{name}", h.report)
	r.Get("/events", h.events)
	r.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(s.dir))))
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting preview server", "addr", "http://"+ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if len(s.watch) > 0 && s.rebuild != nil {
		eg.Go(func() error {
			return s.watchFiles(egctx)
		})
		eg.Go(func() error {
			s.rebuildLoop(egctx)
			return nil
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down preview server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Status returns how many rebuilds ran and the error of the last one.
func (s *Server) Status() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation, s.lastErr
}

// Regenerate runs the rebuild and tells every client to reload. Concurrent
// calls run one after another.
func (s *Server) Regenerate(ctx context.Context) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	var err error
	if s.rebuild != nil {
		err = s.rebuild(ctx)
	}

	s.mu.Lock()
	s.generation++
	s.lastErr = err
	gen := s.generation
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("rebuild failed", "error", err)
		s.notifier.Broadcast(notifier.Event{Name: "error", Data: err.Error()})
		return err
	}
	s.logger.Info("artifacts regenerated", "generation", gen)
	s.notifier.Broadcast(notifier.Event{Name: "reload", Data: strconv.Itoa(gen)})
	return nil
}

// watchFiles watches the parent directories of the watched files, since
// editors often replace a file instead of writing it.
func (s *Server) watchFiles(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	targets := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, f := range s.watch {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			s.logger.Error("failed to watch directory", "dir", dir, "error", err)
		}
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !targets[abs] {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(DebounceInterval, func() {
				s.requestRebuild(name)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// requestRebuild queues a rebuild. A request made while one is already
// queued is merged into it.
func (s *Server) requestRebuild(file string) {
	select {
	case s.pending <- file:
	default:
		s.logger.Debug("rebuild already queued", "file", file)
	}
}

// rebuildLoop runs queued rebuilds one at a time until ctx is done.
func (s *Server) rebuildLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case file := <-s.pending:
			if ctx.Err() != nil {
				return
			}
			s.logger.Debug("file changed, regenerating", "file", file)
			_ = s.Regenerate(ctx)
		}
	}
}

// requestLogger logs each request through slog at debug level.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}
