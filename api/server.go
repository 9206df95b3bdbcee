// Package api exposes one session.Editor over HTTP. Requests are serialized
// so the editor is only ever touched by one goroutine at a time.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wudi/redactkit/observability"
	"github.com/wudi/redactkit/session"
	"github.com/wudi/redactkit/settings"
)

// ErrOutsideRoot is returned for paths that escape the configured root.
var ErrOutsideRoot = errors.New("path outside root")

// Server routes HTTP requests to an editor.
type Server struct {
	mu       sync.Mutex
	editor   *session.Editor
	settings settings.Store
	root     string
	logger   observability.Logger
	router   chi.Router
}

type Option func(*Server)

// WithRoot confines document and export paths to dir. Relative paths are
// resolved against it.
func WithRoot(dir string) Option { return func(s *Server) { s.root = dir } }

// WithSettingsStore persists settings changed through the API.
func WithSettingsStore(store settings.Store) Option { return func(s *Server) { s.settings = store } }

func WithLogger(l observability.Logger) Option { return func(s *Server) { s.logger = l } }

func New(editor *session.Editor, opts ...Option) *Server {
	s := &Server{editor: editor}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = observability.OrNop(s.logger)
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	r.Group(func(r chi.Router) {
		r.Use(s.serialize)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)

		r.Route("/document", func(r chi.Router) {
			r.Post("/", s.handleOpen)
			r.Get("/", s.handleDocument)
			r.Delete("/", s.handleClose)
			r.Put("/current", s.handleGoTo)
			r.Post("/next", s.handleNext)
			r.Post("/previous", s.handlePrevious)
			r.Put("/zoom", s.handleZoom)
			r.Post("/undo", s.handleUndo)
			r.Post("/save", s.handleSave)
			r.Post("/export", s.handleExport)
			r.Delete("/rectangles", s.handleClearAll)

			r.Route("/pages/{page}", func(r chi.Router) {
				r.Get("/", s.handlePage)
				r.Get("/preview.png", s.handlePreview)
				r.Post("/rotate", s.handleRotate)
				r.Post("/crop", s.handleCrop)
				r.Post("/rectangles", s.handleAddRectangle)
				r.Delete("/rectangles", s.handleClearPage)
				r.Patch("/rectangles/{id}", s.handlePatchRectangle)
				r.Delete("/rectangles/{id}", s.handleDeleteRectangle)
			})
		})
	})
	return r
}

func (s *Server) serialize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			observability.String("method", r.Method),
			observability.String("path", r.URL.Path),
			observability.Int("status", ww.Status()),
			observability.Int("bytes", ww.BytesWritten()),
			observability.Duration("duration_ms", time.Since(start)),
			observability.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// resolve maps a client path into the root.
func (s *Server) resolve(path string) (string, error) {
	if path == "" {
		return "", errors.New("path required")
	}
	if s.root == "" {
		return filepath.Clean(path), nil
	}
	root, err := filepath.Abs(s.root)
	if err != nil {
		return "", err
	}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, full)
	}
	full = filepath.Clean(full)
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return full, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
