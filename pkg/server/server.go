// Package server exposes the diagram engine over HTTP.
//
// Every request is self-contained: the caller sends the current source text
// (or shape list) and gets the transformed result back. Requests that
// produce a new diagram state are recorded in the configured history store.
//
// # Routes
//
//	GET    /health
//	POST   /render
//	POST   /orientation
//	POST   /shapes/inject
//	POST   /patch
//	POST   /normalize
//	POST   /convert
//	POST   /generate
//	POST   /export/{format}
//	GET    /history
//	GET    /history/{id}
//	DELETE /history/{id}
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/diagramsync/pkg/errors"
	"github.com/matzehuels/diagramsync/pkg/generate"
	"github.com/matzehuels/diagramsync/pkg/history"
	"github.com/matzehuels/diagramsync/pkg/render"
)

const (
	maxBodyBytes   = 1 << 20
	requestTimeout = 60 * time.Second
)

// Server routes HTTP requests to the engine.
type Server struct {
	renderer  render.Renderer
	store     history.Store
	generator generate.Client
	logger    *log.Logger
	theme     string
	now       func() time.Time
	router    chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithHistory records new diagram states in store.
func WithHistory(store history.Store) Option {
	return func(s *Server) { s.store = store }
}

// WithGenerator enables POST /generate.
func WithGenerator(c generate.Client) Option {
	return func(s *Server) { s.generator = c }
}

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTheme sets the theme used when a request names none.
func WithTheme(theme string) Option {
	return func(s *Server) { s.theme = theme }
}

// WithClock overrides the time source for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a server around renderer.
func New(renderer render.Renderer, opts ...Option) *Server {
	s := &Server{
		renderer: renderer,
		logger:   log.NewWithOptions(io.Discard, log.Options{}),
		theme:    render.ThemeLight,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", s.handleHealth)
	r.Post("/render", s.handleRender)
	r.Post("/orientation", s.handleOrientation)
	r.Post("/shapes/inject", s.handleInject)
	r.Post("/patch", s.handlePatch)
	r.Post("/normalize", s.handleNormalize)
	r.Post("/convert", s.handleConvert)
	r.Post("/generate", s.handleGenerate)
	r.Post("/export/{format}", s.handleExport)

	r.Route("/history", func(r chi.Router) {
		r.Get("/", s.handleHistoryList)
		r.Get("/{id}", s.handleHistoryGet)
		r.Delete("/{id}", s.handleHistoryDelete)
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// =============================================================================
// Response helpers
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Code  errors.Code `json:"code"`
	Error string      `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, statusFor(code), errorResponse{Code: code, Error: errors.UserMessage(err)})
}

func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidSchema, errors.ErrCodeInvalidTheme,
		errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidLabel, errors.ErrCodeInvalidShape:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeRender, errors.ErrCodeConversion:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeBusy:
		return http.StatusConflict
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid JSON body")
	}
	return nil
}
