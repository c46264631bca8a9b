// Package http exposes clone and sync operations over a JSON HTTP API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/fwojciec/contentsync"
	"github.com/fwojciec/contentsync/clone"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ShutdownTimeout is the time given for outstanding requests to finish
// before shutdown.
const ShutdownTimeout = 5 * time.Second

// Server serves the contentsync HTTP API.
type Server struct {
	ln     net.Listener
	server *http.Server
	router chi.Router

	// Addr is the bind address, such as ":8080".
	Addr string

	// Services used by the handlers.
	Cloner *clone.Cloner
	Store  contentsync.ContentStore
	Schema *contentsync.Schema

	// Progress receives events from clone and sync requests. Optional.
	Progress clone.ProgressFunc

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	Logger *slog.Logger
}

// NewServer returns a new Server with its routes registered.
func NewServer() *Server {
	s := &Server{
		server: &http.Server{ReadHeaderTimeout: 10 * time.Second},
		router: chi.NewRouter(),
		Logger: slog.New(slog.DiscardHandler),
	}
	s.server.Handler = s

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/metrics", s.handleMetrics)
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/clone", s.handleClone)
		r.Post("/sync", s.handleSync)
		r.Get("/contents/{id}", s.handleContent)
		r.Get("/contents/{id}/fragments", s.handleFragments)
	})
	return s
}

// ServeHTTP dispatches to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Open binds Addr and serves requests in a separate goroutine.
func (s *Server) Open() (err error) {
	if s.ln, err = net.Listen("tcp", s.Addr); err != nil {
		return err
	}
	go func() {
		if err := s.server.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error("http server stopped", "err", err)
		}
	}()
	return nil
}

// URL returns the base URL of a running server.
func (s *Server) URL() string {
	if s.ln == nil {
		return ""
	}
	return "http://" + s.ln.Addr().String()
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Error writes err as a JSON error response. Internal errors are logged and
// their details hidden from the client.
func (s *Server) Error(w http.ResponseWriter, r *http.Request, err error) {
	code, message := contentsync.ErrorCode(err), contentsync.ErrorMessage(err)
	if code == contentsync.EINTERNAL {
		s.Logger.Error("http error", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, ErrorStatusCode(code), &errorResponse{Error: message})
}

type errorResponse struct {
	Error string `json:"error"`
}

var codes = map[string]int{
	contentsync.ECONFLICT:       http.StatusConflict,
	contentsync.EINVALID:        http.StatusBadRequest,
	contentsync.ENOTFOUND:       http.StatusNotFound,
	contentsync.ENOTIMPLEMENTED: http.StatusNotImplemented,
	contentsync.EUNAUTHORIZED:   http.StatusUnauthorized,
	contentsync.EINTERNAL:       http.StatusInternalServerError,
}

// ErrorStatusCode returns the HTTP status for an error code.
func ErrorStatusCode(code string) int {
	if v, ok := codes[code]; ok {
		return v
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return contentsync.Errorf(contentsync.EINVALID, "invalid JSON body: %v", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.Metrics == nil {
		s.Error(w, r, contentsync.Errorf(contentsync.ENOTFOUND, "metrics not enabled"))
		return
	}
	s.Metrics.ServeHTTP(w, r)
}
