// Package server exposes the reduction over HTTP.
//
// Routes:
//
//	POST /v1/reduce          GraphML body → JSON reduction
//	POST /v1/reduce/matrix   GraphML body → matrix file text
//	POST /v1/reduce/palette  GraphML body → palette file text
//	POST /v1/render/dot      GraphML body → quotient graph DOT text
//	GET  /healthz
//	GET  /version
//	GET  /metrics            when a metrics handler is set
//
// Errors are JSON objects {"code": ..., "message": ...}.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/eqgraph/pkg/buildinfo"
	"github.com/matzehuels/eqgraph/pkg/errors"
	"github.com/matzehuels/eqgraph/pkg/matrix"
	"github.com/matzehuels/eqgraph/pkg/observability"
	"github.com/matzehuels/eqgraph/pkg/palette"
	"github.com/matzehuels/eqgraph/pkg/pipeline"
	"github.com/matzehuels/eqgraph/pkg/reduce"
	"github.com/matzehuels/eqgraph/pkg/render/dot"
)

// MaxBodyBytes caps the size of an uploaded GraphML document.
const MaxBodyBytes = 32 << 20

// Pinger is implemented by caches that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves the HTTP API. It is safe for concurrent use.
type Server struct {
	Runner *pipeline.Runner
	Logger *log.Logger
	// TTL is passed to every reduction; zero means pipeline.DefaultTTL.
	TTL time.Duration
	// Metrics, if set, is mounted at GET /metrics.
	Metrics http.Handler
}

// New creates a server backed by runner.
func New(runner *pipeline.Runner, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{Runner: runner, Logger: logger}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/reduce", s.handleReduce)
		r.Post("/reduce/matrix", s.handleMatrix)
		r.Post("/reduce/palette", s.handlePalette)
		r.Post("/render/dot", s.handleDOT)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.Logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.Logger.Info("server stopped")
	return nil
}

// ReduceResponse is the body of POST /v1/reduce.
type ReduceResponse struct {
	RunID   string             `json:"run_id"`
	Cached  bool               `json:"cached"`
	Classes []reduce.WireClass `json:"classes"`
	Matrix  [][]int            `json:"matrix"`
	Palette map[string]string  `json:"palette"`
	Stats   reduce.Stats       `json:"stats"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Subject string `json:"subject,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.Runner.Cache.(Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "cache": err.Error()})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, buildinfo.Get())
}

func (s *Server) handleReduce(w http.ResponseWriter, r *http.Request) {
	res, ok := s.reduce(w, r)
	if !ok {
		return
	}
	wire := res.Reduction.ToWire()
	resp := ReduceResponse{
		RunID:   res.RunID,
		Cached:  res.Cached,
		Classes: wire.Classes,
		Matrix:  wire.Matrix,
		Palette: make(map[string]string, len(wire.Classes)),
		Stats:   res.Reduction.Stats(),
	}
	for _, c := range wire.Classes {
		resp.Palette[fmt.Sprint(c.Index)] = c.Color
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMatrix(w http.ResponseWriter, r *http.Request) {
	res, ok := s.reduce(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := matrix.Write(&buf, res.Reduction.Matrix); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeText(w, res.RunID, buf.Bytes())
}

func (s *Server) handlePalette(w http.ResponseWriter, r *http.Request) {
	res, ok := s.reduce(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := palette.Write(&buf, res.Reduction.Palette); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeText(w, res.RunID, buf.Bytes())
}

func (s *Server) handleDOT(w http.ResponseWriter, r *http.Request) {
	res, ok := s.reduce(w, r)
	if !ok {
		return
	}
	opts := dot.Options{
		Members: r.URL.Query().Get("members") == "true",
		Layout:  r.URL.Query().Get("layout"),
	}
	s.writeText(w, res.RunID, []byte(dot.ToDOT(res.Reduction, opts)))
}

// reduce runs the pipeline on the request body. On failure it writes the
// error reply and returns false.
func (s *Server) reduce(w http.ResponseWriter, r *http.Request) (*pipeline.Result, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "read request body"))
		return nil, false
	}
	if len(body) == 0 {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "empty request body"))
		return nil, false
	}

	res, err := s.Runner.Reduce(r.Context(), pipeline.Options{
		Data:    body,
		Refresh: r.URL.Query().Get("refresh") == "true",
		TTL:     s.TTL,
		Logger:  s.Logger.With("request", middleware.GetReqID(r.Context())),
	})
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return res, true
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeLoad, errors.ErrCodeFormat, errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case errors.ErrCodeReference:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	code := string(errors.GetCode(err))
	msg := errors.UserMessage(err)
	if status == http.StatusInternalServerError {
		s.Logger.Error("request failed", "err", err)
		code = string(errors.ErrCodeInternal)
		msg = "internal error"
	}
	s.writeJSON(w, status, ErrorResponse{Code: code, Message: msg, Subject: errors.GetSubject(err)})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Warn("encode response", "err", err)
	}
}

func (s *Server) writeText(w http.ResponseWriter, runID string, data []byte) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Run-ID", runID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		observability.Server().OnResponse(r.Context(), r.Method, route, ww.Status(), time.Since(start))
		s.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Microsecond),
			"request", middleware.GetReqID(r.Context()))
	})
}
