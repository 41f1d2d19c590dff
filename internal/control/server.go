// Package control serves the HTTP API for switching patterns and feeding
// supplier values.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/stripd/internal/catalog"
	"github.com/dokzlo13/stripd/internal/color"
	"github.com/dokzlo13/stripd/internal/config"
	"github.com/dokzlo13/stripd/internal/ledger"
	"github.com/dokzlo13/stripd/internal/metrics"
	"github.com/dokzlo13/stripd/internal/pattern"
	"github.com/dokzlo13/stripd/internal/scheduler"
	"github.com/dokzlo13/stripd/internal/state"
	"github.com/dokzlo13/stripd/internal/supplier"
)

const maxBodyBytes = 1 << 20

// Scheduler is the part of the pattern scheduler the API drives.
type Scheduler interface {
	SetPattern(p pattern.Pattern) error
	SetDefaultPattern(p pattern.Pattern) error
	Status() scheduler.Status
}

// Builder turns definitions into patterns.
type Builder interface {
	Build(def config.PatternConfig) (pattern.Pattern, error)
}

// DefaultStore persists the API-set default pattern.
type DefaultStore interface {
	Set(id string, value config.PatternConfig) error
}

// History lists recent ledger entries.
type History interface {
	Recent(limit int) ([]*ledger.Entry, error)
}

// Sources are the supplier slots fed through PUT /sources.
type Sources struct {
	Colors   map[string]*supplier.Value[color.Color]
	Headings map[string]*supplier.Value[float64]
}

// Deps groups what the server needs. Defaults and History may be nil.
type Deps struct {
	Scheduler Scheduler
	Builder   Builder
	Defaults  DefaultStore
	History   History
	Sources   Sources
}

// Server is the control HTTP server.
type Server struct {
	addr       string
	deps       Deps
	limiter    *rate.Limiter
	ready      atomic.Bool
	httpServer *http.Server
}

// NewServer creates a control server listening on host:port. Requests above
// rateLimitRPS are answered with 429.
func NewServer(host string, port int, rateLimitRPS float64, deps Deps) *Server {
	if rateLimitRPS <= 0 {
		rateLimitRPS = 20
	}
	return &Server{
		addr:    fmt.Sprintf("%s:%d", host, port),
		deps:    deps,
		limiter: rate.NewLimiter(rate.Limit(rateLimitRPS), max(1, int(rateLimitRPS))),
	}
}

// SetReady flips the /ready endpoint.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /pattern", s.route("pattern", s.handlePattern))
	mux.Handle("POST /default", s.route("default", s.handleDefault))
	mux.Handle("PUT /sources/colors/{name}", s.route("source_color", s.handleColor))
	mux.Handle("PUT /sources/headings/{name}", s.route("source_heading", s.handleHeading))
	mux.Handle("GET /status", s.route("status", s.handleStatus))
	mux.Handle("GET /history", s.route("history", s.handleHistory))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("Starting control server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Control server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// httpError carries a status code out of a handler.
type httpError struct {
	code int
	err  error
}

func (e *httpError) Error() string { return e.err.Error() }

func badRequest(err error) error { return &httpError{code: http.StatusBadRequest, err: err} }
func notFound(err error) error   { return &httpError{code: http.StatusNotFound, err: err} }

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// route applies rate limiting, error mapping and request metrics.
func (s *Server) route(name string, h handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			metrics.IncControlRequest(name, strconv.Itoa(rec.code))
		}()

		if !s.limiter.Allow() {
			writeJSON(rec, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}

		err := h(rec, r)
		if err == nil {
			return
		}

		var he *httpError
		code := http.StatusInternalServerError
		switch {
		case errors.As(err, &he):
			code = he.code
		case errors.Is(err, catalog.ErrInvalidDefinition):
			code = http.StatusBadRequest
		}

		log.Warn().Err(err).Str("route", name).Int("code", code).Msg("Control request failed")
		writeJSON(rec, code, map[string]string{"error": err.Error()})
	})
}

// errScriptNotAllowed rejects Lua over the API; scripts come from the config file.
var errScriptNotAllowed = errors.New("script patterns can only be defined in the config file")

// decodePattern reads a pattern definition that is safe to build from a request.
func decodePattern(r *http.Request) (config.PatternConfig, error) {
	def, err := decode[config.PatternConfig](r)
	if err != nil {
		return def, err
	}
	if catalog.RunsScript(def) {
		return def, badRequest(errScriptNotAllowed)
	}
	return def, nil
}

func (s *Server) handlePattern(w http.ResponseWriter, r *http.Request) error {
	def, err := decodePattern(r)
	if err != nil {
		return err
	}
	p, err := s.deps.Builder.Build(def)
	if err != nil {
		return err
	}
	if err := s.deps.Scheduler.SetPattern(p); err != nil {
		return badRequest(err)
	}

	log.Info().Str("pattern", p.Name()).Msg("Pattern set via control API")
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) handleDefault(w http.ResponseWriter, r *http.Request) error {
	def, err := decodePattern(r)
	if err != nil {
		return err
	}
	p, err := s.deps.Builder.Build(def)
	if err != nil {
		return err
	}
	if err := s.deps.Scheduler.SetDefaultPattern(p); err != nil {
		return badRequest(err)
	}

	if s.deps.Defaults != nil {
		if err := s.deps.Defaults.Set(state.IDDefaultPattern, def); err != nil {
			return fmt.Errorf("persist default pattern: %w", err)
		}
	}

	log.Info().Str("pattern", p.Name()).Msg("Default pattern set via control API")
	w.WriteHeader(http.StatusNoContent)
	return nil
}

type colorRequest struct {
	Color string `json:"color"`
}

func (s *Server) handleColor(w http.ResponseWriter, r *http.Request) error {
	name := r.PathValue("name")
	slot, ok := s.deps.Sources.Colors[name]
	if !ok {
		return notFound(fmt.Errorf("unknown color source %q", name))
	}

	req, err := decode[colorRequest](r)
	if err != nil {
		return err
	}
	c, err := color.Parse(req.Color)
	if err != nil {
		return badRequest(err)
	}

	slot.Set(c)
	log.Debug().Str("source", name).Str("color", c.String()).Msg("Color source updated")
	w.WriteHeader(http.StatusNoContent)
	return nil
}

type headingRequest struct {
	Heading *float64 `json:"heading"`
}

func (s *Server) handleHeading(w http.ResponseWriter, r *http.Request) error {
	name := r.PathValue("name")
	slot, ok := s.deps.Sources.Headings[name]
	if !ok {
		return notFound(fmt.Errorf("unknown heading source %q", name))
	}

	req, err := decode[headingRequest](r)
	if err != nil {
		return err
	}
	if req.Heading == nil {
		return badRequest(errors.New("heading is required"))
	}

	slot.Set(*req.Heading)
	log.Debug().Str("source", name).Float64("heading", *req.Heading).Msg("Heading source updated")
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) error {
	writeJSON(w, http.StatusOK, s.deps.Scheduler.Status())
	return nil
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) error {
	if s.deps.History == nil {
		return notFound(errors.New("history is not available"))
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return badRequest(fmt.Errorf("invalid limit %q", v))
		}
		limit = min(n, 1000)
	}

	entries, err := s.deps.History.Recent(limit)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, entries)
	return nil
}

func decode[T any](r *http.Request) (T, error) {
	var v T
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return v, badRequest(fmt.Errorf("read body: %w", err))
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return v, badRequest(fmt.Errorf("decode body: %w", err))
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}
