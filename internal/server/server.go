package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lazypower/echocloset/internal/engine"
	"github.com/lazypower/echocloset/internal/gate"
	"github.com/lazypower/echocloset/internal/metrics"
)

// declined is the only failure detail clients ever see for core errors.
const declined = "request declined"

// Options configure a Server.
type Options struct {
	Version       string
	ConfirmWindow time.Duration
}

// Server is the echocloset HTTP API server.
type Server struct {
	eng     *engine.Engine
	gate    *gate.Gate
	confirm *confirmations
	router  chi.Router
	clock   clockwork.Clock
	version string
	started time.Time
}

// New creates a Server over eng. Every /api route except health and the
// ghost toggle is refused while g says the journal is not listening.
func New(eng *engine.Engine, g *gate.Gate, clock clockwork.Clock, opts Options) *Server {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if opts.ConfirmWindow <= 0 {
		opts.ConfirmWindow = 30 * time.Second
	}
	s := &Server{
		eng:     eng,
		gate:    g,
		confirm: newConfirmations(clock, opts.ConfirmWindow),
		clock:   clock,
		version: opts.Version,
		started: clock.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/ghost", s.handleToggleGhost)

		r.Group(func(r chi.Router) {
			r.Use(s.gated)

			r.Post("/echoes", s.handleCreateEcho)
			r.Post("/hoards", s.handleCreateHoard)
			r.Get("/hoards", s.handleListHoards)
			r.Get("/entries", s.handleListRecent)
			r.Get("/entries/{id}", s.handleGetEntry)
			r.Get("/analyze", s.handleAnalyze)
			r.Post("/wipe", s.handleWipeRequest)
			r.Post("/wipe/confirm", s.handleWipeConfirm)
			r.Post("/scan", s.handleScan)
		})
	})

	s.router = r
}

// gated refuses requests outside the ghost-mode window.
func (s *Server) gated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.gate != nil && !s.gate.Allowed() {
			metrics.GateDeclines.Inc()
			writeJSON(w, http.StatusForbidden, map[string]string{"error": gate.DeclineMessage})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ghost := false
	if s.gate != nil {
		ghost = s.gate.Enabled()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  s.clock.Since(s.started).Seconds(),
		"entries": s.eng.Store.Len(),
		"store":   s.eng.Store.Location(),
		"ghost":   ghost,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "error", err)
	}
}

// fail logs err and answers with a generic decline.
func fail(w http.ResponseWriter, command string, err error) {
	metrics.Requests.WithLabelValues(command, "error").Inc()
	slog.Error("command failed", "command", command, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": declined})
}

func notFound(w http.ResponseWriter, command string) {
	metrics.Requests.WithLabelValues(command, "not_found").Inc()
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such entry"})
}

func badRequest(w http.ResponseWriter, command, reason string) {
	metrics.Requests.WithLabelValues(command, "invalid").Inc()
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": reason})
}

func ok(w http.ResponseWriter, command string, status int, v any) {
	metrics.Requests.WithLabelValues(command, "ok").Inc()
	writeJSON(w, status, v)
}
