// Package http exposes the transpiler and an automation store over a JSON REST API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/cafe"
	"github.com/aretw0/cafe/pkg/adapters/memory"
	"github.com/aretw0/cafe/pkg/automation"
	"github.com/aretw0/cafe/pkg/domain"
	"github.com/aretw0/cafe/pkg/observability"
	"github.com/aretw0/cafe/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Server holds the handlers' dependencies.
type Server struct {
	Transpiler *cafe.Transpiler
	Store      ports.AutomationStore
	Locker     ports.DistributedLocker
	Streams    *StreamManager

	logger   *slog.Logger
	lockTTL  time.Duration
	lockWait time.Duration
}

type config struct {
	logger     *slog.Logger
	locker     ports.DistributedLocker
	registry   *prometheus.Registry
	lockTTL    time.Duration
	lockWait   time.Duration
	transpiler []cafe.Option
}

// Option configures NewHandler.
type Option func(*config)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithLocker guards writes to one automation id (default: in-process locker).
func WithLocker(locker ports.DistributedLocker) Option {
	return func(c *config) { c.locker = locker }
}

// WithLockTTL sets how long a write may hold its automation lock.
func WithLockTTL(ttl time.Duration) Option {
	return func(c *config) { c.lockTTL = ttl }
}

// WithLockWait sets how long a write waits for a busy automation before
// answering 409 Conflict.
func WithLockWait(wait time.Duration) Option {
	return func(c *config) { c.lockWait = wait }
}

// WithRegistry serves metrics from reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(c *config) { c.registry = reg }
}

// WithTranspilerOptions configures the transpiler behind the API.
// Lifecycle hooks given here still fire, after metrics and events.
func WithTranspilerOptions(opts ...cafe.Option) Option {
	return func(c *config) { c.transpiler = append(c.transpiler, opts...) }
}

// NewHandler builds the API router. A nil store keeps automations in memory.
func NewHandler(store ports.AutomationStore, opts ...Option) (http.Handler, error) {
	cfg := &config{lockTTL: 10 * time.Second, lockWait: 2 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.locker == nil {
		cfg.locker = memory.NewLocker()
	}
	if cfg.registry == nil {
		cfg.registry = prometheus.NewRegistry()
	}
	if store == nil {
		store = memory.NewStore()
	}

	doc, err := LoadSpec()
	if err != nil {
		return nil, err
	}
	validate, err := requestValidator(doc)
	if err != nil {
		return nil, err
	}

	streams := NewStreamManager(cfg.logger)
	metrics := observability.NewMetrics(cfg.registry)

	// The caller's hooks run after metrics and events.
	userHooks := cafe.New(cfg.transpiler...).Hooks()
	hooks := observability.Chain(metrics.Hooks(), streams.Hooks(), userHooks)
	tOpts := append(append([]cafe.Option{}, cfg.transpiler...), cafe.WithLifecycleHooks(hooks))

	s := &Server{
		Transpiler: cafe.New(tOpts...),
		Store:      store,
		Locker:     cfg.locker,
		Streams:    streams,
		logger:     cfg.logger,
		lockTTL:    cfg.lockTTL,
		lockWait:   cfg.lockWait,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	r.Handle("/metrics", promhttp.HandlerFor(cfg.registry, promhttp.HandlerOpts{}))
	r.Get("/events", s.SubscribeEvents)

	r.Group(func(r chi.Router) {
		r.Use(validate)
		r.Get("/health", s.GetHealth)
		r.Get("/info", s.GetInfo(doc.Info.Version))
		r.Post("/transpile", s.Transpile)
		r.Post("/import", s.Import)
		r.Post("/validate", s.Validate)
		r.Post("/topology", s.Topology)
		r.Route("/automations", func(r chi.Router) {
			r.Get("/", s.ListAutomations)
			r.Get("/{id}", s.GetAutomation)
			r.Put("/{id}", s.PutAutomation)
			r.Delete("/{id}", s.DeleteAutomation)
			r.Get("/{id}/graph", s.GetAutomationGraph)
		})
	})
	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Cafe API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

type graphRequest struct {
	Graph *domain.Graph `json:"graph"`
}

type transpileRequest struct {
	Graph    *domain.Graph      `json:"graph"`
	Strategy domain.Strategy    `json:"strategy"`
	Dialect  automation.Dialect `json:"dialect"`
}

func (req transpileRequest) options() []cafe.TranspileOption {
	var opts []cafe.TranspileOption
	if req.Strategy != domain.StrategyAuto {
		opts = append(opts, cafe.WithForceStrategy(req.Strategy))
	}
	if req.Dialect != "" {
		opts = append(opts, cafe.WithTranspileDialect(req.Dialect))
	}
	return opts
}

type importRequest struct {
	YAML string `json:"yaml"`
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Warn("invalid request body", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func resultStatus(success bool) int {
	if success {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}

// Transpile handles POST /transpile.
func (s *Server) Transpile(w http.ResponseWriter, r *http.Request) {
	var body transpileRequest
	if !s.decode(w, r, &body) {
		return
	}
	res := s.Transpiler.Transpile(r.Context(), body.Graph, body.options()...)
	writeJSON(w, resultStatus(res.Success), res)
}

// Import handles POST /import.
func (s *Server) Import(w http.ResponseWriter, r *http.Request) {
	var body importRequest
	if !s.decode(w, r, &body) {
		return
	}
	res := s.Transpiler.FromYAML(r.Context(), []byte(body.YAML))
	writeJSON(w, resultStatus(res.Success), res)
}

// Validate handles POST /validate.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	var body graphRequest
	if !s.decode(w, r, &body) {
		return
	}
	errs := s.Transpiler.Validate(body.Graph)
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": len(errs) == 0, "errors": msgs})
}

// Topology handles POST /topology.
func (s *Server) Topology(w http.ResponseWriter, r *http.Request) {
	var body graphRequest
	if !s.decode(w, r, &body) {
		return
	}
	writeJSON(w, http.StatusOK, s.Transpiler.AnalyzeTopology(body.Graph))
}

// ListAutomations handles GET /automations.
func (s *Server) ListAutomations(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Store.List(r.Context())
	if err != nil {
		s.storeError(w, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"ids": ids})
}

// GetAutomation handles GET /automations/{id}.
func (s *Server) GetAutomation(w http.ResponseWriter, r *http.Request) {
	a, err := s.Store.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, "load", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// GetAutomationGraph handles GET /automations/{id}/graph.
func (s *Server) GetAutomationGraph(w http.ResponseWriter, r *http.Request) {
	a, err := s.Store.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, "load", err)
		return
	}
	res := s.Transpiler.FromYAML(r.Context(), []byte(a.YAML))
	writeJSON(w, resultStatus(res.Success), res)
}

// PutAutomation handles PUT /automations/{id}: the graph is transpiled and
// the YAML stored under id while the id's lock is held.
func (s *Server) PutAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body transpileRequest
	if !s.decode(w, r, &body) {
		return
	}

	lockCtx, cancel := context.WithTimeout(r.Context(), s.lockWait)
	unlock, err := s.Locker.Lock(lockCtx, "automation:"+id, s.lockTTL)
	cancel()
	if err != nil {
		writeError(w, http.StatusConflict, fmt.Errorf("automation %s is busy: %w", id, err))
		return
	}
	defer func() {
		if err := unlock(r.Context()); err != nil {
			s.logger.Warn("unlock failed", "id", id, "err", err)
		}
	}()

	if body.Graph != nil && body.Graph.ID == "" {
		body.Graph.ID = id
	}
	res := s.Transpiler.Transpile(r.Context(), body.Graph, body.options()...)
	if !res.Success {
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}

	stored := &ports.StoredAutomation{
		ID:        id,
		Alias:     body.Graph.Name,
		YAML:      res.YAML,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.Store.Save(r.Context(), stored); err != nil {
		s.storeError(w, "save", err)
		return
	}
	s.logger.Info("automation stored", "id", id, "strategy", res.Output.Strategy)
	writeJSON(w, http.StatusOK, map[string]any{
		"automation": stored,
		"result":     res,
	})
}

// DeleteAutomation handles DELETE /automations/{id}.
func (s *Server) DeleteAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	unlock, err := s.Locker.Lock(r.Context(), "automation:"+id, s.lockTTL)
	if err != nil {
		writeError(w, http.StatusConflict, fmt.Errorf("automation %s is busy: %w", id, err))
		return
	}
	defer func() { _ = unlock(r.Context()) }()

	if err := s.Store.Delete(r.Context(), id); err != nil {
		s.storeError(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) storeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, ports.ErrInvalidID):
		writeError(w, http.StatusBadRequest, err)
	default:
		s.logger.Error("store "+op+" failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(apiVersion string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"app":         "cafe-http",
			"version":     strings.TrimSpace(cafe.Version),
			"api_version": apiVersion,
		})
	}
}

// SubscribeEvents handles GET /events (SSE): every transpile and import
// served by this handler is pushed as a JSON data line.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
