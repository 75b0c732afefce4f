// Package server exposes the documentation preview HTTP server: the rendered
// page, the Markdown reference and API documents, health and readiness
// probes, metrics, and a live reload channel for open pages. Callers usually
// drive it through the runtime package but can embed the handler directly.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/theroutercompany/routedoc/internal/openapi"
	"github.com/theroutercompany/routedoc/internal/platform/health"
	pkglog "github.com/theroutercompany/routedoc/pkg/log"
	"github.com/theroutercompany/routedoc/pkg/metrics"
	"github.com/theroutercompany/routedoc/pkg/routedoc/config"
	"github.com/theroutercompany/routedoc/pkg/routedoc/problem"
	"github.com/theroutercompany/routedoc/pkg/routedoc/render"
	"github.com/theroutercompany/routedoc/pkg/routedoc/server/middleware"
)

type readinessReporter interface {
	Readiness(ctx context.Context) health.Report
}

type versioner interface {
	Version() uint64
}

// Option configures optional server dependencies.
type Option func(*Server)

// WithDocumentProvider overrides the default document provider, which reads
// the configured output directory.
func WithDocumentProvider(provider openapi.DocumentProvider) Option {
	return func(s *Server) {
		s.documents = provider
	}
}

// WithLogger overrides the logger used by the server. Defaults to the global logger.
func WithLogger(logger pkglog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Server coordinates HTTP routes and lifecycle hooks.
type Server struct {
	cfg            config.Config
	router         *http.ServeMux
	httpServer     *http.Server
	handler        http.Handler
	healthChecker  readinessReporter
	bootTime       time.Time
	metricsHandler http.Handler
	metrics        *requestMetrics
	cors           *cors.Cors
	documents      openapi.DocumentProvider
	hub            *Hub
	logger         pkglog.Logger
}

// New constructs a server with baseline dependencies configured.
func New(cfg config.Config, checker readinessReporter, registry *metrics.Registry, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		cfg:           cfg,
		router:        mux,
		healthChecker: checker,
		bootTime:      time.Now().UTC(),
		cors:          buildCORS(cfg.Serve.CORSAllowedOrigins),
		logger:        pkglog.Shared(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if s.documents == nil {
		s.documents = openapi.NewService(
			openapi.WithDistDir(cfg.Output.Dir),
			openapi.WithNames(cfg.OutputNames()),
			openapi.WithLogger(s.logger),
		)
	}

	if registry != nil && cfg.Metrics.Enabled {
		s.metricsHandler = registry.Handler()
		s.metrics = newRequestMetrics(registry)
	}

	if cfg.Serve.LiveReload {
		s.hub = NewHub(s.logger)
		s.hub.onConnect = s.metrics.connected
	}

	s.mountRoutes()

	var tracker middleware.TrackFunc
	if s.metrics != nil {
		tracker = s.metrics.track
	}

	handler := http.Handler(mux)
	handler = middleware.ReadOnly(problem.Write)(handler)
	if s.cors != nil {
		handler = middleware.CORS(s.cors, problem.Write)(handler)
	}
	handler = middleware.Logging(s.logger, tracker, requestIDFromContext)(handler)
	handler = middleware.SecurityHeaders()(handler)
	handler = middleware.RequestMetadata(ensureRequestID)(handler)
	http2Server := &http2.Server{}
	handler = h2c.NewHandler(handler, http2Server)

	s.handler = handler
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Serve.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := http2.ConfigureServer(s.httpServer, http2Server); err != nil {
		s.logger.Errorw("failed to configure http2 server", "error", err)
	}

	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Reload notifies connected preview pages that new documents are available
// and returns how many were notified.
func (s *Server) Reload(version uint64, runID string) int {
	if s.hub == nil {
		return 0
	}
	n := s.hub.Broadcast(ReloadEvent{Type: "reload", Version: version, RunID: runID})
	s.logger.Debugw("live reload broadcast", "version", version, "clients", n)
	return n
}

// Start begins serving HTTP requests until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	if s.httpServer == nil {
		return errors.New("http server not initialised")
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("preview server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Serve.ShutdownTimeout.AsDuration())
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Errorw("preview server shutdown failed", "error", err)
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			s.logger.Errorw("preview server stopped with error", "error", err)
		}
		return err
	}
}

// Shutdown gracefully stops the HTTP server and disconnects live reload
// clients, which http.Server.Shutdown does not track.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) mountRoutes() {
	s.router.HandleFunc("/", s.handleIndex)
	s.router.HandleFunc("/api.md", s.documentHandler(render.FormatMarkdown))
	s.router.HandleFunc("/openapi.json", s.documentHandler(render.FormatJSON))
	s.router.HandleFunc("/openapi.yaml", s.documentHandler(render.FormatYAML))
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.HandleFunc("/readyz", s.handleReadiness)
	if s.metricsHandler != nil {
		s.router.Handle("/metrics", s.metricsHandler)
	}
	if s.hub != nil {
		s.router.Handle(LiveReloadPath, s.hub)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		problem.Write(w, http.StatusNotFound, "Not Found", fmt.Sprintf("No document at %s", r.URL.Path), "", r.URL.Path)
		return
	}
	s.serveDocument(w, r, render.FormatHTML)
}

func (s *Server) documentHandler(format render.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.serveDocument(w, r, format)
	}
}

func (s *Server) serveDocument(w http.ResponseWriter, r *http.Request, format render.Format) {
	data, err := s.documents.Document(r.Context(), format)
	switch {
	case errors.Is(err, openapi.ErrNotGenerated):
		problem.NotGenerated(w, r, err.Error())
		return
	case err != nil:
		s.logger.Errorw("failed to load document", "error", err, "format", format, "requestId", requestIDFromContext(r.Context()))
		problem.Write(w, http.StatusInternalServerError, "Document Unavailable", err.Error(), "", r.URL.Path)
		return
	}

	if format == render.FormatHTML && s.hub != nil {
		data = injectReloadScript(data)
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-cache")
	if v, ok := s.documents.(versioner); ok {
		w.Header().Set("X-Document-Version", fmt.Sprintf("%d", v.Version()))
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(data); err != nil {
		s.logger.Warnw("failed to write document response", "error", err, "format", format)
	}
}

func buildCORS(origins []string) *cors.Cors {
	allowAll := len(origins) == 0

	allowed := make(map[string]struct{})
	for _, origin := range origins {
		o := strings.TrimSpace(origin)
		if o == "" {
			continue
		}
		if o == "*" {
			allowAll = true
			break
		}
		allowed[o] = struct{}{}
	}

	return cors.New(cors.Options{
		AllowedMethods:       []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders:       []string{"*"},
		ExposedHeaders:       []string{"X-Request-Id", "X-Document-Version"},
		OptionsSuccessStatus: http.StatusNoContent,
		AllowOriginRequestFunc: func(_ *http.Request, origin string) bool {
			if origin == "" || allowAll {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	response := struct {
		Status          string  `json:"status"`
		Uptime          float64 `json:"uptime"`
		Timestamp       string  `json:"timestamp"`
		Version         string  `json:"version,omitempty"`
		DocumentVersion uint64  `json:"documentVersion"`
	}{
		Status:    "ok",
		Uptime:    time.Since(s.bootTime).Seconds(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.cfg.Info.Version,
	}
	if v, ok := s.documents.(versioner); ok {
		response.DocumentVersion = v.Version()
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")

	report := health.Report{Status: "ready", CheckedAt: time.Now().UTC()}
	if s.healthChecker != nil {
		report = s.healthChecker.Readiness(r.Context())
	}

	statusCode := http.StatusOK
	if report.Status != "ready" {
		statusCode = http.StatusServiceUnavailable
	}

	response := struct {
		Status    string               `json:"status"`
		CheckedAt time.Time            `json:"checkedAt"`
		Probes    []health.ProbeReport `json:"probes"`
		RequestID string               `json:"requestId,omitempty"`
	}{
		Status:    report.Status,
		CheckedAt: report.CheckedAt,
		Probes:    report.Probes,
		RequestID: requestID,
	}

	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}
