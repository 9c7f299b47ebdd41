// Package server serves the questionnaire over HTTP: an HTML form for
// respondents, a small JSON API and Prometheus metrics.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/genera/compass/internal/logging"
	"github.com/genera/compass/internal/model"
	"github.com/genera/compass/internal/pipeline"
	"github.com/genera/compass/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server is the HTTP surface of the questionnaire
type Server struct {
	pipeline   *pipeline.Pipeline
	store      *session.Store
	metrics    *Metrics
	gatherer   prometheus.Gatherer
	templates  *template.Template
	engine     *gin.Engine
	httpServer *http.Server
	logger     *logging.Logger
	startTime  time.Time
}

// Option customizes a Server
type Option func(*Server)

// WithRegistry registers metrics with reg and serves them from /metrics
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.metrics = MustNewMetrics(reg)
		s.gatherer = reg
	}
}

// WithStore replaces the session store
func WithStore(store *session.Store) Option {
	return func(s *Server) { s.store = store }
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New builds the server and its routes
func New(p *pipeline.Pipeline, cfg model.ServerConfig, opts ...Option) (*Server, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	if cfg.Debug {
		engine.Use(gin.Logger())
	}

	s := &Server{
		pipeline:  p,
		templates: tmpl,
		engine:    engine,
		logger:    logging.Nop(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = session.NewStore(cfg.SessionTTL, cfg.SessionTTL/2)
	}
	if s.metrics == nil {
		s.metrics = MustNewMetrics(prometheus.DefaultRegisterer)
		s.gatherer = prometheus.DefaultGatherer
	}
	s.logger = s.logger.With("component", "server")

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.engine.GET("/", s.handleForm)
	s.engine.POST("/submit", s.handleSubmit)
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := s.engine.Group("/api")
	{
		api.GET("/catalog", s.handleCatalog)
		api.POST("/sessions", s.handleCreateSession)
		api.POST("/score", s.handleScore)
	}
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.httpServer.Addr, "catalog", s.pipeline.Catalog().Name())
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// HealthResponse is the body of /healthz
type HealthResponse struct {
	Status   string `json:"status"`
	Catalog  string `json:"catalog"`
	Sessions int    `json:"sessions"`
	Export   string `json:"export"`
	Uptime   string `json:"uptime"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:   "ok",
		Catalog:  s.pipeline.Catalog().Name(),
		Sessions: s.store.Len(),
		Export:   s.pipeline.ExportBackend(),
		Uptime:   time.Since(s.startTime).Round(time.Second).String(),
	})
}
