// Package server exposes generation over HTTP.
//
//	POST /api/v1/generations            submit a request, 202 + task id
//	GET  /api/v1/generations/:id        job status and result
//	POST /api/v1/generations/validate   validate and score a request
//	POST /api/v1/generations/compare    compare two requests
//	POST /api/v1/diff                   analyze two texts
//	GET  /health
//	GET  /metrics
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/simonhull/firebird-suite/nest/internal/config"
	"github.com/simonhull/firebird-suite/nest/internal/logger"
	"github.com/simonhull/firebird-suite/nest/internal/metrics"
	"github.com/simonhull/firebird-suite/nest/internal/orchestrator"
)

// Server is the HTTP API.
type Server struct {
	cfg      *config.Config
	orch     *orchestrator.Orchestrator
	engine   *gin.Engine
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	log      logger.Logger
	version  string

	status singleflight.Group
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records HTTP metrics in m and serves gatherer on /metrics.
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New builds the router.
func New(cfg *config.Config, orch *orchestrator.Orchestrator, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		orch:     orch,
		log:      logger.Default(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, o := range opts {
		o(s)
	}

	s.engine = gin.New()
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupMiddleware() {
	s.engine.Use(gin.Recovery())
	s.engine.Use(requestLogger(s.log))
	s.engine.Use(corsMiddleware(s.cfg.Server.CORSOrigins))
	if s.metrics != nil {
		s.engine.Use(s.metrics.Middleware())
	}
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := s.engine.Group("/api/v1")
	{
		generations := v1.Group("/generations")
		{
			generations.POST("", s.submit)
			generations.POST("/validate", s.validate)
			generations.POST("/compare", s.compare)
			generations.GET("/:id", s.getGeneration)
		}
		v1.POST("/diff", s.diff)
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Location"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			logger.F("method", c.Request.Method),
			logger.F("path", c.Request.URL.Path),
			logger.F("status", c.Writer.Status()),
			logger.F("duration", time.Since(start)))
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully and waits
// for submitted generations within the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("server listening", logger.F("addr", s.cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}

		done := make(chan struct{})
		go func() {
			s.orch.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			s.log.Warn("shutdown timeout reached with generations still running")
		}
		return nil
	})
	return g.Wait()
}
