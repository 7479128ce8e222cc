package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"dialog-analyzer/pkg/analyzer"
	"dialog-analyzer/pkg/config"
	"dialog-analyzer/pkg/messaging"
	"dialog-analyzer/pkg/metrics"
)

// Server exposes the analyzer over HTTP: analysis API, health checks,
// Prometheus metrics, and the live results WebSocket.
type Server struct {
	config     config.HTTPConfig
	logger     *logrus.Logger
	httpServer *http.Server
	mux        *http.ServeMux
	analyzer   *analyzer.Analyzer
	publisher  messaging.StatisticsPublisher
	hub        *ResultsHub
	startTime  time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(logger *logrus.Logger, cfg config.HTTPConfig, a *analyzer.Analyzer, publisher messaging.StatisticsPublisher) *Server {
	server := &Server{
		config:    cfg,
		logger:    logger,
		analyzer:  a,
		publisher: publisher,
		hub:       NewResultsHub(logger),
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	server.mux = mux

	mux.HandleFunc("/health", server.HealthHandler)
	mux.HandleFunc("/health/live", server.LivenessHandler)
	mux.HandleFunc("/health/ready", server.ReadinessHandler)

	mux.HandleFunc("/api/analyze", server.AnalyzeHandler)
	mux.HandleFunc("/ws/results", server.hub.ServeWs)

	if cfg.EnableMetrics {
		if registry := metrics.GetRegistry(); registry != nil {
			promHandler := promhttp.HandlerFor(
				registry,
				promhttp.HandlerOpts{
					EnableOpenMetrics: true,
					Registry:          registry,
				},
			)
			mux.Handle("/metrics", promHandler)
			logger.Info("Prometheus metrics endpoint enabled at /metrics")
		} else {
			logger.Warn("Metrics registry not initialized, /metrics disabled")
		}
	} else {
		logger.Info("Metrics endpoint disabled")
	}

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return server
}

// Hub returns the results hub for external broadcasting.
func (s *Server) Hub() *ResultsHub {
	return s.hub
}

// Handler returns the server's root handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the WebSocket hub and begins serving in the background
func (s *Server) Start(ctx context.Context) {
	go s.hub.Run(ctx)

	go func() {
		s.logger.Infof("HTTP server listening on port %d", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server failed")
		}
	}()

	// Verify that we can actually bind to the port
	go func() {
		time.Sleep(500 * time.Millisecond)
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", s.config.Port), 2*time.Second)
		if err != nil {
			s.logger.WithError(err).Error("Could not connect to HTTP server")
		} else {
			s.logger.Debug("HTTP server is running correctly")
			conn.Close()
		}
	}()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
