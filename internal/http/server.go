package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tunecard/internal/core"
)

type Server struct {
	config  *core.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	metrics *Metrics
}

type Metrics struct {
	MessagesTotal    *prometheus.CounterVec
	ExtractionsTotal *prometheus.CounterVec
	ExtractionTime   *prometheus.HistogramVec
	CardsTotal       *prometheus.CounterVec
}

func NewServer(config *core.ServerConfig, logger *zap.Logger) *Server {
	return &Server{
		config:  config,
		logger:  logger,
		server:  createHTTPServer(config, setupRoutes(logger)),
		metrics: newMetrics(),
	}
}

func newMetrics() *Metrics {
	metrics := &Metrics{
		MessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tunecard_messages_total",
				Help: "Total number of messages processed",
			},
			[]string{"status"},
		),
		ExtractionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tunecard_extractions_total",
				Help: "Total number of link extractions",
			},
			[]string{"platform", "outcome"},
		),
		ExtractionTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tunecard_extraction_duration_seconds",
				Help:    "Time spent extracting link metadata",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"platform"},
		),
		CardsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tunecard_cards_total",
				Help: "Total number of summary cards delivered",
			},
			[]string{"platform"},
		),
	}

	prometheus.MustRegister(
		metrics.MessagesTotal,
		metrics.ExtractionsTotal,
		metrics.ExtractionTime,
		metrics.CardsTotal,
	)

	return metrics
}

func setupRoutes(logger *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok","service":"tunecard"}`)); err != nil {
			logger.Debug("Failed to write healthz response", zap.Error(err))
		}
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ready","service":"tunecard"}`)); err != nil {
			logger.Debug("Failed to write readyz response", zap.Error(err))
		}
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/", homeHandler(logger))

	return mux
}

func homeHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>tunecard</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #0066cc; }
        .endpoint a:hover { text-decoration: underline; }
    </style>
</head>
<body>
    <h1>🎵 tunecard</h1>
    <p>Music link summary cards for chat groups</p>

    <h2>Endpoints</h2>
    <div class="endpoint">📊 <a href="/metrics">Metrics</a> - Prometheus metrics</div>
    <div class="endpoint">💚 <a href="/healthz">Health</a> - Health check</div>
    <div class="endpoint">✅ <a href="/readyz">Ready</a> - Readiness check</div>
</body>
</html>`)); err != nil {
			logger.Debug("Failed to write home response", zap.Error(err))
		}
	}
}

func createHTTPServer(config *core.ServerConfig, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

func (s *Server) GetMetrics() *Metrics {
	return s.metrics
}

// RecordMessage, RecordExtraction, and RecordCard satisfy
// core.MetricsRecorder.

func (s *Server) RecordMessage(status string) {
	s.metrics.MessagesTotal.WithLabelValues(status).Inc()
}

func (s *Server) RecordExtraction(platform, outcome string, elapsed time.Duration) {
	s.metrics.ExtractionsTotal.WithLabelValues(platform, outcome).Inc()
	s.metrics.ExtractionTime.WithLabelValues(platform).Observe(elapsed.Seconds())
}

func (s *Server) RecordCard(platform string) {
	s.metrics.CardsTotal.WithLabelValues(platform).Inc()
}
