// Package metrics exposes Prometheus metrics for plantwised
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plantwise/plantwise/pkg/logx"
	"github.com/plantwise/plantwise/pkg/models"
	"github.com/plantwise/plantwise/pkg/telem"
)

// Server provides Prometheus metrics for the prediction daemon
type Server struct {
	models    *models.Store
	store     *telem.Store
	logger    *logx.Logger
	server    *http.Server
	registry  *prometheus.Registry
	startTime time.Time

	// Prediction metrics
	predictions          *prometheus.CounterVec
	fallbackPredictions  *prometheus.CounterVec
	predictionConfidence *prometheus.GaugeVec

	// Training metrics
	trainingRuns     *prometheus.CounterVec
	trainingSamples  prometheus.Gauge
	modelPerformance *prometheus.GaugeVec
	modelInfo        *prometheus.GaugeVec

	// Telemetry store metrics
	telemetryRecords *prometheus.GaugeVec
	telemetryEvents  prometheus.Gauge
	telemetryBytes   prometheus.Gauge

	daemonUptime prometheus.Gauge
}

// NewServer creates a new metrics server. Metrics live on a private
// registry so multiple servers can coexist in one process.
func NewServer(modelStore *models.Store, store *telem.Store, logger *logx.Logger) *Server {
	s := &Server{
		models:    modelStore,
		store:     store,
		logger:    logger,
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}

	s.registerMetrics()
	return s
}

// registerMetrics registers all Prometheus metrics
func (s *Server) registerMetrics() {
	s.predictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plantwise_predictions_total",
			Help: "Total number of predictions served, by kind",
		},
		[]string{"kind"},
	)

	s.fallbackPredictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plantwise_fallback_predictions_total",
			Help: "Total number of predictions that degraded to the fallback output",
		},
		[]string{"kind"},
	)

	s.predictionConfidence = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "plantwise_prediction_confidence",
			Help: "Confidence of the most recent prediction, by kind",
		},
		[]string{"kind"},
	)

	s.trainingRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plantwise_training_runs_total",
			Help: "Total number of training passes, by status",
		},
		[]string{"status"},
	)

	s.trainingSamples = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "plantwise_training_samples",
			Help: "Sample count of the most recent training pass",
		},
	)

	s.modelPerformance = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "plantwise_model_performance",
			Help: "Performance metrics of the active model bundle",
		},
		[]string{"metric"},
	)

	s.modelInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "plantwise_model_info",
			Help: "Active model version and training data source (value is always 1)",
		},
		[]string{"version", "source"},
	)

	s.telemetryRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "plantwise_telemetry_records",
			Help: "Number of prediction records in the telemetry store, by plant",
		},
		[]string{"plant"},
	)

	s.telemetryEvents = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "plantwise_telemetry_events",
			Help: "Number of events in the telemetry store",
		},
	)

	s.telemetryBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "plantwise_telemetry_memory_bytes",
			Help: "Estimated memory usage of the telemetry store in bytes",
		},
	)

	s.daemonUptime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "plantwise_daemon_uptime_seconds",
			Help: "Daemon uptime in seconds",
		},
	)

	goVersion := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "plantwise_daemon_info",
			Help: "Daemon build information (value is always 1)",
		},
		[]string{"go_version"},
	)
	goVersion.With(prometheus.Labels{"go_version": runtime.Version()}).Set(1)

	s.registry.MustRegister(
		s.predictions,
		s.fallbackPredictions,
		s.predictionConfidence,
		s.trainingRuns,
		s.trainingSamples,
		s.modelPerformance,
		s.modelInfo,
		s.telemetryRecords,
		s.telemetryEvents,
		s.telemetryBytes,
		s.daemonUptime,
		goVersion,
	)
}

// Start starts the metrics server
func (s *Server) Start(port int) error {
	s.logger.Info("starting metrics server", "port", port)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", s.healthHandler)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info("stopping metrics server")

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// healthHandler provides a simple health check endpoint
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

// RecordPrediction records a served prediction
func (s *Server) RecordPrediction(kind string, confidence float64, fallback bool) {
	s.predictions.With(prometheus.Labels{"kind": kind}).Inc()
	s.predictionConfidence.With(prometheus.Labels{"kind": kind}).Set(confidence)
	if fallback {
		s.fallbackPredictions.With(prometheus.Labels{"kind": kind}).Inc()
	}
}

// RecordTrainingResult records the outcome of a training pass
func (s *Server) RecordTrainingResult(result *models.TrainResult) {
	if result == nil {
		return
	}
	s.trainingRuns.With(prometheus.Labels{"status": result.Status}).Inc()
	s.trainingSamples.Set(float64(result.Samples))
	for name, value := range result.Metrics {
		s.modelPerformance.With(prometheus.Labels{"metric": name}).Set(value)
	}
}

// UpdateMetrics refreshes gauges from the model and telemetry stores
func (s *Server) UpdateMetrics() {
	s.updateModelMetrics()
	s.updateTelemetryMetrics()
	s.daemonUptime.Set(time.Since(s.startTime).Seconds())
}

// updateModelMetrics publishes the active model identity
func (s *Server) updateModelMetrics() {
	if s.models == nil {
		return
	}
	s.modelInfo.Reset()
	s.modelInfo.With(prometheus.Labels{
		"version": s.models.Version(),
		"source":  s.models.Source(),
	}).Set(1)
}

// updateTelemetryMetrics updates telemetry store depth gauges
func (s *Server) updateTelemetryMetrics() {
	if s.store == nil {
		return
	}
	for _, plant := range s.store.GetPlants() {
		records := s.store.GetRecords(plant, 0)
		s.telemetryRecords.With(prometheus.Labels{"plant": plant}).Set(float64(len(records)))
	}

	stats := s.store.GetStats()
	if events, ok := stats["total_events"].(int); ok {
		s.telemetryEvents.Set(float64(events))
	}
	if bytes, ok := stats["estimated_bytes"].(int); ok {
		s.telemetryBytes.Set(float64(bytes))
	}
}
