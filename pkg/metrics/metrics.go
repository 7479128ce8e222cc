package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once

	// Analysis metrics
	AnalysesTotal      *prometheus.CounterVec
	AnalysisErrors     *prometheus.CounterVec
	AnalysisDuration   prometheus.Histogram
	WindowsPerAnalysis prometheus.Histogram

	// Reaction metrics
	ReactionTime  prometheus.Histogram
	GoodReactions prometheus.Counter

	// AMQP metrics
	AMQPPublishedMessages *prometheus.CounterVec
	AMQPConnectionErrors  *prometheus.CounterVec

	// WebSocket metrics
	WSClientsConnected prometheus.Gauge
)

// Init initializes all metrics and registers them with Prometheus
func Init(logger *logrus.Logger) {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()

		AnalysesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dialog_analyses_total",
				Help: "Total number of dialog analyses by outcome",
			},
			[]string{"outcome"},
		)

		AnalysisErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dialog_analysis_errors_total",
				Help: "Total number of analysis errors by kind",
			},
			[]string{"kind"},
		)

		AnalysisDuration = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dialog_analysis_duration_seconds",
				Help:    "Wall time spent per analysis request",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
		)

		WindowsPerAnalysis = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dialog_windows_per_analysis",
				Help:    "Number of time windows per analysis request",
				Buckets: prometheus.LinearBuckets(1, 5, 10),
			},
		)

		ReactionTime = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dialog_reaction_time_ms",
				Help:    "Measured agent reaction times in milliseconds",
				Buckets: prometheus.ExponentialBuckets(50, 2, 10), // 50ms to ~25s
			},
		)

		GoodReactions = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dialog_good_reactions_total",
				Help: "Total number of reactions at or below the good-reaction threshold",
			},
		)

		AMQPPublishedMessages = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dialog_amqp_published_messages_total",
				Help: "Total number of messages published to AMQP",
			},
			[]string{"queue", "status"},
		)

		AMQPConnectionErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dialog_amqp_connection_errors_total",
				Help: "Total number of AMQP connection errors",
			},
			[]string{"error_type"},
		)

		WSClientsConnected = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dialog_ws_clients_connected",
				Help: "Number of WebSocket clients currently connected",
			},
		)

		registry.MustRegister(
			AnalysesTotal,
			AnalysisErrors,
			AnalysisDuration,
			WindowsPerAnalysis,
			ReactionTime,
			GoodReactions,
			AMQPPublishedMessages,
			AMQPConnectionErrors,
			WSClientsConnected,
		)

		logger.Info("Prometheus metrics initialized")
	})
}

// GetRegistry returns the metrics registry, or nil when Init has not run
func GetRegistry() *prometheus.Registry {
	return registry
}

// RecordAnalysis records the outcome of one analysis request
func RecordAnalysis(outcome string, windows int, durationSeconds float64) {
	if registry == nil {
		return
	}
	AnalysesTotal.WithLabelValues(outcome).Inc()
	WindowsPerAnalysis.Observe(float64(windows))
	AnalysisDuration.Observe(durationSeconds)
}

// RecordError records a failed analysis by error kind code
func RecordError(kind string) {
	if registry == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	AnalysisErrors.WithLabelValues(kind).Inc()
}

// RecordAMQPPublish records an AMQP publish attempt by status
func RecordAMQPPublish(queue, status string) {
	if registry == nil {
		return
	}
	AMQPPublishedMessages.WithLabelValues(queue, status).Inc()
}

// RecordAMQPConnectionError records an AMQP connection failure by type
func RecordAMQPConnectionError(errorType string) {
	if registry == nil {
		return
	}
	AMQPConnectionErrors.WithLabelValues(errorType).Inc()
}

// RecordReaction records a single measured reaction
func RecordReaction(reactionTimeMS float64, good bool) {
	if registry == nil {
		return
	}
	ReactionTime.Observe(reactionTimeMS)
	if good {
		GoodReactions.Inc()
	}
}
