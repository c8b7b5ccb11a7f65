package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Journal metrics
var (
	// EntriesCreated counts entries appended to the journal by kind (echo/hoard)
	EntriesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echocloset_entries_created_total",
			Help: "Entries appended to the journal by kind",
		},
		[]string{"kind"},
	)

	// PersistFailures counts durable writes that failed and were rolled back
	PersistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echocloset_persist_failures_total",
			Help: "Durable writes that failed, by operation",
		},
		[]string{"op"},
	)

	// EmotionTags counts tags attached to new echoes by tag and source (lexicon/classifier)
	EmotionTags = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echocloset_emotion_tags_total",
			Help: "Emotion tags attached to new echoes",
		},
		[]string{"tag", "source"},
	)
)

// Classifier metrics
var (
	// ClassifierCalls counts classifier outcomes (ok, error, timeout, open, invalid)
	ClassifierCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echocloset_classifier_calls_total",
			Help: "External sentiment classifier calls by outcome",
		},
		[]string{"outcome"},
	)

	// ClassifierDuration tracks classifier latency in seconds
	ClassifierDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "echocloset_classifier_duration_seconds",
			Help:    "External sentiment classifier latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// CircuitBreakerState tracks the classifier breaker (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "echocloset_classifier_breaker_state",
			Help: "Classifier circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// Expiry scanner metrics
var (
	// Scans counts scanner runs by result (ok, failed)
	Scans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echocloset_scans_total",
			Help: "Expiry scanner runs by result",
		},
		[]string{"result"},
	)

	// Notifications counts notifier calls by outcome (sent, retryable, permanent)
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echocloset_notifications_total",
			Help: "Hoard expiry notifications by outcome",
		},
		[]string{"outcome"},
	)

	// HoardsExpired counts hoards transitioned to expired
	HoardsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "echocloset_hoards_expired_total",
			Help: "Hoards whose cooldown notification was delivered",
		},
	)
)

// Boundary metrics
var (
	// Requests counts inbound commands by command and result
	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echocloset_requests_total",
			Help: "Inbound commands by command and result",
		},
		[]string{"command", "result"},
	)

	// GateDeclines counts commands refused by the ghost-mode gate
	GateDeclines = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "echocloset_gate_declines_total",
			Help: "Commands declined outside the ghost-mode window",
		},
	)
)
