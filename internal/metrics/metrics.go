package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Throughput metrics - Track invocation volume
var (
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sunnydapp_operations_total",
			Help: "Total number of invocations by operation and result kind",
		},
		[]string{"operation", "result"},
	)

	EventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sunnydapp_events_emitted_total",
			Help: "Total number of lifecycle events emitted by type",
		},
		[]string{"event_type"},
	)

	Payouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sunnydapp_payouts_total",
			Help: "Total number of claim payouts by receiving role",
		},
		[]string{"role"},
	)
)

// Performance metrics - Track invocation and store latency
var (
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sunnydapp_operation_duration_seconds",
			Help:    "Time taken to execute an invocation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DatabaseOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sunnydapp_db_operation_duration_seconds",
			Help:    "Time taken by PostgreSQL store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// State metrics - Track escrow state
var (
	EscrowLocked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sunnydapp_escrow_locked",
		Help: "Value currently held in the escrow pool",
	})

	Supply = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sunnydapp_supply",
		Help: "Total value deposited minus value withdrawn",
	})
)

// Error metrics - Track failures
var (
	StoreRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sunnydapp_store_retries_total",
			Help: "Total number of retried store operations by operation",
		},
		[]string{"operation"},
	)

	NotifierErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sunnydapp_notifier_errors_total",
			Help: "Total number of event sink failures by sink",
		},
		[]string{"sink"},
	)
)
