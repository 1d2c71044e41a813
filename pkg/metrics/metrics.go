package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seefaas_records_fetched_total",
		Help: "Unprocessed records read from the bucket",
	})

	RecordsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seefaas_records_rejected_total",
		Help: "Records skipped during a run, by reason",
	}, []string{"reason"})

	Correlations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seefaas_correlations_total",
		Help: "Inbound/outbound matches that merged two traces",
	})

	DuplicateCorrelations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seefaas_duplicate_correlations_total",
		Help: "Pending requests dropped because the identifier was already cached",
	})

	TracesPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seefaas_traces_persisted_total",
		Help: "Traces written to the bucket",
	})

	TracesRootless = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seefaas_traces_rootless_total",
		Help: "Traces left unpersisted because no record qualifies as root",
	})

	ProfilesPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seefaas_profiles_persisted_total",
		Help: "Profiles written to the bucket",
	})

	PendingRequests = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "seefaas_pending_requests",
		Help: "Unresolved requests left after the last run",
	}, []string{"direction"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "seefaas_run_duration_seconds",
		Help:    "Duration of one ingestion run",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	})
)

// Reasons a record is rejected.
const (
	ReasonFetch          = "fetch"
	ReasonTracingContext = "tracing_context"
)
