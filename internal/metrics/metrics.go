// Package metrics exposes Prometheus metrics for ingestion runs and outbound requests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jonesrussell/north-cloud/article-ingestor/internal/domain"
)

const (
	// Namespace is the namespace for all article-ingestor metrics.
	Namespace = "article_ingestor"

	subsystemIngest = "ingest"
	subsystemHTTP   = "outbound"
)

// Detail outcomes.
const (
	DetailExtracted   = "extracted"
	DetailFetchFailed = "fetch_failed"
	DetailIncomplete  = "incomplete"
)

// Persist results.
const (
	PersistCreated = "created"
	PersistUpdated = "updated"
	PersistFailed  = "failed"
)

// Metrics holds the Prometheus collectors.
type Metrics struct {
	RunsTotal            *prometheus.CounterVec
	RunDurationSeconds   prometheus.Histogram
	LastRunTimestamp     prometheus.Gauge
	ReferencesDiscovered prometheus.Counter
	DetailsTotal         *prometheus.CounterVec
	ArticlesPersisted    *prometheus.CounterVec

	RequestsTotal          *prometheus.CounterVec
	RequestDurationSeconds prometheus.Histogram
}

// New creates and registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemIngest,
			Name:      "runs_total",
			Help:      "Ingestion runs by the state they finished in",
		}, []string{"terminal_state"}),
		RunDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: subsystemIngest,
			Name:      "run_duration_seconds",
			Help:      "Wall time of ingestion runs",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: subsystemIngest,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last ingestion run finished",
		}),
		ReferencesDiscovered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemIngest,
			Name:      "references_discovered_total",
			Help:      "Article references accepted from the listing",
		}),
		DetailsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemIngest,
			Name:      "details_total",
			Help:      "Detail extractions by outcome",
		}, []string{"outcome"}),
		ArticlesPersisted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemIngest,
			Name:      "articles_persisted_total",
			Help:      "Article upserts by result",
		}, []string{"result"}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemHTTP,
			Name:      "requests_total",
			Help:      "Outbound HTTP attempts by status code",
		}, []string{"status"}),
		RequestDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: subsystemHTTP,
			Name:      "request_duration_seconds",
			Help:      "Outbound HTTP attempt latency",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// ObserveRequest records one outbound attempt.
func (m *Metrics) ObserveRequest(status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(status).Inc()
	m.RequestDurationSeconds.Observe(duration.Seconds())
}

// ObserveDetail records one detail extraction outcome.
func (m *Metrics) ObserveDetail(outcome string) {
	m.DetailsTotal.WithLabelValues(outcome).Inc()
}

// ObservePersist records one upsert result.
func (m *Metrics) ObservePersist(result string) {
	m.ArticlesPersisted.WithLabelValues(result).Inc()
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(report *domain.RunReport) {
	state := string(report.TerminalState)
	if report.Skipped {
		state = "skipped"
	}
	m.RunsTotal.WithLabelValues(state).Inc()
	m.ReferencesDiscovered.Add(float64(report.ReferencesFound))
	m.RunDurationSeconds.Observe(report.Duration().Seconds())
	m.LastRunTimestamp.Set(float64(report.FinishedAt.Unix()))
}
