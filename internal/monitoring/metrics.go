// internal/monitoring/metrics.go
package monitoring

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valpere/PriceScrapexter/internal/pipeline"
)

// Row status label values
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// MetricsManager exposes pipeline activity as Prometheus metrics. It owns a
// private registry so several managers can coexist in one process.
type MetricsManager struct {
	registry *prometheus.Registry

	// Row metrics
	rowsTotal          *prometheus.CounterVec
	fetchDuration      prometheus.Histogram
	extractionFailures *prometheus.CounterVec
	sinkErrors         prometheus.Counter

	// Batch metrics
	batchesTotal  prometheus.Counter
	batchRows     prometheus.Gauge
	domainAverage *prometheus.GaugeVec
	domainCount   *prometheus.GaugeVec

	// Front end metrics
	rateLimitHits   prometheus.Counter
	uploadsRejected *prometheus.CounterVec

	// domain gauges describe the last batch only
	domainMu sync.Mutex

	namespace string
}

// MetricsConfig configuration for metrics
type MetricsConfig struct {
	Namespace            string `json:"namespace"`
	EnableGoMetrics      bool   `json:"enable_go_metrics"`
	EnableProcessMetrics bool   `json:"enable_process_metrics"`
}

// NewMetricsManager creates a new metrics manager
func NewMetricsManager(config MetricsConfig) *MetricsManager {
	if config.Namespace == "" {
		config.Namespace = "pricescrapexter"
	}

	mm := &MetricsManager{
		registry:  prometheus.NewRegistry(),
		namespace: config.Namespace,
	}

	if config.EnableGoMetrics {
		mm.registry.MustRegister(collectors.NewGoCollector())
	}
	if config.EnableProcessMetrics {
		mm.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	mm.initializeMetrics()

	return mm
}

func (mm *MetricsManager) initializeMetrics() {
	factory := promauto.With(mm.registry)

	mm.rowsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Name:      "rows_total",
			Help:      "Rows processed, by outcome",
		},
		[]string{"status"},
	)

	mm.fetchDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: mm.namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time spent processing a single row",
			Buckets:   []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
		},
	)

	mm.extractionFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Name:      "extraction_failures_total",
			Help:      "Rows that produced no price, by failure kind and reason",
		},
		[]string{"kind", "reason"},
	)

	mm.sinkErrors = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Name:      "sink_errors_total",
			Help:      "Records the result sink failed to persist",
		},
	)

	mm.batchesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Name:      "batches_total",
			Help:      "Batches processed",
		},
	)

	mm.batchRows = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: mm.namespace,
			Name:      "last_batch_rows",
			Help:      "Rows in the most recent batch",
		},
	)

	mm.domainAverage = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: mm.namespace,
			Name:      "domain_average_price",
			Help:      "Average extracted price per domain in the most recent batch",
		},
		[]string{"domain"},
	)

	mm.domainCount = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: mm.namespace,
			Name:      "domain_prices",
			Help:      "Prices extracted per domain in the most recent batch",
		},
		[]string{"domain"},
	)

	mm.rateLimitHits = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Requests rejected by the per-client rate limiter",
		},
	)

	mm.uploadsRejected = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Name:      "uploads_rejected_total",
			Help:      "Uploaded batches rejected before processing, by reason",
		},
		[]string{"reason"},
	)
}

// RecordOutcome implements pipeline.Recorder
func (mm *MetricsManager) RecordOutcome(out pipeline.Outcome) {
	mm.fetchDuration.Observe(out.Duration.Seconds())

	if out.OK() {
		mm.rowsTotal.WithLabelValues(StatusOK).Inc()
	} else {
		mm.rowsTotal.WithLabelValues(StatusFailed).Inc()
		if out.Failure != nil {
			mm.extractionFailures.WithLabelValues(string(out.Failure.Kind), out.Failure.Reason).Inc()
		}
	}

	if out.SinkErr != "" {
		mm.sinkErrors.Inc()
	}
}

// RecordSummary implements pipeline.Recorder. Domain gauges are replaced
// wholesale so domains from older batches disappear.
func (mm *MetricsManager) RecordSummary(summary pipeline.Summary) {
	mm.batchesTotal.Inc()
	mm.batchRows.Set(float64(summary.TotalRows))

	mm.domainMu.Lock()
	defer mm.domainMu.Unlock()

	mm.domainAverage.Reset()
	mm.domainCount.Reset()
	for _, d := range summary.Domains {
		mm.domainCount.WithLabelValues(d.Domain).Set(float64(d.Count))
		if d.Average != nil {
			mm.domainAverage.WithLabelValues(d.Domain).Set(*d.Average)
		}
	}
}

// RecordRateLimitHit counts a request rejected with 429
func (mm *MetricsManager) RecordRateLimitHit() {
	mm.rateLimitHits.Inc()
}

// RecordUploadRejected counts an upload refused before processing
func (mm *MetricsManager) RecordUploadRejected(reason string) {
	mm.uploadsRejected.WithLabelValues(reason).Inc()
}

// Registry returns the manager's registry
func (mm *MetricsManager) Registry() *prometheus.Registry {
	return mm.registry
}

// MetricsHandler returns an HTTP handler for metrics endpoint
func (mm *MetricsManager) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(mm.registry, promhttp.HandlerOpts{Registry: mm.registry})
}
