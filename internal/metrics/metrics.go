// Package metrics collects pipeline counters and exposes them to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/welldanyogia/paperboy/internal/models"
)

// Collector records pipeline activity. It is the observer for the
// extractor, the archive engine and the ingest service.
type Collector struct {
	emailsArchived   *prometheus.CounterVec
	emailsRouted     *prometheus.CounterVec
	emailsReplayed   *prometheus.CounterVec
	articlesImported *prometheus.CounterVec
	extractions      *prometheus.CounterVec
	extractLatency   *prometheus.HistogramVec
	summaryFailures  prometheus.Counter
	deliveries       *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		emailsArchived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paperboy_emails_archived_total",
			Help: "Inbound emails archived, by classification hint",
		}, []string{"type"}),
		emailsRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paperboy_emails_routed_total",
			Help: "Emails routed through the pipeline, by type",
		}, []string{"type"}),
		emailsReplayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paperboy_emails_replayed_total",
			Help: "Archived emails replayed, by outcome type",
		}, []string{"type", "processed"}),
		articlesImported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paperboy_articles_imported_total",
			Help: "Articles created, by source",
		}, []string{"source"}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paperboy_extraction_attempts_total",
			Help: "Extraction strategy attempts, by stage and result",
		}, []string{"stage", "result"}),
		extractLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "paperboy_extraction_duration_seconds",
			Help:    "Time spent in an extraction strategy",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		summaryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paperboy_summarization_failures_total",
			Help: "Articles whose AI summaries could not be generated",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paperboy_deliveries_total",
			Help: "Device deliveries, by result",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.emailsArchived,
		c.emailsRouted,
		c.emailsReplayed,
		c.articlesImported,
		c.extractions,
		c.extractLatency,
		c.summaryFailures,
		c.deliveries,
	)
	return c
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// ObserveExtraction records one extraction strategy attempt
func (c *Collector) ObserveExtraction(stage string, ok bool, elapsed time.Duration) {
	c.extractions.WithLabelValues(stage, result(ok)).Inc()
	c.extractLatency.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// EmailArchived records an archived email
func (c *Collector) EmailArchived(_ uint, emailType models.EmailType) {
	c.emailsArchived.WithLabelValues(string(emailType)).Inc()
}

// EmailReplayed records a replay outcome
func (c *Collector) EmailReplayed(_ uint, outcome models.ProcessingOutcome) {
	c.emailsReplayed.WithLabelValues(string(outcome.Type), strconv.FormatBool(outcome.Processed)).Inc()
}

// EmailRouted records a routed email
func (c *Collector) EmailRouted(emailType models.EmailType) {
	c.emailsRouted.WithLabelValues(string(emailType)).Inc()
}

// ArticleImported records a newly created article
func (c *Collector) ArticleImported(source models.ArticleSource) {
	c.articlesImported.WithLabelValues(string(source)).Inc()
}

// SummarizationFailed records a failed summary generation
func (c *Collector) SummarizationFailed() {
	c.summaryFailures.Inc()
}

// DeliveryAttempted records a device delivery
func (c *Collector) DeliveryAttempted(ok bool) {
	c.deliveries.WithLabelValues(result(ok)).Inc()
}

// RegisterQueueDepth exposes the number of ingest jobs waiting for a worker
func RegisterQueueDepth(reg prometheus.Registerer, pending func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "paperboy_ingest_queue_depth",
		Help: "Ingest jobs waiting for a worker",
	}, func() float64 { return float64(pending()) }))
}

// Handler returns the scrape handler for gatherer
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
