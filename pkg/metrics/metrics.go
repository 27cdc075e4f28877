// Package metrics exposes ingestion counters to Prometheus. A Collector
// is registered on an explicit Registerer so tests and the CLI each own
// their registry; a nil *Collector records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ajitpratap0/ingestor/pkg/errors"
)

const namespace = "ingestor"

// Collector holds the ingestion metric vectors
type Collector struct {
	rowsWritten    *prometheus.CounterVec
	batchesWritten *prometheus.CounterVec
	bytesWritten   *prometheus.CounterVec
	filesWritten   *prometheus.CounterVec
	datasetSeconds *prometheus.HistogramVec
	failures       *prometheus.CounterVec
	skippedRecords *prometheus.CounterVec
	published      *prometheus.CounterVec
	streamBuffered *prometheus.GaugeVec
}

// New registers the ingestion metrics on reg
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		rowsWritten: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows written to columnar files",
		}, []string{"group", "dataset", "format"}),
		batchesWritten: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_written_total",
			Help:      "Batches appended to columnar files",
		}, []string{"group", "dataset", "format"}),
		bytesWritten: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Bytes written to the output filesystem",
		}, []string{"group", "dataset", "format"}),
		filesWritten: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_written_total",
			Help:      "Columnar files committed",
		}, []string{"group", "dataset", "format"}),
		datasetSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_duration_seconds",
			Help:      "Wall time to ingest one dataset",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		}, []string{"group", "dataset"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_failures_total",
			Help:      "Dataset runs that failed, by error type",
		}, []string{"group", "dataset", "type"}),
		skippedRecords: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Malformed input records dropped by producers",
		}, []string{"group", "dataset", "reason"}),
		published: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Records sent to Kafka by the publisher",
		}, []string{"topic", "status"}),
		streamBuffered: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_buffered_records",
			Help:      "Records buffered by the stream runner awaiting flush",
		}, []string{"group", "dataset"}),
	}
}

// Write describes one committed columnar file.
type Write struct {
	Group    string
	Dataset  string
	Format   string
	Rows     int64
	Batches  int
	Bytes    int64
	Duration time.Duration
}

// ObserveWrite records a finished dataset write. A write with no rows
// counts toward duration only.
func (c *Collector) ObserveWrite(w Write) {
	if c == nil {
		return
	}
	c.datasetSeconds.WithLabelValues(w.Group, w.Dataset).Observe(w.Duration.Seconds())
	if w.Rows == 0 {
		return
	}
	c.rowsWritten.WithLabelValues(w.Group, w.Dataset, w.Format).Add(float64(w.Rows))
	c.batchesWritten.WithLabelValues(w.Group, w.Dataset, w.Format).Add(float64(w.Batches))
	c.bytesWritten.WithLabelValues(w.Group, w.Dataset, w.Format).Add(float64(w.Bytes))
	c.filesWritten.WithLabelValues(w.Group, w.Dataset, w.Format).Inc()
}

// ObserveFailure counts a failed dataset, labelled with the error type.
func (c *Collector) ObserveFailure(group, dataset string, err error) {
	if c == nil || err == nil {
		return
	}
	c.failures.WithLabelValues(group, dataset, string(errors.TypeOf(err))).Inc()
}

// ObserveSkipped counts records a producer dropped.
func (c *Collector) ObserveSkipped(group, dataset, reason string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.skippedRecords.WithLabelValues(group, dataset, reason).Add(float64(n))
}

// ObservePublish counts publisher outcomes.
func (c *Collector) ObservePublish(topic string, sent, rejected int) {
	if c == nil {
		return
	}
	if sent > 0 {
		c.published.WithLabelValues(topic, "sent").Add(float64(sent))
	}
	if rejected > 0 {
		c.published.WithLabelValues(topic, "rejected").Add(float64(rejected))
	}
}

// SetBuffered reports the stream buffer depth.
func (c *Collector) SetBuffered(group, dataset string, n int) {
	if c == nil {
		return
	}
	c.streamBuffered.WithLabelValues(group, dataset).Set(float64(n))
}

// Handler serves g in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
