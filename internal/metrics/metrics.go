package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Normalization metrics
	LinesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lognorm_lines_total",
			Help: "Total number of non-blank input lines by format and outcome",
		},
		[]string{"format", "outcome"},
	)

	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lognorm_records_total",
			Help: "Total number of normalized records by format, event type and severity",
		},
		[]string{"format", "event_type", "severity"},
	)

	NormalizationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lognorm_normalization_duration_seconds",
			Help:    "Duration of normalizing one input source in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"format"},
	)

	// Batch metrics
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lognorm_batches_total",
			Help: "Total number of ingestion batches by status",
		},
		[]string{"status"},
	)

	FilesFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lognorm_files_failed_total",
			Help: "Total number of input files that could not be read",
		},
	)

	InputBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lognorm_input_bytes_total",
			Help: "Total bytes of input text read",
		},
	)

	// Store metrics
	StoredRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lognorm_stored_records",
			Help: "Number of records currently held in the record store",
		},
	)

	// Sink metrics
	SinkRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lognorm_sink_records_total",
			Help: "Total number of records forwarded to sinks by sink and status",
		},
		[]string{"sink", "status"},
	)

	SinkErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lognorm_sink_errors_total",
			Help: "Total number of sink write failures",
		},
		[]string{"sink"},
	)

	// Scan history metrics
	HistoryEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lognorm_scan_history_entries",
			Help: "Number of entries in the scan history ring",
		},
	)
)

// Line outcomes used with LinesTotal.
const (
	OutcomeParsed  = "parsed"
	OutcomeSkipped = "skipped"
	OutcomeDropped = "dropped"
)

// WriteTextfile writes every registered metric to path in the Prometheus text
// format, for collection by the node exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
