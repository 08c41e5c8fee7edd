package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Extractor Metrics
var (
	ExtractDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "extract_duration_seconds",
		Help:    "Time taken by the extraction subprocess",
		Buckets: prometheus.DefBuckets,
	})

	ExportedBlocks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "extract_exported_blocks",
		Help: "The number of block rows in the last export",
	})

	ExportedTransactions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "extract_exported_transactions",
		Help: "The number of transaction rows in the last export",
	})

	MissingBlocks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "extract_missing_blocks",
		Help: "The number of blocks in the requested range absent from the last export",
	})
)

// Warehouse Metrics
var (
	LoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "warehouse_load_duration_seconds",
		Help:    "Time taken to submit and await the warehouse load job",
		Buckets: prometheus.DefBuckets,
	})

	RowsLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warehouse_rows_loaded_total",
		Help: "The total number of rows written by warehouse load jobs",
	})

	LastLoadedBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "warehouse_last_loaded_block",
		Help: "The end block of the last successfully loaded range",
	})
)

// Optional sink Metrics
var (
	ArchiveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "archive_duration_seconds",
		Help:    "Time taken to write and upload export archives",
		Buckets: prometheus.DefBuckets,
	})

	ClickHouseTransactionsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clickhouse_transactions_inserted_total",
		Help: "The total number of transactions mirrored into ClickHouse",
	})
)

// Run Metrics
var (
	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_runs_total",
		Help: "Ingestion runs by outcome",
	}, []string{"status"})

	StageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_stage_failures_total",
		Help: "Ingestion failures by stage",
	}, []string{"stage"})
)

// Push sends the default registry to a Pushgateway. No-op when gatewayURL is empty.
func Push(gatewayURL string, job string) error {
	if gatewayURL == "" {
		return nil
	}
	if err := push.New(gatewayURL, job).Gatherer(prometheus.DefaultGatherer).Push(); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
