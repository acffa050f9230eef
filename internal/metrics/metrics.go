package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Classifier Metrics
var (
	Classifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classifier_classifications_total",
		Help: "The total number of classified transactions by network, protocol and matching layer",
	}, []string{"network", "protocol", "layer"})

	ClassificationPanics = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classifier_recovered_panics_total",
		Help: "The number of classifications that panicked and were reported as not DeFi",
	}, []string{"network"})

	ClassificationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "classifier_duration_seconds",
		Help:    "Time spent classifying a single transaction",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})
)

// Metadata Metrics
var (
	MetadataCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metadata_cache_hits_total",
		Help: "The number of metadata lookups served from cache",
	}, []string{"kind"})

	MetadataCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metadata_cache_misses_total",
		Help: "The number of metadata lookups that went to the source",
	}, []string{"kind"})

	MetadataSourceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metadata_source_errors_total",
		Help: "The number of failed on-chain metadata calls",
	}, []string{"network", "call"})
)

// Explorer Metrics
var (
	ExplorerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_requests_total",
		Help: "The number of explorer API requests",
	}, []string{"network", "action"})

	ExplorerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_failures_total",
		Help: "The number of explorer API requests that failed after retries",
	}, []string{"network", "action"})

	ExplorerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "explorer_request_duration_seconds",
		Help: "Time taken by explorer API requests",
	}, []string{"network"})

	RPCFallbackScans = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rpc_fallback_scans_total",
		Help: "The number of wallet scans served by the RPC block scan fallback",
	}, []string{"network"})
)

// Pricing Metrics
var (
	PriceLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_lookups_total",
		Help: "The number of price lookups by kind and outcome",
	}, []string{"kind", "outcome"})
)

// Job Metrics
var (
	JobsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobs_started_total",
		Help: "The number of export jobs started",
	})

	JobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobs_finished_total",
		Help: "The number of export jobs finished by final status",
	}, []string{"status"})

	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Time taken by an export job from start to completion",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	TransactionsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "job_transactions_processed_total",
		Help: "The number of transactions processed by export jobs",
	}, []string{"network"})
)

// Storage Metrics
var (
	StorageInsertDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "storage_insert_duration_seconds",
		Help: "Time taken to insert rows into the main storage",
	}, []string{"driver", "table"})

	ReportUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "report_uploads_total",
		Help: "The number of report uploads to object storage by outcome",
	}, []string{"outcome"})
)
