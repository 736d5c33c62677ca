package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the ingestion service

var (
	// API Call metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nhldfs_api_calls_total",
			Help: "Total number of NHL API calls",
		},
		[]string{"endpoint", "status"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nhldfs_api_call_duration_seconds",
			Help:    "Duration of API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Fetch pipeline metrics
	GamesFetchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nhldfs_games_fetched_total",
			Help: "Total number of games fetched into staging",
		},
	)

	GamesFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nhldfs_games_failed_total",
			Help: "Total number of games that failed after all retries",
		},
	)

	FetchRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nhldfs_fetch_retries_total",
			Help: "Total number of per-game fetch retries",
		},
	)

	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nhldfs_pipeline_runs_total",
			Help: "Total number of fetch-and-promote pipeline runs",
		},
		[]string{"outcome"},
	)

	PipelineRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nhldfs_pipeline_run_duration_seconds",
			Help:    "Duration of full pipeline runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	ValidationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nhldfs_validation_failures_total",
			Help: "Total number of batch validation failures by rule",
		},
		[]string{"rule"},
	)

	RowsPromotedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nhldfs_rows_promoted_total",
			Help: "Total number of staging rows promoted to production",
		},
	)

	StagingRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nhldfs_staging_rows",
			Help: "Number of rows currently in the staging table",
		},
	)

	// Database metrics
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nhldfs_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "table", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nhldfs_db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nhldfs_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nhldfs_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nhldfs_system_uptime_seconds",
			Help: "Worker uptime in seconds",
		},
	)
)
