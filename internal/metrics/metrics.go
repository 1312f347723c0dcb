package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes used as the status label of RunsTotal
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metric sources used as the source label of MetricsLoaded
const (
	SourceCurrent = "current"
	SourceHistory = "history"
)

var (
	// RunsTotal counts ETL passes by outcome
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_etl_runs_total",
			Help: "Total number of ETL passes",
		},
		[]string{"status"},
	)

	// RunDuration tracks the wall time of a pass
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vault_etl_run_duration_seconds",
			Help:    "ETL pass duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// LastSuccessTimestamp is the unix time of the last successful pass
	LastSuccessTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vault_etl_last_success_timestamp_seconds",
			Help: "Unix time of the last successful ETL pass",
		},
	)

	// MetricsLoaded counts performance rows written by source
	MetricsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_etl_metrics_loaded_total",
			Help: "Total number of vault performance rows written",
		},
		[]string{"source"},
	)

	// ExtractionFailures counts vaults skipped because their on-chain read failed
	ExtractionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_etl_extraction_failures_total",
			Help: "Total number of failed vault extractions",
		},
		[]string{"chain_id", "vault"},
	)

	// BackfillsTotal counts history backfills performed per vault
	BackfillsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_etl_backfills_total",
			Help: "Total number of history backfills",
		},
		[]string{"chain_id", "vault"},
	)

	// CurrentBlock tracks the block the last pass was pinned to
	CurrentBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vault_etl_current_block",
			Help: "Block number the last pass read at",
		},
	)

	// VaultTVL tracks the latest asset-denominated TVL per vault
	VaultTVL = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vault_tvl_assets",
			Help: "Latest total value locked in asset units",
		},
		[]string{"chain_id", "vault", "symbol"},
	)

	// VaultSharePrice tracks the latest share price per vault
	VaultSharePrice = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vault_share_price",
			Help: "Latest assets per share",
		},
		[]string{"chain_id", "vault", "symbol"},
	)

	// VaultAssetDiscrepancy tracks how far totalAssets is from the asset balance held by the vault, in percent
	VaultAssetDiscrepancy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vault_asset_discrepancy_percent",
			Help: "Difference between reported totalAssets and held asset balance, in percent",
		},
		[]string{"chain_id", "vault", "symbol"},
	)
)
