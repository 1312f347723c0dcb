// Package pipeline runs one extract-transform-load pass over the configured vaults.
package pipeline

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chainsafe/vault-etl/internal/metrics"
	"github.com/chainsafe/vault-etl/pkg/vault"
	"github.com/chainsafe/vault-etl/pkg/vaultstore"
)

// ChainClient is the part of the chain client a pass needs.
type ChainClient interface {
	Connect(ctx context.Context) error
	Close()
	ChainID() *big.Int
	CurrentBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error)
}

// Options wires the collaborators of a Pipeline
type Options struct {
	Chain          ChainClient
	Extractor      vault.SnapshotExtractor
	History        vault.HistorySource
	Store          vaultstore.Store
	Vaults         []vault.Vault
	HoursBack      int
	SamplesPerHour int
	Logger         *zap.Logger
}

// Pipeline drives Connect, CollectCurrent, LoadCurrent and per-vault backfill.
type Pipeline struct {
	chain          ChainClient
	extractor      vault.SnapshotExtractor
	history        vault.HistorySource
	store          vaultstore.Store
	vaults         []vault.Vault
	hoursBack      int
	samplesPerHour int
	logger         *zap.Logger
}

// Summary describes a finished pass.
type Summary struct {
	RunID         string
	Block         uint64
	Collected     int
	Skipped       int
	CurrentLoaded int
	Backfilled    []vault.Vault
	HistoryLoaded int
}

// New creates a Pipeline. A nil logger discards output.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		chain:          opts.Chain,
		extractor:      opts.Extractor,
		history:        opts.History,
		store:          opts.Store,
		vaults:         opts.Vaults,
		hoursBack:      opts.HoursBack,
		samplesPerHour: opts.SamplesPerHour,
		logger:         logger,
	}
}

// Run performs exactly one pass. Any error it returns has already been logged
// and means the pass failed as a whole; per-vault extraction failures are not errors.
func (p *Pipeline) Run(ctx context.Context) error {
	_, err := p.RunPass(ctx)
	return err
}

// RunPass is Run that also reports what the pass did.
func (p *Pipeline) RunPass(ctx context.Context) (*Summary, error) {
	summary := &Summary{RunID: uuid.NewString()}
	logger := p.logger.With(zap.String("run_id", summary.RunID))

	start := time.Now()
	logger.Info("Starting vault ETL", zap.Int("vaults", len(p.vaults)))

	err := p.run(ctx, logger, summary)
	metrics.RunDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RunsTotal.WithLabelValues(metrics.StatusFailure).Inc()
		logger.Error("ETL failed", zap.Error(err))
		return summary, err
	}

	metrics.RunsTotal.WithLabelValues(metrics.StatusSuccess).Inc()
	metrics.LastSuccessTimestamp.SetToCurrentTime()
	logger.Info("ETL completed",
		zap.Uint64("block", summary.Block),
		zap.Int("collected", summary.Collected),
		zap.Int("skipped", summary.Skipped),
		zap.Int("current_loaded", summary.CurrentLoaded),
		zap.Int("backfilled_vaults", len(summary.Backfilled)),
		zap.Int("history_loaded", summary.HistoryLoaded),
		zap.Duration("duration", time.Since(start)))
	return summary, nil
}

func (p *Pipeline) run(ctx context.Context, logger *zap.Logger, summary *Summary) error {
	if err := p.chain.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to chain: %w", err)
	}
	defer p.chain.Close()

	vaults := p.vaultsOnChain(logger)

	current, err := p.collectCurrent(ctx, logger, vaults, summary)
	if err != nil {
		return err
	}

	loaded, err := p.store.LoadMetrics(ctx, current)
	if err != nil {
		return fmt.Errorf("failed to load current metrics: %w", err)
	}
	summary.CurrentLoaded = loaded
	metrics.MetricsLoaded.WithLabelValues(metrics.SourceCurrent).Add(float64(loaded))
	logger.Info("Saved current metrics", zap.Int("rows", loaded))

	if p.hoursBack <= 0 {
		return nil
	}

	// history ends strictly before the block the current sample was taken at
	var anchor uint64
	if summary.Block > 0 {
		anchor = summary.Block - 1
	}
	for _, v := range vaults {
		if err := p.backfill(ctx, logger, v, anchor, summary); err != nil {
			return err
		}
	}
	return nil
}

// vaultsOnChain drops vaults that belong to a different chain than the connected endpoint.
func (p *Pipeline) vaultsOnChain(logger *zap.Logger) []vault.Vault {
	chainID := p.chain.ChainID()
	if chainID == nil {
		return p.vaults
	}

	vaults := make([]vault.Vault, 0, len(p.vaults))
	for _, v := range p.vaults {
		if chainID.Cmp(big.NewInt(v.ChainID)) != 0 {
			logger.Warn("Vault is configured for another chain, skipping",
				zap.String("vault", v.Address.Hex()),
				zap.Int64("vault_chain_id", v.ChainID),
				zap.String("connected_chain_id", chainID.String()))
			continue
		}
		vaults = append(vaults, v)
	}
	return vaults
}

func (p *Pipeline) collectCurrent(
	ctx context.Context,
	logger *zap.Logger,
	vaults []vault.Vault,
	summary *Summary,
) ([]*vault.Metric, error) {
	block, err := p.chain.CurrentBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current block: %w", err)
	}
	blockTime, err := p.chain.BlockTimestamp(ctx, block)
	if err != nil {
		return nil, fmt.Errorf("failed to get block %d timestamp: %w", block, err)
	}
	summary.Block = block
	metrics.CurrentBlock.Set(float64(block))

	logger.Info("Current block",
		zap.Uint64("block", block),
		zap.Time("block_time", blockTime))

	current := make([]*vault.Metric, 0, len(vaults))
	for _, v := range vaults {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		logger.Info("Extracting vault",
			zap.String("name", v.Name),
			zap.String("vault", v.Address.Hex()),
			zap.Uint64("block", block))

		snapshot := p.extractor.Extract(ctx, v, block)
		m := vault.Transform(snapshot, v, blockTime)
		if m == nil {
			summary.Skipped++
			metrics.ExtractionFailures.WithLabelValues(chainLabel(v), v.Address.Hex()).Inc()
			continue
		}

		observe(logger, v, snapshot, m)
		current = append(current, m)
	}
	summary.Collected = len(current)
	return current, nil
}

func (p *Pipeline) backfill(
	ctx context.Context,
	logger *zap.Logger,
	v vault.Vault,
	anchor uint64,
	summary *Summary,
) error {
	needed, err := p.store.NeedsHistory(ctx, v, p.hoursBack)
	if err != nil {
		return fmt.Errorf("failed to check history of %s: %w", v.Address.Hex(), err)
	}
	if !needed {
		logger.Debug("History present", zap.String("name", v.Name))
		return nil
	}

	logger.Info("History needed",
		zap.String("name", v.Name),
		zap.String("vault", v.Address.Hex()),
		zap.Int("hours_back", p.hoursBack),
		zap.Int("samples_per_hour", p.samplesPerHour))

	snapshots, err := p.history.CollectHistory(ctx, v, p.hoursBack, p.samplesPerHour, anchor)
	if err != nil {
		return fmt.Errorf("failed to collect history of %s: %w", v.Address.Hex(), err)
	}

	batch := make([]*vault.Metric, 0, len(snapshots))
	for _, s := range snapshots {
		if s == nil {
			continue
		}
		if m := vault.Transform(s, v, s.SampledAt); m != nil {
			batch = append(batch, m)
		}
	}

	loaded, err := p.store.LoadMetrics(ctx, batch)
	if err != nil {
		return fmt.Errorf("failed to load history of %s: %w", v.Address.Hex(), err)
	}

	summary.Backfilled = append(summary.Backfilled, v)
	summary.HistoryLoaded += loaded
	metrics.BackfillsTotal.WithLabelValues(chainLabel(v), v.Address.Hex()).Inc()
	metrics.MetricsLoaded.WithLabelValues(metrics.SourceHistory).Add(float64(loaded))

	fields := []zap.Field{
		zap.String("name", v.Name),
		zap.Int("generated", len(batch)),
		zap.Int("rows", loaded),
	}
	if len(batch) > 0 {
		fields = append(fields,
			zap.String("tvl_newest", batch[0].TVL.String()),
			zap.String("tvl_oldest", batch[len(batch)-1].TVL.String()))
	}
	logger.Info("Saved history", fields...)
	return nil
}

// observe publishes the latest values of a vault as gauges.
func observe(logger *zap.Logger, v vault.Vault, snapshot *vault.RawSnapshot, m *vault.Metric) {
	labels := []string{chainLabel(v), v.Address.Hex(), v.Symbol}

	tvl, _ := m.TVL.Float64()
	price, _ := m.SharePrice.Float64()
	metrics.VaultTVL.WithLabelValues(labels...).Set(tvl)
	metrics.VaultSharePrice.WithLabelValues(labels...).Set(price)

	logger.Info("Vault metrics",
		zap.String("name", v.Name),
		zap.String("tvl", m.TVL.String()),
		zap.String("share_price", m.SharePrice.String()),
		zap.String("total_supply", m.TotalSupply.String()))

	pct, ok := vault.AssetDiscrepancyPct(snapshot)
	if !ok {
		return
	}
	f, _ := pct.Float64()
	metrics.VaultAssetDiscrepancy.WithLabelValues(labels...).Set(f)
	logger.Info("Asset verification",
		zap.String("name", v.Name),
		zap.String("held_assets", vault.Scale(snapshot.HeldAssetsRaw, snapshot.AssetDecimals).String()),
		zap.String("reported_assets", m.TVL.String()),
		zap.String("discrepancy_pct", pct.StringFixed(4)))
}

func chainLabel(v vault.Vault) string {
	return strconv.FormatInt(v.ChainID, 10)
}
