package vault

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// HistorySource produces past snapshots of a vault, newest first, each with SampledAt set.
// Samples are spaced 1h/samplesPerHour apart and cover hoursBack hours ending at atOrBeforeBlock.
type HistorySource interface {
	CollectHistory(
		ctx context.Context,
		v Vault,
		hoursBack int,
		samplesPerHour int,
		atOrBeforeBlock uint64,
	) ([]*RawSnapshot, error)
}

const (
	simulatedAnchorBlock = 22_070_000
	simulatedBlockStep   = 12
	simulatedDecimals    = 6
)

var (
	simulatedBaseAssets = new(big.Int).Mul(big.NewInt(150_000_000), big.NewInt(1_000_000))
	simulatedBaseSupply = new(big.Int).Mul(big.NewInt(100_000_000), big.NewInt(1_000_000))
	// 0.005% of the base TVL lost per sample
	simulatedDecay = decimal.New(5, -5)
	// USDC on Ethereum mainnet
	simulatedAsset = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
)

// SimulatedHistorySource fabricates a deterministic, linearly decaying series.
// It stands in for ArchiveHistorySource where no archive node is available.
// The newest sample is one interval before now, so it stays older than the current row.
type SimulatedHistorySource struct {
	now func() time.Time
}

// NewSimulatedHistorySource creates a simulated source. A nil clock defaults to time.Now.
func NewSimulatedHistorySource(now func() time.Time) *SimulatedHistorySource {
	if now == nil {
		now = time.Now
	}
	return &SimulatedHistorySource{now: now}
}

// CollectHistory implements HistorySource.
func (s *SimulatedHistorySource) CollectHistory(
	_ context.Context,
	v Vault,
	hoursBack int,
	samplesPerHour int,
	atOrBeforeBlock uint64,
) ([]*RawSnapshot, error) {
	if hoursBack <= 0 || samplesPerHour <= 0 {
		return nil, nil
	}

	anchor := atOrBeforeBlock
	if anchor == 0 {
		anchor = simulatedAnchorBlock
	}
	asset := simulatedAsset
	if v.AssetAddress != nil {
		asset = *v.AssetAddress
	}

	interval := time.Hour / time.Duration(samplesPerHour)
	now := s.now().UTC()
	base := decimal.NewFromBigInt(simulatedBaseAssets, 0)

	total := hoursBack * samplesPerHour
	snapshots := make([]*RawSnapshot, 0, total)
	for i := 0; i < total; i++ {
		offset := uint64(i) * simulatedBlockStep
		if offset >= anchor {
			break
		}

		factor := decimal.NewFromInt(1).Sub(simulatedDecay.Mul(decimal.NewFromInt(int64(i))))
		if factor.IsNegative() {
			factor = decimal.Zero
		}

		snapshots = append(snapshots, &RawSnapshot{
			Address:        v.Address,
			BlockNumber:    anchor - offset,
			TotalAssetsRaw: base.Mul(factor).BigInt(),
			TotalSupplyRaw: new(big.Int).Set(simulatedBaseSupply),
			AssetAddress:   asset,
			AssetDecimals:  simulatedDecimals,
			SampledAt:      now.Add(-time.Duration(i+1) * interval),
		})
	}
	return snapshots, nil
}

// SnapshotExtractor reads a vault at a block; nil means the read failed and was logged.
type SnapshotExtractor interface {
	Extract(ctx context.Context, v Vault, blockNumber uint64) *RawSnapshot
}

// BlockTimer resolves block timestamps.
type BlockTimer interface {
	BlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error)
}

// ArchiveHistorySource reads real past state from an archive node through the Extractor.
type ArchiveHistorySource struct {
	extractor SnapshotExtractor
	blocks    BlockTimer
	blockTime time.Duration
	logger    *zap.Logger
}

// NewArchiveHistorySource creates an archive-backed source. blockTime is the expected
// average block interval used to convert sample spacing into block distance.
func NewArchiveHistorySource(
	extractor SnapshotExtractor,
	blocks BlockTimer,
	blockTime time.Duration,
	logger *zap.Logger,
) *ArchiveHistorySource {
	return &ArchiveHistorySource{
		extractor: extractor,
		blocks:    blocks,
		blockTime: blockTime,
		logger:    logger,
	}
}

// CollectHistory implements HistorySource. Samples that cannot be read are skipped.
func (a *ArchiveHistorySource) CollectHistory(
	ctx context.Context,
	v Vault,
	hoursBack int,
	samplesPerHour int,
	atOrBeforeBlock uint64,
) ([]*RawSnapshot, error) {
	if hoursBack <= 0 || samplesPerHour <= 0 {
		return nil, nil
	}

	step := uint64(1)
	if a.blockTime > 0 {
		if s := uint64((time.Hour / time.Duration(samplesPerHour)) / a.blockTime); s > 0 {
			step = s
		}
	}

	total := hoursBack * samplesPerHour
	snapshots := make([]*RawSnapshot, 0, total)
	skipped := 0
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		offset := uint64(i) * step
		if offset > atOrBeforeBlock {
			break
		}
		block := atOrBeforeBlock - offset

		snapshot := a.extractor.Extract(ctx, v, block)
		if snapshot == nil {
			skipped++
			continue
		}

		ts, err := a.blocks.BlockTimestamp(ctx, block)
		if err != nil {
			a.logger.Warn("Block timestamp unavailable, skipping sample",
				zap.Uint64("block", block),
				zap.Error(err))
			skipped++
			continue
		}
		snapshot.SampledAt = ts
		snapshots = append(snapshots, snapshot)
	}

	if skipped > 0 {
		a.logger.Warn("Archive history incomplete",
			zap.String("vault", v.Address.Hex()),
			zap.Int("collected", len(snapshots)),
			zap.Int("skipped", skipped))
	}
	return snapshots, nil
}
