package vault

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSimulatedHistory_SampleCount(t *testing.T) {
	src := NewSimulatedHistorySource(fixedClock(testBlockTime))

	snapshots, err := src.CollectHistory(context.Background(), testVault, 24, 4, 0)
	require.NoError(t, err)
	require.Len(t, snapshots, 96)

	assert.Equal(t, uint64(simulatedAnchorBlock), snapshots[0].BlockNumber)
	assert.Equal(t, testBlockTime.Add(-15*time.Minute), snapshots[0].SampledAt)

	for i := 1; i < len(snapshots); i++ {
		prev, cur := snapshots[i-1], snapshots[i]
		assert.Less(t, cur.BlockNumber, prev.BlockNumber, "sample %d", i)
		assert.LessOrEqual(t, cur.TotalAssetsRaw.Cmp(prev.TotalAssetsRaw), 0, "sample %d", i)
		assert.Equal(t, 15*time.Minute, prev.SampledAt.Sub(cur.SampledAt), "sample %d", i)
		assert.Equal(t, testVaultAddr, cur.Address)
	}
}

func TestSimulatedHistory_TransformsToDecayingTVL(t *testing.T) {
	src := NewSimulatedHistorySource(fixedClock(testBlockTime))

	snapshots, err := src.CollectHistory(context.Background(), testVault, 1, 4, 0)
	require.NoError(t, err)
	require.Len(t, snapshots, 4)

	first := Transform(snapshots[0], testVault, snapshots[0].SampledAt)
	require.NotNil(t, first)
	assert.Equal(t, "150000000", first.TVL.String())
	assert.Equal(t, "1.5", first.SharePrice.String())

	last := Transform(snapshots[3], testVault, snapshots[3].SampledAt)
	require.NotNil(t, last)
	assert.True(t, last.TVL.LessThan(first.TVL))
	assert.Equal(t, testBlockTime.Add(-time.Hour), last.Timestamp)
}

func TestSimulatedHistory_AnchorsAtGivenBlock(t *testing.T) {
	src := NewSimulatedHistorySource(fixedClock(testBlockTime))

	snapshots, err := src.CollectHistory(context.Background(), testVault, 1, 2, 1000)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, uint64(1000), snapshots[0].BlockNumber)
	assert.Equal(t, uint64(1000-simulatedBlockStep), snapshots[1].BlockNumber)
}

func TestSimulatedHistory_StopsAtGenesis(t *testing.T) {
	src := NewSimulatedHistorySource(fixedClock(testBlockTime))

	snapshots, err := src.CollectHistory(context.Background(), testVault, 24, 4, 30)
	require.NoError(t, err)
	// offsets 0, 12, 24 fit below block 30
	require.Len(t, snapshots, 3)
	assert.Equal(t, uint64(6), snapshots[2].BlockNumber)
}

func TestSimulatedHistory_UsesConfiguredAsset(t *testing.T) {
	v := FromConfig(testVaultConfig())
	v.AssetAddress = &testVaultAddr

	snapshots, err := NewSimulatedHistorySource(nil).CollectHistory(context.Background(), v, 1, 1, 0)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, testVaultAddr, snapshots[0].AssetAddress)
}

func TestSimulatedHistory_EmptyWindow(t *testing.T) {
	src := NewSimulatedHistorySource(nil)

	for _, tc := range [][2]int{{0, 4}, {24, 0}, {-1, 4}} {
		snapshots, err := src.CollectHistory(context.Background(), testVault, tc[0], tc[1], 0)
		require.NoError(t, err)
		assert.Empty(t, snapshots)
	}
}

func archiveFixture(failBlocks map[uint64]bool) (*MockExtractor, *MockBlockTimer, *[]uint64) {
	var requested []uint64
	extractor := &MockExtractor{
		ExtractFunc: func(_ context.Context, v Vault, blockNumber uint64) *RawSnapshot {
			requested = append(requested, blockNumber)
			if failBlocks[blockNumber] {
				return nil
			}
			return &RawSnapshot{
				Address:        v.Address,
				BlockNumber:    blockNumber,
				TotalAssetsRaw: big.NewInt(int64(blockNumber)),
				TotalSupplyRaw: big.NewInt(1),
				AssetDecimals:  6,
			}
		},
	}
	blocks := &MockBlockTimer{
		BlockTimestampFunc: func(_ context.Context, blockNumber uint64) (time.Time, error) {
			return time.Unix(int64(blockNumber)*12, 0).UTC(), nil
		},
	}
	return extractor, blocks, &requested
}

func TestArchiveHistory_BlockSpacing(t *testing.T) {
	extractor, blocks, requested := archiveFixture(nil)
	src := NewArchiveHistorySource(extractor, blocks, 12*time.Second, zap.NewNop())

	snapshots, err := src.CollectHistory(context.Background(), testVault, 2, 4, 10_000)
	require.NoError(t, err)
	require.Len(t, snapshots, 8)

	// 15 minutes at 12s blocks is 75 blocks
	assert.Equal(t, []uint64{10_000, 9925, 9850, 9775, 9700, 9625, 9550, 9475}, *requested)
	for i, s := range snapshots {
		assert.Equal(t, time.Unix(int64(s.BlockNumber)*12, 0).UTC(), s.SampledAt, "sample %d", i)
	}
}

func TestArchiveHistory_SkipsFailedSamples(t *testing.T) {
	extractor, blocks, _ := archiveFixture(map[uint64]bool{9925: true})
	blocks.BlockTimestampFunc = func(_ context.Context, blockNumber uint64) (time.Time, error) {
		if blockNumber == 9850 {
			return time.Time{}, errors.New("header not found")
		}
		return testBlockTime, nil
	}
	src := NewArchiveHistorySource(extractor, blocks, 12*time.Second, zap.NewNop())

	snapshots, err := src.CollectHistory(context.Background(), testVault, 1, 4, 10_000)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, uint64(10_000), snapshots[0].BlockNumber)
	assert.Equal(t, uint64(9775), snapshots[1].BlockNumber)
}

func TestArchiveHistory_StepFloor(t *testing.T) {
	extractor, blocks, requested := archiveFixture(nil)
	// block time longer than the sample interval still advances one block per sample
	src := NewArchiveHistorySource(extractor, blocks, 2*time.Hour, zap.NewNop())

	_, err := src.CollectHistory(context.Background(), testVault, 1, 3, 50)
	require.NoError(t, err)
	assert.Equal(t, []uint64{50, 49, 48}, *requested)
}

func TestArchiveHistory_StopsAtGenesis(t *testing.T) {
	extractor, blocks, requested := archiveFixture(nil)
	src := NewArchiveHistorySource(extractor, blocks, 12*time.Second, zap.NewNop())

	_, err := src.CollectHistory(context.Background(), testVault, 24, 4, 100)
	require.NoError(t, err)
	assert.Equal(t, []uint64{100, 25}, *requested)
}

func TestArchiveHistory_ContextCancelled(t *testing.T) {
	extractor, blocks, requested := archiveFixture(nil)
	src := NewArchiveHistorySource(extractor, blocks, 12*time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snapshots, err := src.CollectHistory(ctx, testVault, 24, 4, 10_000)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, snapshots)
	assert.Empty(t, *requested)
}
