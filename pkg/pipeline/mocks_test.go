package pipeline

import (
	"context"
	"math/big"
	"time"

	"github.com/chainsafe/vault-etl/pkg/vault"
)

// MockChain is a mock implementation of ChainClient
type MockChain struct {
	ConnectFunc            func(ctx context.Context) error
	ChainIDValue           *big.Int
	CurrentBlockNumberFunc func(ctx context.Context) (uint64, error)
	BlockTimestampFunc     func(ctx context.Context, blockNumber uint64) (time.Time, error)

	closed int
}

func (m *MockChain) Connect(ctx context.Context) error {
	if m.ConnectFunc != nil {
		return m.ConnectFunc(ctx)
	}
	return nil
}

func (m *MockChain) Close() {
	m.closed++
}

func (m *MockChain) ChainID() *big.Int {
	return m.ChainIDValue
}

func (m *MockChain) CurrentBlockNumber(ctx context.Context) (uint64, error) {
	if m.CurrentBlockNumberFunc != nil {
		return m.CurrentBlockNumberFunc(ctx)
	}
	return 0, nil
}

func (m *MockChain) BlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error) {
	if m.BlockTimestampFunc != nil {
		return m.BlockTimestampFunc(ctx, blockNumber)
	}
	return time.Time{}, nil
}

// MockExtractor is a mock implementation of vault.SnapshotExtractor
type MockExtractor struct {
	ExtractFunc func(ctx context.Context, v vault.Vault, blockNumber uint64) *vault.RawSnapshot
}

func (m *MockExtractor) Extract(ctx context.Context, v vault.Vault, blockNumber uint64) *vault.RawSnapshot {
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, v, blockNumber)
	}
	return nil
}

// MockHistory is a mock implementation of vault.HistorySource
type MockHistory struct {
	CollectHistoryFunc func(ctx context.Context, v vault.Vault, hoursBack, samplesPerHour int, atOrBeforeBlock uint64) ([]*vault.RawSnapshot, error)
}

func (m *MockHistory) CollectHistory(
	ctx context.Context,
	v vault.Vault,
	hoursBack int,
	samplesPerHour int,
	atOrBeforeBlock uint64,
) ([]*vault.RawSnapshot, error) {
	if m.CollectHistoryFunc != nil {
		return m.CollectHistoryFunc(ctx, v, hoursBack, samplesPerHour, atOrBeforeBlock)
	}
	return nil, nil
}

// MockStore is a mock implementation of vaultstore.Store
type MockStore struct {
	EnsureVaultFunc  func(ctx context.Context, v vault.Vault) (int64, error)
	LoadMetricsFunc  func(ctx context.Context, metrics []*vault.Metric) (int, error)
	NeedsHistoryFunc func(ctx context.Context, v vault.Vault, hoursBack int) (bool, error)

	loads [][]*vault.Metric
}

func (m *MockStore) EnsureVault(ctx context.Context, v vault.Vault) (int64, error) {
	if m.EnsureVaultFunc != nil {
		return m.EnsureVaultFunc(ctx, v)
	}
	return 1, nil
}

func (m *MockStore) LoadMetrics(ctx context.Context, metrics []*vault.Metric) (int, error) {
	m.loads = append(m.loads, metrics)
	if m.LoadMetricsFunc != nil {
		return m.LoadMetricsFunc(ctx, metrics)
	}
	return len(metrics), nil
}

func (m *MockStore) NeedsHistory(ctx context.Context, v vault.Vault, hoursBack int) (bool, error) {
	if m.NeedsHistoryFunc != nil {
		return m.NeedsHistoryFunc(ctx, v, hoursBack)
	}
	return false, nil
}
