package vault

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// callKey identifies a contract call in MockCaller.
type callKey struct {
	address common.Address
	method  string
}

// MockCaller is a ContractCaller answering from a fixed table.
type MockCaller struct {
	Results map[callKey][]any
	Errors  map[callKey]error
	Calls   []MockCall
}

// MockCall records one call made to MockCaller.
type MockCall struct {
	Address common.Address
	Method  string
	AtBlock *big.Int
	Args    []any
}

func newMockCaller() *MockCaller {
	return &MockCaller{
		Results: make(map[callKey][]any),
		Errors:  make(map[callKey]error),
	}
}

func (m *MockCaller) set(address common.Address, method string, out ...any) {
	m.Results[callKey{address, method}] = out
}

func (m *MockCaller) fail(address common.Address, method string, err error) {
	m.Errors[callKey{address, method}] = err
}

func (m *MockCaller) CallContractFunction(
	_ context.Context,
	address common.Address,
	_ *abi.ABI,
	method string,
	atBlock *big.Int,
	args ...any,
) ([]any, error) {
	m.Calls = append(m.Calls, MockCall{Address: address, Method: method, AtBlock: atBlock, Args: args})

	key := callKey{address, method}
	if err, ok := m.Errors[key]; ok {
		return nil, err
	}
	if out, ok := m.Results[key]; ok {
		return out, nil
	}
	return nil, errors.New("execution reverted")
}

func (m *MockCaller) callsTo(method string) []MockCall {
	var calls []MockCall
	for _, c := range m.Calls {
		if c.Method == method {
			calls = append(calls, c)
		}
	}
	return calls
}

// MockExtractor is a SnapshotExtractor backed by a function.
type MockExtractor struct {
	ExtractFunc func(ctx context.Context, v Vault, blockNumber uint64) *RawSnapshot
}

func (m *MockExtractor) Extract(ctx context.Context, v Vault, blockNumber uint64) *RawSnapshot {
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, v, blockNumber)
	}
	return nil
}

// MockBlockTimer is a BlockTimer backed by a function.
type MockBlockTimer struct {
	BlockTimestampFunc func(ctx context.Context, blockNumber uint64) (time.Time, error)
}

func (m *MockBlockTimer) BlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error) {
	if m.BlockTimestampFunc != nil {
		return m.BlockTimestampFunc(ctx, blockNumber)
	}
	return time.Time{}, nil
}
