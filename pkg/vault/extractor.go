package vault

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/chainsafe/vault-etl/pkg/ethereum/contracts"
)

// ContractCaller executes read-only contract calls. A nil atBlock reads the latest state.
type ContractCaller interface {
	CallContractFunction(
		ctx context.Context,
		address common.Address,
		contractABI *abi.ABI,
		method string,
		atBlock *big.Int,
		args ...any,
	) ([]any, error)
}

// ExtractorOption configures an Extractor
type ExtractorOption func(*Extractor)

// WithAssetVerification makes the extractor also read the asset balance held by the vault.
func WithAssetVerification(enabled bool) ExtractorOption {
	return func(e *Extractor) {
		e.verifyAssets = enabled
	}
}

// Extractor reads raw vault state at a pinned block.
type Extractor struct {
	caller       ContractCaller
	vaultABI     *abi.ABI
	erc20ABI     *abi.ABI
	verifyAssets bool
	logger       *zap.Logger
}

// NewExtractor creates an Extractor over the given caller.
func NewExtractor(caller ContractCaller, logger *zap.Logger, opts ...ExtractorOption) (*Extractor, error) {
	vaultABI, err := contracts.ERC4626()
	if err != nil {
		return nil, fmt.Errorf("parse ERC-4626 abi: %w", err)
	}
	erc20ABI, err := contracts.ERC20()
	if err != nil {
		return nil, fmt.Errorf("parse ERC-20 abi: %w", err)
	}

	e := &Extractor{
		caller:   caller,
		vaultABI: vaultABI,
		erc20ABI: erc20ABI,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extract reads the vault at blockNumber. Failures are logged and reported as nil so that
// one broken vault never aborts the batch.
func (e *Extractor) Extract(ctx context.Context, v Vault, blockNumber uint64) *RawSnapshot {
	snapshot, err := e.extract(ctx, v, blockNumber)
	if err != nil {
		e.logger.Error("Extract failed",
			zap.String("vault", v.Address.Hex()),
			zap.String("name", v.Name),
			zap.Uint64("block", blockNumber),
			zap.Error(err))
		return nil
	}
	return snapshot
}

func (e *Extractor) extract(ctx context.Context, v Vault, blockNumber uint64) (*RawSnapshot, error) {
	block := new(big.Int).SetUint64(blockNumber)

	totalAssets, err := callOne[*big.Int](ctx, e.caller, v.Address, e.vaultABI, contracts.MethodTotalAssets, block)
	if err != nil {
		return nil, err
	}
	totalSupply, err := callOne[*big.Int](ctx, e.caller, v.Address, e.vaultABI, contracts.MethodTotalSupply, block)
	if err != nil {
		return nil, err
	}
	asset, err := callOne[common.Address](ctx, e.caller, v.Address, e.vaultABI, contracts.MethodAsset, block)
	if err != nil {
		return nil, err
	}

	if v.AssetAddress != nil && *v.AssetAddress != asset {
		e.logger.Warn("Configured asset differs from on-chain asset",
			zap.String("vault", v.Address.Hex()),
			zap.String("configured", v.AssetAddress.Hex()),
			zap.String("on_chain", asset.Hex()))
	}

	// decimals are treated as immutable and read at latest
	assetDecimals, err := callOne[uint8](ctx, e.caller, asset, e.erc20ABI, contracts.MethodDecimals, nil)
	if err != nil {
		return nil, fmt.Errorf("asset %s: %w", asset.Hex(), err)
	}

	snapshot := &RawSnapshot{
		Address:        v.Address,
		BlockNumber:    blockNumber,
		TotalAssetsRaw: totalAssets,
		TotalSupplyRaw: totalSupply,
		AssetAddress:   asset,
		AssetDecimals:  assetDecimals,
	}

	shareDecimals, err := callOne[uint8](ctx, e.caller, v.Address, e.vaultABI, contracts.MethodDecimals, nil)
	if err != nil {
		e.logger.Debug("Vault share decimals unavailable, using asset decimals",
			zap.String("vault", v.Address.Hex()),
			zap.Error(err))
	} else {
		snapshot.ShareDecimals = &shareDecimals
	}

	if e.verifyAssets {
		held, err := callOne[*big.Int](ctx, e.caller, asset, e.erc20ABI, contracts.MethodBalanceOf, block, v.Address)
		if err != nil {
			e.logger.Warn("Asset balance verification failed",
				zap.String("vault", v.Address.Hex()),
				zap.Error(err))
		} else {
			snapshot.HeldAssetsRaw = held
		}
	}

	return snapshot, nil
}

// callOne performs a call expected to return exactly one value of type T.
func callOne[T any](
	ctx context.Context,
	caller ContractCaller,
	address common.Address,
	contractABI *abi.ABI,
	method string,
	atBlock *big.Int,
	args ...any,
) (T, error) {
	var zero T

	out, err := caller.CallContractFunction(ctx, address, contractABI, method, atBlock, args...)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", method, err)
	}
	if len(out) != 1 {
		return zero, fmt.Errorf("%s: expected 1 output, got %d", method, len(out))
	}
	value, ok := out[0].(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected output type %T", method, out[0])
	}
	return value, nil
}
