// Package vault extracts and normalizes ERC-4626 vault accounting data.
package vault

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/chainsafe/vault-etl/pkg/config"
)

// Vault is a configured ERC-4626 vault. Identity is (ChainID, Address).
type Vault struct {
	ChainID      int64
	Address      common.Address
	Name         string
	Symbol       string
	AssetAddress *common.Address
}

// FromConfig converts a configured vault entry.
func FromConfig(cfg config.VaultConfig) Vault {
	v := Vault{
		ChainID: cfg.ChainID,
		Address: common.HexToAddress(cfg.Address),
		Name:    cfg.Name,
		Symbol:  cfg.Symbol,
	}
	if cfg.AssetAddress != "" {
		asset := common.HexToAddress(cfg.AssetAddress)
		v.AssetAddress = &asset
	}
	return v
}

// FromConfigs converts all configured vaults, preserving order.
func FromConfigs(cfgs []config.VaultConfig) []Vault {
	vaults := make([]Vault, len(cfgs))
	for i, cfg := range cfgs {
		vaults[i] = FromConfig(cfg)
	}
	return vaults
}

// RawSnapshot is the unscaled on-chain state of a vault at one block.
// It is never persisted.
type RawSnapshot struct {
	Address        common.Address
	BlockNumber    uint64
	TotalAssetsRaw *big.Int
	TotalSupplyRaw *big.Int
	AssetAddress   common.Address
	AssetDecimals  uint8
	// ShareDecimals is the vault share token precision; nil means "same as the asset".
	ShareDecimals *uint8
	// HeldAssetsRaw is the asset balance held directly by the vault, when verified.
	HeldAssetsRaw *big.Int
	// SampledAt is set by history sources; current snapshots use the block timestamp.
	SampledAt time.Time
}

// Metric is one normalized time-series row of vault performance.
type Metric struct {
	Vault       Vault
	BlockNumber uint64
	Timestamp   time.Time
	// TVL is denominated in the underlying asset; no price conversion is applied.
	TVL           decimal.Decimal
	SharePrice    decimal.Decimal
	TotalSupply   decimal.Decimal
	AssetDecimals uint8
	ShareDecimals uint8
}
