package vault

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// sharePricePrecision is the number of decimal places kept for share prices.
const sharePricePrecision = 18

// Transform scales a raw snapshot into a Metric. A nil snapshot (failed extraction) yields nil.
func Transform(snapshot *RawSnapshot, v Vault, blockTimestamp time.Time) *Metric {
	if snapshot == nil {
		return nil
	}

	shareDecimals := snapshot.AssetDecimals
	if snapshot.ShareDecimals != nil {
		shareDecimals = *snapshot.ShareDecimals
	}

	totalAssets := Scale(snapshot.TotalAssetsRaw, snapshot.AssetDecimals)
	totalSupply := Scale(snapshot.TotalSupplyRaw, shareDecimals)

	sharePrice := decimal.Zero
	if totalSupply.IsPositive() {
		sharePrice = totalAssets.DivRound(totalSupply, sharePricePrecision)
	}

	return &Metric{
		Vault:         v,
		BlockNumber:   snapshot.BlockNumber,
		Timestamp:     blockTimestamp,
		TVL:           totalAssets,
		SharePrice:    sharePrice,
		TotalSupply:   totalSupply,
		AssetDecimals: snapshot.AssetDecimals,
		ShareDecimals: shareDecimals,
	}
}

// AssetDiscrepancyPct compares the reported totalAssets with the asset balance the vault holds
// directly: (reported - held) / held * 100. ok is false when no verified balance is available
// or the held balance is zero.
func AssetDiscrepancyPct(snapshot *RawSnapshot) (pct decimal.Decimal, ok bool) {
	if snapshot == nil || snapshot.TotalAssetsRaw == nil || snapshot.HeldAssetsRaw == nil || snapshot.HeldAssetsRaw.Sign() == 0 {
		return decimal.Zero, false
	}

	reported := decimal.NewFromBigInt(snapshot.TotalAssetsRaw, 0)
	held := decimal.NewFromBigInt(snapshot.HeldAssetsRaw, 0)
	return reported.Sub(held).DivRound(held, 6).Mul(decimal.NewFromInt(100)), true
}

// Scale converts a raw integer amount into units of a token with the given precision.
func Scale(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}
