package dao

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// VaultPerformanceDao maps to the append-only 'vaults_performance' time series.
// UTCDatetime is a timestamp without time zone holding UTC wall-clock time.
// TVLUSD is denominated in the vault's asset; no price conversion is applied.
type VaultPerformanceDao struct {
	bun.BaseModel `bun:"table:vaults_performance,alias:vp"`
	ID            int64           `bun:"id,pk,autoincrement"`
	VaultID       int64           `bun:"vault_id,notnull"`
	BlockNumber   int64           `bun:"block_number,notnull"`
	UTCDatetime   time.Time       `bun:"utc_datetime,notnull,type:timestamp"`
	TVLUSD        decimal.Decimal `bun:"tvl_usd,notnull,type:numeric"`
	SharePrice    decimal.Decimal `bun:"share_price,notnull,type:numeric"`
	TotalSupply   decimal.Decimal `bun:"total_supply,notnull,type:numeric"`
	AssetDecimals int16           `bun:"asset_decimals,notnull"`
	ShareDecimals int16           `bun:"share_decimals,notnull"`
	CreatedAt     time.Time       `bun:"created_at,notnull,nullzero,default:current_timestamp"`
}
