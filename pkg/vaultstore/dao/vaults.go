package dao

import (
	"time"

	"github.com/uptrace/bun"
)

// VaultDao is a data access object that maps directly to the 'vaults' table in PostgreSQL.
type VaultDao struct {
	bun.BaseModel `bun:"table:vaults,alias:v"`
	ID            int64     `bun:"id,pk,autoincrement"`
	ChainID       int64     `bun:"chain_id,notnull,unique:vaults_chain_address"`
	Address       string    `bun:"address,notnull,type:varchar(42),unique:vaults_chain_address"`
	Name          string    `bun:"name,notnull,type:varchar(255)"`
	Symbol        string    `bun:"symbol,notnull,type:varchar(64)"`
	AssetAddress  *string   `bun:"asset_address,type:varchar(42)"`
	CreatedAt     time.Time `bun:"created_at,notnull,nullzero,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,notnull,nullzero,default:current_timestamp"`
}
