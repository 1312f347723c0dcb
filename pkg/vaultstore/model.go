package vaultstore

import (
	"time"

	"github.com/chainsafe/vault-etl/pkg/vault"
	"github.com/chainsafe/vault-etl/pkg/vaultstore/dao"
)

func toVaultDao(v vault.Vault) *dao.VaultDao {
	row := &dao.VaultDao{
		ChainID: v.ChainID,
		Address: v.Address.Hex(),
		Name:    v.Name,
		Symbol:  v.Symbol,
	}
	if v.AssetAddress != nil {
		asset := v.AssetAddress.Hex()
		row.AssetAddress = &asset
	}
	return row
}

func toPerformanceDao(vaultID int64, m *vault.Metric) dao.VaultPerformanceDao {
	return dao.VaultPerformanceDao{
		VaultID:       vaultID,
		BlockNumber:   int64(m.BlockNumber),
		UTCDatetime:   naiveUTC(m.Timestamp),
		TVLUSD:        m.TVL,
		SharePrice:    m.SharePrice,
		TotalSupply:   m.TotalSupply,
		AssetDecimals: int16(m.AssetDecimals),
		ShareDecimals: int16(m.ShareDecimals),
	}
}

// naiveUTC converts t to UTC wall-clock time so a timestamp column stores the same instant
// whatever the session time zone is.
func naiveUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute(), u.Second(), u.Nanosecond(), time.UTC)
}
