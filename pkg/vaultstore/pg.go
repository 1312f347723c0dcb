package vaultstore

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/uptrace/bun"

	"github.com/chainsafe/vault-etl/pkg/vault"
	"github.com/chainsafe/vault-etl/pkg/vaultstore/dao"
)

// Option configures the postgres store
type Option func(*pgStore)

// WithClock overrides the clock used for coverage windows.
func WithClock(now func() time.Time) Option {
	return func(s *pgStore) {
		s.now = now
	}
}

type pgStore struct {
	db  *bun.DB
	now func() time.Time
}

// NewStore creates a new postgres implementation of the vault store
func NewStore(db *bun.DB, opts ...Option) *pgStore {
	s := &pgStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type vaultKey struct {
	chainID int64
	address common.Address
}

func keyOf(v vault.Vault) vaultKey {
	return vaultKey{chainID: v.ChainID, address: v.Address}
}

func (s *pgStore) EnsureVault(ctx context.Context, v vault.Vault) (int64, error) {
	id, err := ensureVault(ctx, s.db, v)
	if err != nil {
		return 0, &DatabaseError{Op: "ensure vault " + v.Address.Hex(), Err: err}
	}
	return id, nil
}

func ensureVault(ctx context.Context, db bun.IDB, v vault.Vault) (int64, error) {
	row := toVaultDao(v)

	_, err := db.NewInsert().
		Model(row).
		On("CONFLICT (chain_id, address) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("symbol = EXCLUDED.symbol").
		Set("updated_at = NOW()").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return row.ID, nil
}

func (s *pgStore) LoadMetrics(ctx context.Context, metrics []*vault.Metric) (int, error) {
	if len(metrics) == 0 {
		return 0, nil
	}

	var inserted int
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// resolve every vault id before writing any metric row
		ids := make(map[vaultKey]int64)
		for _, m := range metrics {
			if m == nil {
				continue
			}
			key := keyOf(m.Vault)
			if _, ok := ids[key]; ok {
				continue
			}
			id, err := ensureVault(ctx, tx, m.Vault)
			if err != nil {
				return &DatabaseError{Op: "ensure vault " + m.Vault.Address.Hex(), Err: err}
			}
			ids[key] = id
		}

		rows := make([]dao.VaultPerformanceDao, 0, len(metrics))
		for _, m := range metrics {
			if m == nil {
				continue
			}
			rows = append(rows, toPerformanceDao(ids[keyOf(m.Vault)], m))
		}
		if len(rows) == 0 {
			return nil
		}

		res, err := tx.NewInsert().
			Model(&rows).
			On("CONFLICT (vault_id, block_number) DO NOTHING").
			Returning("NULL").
			Exec(ctx)
		if err != nil {
			return &DatabaseError{Op: "insert vault metrics", Err: err}
		}
		n, err := res.RowsAffected()
		if err != nil {
			return &DatabaseError{Op: "count inserted vault metrics", Err: err}
		}
		inserted = int(n)
		return nil
	})
	if err != nil {
		var dbErr *DatabaseError
		if errors.As(err, &dbErr) {
			return 0, err
		}
		return 0, &DatabaseError{Op: "load vault metrics", Err: err}
	}
	return inserted, nil
}

func (s *pgStore) NeedsHistory(ctx context.Context, v vault.Vault, hoursBack int) (bool, error) {
	if hoursBack <= 0 {
		return false, nil
	}

	now := s.now().UTC()
	from := now.Add(-time.Duration(hoursBack) * time.Hour)
	to := now.Add(-FreshnessWindow)

	count, err := s.db.NewSelect().
		Model((*dao.VaultPerformanceDao)(nil)).
		Join("JOIN vaults AS v ON v.id = vp.vault_id").
		Where("v.chain_id = ?", v.ChainID).
		Where("v.address = ?", v.Address.Hex()).
		Where("vp.utc_datetime >= ?", from).
		Where("vp.utc_datetime <= ?", to).
		Count(ctx)
	if err != nil {
		return false, &DatabaseError{Op: "count vault coverage", Err: err}
	}
	return count == 0, nil
}
