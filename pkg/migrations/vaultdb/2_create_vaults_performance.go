package vaultdb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	mghelper "github.com/chainsafe/vault-etl/pkg/pgutil/migrations"
	"github.com/chainsafe/vault-etl/pkg/vaultstore/dao"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating vaults_performance table...")
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			_, err := tx.NewCreateTable().
				Model(&dao.VaultPerformanceDao{}).
				IfNotExists().
				ForeignKey(`("vault_id") REFERENCES "vaults" ("id") ON DELETE CASCADE`).
				Exec(ctx)
			if err != nil {
				return err
			}

			// one row per (vault, block); loads rely on it for ON CONFLICT DO NOTHING
			model := &dao.VaultPerformanceDao{}
			if err := mghelper.CreateModelIndex(ctx, tx, model, "vault_block", true, "vault_id", "block_number"); err != nil {
				return err
			}
			return mghelper.CreateModelIndex(ctx, tx, model, "vault_datetime", false, "vault_id", "utc_datetime")
		})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping vaults_performance table...")
		model := &dao.VaultPerformanceDao{}
		for _, name := range []string{"vault_datetime", "vault_block"} {
			if err := mghelper.DropModelIndex(ctx, db, model, name); err != nil {
				return err
			}
		}
		return mghelper.DropTables(ctx, db, model)
	})
}
