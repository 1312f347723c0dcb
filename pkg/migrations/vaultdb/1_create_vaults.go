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
		log.Println("creating vaults table...")
		return mghelper.CreateSchema(ctx, db, &dao.VaultDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping vaults table...")
		return mghelper.DropTables(ctx, db, &dao.VaultDao{})
	})
}
