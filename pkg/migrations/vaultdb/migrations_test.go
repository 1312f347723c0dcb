package vaultdb

import (
	"context"
	"testing"

	"github.com/uptrace/bun/migrate"

	"github.com/chainsafe/vault-etl/pkg/pgutil"
)

func TestVaultDBMigrations_Apply(t *testing.T) {
	db := pgutil.SetupTestDB(t)
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	if group.IsZero() {
		t.Fatal("expected migrations to run, but none were applied")
	}

	for _, table := range []string{"vaults", "vaults_performance", "bun_migrations"} {
		pgutil.AssertTableExists(t, db, table)
	}
	pgutil.AssertIndexExists(t, db, "idx_vaults_performance_vault_block")
	pgutil.AssertIndexExists(t, db, "idx_vaults_performance_vault_datetime")

	group, err = migrator.Migrate(ctx)
	if err != nil {
		t.Fatalf("second Migrate() failed: %v", err)
	}
	if !group.IsZero() {
		t.Errorf("expected no pending migrations, got %s", group)
	}
}

func TestVaultDBMigrations_Rollback(t *testing.T) {
	db := pgutil.SetupTestDB(t)
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}

	if _, err := migrator.Rollback(ctx); err != nil {
		t.Fatalf("Rollback() failed: %v", err)
	}
	pgutil.AssertTableNotExists(t, db, "vaults_performance")
	pgutil.AssertTableNotExists(t, db, "vaults")
	pgutil.AssertIndexNotExists(t, db, "idx_vaults_performance_vault_block")
	pgutil.AssertIndexNotExists(t, db, "idx_vaults_performance_vault_datetime")

	// the schema can be rebuilt after a full rollback
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() after rollback failed: %v", err)
	}
	pgutil.AssertIndexExists(t, db, "idx_vaults_performance_vault_block")
}

func TestVaultDBMigrations_ForeignKey(t *testing.T) {
	db := pgutil.SetupTestDB(t)
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}

	_, err := db.NewRaw(`INSERT INTO vaults_performance
		(vault_id, block_number, utc_datetime, tvl_usd, share_price, total_supply, asset_decimals, share_decimals)
		VALUES (42, 1, NOW(), 0, 0, 0, 6, 6)`).Exec(ctx)
	if err == nil {
		t.Fatal("expected insert for unknown vault to violate the foreign key")
	}
}
