// Package migrations holds schema helpers and the migrate command runner.
package migrations

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"reflect"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

const usageText = `Usage:
  go run cmd/vault-etl/migrate/main.go -config <file> <command>

Supported commands:
  - init - creates the migration bookkeeping tables.
  - up - applies all pending migrations.
  - down - rolls back the last migration group.
  - status - prints applied and pending migrations.

Examples:
  go run cmd/vault-etl/migrate/main.go -config config.yaml init
  go run cmd/vault-etl/migrate/main.go -config config.yaml up
`

// Usage prints command usage and exits
func Usage() {
	fmt.Print(usageText)
	flag.PrintDefaults()
	os.Exit(2)
}

// Exitf prints the message and usage, then exits
func Exitf(s string, args ...any) {
	fmt.Fprintf(os.Stderr, s+"\n", args...)
	Usage()
}

// CreateSchema creates tables for the given models if they are missing
func CreateSchema(ctx context.Context, db bun.IDB, models ...any) error {
	for _, model := range models {
		log.Println("Creating table for", reflect.TypeOf(model))
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
	}
	return nil
}

// DropTables drops the tables of the given models
func DropTables(ctx context.Context, db bun.IDB, models ...any) error {
	for _, model := range models {
		log.Println("Dropping table for", reflect.TypeOf(model))
		_, err := db.NewDropTable().Model(model).IfExists().Cascade().Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop table for %T: %w", model, err)
		}
	}
	return nil
}

// TruncateTables deletes all rows from the tables of the given models
func TruncateTables(ctx context.Context, db bun.IDB, models ...any) error {
	for _, model := range models {
		if _, err := db.NewDelete().Model(model).Where("TRUE").Exec(ctx); err != nil {
			return fmt.Errorf("failed to truncate table for %T: %w", model, err)
		}
	}
	return nil
}

// CreateModelIndex creates an index named idx_<table>_<name> over columns of the model's table.
func CreateModelIndex(ctx context.Context, db bun.IDB, model any, name string, unique bool, columns ...string) error {
	indexName, err := ModelIndexName(db, model, name)
	if err != nil {
		return err
	}

	q := db.NewCreateIndex().
		Model(model).
		Index(indexName).
		Column(columns...).
		IfNotExists()
	if unique {
		q = q.Unique()
	}
	if _, err = q.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create index %s: %w", indexName, err)
	}
	return nil
}

// DropModelIndex drops an index created by CreateModelIndex.
func DropModelIndex(ctx context.Context, db bun.IDB, model any, name string) error {
	indexName, err := ModelIndexName(db, model, name)
	if err != nil {
		return err
	}
	if _, err = db.NewDropIndex().Index(indexName).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop index %s: %w", indexName, err)
	}
	return nil
}

// ModelIndexName returns idx_<table>_<name> for the model's table.
func ModelIndexName(db bun.IDB, model any, name string) (string, error) {
	if model == nil {
		return "", fmt.Errorf("model cannot be nil")
	}
	tableName := db.NewCreateIndex().Model(model).GetTableName()
	if tableName == "" {
		return "", fmt.Errorf("failed to resolve table name for model %T", model)
	}

	indexTableName := strings.NewReplacer(`"`, "", ".", "_").Replace(tableName)
	return fmt.Sprintf("idx_%s_%s", indexTableName, name), nil
}

// RunMigrations runs the migrate command given in args
func RunMigrations(ctx context.Context, migrator *migrate.Migrator, args ...string) error {
	if len(args) == 0 {
		return fmt.Errorf("no command provided")
	}

	switch args[0] {
	case "init":
		if err := migrator.Init(ctx); err != nil {
			return err
		}
		log.Println("migration table created")
		return nil

	case "up":
		return withLock(ctx, migrator, func() error {
			group, err := migrator.Migrate(ctx)
			if err != nil {
				return err
			}
			if group.IsZero() {
				log.Println("no new migrations to run (database is up to date)")
			} else {
				log.Printf("migrated to %s\n", group)
			}
			return nil
		})

	case "down":
		return withLock(ctx, migrator, func() error {
			group, err := migrator.Rollback(ctx)
			if err != nil {
				return err
			}
			if group.IsZero() {
				log.Println("no migrations to rollback")
			} else {
				log.Printf("rolled back %s\n", group)
			}
			return nil
		})

	case "status":
		ms, err := migrator.MigrationsWithStatus(ctx)
		if err != nil {
			return err
		}
		log.Printf("migrations: %s\n", ms)
		log.Printf("unapplied migrations: %s\n", ms.Unapplied())
		log.Printf("last migration group: %s\n", ms.LastGroup())
		return nil

	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func withLock(ctx context.Context, migrator *migrate.Migrator, fn func() error) error {
	if err := migrator.Lock(ctx); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		if err := migrator.Unlock(ctx); err != nil {
			log.Printf("failed to release migration lock: %v", err)
		}
	}()
	return fn()
}
