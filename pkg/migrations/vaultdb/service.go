// Package vaultdb holds all the migrations for the vault metrics database
package vaultdb

import (
	"github.com/uptrace/bun/migrate"
)

// Migrations is the collection of all migrations for the vault metrics database
var Migrations = migrate.NewMigrations()
