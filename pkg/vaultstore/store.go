// Package vaultstore persists vault reference rows and their performance time series.
package vaultstore

import (
	"context"
	"fmt"
	"time"

	"github.com/chainsafe/vault-etl/pkg/vault"
)

// FreshnessWindow is the trailing interval ignored by NeedsHistory so a row
// written by the current pass is not mistaken for historical coverage.
const FreshnessWindow = 5 * time.Minute

// VaultStore manages vault reference rows.
type VaultStore interface {
	// EnsureVault upserts the vault keyed by (chain_id, address) and returns its id.
	EnsureVault(ctx context.Context, v vault.Vault) (int64, error)
}

// MetricStore appends metrics to the performance time series.
type MetricStore interface {
	// LoadMetrics writes the batch in one transaction and returns the number of new rows.
	// Nil entries are skipped and rows already present for (vault, block) are left untouched.
	LoadMetrics(ctx context.Context, metrics []*vault.Metric) (int, error)
}

// CoverageStore answers backfill questions.
type CoverageStore interface {
	// NeedsHistory reports whether the vault has no rows in [now-hoursBack, now-FreshnessWindow].
	NeedsHistory(ctx context.Context, v vault.Vault, hoursBack int) (bool, error)
}

// Store defines the persistence used by the pipeline
type Store interface {
	VaultStore
	MetricStore
	CoverageStore
}

// DatabaseError wraps a failed store operation. It is always fatal to a pass.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}
