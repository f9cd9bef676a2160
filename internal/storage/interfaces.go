package storage

import (
	"context"

	"ge-market-watch/internal/domain"
)

// RecordResult reports the outcome of a bulk snapshot append.
// Invalid entries (missing price) and re-polled duplicates are counted,
// never raised.
type RecordResult struct {
	Stored  int
	Skipped int
}

// HistoryStore provides append-only access to one price history series.
// An implementation is bound to a single granularity (5m or 1h); the coarse
// store is pruned opportunistically on every append by its caller.
type HistoryStore interface {
	// RecordSnapshots bulk-appends valid snapshots as HistoryRecords.
	// Entries without both prices are skipped and counted in the result.
	// The batch is all-or-nothing on storage failure.
	RecordSnapshots(ctx context.Context, snapshots map[int]domain.MarketSnapshot) (RecordResult, error)

	// RecentHistory retrieves the newest records for an item, oldest first,
	// bounded by windowMinutes/interval + 1 rows.
	RecentHistory(ctx context.Context, itemID int, windowMinutes int) ([]*domain.HistoryRecord, error)

	// Prune deletes records older than cutoff (Unix seconds).
	// Returns the number of rows removed.
	Prune(ctx context.Context, cutoff int64) (int64, error)

	// Granularity returns the polling granularity this store is bound to.
	Granularity() domain.Granularity
}

// ItemStore provides access to the item catalog (read-only reference data
// from the mapping endpoint; refreshed wholesale, never mutated per-field).
type ItemStore interface {
	// UpsertAll replaces catalog rows for the given items.
	UpsertAll(ctx context.Context, items []*domain.ItemMetadata) error

	// GetByID retrieves one item. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, itemID int) (*domain.ItemMetadata, error)

	// GetAll retrieves the full catalog, ordered by item id ASC.
	GetAll(ctx context.Context) ([]*domain.ItemMetadata, error)
}
