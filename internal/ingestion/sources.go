package ingestion

import (
	"context"

	"ge-market-watch/internal/domain"
)

// SnapshotSource provides one polling interval of market snapshots from an
// external price service.
type SnapshotSource interface {
	// Name identifies the source in logs and metrics.
	Name() string

	// FetchSnapshots returns the current interval's snapshots for a
	// granularity, keyed by item id. A transport error, timeout or non-2xx
	// status is a fetch failure; an empty-but-well-formed payload is not.
	FetchSnapshots(ctx context.Context, granularity domain.Granularity) (map[int]domain.MarketSnapshot, error)
}

// CatalogSource provides item reference data from an external catalog
// service.
type CatalogSource interface {
	// Name identifies the source in logs and metrics.
	Name() string

	// FetchCatalog returns the full item catalog.
	FetchCatalog(ctx context.Context) ([]*domain.ItemMetadata, error)
}
