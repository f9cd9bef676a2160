package stub

import (
	"context"

	"ge-market-watch/internal/domain"
)

// StubSnapshotSource returns fixed in-memory snapshots for testing.
// Implements ingestion.SnapshotSource.
type StubSnapshotSource struct {
	name      string
	snapshots map[domain.Granularity]map[int]domain.MarketSnapshot
	err       error
}

// NewStubSnapshotSource creates a stub source serving the given snapshots.
func NewStubSnapshotSource(name string, snapshots map[domain.Granularity]map[int]domain.MarketSnapshot) *StubSnapshotSource {
	return &StubSnapshotSource{name: name, snapshots: snapshots}
}

// NewFailingSnapshotSource creates a stub source that always fails.
func NewFailingSnapshotSource(name string, err error) *StubSnapshotSource {
	return &StubSnapshotSource{name: name, err: err}
}

// Name identifies the stub.
func (s *StubSnapshotSource) Name() string {
	return s.name
}

// FetchSnapshots returns copies of the configured snapshots, or the
// configured error.
func (s *StubSnapshotSource) FetchSnapshots(_ context.Context, granularity domain.Granularity) (map[int]domain.MarketSnapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	result := make(map[int]domain.MarketSnapshot, len(s.snapshots[granularity]))
	for id, snap := range s.snapshots[granularity] {
		result[id] = snap
	}
	return result, nil
}

// StubCatalogSource returns fixed in-memory item metadata for testing.
// Implements ingestion.CatalogSource.
type StubCatalogSource struct {
	name  string
	items []*domain.ItemMetadata
	err   error
}

// NewStubCatalogSource creates a stub catalog source with the given items.
func NewStubCatalogSource(name string, items []*domain.ItemMetadata) *StubCatalogSource {
	return &StubCatalogSource{name: name, items: items}
}

// NewFailingCatalogSource creates a stub catalog source that always fails.
func NewFailingCatalogSource(name string, err error) *StubCatalogSource {
	return &StubCatalogSource{name: name, err: err}
}

// Name identifies the stub.
func (s *StubCatalogSource) Name() string {
	return s.name
}

// FetchCatalog returns copies of the configured items, or the configured
// error.
func (s *StubCatalogSource) FetchCatalog(_ context.Context) ([]*domain.ItemMetadata, error) {
	if s.err != nil {
		return nil, s.err
	}
	result := make([]*domain.ItemMetadata, len(s.items))
	for i, it := range s.items {
		cp := *it
		result[i] = &cp
	}
	return result, nil
}
