package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"ge-market-watch/internal/config"
	"ge-market-watch/internal/domain"
	"ge-market-watch/internal/ingestion/stub"
	"ge-market-watch/internal/observability"
	"ge-market-watch/internal/storage"
	"ge-market-watch/internal/storage/memory"
)

// brokenStore fails every write but records that it was asked.
type brokenStore struct {
	granularity domain.Granularity
	writeCalls  int
}

var _ storage.HistoryStore = (*brokenStore)(nil)

func (s *brokenStore) RecordSnapshots(context.Context, map[int]domain.MarketSnapshot) (storage.RecordResult, error) {
	s.writeCalls++
	return storage.RecordResult{}, errors.New("disk full")
}

func (s *brokenStore) RecentHistory(context.Context, int, int) ([]*domain.HistoryRecord, error) {
	return nil, errors.New("disk full")
}

func (s *brokenStore) Prune(context.Context, int64) (int64, error) {
	return 0, errors.New("disk full")
}

func (s *brokenStore) Granularity() domain.Granularity { return s.granularity }

func TestManager_IngestStoresAndReturns(t *testing.T) {
	store := memory.NewHistoryStore(domain.GranularityFine)
	source := stub.NewStubSnapshotSource("stub", fineSnapshots(100))
	manager := NewManager(ManagerOptions{
		Source:      source,
		Store:       store,
		Granularity: domain.GranularityFine,
	})
	// Pin the clock near the fixture timestamp so the opportunistic prune
	// in Ingest does not delete the just-stored row.
	manager.now = func() time.Time { return time.Unix(1000, 0) }

	snaps, err := manager.Ingest(context.Background())
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot returned, got %d", len(snaps))
	}

	rows, err := store.RecentHistory(context.Background(), 4151, 60)
	if err != nil {
		t.Fatalf("RecentHistory failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Low != 100 {
		t.Errorf("snapshot not persisted: %+v", rows)
	}
}

func TestManager_FetchFailureIsReturned(t *testing.T) {
	fetchErr := errors.New("timeout")
	manager := NewManager(ManagerOptions{
		Source:      stub.NewFailingSnapshotSource("stub", fetchErr),
		Store:       memory.NewHistoryStore(domain.GranularityFine),
		Granularity: domain.GranularityFine,
	})

	_, err := manager.Ingest(context.Background())
	if !errors.Is(err, fetchErr) {
		t.Errorf("expected the fetch error to surface, got %v", err)
	}
}

func TestManager_StoreFailureIsNonFatal(t *testing.T) {
	store := &brokenStore{granularity: domain.GranularityFine}
	manager := NewManager(ManagerOptions{
		Source:      stub.NewStubSnapshotSource("stub", fineSnapshots(100)),
		Store:       store,
		Granularity: domain.GranularityFine,
	})

	snaps, err := manager.Ingest(context.Background())
	if err != nil {
		t.Fatalf("expected store failure swallowed, got %v", err)
	}
	if len(snaps) != 1 {
		t.Errorf("expected in-memory snapshots despite store failure, got %d", len(snaps))
	}
	if store.writeCalls != 1 {
		t.Errorf("expected one write attempt, got %d", store.writeCalls)
	}
}

func TestManager_IngestRecordsMetrics(t *testing.T) {
	m := observability.DefaultMetrics
	fetchedBefore := testutil.ToFloat64(m.SnapshotsFetched.WithLabelValues("5m"))
	storedBefore := testutil.ToFloat64(m.SnapshotsStored.WithLabelValues("5m"))

	manager := NewManager(ManagerOptions{
		Source:      stub.NewStubSnapshotSource("stub", fineSnapshots(100)),
		Store:       memory.NewHistoryStore(domain.GranularityFine),
		Granularity: domain.GranularityFine,
	})
	if _, err := manager.Ingest(context.Background()); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if got := testutil.ToFloat64(m.SnapshotsFetched.WithLabelValues("5m")) - fetchedBefore; got != 1 {
		t.Errorf("expected one fetched snapshot recorded, got %v", got)
	}
	if got := testutil.ToFloat64(m.SnapshotsStored.WithLabelValues("5m")) - storedBefore; got != 1 {
		t.Errorf("expected one stored snapshot recorded, got %v", got)
	}
}

func TestManager_RetentionDefaultsByGranularity(t *testing.T) {
	coarse := NewManager(ManagerOptions{
		Source:      stub.NewStubSnapshotSource("stub", nil),
		Store:       memory.NewHistoryStore(domain.GranularityCoarse),
		Granularity: domain.GranularityCoarse,
	})
	if coarse.retention != DefaultCoarseRetention {
		t.Errorf("expected %s coarse retention, got %s", DefaultCoarseRetention, coarse.retention)
	}

	fine := NewManager(ManagerOptions{
		Source:      stub.NewStubSnapshotSource("stub", nil),
		Store:       memory.NewHistoryStore(domain.GranularityFine),
		Granularity: domain.GranularityFine,
	})
	if fine.retention != DefaultFineRetention {
		t.Errorf("expected %s fine retention, got %s", DefaultFineRetention, fine.retention)
	}
}

func TestManager_DefaultConfigKeepsSevenDayCoarseRetention(t *testing.T) {
	// The default configuration must not override the coarse horizon.
	t.Setenv("GE_RETENTION", "")
	cfg := config.FromEnv()

	manager := NewManager(ManagerOptions{
		Source:      stub.NewStubSnapshotSource("stub", nil),
		Store:       memory.NewHistoryStore(domain.GranularityCoarse),
		Granularity: domain.GranularityCoarse,
		Retention:   cfg.Retention,
	})
	if manager.retention != 7*24*time.Hour {
		t.Errorf("expected 7 day retention from default config, got %s", manager.retention)
	}
}

func TestManager_PruneUsesRetentionCutoff(t *testing.T) {
	store := memory.NewHistoryStore(domain.GranularityCoarse)
	ctx := context.Background()

	now := time.Unix(1700100000, 0)
	stale := now.Add(-8 * 24 * time.Hour).Unix()
	if _, err := store.RecordSnapshots(ctx, map[int]domain.MarketSnapshot{
		4151: {ItemID: 4151, Timestamp: stale, Low: 100, High: 110, Volume: 5},
	}); err != nil {
		t.Fatalf("seed stale row: %v", err)
	}

	source := stub.NewStubSnapshotSource("stub", map[domain.Granularity]map[int]domain.MarketSnapshot{
		domain.GranularityCoarse: {
			4151: {ItemID: 4151, Timestamp: now.Unix(), Low: 100, High: 110, Volume: 5},
		},
	})
	manager := NewManager(ManagerOptions{
		Source:      source,
		Store:       store,
		Granularity: domain.GranularityCoarse,
	})
	manager.now = func() time.Time { return now }

	if _, err := manager.Ingest(ctx); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	rows, err := store.RecentHistory(ctx, 4151, 14*24*60)
	if err != nil {
		t.Fatalf("RecentHistory failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Timestamp != now.Unix() {
		t.Errorf("expected the 8 day old row pruned by 7 day retention, got %+v", rows)
	}
}
