package memory

import (
	"context"
	"errors"
	"testing"

	"ge-market-watch/internal/domain"
	"ge-market-watch/internal/storage"
)

func TestHistoryStore_RecordAndRetrieve(t *testing.T) {
	store := NewHistoryStore(domain.GranularityFine)
	ctx := context.Background()

	snaps := map[int]domain.MarketSnapshot{
		4151: {ItemID: 4151, Timestamp: 1000, Low: 100, High: 120, Volume: 50},
		561:  {ItemID: 561, Timestamp: 1000, Low: 200, High: 210, Volume: 900},
	}

	res, err := store.RecordSnapshots(ctx, snaps)
	if err != nil {
		t.Fatalf("RecordSnapshots failed: %v", err)
	}
	if res.Stored != 2 || res.Skipped != 0 {
		t.Errorf("expected 2 stored 0 skipped, got %+v", res)
	}

	rows, err := store.RecentHistory(ctx, 4151, 60)
	if err != nil {
		t.Fatalf("RecentHistory failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Low != 100 {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestHistoryStore_SkipsInvalidAndDuplicate(t *testing.T) {
	store := NewHistoryStore(domain.GranularityFine)
	ctx := context.Background()

	first := map[int]domain.MarketSnapshot{
		4151: {ItemID: 4151, Timestamp: 1000, Low: 100, High: 120, Volume: 50},
		561:  {ItemID: 561, Timestamp: 1000, Low: 0, High: 210, Volume: 900}, // no trade this interval
	}
	res, err := store.RecordSnapshots(ctx, first)
	if err != nil {
		t.Fatalf("RecordSnapshots failed: %v", err)
	}
	if res.Stored != 1 || res.Skipped != 1 {
		t.Errorf("expected 1 stored 1 skipped, got %+v", res)
	}

	// Re-polling the same interval must not duplicate the row.
	res, err = store.RecordSnapshots(ctx, map[int]domain.MarketSnapshot{
		4151: {ItemID: 4151, Timestamp: 1000, Low: 999, High: 999, Volume: 1},
	})
	if err != nil {
		t.Fatalf("RecordSnapshots failed: %v", err)
	}
	if res.Stored != 0 || res.Skipped != 1 {
		t.Errorf("expected duplicate skipped, got %+v", res)
	}

	rows, err := store.RecentHistory(ctx, 4151, 60)
	if err != nil {
		t.Fatalf("RecentHistory failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Low != 100 {
		t.Errorf("expected original row preserved, got %+v", rows)
	}
}

func TestHistoryStore_RecentHistoryOrderAndLimit(t *testing.T) {
	store := NewHistoryStore(domain.GranularityFine)
	ctx := context.Background()

	// 20 intervals, 5 minutes apart, inserted out of order.
	timestamps := []int64{3000, 600, 2400, 1200, 1800, 300, 900, 1500, 2100, 2700,
		3300, 3900, 3600, 4200, 4500, 4800, 5100, 5400, 5700, 6000}
	for _, ts := range timestamps {
		_, err := store.RecordSnapshots(ctx, map[int]domain.MarketSnapshot{
			4151: {ItemID: 4151, Timestamp: ts, Low: ts, High: ts + 10, Volume: 1},
		})
		if err != nil {
			t.Fatalf("RecordSnapshots failed: %v", err)
		}
	}

	// 60 minutes of 5m intervals → 12 + 1 rows.
	rows, err := store.RecentHistory(ctx, 4151, 60)
	if err != nil {
		t.Fatalf("RecentHistory failed: %v", err)
	}
	if len(rows) != 13 {
		t.Fatalf("expected 13 rows for a 60 minute window, got %d", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Timestamp <= rows[i-1].Timestamp {
			t.Fatalf("rows not ascending at %d: %d then %d", i, rows[i-1].Timestamp, rows[i].Timestamp)
		}
	}
	if rows[len(rows)-1].Timestamp != 6000 {
		t.Errorf("expected newest row last, got %d", rows[len(rows)-1].Timestamp)
	}
}

func TestHistoryStore_RecentHistoryInvalidWindow(t *testing.T) {
	store := NewHistoryStore(domain.GranularityFine)

	_, err := store.RecentHistory(context.Background(), 4151, 0)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestHistoryStore_Prune(t *testing.T) {
	store := NewHistoryStore(domain.GranularityCoarse)
	ctx := context.Background()

	for _, ts := range []int64{1000, 2000, 3000} {
		_, err := store.RecordSnapshots(ctx, map[int]domain.MarketSnapshot{
			4151: {ItemID: 4151, Timestamp: ts, Low: 100, High: 110, Volume: 5},
		})
		if err != nil {
			t.Fatalf("RecordSnapshots failed: %v", err)
		}
	}

	removed, err := store.Prune(ctx, 2500)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 rows pruned, got %d", removed)
	}

	rows, err := store.RecentHistory(ctx, 4151, 24*60)
	if err != nil {
		t.Fatalf("RecentHistory failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Timestamp != 3000 {
		t.Errorf("expected only the newest row to survive, got %+v", rows)
	}
}

func TestHistoryStore_ReturnsCopies(t *testing.T) {
	store := NewHistoryStore(domain.GranularityFine)
	ctx := context.Background()

	_, err := store.RecordSnapshots(ctx, map[int]domain.MarketSnapshot{
		4151: {ItemID: 4151, Timestamp: 1000, Low: 100, High: 110, Volume: 5},
	})
	if err != nil {
		t.Fatalf("RecordSnapshots failed: %v", err)
	}

	rows, _ := store.RecentHistory(ctx, 4151, 60)
	rows[0].Low = 999999

	again, _ := store.RecentHistory(ctx, 4151, 60)
	if again[0].Low != 100 {
		t.Errorf("caller mutation leaked into the store: %+v", again[0])
	}
}
