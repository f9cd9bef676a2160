package clickhouse

import (
	"context"
	"fmt"

	"ge-market-watch/internal/domain"
	"ge-market-watch/internal/storage"
)

// HistoryStore implements storage.HistoryStore using ClickHouse.
// It backs the fine-grained 5-minute series, where row volume is too high
// for the Postgres tables. The table is a ReplacingMergeTree keyed by
// (item_id, timestamp), so re-polled intervals collapse on merge; reads use
// FINAL to present one row per key.
type HistoryStore struct {
	conn        *Conn
	granularity domain.Granularity
}

// NewHistoryStore creates a HistoryStore bound to one granularity.
func NewHistoryStore(conn *Conn, granularity domain.Granularity) *HistoryStore {
	return &HistoryStore{conn: conn, granularity: granularity}
}

// Compile-time interface check.
var _ storage.HistoryStore = (*HistoryStore)(nil)

// Granularity returns the polling granularity this store is bound to.
func (s *HistoryStore) Granularity() domain.Granularity {
	return s.granularity
}

// RecordSnapshots bulk-appends valid snapshots as one batch.
// Entries without both prices are skipped and counted. Duplicate keys are
// absorbed by the ReplacingMergeTree rather than counted here.
func (s *HistoryStore) RecordSnapshots(ctx context.Context, snapshots map[int]domain.MarketSnapshot) (storage.RecordResult, error) {
	var res storage.RecordResult
	if len(snapshots) == 0 {
		return res, nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_history (item_id, timestamp, low, high, volume, granularity)
	`)
	if err != nil {
		return storage.RecordResult{}, fmt.Errorf("prepare batch: %w", err)
	}

	for itemID, snap := range snapshots {
		if !snap.Valid() {
			res.Skipped++
			continue
		}
		err = batch.Append(
			int32(itemID), uint64(snap.Timestamp),
			snap.Low, snap.High, snap.Volume, string(s.granularity),
		)
		if err != nil {
			return storage.RecordResult{}, fmt.Errorf("append to batch: %w", err)
		}
		res.Stored++
	}

	if err := batch.Send(); err != nil {
		return storage.RecordResult{}, fmt.Errorf("send batch: %w", err)
	}

	return res, nil
}

// RecentHistory retrieves the newest records for an item, oldest first,
// bounded by windowMinutes/interval + 1 rows.
func (s *HistoryStore) RecentHistory(ctx context.Context, itemID int, windowMinutes int) ([]*domain.HistoryRecord, error) {
	if windowMinutes <= 0 {
		return nil, storage.ErrInvalidInput
	}

	limit := int(int64(windowMinutes)*60/s.granularity.IntervalSeconds()) + 1

	query := `
		SELECT item_id, timestamp, low, high, volume
		FROM price_history FINAL
		WHERE item_id = ? AND granularity = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, int32(itemID), string(s.granularity), uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("get recent history: %w", err)
	}
	defer rows.Close()

	var records []*domain.HistoryRecord
	for rows.Next() {
		var (
			id int32
			ts uint64
		)
		rec := &domain.HistoryRecord{}
		if err := rows.Scan(&id, &ts, &rec.Low, &rec.High, &rec.Volume); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		rec.ItemID = int(id)
		rec.Timestamp = int64(ts)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}

	// Query returned newest first; callers expect oldest first.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Prune deletes records older than cutoff via a lightweight delete mutation.
// The removed-row count is not available from ClickHouse mutations; it
// returns 0 with a nil error on success.
func (s *HistoryStore) Prune(ctx context.Context, cutoff int64) (int64, error) {
	query := `DELETE FROM price_history WHERE timestamp < ? AND granularity = ?`

	if err := s.conn.Exec(ctx, query, uint64(cutoff), string(s.granularity)); err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return 0, nil
}
