package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ge-market-watch/internal/domain"
	"ge-market-watch/internal/storage"
)

// HistoryStore implements storage.HistoryStore using PostgreSQL.
// Each granularity maps to its own table (price_history_5m, price_history_1h)
// with a unique (item_id, timestamp) index and a plain timestamp index for
// pruning.
type HistoryStore struct {
	pool        *Pool
	granularity domain.Granularity
	table       string
}

// NewHistoryStore creates a HistoryStore bound to one granularity.
func NewHistoryStore(pool *Pool, granularity domain.Granularity) *HistoryStore {
	table := "price_history_5m"
	if granularity == domain.GranularityCoarse {
		table = "price_history_1h"
	}
	return &HistoryStore{pool: pool, granularity: granularity, table: table}
}

// Compile-time interface check.
var _ storage.HistoryStore = (*HistoryStore)(nil)

// Granularity returns the polling granularity this store is bound to.
func (s *HistoryStore) Granularity() domain.Granularity {
	return s.granularity
}

// RecordSnapshots bulk-appends valid snapshots in one transaction.
// Entries without both prices are skipped; re-polled (item, timestamp)
// duplicates are absorbed by ON CONFLICT DO NOTHING and counted as skipped.
func (s *HistoryStore) RecordSnapshots(ctx context.Context, snapshots map[int]domain.MarketSnapshot) (storage.RecordResult, error) {
	var res storage.RecordResult
	if len(snapshots) == 0 {
		return res, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`
		INSERT INTO %s (item_id, timestamp, low, high, volume)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (item_id, timestamp) DO NOTHING
	`, s.table)

	for itemID, snap := range snapshots {
		if !snap.Valid() {
			res.Skipped++
			continue
		}
		tag, err := tx.Exec(ctx, query, itemID, snap.Timestamp, snap.Low, snap.High, snap.Volume)
		if err != nil {
			return storage.RecordResult{}, fmt.Errorf("insert history record: %w", err)
		}
		if tag.RowsAffected() == 0 {
			res.Skipped++
		} else {
			res.Stored++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return storage.RecordResult{}, fmt.Errorf("commit tx: %w", err)
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

	query := fmt.Sprintf(`
		SELECT id, item_id, timestamp, low, high, volume, created_at
		FROM %s
		WHERE item_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2
	`, s.table)

	rows, err := s.pool.Query(ctx, query, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent history: %w", err)
	}
	defer rows.Close()

	records, err := scanHistory(rows)
	if err != nil {
		return nil, err
	}

	// Query returned newest first; callers expect oldest first.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Prune deletes records older than cutoff. Returns the number removed.
func (s *HistoryStore) Prune(ctx context.Context, cutoff int64) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE timestamp < $1`, s.table)

	tag, err := s.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanHistory scans multiple rows into a slice of HistoryRecord.
func scanHistory(rows pgx.Rows) ([]*domain.HistoryRecord, error) {
	var records []*domain.HistoryRecord

	for rows.Next() {
		var rec domain.HistoryRecord

		err := rows.Scan(
			&rec.ID,
			&rec.ItemID,
			&rec.Timestamp,
			&rec.Low,
			&rec.High,
			&rec.Volume,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}

		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}

	return records, nil
}
