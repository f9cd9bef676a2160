package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ge-market-watch/internal/domain"
	"ge-market-watch/internal/storage"
)

// HistoryStore is an in-memory implementation of storage.HistoryStore.
type HistoryStore struct {
	granularity domain.Granularity

	mu     sync.RWMutex
	rows   map[int][]*domain.HistoryRecord // keyed by item id, append order
	nextID int64
	now    func() time.Time
}

// NewHistoryStore creates a new in-memory history store for one granularity.
func NewHistoryStore(granularity domain.Granularity) *HistoryStore {
	return &HistoryStore{
		granularity: granularity,
		rows:        make(map[int][]*domain.HistoryRecord),
		nextID:      1,
		now:         time.Now,
	}
}

// Compile-time interface check.
var _ storage.HistoryStore = (*HistoryStore)(nil)

// Granularity returns the polling granularity this store is bound to.
func (s *HistoryStore) Granularity() domain.Granularity {
	return s.granularity
}

// RecordSnapshots bulk-appends valid snapshots. Entries missing a price and
// re-polled (item, timestamp) duplicates are skipped and counted.
func (s *HistoryStore) RecordSnapshots(_ context.Context, snapshots map[int]domain.MarketSnapshot) (storage.RecordResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res storage.RecordResult
	createdAt := s.now().Unix()

	for itemID, snap := range snapshots {
		if !snap.Valid() {
			res.Skipped++
			continue
		}
		if s.hasLocked(itemID, snap.Timestamp) {
			res.Skipped++
			continue
		}
		rec := &domain.HistoryRecord{
			ID:        s.nextID,
			ItemID:    itemID,
			Timestamp: snap.Timestamp,
			Low:       snap.Low,
			High:      snap.High,
			Volume:    snap.Volume,
			CreatedAt: createdAt,
		}
		s.nextID++
		s.rows[itemID] = append(s.rows[itemID], rec)
		res.Stored++
	}

	return res, nil
}

// RecentHistory retrieves the newest records for an item, oldest first.
func (s *HistoryStore) RecentHistory(_ context.Context, itemID int, windowMinutes int) ([]*domain.HistoryRecord, error) {
	if windowMinutes <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]*domain.HistoryRecord, len(s.rows[itemID]))
	for i, r := range s.rows[itemID] {
		cp := *r
		rows[i] = &cp
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Timestamp != rows[j].Timestamp {
			return rows[i].Timestamp < rows[j].Timestamp
		}
		return rows[i].ID < rows[j].ID
	})

	limit := int(int64(windowMinutes)*60/s.granularity.IntervalSeconds()) + 1
	if len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	return rows, nil
}

// Prune deletes records older than cutoff. Returns the number removed.
func (s *HistoryStore) Prune(_ context.Context, cutoff int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for itemID, rows := range s.rows {
		kept := rows[:0]
		for _, r := range rows {
			if r.Timestamp < cutoff {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			delete(s.rows, itemID)
		} else {
			s.rows[itemID] = kept
		}
	}
	return removed, nil
}

// hasLocked reports whether a record exists for (itemID, timestamp).
// Caller must hold the lock.
func (s *HistoryStore) hasLocked(itemID int, timestamp int64) bool {
	for _, r := range s.rows[itemID] {
		if r.Timestamp == timestamp {
			return true
		}
	}
	return false
}
