package ingestion

import (
	"context"
	"log"
	"time"

	"ge-market-watch/internal/domain"
	"ge-market-watch/internal/observability"
	"ge-market-watch/internal/storage"
)

// Default retention horizons.
const (
	// DefaultCoarseRetention keeps 7 days of hourly history.
	DefaultCoarseRetention = 7 * 24 * time.Hour

	// DefaultFineRetention keeps one day of 5-minute history, well past what
	// baseline windows read.
	DefaultFineRetention = 24 * time.Hour
)

// Manager orchestrates one granularity's ingestion: fetch from the source,
// persist to the history store, prune stale rows. Storage failure is
// non-fatal; the fetched snapshots are always returned so the owning cycle
// can score from memory even when the write failed.
type Manager struct {
	source      SnapshotSource
	store       storage.HistoryStore
	granularity domain.Granularity
	retention   time.Duration
	metrics     *observability.Metrics
	logger      *log.Logger
	now         func() time.Time
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	Source      SnapshotSource
	Store       storage.HistoryStore
	Granularity domain.Granularity
	Retention   time.Duration // zero selects the granularity default
	Metrics     *observability.Metrics
	Logger      *log.Logger
}

// NewManager creates a new ingestion manager.
func NewManager(opts ManagerOptions) *Manager {
	retention := opts.Retention
	if retention == 0 {
		if opts.Granularity == domain.GranularityCoarse {
			retention = DefaultCoarseRetention
		} else {
			retention = DefaultFineRetention
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}

	return &Manager{
		source:      opts.Source,
		store:       opts.Store,
		granularity: opts.Granularity,
		retention:   retention,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Ingest fetches the current interval and persists it.
// Fetch failure is returned to the caller (the scheduler backs off).
// Store failure is logged and swallowed: a failed write must not block this
// cycle's scoring, which proceeds on the returned in-memory snapshots.
// Pruning runs opportunistically after every successful append, so retention
// is enforced continuously rather than by a sweep job.
func (m *Manager) Ingest(ctx context.Context) (map[int]domain.MarketSnapshot, error) {
	snapshots, err := m.source.FetchSnapshots(ctx, m.granularity)
	if err != nil {
		return nil, err
	}

	res, err := m.store.RecordSnapshots(ctx, snapshots)
	if err != nil {
		m.logger.Printf("[ingestion] %s store write failed, scoring from memory this cycle: %v",
			m.granularity, err)
		m.metrics.RecordIngest(string(m.granularity), len(snapshots), 0, 0)
		return snapshots, nil
	}
	m.metrics.RecordIngest(string(m.granularity), len(snapshots), res.Stored, res.Skipped)
	if res.Skipped > 0 {
		m.logger.Printf("[ingestion] %s recorded %d snapshots, skipped %d (missing price or re-poll)",
			m.granularity, res.Stored, res.Skipped)
	}

	cutoff := m.now().Add(-m.retention).Unix()
	if removed, err := m.store.Prune(ctx, cutoff); err != nil {
		m.logger.Printf("[ingestion] %s prune failed: %v", m.granularity, err)
	} else if removed > 0 {
		m.metrics.RowsPruned.WithLabelValues(string(m.granularity)).Add(float64(removed))
		m.logger.Printf("[ingestion] %s pruned %d rows older than %s",
			m.granularity, removed, m.retention)
	}

	return snapshots, nil
}

// Granularity returns the polling granularity this manager drives.
func (m *Manager) Granularity() domain.Granularity {
	return m.granularity
}
