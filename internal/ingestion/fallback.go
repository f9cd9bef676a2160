package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"ge-market-watch/internal/domain"
	"ge-market-watch/internal/observability"
)

// ErrAllSourcesFailed is returned when the primary and every registered
// fallback source fail for the same fetch.
var ErrAllSourcesFailed = errors.New("all snapshot sources failed")

// FallbackSource tries a primary snapshot source first and falls back to a
// secondary on any fetch failure. It never converts failure into empty data:
// if every source fails, the fetch fails.
type FallbackSource struct {
	primary   SnapshotSource
	secondary SnapshotSource // may be nil
	metrics   *observability.Metrics
	logger    *log.Logger
	now       func() time.Time

	lastUsed string
}

// NewFallbackSource creates a FallbackSource. secondary may be nil, in which
// case only the primary is consulted.
func NewFallbackSource(primary, secondary SnapshotSource, logger *log.Logger) *FallbackSource {
	if logger == nil {
		logger = log.Default()
	}
	return &FallbackSource{
		primary:   primary,
		secondary: secondary,
		metrics:   observability.DefaultMetrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Compile-time interface check.
var _ SnapshotSource = (*FallbackSource)(nil)

// Name identifies the composite source.
func (f *FallbackSource) Name() string {
	return "fallback(" + f.primary.Name() + ")"
}

// LastUsed returns the name of the source that served the most recent
// successful fetch, or "" if none has succeeded yet.
func (f *FallbackSource) LastUsed() string {
	return f.lastUsed
}

// FetchSnapshots fetches from the primary, then from the secondary on
// primary failure. Returns ErrAllSourcesFailed (wrapping both causes) when
// neither serves.
func (f *FallbackSource) FetchSnapshots(ctx context.Context, granularity domain.Granularity) (map[int]domain.MarketSnapshot, error) {
	snapshots, primaryErr := f.fetchFrom(ctx, f.primary, granularity)
	if primaryErr == nil {
		f.lastUsed = f.primary.Name()
		return snapshots, nil
	}

	if f.secondary == nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAllSourcesFailed, f.primary.Name(), primaryErr)
	}

	f.logger.Printf("[ingestion] source %s failed (%v), trying %s",
		f.primary.Name(), primaryErr, f.secondary.Name())

	snapshots, secondaryErr := f.fetchFrom(ctx, f.secondary, granularity)
	if secondaryErr != nil {
		return nil, fmt.Errorf("%w: %s: %v; %s: %v",
			ErrAllSourcesFailed, f.primary.Name(), primaryErr, f.secondary.Name(), secondaryErr)
	}

	f.metrics.FallbackActivated.Inc()
	f.lastUsed = f.secondary.Name()
	return snapshots, nil
}

// fetchFrom runs one source's fetch and records its latency and outcome
// under that source's name.
func (f *FallbackSource) fetchFrom(ctx context.Context, source SnapshotSource, granularity domain.Granularity) (map[int]domain.MarketSnapshot, error) {
	start := f.now()
	snapshots, err := source.FetchSnapshots(ctx, granularity)
	f.metrics.RecordFetch(source.Name(), f.now().Sub(start).Seconds(), err)
	return snapshots, err
}
