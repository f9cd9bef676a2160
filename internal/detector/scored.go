package detector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"ge-market-watch/internal/domain"
	"ge-market-watch/internal/metrics"
	"ge-market-watch/internal/scoring"
	"ge-market-watch/internal/storage"
)

// DefaultHistoryWindowMinutes covers the baseline window plus the newest
// point at 5-minute resolution.
const DefaultHistoryWindowMinutes = 65

// ScoredDetector runs the full dump-scoring pipeline: baseline per item,
// metric computation, weighted score, tier assignment.
type ScoredDetector struct {
	history storage.HistoryStore
	items   ItemLookup
	logger  *log.Logger

	windowMinutes int
	now           func() time.Time
}

// ScoredOptions configures NewScoredDetector. History and Items are required.
type ScoredOptions struct {
	History storage.HistoryStore
	Items   ItemLookup
	Logger  *log.Logger

	// WindowMinutes bounds how far back history is read per item.
	// Zero means DefaultHistoryWindowMinutes.
	WindowMinutes int
}

var _ Detector = (*ScoredDetector)(nil)

func NewScoredDetector(opts ScoredOptions) (*ScoredDetector, error) {
	if opts.History == nil {
		return nil, errors.New("detector: history store is required")
	}
	if opts.Items == nil {
		return nil, errors.New("detector: item lookup is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	window := opts.WindowMinutes
	if window <= 0 {
		window = DefaultHistoryWindowMinutes
	}
	return &ScoredDetector{
		history:       opts.History,
		items:         opts.Items,
		logger:        logger,
		windowMinutes: window,
		now:           time.Now,
	}, nil
}

func (d *ScoredDetector) Name() string { return "scored" }

// Detect scores every tradeable item in the cycle and returns opportunities
// ordered by score descending. Items without a catalog entry, without a buy
// limit, or without enough history are skipped.
func (d *ScoredDetector) Detect(ctx context.Context, cycle CycleData) (*Result, error) {
	res := &Result{GeneratedAt: d.now().Unix()}

	opportunities := make([]*domain.Opportunity, 0, len(cycle.Snapshots)/8)
	for itemID, snap := range cycle.Snapshots {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		res.Scanned++

		meta, ok := d.items.Item(itemID)
		if !ok || !meta.Tradeable() {
			res.Skipped++
			continue
		}
		if !snap.Valid() {
			res.Skipped++
			continue
		}

		history, err := d.history.RecentHistory(ctx, itemID, d.windowMinutes)
		if err != nil {
			return nil, fmt.Errorf("detector: load history for item %d: %w", itemID, err)
		}

		m, err := metrics.ComputeMetrics(snap, history, meta.BuyLimit)
		if err != nil {
			if errors.Is(err, metrics.ErrInsufficientData) {
				res.Skipped++
				continue
			}
			return nil, fmt.Errorf("detector: compute metrics for item %d: %w", itemID, err)
		}
		if m.DropPct <= 0 {
			res.Skipped++
			continue
		}

		score := scoring.Score(m)
		tier := scoring.TierFor(score)
		opportunities = append(opportunities, &domain.Opportunity{
			ItemID:    itemID,
			Name:      meta.Name,
			Members:   meta.Members,
			BuyLimit:  meta.BuyLimit,
			Metrics:   m,
			Score:     score,
			Tier:      tier,
			Flags:     scoring.Flags(m, score),
			Timestamp: snap.Timestamp,
		})
	}

	sort.Slice(opportunities, func(i, j int) bool {
		if opportunities[i].Score != opportunities[j].Score {
			return opportunities[i].Score > opportunities[j].Score
		}
		return opportunities[i].ItemID < opportunities[j].ItemID
	})
	res.Opportunities = opportunities

	d.logger.Printf("[detector] scored pass done: scanned=%d skipped=%d opportunities=%d",
		res.Scanned, res.Skipped, len(opportunities))
	return res, nil
}
