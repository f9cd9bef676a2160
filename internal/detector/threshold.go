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
	"ge-market-watch/internal/storage"
)

// Threshold classifier defaults. Floors are in gp and percent; list sizes
// bound how much each hourly report carries.
const (
	DefaultMarginFloorGP   = 1000
	DefaultPriceFloorGP    = 100
	DefaultDumpDropPct     = 10.0
	DefaultDumpVolumeFloor = 100
	DefaultSpikeRisePct    = 10.0

	MaxMarginEntries = 50
	MaxDumpEntries   = 20
	MaxSpikeEntries  = 20
)

// ThresholdDetector is the simpler hourly classifier: no baseline scoring,
// just three non-exclusive buckets cut against fixed floors.
type ThresholdDetector struct {
	history storage.HistoryStore
	items   ItemLookup
	logger  *log.Logger

	marginFloorGP   int64
	priceFloorGP    int64
	dumpDropPct     float64
	dumpVolumeFloor int64
	spikeRisePct    float64

	windowMinutes int
	baseline      metrics.BaselineOptions
	now           func() time.Time
}

// ThresholdOptions configures NewThresholdDetector. History and Items are
// required; zero floors take the package defaults.
type ThresholdOptions struct {
	History storage.HistoryStore
	Items   ItemLookup
	Logger  *log.Logger

	MarginFloorGP   int64
	PriceFloorGP    int64
	DumpDropPct     float64
	DumpVolumeFloor int64
	SpikeRisePct    float64

	// WindowMinutes bounds how far back the hour's average looks.
	// Zero means enough 1h rows for the default baseline window.
	WindowMinutes int
}

var _ Detector = (*ThresholdDetector)(nil)

func NewThresholdDetector(opts ThresholdOptions) (*ThresholdDetector, error) {
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
	d := &ThresholdDetector{
		history:         opts.History,
		items:           opts.Items,
		logger:          logger,
		marginFloorGP:   opts.MarginFloorGP,
		priceFloorGP:    opts.PriceFloorGP,
		dumpDropPct:     opts.DumpDropPct,
		dumpVolumeFloor: opts.DumpVolumeFloor,
		spikeRisePct:    opts.SpikeRisePct,
		windowMinutes:   opts.WindowMinutes,
		// The hour's average uses the mean, not the median: with only a
		// handful of coarse rows the median over-weights a single hour.
		baseline: metrics.BaselineOptions{
			UseMedianForPrice: false,
			UseMeanForVolume:  true,
			WindowSize:        metrics.DefaultWindowSize,
		},
		now: time.Now,
	}
	if d.marginFloorGP <= 0 {
		d.marginFloorGP = DefaultMarginFloorGP
	}
	if d.priceFloorGP <= 0 {
		d.priceFloorGP = DefaultPriceFloorGP
	}
	if d.dumpDropPct <= 0 {
		d.dumpDropPct = DefaultDumpDropPct
	}
	if d.dumpVolumeFloor <= 0 {
		d.dumpVolumeFloor = DefaultDumpVolumeFloor
	}
	if d.spikeRisePct <= 0 {
		d.spikeRisePct = DefaultSpikeRisePct
	}
	if d.windowMinutes <= 0 {
		// baseline window + newest point at 1h resolution
		d.windowMinutes = (metrics.DefaultWindowSize + 1) * 60
	}
	return d, nil
}

func (d *ThresholdDetector) Name() string { return "threshold" }

// Detect buckets the cycle's items into margin, dump and spike lists. The
// buckets are not exclusive; one item can appear in all three.
func (d *ThresholdDetector) Detect(ctx context.Context, cycle CycleData) (*Result, error) {
	report := &domain.HourlyReport{GeneratedAt: d.now().Unix()}
	res := &Result{Report: report, GeneratedAt: report.GeneratedAt}

	for itemID, snap := range cycle.Snapshots {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		res.Scanned++

		meta, ok := d.items.Item(itemID)
		if !ok {
			res.Skipped++
			continue
		}
		if !snap.Valid() {
			res.Skipped++
			continue
		}

		margin := snap.High - snap.Low
		if margin >= d.marginFloorGP && snap.Low >= d.priceFloorGP {
			report.Margins = append(report.Margins, domain.MarginEntry{
				ItemID:   itemID,
				Name:     meta.Name,
				Low:      snap.Low,
				High:     snap.High,
				MarginGP: margin,
				Volume:   snap.Volume,
			})
		}

		history, err := d.history.RecentHistory(ctx, itemID, d.windowMinutes)
		if err != nil {
			return nil, fmt.Errorf("detector: load history for item %d: %w", itemID, err)
		}
		avg := metrics.ComputeBaseline(history, d.baseline).Price
		if avg <= 0 {
			res.Skipped++
			continue
		}

		if dropPct := (avg - float64(snap.Low)) / avg * 100; dropPct >= d.dumpDropPct && snap.Volume >= d.dumpVolumeFloor {
			report.Dumps = append(report.Dumps, domain.DumpEntry{
				ItemID:   itemID,
				Name:     meta.Name,
				Low:      snap.Low,
				AvgPrice: avg,
				DropPct:  dropPct,
				Volume:   snap.Volume,
			})
		}
		if risePct := (float64(snap.High) - avg) / avg * 100; risePct >= d.spikeRisePct {
			report.Spikes = append(report.Spikes, domain.SpikeEntry{
				ItemID:   itemID,
				Name:     meta.Name,
				High:     snap.High,
				AvgPrice: avg,
				RisePct:  risePct,
				Volume:   snap.Volume,
			})
		}
	}

	sort.Slice(report.Margins, func(i, j int) bool {
		return report.Margins[i].MarginGP > report.Margins[j].MarginGP
	})
	sort.Slice(report.Dumps, func(i, j int) bool {
		ki := float64(report.Dumps[i].Volume) * report.Dumps[i].DropPct
		kj := float64(report.Dumps[j].Volume) * report.Dumps[j].DropPct
		return ki > kj
	})
	sort.Slice(report.Spikes, func(i, j int) bool {
		return report.Spikes[i].RisePct > report.Spikes[j].RisePct
	})
	report.Margins = truncateMargins(report.Margins, MaxMarginEntries)
	report.Dumps = truncateDumps(report.Dumps, MaxDumpEntries)
	report.Spikes = truncateSpikes(report.Spikes, MaxSpikeEntries)

	d.logger.Printf("[detector] threshold pass done: scanned=%d skipped=%d margins=%d dumps=%d spikes=%d",
		res.Scanned, res.Skipped, len(report.Margins), len(report.Dumps), len(report.Spikes))
	return res, nil
}

func truncateMargins(entries []domain.MarginEntry, n int) []domain.MarginEntry {
	if len(entries) > n {
		return entries[:n]
	}
	return entries
}

func truncateDumps(entries []domain.DumpEntry, n int) []domain.DumpEntry {
	if len(entries) > n {
		return entries[:n]
	}
	return entries
}

func truncateSpikes(entries []domain.SpikeEntry, n int) []domain.SpikeEntry {
	if len(entries) > n {
		return entries[:n]
	}
	return entries
}
