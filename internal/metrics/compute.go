package metrics

import (
	"errors"

	"ge-market-watch/internal/domain"
)

// ErrInsufficientData signals that an item cannot be scored this cycle: too
// little history, a missing current price, or no usable baseline. It is a
// skip, not a failure.
var ErrInsufficientData = errors.New("insufficient data for metrics")

// Caps bounding outlier influence on percentage signals.
const (
	// PctCap caps vol_spike_pct and oversupply_pct at 100x baseline.
	PctCap = 10000.0

	// slowBuyFraction marks volume under this fraction of the expected
	// per-interval volume as a slow buy.
	slowBuyFraction = 0.5
)

// ComputeMetrics derives the per-item signals from the current snapshot, its
// trailing history (ordered oldest first, newest entry being the current
// point) and the item's buy limit. All percentages are percent, clamped
// non-negative at every formula boundary.
func ComputeMetrics(current domain.MarketSnapshot, history []*domain.HistoryRecord, buyLimit int) (domain.Metrics, error) {
	if len(history) < 2 || current.Low <= 0 {
		return domain.Metrics{}, ErrInsufficientData
	}

	baseline := ComputeBaseline(history, DefaultBaselineOptions())
	if !baseline.Usable() {
		return domain.Metrics{}, ErrInsufficientData
	}

	m := domain.Metrics{
		BaselinePrice:  baseline.Price,
		BaselineVolume: baseline.Volume,
	}

	// Price drop vs baseline. Price increases yield 0, never negative.
	m.DropPct = (baseline.Price - float64(current.Low)) / float64(current.Low) * 100
	if m.DropPct < 0 {
		m.DropPct = 0
	}

	// Volume spike vs baseline volume. A zero baseline with any current
	// volume counts as a flat 100% spike.
	switch {
	case baseline.Volume > 0:
		m.VolSpikePct = clampPct((float64(current.Volume)/baseline.Volume - 1) * 100)
	case current.Volume > 0:
		m.VolSpikePct = 100
	}

	// Oversupply vs the 4-hour buy limit.
	if buyLimit > 0 {
		m.OversupplyPct = clampPct(float64(current.Volume) / float64(buyLimit) * 100)
	}

	// Slow buy: current interval volume under half the expected share of
	// the buy limit window.
	expected5mVolume := float64(buyLimit) / domain.BuyLimitWindowIntervals
	m.SlowBuy = expected5mVolume > 0 && float64(current.Volume) < slowBuyFraction*expected5mVolume

	m.OneGPDump = current.Low <= 1

	if current.High > current.Low {
		m.MarginGP = current.High - current.Low
	}
	m.MaxProfitGP = m.MarginGP * int64(buyLimit)

	return m, nil
}

// clampPct bounds a percentage to [0, PctCap].
func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > PctCap {
		return PctCap
	}
	return v
}
