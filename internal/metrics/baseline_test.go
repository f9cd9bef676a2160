package metrics

import (
	"math"
	"testing"

	"ge-market-watch/internal/domain"
)

func records(lows ...int64) []*domain.HistoryRecord {
	out := make([]*domain.HistoryRecord, len(lows))
	for i, low := range lows {
		out[i] = &domain.HistoryRecord{
			ItemID:    4151,
			Timestamp: int64(1700000000 + i*300),
			Low:       low,
			High:      low + 10,
			Volume:    100,
		}
	}
	return out
}

func TestComputeBaseline_MedianOddWindow(t *testing.T) {
	// Four records; the newest is excluded, leaving lows 100, 300, 200.
	history := records(100, 300, 200, 999)

	stats := ComputeBaseline(history, DefaultBaselineOptions())

	if stats.Price != 200 {
		t.Errorf("expected median price 200, got %f", stats.Price)
	}
}

func TestComputeBaseline_MedianEvenWindow(t *testing.T) {
	// Window lows 100, 200, 300, 400 → median (200+300)/2.
	history := records(100, 200, 300, 400, 999)

	stats := ComputeBaseline(history, DefaultBaselineOptions())

	if stats.Price != 250 {
		t.Errorf("expected median price 250, got %f", stats.Price)
	}
}

func TestComputeBaseline_ExcludesNewestEntry(t *testing.T) {
	// A crashed current price must not drag the baseline down.
	history := records(200, 200, 200, 1)

	stats := ComputeBaseline(history, DefaultBaselineOptions())

	if stats.Price != 200 {
		t.Errorf("expected baseline 200 unaffected by current point, got %f", stats.Price)
	}
}

func TestComputeBaseline_WindowSizeBound(t *testing.T) {
	// 20 history points; only the last 12 before the newest count.
	lows := make([]int64, 0, 20)
	for i := 0; i < 8; i++ {
		lows = append(lows, 1_000_000) // outside the window
	}
	for i := 0; i < 11; i++ {
		lows = append(lows, 100)
	}
	lows = append(lows, 999) // newest, excluded
	history := records(lows...)

	stats := ComputeBaseline(history, DefaultBaselineOptions())

	// Window is 1x 1,000,000 + 11x 100 → median 100.
	if stats.Price != 100 {
		t.Errorf("expected windowed median 100, got %f", stats.Price)
	}
}

func TestComputeBaseline_MeanVolume(t *testing.T) {
	history := records(100, 100, 100, 100)
	history[0].Volume = 50
	history[1].Volume = 150
	history[2].Volume = 100
	history[3].Volume = 100000 // newest, excluded

	stats := ComputeBaseline(history, DefaultBaselineOptions())

	if math.Abs(stats.Volume-100) > 1e-9 {
		t.Errorf("expected mean volume 100, got %f", stats.Volume)
	}
}

func TestComputeBaseline_MeanPriceOption(t *testing.T) {
	history := records(100, 200, 600, 999)

	stats := ComputeBaseline(history, BaselineOptions{
		UseMedianForPrice: false,
		UseMeanForVolume:  true,
		WindowSize:        DefaultWindowSize,
	})

	if stats.Price != 300 {
		t.Errorf("expected mean price 300, got %f", stats.Price)
	}
}

func TestComputeBaseline_TooFewPoints(t *testing.T) {
	stats := ComputeBaseline(records(100), DefaultBaselineOptions())

	if stats.Usable() {
		t.Errorf("expected unusable baseline for a single point, got %+v", stats)
	}
}

func TestComputeBaseline_NoUsablePrices(t *testing.T) {
	// Lows of zero mean no trade that interval; they never form a baseline.
	history := records(0, 0, 0, 100)

	stats := ComputeBaseline(history, DefaultBaselineOptions())

	if stats.Usable() {
		t.Errorf("expected unusable baseline without positive lows, got %+v", stats)
	}
}

func TestComputeBaseline_Deterministic(t *testing.T) {
	history := records(300, 100, 200, 400, 999)

	first := ComputeBaseline(history, DefaultBaselineOptions())
	second := ComputeBaseline(history, DefaultBaselineOptions())

	if first != second {
		t.Errorf("expected identical results, got %+v and %+v", first, second)
	}
	// The input order must survive the median's internal sort.
	if history[0].Low != 300 || history[1].Low != 100 {
		t.Errorf("input slice was mutated: %+v", history)
	}
}
