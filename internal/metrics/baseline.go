// Package metrics derives per-item baselines and explainable signals from
// price history. All functions are pure: identical inputs always produce
// identical outputs.
package metrics

import (
	"sort"

	"ge-market-watch/internal/domain"
)

// DefaultWindowSize is the trailing window used for baselines: one hour of
// 5-minute intervals.
const DefaultWindowSize = 12

// BaselineOptions selects the estimators for the baseline computation.
type BaselineOptions struct {
	// UseMedianForPrice picks the median of window low prices; false falls
	// back to the mean. Median is the default for robustness to
	// single-point anomalies.
	UseMedianForPrice bool

	// UseMeanForVolume picks the arithmetic mean of window volumes; false
	// falls back to the median.
	UseMeanForVolume bool

	// WindowSize is the number of trailing entries considered.
	WindowSize int
}

// DefaultBaselineOptions returns the standard estimator selection.
func DefaultBaselineOptions() BaselineOptions {
	return BaselineOptions{
		UseMedianForPrice: true,
		UseMeanForVolume:  true,
		WindowSize:        DefaultWindowSize,
	}
}

// ComputeBaseline derives reference stats from history ordered oldest first.
// The most recent entry is excluded: it is the current point, not baseline.
// The window is the last opts.WindowSize entries of the remainder, or fewer
// if unavailable. Returns the zero value when fewer than 2 history points
// exist overall or when no window entry has a usable price; callers must
// treat that as "insufficient data", not a valid zero baseline.
func ComputeBaseline(history []*domain.HistoryRecord, opts BaselineOptions) domain.BaselineStats {
	if len(history) < 2 {
		return domain.BaselineStats{}
	}
	if opts.WindowSize <= 0 {
		opts.WindowSize = DefaultWindowSize
	}

	window := history[:len(history)-1]
	if len(window) > opts.WindowSize {
		window = window[len(window)-opts.WindowSize:]
	}

	var prices []float64
	volumes := make([]float64, 0, len(window))
	for _, rec := range window {
		if rec.Low > 0 {
			prices = append(prices, float64(rec.Low))
		}
		volumes = append(volumes, float64(rec.Volume))
	}
	if len(prices) == 0 {
		return domain.BaselineStats{}
	}

	var price float64
	if opts.UseMedianForPrice {
		price = median(prices)
	} else {
		price = mean(prices)
	}

	var volume float64
	if opts.UseMeanForVolume {
		volume = mean(volumes)
	} else {
		volume = median(volumes)
	}

	return domain.BaselineStats{Price: price, Volume: volume}
}

// median returns the middle value; an even count averages the two middle
// values. Input is not modified.
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// mean returns the arithmetic mean.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
