package domain

// Granularity identifies which polling pipeline produced a record.
type Granularity string

const (
	// GranularityFine is the 5-minute interval pipeline.
	GranularityFine Granularity = "5m"

	// GranularityCoarse is the hourly pipeline with 7-day retention.
	GranularityCoarse Granularity = "1h"
)

// IntervalSeconds returns the polling interval for a granularity.
func (g Granularity) IntervalSeconds() int64 {
	if g == GranularityCoarse {
		return 3600
	}
	return 300
}

// MarketSnapshot is one item's price/volume reading for a single polling
// interval, as returned by the upstream price source. Immutable once created.
// Low and High are integer gp; Low is the insta-sell price, High the
// insta-buy price.
type MarketSnapshot struct {
	ItemID    int   // GE item identifier
	Timestamp int64 // interval timestamp, Unix seconds
	Low       int64 // insta-sell price in gp
	High      int64 // insta-buy price in gp
	Volume    int64 // units traded in the interval, never negative
}

// Valid reports whether the snapshot carries both prices.
// Snapshots without a usable price are skipped at persist time, not errored.
func (s MarketSnapshot) Valid() bool {
	return s.Low > 0 && s.High > 0
}

// HistoryRecord is the persisted form of a MarketSnapshot.
// Corresponds to the price_history tables, ordered by (item_id, timestamp).
type HistoryRecord struct {
	ID        int64 // storage-assigned row id, 0 before insert
	ItemID    int
	Timestamp int64 // Unix seconds
	Low       int64
	High      int64
	Volume    int64
	CreatedAt int64 // record creation timestamp, Unix seconds
}

// BaselineStats is the robust reference computed from a trailing history
// window, excluding the current reading. Ephemeral, never persisted.
// A zero value means "insufficient data", not a valid zero baseline.
type BaselineStats struct {
	Price  float64 // median of window low prices
	Volume float64 // mean of window volumes
}

// Usable reports whether the baseline carries enough data to score against.
func (b BaselineStats) Usable() bool {
	return b.Price > 0
}
