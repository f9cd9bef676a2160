// Package detector holds the two detection strategies that turn one cycle's
// snapshots into consumable output: the scored/tiered engine over
// fine-grained data, and the cheaper hourly threshold classifier. Both run
// over the same upstream series and are selectable behind one interface.
package detector

import (
	"context"

	"ge-market-watch/internal/domain"
)

// CycleData is one polling cycle's input: the freshly fetched snapshots and
// the granularity they were fetched at. Snapshots are already persisted (or
// the write failed non-fatally); detectors read history from storage and
// snapshots from here.
type CycleData struct {
	Snapshots   map[int]domain.MarketSnapshot
	Granularity domain.Granularity
}

// Result is one cycle's detection output. Exactly one of Opportunities or
// Report is populated, depending on the strategy.
type Result struct {
	Opportunities []*domain.Opportunity // scored engine, score descending
	Report        *domain.HourlyReport  // threshold classifier
	Scanned       int                   // items considered
	Skipped       int                   // items without enough data to judge
	GeneratedAt   int64                 // Unix seconds
}

// Detector turns a cycle's data into ranked output.
type Detector interface {
	// Name identifies the strategy in logs and metrics.
	Name() string

	// Detect runs one detection pass. A single bad item never fails the
	// pass; it is skipped and counted.
	Detect(ctx context.Context, cycle CycleData) (*Result, error)
}

// ItemLookup resolves catalog metadata during detection.
type ItemLookup interface {
	// Item returns metadata for an item id. The second result is false
	// when the catalog has no such item.
	Item(itemID int) (domain.ItemMetadata, bool)
}
