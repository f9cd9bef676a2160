package domain

// The hourly threshold classifier buckets items into three non-exclusive
// categories over coarse data. It coexists with the scored engine as a
// cheaper, lower-fidelity detector over the same upstream series.

// MarginEntry is an item whose buy/sell spread clears the configured floors.
// Ranked by profit descending.
type MarginEntry struct {
	ItemID   int
	Name     string
	Low      int64
	High     int64
	MarginGP int64
	Volume   int64
}

// DumpEntry is an item whose price dropped past the configured percent with
// volume above the floor. Ranked by Volume * DropPct descending.
type DumpEntry struct {
	ItemID   int
	Name     string
	Low      int64
	AvgPrice float64 // hour's average price the drop is measured against
	DropPct  float64
	Volume   int64
}

// SpikeEntry is the symmetric rise condition. Ranked by RisePct descending.
type SpikeEntry struct {
	ItemID   int
	Name     string
	High     int64
	AvgPrice float64
	RisePct  float64
	Volume   int64
}

// HourlyReport is one cycle's output from the threshold classifier.
type HourlyReport struct {
	Margins     []MarginEntry
	Dumps       []DumpEntry
	Spikes      []SpikeEntry
	GeneratedAt int64 // Unix seconds
}
