package domain

// ItemMetadata is read-only reference data from the external item catalog
// (mapping endpoint). Corresponds to the items table in PostgreSQL.
// BuyLimit caps how many units one actor can trade in a rolling 4-hour
// window; items with BuyLimit == 0 are untradeable and excluded from scoring.
type ItemMetadata struct {
	ID       int
	Name     string
	BuyLimit int
	Members  bool
	Value    int // guide price from the catalog
	HighAlch int
	Icon     string
}

// Tradeable reports whether the item participates in scoring.
func (m ItemMetadata) Tradeable() bool {
	return m.BuyLimit > 0
}

// BuyLimitWindowIntervals is the number of 5-minute intervals in the 4-hour
// buy limit window. Expected per-interval volume is BuyLimit / 48.
const BuyLimitWindowIntervals = 48
