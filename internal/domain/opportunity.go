package domain

// Metrics are the explainable per-item signals derived from a current
// snapshot, its baseline, and the item's buy limit. All percentage fields
// are percent (not fraction) and clamped non-negative; VolSpikePct and
// OversupplyPct are additionally capped at 10000 to bound outlier influence.
type Metrics struct {
	DropPct        float64 // price drop vs baseline, 0 when price rose
	VolSpikePct    float64 // volume vs baseline volume, capped at 10000
	OversupplyPct  float64 // volume vs buy limit, capped at 10000
	SlowBuy        bool    // volume under half the expected 5m volume
	OneGPDump      bool    // price collapsed to 1 gp or less
	MarginGP       int64   // high - low, floored at 0
	MaxProfitGP    int64   // MarginGP * buy limit
	BaselinePrice  float64
	BaselineVolume float64
}

// Opportunity flag names.
const (
	FlagSlowBuy   = "slow_buy"
	FlagOneGPDump = "one_gp_dump"
	FlagSuper     = "super"
)

// Opportunity is the externally visible unit for one item in one cycle:
// catalog fields, metrics, score, tier and flags. Created fresh every cycle;
// a previous generation is discarded wholesale, never mutated.
type Opportunity struct {
	ItemID   int
	Name     string
	Members  bool
	BuyLimit int

	Metrics Metrics
	Score   float64 // normalized score in [0, 100]
	Tier    Tier
	Flags   []string

	Timestamp int64 // snapshot timestamp, Unix seconds
}

// HasFlag reports whether the opportunity carries a given flag.
func (o *Opportunity) HasFlag(flag string) bool {
	for _, f := range o.Flags {
		if f == flag {
			return true
		}
	}
	return false
}
