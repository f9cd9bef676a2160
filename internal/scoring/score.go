// Package scoring combines per-item metrics into a single normalized score
// and maps it onto a discrete tier. Everything here is pure and
// deterministic.
package scoring

import "ge-market-watch/internal/domain"

// Component weights. They sum to exactly 100, so the clamped total is a
// score in [0, 100].
const (
	WeightDrop       = 40.0
	WeightVolSpike   = 30.0
	WeightOversupply = 20.0
	WeightProfit     = 10.0

	// dropScale doubles drop_pct so a 20% drop saturates its component.
	dropScale = 2.0
	// volSpikeScale saturates the volume component at a 100% spike.
	volSpikeScale = 0.3
	// oversupplyScale saturates the oversupply component at 100% of limit.
	oversupplyScale = 0.2
	// profitUnitGP is the max_profit that saturates the profit component.
	profitUnitGP = 1_000_000.0
)

// Score computes the weighted sum of the four normalized, independently
// capped components, clamped to [0, 100].
func Score(m domain.Metrics) float64 {
	total := capAt(m.DropPct*dropScale, WeightDrop) +
		capAt(m.VolSpikePct*volSpikeScale, WeightVolSpike) +
		capAt(m.OversupplyPct*oversupplyScale, WeightOversupply) +
		capAt(float64(m.MaxProfitGP)/profitUnitGP*WeightProfit, WeightProfit)

	if total < 0 {
		return 0
	}
	if total > 100 {
		return 100
	}
	return total
}

// Flags derives the opportunity flag set from metrics and the final score.
// slow_buy and one_gp_dump pass through; super marks platinum or higher.
func Flags(m domain.Metrics, score float64) []string {
	var flags []string
	if m.SlowBuy {
		flags = append(flags, domain.FlagSlowBuy)
	}
	if m.OneGPDump {
		flags = append(flags, domain.FlagOneGPDump)
	}
	if score >= SuperScoreThreshold {
		flags = append(flags, domain.FlagSuper)
	}
	return flags
}

// SuperScoreThreshold is the score at which an opportunity is flagged super
// (the platinum band's lower bound).
const SuperScoreThreshold = 51.0

// capAt bounds a non-negative component contribution at its weight.
func capAt(v, cap float64) float64 {
	if v < 0 {
		return 0
	}
	if v > cap {
		return cap
	}
	return v
}
