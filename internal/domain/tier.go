package domain

// TierGroup partitions tiers for coarse-grained alert routing.
type TierGroup string

const (
	TierGroupMetals TierGroup = "metals"
	TierGroupGems   TierGroup = "gems"
)

// Tier is one discrete band of the normalized score. The ten static tiers
// cover [0,100] with no gaps; adjacent bands share their edge score and
// assignment resolves an edge to the lower band.
type Tier struct {
	Name     string
	Emoji    string
	Group    TierGroup
	MinScore float64
	MaxScore float64
}

// Contains reports whether score falls inside the band (inclusive).
func (t Tier) Contains(score float64) bool {
	return score >= t.MinScore && score <= t.MaxScore
}
