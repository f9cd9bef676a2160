package scoring

import "ge-market-watch/internal/domain"

// tiers are the ten static bands covering [0, 100] with no gaps, ascending.
// Adjacent bands share their edge score; TierFor resolves an edge to the
// lower band. Metals cover the lower six bands, gems the top four.
var tiers = []domain.Tier{
	{Name: "iron", Emoji: "⚙️", Group: domain.TierGroupMetals, MinScore: 0, MaxScore: 10},
	{Name: "copper", Emoji: "🟠", Group: domain.TierGroupMetals, MinScore: 10, MaxScore: 20},
	{Name: "bronze", Emoji: "🥉", Group: domain.TierGroupMetals, MinScore: 20, MaxScore: 30},
	{Name: "silver", Emoji: "🥈", Group: domain.TierGroupMetals, MinScore: 30, MaxScore: 40},
	{Name: "gold", Emoji: "🥇", Group: domain.TierGroupMetals, MinScore: 40, MaxScore: 50},
	{Name: "platinum", Emoji: "✨", Group: domain.TierGroupMetals, MinScore: 50, MaxScore: 60},
	{Name: "ruby", Emoji: "🔴", Group: domain.TierGroupGems, MinScore: 60, MaxScore: 70},
	{Name: "sapphire", Emoji: "🔵", Group: domain.TierGroupGems, MinScore: 70, MaxScore: 80},
	{Name: "emerald", Emoji: "🟢", Group: domain.TierGroupGems, MinScore: 80, MaxScore: 90},
	{Name: "diamond", Emoji: "💎", Group: domain.TierGroupGems, MinScore: 90, MaxScore: 100},
}

// Tiers returns a copy of the static tier table, ascending by score band.
func Tiers() []domain.Tier {
	out := make([]domain.Tier, len(tiers))
	copy(out, tiers)
	return out
}

// TierFor maps a score onto its band: the lowest tier whose upper bound
// covers the score, so a shared edge (e.g. exactly 10) goes to the lower
// band and every assigned tier contains its score. Anything outside
// [0, 100] defaults to the lowest tier; given clamping upstream that
// should not occur.
func TierFor(score float64) domain.Tier {
	for _, t := range tiers {
		if score <= t.MaxScore {
			return t
		}
	}
	return tiers[0]
}

// TierByName looks up a tier by its name. The second result is false when
// no such tier exists.
func TierByName(name string) (domain.Tier, bool) {
	for _, t := range tiers {
		if t.Name == name {
			return t, true
		}
	}
	return domain.Tier{}, false
}
