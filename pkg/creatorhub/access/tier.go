package access

import "sort"

// Tier is the part of a membership tier used for upgrade decisions
type Tier struct {
	ID         string
	PriceCents int64
	Position   int
	Active     bool
}

// IsUpgrade reports whether candidate costs strictly more than current.
// A nil current tier is the free tier. Position is not consulted.
func IsUpgrade(current *Tier, candidate Tier) bool {
	var currentPrice int64
	if current != nil {
		if current.ID != "" && current.ID == candidate.ID {
			return false
		}
		currentPrice = current.PriceCents
	}
	return candidate.PriceCents > currentPrice
}

// UpgradeOptions returns the active tiers that are upgrades from current,
// ordered by position.
func UpgradeOptions(current *Tier, tiers []Tier) []Tier {
	var out []Tier
	for _, t := range tiers {
		if t.Active && IsUpgrade(current, t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out
}
