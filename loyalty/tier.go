/*
tier.go - Tier resolution

PURPOSE:
  The single source of truth for threshold math. Duplicating this
  comparison anywhere else invites drift; every read and write path goes
  through ResolveTier instead.

CONTRACT:
  Pure, deterministic, total. No I/O, no hidden state, safe to call
  concurrently. Always evaluated against the CURRENT thresholds - a stored
  tier can go stale after an admin edits thresholds, and the progression
  monitor (progression.go) is what closes that gap, never the resolver.
*/
package loyalty

// ResolveTier maps a cumulative points balance to a tier under the given
// thresholds: gold at GoldMin and above, silver at SilverMin and above,
// bronze otherwise.
func ResolveTier(balance int64, th TierThresholds) Tier {
	switch {
	case balance >= th.GoldMin:
		return TierGold
	case balance >= th.SilverMin:
		return TierSilver
	}
	return TierBronze
}

// NextThreshold returns the balance needed for the next tier and whether
// one exists. Used by progress displays.
func NextThreshold(balance int64, th TierThresholds) (int64, bool) {
	switch ResolveTier(balance, th) {
	case TierBronze:
		return th.SilverMin, true
	case TierSilver:
		return th.GoldMin, true
	}
	return 0, false
}
