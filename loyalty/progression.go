/*
progression.go - Tier Progression Monitor

PURPOSE:
  Runs after every balance change: recomputes the tier from the current
  balance and thresholds and raises the stored tier when the resolved one
  is higher.

MONOTONIC BY DEFAULT:
  Automatic reconciliation only ever raises. Thresholds can be lowered and
  balances spent down after a tier was earned; silently demoting would
  punish the customer for redeeming. The store's RaiseTier is conditional
  on the ordering, so concurrent reconciliations cannot fight each other.

  The one path that may lower a tier is the explicit admin override, a
  distinct action recorded as such - the two policies never conflict
  silently.
*/
package loyalty

import (
	"context"
	"fmt"
	"log"
)

// ReconcileTier recomputes the account's tier against current thresholds
// and raises the stored tier if the resolved one is strictly higher.
// Reports whether the tier changed. On a raise it re-runs the Achievement
// Engine, since a tier-triggered achievement may now be satisfied.
func (s *Service) ReconcileTier(ctx context.Context, accountID AccountID) (bool, error) {
	acct, err := s.Store.ReadAccount(ctx, accountID)
	if err != nil {
		return false, storeFailure("read account", err)
	}
	th, err := s.Store.ReadThresholds(ctx)
	if err != nil {
		return false, storeFailure("read thresholds", err)
	}

	resolved := ResolveTier(acct.PointsBalance, th)
	if !resolved.Above(acct.Tier) {
		return false, nil
	}

	raised, err := s.Store.RaiseTier(ctx, accountID, resolved)
	if err != nil {
		return false, storeFailure("raise tier", err)
	}
	if !raised {
		// A concurrent reconciliation already applied an equal or higher
		// tier. Nothing further to do.
		return false, nil
	}

	s.notify(ctx, accountID, "tier_raised", fmt.Sprintf("Welcome to %s!", resolved))

	if _, err := s.EvaluateAndGrant(ctx, accountID); err != nil {
		log.Printf("loyalty: achievement evaluation after tier raise for account %s failed: %v", accountID, err)
	}
	return true, nil
}

// OverrideTier sets the tier unconditionally on behalf of an admin. This
// is the only path that may lower a tier, and it is recorded as an
// explicit override, separate from automatic reconciliation. The next
// natural earn event reconciles as usual, so an override below the
// computed tier will be re-raised on the next award.
func (s *Service) OverrideTier(ctx context.Context, accountID AccountID, to Tier, adminID string) error {
	if !to.Valid() {
		return fmt.Errorf("unknown tier %q", to)
	}
	if _, err := s.Store.ReadAccount(ctx, accountID); err != nil {
		return storeFailure("read account", err)
	}
	if err := s.Store.SetTier(ctx, accountID, to); err != nil {
		return storeFailure("set tier", err)
	}
	s.notify(ctx, accountID, "tier_override", fmt.Sprintf("Tier set to %s by %s", to, adminID))
	return nil
}

// UpdateThresholds validates and stores a new threshold pair, then leaves
// stale stored tiers to the next reconciliation (raise-only, so lowering
// thresholds promotes accounts lazily on their next award).
func (s *Service) UpdateThresholds(ctx context.Context, th TierThresholds) error {
	if err := th.Validate(); err != nil {
		return err
	}
	if err := s.Store.WriteThresholds(ctx, th); err != nil {
		return storeFailure("write thresholds", err)
	}
	return nil
}
