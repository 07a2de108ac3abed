/*
achievements.go - Achievement Engine and catalog

PURPOSE:
  Evaluates the fixed rule set against current account state and
  idempotently grants any newly-satisfied achievement. Each grant produces
  a bonus ledger entry (when the definition carries reward points) and a
  notification.

EXACTLY-ONCE GRANTING:
  The grant insert goes through the store's insert-if-absent primitive.
  Two concurrent evaluations may both attempt the same grant; exactly one
  insert wins, and only the winner awards the bonus and notifies. The
  loser observes the existing grant and skips silently - it is not an
  error. An application-level "already has badge?" read before insert
  would race; the uniqueness constraint is the guard.

FAILURE ISOLATION:
  Evaluation of all definitions completes even if one grant's side effect
  fails. A failed bonus award or notification is logged; the grant row
  stays and the side effects are at-least-once.
*/
package loyalty

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// =============================================================================
// CATALOG - Fixed, code-defined, immutable at runtime
// =============================================================================

var DefaultCatalog = []AchievementDefinition{
	{ID: "first_visit", Name: "First Visit", Trigger: TriggerVisits, Requirement: 1, RewardPoints: 10},
	{ID: "regular", Name: "Regular", Trigger: TriggerVisits, Requirement: 10, RewardPoints: 50},
	{ID: "coffee_fanatic", Name: "Coffee Fanatic", Trigger: TriggerVisits, Requirement: 50, RewardPoints: 150},
	{ID: "point_collector", Name: "Point Collector", Trigger: TriggerPoints, Requirement: 500, RewardPoints: 50},
	{ID: "big_spender", Name: "Big Spender", Trigger: TriggerPoints, Requirement: 1000, RewardPoints: 100},
	{ID: "social_butterfly", Name: "Social Butterfly", Trigger: TriggerSocial, Requirement: 5, RewardPoints: 25},
	{ID: "silver_member", Name: "Silver Member", Trigger: TriggerTier, TierRequired: TierSilver, RewardPoints: 50},
	{ID: "gold_member", Name: "Gold Member", Trigger: TriggerTier, TierRequired: TierGold, RewardPoints: 100},
}

// =============================================================================
// ENGINE
// =============================================================================

// EvaluateAndGrant tests every not-yet-granted definition against the
// account's current state and grants the satisfied ones. Returns only the
// grants this call won. Safe to run redundantly and concurrently.
func (s *Service) EvaluateAndGrant(ctx context.Context, accountID AccountID) ([]AchievementGrant, error) {
	acct, err := s.Store.ReadAccount(ctx, accountID)
	if err != nil {
		return nil, storeFailure("read account", err)
	}

	existing, err := s.Store.GrantedAchievements(ctx, accountID)
	if err != nil {
		return nil, storeFailure("read grants", err)
	}
	granted := make(map[AchievementID]bool, len(existing))
	for _, g := range existing {
		granted[g.AchievementID] = true
	}

	var won []AchievementGrant
	for _, def := range s.Catalog {
		if granted[def.ID] || !def.Satisfied(acct) {
			continue
		}
		grant, err := s.grant(ctx, acct.ID, def)
		if err != nil {
			if errors.Is(err, ErrAlreadyGranted) {
				continue // lost the race; another evaluation owns it
			}
			// Isolate per-achievement failures: keep evaluating the rest.
			log.Printf("loyalty: granting %s to account %s failed: %v", def.ID, accountID, err)
			continue
		}
		won = append(won, *grant)
	}
	return won, nil
}

// grant attempts the idempotent insert and, on the winning insert only,
// awards the bonus points and emits the unlock notification.
func (s *Service) grant(ctx context.Context, accountID AccountID, def AchievementDefinition) (*AchievementGrant, error) {
	inserted, err := s.Store.InsertAchievementGrantIfAbsent(ctx, accountID, def.ID)
	if err != nil {
		return nil, storeFailure("insert grant", err)
	}
	if !inserted {
		return nil, ErrAlreadyGranted
	}

	if def.RewardPoints > 0 {
		reason := "achievement: " + string(def.ID)
		if _, err := s.Award(ctx, accountID, EntryEarn, def.RewardPoints, reason); err != nil {
			// The grant stands; the bonus is a downstream effect.
			log.Printf("loyalty: bonus for achievement %s on account %s failed: %v", def.ID, accountID, err)
		}
	}

	s.notify(ctx, accountID, "achievement_unlocked", fmt.Sprintf("Achievement unlocked: %s", def.Name))

	return &AchievementGrant{
		AccountID:     accountID,
		AchievementID: def.ID,
		GrantedAt:     time.Now().UTC(),
	}, nil
}

// AccountAchievements returns the grants on record for an account.
func (s *Service) AccountAchievements(ctx context.Context, accountID AccountID) ([]AchievementGrant, error) {
	grants, err := s.Store.GrantedAchievements(ctx, accountID)
	if err != nil {
		return nil, storeFailure("read grants", err)
	}
	return grants, nil
}
