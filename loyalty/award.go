/*
award.go - Points Award Service

PURPOSE:
  Records an earn/redeem event and updates the balance as one indivisible
  unit, then kicks the downstream checks (tier reconciliation, achievement
  evaluation) for the account.

ATOMICITY:
  The ledger append and the balance adjustment commit together or not at
  all. The adjustment itself is a single conditional increment/decrement
  at the store, so two concurrent awards on the same account serialize
  there - a lost update is structurally impossible.

DOWNSTREAM EFFECTS:
  Tier reconciliation and achievement evaluation run after the award
  commits. They are best-effort: a failure is logged, never rolled back
  into the award. Both are safe to run redundantly (raise-only tier
  updates, insert-if-absent grants), so overlapping runs after concurrent
  awards are harmless.

REDEEM PRECONDITION:
  Award does not re-validate affordability for redeem entries; the
  redemption workflow confirms it first. This keeps Award a thin,
  reusable primitive. The store's conditional update still refuses to
  drive a balance negative, so a caller that skips validation gets
  ErrInsufficientBalance rather than a corrupt ledger.
*/
package loyalty

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

// Award appends a ledger entry and adjusts the balance atomically, then
// triggers tier reconciliation and achievement evaluation.
func (s *Service) Award(ctx context.Context, accountID AccountID, kind EntryKind, amount int64, reason string) (*LedgerEntry, error) {
	entry, err := s.award(ctx, accountID, kind, amount, reason)
	if err != nil {
		return nil, err
	}
	s.runDownstream(ctx, accountID)
	return entry, nil
}

// award commits the entry without downstream triggers. Shared with the
// redemption approval path, which runs inside its own store transaction.
func (s *Service) award(ctx context.Context, accountID AccountID, kind EntryKind, amount int64, reason string) (*LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if kind != EntryEarn && kind != EntryRedeem {
		return nil, ErrInvalidKind
	}

	entry := LedgerEntry{
		ID:        NewEntryID(),
		AccountID: accountID,
		Kind:      kind,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}

	err := s.Store.WithTx(ctx, func(tx Store) error {
		return applyEntry(ctx, tx, entry)
	})
	if err != nil {
		return nil, storeFailure("award", err)
	}
	return &entry, nil
}

// applyEntry writes the ledger entry and its balance adjustment against
// the given store view. Callers are responsible for transactional scope.
func applyEntry(ctx context.Context, tx Store, entry LedgerEntry) error {
	if err := tx.InsertLedgerEntry(ctx, entry); err != nil {
		return err
	}
	_, err := tx.AtomicAdjustBalance(ctx, entry.AccountID, entry.Delta())
	return err
}

// runDownstream reconciles the tier and re-evaluates achievements after a
// balance change. Best-effort by contract.
func (s *Service) runDownstream(ctx context.Context, accountID AccountID) {
	if _, err := s.ReconcileTier(ctx, accountID); err != nil {
		log.Printf("loyalty: tier reconciliation for account %s failed: %v", accountID, err)
	}
	if _, err := s.EvaluateAndGrant(ctx, accountID); err != nil {
		log.Printf("loyalty: achievement evaluation for account %s failed: %v", accountID, err)
	}
}

// =============================================================================
// PURCHASE & VISIT FLOWS
// =============================================================================

// AwardForPurchase converts a purchase amount to points via the earn rate
// and awards them. Purchases too small to earn a whole point are a no-op.
func (s *Service) AwardForPurchase(ctx context.Context, accountID AccountID, spend decimal.Decimal, reason string) (*LedgerEntry, error) {
	points := s.EarnRate.PointsFor(spend)
	if points == 0 {
		return nil, nil
	}
	if reason == "" {
		reason = "drink purchase"
	}
	return s.Award(ctx, accountID, EntryEarn, points, reason)
}

// RecordVisit bumps the visit counter and re-evaluates achievements
// (visit-triggered badges unlock here, not on a balance change).
func (s *Service) RecordVisit(ctx context.Context, accountID AccountID) (int64, error) {
	count, err := s.Store.AtomicIncrementVisits(ctx, accountID)
	if err != nil {
		return 0, storeFailure("record visit", err)
	}
	if _, err := s.EvaluateAndGrant(ctx, accountID); err != nil {
		log.Printf("loyalty: achievement evaluation for account %s failed: %v", accountID, err)
	}
	return count, nil
}

// RecordSocialEvent bumps the community counter maintained for social
// achievements and re-evaluates.
func (s *Service) RecordSocialEvent(ctx context.Context, accountID AccountID) (int64, error) {
	count, err := s.Store.AtomicIncrementSocial(ctx, accountID)
	if err != nil {
		return 0, storeFailure("record social event", err)
	}
	if _, err := s.EvaluateAndGrant(ctx, accountID); err != nil {
		log.Printf("loyalty: achievement evaluation for account %s failed: %v", accountID, err)
	}
	return count, nil
}
