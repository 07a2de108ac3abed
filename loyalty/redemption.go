/*
redemption.go - Reward redemption workflow

PURPOSE:
  Moves a redemption through its lifecycle:

      request ──▶ pending ──▶ approved ──▶ fulfilled
                     │
                     └──────▶ denied

  Denied and fulfilled are terminal. The debit ledger entry is written on
  approval (immediately for auto-approve rewards), never at request time.

PRECONDITIONS (checked before accepting a request, no mutation on failure):
  1. Reward is active                      -> ErrRewardInactive
  2. Account tier >= reward tier gate      -> TierNotMetError
  3. Balance >= cost                       -> InsufficientBalanceError
  4. Bounded inventory > 0                 -> ErrOutOfStock

APPROVAL ATOMICITY:
  Status swap, inventory decrement, debit entry, and balance adjustment
  commit in one store transaction. The decrement is conditioned on the
  pre-decrement value still being positive, so of two requests racing for
  the last unit exactly one approves and the other rolls back with
  ErrOutOfStock - even though both passed the request-time check.
*/
package loyalty

import (
	"context"
	"errors"
	"log"
	"time"
)

// RequestRedemption validates the preconditions and opens a pending
// redemption. Auto-approve rewards continue straight into approval.
func (s *Service) RequestRedemption(ctx context.Context, accountID AccountID, rewardID RewardID) (*Redemption, error) {
	reward, err := s.Store.ReadReward(ctx, rewardID)
	if err != nil {
		return nil, storeFailure("read reward", err)
	}
	if !reward.Active {
		return nil, ErrRewardInactive
	}

	acct, err := s.Store.ReadAccount(ctx, accountID)
	if err != nil {
		return nil, storeFailure("read account", err)
	}
	if !acct.Tier.AtLeast(reward.TierRequired) {
		return nil, &TierNotMetError{Required: reward.TierRequired, Actual: acct.Tier}
	}
	if acct.PointsBalance < reward.PointsCost {
		return nil, &InsufficientBalanceError{
			AccountID: accountID,
			Available: acct.PointsBalance,
			Requested: reward.PointsCost,
		}
	}
	if reward.Inventory != nil && *reward.Inventory <= 0 {
		return nil, ErrOutOfStock
	}

	now := time.Now().UTC()
	red := Redemption{
		ID:         NewRedemptionID(),
		AccountID:  accountID,
		RewardID:   rewardID,
		Status:     RedemptionPending,
		PointsCost: reward.PointsCost,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Store.InsertRedemption(ctx, red); err != nil {
		return nil, storeFailure("insert redemption", err)
	}

	if reward.AutoApprove {
		approved, err := s.approve(ctx, &red, reward, "system")
		if err != nil {
			if errors.Is(err, ErrOutOfStock) {
				// Lost the last unit between the check and the commit;
				// close the hold so it does not linger for an admin.
				if _, derr := s.Store.TransitionRedemption(ctx, red.ID, RedemptionPending, RedemptionDenied, "system", "out of stock"); derr != nil {
					log.Printf("loyalty: closing out-of-stock redemption %s failed: %v", red.ID, derr)
				}
			}
			return nil, err
		}
		return approved, nil
	}
	return &red, nil
}

// ApproveRedemption moves a pending redemption to approved, debiting the
// points and decrementing bounded inventory.
func (s *Service) ApproveRedemption(ctx context.Context, id RedemptionID, approverID string) (*Redemption, error) {
	red, err := s.Store.ReadRedemption(ctx, id)
	if err != nil {
		return nil, storeFailure("read redemption", err)
	}
	if red.Status != RedemptionPending {
		return nil, ErrInvalidTransition
	}
	reward, err := s.Store.ReadReward(ctx, red.RewardID)
	if err != nil {
		return nil, storeFailure("read reward", err)
	}
	return s.approve(ctx, red, reward, approverID)
}

// approve commits the pending->approved transition atomically with its
// ledger and inventory effects.
func (s *Service) approve(ctx context.Context, red *Redemption, reward *Reward, approverID string) (*Redemption, error) {
	entry := LedgerEntry{
		ID:        NewEntryID(),
		AccountID: red.AccountID,
		Kind:      EntryRedeem,
		Amount:    red.PointsCost,
		Reason:    "redemption: " + reward.Name,
		CreatedAt: time.Now().UTC(),
	}

	err := s.Store.WithTx(ctx, func(tx Store) error {
		// CAS first: only one approver of a pending redemption proceeds.
		swapped, err := tx.TransitionRedemption(ctx, red.ID, RedemptionPending, RedemptionApproved, approverID, "")
		if err != nil {
			return err
		}
		if !swapped {
			return ErrInvalidTransition
		}
		if reward.Inventory != nil {
			decremented, err := tx.AtomicDecrementInventoryIfPositive(ctx, reward.ID)
			if err != nil {
				return err
			}
			if !decremented {
				// Passed the request-time check but lost the last unit.
				return ErrOutOfStock
			}
		}
		// Debit: conditional adjust refuses to go negative, covering a
		// balance spent down since the request-time check.
		return applyEntry(ctx, tx, entry)
	})
	if err != nil {
		return nil, storeFailure("approve redemption", err)
	}

	now := time.Now().UTC()
	red.Status = RedemptionApproved
	red.DecidedBy = &approverID
	red.DecidedAt = &now
	red.UpdatedAt = now

	s.notify(ctx, red.AccountID, "redemption_approved", "Your reward is ready: "+reward.Name)
	return red, nil
}

// DenyRedemption closes a pending redemption with no ledger or inventory
// effect.
func (s *Service) DenyRedemption(ctx context.Context, id RedemptionID, deniedBy, reason string) (*Redemption, error) {
	red, err := s.Store.ReadRedemption(ctx, id)
	if err != nil {
		return nil, storeFailure("read redemption", err)
	}
	swapped, err := s.Store.TransitionRedemption(ctx, id, RedemptionPending, RedemptionDenied, deniedBy, reason)
	if err != nil {
		return nil, storeFailure("deny redemption", err)
	}
	if !swapped {
		return nil, ErrInvalidTransition
	}

	now := time.Now().UTC()
	red.Status = RedemptionDenied
	red.DecidedBy = &deniedBy
	red.DecidedAt = &now
	red.DenialReason = &reason
	red.UpdatedAt = now

	s.notify(ctx, red.AccountID, "redemption_denied", "Redemption denied: "+reason)
	return red, nil
}

// FulfillRedemption marks an approved redemption as handed over. No
// further ledger effect.
func (s *Service) FulfillRedemption(ctx context.Context, id RedemptionID, fulfilledBy string) (*Redemption, error) {
	swapped, err := s.Store.TransitionRedemption(ctx, id, RedemptionApproved, RedemptionFulfilled, fulfilledBy, "")
	if err != nil {
		return nil, storeFailure("fulfill redemption", err)
	}
	if !swapped {
		return nil, ErrInvalidTransition
	}
	red, err := s.Store.ReadRedemption(ctx, id)
	if err != nil {
		return nil, storeFailure("read redemption", err)
	}
	return red, nil
}
