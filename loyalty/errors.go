/*
errors.go - Centralized error types for the loyalty engine

PURPOSE:
  All error types in one place. Every rejected action surfaces a specific,
  distinguishable reason so callers (and the UI behind them) can explain
  why: "not enough points" vs "tier too low" vs "sold out".

ERROR CATEGORIES:
  1. Precondition failures - returned synchronously, mutate nothing
  2. Store failures - persistence errors; the core guarantees no partial
     mutation when these occur
  3. Internal signals - AlreadyGranted short-circuits the Achievement
     Engine and is never surfaced to end users

USAGE:
  if errors.Is(err, loyalty.ErrInsufficientBalance) { ... }

  var tierErr *loyalty.TierNotMetError
  if errors.As(err, &tierErr) { ... tierErr.Required ... }
*/
package loyalty

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when an award amount is not positive.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientBalance is returned when a redeem exceeds the balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrTierNotMet is returned when a reward requires a higher tier.
	ErrTierNotMet = errors.New("tier requirement not met")

	// ErrOutOfStock is returned when reward inventory is exhausted,
	// including when the compare-and-decrement loses a race.
	ErrOutOfStock = errors.New("reward out of stock")

	// ErrRewardInactive is returned when redeeming a deactivated reward.
	ErrRewardInactive = errors.New("reward is not active")

	// ErrStoreUnavailable is returned when the underlying store fails.
	// No partial mutation remains; the caller may retry.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrAlreadyGranted signals that an achievement grant lost the
	// insert-if-absent race. Internal to the engine; callers never see it.
	ErrAlreadyGranted = errors.New("achievement already granted")

	// ErrInvalidTransition is returned when a redemption is not in the
	// state the requested transition expects.
	ErrInvalidTransition = errors.New("invalid redemption transition")

	// ErrAccountNotFound / ErrRewardNotFound / ErrRedemptionNotFound mark
	// missing records.
	ErrAccountNotFound    = errors.New("account not found")
	ErrRewardNotFound     = errors.New("reward not found")
	ErrRedemptionNotFound = errors.New("redemption not found")

	// ErrInvalidKind is returned for an unknown ledger entry kind.
	ErrInvalidKind = errors.New("invalid entry kind")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports a balance shortfall.
type InsufficientBalanceError struct {
	AccountID AccountID
	Available int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %d, requested %d", e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// TierNotMetError reports a tier gate failure.
type TierNotMetError struct {
	Required Tier
	Actual   Tier
}

func (e *TierNotMetError) Error() string {
	return fmt.Sprintf("tier not met: requires %s, account is %s", e.Required, e.Actual)
}

func (e *TierNotMetError) Unwrap() error { return ErrTierNotMet }

// InvalidThresholdsError reports a malformed threshold pair.
type InvalidThresholdsError struct {
	Thresholds TierThresholds
}

func (e *InvalidThresholdsError) Error() string {
	return fmt.Sprintf("invalid thresholds: require 0 < silver_min < gold_min, got silver_min=%d gold_min=%d",
		e.Thresholds.SilverMin, e.Thresholds.GoldMin)
}

// StoreFailureError wraps a persistence failure with the failing operation.
// Matches ErrStoreUnavailable via errors.Is while preserving the cause.
type StoreFailureError struct {
	Op  string
	Err error
}

func (e *StoreFailureError) Error() string {
	return fmt.Sprintf("store failure in %s: %v", e.Op, e.Err)
}

func (e *StoreFailureError) Unwrap() error { return e.Err }

func (e *StoreFailureError) Is(target error) bool { return target == ErrStoreUnavailable }

// storeFailure wraps err unless it is already a domain error that must
// pass through unchanged (conditional updates report business outcomes
// as domain errors, not store failures).
func storeFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsClientError(err) || errors.Is(err, ErrAlreadyGranted) || isNotFound(err) {
		return err
	}
	return &StoreFailureError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is a precondition failure the
// caller caused, as opposed to an infrastructure fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrTierNotMet) ||
		errors.Is(err, ErrOutOfStock) ||
		errors.Is(err, ErrRewardInactive) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidKind)
}

// IsRetryable reports whether the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrRewardNotFound) ||
		errors.Is(err, ErrRedemptionNotFound)
}

// Code maps an error to a stable machine-readable code for API responses.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrTierNotMet):
		return "tier_not_met"
	case errors.Is(err, ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, ErrRewardInactive):
		return "reward_inactive"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrRewardNotFound):
		return "reward_not_found"
	case errors.Is(err, ErrRedemptionNotFound):
		return "redemption_not_found"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	}
	return "internal"
}
