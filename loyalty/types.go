/*
Package loyalty provides the core loyalty engine: a points ledger,
tier progression, achievement unlocking, and reward redemption.

PURPOSE:
  This package contains the domain types and services for a coffee-shop
  loyalty program. Points behave like a small financial ledger: balances
  are monotonic sums of immutable entries, tier transitions are driven by
  cumulative totals, and achievement grants are idempotent one-time events.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: A customer with a ledger-derived points balance and a tier
  - LedgerEntry: An immutable earn/redeem record
  - Tier / TierThresholds: Ordered membership levels and their cutoffs
  - AchievementDefinition/Grant: Code-defined badges and their unlock records
  - Reward / Redemption: Catalog items and the redemption state machine

DESIGN PRINCIPLES:
  1. Immutability: Ledger entries and grants are never modified or deleted
  2. Atomicity: All shared-state mutation goes through the store's
     conditional primitives (see store.go) - no read-then-write in services
  3. Idempotency: At most one grant per (account, achievement) pair, ever
  4. One source of truth: Tier math lives in tier.go and nowhere else

SEE ALSO:
  - store.go: Persistence contract consumed by the services
  - award.go: Points Award Service
  - achievements.go: Achievement Engine and catalog
  - progression.go: Tier Progression Monitor
  - redemption.go: Redemption workflow
*/
package loyalty

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string
type EntryID string
type AchievementID string
type RewardID string
type RedemptionID string

func NewAccountID() AccountID       { return AccountID(uuid.NewString()) }
func NewEntryID() EntryID           { return EntryID(uuid.NewString()) }
func NewRewardID() RewardID         { return RewardID(uuid.NewString()) }
func NewRedemptionID() RedemptionID { return RedemptionID(uuid.NewString()) }

// =============================================================================
// TIER - Ordered membership level
// =============================================================================

type Tier string

const (
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

// Rank returns the ordinal position of the tier (bronze < silver < gold).
// Unknown tiers rank below bronze so they never satisfy a gate.
func (t Tier) Rank() int {
	switch t {
	case TierBronze:
		return 0
	case TierSilver:
		return 1
	case TierGold:
		return 2
	}
	return -1
}

func (t Tier) Valid() bool             { return t.Rank() >= 0 }
func (t Tier) AtLeast(other Tier) bool { return t.Rank() >= other.Rank() }
func (t Tier) Above(other Tier) bool   { return t.Rank() > other.Rank() }

// =============================================================================
// ACCOUNT - Customer state derived from the ledger
// =============================================================================

// Account is the customer record. PointsBalance always equals the signed
// sum of all committed ledger entries for the account; it is mutated only
// through the store's atomic adjust, never assigned directly.
type Account struct {
	ID            AccountID
	Name          string
	PointsBalance int64
	VisitCount    int64
	// SocialCount is maintained by the community features (chat, seating)
	// and only read here, as an achievement trigger input.
	SocialCount int64
	Tier        Tier
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// =============================================================================
// LEDGER ENTRY - Atomic change to the points balance
// =============================================================================

type EntryKind string

const (
	EntryEarn   EntryKind = "earn"   // Points credited (purchase, bonus, achievement)
	EntryRedeem EntryKind = "redeem" // Points debited (approved redemption)
)

// LedgerEntry records a single balance change. Append-only: once written,
// never mutated or deleted. Amount is always positive; the sign comes
// from the kind.
type LedgerEntry struct {
	ID        EntryID
	AccountID AccountID
	Kind      EntryKind
	Amount    int64
	Reason    string
	CreatedAt time.Time
}

// Delta returns the signed balance effect of the entry.
func (e LedgerEntry) Delta() int64 {
	if e.Kind == EntryRedeem {
		return -e.Amount
	}
	return e.Amount
}

// =============================================================================
// TIER THRESHOLDS - Runtime-editable configuration
// =============================================================================

// TierThresholds holds the cumulative-balance cutoffs for silver and gold.
// Admins may change these at runtime, so services always read the current
// value from the store instead of caching it.
type TierThresholds struct {
	SilverMin int64 `json:"silver_min" yaml:"silver_min"`
	GoldMin   int64 `json:"gold_min" yaml:"gold_min"`
}

// Validate enforces 0 < SilverMin < GoldMin.
func (t TierThresholds) Validate() error {
	if t.SilverMin <= 0 || t.GoldMin <= t.SilverMin {
		return &InvalidThresholdsError{Thresholds: t}
	}
	return nil
}

// =============================================================================
// ACHIEVEMENTS
// =============================================================================

type TriggerType string

const (
	TriggerPoints TriggerType = "points" // balance >= Requirement
	TriggerVisits TriggerType = "visits" // visit count >= Requirement
	TriggerSocial TriggerType = "social" // social counter >= Requirement
	TriggerTier   TriggerType = "tier"   // stored tier == TierRequired
)

// AchievementDefinition is static and code-defined; the catalog is a fixed
// ordered set, immutable at runtime (see achievements.go).
type AchievementDefinition struct {
	ID           AchievementID
	Name         string
	Trigger      TriggerType
	Requirement  int64
	TierRequired Tier // tier-trigger only
	RewardPoints int64
}

// Satisfied tests the definition's predicate against current account state.
// Pure; evaluation order across definitions is immaterial.
func (d AchievementDefinition) Satisfied(acct *Account) bool {
	switch d.Trigger {
	case TriggerPoints:
		return acct.PointsBalance >= d.Requirement
	case TriggerVisits:
		return acct.VisitCount >= d.Requirement
	case TriggerSocial:
		return acct.SocialCount >= d.Requirement
	case TriggerTier:
		return acct.Tier == d.TierRequired
	}
	return false
}

// AchievementGrant records an unlock. At most one grant per
// (account, achievement) pair ever exists; the store's insert-if-absent
// enforces this. Never mutated or deleted.
type AchievementGrant struct {
	AccountID     AccountID
	AchievementID AchievementID
	GrantedAt     time.Time
}

// =============================================================================
// REWARDS & REDEMPTIONS
// =============================================================================

// Reward is a redeemable catalog item. Inventory is nil for unbounded
// rewards; bounded inventory is only ever decremented through the store's
// compare-and-decrement primitive.
type Reward struct {
	ID           RewardID
	Name         string
	PointsCost   int64
	TierRequired Tier
	Active       bool
	AutoApprove  bool
	Inventory    *int64
	CreatedAt    time.Time
}

type RedemptionStatus string

const (
	RedemptionPending   RedemptionStatus = "pending"
	RedemptionApproved  RedemptionStatus = "approved"
	RedemptionDenied    RedemptionStatus = "denied"
	RedemptionFulfilled RedemptionStatus = "fulfilled"
)

// Redemption is the workflow overlay on the ledger: the debit entry is
// written on approval, never at request time. Denied and fulfilled are
// terminal.
type Redemption struct {
	ID           RedemptionID
	AccountID    AccountID
	RewardID     RewardID
	Status       RedemptionStatus
	PointsCost   int64
	DecidedBy    *string
	DecidedAt    *time.Time
	DenialReason *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// Notification is a best-effort downstream event (achievement unlocked,
// tier raised, redemption decided). Delivery may duplicate under retry;
// it never participates in the transactional core.
type Notification struct {
	ID        string
	AccountID AccountID
	Kind      string
	Message   string
	CreatedAt time.Time
}
