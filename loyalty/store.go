/*
store.go - Persistence contract for the loyalty engine

PURPOSE:
  Defines the interface between the services and the database. The store
  is the only serialization point in the system: request handlers run
  concurrently with no in-process scheduler, so every mutation of shared
  state goes through one of the atomic primitives below.

ATOMIC PRIMITIVES:
  AtomicAdjustBalance:                single conditional increment/decrement,
                                      never read-then-write
  InsertAchievementGrantIfAbsent:     unique-constraint insert; exactly one
                                      of N concurrent callers wins
  AtomicDecrementInventoryIfPositive: compare-and-decrement; closes the
                                      last-unit race between redemptions
  TransitionRedemption:               compare-and-swap on status; a lifecycle
                                      transition commits at most once
  RaiseTier:                          conditional update that only ever
                                      raises in the bronze<silver<gold order

APPEND-ONLY CONTRACT:
  Ledger entries, achievement grants, and notifications have insert and
  read operations only. No Update, no Delete.

TRANSACTIONS:
  TxStore.WithTx runs a function against a transactional view. The award
  path uses it to commit a ledger entry and its balance adjustment
  together; the approval path adds the inventory decrement and the status
  swap to the same unit.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite
  - loyalty/store: in-memory, for tests and dev
*/
package loyalty

import "context"

// Store is the persistence contract consumed by the Service.
type Store interface {
	// --- Accounts ---

	CreateAccount(ctx context.Context, acct Account) error
	ReadAccount(ctx context.Context, id AccountID) (*Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)

	// AtomicAdjustBalance applies delta to the account balance as a single
	// conditional update and returns the new balance. An adjustment that
	// would drive the balance negative fails with ErrInsufficientBalance
	// and changes nothing.
	AtomicAdjustBalance(ctx context.Context, id AccountID, delta int64) (int64, error)

	// AtomicIncrementVisits / AtomicIncrementSocial bump the respective
	// counters and return the new value.
	AtomicIncrementVisits(ctx context.Context, id AccountID) (int64, error)
	AtomicIncrementSocial(ctx context.Context, id AccountID) (int64, error)

	// RaiseTier sets the tier only if it is strictly higher than the
	// stored one. Returns whether the update applied.
	RaiseTier(ctx context.Context, id AccountID, to Tier) (bool, error)

	// SetTier writes the tier unconditionally. Admin override path only;
	// automatic reconciliation must use RaiseTier.
	SetTier(ctx context.Context, id AccountID, to Tier) error

	// --- Ledger (append-only) ---

	InsertLedgerEntry(ctx context.Context, entry LedgerEntry) error
	LedgerEntries(ctx context.Context, id AccountID) ([]LedgerEntry, error)

	// --- Thresholds ---

	ReadThresholds(ctx context.Context) (TierThresholds, error)
	WriteThresholds(ctx context.Context, th TierThresholds) error

	// --- Achievements (append-only) ---

	// InsertAchievementGrantIfAbsent inserts the grant unless one already
	// exists for the pair. Returns whether this call inserted it.
	InsertAchievementGrantIfAbsent(ctx context.Context, id AccountID, achievementID AchievementID) (bool, error)
	GrantedAchievements(ctx context.Context, id AccountID) ([]AchievementGrant, error)

	// --- Rewards ---

	SaveReward(ctx context.Context, r Reward) error
	ReadReward(ctx context.Context, id RewardID) (*Reward, error)
	ListRewards(ctx context.Context) ([]Reward, error)
	SetRewardActive(ctx context.Context, id RewardID, active bool) error

	// AtomicDecrementInventoryIfPositive decrements bounded inventory by
	// one, conditioned on the pre-decrement value still being positive.
	// Returns whether the decrement applied.
	AtomicDecrementInventoryIfPositive(ctx context.Context, id RewardID) (bool, error)

	// --- Redemptions ---

	InsertRedemption(ctx context.Context, r Redemption) error
	ReadRedemption(ctx context.Context, id RedemptionID) (*Redemption, error)
	ListRedemptionsByStatus(ctx context.Context, status RedemptionStatus) ([]Redemption, error)
	ListRedemptionsByAccount(ctx context.Context, id AccountID) ([]Redemption, error)

	// TransitionRedemption moves the redemption from one status to another
	// as a compare-and-swap; it reports false when the redemption was not
	// in the expected state.
	TransitionRedemption(ctx context.Context, id RedemptionID, from, to RedemptionStatus, decidedBy string, reason string) (bool, error)

	// --- Notifications (append-only, best-effort) ---

	AppendNotification(ctx context.Context, n Notification) error
	Notifications(ctx context.Context, id AccountID) ([]Notification, error)
}

// TxStore extends Store with transaction support. WithTx executes fn
// against a Store view; if fn returns an error the whole unit rolls back.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
