/*
Package store provides an in-memory loyalty.TxStore for tests and dev.

A single mutex serializes every operation, which makes the "atomic"
primitives trivially atomic. WithTx snapshots the whole state before
running the function and restores the snapshot on error, giving the same
all-or-nothing semantics the SQLite store gets from real transactions.
*/
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/beanloop/loyalty-engine/loyalty"
)

type grantKey struct {
	Account     loyalty.AccountID
	Achievement loyalty.AchievementID
}

// Memory is an in-memory implementation of loyalty.TxStore.
type Memory struct {
	mu sync.Mutex
	st *state
}

type state struct {
	accounts    map[loyalty.AccountID]loyalty.Account
	entries     []loyalty.LedgerEntry
	thresholds  loyalty.TierThresholds
	grants      map[grantKey]loyalty.AchievementGrant
	rewards     map[loyalty.RewardID]loyalty.Reward
	redemptions map[loyalty.RedemptionID]loyalty.Redemption
	notes       []loyalty.Notification
}

// NewMemory returns an empty store with default thresholds.
func NewMemory() *Memory {
	return &Memory{st: &state{
		accounts:    make(map[loyalty.AccountID]loyalty.Account),
		thresholds:  loyalty.TierThresholds{SilverMin: 200, GoldMin: 550},
		grants:      make(map[grantKey]loyalty.AchievementGrant),
		rewards:     make(map[loyalty.RewardID]loyalty.Reward),
		redemptions: make(map[loyalty.RedemptionID]loyalty.Redemption),
	}}
}

func (st *state) clone() *state {
	c := &state{
		accounts:    make(map[loyalty.AccountID]loyalty.Account, len(st.accounts)),
		entries:     append([]loyalty.LedgerEntry(nil), st.entries...),
		thresholds:  st.thresholds,
		grants:      make(map[grantKey]loyalty.AchievementGrant, len(st.grants)),
		rewards:     make(map[loyalty.RewardID]loyalty.Reward, len(st.rewards)),
		redemptions: make(map[loyalty.RedemptionID]loyalty.Redemption, len(st.redemptions)),
		notes:       append([]loyalty.Notification(nil), st.notes...),
	}
	for k, v := range st.accounts {
		c.accounts[k] = v
	}
	for k, v := range st.grants {
		c.grants[k] = v
	}
	for k, v := range st.rewards {
		if v.Inventory != nil {
			inv := *v.Inventory
			v.Inventory = &inv
		}
		c.rewards[k] = v
	}
	for k, v := range st.redemptions {
		c.redemptions[k] = v
	}
	return c
}

// WithTx runs fn under the store lock against a transactional view and
// restores the pre-transaction state if fn fails.
func (m *Memory) WithTx(_ context.Context, fn func(loyalty.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()
	if err := fn(&txView{st: m.st}); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

// =============================================================================
// STATE OPERATIONS
// =============================================================================

func (st *state) createAccount(acct loyalty.Account) error {
	st.accounts[acct.ID] = acct
	return nil
}

func (st *state) readAccount(id loyalty.AccountID) (*loyalty.Account, error) {
	acct, ok := st.accounts[id]
	if !ok {
		return nil, loyalty.ErrAccountNotFound
	}
	return &acct, nil
}

func (st *state) listAccounts() ([]loyalty.Account, error) {
	out := make([]loyalty.Account, 0, len(st.accounts))
	for _, a := range st.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (st *state) adjustBalance(id loyalty.AccountID, delta int64) (int64, error) {
	acct, ok := st.accounts[id]
	if !ok {
		return 0, loyalty.ErrAccountNotFound
	}
	next := acct.PointsBalance + delta
	if next < 0 {
		return 0, &loyalty.InsufficientBalanceError{
			AccountID: id,
			Available: acct.PointsBalance,
			Requested: -delta,
		}
	}
	acct.PointsBalance = next
	acct.UpdatedAt = time.Now().UTC()
	st.accounts[id] = acct
	return next, nil
}

func (st *state) incrementVisits(id loyalty.AccountID) (int64, error) {
	acct, ok := st.accounts[id]
	if !ok {
		return 0, loyalty.ErrAccountNotFound
	}
	acct.VisitCount++
	acct.UpdatedAt = time.Now().UTC()
	st.accounts[id] = acct
	return acct.VisitCount, nil
}

func (st *state) incrementSocial(id loyalty.AccountID) (int64, error) {
	acct, ok := st.accounts[id]
	if !ok {
		return 0, loyalty.ErrAccountNotFound
	}
	acct.SocialCount++
	acct.UpdatedAt = time.Now().UTC()
	st.accounts[id] = acct
	return acct.SocialCount, nil
}

func (st *state) raiseTier(id loyalty.AccountID, to loyalty.Tier) (bool, error) {
	acct, ok := st.accounts[id]
	if !ok {
		return false, loyalty.ErrAccountNotFound
	}
	if !to.Above(acct.Tier) {
		return false, nil
	}
	acct.Tier = to
	acct.UpdatedAt = time.Now().UTC()
	st.accounts[id] = acct
	return true, nil
}

func (st *state) setTier(id loyalty.AccountID, to loyalty.Tier) error {
	acct, ok := st.accounts[id]
	if !ok {
		return loyalty.ErrAccountNotFound
	}
	acct.Tier = to
	acct.UpdatedAt = time.Now().UTC()
	st.accounts[id] = acct
	return nil
}

func (st *state) insertEntry(entry loyalty.LedgerEntry) error {
	st.entries = append(st.entries, entry)
	return nil
}

func (st *state) entriesFor(id loyalty.AccountID) ([]loyalty.LedgerEntry, error) {
	var out []loyalty.LedgerEntry
	for _, e := range st.entries {
		if e.AccountID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (st *state) insertGrantIfAbsent(id loyalty.AccountID, achievementID loyalty.AchievementID) (bool, error) {
	k := grantKey{Account: id, Achievement: achievementID}
	if _, exists := st.grants[k]; exists {
		return false, nil
	}
	st.grants[k] = loyalty.AchievementGrant{
		AccountID:     id,
		AchievementID: achievementID,
		GrantedAt:     time.Now().UTC(),
	}
	return true, nil
}

func (st *state) grantsFor(id loyalty.AccountID) ([]loyalty.AchievementGrant, error) {
	var out []loyalty.AchievementGrant
	for k, g := range st.grants {
		if k.Account == id {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GrantedAt.Before(out[j].GrantedAt) })
	return out, nil
}

func (st *state) saveReward(r loyalty.Reward) error {
	if r.Inventory != nil {
		inv := *r.Inventory
		r.Inventory = &inv
	}
	st.rewards[r.ID] = r
	return nil
}

func (st *state) readReward(id loyalty.RewardID) (*loyalty.Reward, error) {
	r, ok := st.rewards[id]
	if !ok {
		return nil, loyalty.ErrRewardNotFound
	}
	if r.Inventory != nil {
		inv := *r.Inventory
		r.Inventory = &inv
	}
	return &r, nil
}

func (st *state) listRewards() ([]loyalty.Reward, error) {
	out := make([]loyalty.Reward, 0, len(st.rewards))
	for _, r := range st.rewards {
		if r.Inventory != nil {
			inv := *r.Inventory
			r.Inventory = &inv
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (st *state) setRewardActive(id loyalty.RewardID, active bool) error {
	r, ok := st.rewards[id]
	if !ok {
		return loyalty.ErrRewardNotFound
	}
	r.Active = active
	st.rewards[id] = r
	return nil
}

func (st *state) decrementInventory(id loyalty.RewardID) (bool, error) {
	r, ok := st.rewards[id]
	if !ok {
		return false, loyalty.ErrRewardNotFound
	}
	if r.Inventory == nil || *r.Inventory <= 0 {
		return false, nil
	}
	inv := *r.Inventory - 1
	r.Inventory = &inv
	st.rewards[id] = r
	return true, nil
}

func (st *state) insertRedemption(r loyalty.Redemption) error {
	st.redemptions[r.ID] = r
	return nil
}

func (st *state) readRedemption(id loyalty.RedemptionID) (*loyalty.Redemption, error) {
	r, ok := st.redemptions[id]
	if !ok {
		return nil, loyalty.ErrRedemptionNotFound
	}
	return &r, nil
}

func (st *state) listRedemptionsByStatus(status loyalty.RedemptionStatus) ([]loyalty.Redemption, error) {
	var out []loyalty.Redemption
	for _, r := range st.redemptions {
		if r.Status == status {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (st *state) listRedemptionsByAccount(id loyalty.AccountID) ([]loyalty.Redemption, error) {
	var out []loyalty.Redemption
	for _, r := range st.redemptions {
		if r.AccountID == id {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (st *state) transitionRedemption(id loyalty.RedemptionID, from, to loyalty.RedemptionStatus, decidedBy, reason string) (bool, error) {
	r, ok := st.redemptions[id]
	if !ok {
		return false, loyalty.ErrRedemptionNotFound
	}
	if r.Status != from {
		return false, nil
	}
	now := time.Now().UTC()
	r.Status = to
	r.DecidedBy = &decidedBy
	r.DecidedAt = &now
	r.UpdatedAt = now
	if reason != "" {
		r.DenialReason = &reason
	}
	st.redemptions[id] = r
	return true, nil
}

func (st *state) appendNotification(n loyalty.Notification) error {
	st.notes = append(st.notes, n)
	return nil
}

func (st *state) notificationsFor(id loyalty.AccountID) ([]loyalty.Notification, error) {
	var out []loyalty.Notification
	for _, n := range st.notes {
		if n.AccountID == id {
			out = append(out, n)
		}
	}
	return out, nil
}

// =============================================================================
// LOCKED WRAPPER (Memory) AND TX VIEW
// =============================================================================

func (m *Memory) CreateAccount(_ context.Context, acct loyalty.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.createAccount(acct)
}

func (m *Memory) ReadAccount(_ context.Context, id loyalty.AccountID) (*loyalty.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.readAccount(id)
}

func (m *Memory) ListAccounts(_ context.Context) ([]loyalty.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.listAccounts()
}

func (m *Memory) AtomicAdjustBalance(_ context.Context, id loyalty.AccountID, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.adjustBalance(id, delta)
}

func (m *Memory) AtomicIncrementVisits(_ context.Context, id loyalty.AccountID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.incrementVisits(id)
}

func (m *Memory) AtomicIncrementSocial(_ context.Context, id loyalty.AccountID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.incrementSocial(id)
}

func (m *Memory) RaiseTier(_ context.Context, id loyalty.AccountID, to loyalty.Tier) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.raiseTier(id, to)
}

func (m *Memory) SetTier(_ context.Context, id loyalty.AccountID, to loyalty.Tier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.setTier(id, to)
}

func (m *Memory) InsertLedgerEntry(_ context.Context, entry loyalty.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.insertEntry(entry)
}

func (m *Memory) LedgerEntries(_ context.Context, id loyalty.AccountID) ([]loyalty.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.entriesFor(id)
}

func (m *Memory) ReadThresholds(_ context.Context) (loyalty.TierThresholds, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.thresholds, nil
}

func (m *Memory) WriteThresholds(_ context.Context, th loyalty.TierThresholds) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.thresholds = th
	return nil
}

func (m *Memory) InsertAchievementGrantIfAbsent(_ context.Context, id loyalty.AccountID, achievementID loyalty.AchievementID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.insertGrantIfAbsent(id, achievementID)
}

func (m *Memory) GrantedAchievements(_ context.Context, id loyalty.AccountID) ([]loyalty.AchievementGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.grantsFor(id)
}

func (m *Memory) SaveReward(_ context.Context, r loyalty.Reward) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.saveReward(r)
}

func (m *Memory) ReadReward(_ context.Context, id loyalty.RewardID) (*loyalty.Reward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.readReward(id)
}

func (m *Memory) ListRewards(_ context.Context) ([]loyalty.Reward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.listRewards()
}

func (m *Memory) SetRewardActive(_ context.Context, id loyalty.RewardID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.setRewardActive(id, active)
}

func (m *Memory) AtomicDecrementInventoryIfPositive(_ context.Context, id loyalty.RewardID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.decrementInventory(id)
}

func (m *Memory) InsertRedemption(_ context.Context, r loyalty.Redemption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.insertRedemption(r)
}

func (m *Memory) ReadRedemption(_ context.Context, id loyalty.RedemptionID) (*loyalty.Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.readRedemption(id)
}

func (m *Memory) ListRedemptionsByStatus(_ context.Context, status loyalty.RedemptionStatus) ([]loyalty.Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.listRedemptionsByStatus(status)
}

func (m *Memory) ListRedemptionsByAccount(_ context.Context, id loyalty.AccountID) ([]loyalty.Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.listRedemptionsByAccount(id)
}

func (m *Memory) TransitionRedemption(_ context.Context, id loyalty.RedemptionID, from, to loyalty.RedemptionStatus, decidedBy, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.transitionRedemption(id, from, to, decidedBy, reason)
}

func (m *Memory) AppendNotification(_ context.Context, n loyalty.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.appendNotification(n)
}

func (m *Memory) Notifications(_ context.Context, id loyalty.AccountID) ([]loyalty.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.notificationsFor(id)
}

// txView exposes the state inside WithTx without re-locking.
type txView struct {
	st *state
}

func (t *txView) CreateAccount(_ context.Context, acct loyalty.Account) error {
	return t.st.createAccount(acct)
}
func (t *txView) ReadAccount(_ context.Context, id loyalty.AccountID) (*loyalty.Account, error) {
	return t.st.readAccount(id)
}
func (t *txView) ListAccounts(_ context.Context) ([]loyalty.Account, error) {
	return t.st.listAccounts()
}
func (t *txView) AtomicAdjustBalance(_ context.Context, id loyalty.AccountID, delta int64) (int64, error) {
	return t.st.adjustBalance(id, delta)
}
func (t *txView) AtomicIncrementVisits(_ context.Context, id loyalty.AccountID) (int64, error) {
	return t.st.incrementVisits(id)
}
func (t *txView) AtomicIncrementSocial(_ context.Context, id loyalty.AccountID) (int64, error) {
	return t.st.incrementSocial(id)
}
func (t *txView) RaiseTier(_ context.Context, id loyalty.AccountID, to loyalty.Tier) (bool, error) {
	return t.st.raiseTier(id, to)
}
func (t *txView) SetTier(_ context.Context, id loyalty.AccountID, to loyalty.Tier) error {
	return t.st.setTier(id, to)
}
func (t *txView) InsertLedgerEntry(_ context.Context, entry loyalty.LedgerEntry) error {
	return t.st.insertEntry(entry)
}
func (t *txView) LedgerEntries(_ context.Context, id loyalty.AccountID) ([]loyalty.LedgerEntry, error) {
	return t.st.entriesFor(id)
}
func (t *txView) ReadThresholds(_ context.Context) (loyalty.TierThresholds, error) {
	return t.st.thresholds, nil
}
func (t *txView) WriteThresholds(_ context.Context, th loyalty.TierThresholds) error {
	t.st.thresholds = th
	return nil
}
func (t *txView) InsertAchievementGrantIfAbsent(_ context.Context, id loyalty.AccountID, achievementID loyalty.AchievementID) (bool, error) {
	return t.st.insertGrantIfAbsent(id, achievementID)
}
func (t *txView) GrantedAchievements(_ context.Context, id loyalty.AccountID) ([]loyalty.AchievementGrant, error) {
	return t.st.grantsFor(id)
}
func (t *txView) SaveReward(_ context.Context, r loyalty.Reward) error {
	return t.st.saveReward(r)
}
func (t *txView) ReadReward(_ context.Context, id loyalty.RewardID) (*loyalty.Reward, error) {
	return t.st.readReward(id)
}
func (t *txView) ListRewards(_ context.Context) ([]loyalty.Reward, error) {
	return t.st.listRewards()
}
func (t *txView) SetRewardActive(_ context.Context, id loyalty.RewardID, active bool) error {
	return t.st.setRewardActive(id, active)
}
func (t *txView) AtomicDecrementInventoryIfPositive(_ context.Context, id loyalty.RewardID) (bool, error) {
	return t.st.decrementInventory(id)
}
func (t *txView) InsertRedemption(_ context.Context, r loyalty.Redemption) error {
	return t.st.insertRedemption(r)
}
func (t *txView) ReadRedemption(_ context.Context, id loyalty.RedemptionID) (*loyalty.Redemption, error) {
	return t.st.readRedemption(id)
}
func (t *txView) ListRedemptionsByStatus(_ context.Context, status loyalty.RedemptionStatus) ([]loyalty.Redemption, error) {
	return t.st.listRedemptionsByStatus(status)
}
func (t *txView) ListRedemptionsByAccount(_ context.Context, id loyalty.AccountID) ([]loyalty.Redemption, error) {
	return t.st.listRedemptionsByAccount(id)
}
func (t *txView) TransitionRedemption(_ context.Context, id loyalty.RedemptionID, from, to loyalty.RedemptionStatus, decidedBy, reason string) (bool, error) {
	return t.st.transitionRedemption(id, from, to, decidedBy, reason)
}
func (t *txView) AppendNotification(_ context.Context, n loyalty.Notification) error {
	return t.st.appendNotification(n)
}
func (t *txView) Notifications(_ context.Context, id loyalty.AccountID) ([]loyalty.Notification, error) {
	return t.st.notificationsFor(id)
}

// Compile-time interface checks.
var (
	_ loyalty.TxStore = (*Memory)(nil)
	_ loyalty.Store   = (*txView)(nil)
)
