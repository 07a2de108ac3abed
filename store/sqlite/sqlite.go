/*
Package sqlite provides the SQLite-backed implementation of loyalty.TxStore.

PURPOSE:
  Durable persistence for accounts, the append-only ledger, achievement
  grants, rewards, redemptions, and notifications. The same patterns apply
  to PostgreSQL - only minor SQL dialect differences.

ATOMIC PRIMITIVES AS SQL:
  AtomicAdjustBalance:
      UPDATE accounts SET points_balance = points_balance + ?
      WHERE id = ? AND points_balance + ? >= 0
    A single conditional increment - never read-then-write, so concurrent
    awards on one account cannot lose an update.

  InsertAchievementGrantIfAbsent:
      INSERT OR IGNORE under PRIMARY KEY (account_id, achievement_id)
    The uniqueness constraint is the idempotency guard; exactly one of N
    concurrent inserts reports a row affected.

  AtomicDecrementInventoryIfPositive:
      UPDATE rewards SET inventory = inventory - 1
      WHERE id = ? AND inventory IS NOT NULL AND inventory > 0
    Compare-and-decrement; a NULL inventory means unbounded.

  TransitionRedemption:
      UPDATE redemptions SET status = ? WHERE id = ? AND status = ?
    Compare-and-swap on the lifecycle state.

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statements exist for ledger_entries,
  achievement_grants, or notifications.

CONCURRENCY:
  Opened in WAL mode with a single pooled connection (SQLite has one
  writer; a single connection also keeps ":memory:" databases coherent).
  A mutex serializes multi-statement transactions.

USAGE:
  st, err := sqlite.New("./loyalty.db")
  ...
  svc := loyalty.NewService(st)

SEE ALSO:
  - loyalty/store.go: Interface definitions and primitive contracts
  - loyalty/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/beanloop/loyalty-engine/loyalty"
)

// Store implements loyalty.TxStore on SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
	queries
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite has a single writer, and :memory: databases
	// are per-connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	s.queries = queries{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		points_balance INTEGER NOT NULL DEFAULT 0 CHECK (points_balance >= 0),
		visit_count INTEGER NOT NULL DEFAULT 0,
		social_count INTEGER NOT NULL DEFAULT 0,
		tier TEXT NOT NULL DEFAULT 'bronze',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Append-only ledger. No UPDATE, no DELETE.
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		kind TEXT NOT NULL CHECK (kind IN ('earn', 'redeem')),
		amount INTEGER NOT NULL CHECK (amount > 0),
		reason TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ledger_account
		ON ledger_entries(account_id, created_at);

	-- Single-row config, editable at runtime.
	CREATE TABLE IF NOT EXISTS tier_thresholds (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		silver_min INTEGER NOT NULL,
		gold_min INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO tier_thresholds (id, silver_min, gold_min)
		VALUES (1, 200, 550);

	-- CRITICAL: the primary key IS the idempotency contract. Concurrent
	-- evaluations both attempt the insert; exactly one wins.
	CREATE TABLE IF NOT EXISTS achievement_grants (
		account_id TEXT NOT NULL REFERENCES accounts(id),
		achievement_id TEXT NOT NULL,
		granted_at TEXT NOT NULL,
		PRIMARY KEY (account_id, achievement_id)
	);

	CREATE TABLE IF NOT EXISTS rewards (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		points_cost INTEGER NOT NULL CHECK (points_cost > 0),
		tier_required TEXT NOT NULL DEFAULT 'bronze',
		active INTEGER NOT NULL DEFAULT 1,
		auto_approve INTEGER NOT NULL DEFAULT 0,
		inventory INTEGER,  -- NULL = unbounded
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS redemptions (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		reward_id TEXT NOT NULL REFERENCES rewards(id),
		status TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'denied', 'fulfilled')),
		points_cost INTEGER NOT NULL,
		decided_by TEXT,
		decided_at TEXT,
		denial_reason TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_redemptions_status ON redemptions(status);
	CREATE INDEX IF NOT EXISTS idx_redemptions_account ON redemptions(account_id);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_notifications_account
		ON notifications(account_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// WithTx executes fn within a database transaction. If fn returns an
// error the transaction is rolled back.
func (s *Store) WithTx(ctx context.Context, fn func(loyalty.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&queries{db: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Compile-time interface check.
var _ loyalty.TxStore = (*Store)(nil)

// =============================================================================
// QUERIES - Shared between the root connection and transactions
// =============================================================================

// dbtx is the subset of *sql.DB / *sql.Tx the queries need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db dbtx
}

var _ loyalty.Store = (*queries)(nil)

const timeFormat = time.RFC3339Nano

func fmtTime(t time.Time) string { return t.UTC().Format(timeFormat) }

func parseTime(s string) time.Time {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// --- Accounts ---

func (q *queries) CreateAccount(ctx context.Context, acct loyalty.Account) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, points_balance, visit_count, social_count, tier, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(acct.ID), acct.Name, acct.PointsBalance, acct.VisitCount, acct.SocialCount,
		string(acct.Tier), fmtTime(acct.CreatedAt), fmtTime(acct.UpdatedAt))
	return err
}

func (q *queries) ReadAccount(ctx context.Context, id loyalty.AccountID) (*loyalty.Account, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, name, points_balance, visit_count, social_count, tier, created_at, updated_at
		FROM accounts WHERE id = ?`, string(id))
	return scanAccount(row)
}

func (q *queries) ListAccounts(ctx context.Context) ([]loyalty.Account, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, points_balance, visit_count, social_count, tier, created_at, updated_at
		FROM accounts ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []loyalty.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*loyalty.Account, error) {
	var a loyalty.Account
	var tier, createdAt, updatedAt string
	err := row.Scan(&a.ID, &a.Name, &a.PointsBalance, &a.VisitCount, &a.SocialCount, &tier, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, loyalty.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Tier = loyalty.Tier(tier)
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}

func (q *queries) AtomicAdjustBalance(ctx context.Context, id loyalty.AccountID, delta int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE accounts
		SET points_balance = points_balance + ?, updated_at = ?
		WHERE id = ? AND points_balance + ? >= 0`,
		delta, fmtTime(time.Now()), string(id), delta)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		// Either the account is missing or the debit would overdraw.
		acct, err := q.ReadAccount(ctx, id)
		if err != nil {
			return 0, err
		}
		return 0, &loyalty.InsufficientBalanceError{
			AccountID: id,
			Available: acct.PointsBalance,
			Requested: -delta,
		}
	}

	var balance int64
	if err := q.db.QueryRowContext(ctx, `SELECT points_balance FROM accounts WHERE id = ?`, string(id)).Scan(&balance); err != nil {
		return 0, err
	}
	return balance, nil
}

func (q *queries) AtomicIncrementVisits(ctx context.Context, id loyalty.AccountID) (int64, error) {
	return q.incrementCounter(ctx, id, "visit_count")
}

func (q *queries) AtomicIncrementSocial(ctx context.Context, id loyalty.AccountID) (int64, error) {
	return q.incrementCounter(ctx, id, "social_count")
}

func (q *queries) incrementCounter(ctx context.Context, id loyalty.AccountID, column string) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE accounts SET %s = %s + 1, updated_at = ? WHERE id = ?`, column, column),
		fmtTime(time.Now()), string(id))
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		return 0, loyalty.ErrAccountNotFound
	}
	var count int64
	err = q.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM accounts WHERE id = ?`, column), string(id)).Scan(&count)
	return count, err
}

// tierRank mirrors loyalty.Tier.Rank in SQL for the conditional raise.
const tierRank = `CASE tier WHEN 'bronze' THEN 0 WHEN 'silver' THEN 1 WHEN 'gold' THEN 2 ELSE -1 END`

func (q *queries) RaiseTier(ctx context.Context, id loyalty.AccountID, to loyalty.Tier) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE accounts SET tier = ?, updated_at = ?
		WHERE id = ? AND `+tierRank+` < ?`,
		string(to), fmtTime(time.Now()), string(id), to.Rank())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (q *queries) SetTier(ctx context.Context, id loyalty.AccountID, to loyalty.Tier) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET tier = ?, updated_at = ? WHERE id = ?`,
		string(to), fmtTime(time.Now()), string(id))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return loyalty.ErrAccountNotFound
	}
	return nil
}

// --- Ledger ---

func (q *queries) InsertLedgerEntry(ctx context.Context, e loyalty.LedgerEntry) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, account_id, kind, amount, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(e.ID), string(e.AccountID), string(e.Kind), e.Amount, e.Reason, fmtTime(e.CreatedAt))
	return err
}

func (q *queries) LedgerEntries(ctx context.Context, id loyalty.AccountID) ([]loyalty.LedgerEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, account_id, kind, amount, reason, created_at
		FROM ledger_entries WHERE account_id = ? ORDER BY created_at, id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []loyalty.LedgerEntry
	for rows.Next() {
		var e loyalty.LedgerEntry
		var reason sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Kind, &e.Amount, &reason, &createdAt); err != nil {
			return nil, err
		}
		e.Reason = reason.String
		e.CreatedAt = parseTime(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- Thresholds ---

func (q *queries) ReadThresholds(ctx context.Context) (loyalty.TierThresholds, error) {
	var th loyalty.TierThresholds
	err := q.db.QueryRowContext(ctx,
		`SELECT silver_min, gold_min FROM tier_thresholds WHERE id = 1`).
		Scan(&th.SilverMin, &th.GoldMin)
	return th, err
}

func (q *queries) WriteThresholds(ctx context.Context, th loyalty.TierThresholds) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO tier_thresholds (id, silver_min, gold_min) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET silver_min = excluded.silver_min, gold_min = excluded.gold_min`,
		th.SilverMin, th.GoldMin)
	return err
}

// --- Achievements ---

func (q *queries) InsertAchievementGrantIfAbsent(ctx context.Context, id loyalty.AccountID, achievementID loyalty.AchievementID) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO achievement_grants (account_id, achievement_id, granted_at)
		VALUES (?, ?, ?)`,
		string(id), string(achievementID), fmtTime(time.Now()))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (q *queries) GrantedAchievements(ctx context.Context, id loyalty.AccountID) ([]loyalty.AchievementGrant, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT account_id, achievement_id, granted_at
		FROM achievement_grants WHERE account_id = ? ORDER BY granted_at`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []loyalty.AchievementGrant
	for rows.Next() {
		var g loyalty.AchievementGrant
		var grantedAt string
		if err := rows.Scan(&g.AccountID, &g.AchievementID, &grantedAt); err != nil {
			return nil, err
		}
		g.GrantedAt = parseTime(grantedAt)
		out = append(out, g)
	}
	return out, rows.Err()
}

// --- Rewards ---

func (q *queries) SaveReward(ctx context.Context, r loyalty.Reward) error {
	var inv sql.NullInt64
	if r.Inventory != nil {
		inv = sql.NullInt64{Int64: *r.Inventory, Valid: true}
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO rewards (id, name, points_cost, tier_required, active, auto_approve, inventory, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			points_cost = excluded.points_cost,
			tier_required = excluded.tier_required,
			active = excluded.active,
			auto_approve = excluded.auto_approve,
			inventory = excluded.inventory`,
		string(r.ID), r.Name, r.PointsCost, string(r.TierRequired),
		boolToInt(r.Active), boolToInt(r.AutoApprove), inv, fmtTime(r.CreatedAt))
	return err
}

func (q *queries) ReadReward(ctx context.Context, id loyalty.RewardID) (*loyalty.Reward, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, name, points_cost, tier_required, active, auto_approve, inventory, created_at
		FROM rewards WHERE id = ?`, string(id))
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, loyalty.ErrRewardNotFound
	}
	return r, err
}

func (q *queries) ListRewards(ctx context.Context) ([]loyalty.Reward, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, points_cost, tier_required, active, auto_approve, inventory, created_at
		FROM rewards ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []loyalty.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanReward(row rowScanner) (*loyalty.Reward, error) {
	var r loyalty.Reward
	var tier, createdAt string
	var active, autoApprove int
	var inv sql.NullInt64
	err := row.Scan(&r.ID, &r.Name, &r.PointsCost, &tier, &active, &autoApprove, &inv, &createdAt)
	if err != nil {
		return nil, err
	}
	r.TierRequired = loyalty.Tier(tier)
	r.Active = active != 0
	r.AutoApprove = autoApprove != 0
	if inv.Valid {
		v := inv.Int64
		r.Inventory = &v
	}
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

func (q *queries) SetRewardActive(ctx context.Context, id loyalty.RewardID, active bool) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE rewards SET active = ? WHERE id = ?`, boolToInt(active), string(id))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return loyalty.ErrRewardNotFound
	}
	return nil
}

func (q *queries) AtomicDecrementInventoryIfPositive(ctx context.Context, id loyalty.RewardID) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE rewards SET inventory = inventory - 1
		WHERE id = ? AND inventory IS NOT NULL AND inventory > 0`, string(id))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// --- Redemptions ---

func (q *queries) InsertRedemption(ctx context.Context, r loyalty.Redemption) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO redemptions (id, account_id, reward_id, status, points_cost, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(r.ID), string(r.AccountID), string(r.RewardID), string(r.Status),
		r.PointsCost, fmtTime(r.CreatedAt), fmtTime(r.UpdatedAt))
	return err
}

func (q *queries) ReadRedemption(ctx context.Context, id loyalty.RedemptionID) (*loyalty.Redemption, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, account_id, reward_id, status, points_cost, decided_by, decided_at, denial_reason, created_at, updated_at
		FROM redemptions WHERE id = ?`, string(id))
	r, err := scanRedemption(row)
	if err == sql.ErrNoRows {
		return nil, loyalty.ErrRedemptionNotFound
	}
	return r, err
}

func (q *queries) ListRedemptionsByStatus(ctx context.Context, status loyalty.RedemptionStatus) ([]loyalty.Redemption, error) {
	return q.queryRedemptions(ctx, `
		SELECT id, account_id, reward_id, status, points_cost, decided_by, decided_at, denial_reason, created_at, updated_at
		FROM redemptions WHERE status = ? ORDER BY created_at`, string(status))
}

func (q *queries) ListRedemptionsByAccount(ctx context.Context, id loyalty.AccountID) ([]loyalty.Redemption, error) {
	return q.queryRedemptions(ctx, `
		SELECT id, account_id, reward_id, status, points_cost, decided_by, decided_at, denial_reason, created_at, updated_at
		FROM redemptions WHERE account_id = ? ORDER BY created_at`, string(id))
}

func (q *queries) queryRedemptions(ctx context.Context, query string, args ...any) ([]loyalty.Redemption, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []loyalty.Redemption
	for rows.Next() {
		r, err := scanRedemption(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanRedemption(row rowScanner) (*loyalty.Redemption, error) {
	var r loyalty.Redemption
	var status, createdAt, updatedAt string
	var decidedBy, decidedAt, denialReason sql.NullString
	err := row.Scan(&r.ID, &r.AccountID, &r.RewardID, &status, &r.PointsCost,
		&decidedBy, &decidedAt, &denialReason, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	r.Status = loyalty.RedemptionStatus(status)
	if decidedBy.Valid {
		r.DecidedBy = &decidedBy.String
	}
	if decidedAt.Valid {
		t := parseTime(decidedAt.String)
		r.DecidedAt = &t
	}
	if denialReason.Valid {
		r.DenialReason = &denialReason.String
	}
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

func (q *queries) TransitionRedemption(ctx context.Context, id loyalty.RedemptionID, from, to loyalty.RedemptionStatus, decidedBy, reason string) (bool, error) {
	var denial sql.NullString
	if reason != "" {
		denial = sql.NullString{String: reason, Valid: true}
	}
	now := fmtTime(time.Now())
	res, err := q.db.ExecContext(ctx, `
		UPDATE redemptions
		SET status = ?, decided_by = ?, decided_at = ?, denial_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(to), decidedBy, now, denial, now, string(id), string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// --- Notifications ---

func (q *queries) AppendNotification(ctx context.Context, n loyalty.Notification) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO notifications (id, account_id, kind, message, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		n.ID, string(n.AccountID), n.Kind, n.Message, fmtTime(n.CreatedAt))
	return err
}

func (q *queries) Notifications(ctx context.Context, id loyalty.AccountID) ([]loyalty.Notification, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, account_id, kind, message, created_at
		FROM notifications WHERE account_id = ? ORDER BY created_at`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []loyalty.Notification
	for rows.Next() {
		var n loyalty.Notification
		var createdAt string
		if err := rows.Scan(&n.ID, &n.AccountID, &n.Kind, &n.Message, &createdAt); err != nil {
			return nil, err
		}
		n.CreatedAt = parseTime(createdAt)
		out = append(out, n)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
