// Package sqlstore implements storage.Store over database/sql. The SQLite
// and PostgreSQL backends share these queries and differ only in their
// Dialect and schema migrations.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mmynk/silverledger/internal/models"
	"github.com/mmynk/silverledger/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Dialect captures the SQL differences between backends.
type Dialect struct {
	// Name is used in logs and errors.
	Name string

	// LockSuffix is appended to reads that must hold the row until the
	// transaction ends. SQLite takes the database write lock when the
	// transaction begins and needs nothing here.
	LockSuffix string
}

var (
	SQLite   = Dialect{Name: "sqlite"}
	Postgres = Dialect{Name: "postgres", LockSuffix: " FOR UPDATE"}
)

// Store implements storage.Store on top of a sqlx handle.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
}

// New wraps an open, migrated database.
func New(db *sqlx.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB returns the underlying handle.
func (s *Store) DB() *sqlx.DB { return s.db }

// Dialect returns the backend dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureAccount creates a zero-balance wallet if it is missing.
func (s *Store) EnsureAccount(ctx context.Context, communityID, userID int64) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(ensureAccountSQL), communityID, userID)
	if err != nil {
		return storage.Fault("ensure account", fmt.Errorf("failed to ensure account: %w", err))
	}
	return nil
}

// GetBalance reads a wallet without creating it.
func (s *Store) GetBalance(ctx context.Context, communityID, userID int64) (int64, error) {
	var wallet int64
	err := s.db.GetContext(ctx, &wallet,
		s.db.Rebind("SELECT wallet FROM accounts WHERE community_id = ? AND user_id = ?"),
		communityID, userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storage.Fault("get balance", fmt.Errorf("failed to get balance: %w", err))
	}
	return wallet, nil
}

// GetTreasury reads a treasury without creating it.
func (s *Store) GetTreasury(ctx context.Context, communityID int64) (int64, error) {
	var balance int64
	err := s.db.GetContext(ctx, &balance,
		s.db.Rebind("SELECT balance FROM treasury WHERE community_id = ?"),
		communityID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storage.Fault("get treasury", fmt.Errorf("failed to get treasury: %w", err))
	}
	return balance, nil
}

// RunInTx runs fn in a single transaction.
//
// The transaction is detached from ctx cancellation once it has begun: a
// ledger operation runs to commit or rollback and is never cut off halfway.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return storage.Fault("begin", err)
	}
	ctx = context.WithoutCancel(ctx)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storage.Fault("begin", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	if err := fn(ctx, &sqlTx{tx: tx, dialect: s.dialect}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storage.Fault("commit", fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// Leaderboard lists wallets with a positive balance, richest first.
func (s *Store) Leaderboard(ctx context.Context, communityID int64, page storage.Page) ([]models.Account, error) {
	query, args := paged(`
		SELECT community_id, user_id, wallet
		FROM accounts
		WHERE community_id = ? AND wallet > 0
		ORDER BY wallet DESC, user_id ASC`, page, communityID)

	var rows []accountRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, storage.Fault("leaderboard", fmt.Errorf("failed to list leaderboard: %w", err))
	}

	accounts := make([]models.Account, len(rows))
	for i, r := range rows {
		accounts[i] = models.Account{CommunityID: r.CommunityID, UserID: r.UserID, Wallet: r.Wallet}
	}
	return accounts, nil
}

// LeaderboardCount counts wallets with a positive balance.
func (s *Store) LeaderboardCount(ctx context.Context, communityID int64) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n,
		s.db.Rebind("SELECT COUNT(*) FROM accounts WHERE community_id = ? AND wallet > 0"),
		communityID,
	)
	if err != nil {
		return 0, storage.Fault("leaderboard count", fmt.Errorf("failed to count leaderboard: %w", err))
	}
	return n, nil
}

// TotalWallets sums every wallet in the community.
func (s *Store) TotalWallets(ctx context.Context, communityID int64) (int64, error) {
	var total int64
	err := s.db.GetContext(ctx, &total,
		s.db.Rebind("SELECT COALESCE(SUM(wallet), 0) FROM accounts WHERE community_id = ?"),
		communityID,
	)
	if err != nil {
		return 0, storage.Fault("total wallets", fmt.Errorf("failed to sum wallets: %w", err))
	}
	return total, nil
}

const ensureAccountSQL = `
	INSERT INTO accounts (community_id, user_id, wallet)
	VALUES (?, ?, 0)
	ON CONFLICT (community_id, user_id) DO NOTHING`

type accountRow struct {
	CommunityID int64 `db:"community_id"`
	UserID      int64 `db:"user_id"`
	Wallet      int64 `db:"wallet"`
}

// paged appends LIMIT/OFFSET placeholders when the page is bounded.
func paged(query string, page storage.Page, args ...any) (string, []any) {
	if page.Limit <= 0 {
		return query, args
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}
	return query + "\n\t\tLIMIT ? OFFSET ?", append(args, page.Limit, offset)
}
