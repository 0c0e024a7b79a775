// Package storage provides abstractions for persistent ledger storage.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmynk/silverledger/internal/models"
)

// Page selects a window of a newest-first history. A zero Limit means
// "every row" and ignores Offset.
type Page struct {
	Limit  int
	Offset int
}

// Store defines the ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the ledger layer. Reads outside RunInTx always see the
// latest committed state; nothing is cached.
type Store interface {
	// EnsureAccount creates a zero-balance wallet if it does not exist.
	EnsureAccount(ctx context.Context, communityID, userID int64) error

	// GetBalance returns the wallet balance, or 0 when the wallet does not
	// exist. It never creates the wallet.
	GetBalance(ctx context.Context, communityID, userID int64) (int64, error)

	// GetTreasury returns the treasury balance, or 0 when absent.
	GetTreasury(ctx context.Context, communityID int64) (int64, error)

	// RunInTx runs fn inside one atomic unit. If fn returns an error the
	// unit is rolled back and that error is returned unchanged. Driver
	// failures are returned as *FaultError. fn receives a context that is
	// not canceled with ctx; every Tx call inside fn must use it.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Audit log readers, newest first by log sequence.
	TransferHistory(ctx context.Context, communityID int64, page Page) ([]models.TransferRecord, error)
	TreasuryHistory(ctx context.Context, communityID int64, page Page) ([]models.TreasuryActionRecord, error)
	LootSplitHistory(ctx context.Context, communityID int64, page Page) ([]models.LootSplitRecord, error)
	AdjustmentHistory(ctx context.Context, communityID int64, page Page) ([]models.AdjustmentRecord, error)

	// Leaderboard lists wallets holding silver, richest first.
	Leaderboard(ctx context.Context, communityID int64, page Page) ([]models.Account, error)

	// LeaderboardCount counts wallets holding silver.
	LeaderboardCount(ctx context.Context, communityID int64) (int64, error)

	// TotalWallets sums every wallet in the community.
	TotalWallets(ctx context.Context, communityID int64) (int64, error)

	// Close releases any resources held by the store.
	Close() error
}

// Tx is the mutation side of the account and treasury repositories plus the
// audit log writers. It is only reachable through Store.RunInTx.
type Tx interface {
	EnsureAccount(ctx context.Context, communityID, userID int64) error

	// Wallet reads a wallet balance and holds it for the rest of the unit.
	Wallet(ctx context.Context, communityID, userID int64) (int64, error)

	// Credit adds amount to a wallet, creating it if needed. It fails with
	// models.ErrBalanceOverflow, writing nothing, if the sum overflows int64.
	Credit(ctx context.Context, communityID, userID, amount int64) error

	// Debit removes amount from a wallet or fails with
	// models.ErrInsufficientFunds without writing anything.
	Debit(ctx context.Context, communityID, userID, amount int64) error

	// Treasury reads the treasury balance and holds it for the rest of the unit.
	Treasury(ctx context.Context, communityID int64) (int64, error)

	// AddTreasury credits the treasury, creating it if needed. Overflow is
	// refused like Credit.
	AddTreasury(ctx context.Context, communityID, amount int64) error

	// DeductTreasury removes amount from the treasury or fails with
	// models.ErrInsufficientFunds without writing anything.
	DeductTreasury(ctx context.Context, communityID, amount int64) error

	// Audit log writers. Each fills in the record ID.
	RecordTransfer(ctx context.Context, rec *models.TransferRecord) error
	RecordTreasuryAction(ctx context.Context, rec *models.TreasuryActionRecord) error
	RecordLootSplit(ctx context.Context, rec *models.LootSplitRecord) error
	RecordAdjustment(ctx context.Context, rec *models.AdjustmentRecord) error
}

// FaultError reports a storage failure. The operation did not happen.
type FaultError struct {
	Op  string
	Err error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *FaultError) Unwrap() error {
	return e.Err
}

// Fault wraps err as a *FaultError. A nil err stays nil.
func Fault(op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *FaultError
	if errors.As(err, &fe) {
		return err
	}
	return &FaultError{Op: op, Err: err}
}

// IsFault reports whether err is a storage failure.
func IsFault(err error) bool {
	var fe *FaultError
	return errors.As(err, &fe)
}
