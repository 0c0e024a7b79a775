package ledger

import (
	"context"
	"math"

	"github.com/mmynk/silverledger/internal/calculator"
	"github.com/mmynk/silverledger/internal/models"
	"github.com/mmynk/silverledger/internal/storage"
)

// MaxPageSize caps history and leaderboard pages.
const MaxPageSize = 10

// Page is re-exported so callers do not need the storage package.
type Page = storage.Page

// PageFor converts a 1-based page number into a row window. limit is
// clamped to [1, MaxPageSize] and page to [1, math.MaxInt/limit] so the
// offset cannot overflow.
func PageFor(limit, page int) Page {
	limit = max(1, min(MaxPageSize, limit))
	page = max(1, min(math.MaxInt/limit, page))
	return Page{Limit: limit, Offset: (page - 1) * limit}
}

// PageCount is the number of pages needed to show total rows.
func PageCount(total int64, limit int) int64 {
	if limit <= 0 {
		return 1
	}
	return max(1, (total+int64(limit)-1)/int64(limit))
}

// TransferHistory lists transfers newest first.
func (l *Ledger) TransferHistory(ctx context.Context, communityID int64, page Page) ([]models.TransferRecord, error) {
	return l.store.TransferHistory(ctx, communityID, page)
}

// TreasuryHistory lists treasury actions newest first. A zero page returns
// every action.
func (l *Ledger) TreasuryHistory(ctx context.Context, communityID int64, page Page) ([]models.TreasuryActionRecord, error) {
	return l.store.TreasuryHistory(ctx, communityID, page)
}

// LootSplitHistory lists loot splits newest first.
func (l *Ledger) LootSplitHistory(ctx context.Context, communityID int64, page Page) ([]models.LootSplitRecord, error) {
	return l.store.LootSplitHistory(ctx, communityID, page)
}

// AdjustmentHistory lists administrative grants and removals newest first.
func (l *Ledger) AdjustmentHistory(ctx context.Context, communityID int64, page Page) ([]models.AdjustmentRecord, error) {
	return l.store.AdjustmentHistory(ctx, communityID, page)
}

// Leaderboard lists wallets holding silver, richest first, ties by user id.
func (l *Ledger) Leaderboard(ctx context.Context, communityID int64, page Page) ([]models.Account, error) {
	return l.store.Leaderboard(ctx, communityID, page)
}

// LeaderboardCount counts wallets holding silver.
func (l *Ledger) LeaderboardCount(ctx context.Context, communityID int64) (int64, error) {
	return l.store.LeaderboardCount(ctx, communityID)
}

// TotalSilver is the silver owed to all members.
func (l *Ledger) TotalSilver(ctx context.Context, communityID int64) (int64, error) {
	return l.store.TotalWallets(ctx, communityID)
}

// GuildBalance reconciles silver on hand against the treasury and what
// members are owed.
func (l *Ledger) GuildBalance(ctx context.Context, communityID, onHand int64) (calculator.GuildBalance, error) {
	if onHand < 0 {
		return calculator.GuildBalance{}, ErrInvalidAmount
	}
	treasury, err := l.store.GetTreasury(ctx, communityID)
	if err != nil {
		return calculator.GuildBalance{}, err
	}
	owed, err := l.store.TotalWallets(ctx, communityID)
	if err != nil {
		return calculator.GuildBalance{}, err
	}
	return calculator.ReconcileGuild(onHand, treasury, owed)
}
