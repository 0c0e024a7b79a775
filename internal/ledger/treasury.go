package ledger

import (
	"context"

	"github.com/mmynk/silverledger/internal/models"
	"github.com/mmynk/silverledger/internal/storage"
)

// GetTreasury returns the community treasury, 0 if it was never funded.
func (l *Ledger) GetTreasury(ctx context.Context, communityID int64) (int64, error) {
	return l.store.GetTreasury(ctx, communityID)
}

// AddTreasury credits the treasury.
func (l *Ledger) AddTreasury(ctx context.Context, communityID, initiatorID, amount int64) error {
	if amount <= 0 {
		return l.reject(OpTreasuryAdd, communityID, amount, ErrInvalidAmount)
	}

	return l.mutate(ctx, OpTreasuryAdd, communityID, amount, func(ctx context.Context, tx storage.Tx, now int64) error {
		if err := tx.AddTreasury(ctx, communityID, amount); err != nil {
			return err
		}
		return tx.RecordTreasuryAction(ctx, &models.TreasuryActionRecord{
			CommunityID: communityID,
			InitiatorID: initiatorID,
			Action:      models.TreasuryAdd,
			Amount:      amount,
			CreatedAt:   now,
		})
	})
}

// DeductTreasury removes amount from the treasury without paying anyone.
func (l *Ledger) DeductTreasury(ctx context.Context, communityID, initiatorID, amount int64) error {
	if amount <= 0 {
		return l.reject(OpTreasuryTake, communityID, amount, ErrInvalidAmount)
	}

	return l.mutate(ctx, OpTreasuryTake, communityID, amount, func(ctx context.Context, tx storage.Tx, now int64) error {
		if err := tx.DeductTreasury(ctx, communityID, amount); err != nil {
			return err
		}
		return tx.RecordTreasuryAction(ctx, &models.TreasuryActionRecord{
			CommunityID: communityID,
			InitiatorID: initiatorID,
			Action:      models.TreasuryTake,
			Amount:      amount,
			CreatedAt:   now,
		})
	})
}

// TransferTreasuryToUser pays amount from the treasury into a wallet.
func (l *Ledger) TransferTreasuryToUser(ctx context.Context, communityID, initiatorID, userID, amount int64) error {
	if amount <= 0 {
		return l.reject(OpTreasuryTransfer, communityID, amount, ErrInvalidAmount)
	}

	return l.mutate(ctx, OpTreasuryTransfer, communityID, amount, func(ctx context.Context, tx storage.Tx, now int64) error {
		if err := tx.DeductTreasury(ctx, communityID, amount); err != nil {
			return err
		}
		if err := tx.Credit(ctx, communityID, userID, amount); err != nil {
			return err
		}
		recipient := userID
		return tx.RecordTreasuryAction(ctx, &models.TreasuryActionRecord{
			CommunityID: communityID,
			InitiatorID: initiatorID,
			Action:      models.TreasuryTransfer,
			Amount:      amount,
			RecipientID: &recipient,
			CreatedAt:   now,
		})
	})
}
