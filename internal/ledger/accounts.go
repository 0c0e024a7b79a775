package ledger

import (
	"context"

	"github.com/mmynk/silverledger/internal/models"
	"github.com/mmynk/silverledger/internal/storage"
)

// EnsureAccount creates a zero-balance wallet if it is missing.
func (l *Ledger) EnsureAccount(ctx context.Context, communityID, userID int64) error {
	return l.store.EnsureAccount(ctx, communityID, userID)
}

// GetBalance returns the wallet balance, 0 for unknown users.
func (l *Ledger) GetBalance(ctx context.Context, communityID, userID int64) (int64, error) {
	return l.store.GetBalance(ctx, communityID, userID)
}

// TransferBalance moves amount from sender to receiver. Sending to oneself
// is allowed here and leaves the balance unchanged.
func (l *Ledger) TransferBalance(ctx context.Context, communityID, senderID, receiverID, amount int64) error {
	if amount <= 0 {
		return l.reject(OpTransfer, communityID, amount, ErrInvalidAmount)
	}

	return l.mutate(ctx, OpTransfer, communityID, amount, func(ctx context.Context, tx storage.Tx, now int64) error {
		if err := tx.Debit(ctx, communityID, senderID, amount); err != nil {
			return err
		}
		if err := tx.Credit(ctx, communityID, receiverID, amount); err != nil {
			return err
		}
		return tx.RecordTransfer(ctx, &models.TransferRecord{
			CommunityID: communityID,
			SenderID:    senderID,
			ReceiverID:  receiverID,
			Amount:      amount,
			CreatedAt:   now,
		})
	})
}

// DeductBalance removes amount from a wallet on behalf of initiator.
func (l *Ledger) DeductBalance(ctx context.Context, communityID, initiatorID, userID, amount int64) error {
	if amount <= 0 {
		return l.reject(OpDeduct, communityID, amount, ErrInvalidAmount)
	}

	return l.mutate(ctx, OpDeduct, communityID, amount, func(ctx context.Context, tx storage.Tx, now int64) error {
		if err := tx.Debit(ctx, communityID, userID, amount); err != nil {
			return err
		}
		return tx.RecordAdjustment(ctx, &models.AdjustmentRecord{
			CommunityID: communityID,
			InitiatorID: initiatorID,
			UserID:      userID,
			Action:      models.AdjustmentTake,
			Amount:      amount,
			CreatedAt:   now,
		})
	})
}

// CreditBalance adds amount to a wallet on behalf of initiator.
func (l *Ledger) CreditBalance(ctx context.Context, communityID, initiatorID, userID, amount int64) error {
	if amount <= 0 {
		return l.reject(OpCredit, communityID, amount, ErrInvalidAmount)
	}

	return l.mutate(ctx, OpCredit, communityID, amount, func(ctx context.Context, tx storage.Tx, now int64) error {
		if err := tx.Credit(ctx, communityID, userID, amount); err != nil {
			return err
		}
		return tx.RecordAdjustment(ctx, &models.AdjustmentRecord{
			CommunityID: communityID,
			InitiatorID: initiatorID,
			UserID:      userID,
			Action:      models.AdjustmentGrant,
			Amount:      amount,
			CreatedAt:   now,
		})
	})
}
