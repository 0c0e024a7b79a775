package ledger

import (
	"context"

	"github.com/mmynk/silverledger/internal/calculator"
	"github.com/mmynk/silverledger/internal/models"
	"github.com/mmynk/silverledger/internal/storage"
)

// LootSplitRequest describes a pot to divide among recipients.
type LootSplitRequest struct {
	CommunityID int64
	InitiatorID int64

	// Name is an optional label stored with the split.
	Name string

	Total      int64
	FlatFee    int64
	TaxPercent int64

	// Recipients are paid in order. Duplicates are paid once.
	Recipients []int64
}

// ComputeSplit previews a split without touching any balance.
func (l *Ledger) ComputeSplit(total, flatFee, taxPercent, recipientCount int64) (calculator.Split, error) {
	return calculator.ComputeSplit(total, flatFee, taxPercent, recipientCount)
}

// ApplyLootSplit pays every recipient an equal share and sends the tax to
// the treasury. The flat fee leaves the pot and is credited to nobody, as is
// the rounding remainder.
func (l *Ledger) ApplyLootSplit(ctx context.Context, req LootSplitRequest) (*models.LootSplitRecord, error) {
	recipients := Dedupe(req.Recipients)

	split, err := calculator.ComputeSplit(req.Total, req.FlatFee, req.TaxPercent, int64(len(recipients)))
	if err != nil {
		return nil, l.reject(OpLootSplit, req.CommunityID, req.Total, err)
	}

	rec := &models.LootSplitRecord{
		CommunityID:    req.CommunityID,
		InitiatorID:    req.InitiatorID,
		Name:           req.Name,
		Total:          split.Total,
		FlatFee:        split.FlatFee,
		TaxPercent:     split.TaxPercent,
		TaxAmount:      split.TaxAmount,
		Remaining:      split.Remaining,
		Share:          split.Share,
		RecipientCount: split.RecipientCount,
		RecipientIDs:   recipients,
	}

	err = l.mutate(ctx, OpLootSplit, req.CommunityID, req.Total, func(ctx context.Context, tx storage.Tx, now int64) error {
		for _, userID := range recipients {
			if err := tx.Credit(ctx, req.CommunityID, userID, split.Share); err != nil {
				return err
			}
		}
		if split.TaxAmount > 0 {
			if err := tx.AddTreasury(ctx, req.CommunityID, split.TaxAmount); err != nil {
				return err
			}
		}
		rec.CreatedAt = now
		return tx.RecordLootSplit(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}
