package calculator

import "github.com/mmynk/silverledger/internal/models"

// Split is the outcome of dividing a loot pot.
type Split struct {
	Total          int64
	FlatFee        int64
	TaxPercent     int64
	RecipientCount int64

	// AfterFee is the pot once the flat fee is removed.
	AfterFee int64

	// TaxAmount goes to the community treasury.
	TaxAmount int64

	// Remaining is divided among the recipients.
	Remaining int64

	// Share is paid to every recipient.
	Share int64
}

// Undistributed is the rounding remainder that nobody receives.
func (s Split) Undistributed() int64 {
	return s.Remaining - s.Share*s.RecipientCount
}

// Paid is the total credited to recipient wallets.
func (s Split) Paid() int64 {
	return s.Share * s.RecipientCount
}

// ComputeSplit divides total among recipientCount people after removing a
// flat fee and then a percentage tax. Tax and share both round down.
//
//	afterFee  = total - flatFee
//	taxAmount = floor(afterFee * taxPercent / 100)
//	remaining = afterFee - taxAmount
//	share     = floor(remaining / recipientCount)
func ComputeSplit(total, flatFee, taxPercent, recipientCount int64) (Split, error) {
	if total <= 0 || flatFee < 0 {
		return Split{}, models.ErrInvalidAmount
	}
	if taxPercent < 0 || taxPercent > 100 {
		return Split{}, models.ErrInvalidTaxPercent
	}
	if recipientCount <= 0 {
		return Split{}, models.ErrNoRecipients
	}

	afterFee := total - flatFee
	if afterFee <= 0 {
		return Split{}, models.ErrFeeExceedsTotal
	}

	// split the multiplication so large pots cannot overflow
	taxAmount := afterFee/100*taxPercent + afterFee%100*taxPercent/100
	remaining := afterFee - taxAmount

	share := remaining / recipientCount
	if share <= 0 {
		return Split{}, models.ErrSplitTooSmall
	}

	return Split{
		Total:          total,
		FlatFee:        flatFee,
		TaxPercent:     taxPercent,
		RecipientCount: recipientCount,
		AfterFee:       afterFee,
		TaxAmount:      taxAmount,
		Remaining:      remaining,
		Share:          share,
	}, nil
}
