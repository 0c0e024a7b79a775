package ledger

import (
	"errors"

	"github.com/mmynk/silverledger/internal/models"
	"github.com/mmynk/silverledger/internal/storage"
)

// Rejections re-exported from models so callers only import ledger.
var (
	ErrInvalidAmount     = models.ErrInvalidAmount
	ErrInsufficientFunds = models.ErrInsufficientFunds
	ErrFeeExceedsTotal   = models.ErrFeeExceedsTotal
	ErrSplitTooSmall     = models.ErrSplitTooSmall
	ErrInvalidTaxPercent = models.ErrInvalidTaxPercent
	ErrNoRecipients      = models.ErrNoRecipients
	ErrBalanceOverflow   = models.ErrBalanceOverflow
)

var rejections = []error{
	ErrInvalidAmount,
	ErrInsufficientFunds,
	ErrFeeExceedsTotal,
	ErrSplitTooSmall,
	ErrInvalidTaxPercent,
	ErrNoRecipients,
	ErrBalanceOverflow,
}

// IsStorageFault reports whether err came from the storage layer.
// A faulted operation applied nothing.
func IsStorageFault(err error) bool {
	return storage.IsFault(err)
}

// IsRejected reports whether err is a ledger rule violation.
func IsRejected(err error) bool {
	for _, target := range rejections {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
