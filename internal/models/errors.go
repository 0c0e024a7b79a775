package models

import "errors"

// Ledger rejections. Each one means the operation applied nothing.
var (
	ErrInvalidAmount     = errors.New("ledger: amount must be positive")
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrFeeExceedsTotal   = errors.New("ledger: flat fee leaves nothing to split")
	ErrSplitTooSmall     = errors.New("ledger: not enough silver to split")
	ErrInvalidTaxPercent = errors.New("ledger: tax percent must be between 0 and 100")
	ErrNoRecipients      = errors.New("ledger: at least one recipient is required")
	ErrBalanceOverflow   = errors.New("ledger: balance would exceed the maximum")
)
