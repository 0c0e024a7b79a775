package models

import (
	"strconv"
	"strings"
)

// TransferRecord is the audit entry for a wallet to wallet transfer.
type TransferRecord struct {
	// ID is the monotonic log sequence assigned by the store.
	ID int64

	CommunityID int64

	// SenderID is the wallet that was debited.
	SenderID int64

	// ReceiverID is the wallet that was credited.
	ReceiverID int64

	// Amount moved, always positive.
	Amount int64

	// CreatedAt is the Unix timestamp when the transfer committed.
	CreatedAt int64
}

// TreasuryAction names what happened to a treasury.
type TreasuryAction string

const (
	// TreasuryAdd credits the treasury from outside the ledger.
	TreasuryAdd TreasuryAction = "add"
	// TreasuryTake removes silver from the treasury without a recipient.
	TreasuryTake TreasuryAction = "take"
	// TreasuryTransfer moves silver from the treasury into a wallet.
	TreasuryTransfer TreasuryAction = "transfer"
)

// TreasuryActionRecord is the audit entry for a treasury mutation.
type TreasuryActionRecord struct {
	ID          int64
	CommunityID int64

	// InitiatorID is the user who ran the action.
	InitiatorID int64

	Action TreasuryAction
	Amount int64

	// RecipientID is set only for TreasuryTransfer.
	RecipientID *int64

	CreatedAt int64
}

// LootSplitRecord is the audit entry for a loot distribution.
type LootSplitRecord struct {
	ID          int64
	CommunityID int64
	InitiatorID int64

	// Name is an optional label for the split (e.g. the dungeon run).
	Name string

	// Total is the pot before fee and tax.
	Total int64

	// FlatFee is removed from the pot before tax is computed.
	FlatFee int64

	// TaxPercent is the percentage (0-100) of the post-fee pot sent to the treasury.
	TaxPercent int64

	// TaxAmount is the silver credited to the treasury.
	TaxAmount int64

	// Remaining is the post-fee, post-tax amount divided among recipients.
	Remaining int64

	// Share is what each recipient received.
	Share int64

	// RecipientCount always equals len(RecipientIDs).
	RecipientCount int64

	// RecipientIDs in the order they were paid.
	RecipientIDs []int64

	CreatedAt int64
}

// Undistributed returns the rounding remainder that was paid to nobody.
func (r *LootSplitRecord) Undistributed() int64 {
	return r.Remaining - r.Share*r.RecipientCount
}

// AdjustmentAction names an administrative wallet change.
type AdjustmentAction string

const (
	// AdjustmentGrant credits a wallet unconditionally.
	AdjustmentGrant AdjustmentAction = "grant"
	// AdjustmentTake debits a wallet if it holds enough silver.
	AdjustmentTake AdjustmentAction = "take"
)

// AdjustmentRecord is the audit entry for an administrative grant or removal.
type AdjustmentRecord struct {
	ID          int64
	CommunityID int64
	InitiatorID int64

	// UserID is the wallet that was adjusted.
	UserID int64

	Action    AdjustmentAction
	Amount    int64
	CreatedAt int64
}

// JoinIDs renders ids as the comma separated form stored alongside loot splits.
func JoinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// ParseIDs reads a comma separated id list. Empty or malformed entries are
// skipped so legacy rows still render.
func ParseIDs(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
