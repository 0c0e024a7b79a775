// Package models defines the core domain models for the silver ledger.
//
// # Balances
//
// The ledger keeps two kinds of balances, both scoped to a community:
//   - Account: one wallet per (community, user) pair
//   - Treasury: one pooled balance per community, kept as a bare integer
//
// Both are created lazily with a zero balance and are never deleted.
// Amounts are whole "silver" units stored as int64; there are no fractions.
//
// # Audit records
//
// Every mutation that commits leaves exactly one immutable record:
//   - TransferRecord: wallet to wallet transfer
//   - TreasuryActionRecord: treasury add, take or transfer to a user
//   - LootSplitRecord: distribution of pooled loot among recipients
//   - AdjustmentRecord: administrative grant or removal on one wallet
//
// Records are only used for history reporting. Current balances are never
// derived from them.
//
// # Identifiers
//
// Community and user identifiers come from the chat platform (snowflake
// integers) and are trusted as given. Identifiers from different
// communities never interact.
package models
