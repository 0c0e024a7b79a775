package models

// Account is a user's wallet within a community.
type Account struct {
	// CommunityID is the community (chat server) the wallet belongs to.
	CommunityID int64

	// UserID is the wallet owner.
	UserID int64

	// Wallet is the current balance in silver. Never negative.
	Wallet int64
}
