package calculator

import "github.com/mmynk/silverledger/internal/models"

// GuildBalance reconciles the silver a community physically holds against
// what the ledger says it owes.
type GuildBalance struct {
	// OnHand is the silver the community reports holding.
	OnHand int64

	// Treasury is the ledger's treasury balance.
	Treasury int64

	// Owed is the sum of every member wallet.
	Owed int64

	// Actual is what is left once the treasury and members are paid out.
	// Negative means the community cannot cover its obligations.
	Actual int64
}

// Shortfall reports whether the obligations exceed what is on hand.
func (g GuildBalance) Shortfall() bool {
	return g.Actual < 0
}

// ReconcileGuild computes actual = onHand - treasury - owed.
func ReconcileGuild(onHand, treasury, owed int64) (GuildBalance, error) {
	if onHand < 0 {
		return GuildBalance{}, models.ErrInvalidAmount
	}
	return GuildBalance{
		OnHand:   onHand,
		Treasury: treasury,
		Owed:     owed,
		Actual:   onHand - treasury - owed,
	}, nil
}
