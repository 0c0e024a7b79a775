// Package render turns ledger values into human readable text.
package render

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mmynk/silverledger/internal/calculator"
	"github.com/mmynk/silverledger/internal/models"
)

const timeLayout = "2006-01-02 15:04"

var printer = message.NewPrinter(language.English)

// Silver formats an amount with thousands separators, e.g. "1,000".
func Silver(amount int64) string {
	return printer.Sprintf("%d", amount)
}

// User formats a user id.
func User(id int64) string {
	return fmt.Sprintf("@%d", id)
}

// Users formats a list of user ids.
func Users(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = User(id)
	}
	return strings.Join(parts, ", ")
}

// Timestamp formats a unix timestamp in UTC.
func Timestamp(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(timeLayout)
}

// Transfer formats one transfer history line.
func Transfer(r models.TransferRecord) string {
	return fmt.Sprintf("%s - %s sent %s silver to %s",
		Timestamp(r.CreatedAt), User(r.SenderID), Silver(r.Amount), User(r.ReceiverID))
}

// TreasuryAction formats one treasury history line.
func TreasuryAction(r models.TreasuryActionRecord) string {
	line := fmt.Sprintf("%s - %s %s %s silver",
		Timestamp(r.CreatedAt), User(r.InitiatorID), r.Action, Silver(r.Amount))
	if r.RecipientID != nil {
		line += " to " + User(*r.RecipientID)
	}
	return line
}

// Adjustment formats one grant or removal history line.
func Adjustment(r models.AdjustmentRecord) string {
	verb := "gave"
	prep := "to"
	if r.Action == models.AdjustmentTake {
		verb, prep = "took", "from"
	}
	return fmt.Sprintf("%s - %s %s %s silver %s %s",
		Timestamp(r.CreatedAt), User(r.InitiatorID), verb, Silver(r.Amount), prep, User(r.UserID))
}

// LootSplit formats one loot split history line.
func LootSplit(r models.LootSplitRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s split %s silver", Timestamp(r.CreatedAt), User(r.InitiatorID), Silver(r.Total))
	if r.Name != "" {
		fmt.Fprintf(&b, " (%s)", r.Name)
	}
	if r.FlatFee > 0 {
		fmt.Fprintf(&b, ", fee %s", Silver(r.FlatFee))
	}
	fmt.Fprintf(&b, ", tax %d%% (%s), %s each to %s",
		r.TaxPercent, Silver(r.TaxAmount), Silver(r.Share), Users(r.RecipientIDs))
	return b.String()
}

// SplitSummary describes a computed split, as shown before confirmation.
func SplitSummary(s calculator.Split, recipients []int64) string {
	lines := []string{
		fmt.Sprintf("Total: %s silver", Silver(s.Total)),
	}
	if s.FlatFee > 0 {
		lines = append(lines, fmt.Sprintf("Flat fee: %s silver", Silver(s.FlatFee)))
	}
	lines = append(lines,
		fmt.Sprintf("Tax (%d%%): %s silver", s.TaxPercent, Silver(s.TaxAmount)),
		fmt.Sprintf("Split: %s silver among %s", Silver(s.Remaining), Users(recipients)),
		fmt.Sprintf("Each receives %s silver (%s paid out)", Silver(s.Share), Silver(s.Paid())),
	)
	if u := s.Undistributed(); u > 0 {
		lines = append(lines, fmt.Sprintf("Undistributed: %s silver", Silver(u)))
	}
	return strings.Join(lines, "\n")
}

// Leaderboard renders one page of the leaderboard. Ranks continue from offset.
func Leaderboard(accounts []models.Account, offset int, page, pages, totalOwed int64) string {
	lines := []string{
		fmt.Sprintf("Leaderboard (page %d/%d) - Total owed: %s silver", page, pages, Silver(totalOwed)),
	}
	for i, a := range accounts {
		lines = append(lines, fmt.Sprintf("%d. %s - %s silver", offset+i+1, User(a.UserID), Silver(a.Wallet)))
	}
	return strings.Join(lines, "\n")
}

// GuildBalance renders a reconciliation.
func GuildBalance(g calculator.GuildBalance) string {
	return strings.Join([]string{
		fmt.Sprintf("Actual balance: %s silver", Silver(g.Actual)),
		fmt.Sprintf("Total on hand: %s silver", Silver(g.OnHand)),
		fmt.Sprintf("Treasury: %s silver", Silver(g.Treasury)),
		fmt.Sprintf("Total owed: %s silver", Silver(g.Owed)),
	}, "\n")
}
