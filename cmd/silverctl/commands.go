package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/mmynk/silverledger/internal/export"
	"github.com/mmynk/silverledger/internal/ledger"
	"github.com/mmynk/silverledger/internal/render"
)

const defaultHistoryLimit = 5

func (a *app) balance(ctx context.Context, args []string) error {
	if err := wantArgs(args, 0, 1, "balance [user]"); err != nil {
		return err
	}
	user := a.actor
	if len(args) == 1 {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		user = id
	}

	if err := a.ledger.EnsureAccount(ctx, a.community, user); err != nil {
		return err
	}
	wallet, err := a.ledger.GetBalance(ctx, a.community, user)
	if err != nil {
		return err
	}

	if user == a.actor {
		fmt.Fprintf(a.out, "You have %s silver\n", render.Silver(wallet))
	} else {
		fmt.Fprintf(a.out, "%s has %s silver\n", render.User(user), render.Silver(wallet))
	}
	return nil
}

func (a *app) userAmount(args []string, form string) (int64, int64, error) {
	if err := wantArgs(args, 2, 2, form); err != nil {
		return 0, 0, err
	}
	user, err := parseID(args[0])
	if err != nil {
		return 0, 0, err
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return 0, 0, err
	}
	return user, amount, nil
}

func (a *app) give(ctx context.Context, args []string) error {
	user, amount, err := a.userAmount(args, "give <user> <amount>")
	if err != nil {
		return err
	}
	if err := a.ledger.CreditBalance(ctx, a.community, a.actor, user, amount); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s silver to %s.\n", render.Silver(amount), render.User(user))
	return nil
}

func (a *app) take(ctx context.Context, args []string) error {
	user, amount, err := a.userAmount(args, "take <user> <amount>")
	if err != nil {
		return err
	}
	if err := a.ledger.DeductBalance(ctx, a.community, a.actor, user, amount); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Removed %s silver from %s.\n", render.Silver(amount), render.User(user))
	return nil
}

func (a *app) transfer(ctx context.Context, args []string) error {
	user, amount, err := a.userAmount(args, "transfer <user> <amount>")
	if err != nil {
		return err
	}
	if user == a.actor {
		return errors.New("you can't pay yourself")
	}
	if err := a.ledger.TransferBalance(ctx, a.community, a.actor, user, amount); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s sent %s silver to %s.\n", render.User(a.actor), render.Silver(amount), render.User(user))
	return nil
}

func (a *app) treasury(ctx context.Context) error {
	balance, err := a.ledger.GetTreasury(ctx, a.community)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Guild treasury has %s silver.\n", render.Silver(balance))
	return nil
}

func (a *app) treasuryAdd(ctx context.Context, args []string) error {
	if err := wantArgs(args, 1, 1, "treasury-add <amount>"); err != nil {
		return err
	}
	amount, err := parseAmount(args[0])
	if err != nil {
		return err
	}
	if err := a.ledger.AddTreasury(ctx, a.community, a.actor, amount); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s silver to the treasury.\n", render.Silver(amount))
	return nil
}

func (a *app) treasuryTake(ctx context.Context, args []string) error {
	if err := wantArgs(args, 1, 2, "treasury-take <amount> [user]"); err != nil {
		return err
	}
	amount, err := parseAmount(args[0])
	if err != nil {
		return err
	}

	if len(args) == 2 {
		user, err := parseID(args[1])
		if err != nil {
			return err
		}
		if err := a.ledger.TransferTreasuryToUser(ctx, a.community, a.actor, user, amount); err != nil {
			if errors.Is(err, ledger.ErrInsufficientFunds) {
				return errors.New("treasury has insufficient funds")
			}
			return err
		}
		fmt.Fprintf(a.out, "Transferred %s silver from the treasury to %s.\n", render.Silver(amount), render.User(user))
		return nil
	}

	if err := a.ledger.DeductTreasury(ctx, a.community, a.actor, amount); err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return errors.New("treasury has insufficient funds")
		}
		return err
	}
	fmt.Fprintf(a.out, "Removed %s silver from the treasury.\n", render.Silver(amount))
	return nil
}

func (a *app) lootsplit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("lootsplit", flag.ContinueOnError)
	total := fs.Int64("total", 0, "total silver in the pot")
	fee := fs.Int64("fee", 0, "flat fee removed before tax")
	tax := fs.Int64("tax", 0, "tax percent sent to the treasury (0-100)")
	name := fs.String("name", "", "optional label for the split")
	yes := fs.Bool("yes", false, "apply without asking")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := ledger.LootSplitRequest{
		CommunityID: a.community,
		InitiatorID: a.actor,
		Name:        *name,
		Total:       *total,
		FlatFee:     *fee,
		TaxPercent:  *tax,
		Recipients:  ledger.ParseRecipients(strings.Join(fs.Args(), " ")),
	}

	session, err := a.confirm.Begin(req)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, render.SplitSummary(session.Preview, session.Request.Recipients))

	if !*yes && !a.ask("Apply this split? [y/N] ") {
		if _, err := a.confirm.Cancel(session.ID, a.actor); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Loot split canceled.")
		return nil
	}

	done, err := a.confirm.Confirm(ctx, session.ID, a.actor)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Loot split #%d applied. Each received %s silver.\n", done.Record.ID, render.Silver(done.Record.Share))
	return nil
}

func (a *app) ask(prompt string) bool {
	fmt.Fprint(a.out, prompt)
	line, _ := bufio.NewReader(a.in).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func (a *app) history(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: silverctl history <transfers|treasury|lootsplits|adjustments> [-limit n] [-page n]")
	}
	kind := args[0]

	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	limit := fs.Int("limit", 0, "entries per page (max 10)")
	pageNum := fs.Int("page", 1, "page number")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	page := ledger.PageFor(*limit, *pageNum)
	if *limit == 0 {
		page = ledger.PageFor(defaultHistoryLimit, *pageNum)
	}

	var lines []string
	switch kind {
	case "transfers":
		records, err := a.ledger.TransferHistory(ctx, a.community, page)
		if err != nil {
			return err
		}
		for _, r := range records {
			lines = append(lines, render.Transfer(r))
		}
	case "treasury":
		// without -limit every action is listed
		if *limit == 0 {
			page = ledger.Page{}
		}
		records, err := a.ledger.TreasuryHistory(ctx, a.community, page)
		if err != nil {
			return err
		}
		for _, r := range records {
			lines = append(lines, render.TreasuryAction(r))
		}
	case "lootsplits":
		records, err := a.ledger.LootSplitHistory(ctx, a.community, page)
		if err != nil {
			return err
		}
		for _, r := range records {
			lines = append(lines, render.LootSplit(r))
		}
	case "adjustments":
		records, err := a.ledger.AdjustmentHistory(ctx, a.community, page)
		if err != nil {
			return err
		}
		for _, r := range records {
			lines = append(lines, render.Adjustment(r))
		}
	default:
		return fmt.Errorf("unknown history kind %q", kind)
	}

	if len(lines) == 0 {
		fmt.Fprintln(a.out, "No history yet.")
		return nil
	}
	for _, line := range lines {
		fmt.Fprintln(a.out, line)
	}
	return nil
}

func (a *app) leaderboard(ctx context.Context, args []string) error {
	if err := wantArgs(args, 0, 1, "leaderboard [page]"); err != nil {
		return err
	}
	pageNum := 1
	if len(args) == 1 {
		n, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		pageNum = int(n)
	}
	page := ledger.PageFor(ledger.MaxPageSize, pageNum)

	count, err := a.ledger.LeaderboardCount(ctx, a.community)
	if err != nil {
		return err
	}
	if count == 0 {
		fmt.Fprintln(a.out, "No balances yet.")
		return nil
	}
	pages := ledger.PageCount(count, page.Limit)
	current := int64(page.Offset/page.Limit + 1)
	if current > pages {
		return fmt.Errorf("page out of range, max page is %d", pages)
	}

	accounts, err := a.ledger.Leaderboard(ctx, a.community, page)
	if err != nil {
		return err
	}
	total, err := a.ledger.TotalSilver(ctx, a.community)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, render.Leaderboard(accounts, page.Offset, current, pages, total))
	return nil
}

func (a *app) guildBalance(ctx context.Context, args []string) error {
	if err := wantArgs(args, 1, 1, "guild-balance <on-hand>"); err != nil {
		return err
	}
	onHand, err := parseAmount(args[0])
	if err != nil {
		return err
	}
	gb, err := a.ledger.GuildBalance(ctx, a.community, onHand)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidAmount) {
			return errors.New("amount must be 0 or positive")
		}
		return err
	}
	fmt.Fprintln(a.out, render.GuildBalance(gb))
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	if err := wantArgs(args, 0, 1, "export [dir]"); err != nil {
		return err
	}
	dir := a.cfg.ExportDir
	if len(args) == 1 {
		dir = args[0]
	}
	path, err := export.NewExporter(a.store, dir, export.WithLogger(a.logger)).Export(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported to %s\n", path)
	return nil
}
