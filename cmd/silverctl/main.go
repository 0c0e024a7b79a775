// Command silverctl administers a silver ledger from the shell.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/mmynk/silverledger/internal/config"
	"github.com/mmynk/silverledger/internal/confirm"
	"github.com/mmynk/silverledger/internal/ledger"
	"github.com/mmynk/silverledger/internal/storage/backend"
	"github.com/mmynk/silverledger/internal/storage/sqlstore"
	"github.com/mmynk/silverledger/pkg/logging"
)

const usage = `Usage: silverctl [flags] <command> [args]

Commands:
  balance [user]                   show a wallet (defaults to -as)
  give <user> <amount>             add silver to a wallet
  take <user> <amount>             remove silver from a wallet
  transfer <user> <amount>         send silver from -as to user
  treasury                         show the treasury
  treasury-add <amount>            add silver to the treasury
  treasury-take <amount> [user]    remove treasury silver, optionally paying user
  lootsplit [flags] <users>        split a pot among users
  history <kind> [flags]           kind: transfers, treasury, lootsplits, adjustments
  leaderboard [page]               richest members, 10 per page
  guild-balance <on-hand>          reconcile silver on hand
  export [dir]                     write a CSV snapshot of every table

Flags:
`

// app carries what every command needs.
type app struct {
	ledger    *ledger.Ledger
	confirm   *confirm.Manager
	store     *sqlstore.Store
	cfg       config.Config
	logger    *slog.Logger
	community int64
	actor     int64
	in        io.Reader
	out       io.Writer
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	fs := flag.NewFlagSet("silverctl", flag.ContinueOnError)
	fs.SetOutput(errOut)
	envFile := fs.String("env", ".env", "optional dotenv file")
	community := fs.Int64("community", 0, "community id (required)")
	actor := fs.Int64("as", 0, "user id performing the command (required)")
	fs.Usage = func() {
		fmt.Fprint(errOut, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}
	if *community <= 0 || *actor <= 0 {
		return errors.New("-community and -as are required")
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	logger := logging.New(errOut, cfg.Level())

	store, err := backend.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	l := ledger.New(store, ledger.WithLogger(logger))
	a := &app{
		ledger:    l,
		confirm:   confirm.NewManager(l, cfg.ConfirmTTL, confirm.WithLogger(logger)),
		store:     store,
		cfg:       cfg,
		logger:    logger,
		community: *community,
		actor:     *actor,
		in:        in,
		out:       out,
	}

	err = a.dispatch(ctx, fs.Arg(0), fs.Args()[1:])
	if ledger.IsStorageFault(err) {
		logger.Error("Storage failure", "command", fs.Arg(0), "error", err)
	}
	return describe(err)
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "balance":
		return a.balance(ctx, args)
	case "give":
		return a.give(ctx, args)
	case "take":
		return a.take(ctx, args)
	case "transfer":
		return a.transfer(ctx, args)
	case "treasury":
		return a.treasury(ctx)
	case "treasury-add":
		return a.treasuryAdd(ctx, args)
	case "treasury-take":
		return a.treasuryTake(ctx, args)
	case "lootsplit":
		return a.lootsplit(ctx, args)
	case "history":
		return a.history(ctx, args)
	case "leaderboard":
		return a.leaderboard(ctx, args)
	case "guild-balance":
		return a.guildBalance(ctx, args)
	case "export":
		return a.export(ctx, args)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// describe turns ledger rejections into the messages users see.
func describe(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return errors.New("not enough silver")
	case errors.Is(err, ledger.ErrInvalidAmount):
		return errors.New("amount must be positive")
	case errors.Is(err, ledger.ErrInvalidTaxPercent):
		return errors.New("tax must be 0-100")
	case errors.Is(err, ledger.ErrFeeExceedsTotal):
		return errors.New("flat fee leaves nothing to split")
	case errors.Is(err, ledger.ErrSplitTooSmall):
		return errors.New("not enough silver to split")
	case errors.Is(err, ledger.ErrNoRecipients):
		return errors.New("provide mentions or user ids, e.g. <@123> <@456> or 123,456")
	case errors.Is(err, ledger.ErrBalanceOverflow):
		return errors.New("that would push a balance past the maximum")
	case ledger.IsStorageFault(err):
		return errors.New("storage unavailable, nothing was changed")
	default:
		return err
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", s)
	}
	return id, nil
}

func parseAmount(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return n, nil
}

func wantArgs(args []string, lo, hi int, form string) error {
	if len(args) < lo || len(args) > hi {
		return fmt.Errorf("usage: silverctl %s", form)
	}
	return nil
}
