// Package ledger is the entry point for moving silver. Every mutating
// operation runs as one storage transaction: balances are read, validated
// and written together, and exactly one audit record is appended on success.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmynk/silverledger/internal/metrics"
	"github.com/mmynk/silverledger/internal/storage"
)

// Operation names used in logs and metrics.
const (
	OpTransfer         = "transfer"
	OpDeduct           = "deduct"
	OpCredit           = "credit"
	OpTreasuryAdd      = "treasury_add"
	OpTreasuryTake     = "treasury_take"
	OpTreasuryTransfer = "treasury_transfer"
	OpLootSplit        = "lootsplit"
)

// Ledger applies balance mutations against a Store.
type Ledger struct {
	store   storage.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New creates a Ledger over store.
func New(store storage.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithMetrics records operation counts and latencies.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) {
		l.metrics = m
	}
}

// WithClock overrides the time source used for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// mutate runs fn in one transaction and reports the outcome.
// fn must use the context it is given, which outlives cancellation of ctx.
func (l *Ledger) mutate(ctx context.Context, op string, communityID, amount int64, fn func(ctx context.Context, tx storage.Tx, now int64) error) error {
	start := time.Now()
	now := l.now().Unix()
	err := l.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return fn(ctx, tx, now)
	})
	l.observe(op, communityID, amount, start, err)
	return err
}

// reject reports an operation refused before any transaction began.
func (l *Ledger) reject(op string, communityID, amount int64, err error) error {
	l.observe(op, communityID, amount, time.Now(), err)
	return err
}

func (l *Ledger) observe(op string, communityID, amount int64, start time.Time, err error) {
	elapsed := time.Since(start)
	attrs := []any{"op", op, "community", communityID, "amount", amount}

	switch {
	case err == nil:
		l.metrics.ObserveOperation(op, metrics.ResultOK, amount, elapsed)
		l.logger.Info("Ledger operation applied", append(attrs, "duration_ms", elapsed.Milliseconds())...)
	case IsStorageFault(err):
		l.metrics.ObserveOperation(op, metrics.ResultFault, amount, elapsed)
		l.logger.Error("Ledger operation failed", append(attrs, "error", err)...)
	default:
		l.metrics.ObserveOperation(op, metrics.ResultRejected, amount, elapsed)
		l.logger.Warn("Ledger operation rejected", append(attrs, "reason", err)...)
	}
}
