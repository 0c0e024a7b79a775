package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mmynk/silverledger/internal/models"
	"github.com/mmynk/silverledger/internal/storage"
)

// maxBalance is math.MaxInt64, inlined into guarded upserts.
const maxBalance = "9223372036854775807"

// Ensure sqlTx implements storage.Tx
var _ storage.Tx = (*sqlTx)(nil)

// sqlTx is the storage.Tx handed to RunInTx closures.
type sqlTx struct {
	tx      *sqlx.Tx
	dialect Dialect
}

func (t *sqlTx) EnsureAccount(ctx context.Context, communityID, userID int64) error {
	if _, err := t.tx.ExecContext(ctx, t.tx.Rebind(ensureAccountSQL), communityID, userID); err != nil {
		return storage.Fault("ensure account", fmt.Errorf("failed to ensure account: %w", err))
	}
	return nil
}

func (t *sqlTx) Wallet(ctx context.Context, communityID, userID int64) (int64, error) {
	var wallet int64
	err := t.tx.GetContext(ctx, &wallet,
		t.tx.Rebind("SELECT wallet FROM accounts WHERE community_id = ? AND user_id = ?"+t.dialect.LockSuffix),
		communityID, userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storage.Fault("read wallet", fmt.Errorf("failed to read wallet: %w", err))
	}
	return wallet, nil
}

// Credit refuses to push a wallet past maxBalance. SQLite would otherwise
// store the overflowed sum as a REAL.
func (t *sqlTx) Credit(ctx context.Context, communityID, userID, amount int64) error {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(`
		INSERT INTO accounts (community_id, user_id, wallet)
		VALUES (?, ?, ?)
		ON CONFLICT (community_id, user_id)
		DO UPDATE SET wallet = accounts.wallet + excluded.wallet
		WHERE accounts.wallet <= `+maxBalance+` - excluded.wallet`),
		communityID, userID, amount,
	)
	return checkWrite("credit", models.ErrBalanceOverflow, res, err)
}

// Debit is a single conditional update, so a concurrent debit can never
// observe the same balance and overdraw it.
func (t *sqlTx) Debit(ctx context.Context, communityID, userID, amount int64) error {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(`
		UPDATE accounts SET wallet = wallet - ?
		WHERE community_id = ? AND user_id = ? AND wallet >= ?`),
		amount, communityID, userID, amount,
	)
	return checkWrite("debit", models.ErrInsufficientFunds, res, err)
}

func (t *sqlTx) Treasury(ctx context.Context, communityID int64) (int64, error) {
	var balance int64
	err := t.tx.GetContext(ctx, &balance,
		t.tx.Rebind("SELECT balance FROM treasury WHERE community_id = ?"+t.dialect.LockSuffix),
		communityID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storage.Fault("read treasury", fmt.Errorf("failed to read treasury: %w", err))
	}
	return balance, nil
}

func (t *sqlTx) AddTreasury(ctx context.Context, communityID, amount int64) error {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(`
		INSERT INTO treasury (community_id, balance)
		VALUES (?, ?)
		ON CONFLICT (community_id)
		DO UPDATE SET balance = treasury.balance + excluded.balance
		WHERE treasury.balance <= `+maxBalance+` - excluded.balance`),
		communityID, amount,
	)
	return checkWrite("add treasury", models.ErrBalanceOverflow, res, err)
}

func (t *sqlTx) DeductTreasury(ctx context.Context, communityID, amount int64) error {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(`
		UPDATE treasury SET balance = balance - ?
		WHERE community_id = ? AND balance >= ?`),
		amount, communityID, amount,
	)
	return checkWrite("deduct treasury", models.ErrInsufficientFunds, res, err)
}

func (t *sqlTx) RecordTransfer(ctx context.Context, rec *models.TransferRecord) error {
	err := t.tx.QueryRowxContext(ctx, t.tx.Rebind(`
		INSERT INTO transfer_logs (community_id, sender_id, receiver_id, amount, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`),
		rec.CommunityID, rec.SenderID, rec.ReceiverID, rec.Amount, rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return storage.Fault("record transfer", fmt.Errorf("failed to insert transfer log: %w", err))
	}
	return nil
}

func (t *sqlTx) RecordTreasuryAction(ctx context.Context, rec *models.TreasuryActionRecord) error {
	var recipient sql.NullInt64
	if rec.RecipientID != nil {
		recipient = sql.NullInt64{Int64: *rec.RecipientID, Valid: true}
	}

	err := t.tx.QueryRowxContext(ctx, t.tx.Rebind(`
		INSERT INTO treasury_logs (community_id, initiator_id, action, amount, recipient_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`),
		rec.CommunityID, rec.InitiatorID, string(rec.Action), rec.Amount, recipient, rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return storage.Fault("record treasury action", fmt.Errorf("failed to insert treasury log: %w", err))
	}
	return nil
}

func (t *sqlTx) RecordLootSplit(ctx context.Context, rec *models.LootSplitRecord) error {
	err := t.tx.QueryRowxContext(ctx, t.tx.Rebind(`
		INSERT INTO lootsplit_logs (
			community_id, initiator_id, name, total, flat_fee, tax_percent,
			tax_amount, remaining, share, recipient_count, recipient_ids, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		rec.CommunityID, rec.InitiatorID, rec.Name, rec.Total, rec.FlatFee, rec.TaxPercent,
		rec.TaxAmount, rec.Remaining, rec.Share, rec.RecipientCount, models.JoinIDs(rec.RecipientIDs), rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return storage.Fault("record loot split", fmt.Errorf("failed to insert loot split log: %w", err))
	}

	insertRecipient := t.tx.Rebind(`
		INSERT INTO lootsplit_recipients (lootsplit_id, position, user_id)
		VALUES (?, ?, ?)
		ON CONFLICT (lootsplit_id, user_id) DO NOTHING`)
	for i, userID := range rec.RecipientIDs {
		if _, err := t.tx.ExecContext(ctx, insertRecipient, rec.ID, i, userID); err != nil {
			return storage.Fault("record loot split", fmt.Errorf("failed to insert loot split recipient: %w", err))
		}
	}
	return nil
}

func (t *sqlTx) RecordAdjustment(ctx context.Context, rec *models.AdjustmentRecord) error {
	err := t.tx.QueryRowxContext(ctx, t.tx.Rebind(`
		INSERT INTO adjustment_logs (community_id, initiator_id, user_id, action, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`),
		rec.CommunityID, rec.InitiatorID, rec.UserID, string(rec.Action), rec.Amount, rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return storage.Fault("record adjustment", fmt.Errorf("failed to insert adjustment log: %w", err))
	}
	return nil
}

// checkWrite turns a conditional write that touched no row into rejected.
// For debits a missing row and a short balance look the same.
func checkWrite(op string, rejected error, res sql.Result, err error) error {
	if err != nil {
		return storage.Fault(op, fmt.Errorf("failed to %s: %w", op, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.Fault(op, fmt.Errorf("failed to read affected rows: %w", err))
	}
	if n == 0 {
		return rejected
	}
	return nil
}
