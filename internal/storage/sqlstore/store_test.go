package sqlstore

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/silverledger/internal/models"
	"github.com/mmynk/silverledger/internal/storage"
)

func newMockStore(t *testing.T, driver string, dialect Dialect) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, driver), dialect), mock
}

func TestRunInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		store, mock := newMockStore(t, "sqlmock", SQLite)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO accounts")).
			WithArgs(int64(1), int64(2), int64(50)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			return tx.Credit(ctx, 1, 2, 50)
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("short debit rolls back with insufficient funds", func(t *testing.T) {
		store, mock := newMockStore(t, "sqlmock", SQLite)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET wallet = wallet - ?")).
			WithArgs(int64(100), int64(1), int64(2), int64(100)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			if err := tx.Debit(ctx, 1, 2, 100); err != nil {
				return err
			}
			return tx.Credit(ctx, 1, 3, 100)
		})
		require.ErrorIs(t, err, models.ErrInsufficientFunds)
		assert.False(t, storage.IsFault(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver failure is a fault", func(t *testing.T) {
		store, mock := newMockStore(t, "sqlmock", SQLite)
		driverErr := errors.New("disk I/O error")
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE treasury SET balance = balance - ?")).
			WillReturnError(driverErr)
		mock.ExpectRollback()

		err := store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			return tx.DeductTreasury(ctx, 1, 10)
		})
		require.Error(t, err)
		assert.True(t, storage.IsFault(err))
		assert.ErrorIs(t, err, driverErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure is a fault", func(t *testing.T) {
		store, mock := newMockStore(t, "sqlmock", SQLite)
		mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

		called := false
		err := store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			called = true
			return nil
		})
		require.Error(t, err)
		assert.True(t, storage.IsFault(err))
		assert.False(t, called)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("commit failure is a fault", func(t *testing.T) {
		store, mock := newMockStore(t, "sqlmock", SQLite)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

		err := store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error { return nil })
		require.Error(t, err)
		var fe *storage.FaultError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "commit", fe.Op)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cancelled context never begins", func(t *testing.T) {
		store, mock := newMockStore(t, "sqlmock", SQLite)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		err := store.RunInTx(cctx, func(ctx context.Context, tx storage.Tx) error { return nil })
		require.Error(t, err)
		assert.True(t, storage.IsFault(err))
		assert.ErrorIs(t, err, context.Canceled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cancel after begin runs to commit", func(t *testing.T) {
		store, mock := newMockStore(t, "sqlmock", SQLite)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO accounts")).
			WithArgs(int64(1), int64(2), int64(50)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		cctx, cancel := context.WithCancel(ctx)
		err := store.RunInTx(cctx, func(ctx context.Context, tx storage.Tx) error {
			cancel()
			return tx.Credit(ctx, 1, 2, 50)
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("credit that would overflow is rejected", func(t *testing.T) {
		store, mock := newMockStore(t, "sqlmock", SQLite)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("WHERE accounts.wallet <= 9223372036854775807 - excluded.wallet")).
			WithArgs(int64(1), int64(2), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			return tx.Credit(ctx, 1, 2, 1)
		})
		require.ErrorIs(t, err, models.ErrBalanceOverflow)
		assert.False(t, storage.IsFault(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresLockedReads(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockStore(t, "postgres", Postgres)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT wallet FROM accounts WHERE community_id = $1 AND user_id = $2 FOR UPDATE")).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"wallet"}).AddRow(int64(75)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT balance FROM treasury WHERE community_id = $1 FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}))
	mock.ExpectCommit()

	var wallet, treasury int64
	err := store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		if wallet, err = tx.Wallet(ctx, 1, 2); err != nil {
			return err
		}
		treasury, err = tx.Treasury(ctx, 1)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(75), wallet)
	assert.Equal(t, int64(0), treasury)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBalanceMissingWallet(t *testing.T) {
	store, mock := newMockStore(t, "sqlmock", SQLite)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT wallet FROM accounts")).
		WithArgs(int64(9), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"wallet"}))

	balance, err := store.GetBalance(context.Background(), 9, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLootSplitHistoryRecipientFallback(t *testing.T) {
	store, mock := newMockStore(t, "sqlmock", SQLite)

	columns := []string{
		"id", "community_id", "initiator_id", "name", "total", "flat_fee", "tax_percent",
		"tax_amount", "remaining", "share", "recipient_count", "recipient_ids", "created_at",
	}
	mock.ExpectQuery(regexp.QuoteMeta("FROM lootsplit_logs")).
		WithArgs(int64(1), 5, 0).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(2), int64(1), int64(7), "castle", int64(1000), int64(100), int64(10), int64(90), int64(810), int64(270), int64(3), "10,11,12", int64(200)).
			AddRow(int64(1), int64(1), int64(7), "", int64(300), int64(0), int64(0), int64(0), int64(300), int64(150), int64(2), "20, 21", int64(100)))
	mock.ExpectQuery(regexp.QuoteMeta("FROM lootsplit_recipients")).
		WithArgs(int64(2), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"lootsplit_id", "user_id"}).
			AddRow(int64(2), int64(12)).
			AddRow(int64(2), int64(10)).
			AddRow(int64(2), int64(11)))

	records, err := store.LootSplitHistory(context.Background(), 1, storage.Page{Limit: 5})
	require.NoError(t, err)
	require.Len(t, records, 2)

	// membership rows win over the stored string
	assert.Equal(t, []int64{12, 10, 11}, records[0].RecipientIDs)
	assert.Equal(t, "castle", records[0].Name)
	assert.Equal(t, []int64{20, 21}, records[1].RecipientIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTreasuryHistoryUnbounded(t *testing.T) {
	store, mock := newMockStore(t, "sqlmock", SQLite)

	mock.ExpectQuery(`FROM treasury_logs\s+WHERE community_id = \?\s+ORDER BY id DESC$`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "community_id", "initiator_id", "action", "amount", "recipient_id", "created_at"}).
			AddRow(int64(2), int64(1), int64(5), "transfer", int64(40), int64(6), int64(20)).
			AddRow(int64(1), int64(1), int64(5), "add", int64(100), nil, int64(10)))

	records, err := store.TreasuryHistory(context.Background(), 1, storage.Page{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.NotNil(t, records[0].RecipientID)
	assert.Equal(t, int64(6), *records[0].RecipientID)
	assert.Equal(t, models.TreasuryTransfer, records[0].Action)
	assert.Nil(t, records[1].RecipientID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDumpTable(t *testing.T) {
	store, mock := newMockStore(t, "sqlmock", SQLite)

	t.Run("unknown table", func(t *testing.T) {
		err := store.DumpTable(context.Background(), "sqlite_master", func([]string, []any) error { return nil })
		require.Error(t, err)
		assert.False(t, storage.IsFault(err))
	})

	t.Run("streams rows", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM treasury ORDER BY 1")).
			WillReturnRows(sqlmock.NewRows([]string{"community_id", "balance"}).
				AddRow(int64(1), int64(500)).
				AddRow(int64(2), int64(0)))

		var got [][]any
		err := store.DumpTable(context.Background(), "treasury", func(columns []string, values []any) error {
			assert.Equal(t, []string{"community_id", "balance"}, columns)
			got = append(got, values)
			return nil
		})
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
