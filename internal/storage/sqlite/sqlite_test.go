package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mmynk/silverledger/internal/models"
	"github.com/mmynk/silverledger/internal/storage"
	"github.com/mmynk/silverledger/internal/storage/sqlstore"
)

func newTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("EnsureAccount is idempotent", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			if err := store.EnsureAccount(ctx, 1, 100); err != nil {
				t.Fatalf("EnsureAccount failed: %v", err)
			}
		}

		var n int
		if err := store.DB().Get(&n, "SELECT COUNT(*) FROM accounts WHERE community_id = 1 AND user_id = 100"); err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if n != 1 {
			t.Errorf("Expected 1 account row, got %d", n)
		}

		balance, err := store.GetBalance(ctx, 1, 100)
		if err != nil {
			t.Fatalf("GetBalance failed: %v", err)
		}
		if balance != 0 {
			t.Errorf("Expected zero balance, got %d", balance)
		}
	})

	t.Run("GetBalance does not create wallets", func(t *testing.T) {
		balance, err := store.GetBalance(ctx, 1, 999)
		if err != nil {
			t.Fatalf("GetBalance failed: %v", err)
		}
		if balance != 0 {
			t.Errorf("Expected 0, got %d", balance)
		}

		var n int
		if err := store.DB().Get(&n, "SELECT COUNT(*) FROM accounts WHERE user_id = 999"); err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if n != 0 {
			t.Errorf("GetBalance created %d rows", n)
		}
	})

	t.Run("Credit and Debit commit together", func(t *testing.T) {
		err := store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			if err := tx.Credit(ctx, 2, 1, 500); err != nil {
				return err
			}
			if err := tx.Debit(ctx, 2, 1, 200); err != nil {
				return err
			}
			return tx.Credit(ctx, 2, 2, 200)
		})
		if err != nil {
			t.Fatalf("RunInTx failed: %v", err)
		}

		a, _ := store.GetBalance(ctx, 2, 1)
		b, _ := store.GetBalance(ctx, 2, 2)
		if a != 300 || b != 200 {
			t.Errorf("Expected 300/200, got %d/%d", a, b)
		}
	})

	t.Run("Failed debit rolls back earlier writes", func(t *testing.T) {
		err := store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			if err := tx.Credit(ctx, 2, 2, 1000); err != nil {
				return err
			}
			return tx.Debit(ctx, 2, 1, 301)
		})
		if !errors.Is(err, models.ErrInsufficientFunds) {
			t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
		}

		b, _ := store.GetBalance(ctx, 2, 2)
		if b != 200 {
			t.Errorf("Credit leaked out of rolled back transaction: %d", b)
		}
	})

	t.Run("Debit of a missing wallet is insufficient", func(t *testing.T) {
		err := store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			return tx.Debit(ctx, 3, 42, 1)
		})
		if !errors.Is(err, models.ErrInsufficientFunds) {
			t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
		}
	})

	t.Run("Treasury upsert and checked deduct", func(t *testing.T) {
		err := store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			if err := tx.AddTreasury(ctx, 4, 70); err != nil {
				return err
			}
			return tx.AddTreasury(ctx, 4, 30)
		})
		if err != nil {
			t.Fatalf("AddTreasury failed: %v", err)
		}

		err = store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			return tx.DeductTreasury(ctx, 4, 101)
		})
		if !errors.Is(err, models.ErrInsufficientFunds) {
			t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
		}

		balance, err := store.GetTreasury(ctx, 4)
		if err != nil {
			t.Fatalf("GetTreasury failed: %v", err)
		}
		if balance != 100 {
			t.Errorf("Expected treasury 100, got %d", balance)
		}
	})

	t.Run("Schema rejects negative wallets", func(t *testing.T) {
		_, err := store.DB().Exec("UPDATE accounts SET wallet = -1 WHERE community_id = 2 AND user_id = 1")
		if err == nil {
			t.Error("Expected CHECK constraint violation")
		}
	})
}

func TestHistoryPagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := int64(1); i <= 15; i++ {
		err := store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			return tx.RecordTransfer(ctx, &models.TransferRecord{
				CommunityID: 1,
				SenderID:    10,
				ReceiverID:  20,
				Amount:      i,
				CreatedAt:   1000 + i,
			})
		})
		if err != nil {
			t.Fatalf("RecordTransfer failed: %v", err)
		}
	}

	// other communities never leak in
	err := store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.RecordTransfer(ctx, &models.TransferRecord{CommunityID: 2, SenderID: 1, ReceiverID: 2, Amount: 99, CreatedAt: 1})
	})
	if err != nil {
		t.Fatalf("RecordTransfer failed: %v", err)
	}

	page, err := store.TransferHistory(ctx, 1, storage.Page{Limit: 5, Offset: 10})
	if err != nil {
		t.Fatalf("TransferHistory failed: %v", err)
	}
	if len(page) != 5 {
		t.Fatalf("Expected 5 records, got %d", len(page))
	}
	// newest first: offset 10 skips amounts 15..6
	for i, rec := range page {
		want := int64(5 - i)
		if rec.Amount != want {
			t.Errorf("record %d: got amount %d, want %d", i, rec.Amount, want)
		}
	}

	all, err := store.TransferHistory(ctx, 1, storage.Page{})
	if err != nil {
		t.Fatalf("TransferHistory failed: %v", err)
	}
	if len(all) != 15 {
		t.Errorf("Expected 15 records, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].ID >= all[i-1].ID {
			t.Errorf("history not newest first at %d", i)
		}
	}
}

func TestLootSplitRecipients(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &models.LootSplitRecord{
		CommunityID:    1,
		InitiatorID:    7,
		Name:           "castle",
		Total:          1000,
		FlatFee:        100,
		TaxPercent:     10,
		TaxAmount:      90,
		Remaining:      810,
		Share:          270,
		RecipientCount: 3,
		RecipientIDs:   []int64{30, 10, 20},
		CreatedAt:      5,
	}
	err := store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.RecordLootSplit(ctx, rec)
	})
	if err != nil {
		t.Fatalf("RecordLootSplit failed: %v", err)
	}
	if rec.ID == 0 {
		t.Error("Expected split ID to be assigned")
	}

	// a legacy row with no membership rows
	if _, err := store.DB().Exec(`
		INSERT INTO lootsplit_logs (community_id, initiator_id, name, total, flat_fee, tax_percent,
			tax_amount, remaining, share, recipient_count, recipient_ids, created_at)
		VALUES (1, 7, '', 100, 0, 0, 0, 100, 50, 2, '5,6', 6)`); err != nil {
		t.Fatalf("insert legacy split failed: %v", err)
	}

	history, err := store.LootSplitHistory(ctx, 1, storage.Page{Limit: 10})
	if err != nil {
		t.Fatalf("LootSplitHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 splits, got %d", len(history))
	}

	legacy, split := history[0], history[1]
	if got := legacy.RecipientIDs; len(got) != 2 || got[0] != 5 || got[1] != 6 {
		t.Errorf("legacy recipients = %v, want [5 6]", got)
	}
	if got := split.RecipientIDs; len(got) != 3 || got[0] != 30 || got[1] != 10 || got[2] != 20 {
		t.Errorf("recipients = %v, want [30 10 20] in payout order", got)
	}
	if split.Name != "castle" || split.Share != 270 {
		t.Errorf("unexpected split %+v", split)
	}
}

func TestDumpTables(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.EnsureAccount(ctx, 1, 2); err != nil {
		t.Fatalf("EnsureAccount failed: %v", err)
	}

	for _, table := range store.Tables() {
		rows := 0
		err := store.DumpTable(ctx, table, func(columns []string, values []any) error {
			if len(columns) != len(values) {
				t.Errorf("%s: %d columns but %d values", table, len(columns), len(values))
			}
			rows++
			return nil
		})
		if err != nil {
			t.Errorf("DumpTable(%s) failed: %v", table, err)
		}
		if table == "accounts" && rows != 1 {
			t.Errorf("Expected 1 account row, got %d", rows)
		}
	}
}
