package sqlstore

import (
	"context"
	"fmt"
	"slices"

	"github.com/mmynk/silverledger/internal/storage"
)

var ledgerTables = []string{
	"accounts",
	"treasury",
	"transfer_logs",
	"treasury_logs",
	"lootsplit_logs",
	"lootsplit_recipients",
	"adjustment_logs",
}

// Tables lists every ledger table in export order.
func (s *Store) Tables() []string {
	return slices.Clone(ledgerTables)
}

// DumpTable streams every row of a ledger table. The column list is read
// from the result set, so schema changes need no code change here. fn is
// called with the same columns slice for every row.
func (s *Store) DumpTable(ctx context.Context, table string, fn func(columns []string, values []any) error) error {
	if !slices.Contains(ledgerTables, table) {
		return fmt.Errorf("unknown table %q", table)
	}

	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM "+table+" ORDER BY 1")
	if err != nil {
		return storage.Fault("dump "+table, fmt.Errorf("failed to query table: %w", err))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return storage.Fault("dump "+table, fmt.Errorf("failed to read columns: %w", err))
	}

	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return storage.Fault("dump "+table, fmt.Errorf("failed to scan row: %w", err))
		}
		if err := fn(columns, values); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return storage.Fault("dump "+table, fmt.Errorf("failed to iterate rows: %w", err))
	}
	return nil
}
