package export

import (
	"context"
	"encoding/csv"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/silverledger/internal/ledger"
	"github.com/mmynk/silverledger/internal/metrics"
	"github.com/mmynk/silverledger/internal/storage/sqlite"
)

var quiet = slog.New(slog.DiscardHandler)

type fakeSource struct {
	tables map[string][][]any
	order  []string
	err    error
}

func (f *fakeSource) Tables() []string { return f.order }

func (f *fakeSource) DumpTable(ctx context.Context, table string, fn func([]string, []any) error) error {
	if f.err != nil {
		return f.err
	}
	for _, row := range f.tables[table] {
		if err := fn([]string{"id", "note"}, row); err != nil {
			return err
		}
	}
	return nil
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{
		order: []string{"a", "b"},
		tables: map[string][][]any{
			"a": {{int64(1), "plain"}, {int64(2), []byte("with, comma")}},
			"b": {{int64(3), nil}},
		},
	}
	at := time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)
	e := NewExporter(src, dir, WithLogger(quiet), WithClock(func() time.Time { return at }))

	path, err := e.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20240309T140506Z"), path)

	assert.Equal(t, [][]string{
		{"id", "note"},
		{"1", "plain"},
		{"2", "with, comma"},
	}, readCSV(t, filepath.Join(path, "a.csv")))
	assert.Equal(t, [][]string{{"id", "note"}, {"3", ""}}, readCSV(t, filepath.Join(path, "b.csv")))

	_, err = os.Stat(path + ".partial")
	assert.True(t, os.IsNotExist(err))
}

func TestExportFailureLeavesNoSnapshot(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{order: []string{"a"}, err: errors.New("storage: dump a: closed")}
	e := NewExporter(src, dir, WithLogger(quiet))

	_, err := e.Export(context.Background())
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExportLedgerTables(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer store.Close()

	l := ledger.New(store, ledger.WithLogger(quiet))
	require.NoError(t, l.CreditBalance(ctx, 1, 9, 2, 1500))
	require.NoError(t, l.TransferBalance(ctx, 1, 2, 3, 500))

	path, err := NewExporter(store, t.TempDir(), WithLogger(quiet)).Export(ctx)
	require.NoError(t, err)

	for _, table := range store.Tables() {
		_, err := os.Stat(filepath.Join(path, table+".csv"))
		assert.NoError(t, err, table)
	}

	rows := readCSV(t, filepath.Join(path, "accounts.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"community_id", "user_id", "wallet"}, rows[0])
	assert.ElementsMatch(t, [][]string{{"1", "2", "1000"}, {"1", "3", "500"}}, rows[1:])
}

func TestScheduler(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{order: []string{"a"}, tables: map[string][][]any{"a": {{int64(1), "x"}}}}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	s, err := NewScheduler(NewExporter(src, dir, WithLogger(quiet)), "@every 1s", m, quiet)
	require.NoError(t, err)
	s.Start()

	require.Eventually(t, func() bool {
		entries, _ := os.ReadDir(dir)
		return len(entries) > 0
	}, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewScheduler(NewExporter(&fakeSource{}, t.TempDir()), "every tuesday", nil, quiet)
	require.Error(t, err)
}
