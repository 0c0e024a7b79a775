// Package export writes CSV snapshots of the ledger tables for backup.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Source is read-only access to the ledger tables.
type Source interface {
	Tables() []string
	DumpTable(ctx context.Context, table string, fn func(columns []string, values []any) error) error
}

// Exporter writes one directory of CSV files per run.
type Exporter struct {
	src    Source
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		e.logger = logger
	}
}

// WithClock overrides the time source used to name snapshots.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		e.now = now
	}
}

// NewExporter creates an Exporter writing under dir.
func NewExporter(src Source, dir string, opts ...Option) *Exporter {
	e := &Exporter{
		src:    src,
		dir:    dir,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes every table to <dir>/<UTC timestamp>/<table>.csv and returns
// the snapshot directory. A snapshot only appears once it is complete.
func (e *Exporter) Export(ctx context.Context) (string, error) {
	name := e.now().UTC().Format("20060102T150405Z")
	final := filepath.Join(e.dir, name)
	partial := final + ".partial"

	if err := os.MkdirAll(partial, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	for _, table := range e.src.Tables() {
		if err := e.exportTable(ctx, partial, table); err != nil {
			os.RemoveAll(partial)
			return "", err
		}
	}

	if err := os.Rename(partial, final); err != nil {
		os.RemoveAll(partial)
		return "", fmt.Errorf("failed to finalize export: %w", err)
	}

	e.logger.Info("Ledger exported", "path", final)
	return final, nil
}

func (e *Exporter) exportTable(ctx context.Context, dir, table string) error {
	f, err := os.Create(filepath.Join(dir, table+".csv"))
	if err != nil {
		return fmt.Errorf("failed to create %s export: %w", table, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	headerWritten := false
	record := []string{}

	err = e.src.DumpTable(ctx, table, func(columns []string, values []any) error {
		if !headerWritten {
			if err := w.Write(columns); err != nil {
				return err
			}
			headerWritten = true
		}
		record = record[:0]
		for _, v := range values {
			record = append(record, formatValue(v))
		}
		return w.Write(record)
	})
	if err != nil {
		return fmt.Errorf("failed to export %s: %w", table, err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s export: %w", table, err)
	}
	return f.Close()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
