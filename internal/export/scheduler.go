package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/mmynk/silverledger/internal/metrics"
)

// Scheduler runs an Exporter on a cron schedule. Runs never overlap.
type Scheduler struct {
	cron     *cron.Cron
	exporter *Exporter
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewScheduler parses spec (standard 5-field cron or descriptors such as
// "@every 6h") and prepares the job. Nothing runs until Start.
func NewScheduler(exporter *Exporter, spec string, m *metrics.Metrics, logger *slog.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		exporter: exporter,
		metrics:  m,
		logger:   logger,
	}

	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid export schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running scheduled exports in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running export to finish or for
// ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	_, err := s.exporter.Export(context.Background())
	s.metrics.ObserveExport(err)
	if err != nil {
		s.logger.Error("Scheduled export failed", "error", err)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
