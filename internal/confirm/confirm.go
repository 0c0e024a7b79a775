// Package confirm holds loot splits that wait for their initiator's
// approval. A session is applied at most once no matter how many times it is
// confirmed.
package confirm

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/silverledger/internal/calculator"
	"github.com/mmynk/silverledger/internal/ledger"
	"github.com/mmynk/silverledger/internal/models"
)

var (
	ErrSessionNotFound = errors.New("confirm: session not found")
	ErrNotInitiator    = errors.New("confirm: only the initiator can answer")
	ErrSessionClosed   = errors.New("confirm: session already answered")
	ErrSessionExpired  = errors.New("confirm: session expired")
)

// State is a session's position in its lifecycle.
type State string

const (
	StatePending  State = "pending"
	StateApplying State = "applying"
	StateApplied  State = "applied"
	StateCanceled State = "canceled"
	StateFailed   State = "failed"
)

// Done reports whether the session can no longer change.
func (s State) Done() bool {
	return s == StateApplied || s == StateCanceled || s == StateFailed
}

// Splitter is the part of the ledger a session needs.
type Splitter interface {
	ComputeSplit(total, flatFee, taxPercent, recipientCount int64) (calculator.Split, error)
	ApplyLootSplit(ctx context.Context, req ledger.LootSplitRequest) (*models.LootSplitRecord, error)
}

// Session is a pending loot split.
type Session struct {
	ID        uuid.UUID
	Request   ledger.LootSplitRequest
	Preview   calculator.Split
	State     State
	CreatedAt time.Time
	ExpiresAt time.Time

	// Record is set once the split is applied.
	Record *models.LootSplitRecord

	// Err is set when applying failed.
	Err error
}

// Manager tracks open sessions in memory.
type Manager struct {
	splitter Splitter
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager whose sessions expire after ttl.
func NewManager(splitter Splitter, ttl time.Duration, opts ...Option) *Manager {
	m := &Manager{
		splitter: splitter,
		ttl:      ttl,
		now:      time.Now,
		logger:   slog.Default(),
		sessions: make(map[uuid.UUID]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Begin validates req and opens a session for it. Nothing is paid until the
// initiator confirms.
func (m *Manager) Begin(req ledger.LootSplitRequest) (Session, error) {
	req.Recipients = ledger.Dedupe(req.Recipients)
	preview, err := m.splitter.ComputeSplit(req.Total, req.FlatFee, req.TaxPercent, int64(len(req.Recipients)))
	if err != nil {
		return Session{}, err
	}

	now := m.now()
	s := &Session{
		ID:        uuid.New(),
		Request:   req,
		Preview:   preview,
		State:     StatePending,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Debug("Loot split awaiting confirmation",
		"session", s.ID,
		"community", req.CommunityID,
		"initiator", req.InitiatorID,
		"total", req.Total,
	)
	return *s, nil
}

// Confirm applies the session's split. Only the initiator may confirm, and
// only once.
func (m *Manager) Confirm(ctx context.Context, id uuid.UUID, userID int64) (Session, error) {
	m.mu.Lock()
	s, err := m.claim(id, userID)
	if err != nil {
		m.mu.Unlock()
		return Session{}, err
	}
	s.State = StateApplying
	req := s.Request
	m.mu.Unlock()

	rec, applyErr := m.splitter.ApplyLootSplit(ctx, req)

	m.mu.Lock()
	defer m.mu.Unlock()
	if applyErr != nil {
		s.State = StateFailed
		s.Err = applyErr
		m.logger.Warn("Loot split confirmation failed", "session", id, "error", applyErr)
		return *s, applyErr
	}
	s.State = StateApplied
	s.Record = rec
	return *s, nil
}

// Cancel closes the session without applying it.
func (m *Manager) Cancel(id uuid.UUID, userID int64) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.claim(id, userID)
	if err != nil {
		return Session{}, err
	}
	s.State = StateCanceled
	return *s, nil
}

// Get returns a snapshot of the session.
func (m *Manager) Get(id uuid.UUID) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Sweep cancels expired pending sessions and forgets every finished one.
// It returns how many sessions were removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if s.State == StatePending && !now.Before(s.ExpiresAt) {
			s.State = StateCanceled
			m.logger.Debug("Loot split confirmation expired", "session", id)
		}
		if s.State.Done() {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// claim checks that userID may answer the pending session. Callers hold mu.
func (m *Manager) claim(id uuid.UUID, userID int64) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.Request.InitiatorID != userID {
		return nil, ErrNotInitiator
	}
	if s.State != StatePending {
		return nil, ErrSessionClosed
	}
	if !m.now().Before(s.ExpiresAt) {
		s.State = StateCanceled
		return nil, ErrSessionExpired
	}
	return s, nil
}
