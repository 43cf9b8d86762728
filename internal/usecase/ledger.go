package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// RunLedger opens and closes digest run records.
type RunLedger struct {
	repo ports.RunRepository
	now  func() time.Time
}

// NewRunLedger wires the run repository.
func NewRunLedger(repo ports.RunRepository) *RunLedger {
	return &RunLedger{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Open records the start of a run with zero counts.
func (l *RunLedger) Open(ctx context.Context) (*LedgerEntry, error) {
	run, err := l.repo.CreateDigestRun(ctx, l.now())
	if err != nil {
		return nil, domain.E(domain.KindFatal, "open digest run", err)
	}
	return &LedgerEntry{ledger: l, run: run}, nil
}

// LedgerEntry is one open run. It can be closed exactly once.
type LedgerEntry struct {
	ledger *RunLedger

	mu     sync.Mutex
	run    domain.DigestRun
	closed bool
}

// ID is the run's sequence number.
func (e *LedgerEntry) ID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.run.ID
}

// Run returns a snapshot of the record.
func (e *LedgerEntry) Run() domain.DigestRun {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.run
}

// Close writes the terminal state. Later calls return domain.ErrRunClosed.
// If the write fails the entry stays open so the caller can record a failure instead.
func (e *LedgerEntry) Close(ctx context.Context, outcome domain.RunOutcome) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return domain.ErrRunClosed
	}
	if outcome.CompletedAt.IsZero() {
		outcome.CompletedAt = e.ledger.now()
	}
	if err := e.ledger.repo.CompleteDigestRun(ctx, e.run.ID, outcome); err != nil {
		return domain.E(domain.KindFatal, "close digest run", fmt.Errorf("run %d: %w", e.run.ID, err))
	}

	e.closed = true
	completed := outcome.CompletedAt
	e.run.CompletedAt = &completed
	e.run.Success = outcome.Success
	e.run.ArticlesProcessed = outcome.ArticlesProcessed
	e.run.SourcesFailed = outcome.SourcesFailed
	e.run.SummariesFailed = outcome.SummariesFailed
	e.run.OverallSummary = outcome.OverallSummary
	e.run.ErrorMessage = outcome.ErrorMessage
	e.run.EmailSent = outcome.EmailSent
	return nil
}
