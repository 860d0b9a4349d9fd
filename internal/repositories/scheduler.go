package repositories

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisong/internal/shared"
)

// DefaultFlushDelay is the quiescence window before a scheduled write runs.
const DefaultFlushDelay = 2 * time.Second

// ErrSchedulerClosed is returned by Flush after Close.
var ErrSchedulerClosed = errors.New("persistence scheduler closed")

// PersistenceScheduler writes the active document at most once per quiescence window.
//
// A single timer slot is re-armed by every Schedule call; each arm bumps a generation counter and a timer that fires
// for a stale generation does nothing. Writes are serialized and snapshot the cache inside the write lock, so a
// later write always carries state at least as new as an earlier one.
type PersistenceScheduler struct {
	cache  *TaskCache
	store  DocumentStore
	delay  time.Duration
	logger *log.Logger

	mu     sync.Mutex
	timer  *time.Timer
	gen    uint64
	closed bool

	writeMu sync.Mutex
	writes  int
}

// NewPersistenceScheduler creates a scheduler for cache. A non-positive delay uses [DefaultFlushDelay].
func NewPersistenceScheduler(cache *TaskCache, store DocumentStore, delay time.Duration, logger *log.Logger) *PersistenceScheduler {
	if delay <= 0 {
		delay = DefaultFlushDelay
	}
	return &PersistenceScheduler{cache: cache, store: store, delay: delay, logger: logger}
}

// Delay returns the quiescence window.
func (s *PersistenceScheduler) Delay() time.Duration {
	return s.delay
}

// Schedule arms the flush timer, cancelling any timer already armed.
func (s *PersistenceScheduler) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.logger.Warn("schedule after close ignored")
		return
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(s.delay, func() { s.fire(gen) })
}

// fire runs a timer's write if no newer Schedule or Flush superseded it.
func (s *PersistenceScheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.timer == nil {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	if err := s.write(context.Background()); err != nil {
		s.logger.Error("scheduled flush failed", "kind", shared.ErrorKind(err), "error", err)
	}
}

// cancel disarms the pending timer and invalidates any in-flight callback.
func (s *PersistenceScheduler) cancel() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

// Flush cancels any pending timer and writes immediately.
//
// Failures are logged and returned; they are never retried.
func (s *PersistenceScheduler) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSchedulerClosed
	}
	s.cancel()
	s.mu.Unlock()

	if err := s.write(ctx); err != nil {
		s.logger.Error("flush failed", "kind", shared.ErrorKind(err), "error", err)
		return err
	}
	return nil
}

// Pending reports whether a debounced write is armed.
func (s *PersistenceScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.timer != nil
}

// Writes returns how many document writes have been attempted.
func (s *PersistenceScheduler) Writes() int {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.writes
}

// Close writes any pending change and stops accepting schedules.
func (s *PersistenceScheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	pending := s.timer != nil
	s.cancel()
	s.closed = true
	s.mu.Unlock()

	if !pending {
		return nil
	}
	return s.write(ctx)
}

func (s *PersistenceScheduler) write(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.writes++
	tasks := s.cache.List()
	if err := s.store.Save(ctx, ActiveDocument, tasks); err != nil {
		return err
	}

	s.logger.Debug("active tasks written", "count", len(tasks))
	return nil
}
