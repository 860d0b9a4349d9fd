package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/anisong/internal/shared"
)

type stubChecker struct {
	mu     sync.Mutex
	status HealthStatus
	err    error
	calls  int
}

func (s *stubChecker) set(status string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status, s.err = HealthStatus{Status: status}, err
}

func (s *stubChecker) Health(ctx context.Context) (HealthStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.status, s.err
}

func (s *stubChecker) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestHealthMonitor(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("starts checking", func(t *testing.T) {
		m := NewHealthMonitor(&stubChecker{}, 0, 0, logger)
		if m.Status() != HealthChecking {
			t.Errorf("expected checking, got %s", m.Status())
		}
	})

	t.Run("tracks transitions", func(t *testing.T) {
		checker := &stubChecker{}
		m := NewHealthMonitor(checker, time.Hour, time.Second, logger)

		var changes []EngineHealth
		m.OnChange(func(h EngineHealth) { changes = append(changes, h) })

		checker.set("healthy", nil)
		m.Check(context.Background())
		m.Check(context.Background())

		checker.set("", errors.New("connection refused"))
		if got := m.Check(context.Background()); got != HealthUnhealthy {
			t.Errorf("expected unhealthy, got %s", got)
		}

		checker.set("degraded", nil)
		m.Check(context.Background())

		if len(changes) != 2 || changes[0] != HealthHealthy || changes[1] != HealthUnhealthy {
			t.Errorf("unexpected transitions %v", changes)
		}

		report := m.Report()
		if !errors.Is(report.Err, shared.ErrExternalUnavailable) {
			t.Errorf("expected non-healthy reply to be ErrExternalUnavailable, got %v", report.Err)
		}
		if report.CheckedAt.IsZero() {
			t.Error("expected check time to be recorded")
		}
	})

	t.Run("Run polls until cancelled", func(t *testing.T) {
		checker := &stubChecker{}
		checker.set("healthy", nil)
		m := NewHealthMonitor(checker, 10*time.Millisecond, time.Second, logger)

		ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
		defer cancel()
		m.Run(ctx)

		if n := checker.count(); n < 3 {
			t.Errorf("expected repeated checks, got %d", n)
		}
		if m.Status() != HealthHealthy {
			t.Errorf("expected healthy, got %s", m.Status())
		}
	})
}
