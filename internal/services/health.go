package services

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisong/internal/shared"
)

// EngineHealth is the monitor's view of the engine.
type EngineHealth string

const (
	HealthChecking  EngineHealth = "checking"
	HealthHealthy   EngineHealth = "healthy"
	HealthUnhealthy EngineHealth = "unhealthy"
)

const (
	defaultHealthInterval = 10 * time.Second
	defaultHealthTimeout  = 3 * time.Second
)

// HealthChecker is the part of [EngineClient] the monitor needs.
type HealthChecker interface {
	Health(ctx context.Context) (HealthStatus, error)
}

// HealthMonitor polls engine health on an interval and records transitions.
type HealthMonitor struct {
	checker  HealthChecker
	interval time.Duration
	timeout  time.Duration
	logger   *log.Logger

	mu        sync.RWMutex
	status    EngineHealth
	lastErr   error
	checkedAt time.Time
	onChange  func(EngineHealth)
}

// NewHealthMonitor creates a monitor in the checking state. Non-positive durations use the defaults (10s poll, 3s timeout).
func NewHealthMonitor(checker HealthChecker, interval, timeout time.Duration, logger *log.Logger) *HealthMonitor {
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	if timeout <= 0 {
		timeout = defaultHealthTimeout
	}
	return &HealthMonitor{
		checker:  checker,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		status:   HealthChecking,
	}
}

// OnChange registers fn to be called after every transition.
func (m *HealthMonitor) OnChange(fn func(EngineHealth)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onChange = fn
}

// HealthReport is a point-in-time view of the monitor.
type HealthReport struct {
	Status    EngineHealth
	Err       error
	CheckedAt time.Time
}

// Report returns the latest state, the error behind an unhealthy state and when it was checked.
func (m *HealthMonitor) Report() HealthReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return HealthReport{Status: m.status, Err: m.lastErr, CheckedAt: m.checkedAt}
}

// Status returns the latest state.
func (m *HealthMonitor) Status() EngineHealth {
	return m.Report().Status
}

// Check probes the engine once and returns the resulting state.
func (m *HealthMonitor) Check(ctx context.Context) EngineHealth {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	next := HealthHealthy
	reply, err := m.checker.Health(ctx)
	if err == nil && !reply.Healthy() {
		err = shared.ErrExternalUnavailable
	}
	if err != nil {
		next = HealthUnhealthy
	}

	m.mu.Lock()
	prev := m.status
	m.status, m.lastErr, m.checkedAt = next, err, time.Now()
	onChange := m.onChange
	m.mu.Unlock()

	if prev != next {
		if next == HealthHealthy {
			m.logger.Info("engine is healthy", "previous", prev)
		} else {
			m.logger.Warn("engine is unavailable", "previous", prev, "kind", shared.ErrorKind(err), "error", err)
		}
		if onChange != nil {
			onChange(next)
		}
	}
	return next
}

// Run checks immediately and then on every interval until ctx is done.
func (m *HealthMonitor) Run(ctx context.Context) {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
