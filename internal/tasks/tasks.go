// package tasks implements the task catalog operations exposed to the CLI, HTTP and dashboard layers.
package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisong/internal/models"
	"github.com/desertthunder/anisong/internal/repositories"
	"github.com/desertthunder/anisong/internal/services"
	"github.com/desertthunder/anisong/internal/shared"
)

const (
	defaultWorkers   = 4
	maxWorkers       = 10
	defaultRateLimit = 5.0
)

// Engine is the download engine as seen by the manager.
type Engine interface {
	Snapshot(ctx context.Context) ([]services.JobStatus, error)
	Start(ctx context.Context, req services.StartRequest) (*services.StartResponse, error)
	Delete(ctx context.Context, taskID string) error
}

// Lookup resolves a human title into catalog matches.
type Lookup interface {
	Search(ctx context.Context, title, token string) ([]models.Metadata, error)
}

// ManagerOpts wires a [Manager]. Cache, History, Scheduler and Engine are required.
type ManagerOpts struct {
	Cache     *repositories.TaskCache
	History   *repositories.HistoryArchive
	Scheduler *repositories.PersistenceScheduler
	Engine    Engine
	Lookup    Lookup
	Logger    *log.Logger
	Clock     func() time.Time // defaults to time.Now
	RateLimit float64          // lookups per second (default: 5)
	Workers   int              // concurrent lookups (default: 4, max: 10)
}

// Manager owns the active task catalog and its synchronization with the engine.
type Manager struct {
	cache     *repositories.TaskCache
	history   *repositories.HistoryArchive
	scheduler *repositories.PersistenceScheduler
	engine    Engine
	lookup    Lookup
	logger    *log.Logger
	now       func() time.Time
	rateLimit float64
	workers   int
}

// NewManager creates a Manager from opts, filling defaults.
func NewManager(opts ManagerOpts) *Manager {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Workers > maxWorkers {
		opts.Workers = maxWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}

	return &Manager{
		cache:     opts.Cache,
		history:   opts.History,
		scheduler: opts.Scheduler,
		engine:    opts.Engine,
		lookup:    opts.Lookup,
		logger:    opts.Logger,
		now:       opts.Clock,
		rateLimit: opts.RateLimit,
		workers:   opts.Workers,
	}
}

// ListActive reconciles with the engine and returns the active tasks in creation order.
//
// Engine failures are logged; the cached list is returned either way.
func (m *Manager) ListActive(ctx context.Context) []models.Task {
	if err := m.Reconcile(ctx); err != nil {
		m.logger.Warn("engine snapshot unavailable, returning cached tasks", "kind", shared.ErrorKind(err), "error", err)
	}
	return m.cache.List()
}

// ListCached returns the active tasks without contacting the engine.
func (m *Manager) ListCached() []models.Task {
	return m.cache.List()
}

// ListHistory returns archived tasks oldest first.
func (m *Manager) ListHistory() []models.Task {
	return m.history.List()
}

// Get returns the active task with id.
func (m *Manager) Get(id string) (models.Task, bool) {
	return m.cache.Get(id)
}

// DeleteTask removes an active task and asks the engine to drop its job.
//
// Unknown ids are logged and ignored. Engine errors are ignored.
func (m *Manager) DeleteTask(ctx context.Context, id string) {
	if !m.cache.Remove(id) {
		m.logger.Warn("delete ignored", "kind", "NotFound", "id", id)
		return
	}

	m.logger.Info("task deleted", "id", id)
	m.flush(ctx)

	if err := m.engine.Delete(ctx, id); err != nil {
		m.logger.Debug("engine delete ignored", "id", id, "kind", shared.ErrorKind(err), "error", err)
	}
}

// ArchiveTask moves a completed or failed task into history, reporting whether it moved.
//
// The active document is flushed before history is written. Pending, downloading and unknown tasks are logged
// and left alone.
func (m *Manager) ArchiveTask(ctx context.Context, id string) bool {
	task, err := m.cache.MoveToHistory(id, func(t models.Task) bool { return t.Status.IsTerminal() })
	if err != nil {
		m.logger.Warn("archive ignored", "id", id, "kind", shared.ErrorKind(err), "error", err)
		return false
	}

	m.flush(ctx)
	if _, err := m.history.Append(ctx, task); err != nil {
		m.logger.Error("failed to write history", "id", id, "kind", shared.ErrorKind(err), "error", err)
	}

	m.logger.Info("task archived", "id", id, "status", task.Status)
	return true
}

// Close writes any pending change.
func (m *Manager) Close(ctx context.Context) error {
	return m.scheduler.Close(ctx)
}

// flush forces a write of the active document. Failures are logged by the scheduler and otherwise dropped.
func (m *Manager) flush(ctx context.Context) {
	if err := m.scheduler.Flush(ctx); err != nil && errors.Is(err, repositories.ErrSchedulerClosed) {
		m.logger.Warn("flush after close", "error", err)
	}
}
