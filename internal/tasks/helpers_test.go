package tasks

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/desertthunder/anisong/internal/models"
	"github.com/desertthunder/anisong/internal/repositories"
	"github.com/desertthunder/anisong/internal/shared"
	tu "github.com/desertthunder/anisong/internal/testing"
)

var fixedNow = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	manager *Manager
	cache   *repositories.TaskCache
	history *repositories.HistoryArchive
	sched   *repositories.PersistenceScheduler
	store   *repositories.MemoryDocumentStore
	engine  *tu.FakeEngine
	lookup  *tu.FakeLookup
}

// newHarness builds a manager over an in-memory store with an hour-long debounce window,
// so any write observed by a test came from a forced flush.
func newHarness(t *testing.T, seed ...models.Task) *harness {
	t.Helper()

	logger := shared.NewLogger(io.Discard)
	store := repositories.NewMemoryDocumentStore()
	cache := repositories.NewTaskCache(seed...)
	history := repositories.NewHistoryArchive(store, logger)
	sched := repositories.NewPersistenceScheduler(cache, store, time.Hour, logger)
	engine := &tu.FakeEngine{}
	lookup := &tu.FakeLookup{Matches: map[string][]models.Metadata{}, Errors: map[string]error{}}

	t.Cleanup(func() { _ = sched.Close(context.Background()) })

	return &harness{
		manager: NewManager(ManagerOpts{
			Cache:     cache,
			History:   history,
			Scheduler: sched,
			Engine:    engine,
			Lookup:    lookup,
			Logger:    logger,
			Clock:     func() time.Time { return fixedNow },
			RateLimit: 1000,
			Workers:   4,
		}),
		cache:   cache,
		history: history,
		sched:   sched,
		store:   store,
		engine:  engine,
		lookup:  lookup,
	}
}

// durable returns the last written active document keyed by id.
func (h *harness) durable() map[string]models.Task {
	out := map[string]models.Task{}
	for _, t := range h.store.Snapshot(repositories.ActiveDocument) {
		out[t.ID] = t
	}
	return out
}

func newTask(title string, status models.Status) models.Task {
	t := models.NewTask(title, "/music", models.SourceVideoPlatform, models.ModeVideo, nil, fixedNow.Add(-time.Hour))
	t.Status = status
	return t
}
