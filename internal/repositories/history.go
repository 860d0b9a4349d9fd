package repositories

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisong/internal/models"
	"github.com/desertthunder/anisong/internal/shared"
)

// HistoryArchive is the append-only record of archived terminal tasks.
//
// Appends land in memory first and are then written; an id already present is not appended again.
type HistoryArchive struct {
	store  DocumentStore
	logger *log.Logger

	mu      sync.RWMutex
	tasks   []models.Task
	ids     map[string]struct{}
	writeMu sync.Mutex
}

// NewHistoryArchive creates an archive seeded with tasks.
func NewHistoryArchive(store DocumentStore, logger *log.Logger, tasks ...models.Task) *HistoryArchive {
	h := &HistoryArchive{store: store, logger: logger, ids: make(map[string]struct{}, len(tasks))}
	for _, t := range tasks {
		if _, dup := h.ids[t.ID]; dup {
			continue
		}
		h.ids[t.ID] = struct{}{}
		h.tasks = append(h.tasks, t.Clone())
	}
	return h
}

// LoadHistoryArchive reads the history document. A missing or corrupt document is logged and yields an empty archive.
func LoadHistoryArchive(ctx context.Context, store DocumentStore, logger *log.Logger) *HistoryArchive {
	tasks, err := store.Load(ctx, HistoryDocument)
	if err != nil {
		logger.Error("failed to load history, starting empty", "kind", shared.ErrorKind(err), "error", err)
		return NewHistoryArchive(store, logger)
	}

	logger.Debug("loaded history", "count", len(tasks))
	return NewHistoryArchive(store, logger, tasks...)
}

// Append records t and writes the history document.
//
// Returns false without writing when t's id is already archived. A write error leaves the record in memory.
func (h *HistoryArchive) Append(ctx context.Context, t models.Task) (bool, error) {
	h.mu.Lock()
	if _, dup := h.ids[t.ID]; dup {
		h.mu.Unlock()
		h.logger.Debug("task already archived", "id", t.ID)
		return false, nil
	}
	h.ids[t.ID] = struct{}{}
	h.tasks = append(h.tasks, t.Clone())
	h.mu.Unlock()

	return true, h.write(ctx)
}

func (h *HistoryArchive) write(ctx context.Context) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	return h.store.Save(ctx, HistoryDocument, h.List())
}

// List returns archived tasks oldest first.
func (h *HistoryArchive) List() []models.Task {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]models.Task, 0, len(h.tasks))
	for _, t := range h.tasks {
		out = append(out, t.Clone())
	}
	return out
}

// Has reports whether id is archived.
func (h *HistoryArchive) Has(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.ids[id]
	return ok
}

// Len returns the number of archived tasks.
func (h *HistoryArchive) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.tasks)
}

// DropArchived removes active tasks whose id is already archived and returns their ids.
//
// An archive whose active write failed leaves the task in both documents; the history record wins.
func DropArchived(cache *TaskCache, history *HistoryArchive, logger *log.Logger) []string {
	dropped := cache.RemoveIf(func(t models.Task) bool { return history.Has(t.ID) })
	for _, id := range dropped {
		logger.Warn("dropping active task already archived", "id", id, "kind", shared.ErrorKind(shared.ErrInvalidTransition))
	}
	return dropped
}
