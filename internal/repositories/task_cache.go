package repositories

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisong/internal/models"
	"github.com/desertthunder/anisong/internal/shared"
)

// TaskCache is the in-memory authority for active tasks.
//
// Every method holds the cache lock for in-memory work only and returns copies, so callers never alias cached records.
type TaskCache struct {
	mu    sync.RWMutex
	tasks map[string]models.Task
	order []string
}

// NewTaskCache creates a cache seeded with tasks, keeping their order.
// Later duplicates of an id replace the earlier record in place.
func NewTaskCache(tasks ...models.Task) *TaskCache {
	c := &TaskCache{tasks: make(map[string]models.Task, len(tasks))}
	for _, t := range tasks {
		c.put(t)
	}
	return c
}

// LoadTaskCache reads the active document from store.
//
// A missing or corrupt document is logged and yields an empty cache so startup never fails on bad state.
func LoadTaskCache(ctx context.Context, store DocumentStore, logger *log.Logger) *TaskCache {
	tasks, err := store.Load(ctx, ActiveDocument)
	if err != nil {
		logger.Error("failed to load active tasks, starting empty", "kind", shared.ErrorKind(err), "error", err)
		return NewTaskCache()
	}

	logger.Debug("loaded active tasks", "count", len(tasks))
	return NewTaskCache(tasks...)
}

// put inserts or replaces without locking.
func (c *TaskCache) put(t models.Task) {
	if _, ok := c.tasks[t.ID]; !ok {
		c.order = append(c.order, t.ID)
	}
	c.tasks[t.ID] = t.Clone()
}

// remove deletes without locking.
func (c *TaskCache) remove(id string) (models.Task, bool) {
	t, ok := c.tasks[id]
	if !ok {
		return models.Task{}, false
	}

	delete(c.tasks, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return t, true
}

// List returns a snapshot of all tasks in insertion order.
func (c *TaskCache) List() []models.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Task, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.tasks[id].Clone())
	}
	return out
}

// Get returns a copy of the task with id.
func (c *TaskCache) Get(id string) (models.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	return t.Clone(), true
}

// Has reports whether id is active.
func (c *TaskCache) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.tasks[id]
	return ok
}

// Len returns the number of active tasks.
func (c *TaskCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.tasks)
}

// Upsert inserts t or replaces the record with the same id.
func (c *TaskCache) Upsert(t models.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.put(t)
}

// Append adds a batch of tasks in one step; readers see all of them or none.
func (c *TaskCache) Append(tasks ...models.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range tasks {
		c.put(t)
	}
}

// Update applies fn to the task with id under the cache lock and stores the result.
//
// fn receives a copy; the id it returns is ignored. Returns [shared.ErrNotFound] when id is absent.
func (c *TaskCache) Update(id string, fn func(models.Task) models.Task) (models.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.tasks[id]
	if !ok {
		return models.Task{}, fmt.Errorf("%w: task %s", shared.ErrNotFound, id)
	}

	next := fn(current.Clone())
	next.ID = id
	c.tasks[id] = next.Clone()
	return next, nil
}

// Remove deletes the task with id, reporting whether it existed.
func (c *TaskCache) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.remove(id)
	return ok
}

// RemoveIf deletes every task drop accepts and returns their ids in insertion order.
func (c *TaskCache) RemoveIf(drop func(models.Task) bool) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ids []string
	for _, id := range append([]string(nil), c.order...) {
		if drop(c.tasks[id]) {
			c.remove(id)
			ids = append(ids, id)
		}
	}
	return ids
}

// MoveToHistory removes and returns the task with id when allow accepts it.
//
// The check and the removal happen under one lock so a concurrent update cannot slip between them.
func (c *TaskCache) MoveToHistory(id string, allow func(models.Task) bool) (models.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tasks[id]
	if !ok {
		return models.Task{}, fmt.Errorf("%w: task %s", shared.ErrNotFound, id)
	}
	if allow != nil && !allow(t) {
		return models.Task{}, fmt.Errorf("%w: task %s is %s", shared.ErrInvalidTransition, id, t.Status)
	}

	c.remove(id)
	return t.Clone(), nil
}
