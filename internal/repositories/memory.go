package repositories

import (
	"context"
	"sync"

	"github.com/desertthunder/anisong/internal/models"
)

// MemoryDocumentStore keeps documents in process memory. It records every save for inspection.
type MemoryDocumentStore struct {
	mu    sync.Mutex
	docs  map[Document][]models.Task
	saves map[Document]int
	err   error
	errs  map[Document]error
}

// NewMemoryDocumentStore creates an empty store.
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{
		docs:  map[Document][]models.Task{},
		saves: map[Document]int{},
		errs:  map[Document]error{},
	}
}

// FailWith makes later saves return err. Pass nil to recover.
func (s *MemoryDocumentStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.err = err
}

// FailOn makes later saves of doc return err. Pass nil to recover.
func (s *MemoryDocumentStore) FailOn(doc Document, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.errs[doc] = err
}

// Load returns a copy of doc.
func (s *MemoryDocumentStore) Load(ctx context.Context, doc Document) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneTasks(s.docs[doc]), nil
}

// Save replaces doc.
func (s *MemoryDocumentStore) Save(ctx context.Context, doc Document, tasks []models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saves[doc]++
	if s.err != nil {
		return s.err
	}
	if err := s.errs[doc]; err != nil {
		return err
	}
	s.docs[doc] = cloneTasks(tasks)
	return nil
}

// Saves returns how many times doc was saved, failed attempts included.
func (s *MemoryDocumentStore) Saves(doc Document) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saves[doc]
}

// Snapshot returns the last saved contents of doc.
func (s *MemoryDocumentStore) Snapshot(doc Document) []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneTasks(s.docs[doc])
}

func cloneTasks(tasks []models.Task) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Clone())
	}
	return out
}
