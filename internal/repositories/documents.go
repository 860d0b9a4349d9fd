package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/anisong/internal/models"
	"github.com/desertthunder/anisong/internal/shared"
)

// Document names one durable task list.
type Document string

const (
	ActiveDocument  Document = "tasks"
	HistoryDocument Document = "history"
)

// DocumentStore loads and saves whole task documents.
//
// Load returns an empty slice and a nil error when the document has never been written.
// Save replaces the document wholesale.
type DocumentStore interface {
	Load(ctx context.Context, doc Document) ([]models.Task, error)
	Save(ctx context.Context, doc Document, tasks []models.Task) error
}

// encodeDocument renders tasks as an indented JSON array. A nil slice encodes as [].
func encodeDocument(tasks []models.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []models.Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode tasks: %v", shared.ErrPersistenceFailure, err)
	}
	return append(data, '\n'), nil
}

func decodeDocument(doc Document, data []byte) ([]models.Task, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []models.Task{}, nil
	}

	var tasks []models.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("%w: document %s is corrupt: %v", shared.ErrPersistenceFailure, doc, err)
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// FileDocumentStore keeps each document as <dir>/<name>.json.
type FileDocumentStore struct {
	dir string
}

// NewFileDocumentStore creates a store rooted at dir. The directory is created on first save.
func NewFileDocumentStore(dir string) *FileDocumentStore {
	return &FileDocumentStore{dir: dir}
}

// Path returns the file backing doc.
func (s *FileDocumentStore) Path(doc Document) string {
	return filepath.Join(s.dir, string(doc)+".json")
}

// Load reads doc from disk.
func (s *FileDocumentStore) Load(ctx context.Context, doc Document) ([]models.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(doc))
	if errors.Is(err, os.ErrNotExist) {
		return []models.Task{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", shared.ErrPersistenceFailure, doc, err)
	}
	return decodeDocument(doc, data)
}

// Save writes doc through a temp file and rename so a crash never leaves a torn document.
func (s *FileDocumentStore) Save(ctx context.Context, doc Document, tasks []models.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeDocument(tasks)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create data directory: %v", shared.ErrPersistenceFailure, err)
	}

	tmp, err := os.CreateTemp(s.dir, string(doc)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %v", shared.ErrPersistenceFailure, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to write %s: %v", shared.ErrPersistenceFailure, doc, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to close %s: %v", shared.ErrPersistenceFailure, doc, err)
	}

	if err := os.Rename(tmp.Name(), s.Path(doc)); err != nil {
		return fmt.Errorf("%w: failed to replace %s: %v", shared.ErrPersistenceFailure, doc, err)
	}
	return nil
}
