package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/anisong/internal/models"
	"github.com/desertthunder/anisong/internal/shared"
)

// SQLiteDocumentStore keeps each document as one row of the documents table.
//
// The row body is the same indented JSON the file store writes, so switching drivers only moves bytes.
type SQLiteDocumentStore struct {
	db *sql.DB
}

// NewSQLiteDocumentStore wraps an open database. Migrations must already be applied.
func NewSQLiteDocumentStore(db *sql.DB) *SQLiteDocumentStore {
	return &SQLiteDocumentStore{db: db}
}

// OpenSQLiteDocumentStore opens the database at path and applies pending migrations.
func OpenSQLiteDocumentStore(path string) (*SQLiteDocumentStore, error) {
	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrPersistenceFailure, err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", shared.ErrPersistenceFailure, err)
	}
	return NewSQLiteDocumentStore(db), nil
}

// Close releases the underlying database.
func (s *SQLiteDocumentStore) Close() error {
	return s.db.Close()
}

// Load reads doc's body row.
func (s *SQLiteDocumentStore) Load(ctx context.Context, doc Document) ([]models.Task, error) {
	var body string
	err := s.db.QueryRowContext(ctx, "SELECT body FROM documents WHERE name = ?", string(doc)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return []models.Task{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", shared.ErrPersistenceFailure, doc, err)
	}
	return decodeDocument(doc, []byte(body))
}

// Save upserts doc's body row.
func (s *SQLiteDocumentStore) Save(ctx context.Context, doc Document, tasks []models.Task) error {
	data, err := encodeDocument(tasks)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (name, body, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, string(doc), string(data)); err != nil {
		return fmt.Errorf("%w: failed to write %s: %v", shared.ErrPersistenceFailure, doc, err)
	}
	return nil
}
