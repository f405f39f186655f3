package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/port"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/entity"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/infrastructure/persistence/sqlite"
)

// ContentRepository implements port.ContentRepository
type ContentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewContentRepository creates a new content document repository
func NewContentRepository(db *sql.DB, logger *zap.Logger) port.ContentRepository {
	return &ContentRepository{
		db:     db,
		logger: logger,
	}
}

// List returns the documents of a kind by position
func (r *ContentRepository) List(ctx context.Context, kind string) ([]*entity.ContentDocument, error) {
	query := `
		SELECT id, kind, position, body, created_at, updated_at
		FROM content_documents
		WHERE kind = ?
		ORDER BY position ASC, created_at ASC
	`

	rows, err := sqlite.GetExecutor(ctx, r.db).QueryContext(ctx, query, kind)
	if err != nil {
		r.logger.Error("Failed to list content", zap.String("kind", kind), zap.Error(err))
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	defer rows.Close()

	var docs []*entity.ContentDocument
	for rows.Next() {
		doc, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Get retrieves one document, returning nil when none exists
func (r *ContentRepository) Get(ctx context.Context, kind, id string) (*entity.ContentDocument, error) {
	query := `
		SELECT id, kind, position, body, created_at, updated_at
		FROM content_documents
		WHERE kind = ? AND id = ?
	`

	doc, err := scanContent(sqlite.GetExecutor(ctx, r.db).QueryRowContext(ctx, query, kind, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get content", zap.String("kind", kind), zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get content: %w", err)
	}
	return doc, nil
}

// Upsert creates or replaces a document
func (r *ContentRepository) Upsert(ctx context.Context, doc *entity.ContentDocument) error {
	query := `
		INSERT INTO content_documents (id, kind, position, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			position = excluded.position,
			body = excluded.body,
			updated_at = excluded.updated_at
	`

	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx, query,
		doc.ID, doc.Kind, doc.Position, string(doc.Body), doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to upsert content", zap.String("kind", doc.Kind), zap.String("id", doc.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert content: %w", err)
	}
	return nil
}

// Delete removes a document; deleting a missing document is not an error
func (r *ContentRepository) Delete(ctx context.Context, kind, id string) error {
	query := `DELETE FROM content_documents WHERE kind = ? AND id = ?`

	if _, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx, query, kind, id); err != nil {
		r.logger.Error("Failed to delete content", zap.String("kind", kind), zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete content: %w", err)
	}
	return nil
}

func scanContent(row rowScanner) (*entity.ContentDocument, error) {
	var doc entity.ContentDocument
	var body string
	if err := row.Scan(&doc.ID, &doc.Kind, &doc.Position, &body, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	doc.Body = []byte(body)
	return &doc, nil
}

// Verify interface compliance
var _ port.ContentRepository = (*ContentRepository)(nil)
