package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/port"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/entity"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/infrastructure/persistence/sqlite"
)

// AttachmentRepository implements port.AttachmentRepository
type AttachmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAttachmentRepository creates a new attachment repository
func NewAttachmentRepository(db *sql.DB, logger *zap.Logger) port.AttachmentRepository {
	return &AttachmentRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new attachment record
func (r *AttachmentRepository) Create(ctx context.Context, att *entity.Attachment) error {
	query := `
		INSERT INTO submission_attachments (
			submission_id, file_name, mime_type, file_size, file_path, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	if att.CreatedAt.IsZero() {
		att.CreatedAt = time.Now()
	}

	result, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx, query,
		att.SubmissionID,
		att.FileName,
		att.MimeType,
		att.FileSize,
		att.FilePath,
		att.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create attachment", zap.Int64("submission_id", att.SubmissionID), zap.Error(err))
		return fmt.Errorf("failed to create attachment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	att.ID = id
	return nil
}

// GetBySubmissionID retrieves the attachments of a submission in upload order
func (r *AttachmentRepository) GetBySubmissionID(ctx context.Context, submissionID int64) ([]*entity.Attachment, error) {
	query := `
		SELECT id, submission_id, file_name, mime_type, file_size, file_path, created_at
		FROM submission_attachments
		WHERE submission_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.GetExecutor(ctx, r.db).QueryContext(ctx, query, submissionID)
	if err != nil {
		r.logger.Error("Failed to get attachments", zap.Int64("submission_id", submissionID), zap.Error(err))
		return nil, fmt.Errorf("failed to get attachments: %w", err)
	}
	defer rows.Close()

	var atts []*entity.Attachment
	for rows.Next() {
		var att entity.Attachment
		if err := rows.Scan(
			&att.ID,
			&att.SubmissionID,
			&att.FileName,
			&att.MimeType,
			&att.FileSize,
			&att.FilePath,
			&att.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		atts = append(atts, &att)
	}

	return atts, rows.Err()
}

// Verify interface compliance
var _ port.AttachmentRepository = (*AttachmentRepository)(nil)
