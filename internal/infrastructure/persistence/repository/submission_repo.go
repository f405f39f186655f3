package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/port"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/entity"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/infrastructure/persistence/sqlite"
)

// SubmissionRepository implements port.SubmissionRepository
type SubmissionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSubmissionRepository creates a new submission repository
func NewSubmissionRepository(db *sql.DB, logger *zap.Logger) port.SubmissionRepository {
	return &SubmissionRepository{
		db:     db,
		logger: logger,
	}
}

const submissionColumns = `id, reference_id, flow, status, phone, email, locale, fields,
	review_note, submitted_at, reviewed_at, created_at, updated_at`

// Create stores a submission document
func (r *SubmissionRepository) Create(ctx context.Context, sub *entity.Submission) error {
	query := `
		INSERT INTO submissions (
			reference_id, flow, status, phone, email, locale, fields, review_note,
			submitted_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	fields, err := json.Marshal(sub.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode submission fields: %w", err)
	}

	now := time.Now()
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = now
	}
	if sub.Status == "" {
		sub.Status = entity.SubmissionStatusPending
	}
	sub.CreatedAt = now
	sub.UpdatedAt = now

	result, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx, query,
		sub.ReferenceID,
		sub.Flow,
		sub.Status,
		sub.Phone,
		sub.Email,
		sub.Locale,
		string(fields),
		sub.ReviewNote,
		sub.SubmittedAt,
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create submission", zap.String("reference_id", sub.ReferenceID), zap.Error(err))
		return fmt.Errorf("failed to create submission: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	sub.ID = id
	return nil
}

// GetByReferenceID retrieves a submission, returning nil when none exists
func (r *SubmissionRepository) GetByReferenceID(ctx context.Context, referenceID string) (*entity.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE reference_id = ?`

	sub, err := scanSubmission(sqlite.GetExecutor(ctx, r.db).QueryRowContext(ctx, query, referenceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get submission", zap.String("reference_id", referenceID), zap.Error(err))
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return sub, nil
}

// ExistsActive reports whether a non-rejected submission exists for flow and phone
func (r *SubmissionRepository) ExistsActive(ctx context.Context, flow, phone string) (bool, error) {
	query := `SELECT COUNT(1) FROM submissions WHERE flow = ? AND phone = ? AND status != ?`

	var n int
	err := sqlite.GetExecutor(ctx, r.db).QueryRowContext(ctx, query, flow, phone, entity.SubmissionStatusRejected).Scan(&n)
	if err != nil {
		r.logger.Error("Failed to check duplicate submission", zap.String("flow", flow), zap.Error(err))
		return false, fmt.Errorf("failed to check duplicate submission: %w", err)
	}
	return n > 0, nil
}

// UpdateStatus records a review decision
func (r *SubmissionRepository) UpdateStatus(ctx context.Context, id int64, status, note string, reviewedAt time.Time) error {
	query := `UPDATE submissions SET status = ?, review_note = ?, reviewed_at = ?, updated_at = ? WHERE id = ?`

	result, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx, query, status, note, reviewedAt, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update submission status", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update submission status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("submission %d not found", id)
	}
	return nil
}

// List returns submissions newest first
func (r *SubmissionRepository) List(ctx context.Context, filter port.SubmissionFilter) ([]*entity.Submission, error) {
	var where []string
	var args []interface{}
	if filter.Flow != "" {
		where = append(where, "flow = ?")
		args = append(args, filter.Flow)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + submissionColumns + ` FROM submissions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " ORDER BY submitted_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := sqlite.GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list submissions", zap.Error(err))
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var subs []*entity.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(row rowScanner) (*entity.Submission, error) {
	var sub entity.Submission
	var fields string
	var reviewedAt sql.NullTime

	if err := row.Scan(
		&sub.ID,
		&sub.ReferenceID,
		&sub.Flow,
		&sub.Status,
		&sub.Phone,
		&sub.Email,
		&sub.Locale,
		&fields,
		&sub.ReviewNote,
		&sub.SubmittedAt,
		&reviewedAt,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(fields), &sub.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode submission fields: %w", err)
	}
	if reviewedAt.Valid {
		sub.ReviewedAt = &reviewedAt.Time
	}
	return &sub, nil
}

// Verify interface compliance
var _ port.SubmissionRepository = (*SubmissionRepository)(nil)
