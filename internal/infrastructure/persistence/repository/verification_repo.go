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

// VerificationRepository implements port.VerificationRepository
type VerificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVerificationRepository creates a new verification code repository
func NewVerificationRepository(db *sql.DB, logger *zap.Logger) port.VerificationRepository {
	return &VerificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores an issued code hash
func (r *VerificationRepository) Create(ctx context.Context, code *entity.VerificationCode) error {
	query := `
		INSERT INTO verification_codes (subject, code_hash, attempts, expires_at, created_at)
		VALUES (?, ?, 0, ?, ?)
	`

	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now()
	}

	result, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx, query,
		code.Subject, code.CodeHash, code.ExpiresAt, code.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create verification code", zap.Error(err))
		return fmt.Errorf("failed to create verification code: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	code.ID = id
	return nil
}

// Latest returns the newest code for subject, or nil
func (r *VerificationRepository) Latest(ctx context.Context, subject string) (*entity.VerificationCode, error) {
	query := `
		SELECT id, subject, code_hash, attempts, expires_at, consumed_at, created_at
		FROM verification_codes
		WHERE subject = ?
		ORDER BY id DESC
		LIMIT 1
	`

	var code entity.VerificationCode
	var consumedAt sql.NullTime
	err := sqlite.GetExecutor(ctx, r.db).QueryRowContext(ctx, query, subject).Scan(
		&code.ID,
		&code.Subject,
		&code.CodeHash,
		&code.Attempts,
		&code.ExpiresAt,
		&consumedAt,
		&code.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get verification code", zap.Error(err))
		return nil, fmt.Errorf("failed to get verification code: %w", err)
	}
	if consumedAt.Valid {
		code.ConsumedAt = &consumedAt.Time
	}
	return &code, nil
}

// ClaimAttempt counts one check if the code is unconsumed and under the limit
func (r *VerificationRepository) ClaimAttempt(ctx context.Context, id int64, maxAttempts int) (bool, error) {
	query := `UPDATE verification_codes SET attempts = attempts + 1
		WHERE id = ? AND consumed_at IS NULL AND attempts < ?`

	result, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx, query, id, maxAttempts)
	if err != nil {
		r.logger.Error("Failed to count verification attempt", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to count verification attempt: %w", err)
	}
	return affectedOne(result)
}

// MarkConsumed stops the code from being used again
func (r *VerificationRepository) MarkConsumed(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `UPDATE verification_codes SET consumed_at = ? WHERE id = ? AND consumed_at IS NULL`

	result, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx, query, at, id)
	if err != nil {
		r.logger.Error("Failed to consume verification code", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to consume verification code: %w", err)
	}
	return affectedOne(result)
}

func affectedOne(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteExpired removes codes that expired before the cutoff
func (r *VerificationRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM verification_codes WHERE expires_at < ?`

	result, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx, query, before)
	if err != nil {
		r.logger.Error("Failed to delete expired verification codes", zap.Error(err))
		return 0, fmt.Errorf("failed to delete expired verification codes: %w", err)
	}
	return result.RowsAffected()
}

// Verify interface compliance
var _ port.VerificationRepository = (*VerificationRepository)(nil)
