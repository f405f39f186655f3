package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/port"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/entity"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/infrastructure/persistence/sqlite"
)

// ReceiptRepository implements port.ReceiptRepository
type ReceiptRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *sql.DB, logger *zap.Logger) port.ReceiptRepository {
	return &ReceiptRepository{
		db:     db,
		logger: logger,
	}
}

const receiptColumns = `id, reference_id, status, snapshot, file_path, error_message, attempts,
	generated_at, created_at, updated_at`

// CreateIfAbsent inserts a receipt; an existing row for the reference id wins
func (r *ReceiptRepository) CreateIfAbsent(ctx context.Context, receipt *entity.Receipt) (bool, error) {
	query := `
		INSERT INTO receipts (reference_id, status, snapshot, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(reference_id) DO NOTHING
	`

	snapshot, err := json.Marshal(receipt.Snapshot)
	if err != nil {
		return false, fmt.Errorf("failed to encode receipt snapshot: %w", err)
	}

	now := time.Now()
	if receipt.Status == "" {
		receipt.Status = entity.ReceiptStatusPending
	}

	result, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx, query,
		receipt.ReferenceID, receipt.Status, string(snapshot), now, now)
	if err != nil {
		r.logger.Error("Failed to create receipt", zap.String("reference_id", receipt.ReferenceID), zap.Error(err))
		return false, fmt.Errorf("failed to create receipt: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to get last insert id: %w", err)
	}
	receipt.ID = id
	receipt.CreatedAt = now
	receipt.UpdatedAt = now
	return true, nil
}

// GetByReferenceID retrieves a receipt, returning nil when none exists
func (r *ReceiptRepository) GetByReferenceID(ctx context.Context, referenceID string) (*entity.Receipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE reference_id = ?`

	receipt, err := scanReceipt(sqlite.GetExecutor(ctx, r.db).QueryRowContext(ctx, query, referenceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get receipt", zap.String("reference_id", referenceID), zap.Error(err))
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	return receipt, nil
}

// GetPending returns the oldest receipts waiting for generation
func (r *ReceiptRepository) GetPending(ctx context.Context, limit int) ([]*entity.Receipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE status = ? ORDER BY id ASC LIMIT ?`

	rows, err := sqlite.GetExecutor(ctx, r.db).QueryContext(ctx, query, entity.ReceiptStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to get pending receipts", zap.Error(err))
		return nil, fmt.Errorf("failed to get pending receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*entity.Receipt
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, receipt)
	}
	return receipts, rows.Err()
}

// MarkGenerating moves a receipt to GENERATING and counts the attempt
func (r *ReceiptRepository) MarkGenerating(ctx context.Context, id int64) error {
	query := `UPDATE receipts SET status = ?, attempts = attempts + 1, error_message = '', updated_at = ? WHERE id = ?`

	if _, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx, query, entity.ReceiptStatusGenerating, time.Now(), id); err != nil {
		r.logger.Error("Failed to mark receipt generating", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark receipt generating: %w", err)
	}
	return nil
}

// MarkReady stores the generated file path
func (r *ReceiptRepository) MarkReady(ctx context.Context, id int64, filePath string, generatedAt time.Time) error {
	query := `UPDATE receipts SET status = ?, file_path = ?, error_message = '', generated_at = ?, updated_at = ? WHERE id = ?`

	if _, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx, query, entity.ReceiptStatusReady, filePath, generatedAt, time.Now(), id); err != nil {
		r.logger.Error("Failed to mark receipt ready", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark receipt ready: %w", err)
	}
	return nil
}

// UpdateStatus updates the receipt status and error message
func (r *ReceiptRepository) UpdateStatus(ctx context.Context, id int64, status, errorMsg string) error {
	query := `UPDATE receipts SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`

	if _, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx, query, status, errorMsg, time.Now(), id); err != nil {
		r.logger.Error("Failed to update receipt status", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update receipt status: %w", err)
	}
	return nil
}

// MoveStatus moves every receipt in status from to status to
func (r *ReceiptRepository) MoveStatus(ctx context.Context, from, to string) (int64, error) {
	query := `UPDATE receipts SET status = ?, updated_at = ? WHERE status = ?`

	result, err := sqlite.GetExecutor(ctx, r.db).ExecContext(ctx, query, to, time.Now(), from)
	if err != nil {
		r.logger.Error("Failed to move receipt status", zap.String("from", from), zap.String("to", to), zap.Error(err))
		return 0, fmt.Errorf("failed to move receipt status: %w", err)
	}
	return result.RowsAffected()
}

func scanReceipt(row rowScanner) (*entity.Receipt, error) {
	var receipt entity.Receipt
	var snapshot string
	var generatedAt sql.NullTime

	if err := row.Scan(
		&receipt.ID,
		&receipt.ReferenceID,
		&receipt.Status,
		&snapshot,
		&receipt.FilePath,
		&receipt.ErrorMessage,
		&receipt.Attempts,
		&generatedAt,
		&receipt.CreatedAt,
		&receipt.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(snapshot), &receipt.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode receipt snapshot: %w", err)
	}
	if generatedAt.Valid {
		receipt.GeneratedAt = &generatedAt.Time
	}
	return &receipt, nil
}

// Verify interface compliance
var _ port.ReceiptRepository = (*ReceiptRepository)(nil)
