package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/coselection/internal/application/port"
	"github.com/garyjia/coselection/internal/domain/entity"
	"github.com/garyjia/coselection/internal/domain/workflow"
	"github.com/garyjia/coselection/internal/infrastructure/persistence/sqlite"
)

// PayoutRepository implements port.PayoutRepository
type PayoutRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPayoutRepository creates a new payout repository
func NewPayoutRepository(db *sql.DB, logger *zap.Logger) port.PayoutRepository {
	return &PayoutRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a payout
func (r *PayoutRepository) Create(ctx context.Context, payout *entity.Payout) error {
	query := `
		INSERT INTO payouts (id, account_id, amount, currency, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		payout.ID,
		payout.AccountID,
		payout.Amount,
		payout.Currency,
		payout.Status,
		payout.CreatedAt.UTC(),
		payout.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create payout", zap.String("payout_id", payout.ID), zap.Error(err))
		return fmt.Errorf("failed to create payout: %w", err)
	}
	return nil
}

// GetByID retrieves a payout by ID
func (r *PayoutRepository) GetByID(ctx context.Context, id string) (*entity.Payout, error) {
	query := `
		SELECT id, account_id, amount, currency, status, created_at, updated_at
		FROM payouts WHERE id = ?
	`

	var p entity.Payout
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.AccountID, &p.Amount, &p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payout %s: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get payout by ID", zap.String("payout_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get payout: %w", err)
	}
	return &p, nil
}

// List retrieves payouts, newest first
func (r *PayoutRepository) List(ctx context.Context, filter port.ListFilter) ([]*entity.Payout, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.AccountID != "" {
		where = append(where, "account_id = ?")
		args = append(args, filter.AccountID)
	}

	query := `SELECT id, account_id, amount, currency, status, created_at, updated_at FROM payouts` +
		whereClause(where) + ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, limitOrDefault(filter.Limit), filter.Offset)

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list payouts", zap.Error(err))
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	defer rows.Close()

	var payouts []*entity.Payout
	for rows.Next() {
		var p entity.Payout
		if err := rows.Scan(&p.ID, &p.AccountID, &p.Amount, &p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payout: %w", err)
		}
		payouts = append(payouts, &p)
	}
	return payouts, rows.Err()
}

// UpdateStatus moves a payout from one status to another
func (r *PayoutRepository) UpdateStatus(ctx context.Context, id string, from, to workflow.State, at time.Time) error {
	query := `UPDATE payouts SET status = ?, updated_at = ? WHERE id = ? AND status = ?`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, to, at.UTC(), id, from)
	if err != nil {
		r.logger.Error("Failed to update payout status", zap.String("payout_id", id), zap.Error(err))
		return fmt.Errorf("failed to update payout status: %w", err)
	}
	return expectOneRow(result, "payout", id)
}

var _ port.PayoutRepository = (*PayoutRepository)(nil)
