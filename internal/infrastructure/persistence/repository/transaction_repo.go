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

const transactionColumns = `
	id, account_id, lead_id, amount, currency, state, lock_end_at, original_id,
	reversed_by, created_at, updated_at`

// TransactionRepository implements port.TransactionRepository
type TransactionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTransactionRepository creates a new earnings transaction repository
func NewTransactionRepository(db *sql.DB, logger *zap.Logger) port.TransactionRepository {
	return &TransactionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a transaction; adjustments go through here too
func (r *TransactionRepository) Create(ctx context.Context, txn *entity.EarningsTransaction) error {
	query := `
		INSERT INTO earnings_transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var lockEnd sql.NullTime
	if !txn.LockEndAt.IsZero() {
		lockEnd = sql.NullTime{Time: txn.LockEndAt.UTC(), Valid: true}
	}

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		txn.ID,
		txn.AccountID,
		txn.LeadID,
		txn.Amount,
		txn.Currency,
		txn.State,
		lockEnd,
		txn.OriginalID,
		txn.ReversedBy,
		txn.CreatedAt.UTC(),
		txn.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create transaction", zap.String("transaction_id", txn.ID), zap.Error(err))
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction by ID
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*entity.EarningsTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM earnings_transactions WHERE id = ?`

	txn, err := scanTransaction(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get transaction by ID", zap.String("transaction_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// List retrieves transactions, newest first
func (r *TransactionRepository) List(ctx context.Context, filter port.ListFilter) ([]*entity.EarningsTransaction, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Status != "" {
		where = append(where, "state = ?")
		args = append(args, filter.Status)
	}
	if filter.AccountID != "" {
		where = append(where, "account_id = ?")
		args = append(args, filter.AccountID)
	}

	query := `SELECT ` + transactionColumns + ` FROM earnings_transactions` + whereClause(where) +
		` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, limitOrDefault(filter.Limit), filter.Offset)

	return r.query(ctx, query, args...)
}

// ListByState returns transactions in a state that no adjustment has reversed,
// oldest lock end first
func (r *TransactionRepository) ListByState(ctx context.Context, state workflow.State, limit int) ([]*entity.EarningsTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM earnings_transactions
		WHERE state = ? AND reversed_by = '' ORDER BY lock_end_at, id LIMIT ?`

	return r.query(ctx, query, state, limitOrDefault(limit))
}

// UpdateState moves a transaction from one state to another. Reversed originals never move.
func (r *TransactionRepository) UpdateState(ctx context.Context, id string, from, to workflow.State, at time.Time) error {
	query := `UPDATE earnings_transactions SET state = ?, updated_at = ?
		WHERE id = ? AND state = ? AND reversed_by = ''`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, to, at.UTC(), id, from)
	if err != nil {
		r.logger.Error("Failed to update transaction state",
			zap.String("transaction_id", id),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.Error(err))
		return fmt.Errorf("failed to update transaction state: %w", err)
	}
	return expectOneRow(result, "transaction", id)
}

// MarkReversed links the original to its adjustment while it is still in the given
// state and not yet reversed
func (r *TransactionRepository) MarkReversed(ctx context.Context, id string, state workflow.State, adjustmentID string, at time.Time) error {
	query := `UPDATE earnings_transactions SET reversed_by = ?, updated_at = ?
		WHERE id = ? AND state = ? AND reversed_by = ''`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, adjustmentID, at.UTC(), id, state)
	if err != nil {
		r.logger.Error("Failed to mark transaction reversed",
			zap.String("transaction_id", id),
			zap.String("adjustment_id", adjustmentID),
			zap.Error(err))
		return fmt.Errorf("failed to mark transaction reversed: %w", err)
	}
	return expectOneRow(result, "transaction", id)
}

func (r *TransactionRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.EarningsTransaction, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list transactions", zap.Error(err))
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*entity.EarningsTransaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

func scanTransaction(row rowScanner) (*entity.EarningsTransaction, error) {
	var (
		txn     entity.EarningsTransaction
		lockEnd sql.NullTime
	)
	err := row.Scan(
		&txn.ID,
		&txn.AccountID,
		&txn.LeadID,
		&txn.Amount,
		&txn.Currency,
		&txn.State,
		&lockEnd,
		&txn.OriginalID,
		&txn.ReversedBy,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lockEnd.Valid {
		txn.LockEndAt = lockEnd.Time
	}
	return &txn, nil
}

var _ port.TransactionRepository = (*TransactionRepository)(nil)
