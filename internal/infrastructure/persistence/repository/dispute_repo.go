package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/coselection/internal/application/port"
	"github.com/garyjia/coselection/internal/domain/entity"
	"github.com/garyjia/coselection/internal/domain/workflow"
	"github.com/garyjia/coselection/internal/infrastructure/persistence/sqlite"
)

const disputeColumns = `
	id, transaction_id, opened_by, summary, status, outcome, resolved_at, created_at, updated_at`

// DisputeRepository implements port.DisputeRepository
type DisputeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDisputeRepository creates a new dispute repository
func NewDisputeRepository(db *sql.DB, logger *zap.Logger) port.DisputeRepository {
	return &DisputeRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a dispute
func (r *DisputeRepository) Create(ctx context.Context, d *entity.DisputeCase) error {
	query := `INSERT INTO disputes (` + disputeColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		d.ID,
		d.TransactionID,
		d.OpenedBy,
		d.Summary,
		d.Status,
		d.Outcome,
		nullTime(d.ResolvedAt),
		d.CreatedAt.UTC(),
		d.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create dispute", zap.String("dispute_id", d.ID), zap.Error(err))
		return fmt.Errorf("failed to create dispute: %w", err)
	}
	return nil
}

// GetByID retrieves a dispute by ID
func (r *DisputeRepository) GetByID(ctx context.Context, id string) (*entity.DisputeCase, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE id = ?`

	d, err := scanDispute(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dispute %s: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get dispute by ID", zap.String("dispute_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get dispute: %w", err)
	}
	return d, nil
}

// List retrieves disputes, oldest first so intake processes them in arrival order
func (r *DisputeRepository) List(ctx context.Context, filter port.ListFilter) ([]*entity.DisputeCase, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + disputeColumns + ` FROM disputes` + whereClause(where) +
		` ORDER BY created_at, id LIMIT ? OFFSET ?`
	args = append(args, limitOrDefault(filter.Limit), filter.Offset)

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list disputes", zap.Error(err))
		return nil, fmt.Errorf("failed to list disputes: %w", err)
	}
	defer rows.Close()

	var disputes []*entity.DisputeCase
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dispute: %w", err)
		}
		disputes = append(disputes, d)
	}
	return disputes, rows.Err()
}

// Update writes the new status, outcome and resolution time if the stored status is from
func (r *DisputeRepository) Update(ctx context.Context, d *entity.DisputeCase, from workflow.State) error {
	query := `
		UPDATE disputes SET status = ?, outcome = ?, resolved_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		d.Status,
		d.Outcome,
		nullTime(d.ResolvedAt),
		d.UpdatedAt.UTC(),
		d.ID,
		from,
	)
	if err != nil {
		r.logger.Error("Failed to update dispute", zap.String("dispute_id", d.ID), zap.Error(err))
		return fmt.Errorf("failed to update dispute: %w", err)
	}
	return expectOneRow(result, "dispute", d.ID)
}

func scanDispute(row rowScanner) (*entity.DisputeCase, error) {
	var (
		d          entity.DisputeCase
		resolvedAt sql.NullTime
	)
	err := row.Scan(
		&d.ID,
		&d.TransactionID,
		&d.OpenedBy,
		&d.Summary,
		&d.Status,
		&d.Outcome,
		&resolvedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		d.ResolvedAt = &resolvedAt.Time
	}
	return &d, nil
}

var _ port.DisputeRepository = (*DisputeRepository)(nil)
