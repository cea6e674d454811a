package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/coselection/internal/application/port"
	"github.com/garyjia/coselection/internal/domain/entity"
	"github.com/garyjia/coselection/internal/domain/workflow"
	"github.com/garyjia/coselection/internal/infrastructure/persistence/sqlite"
)

const leadColumns = `
	id, submitter_id, company_name, contact_name, contact_email, estimated_value,
	currency, description, status, owner_id, owner_name, version, created_at, updated_at`

// LeadRepository implements port.LeadRepository
type LeadRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *sql.DB, logger *zap.Logger) port.LeadRepository {
	return &LeadRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new lead row. The timeline is stored separately.
func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	query := `
		INSERT INTO leads (` + leadColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		lead.ID,
		lead.SubmitterID,
		lead.CompanyName,
		lead.ContactName,
		lead.ContactEmail,
		lead.EstimatedValue,
		lead.Currency,
		lead.Description,
		lead.Status,
		lead.OwnerID,
		lead.OwnerName,
		lead.Version,
		lead.CreatedAt.UTC(),
		lead.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create lead", zap.String("lead_id", lead.ID), zap.Error(err))
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

// GetByID retrieves a lead by ID
func (r *LeadRepository) GetByID(ctx context.Context, id string) (*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = ?`

	lead, err := scanLead(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lead %s: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get lead by ID", zap.String("lead_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

// List retrieves leads, newest first
func (r *LeadRepository) List(ctx context.Context, filter port.ListFilter) ([]*entity.Lead, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}

	query := `SELECT ` + leadColumns + ` FROM leads` + whereClause(where) + ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, limitOrDefault(filter.Limit), filter.Offset)

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list leads", zap.Error(err))
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var leads []*entity.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// UpdateStatus moves a lead from one status to another
func (r *LeadRepository) UpdateStatus(ctx context.Context, id string, from, to workflow.State, at time.Time) error {
	query := `UPDATE leads SET status = ?, updated_at = ? WHERE id = ? AND status = ?`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, to, at.UTC(), id, from)
	if err != nil {
		r.logger.Error("Failed to update lead status",
			zap.String("lead_id", id),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.Error(err))
		return fmt.Errorf("failed to update lead status: %w", err)
	}
	return expectOneRow(result, "lead", id)
}

// UpdateFields writes the editable details while the lead keeps the given status
func (r *LeadRepository) UpdateFields(ctx context.Context, lead *entity.Lead, status workflow.State) error {
	query := `
		UPDATE leads SET
			company_name = ?, contact_name = ?, contact_email = ?, estimated_value = ?,
			currency = ?, description = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		lead.CompanyName,
		lead.ContactName,
		lead.ContactEmail,
		lead.EstimatedValue,
		lead.Currency,
		lead.Description,
		lead.UpdatedAt.UTC(),
		lead.ID,
		status,
	)
	if err != nil {
		r.logger.Error("Failed to update lead fields", zap.String("lead_id", lead.ID), zap.Error(err))
		return fmt.Errorf("failed to update lead fields: %w", err)
	}
	return expectOneRow(result, "lead", lead.ID)
}

// SwapOwner writes lead.OwnerID, OwnerName and Version if the stored row still has
// expectedVersion, expectedOwner and the status the change was decided on (lead.Status)
func (r *LeadRepository) SwapOwner(ctx context.Context, lead *entity.Lead, expectedVersion int64, expectedOwner string) error {
	query := `
		UPDATE leads SET owner_id = ?, owner_name = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ? AND owner_id = ? AND status = ?
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		lead.OwnerID,
		lead.OwnerName,
		lead.Version,
		lead.UpdatedAt.UTC(),
		lead.ID,
		expectedVersion,
		expectedOwner,
		lead.Status,
	)
	if err != nil {
		r.logger.Error("Failed to swap lead owner", zap.String("lead_id", lead.ID), zap.Error(err))
		return fmt.Errorf("failed to swap lead owner: %w", err)
	}
	return expectOneRow(result, "lead", lead.ID)
}

func scanLead(row rowScanner) (*entity.Lead, error) {
	var lead entity.Lead
	err := row.Scan(
		&lead.ID,
		&lead.SubmitterID,
		&lead.CompanyName,
		&lead.ContactName,
		&lead.ContactEmail,
		&lead.EstimatedValue,
		&lead.Currency,
		&lead.Description,
		&lead.Status,
		&lead.OwnerID,
		&lead.OwnerName,
		&lead.Version,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func whereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}

func limitOrDefault(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}

// expectOneRow turns a conditional update that matched nothing into ErrStaleWrite
func expectOneRow(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, port.ErrStaleWrite)
	}
	return nil
}

var _ port.LeadRepository = (*LeadRepository)(nil)
