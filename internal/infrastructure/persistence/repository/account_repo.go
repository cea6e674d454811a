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
	"github.com/garyjia/coselection/internal/infrastructure/persistence/sqlite"
)

// AccountRepository implements port.AccountRepository
type AccountRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *sql.DB, logger *zap.Logger) port.AccountRepository {
	return &AccountRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an account
func (r *AccountRepository) Create(ctx context.Context, a *entity.Account) error {
	query := `
		INSERT INTO accounts (id, display_name, verification_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		a.ID, a.DisplayName, a.VerificationStatus, a.CreatedAt.UTC(), a.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create account", zap.String("account_id", a.ID), zap.Error(err))
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	query := `
		SELECT id, display_name, verification_status, created_at, updated_at
		FROM accounts WHERE id = ?
	`

	var a entity.Account
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.DisplayName, &a.VerificationStatus, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get account by ID", zap.String("account_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

// UpdateVerification sets the verification status
func (r *AccountRepository) UpdateVerification(ctx context.Context, id string, status entity.VerificationStatus, at time.Time) error {
	query := `UPDATE accounts SET verification_status = ?, updated_at = ? WHERE id = ?`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, status, at.UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update verification", zap.String("account_id", id), zap.Error(err))
		return fmt.Errorf("failed to update verification: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %s: %w", id, port.ErrNotFound)
	}
	return nil
}

// VerifiedIDs reports which of the given accounts are verified
func (r *AccountRepository) VerifiedIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	verified := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return verified, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := `SELECT id FROM accounts WHERE verification_status = ? AND id IN (` + placeholders + `)`

	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, entity.VerificationApproved)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query verified accounts", zap.Error(err))
		return nil, fmt.Errorf("failed to query verified accounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		verified[id] = true
	}
	return verified, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

var _ port.AccountRepository = (*AccountRepository)(nil)
