package service

import (
	"context"
	"strings"

	"github.com/garyjia/coselection/internal/application/port"
	"github.com/garyjia/coselection/internal/domain/entity"
	"github.com/garyjia/coselection/internal/domain/permission"
	"github.com/garyjia/coselection/internal/domain/workflow"
	"github.com/garyjia/coselection/pkg/utils"
)

// RegisterAccountInput describes a partner account
type RegisterAccountInput struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// AccountService manages partner accounts and their verification status
type AccountService interface {
	RegisterAccount(ctx context.Context, actor permission.Actor, in RegisterAccountInput) (*entity.Account, error)
	GetAccount(ctx context.Context, id string) (*entity.Account, error)
	SetVerification(ctx context.Context, id string, actor permission.Actor, status entity.VerificationStatus) (*entity.Account, error)
}

type accountServiceImpl struct {
	accountRepo port.AccountRepository
	logger      Logger
	opts        options
}

// NewAccountService creates a new AccountService
func NewAccountService(accountRepo port.AccountRepository, logger Logger, opts ...Option) AccountService {
	return &accountServiceImpl{
		accountRepo: accountRepo,
		logger:      logger,
		opts:        buildOptions(opts),
	}
}

// RegisterAccount creates an account in pending verification
func (s *accountServiceImpl) RegisterAccount(ctx context.Context, actor permission.Actor, in RegisterAccountInput) (*entity.Account, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	id := strings.TrimSpace(in.ID)
	if err := utils.ValidateAccountID(id); err != nil {
		return nil, &workflow.Error{Code: workflow.ErrValidation, Message: err.Error(), Fields: []string{"id"}}
	}

	now := s.opts.now().UTC()
	account := &entity.Account{
		ID:                 id,
		DisplayName:        utils.SanitizeString(in.DisplayName),
		VerificationStatus: entity.VerificationPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if account.DisplayName == "" {
		account.DisplayName = id
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		s.logger.Error("Failed to register account", "error", err, "account_id", id)
		return nil, err
	}

	s.logger.Info("Account registered", "account_id", id, "actor_id", actor.ID)
	return account, nil
}

// GetAccount retrieves an account
func (s *accountServiceImpl) GetAccount(ctx context.Context, id string) (*entity.Account, error) {
	return s.accountRepo.GetByID(ctx, id)
}

// SetVerification records the outcome of a verification check
func (s *accountServiceImpl) SetVerification(ctx context.Context, id string, actor permission.Actor, status entity.VerificationStatus) (*entity.Account, error) {
	if !permission.IsAllowed(actor.Role, permission.ActionAccountVerify) {
		return nil, &workflow.Error{
			Code:    workflow.ErrPermissionDenied,
			Message: permission.DenialReason(permission.ActionAccountVerify),
		}
	}
	if !status.IsValid() {
		return nil, &workflow.Error{
			Code:    workflow.ErrValidation,
			Message: "unknown verification status " + string(status),
			Fields:  []string{"verification_status"},
		}
	}

	if err := s.accountRepo.UpdateVerification(ctx, id, status, s.opts.now()); err != nil {
		s.logger.Error("Failed to update verification", "error", err, "account_id", id)
		return nil, err
	}

	s.logger.Info("Account verification updated", "account_id", id, "status", status, "actor_id", actor.ID)
	return s.accountRepo.GetByID(ctx, id)
}
