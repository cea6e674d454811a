package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/coselection/internal/application/dispatcher"
	"github.com/garyjia/coselection/internal/application/port"
	"github.com/garyjia/coselection/internal/domain/entity"
	"github.com/garyjia/coselection/internal/domain/lifecycle"
	"github.com/garyjia/coselection/internal/domain/permission"
	"github.com/garyjia/coselection/internal/domain/workflow"
)

// RequestPayoutInput describes a payout request
type RequestPayoutInput struct {
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

// PayoutService manages payout requests
type PayoutService interface {
	RequestPayout(ctx context.Context, actor permission.Actor, in RequestPayoutInput) (*entity.Payout, error)
	GetPayout(ctx context.Context, id string) (*entity.Payout, error)
	ListPayouts(ctx context.Context, filter port.ListFilter) ([]*entity.Payout, error)
	TransitionPayout(ctx context.Context, id string, actor permission.Actor, in TransitionInput) (*entity.Payout, error)
}

type payoutServiceImpl struct {
	payoutRepo   port.PayoutRepository
	accountRepo  port.AccountRepository
	timelineRepo port.TimelineRepository
	txManager    port.TransactionManager
	publisher    publisher
	logger       Logger
	opts         options
}

// NewPayoutService creates a new PayoutService
func NewPayoutService(
	payoutRepo port.PayoutRepository,
	accountRepo port.AccountRepository,
	timelineRepo port.TimelineRepository,
	txManager port.TransactionManager,
	d dispatcher.Dispatcher,
	logger Logger,
	opts ...Option,
) PayoutService {
	return &payoutServiceImpl{
		payoutRepo:   payoutRepo,
		accountRepo:  accountRepo,
		timelineRepo: timelineRepo,
		txManager:    txManager,
		publisher:    publisher{dispatcher: d},
		logger:       logger,
		opts:         buildOptions(opts),
	}
}

// RequestPayout stores a payout request. Verification is checked by finance on review.
func (s *payoutServiceImpl) RequestPayout(ctx context.Context, actor permission.Actor, in RequestPayoutInput) (*entity.Payout, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if _, err := s.accountRepo.GetByID(ctx, in.AccountID); err != nil {
		return nil, err
	}

	payout, err := lifecycle.NewPayout(in.AccountID, in.Amount, in.Currency, actor)
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.payoutRepo.Create(txCtx, payout); err != nil {
			return fmt.Errorf("create payout: %w", err)
		}
		for _, evt := range payout.Timeline {
			if err := s.timelineRepo.Append(txCtx, workflow.KindPayout, payout.ID, evt); err != nil {
				return fmt.Errorf("append payout event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to request payout", "error", err, "account_id", in.AccountID)
		return nil, err
	}

	s.publisher.publish(ctx, workflow.KindPayout, payout.ID, payout.Timeline...)
	s.logger.Info("Payout requested", "payout_id", payout.ID, "account_id", payout.AccountID, "amount", payout.Amount)
	return payout, nil
}

// GetPayout loads a payout with its timeline
func (s *payoutServiceImpl) GetPayout(ctx context.Context, id string) (*entity.Payout, error) {
	payout, err := s.payoutRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payout.Timeline, err = s.timelineRepo.ListByEntity(ctx, workflow.KindPayout, id); err != nil {
		return nil, err
	}
	return payout, nil
}

// ListPayouts returns payouts without timelines
func (s *payoutServiceImpl) ListPayouts(ctx context.Context, filter port.ListFilter) ([]*entity.Payout, error) {
	return s.payoutRepo.List(ctx, filter)
}

// TransitionPayout validates and persists a payout status change
func (s *payoutServiceImpl) TransitionPayout(ctx context.Context, id string, actor permission.Actor, in TransitionInput) (*entity.Payout, error) {
	current, err := s.GetPayout(ctx, id)
	if err != nil {
		return nil, err
	}

	change, err := lifecycle.ApplyPayout(current, lifecycle.Command{
		To:         in.To,
		Actor:      actor,
		ReasonCode: in.ReasonCode,
		Note:       in.Note,
		Now:        s.opts.now(),
	})
	if err != nil {
		s.opts.metrics.ObserveTransition(workflow.KindPayout, in.To, outcomeLabel(err))
		return nil, err
	}

	evt := change.Result.Event
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.payoutRepo.UpdateStatus(txCtx, id, current.Status, change.Payout.Status, evt.OccurredAt); err != nil {
			if errors.Is(err, port.ErrStaleWrite) {
				return staleTransition(workflow.KindPayout, id, current.Status, in.To)
			}
			return fmt.Errorf("update payout status: %w", err)
		}
		if err := s.timelineRepo.Append(txCtx, workflow.KindPayout, id, evt); err != nil {
			return fmt.Errorf("append payout event: %w", err)
		}
		return nil
	})
	s.opts.metrics.ObserveTransition(workflow.KindPayout, in.To, outcomeLabel(err))
	if err != nil {
		s.logger.Error("Failed to persist payout transition", "error", err, "payout_id", id)
		return nil, err
	}

	s.publisher.publish(ctx, workflow.KindPayout, id, evt)
	s.logger.Info("Payout transitioned", "payout_id", id, "from", current.Status, "to", change.Payout.Status)
	return change.Payout, nil
}
