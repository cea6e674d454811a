package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/coselection/internal/application/dispatcher"
	"github.com/garyjia/coselection/internal/application/port"
	"github.com/garyjia/coselection/internal/domain/entity"
	"github.com/garyjia/coselection/internal/domain/lifecycle"
	"github.com/garyjia/coselection/internal/domain/permission"
	"github.com/garyjia/coselection/internal/domain/workflow"
)

// OpenDisputeInput describes a new dispute
type OpenDisputeInput struct {
	TransactionID string `json:"transaction_id"`
	Summary       string `json:"summary"`
}

// DisputeService manages dispute cases
type DisputeService interface {
	OpenDispute(ctx context.Context, actor permission.Actor, in OpenDisputeInput) (*entity.DisputeCase, error)
	GetDispute(ctx context.Context, id string) (*entity.DisputeCase, error)
	ListDisputes(ctx context.Context, filter port.ListFilter) ([]*entity.DisputeCase, error)
	TransitionDispute(ctx context.Context, id string, actor permission.Actor, in TransitionInput) (*entity.DisputeCase, error)

	// IntakeOpen moves open disputes to the waiting queue as System
	IntakeOpen(ctx context.Context, now time.Time) (lifecycle.DisputeSweepReport, error)
}

type disputeServiceImpl struct {
	disputeRepo  port.DisputeRepository
	txnRepo      port.TransactionRepository
	timelineRepo port.TimelineRepository
	txManager    port.TransactionManager
	publisher    publisher
	logger       Logger
	opts         options
	batchSize    int
}

// NewDisputeService creates a new DisputeService
func NewDisputeService(
	disputeRepo port.DisputeRepository,
	txnRepo port.TransactionRepository,
	timelineRepo port.TimelineRepository,
	txManager port.TransactionManager,
	d dispatcher.Dispatcher,
	logger Logger,
	batchSize int,
	opts ...Option,
) DisputeService {
	return &disputeServiceImpl{
		disputeRepo:  disputeRepo,
		txnRepo:      txnRepo,
		timelineRepo: timelineRepo,
		txManager:    txManager,
		publisher:    publisher{dispatcher: d},
		logger:       logger,
		opts:         buildOptions(opts),
		batchSize:    batchSize,
	}
}

// OpenDispute opens a case against an existing transaction
func (s *disputeServiceImpl) OpenDispute(ctx context.Context, actor permission.Actor, in OpenDisputeInput) (*entity.DisputeCase, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if _, err := s.txnRepo.GetByID(ctx, in.TransactionID); err != nil {
		return nil, err
	}

	dispute, err := lifecycle.NewDispute(in.TransactionID, in.Summary, actor)
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.disputeRepo.Create(txCtx, dispute); err != nil {
			return fmt.Errorf("create dispute: %w", err)
		}
		return s.timelineRepo.Append(txCtx, workflow.KindDispute, dispute.ID, dispute.Timeline[0])
	})
	if err != nil {
		s.logger.Error("Failed to open dispute", "error", err, "transaction_id", in.TransactionID)
		return nil, err
	}

	s.publisher.publish(ctx, workflow.KindDispute, dispute.ID, dispute.Timeline...)
	s.logger.Info("Dispute opened", "dispute_id", dispute.ID, "transaction_id", in.TransactionID)
	return dispute, nil
}

// GetDispute loads a dispute with its timeline
func (s *disputeServiceImpl) GetDispute(ctx context.Context, id string) (*entity.DisputeCase, error) {
	dispute, err := s.disputeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if dispute.Timeline, err = s.timelineRepo.ListByEntity(ctx, workflow.KindDispute, id); err != nil {
		return nil, err
	}
	return dispute, nil
}

// ListDisputes returns disputes without timelines
func (s *disputeServiceImpl) ListDisputes(ctx context.Context, filter port.ListFilter) ([]*entity.DisputeCase, error) {
	return s.disputeRepo.List(ctx, filter)
}

// TransitionDispute validates and persists a dispute status change
func (s *disputeServiceImpl) TransitionDispute(ctx context.Context, id string, actor permission.Actor, in TransitionInput) (*entity.DisputeCase, error) {
	current, err := s.GetDispute(ctx, id)
	if err != nil {
		return nil, err
	}

	change, err := lifecycle.ApplyDispute(current, lifecycle.Command{
		To:         in.To,
		Actor:      actor,
		ReasonCode: in.ReasonCode,
		Note:       in.Note,
		Outcome:    in.Outcome,
		Now:        s.opts.now(),
	})
	if err != nil {
		s.opts.metrics.ObserveTransition(workflow.KindDispute, in.To, outcomeLabel(err))
		return nil, err
	}

	err = s.persist(ctx, current.Status, change)
	s.opts.metrics.ObserveTransition(workflow.KindDispute, in.To, outcomeLabel(err))
	if err != nil {
		s.logger.Error("Failed to persist dispute transition", "error", err, "dispute_id", id)
		return nil, err
	}

	s.logger.Info("Dispute transitioned", "dispute_id", id, "from", current.Status, "to", change.Dispute.Status, "outcome", change.Dispute.Outcome)
	return change.Dispute, nil
}

// IntakeOpen runs the dispute intake pass
func (s *disputeServiceImpl) IntakeOpen(ctx context.Context, now time.Time) (lifecycle.DisputeSweepReport, error) {
	open, err := s.disputeRepo.List(ctx, port.ListFilter{Status: workflow.DisputeOpen, Limit: s.batchSize})
	if err != nil {
		return lifecycle.DisputeSweepReport{}, fmt.Errorf("list open disputes: %w", err)
	}

	report := lifecycle.SweepIntake(open, now)
	committed := lifecycle.DisputeSweepReport{
		Applied: []string{},
		Skipped: append([]string{}, report.Skipped...),
	}
	for _, change := range report.Changes {
		id := change.Dispute.ID
		if err := s.persist(ctx, change.Result.PreviousState, change); err != nil {
			if !lifecycle.IsSkippable(err) {
				s.logger.Error("Failed to persist dispute intake", "dispute_id", id, "error", err)
			}
			committed.Skipped = append(committed.Skipped, id)
			continue
		}
		committed.Applied = append(committed.Applied, id)
		committed.Changes = append(committed.Changes, change)
	}

	s.opts.metrics.ObserveSweep(PassIntake, len(committed.Applied), len(committed.Skipped))
	return committed, nil
}

func (s *disputeServiceImpl) persist(ctx context.Context, from workflow.State, change *lifecycle.DisputeChange) error {
	evt := change.Result.Event
	id := change.Dispute.ID

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.disputeRepo.Update(txCtx, change.Dispute, from); err != nil {
			if errors.Is(err, port.ErrStaleWrite) {
				return staleTransition(workflow.KindDispute, id, from, change.Dispute.Status)
			}
			return fmt.Errorf("update dispute: %w", err)
		}
		if err := s.timelineRepo.Append(txCtx, workflow.KindDispute, id, evt); err != nil {
			return fmt.Errorf("append dispute event: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publisher.publish(ctx, workflow.KindDispute, id, evt)
	return nil
}
