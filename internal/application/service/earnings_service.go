package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/coselection/internal/application/dispatcher"
	"github.com/garyjia/coselection/internal/application/port"
	"github.com/garyjia/coselection/internal/domain/entity"
	"github.com/garyjia/coselection/internal/domain/event"
	"github.com/garyjia/coselection/internal/domain/lifecycle"
	"github.com/garyjia/coselection/internal/domain/permission"
	"github.com/garyjia/coselection/internal/domain/workflow"
)

// Sweep pass names used in logs and metrics
const (
	PassLock    = "lock"
	PassRelease = "release"
	PassIntake  = "dispute_intake"
)

// RecordTransactionInput describes a commission to record. A zero LockEndAt means
// now plus the configured lock period.
type RecordTransactionInput struct {
	AccountID string    `json:"account_id"`
	LeadID    string    `json:"lead_id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	LockEndAt time.Time `json:"lock_end_at"`
}

// TransactionOutcome is the original after a transition, plus the adjustment a
// reversal of committed earnings created
type TransactionOutcome struct {
	Transaction *entity.EarningsTransaction `json:"transaction"`
	Adjustment  *entity.EarningsTransaction `json:"adjustment,omitempty"`
}

// EarningsService manages earnings transactions and the time-driven passes over them
type EarningsService interface {
	RecordTransaction(ctx context.Context, actor permission.Actor, in RecordTransactionInput) (*entity.EarningsTransaction, error)
	GetTransaction(ctx context.Context, id string) (*entity.EarningsTransaction, error)
	ListTransactions(ctx context.Context, filter port.ListFilter) ([]*entity.EarningsTransaction, error)
	TransitionTransaction(ctx context.Context, id string, actor permission.Actor, in TransitionInput) (*TransactionOutcome, error)

	// SweepLocks locks every due pending transaction, up to the batch size
	SweepLocks(ctx context.Context, now time.Time) (lifecycle.SweepReport, error)

	// ReleaseEligible makes locked transactions of verified accounts payable
	ReleaseEligible(ctx context.Context, now time.Time) (lifecycle.SweepReport, error)
}

type earningsServiceImpl struct {
	txnRepo      port.TransactionRepository
	accountRepo  port.AccountRepository
	timelineRepo port.TimelineRepository
	txManager    port.TransactionManager
	publisher    publisher
	logger       Logger
	opts         options

	lockPeriod time.Duration
	batchSize  int
}

// NewEarningsService creates a new EarningsService
func NewEarningsService(
	txnRepo port.TransactionRepository,
	accountRepo port.AccountRepository,
	timelineRepo port.TimelineRepository,
	txManager port.TransactionManager,
	d dispatcher.Dispatcher,
	logger Logger,
	lockPeriod time.Duration,
	batchSize int,
	opts ...Option,
) EarningsService {
	return &earningsServiceImpl{
		txnRepo:      txnRepo,
		accountRepo:  accountRepo,
		timelineRepo: timelineRepo,
		txManager:    txManager,
		publisher:    publisher{dispatcher: d},
		logger:       logger,
		opts:         buildOptions(opts),
		lockPeriod:   lockPeriod,
		batchSize:    batchSize,
	}
}

// RecordTransaction stores a pending commission for an existing account
func (s *earningsServiceImpl) RecordTransaction(ctx context.Context, actor permission.Actor, in RecordTransactionInput) (*entity.EarningsTransaction, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if _, err := s.accountRepo.GetByID(ctx, in.AccountID); err != nil {
		return nil, err
	}

	lockEnd := in.LockEndAt
	if lockEnd.IsZero() {
		lockEnd = s.opts.now().Add(s.lockPeriod)
	}

	txn, err := lifecycle.NewTransaction(lifecycle.NewTransactionInput{
		AccountID: in.AccountID,
		LeadID:    in.LeadID,
		Amount:    in.Amount,
		Currency:  in.Currency,
		LockEndAt: lockEnd,
	}, actor)
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.txnRepo.Create(txCtx, txn); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		return s.appendEvents(txCtx, txn.ID, txn.Timeline...)
	})
	if err != nil {
		s.logger.Error("Failed to record transaction", "error", err, "account_id", in.AccountID)
		return nil, err
	}

	s.publisher.publish(ctx, workflow.KindTransaction, txn.ID, txn.Timeline...)
	s.logger.Info("Transaction recorded", "transaction_id", txn.ID, "amount", txn.Amount, "lock_end_at", txn.LockEndAt)
	return txn, nil
}

// GetTransaction loads a transaction with its timeline
func (s *earningsServiceImpl) GetTransaction(ctx context.Context, id string) (*entity.EarningsTransaction, error) {
	txn, err := s.txnRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn.Timeline, err = s.timelineRepo.ListByEntity(ctx, workflow.KindTransaction, id); err != nil {
		s.logger.Error("Failed to load transaction timeline", "error", err, "transaction_id", id)
		return nil, err
	}
	return txn, nil
}

// ListTransactions returns transactions without timelines
func (s *earningsServiceImpl) ListTransactions(ctx context.Context, filter port.ListFilter) ([]*entity.EarningsTransaction, error) {
	txns, err := s.txnRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list transactions", "error", err)
		return nil, err
	}
	return txns, nil
}

// TransitionTransaction validates and persists a state change or an adjustment
func (s *earningsServiceImpl) TransitionTransaction(ctx context.Context, id string, actor permission.Actor, in TransitionInput) (*TransactionOutcome, error) {
	current, err := s.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	verified := false
	if in.To == workflow.TransactionPayable {
		account, err := s.accountRepo.GetByID(ctx, current.AccountID)
		if err != nil && !errors.Is(err, port.ErrNotFound) {
			return nil, err
		}
		verified = account.IsVerified()
	}

	change, err := lifecycle.ApplyTransaction(current, lifecycle.Command{
		To:         in.To,
		Actor:      actor,
		ReasonCode: in.ReasonCode,
		Note:       in.Note,
		Now:        s.opts.now(),
	}, verified)
	if err != nil {
		s.opts.metrics.ObserveTransition(workflow.KindTransaction, in.To, outcomeLabel(err))
		s.logger.Info("Transaction transition rejected", "transaction_id", id, "to", in.To, "error", err)
		return nil, err
	}

	err = s.persist(ctx, current.State, change)
	s.opts.metrics.ObserveTransition(workflow.KindTransaction, in.To, outcomeLabel(err))
	if err != nil {
		s.logger.Error("Failed to persist transaction transition", "error", err, "transaction_id", id)
		return nil, err
	}

	s.logger.Info("Transaction transitioned",
		"transaction_id", id,
		"from", current.State,
		"to", in.To,
		"adjustment", change.Adjustment != nil,
		"actor_id", actor.ID,
	)
	return &TransactionOutcome{Transaction: change.Transaction, Adjustment: change.Adjustment}, nil
}

// SweepLocks runs the lock sweep over the oldest pending transactions
func (s *earningsServiceImpl) SweepLocks(ctx context.Context, now time.Time) (lifecycle.SweepReport, error) {
	pending, err := s.txnRepo.ListByState(ctx, workflow.TransactionPending, s.batchSize)
	if err != nil {
		return lifecycle.SweepReport{}, fmt.Errorf("list pending transactions: %w", err)
	}

	report := lifecycle.Sweep(pending, now)
	return s.commitSweep(ctx, PassLock, report), nil
}

// ReleaseEligible runs the release pass over locked transactions
func (s *earningsServiceImpl) ReleaseEligible(ctx context.Context, now time.Time) (lifecycle.SweepReport, error) {
	locked, err := s.txnRepo.ListByState(ctx, workflow.TransactionLocked, s.batchSize)
	if err != nil {
		return lifecycle.SweepReport{}, fmt.Errorf("list locked transactions: %w", err)
	}

	ids := make([]string, 0, len(locked))
	for _, txn := range locked {
		ids = append(ids, txn.AccountID)
	}
	verified, err := s.accountRepo.VerifiedIDs(ctx, ids)
	if err != nil {
		return lifecycle.SweepReport{}, fmt.Errorf("load account verification: %w", err)
	}

	report := lifecycle.SweepRelease(locked, now, func(accountID string) bool {
		return verified[accountID]
	})
	return s.commitSweep(ctx, PassRelease, report), nil
}

// commitSweep persists each applied change on its own. A change that loses to a
// concurrent writer moves to skipped.
func (s *earningsServiceImpl) commitSweep(ctx context.Context, pass string, report lifecycle.SweepReport) lifecycle.SweepReport {
	committed := lifecycle.SweepReport{
		Applied: []string{},
		Skipped: append([]string{}, report.Skipped...),
	}

	for _, change := range report.Changes {
		id := change.Result.EntityID
		err := s.persist(ctx, change.Result.PreviousState, change)
		if err != nil {
			if !lifecycle.IsSkippable(err) {
				s.logger.Error("Failed to persist sweep change", "pass", pass, "transaction_id", id, "error", err)
			}
			committed.Skipped = append(committed.Skipped, id)
			continue
		}
		committed.Applied = append(committed.Applied, id)
		committed.Changes = append(committed.Changes, change)
	}

	s.opts.metrics.ObserveSweep(pass, len(committed.Applied), len(committed.Skipped))
	if len(committed.Applied) > 0 {
		s.logger.Info("Sweep applied", "pass", pass, "applied", len(committed.Applied), "skipped", len(committed.Skipped))
	}
	return committed
}

// persist writes the state change, the optional adjustment and all events as one unit
func (s *earningsServiceImpl) persist(ctx context.Context, from workflow.State, change *lifecycle.TransactionChange) error {
	result := change.Result
	id := result.EntityID

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		if adj := change.Adjustment; adj != nil {
			err = s.txnRepo.MarkReversed(txCtx, id, from, adj.ID, result.Event.OccurredAt)
		} else {
			err = s.txnRepo.UpdateState(txCtx, id, from, result.NewState, result.Event.OccurredAt)
		}
		if err != nil {
			if errors.Is(err, port.ErrStaleWrite) {
				return staleTransition(workflow.KindTransaction, id, from, change.Transaction.State)
			}
			return fmt.Errorf("update transaction: %w", err)
		}
		if err := s.appendEvents(txCtx, id, result.Event); err != nil {
			return err
		}

		if adj := change.Adjustment; adj != nil {
			if err := s.txnRepo.Create(txCtx, adj); err != nil {
				return fmt.Errorf("create adjustment: %w", err)
			}
			if err := s.appendEvents(txCtx, adj.ID, adj.Timeline...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publisher.publish(ctx, workflow.KindTransaction, id, result.Event)
	if adj := change.Adjustment; adj != nil {
		s.publisher.publish(ctx, workflow.KindTransaction, adj.ID, adj.Timeline...)
	}
	return nil
}

func (s *earningsServiceImpl) appendEvents(ctx context.Context, id string, events ...event.Event) error {
	for _, evt := range events {
		if err := s.timelineRepo.Append(ctx, workflow.KindTransaction, id, evt); err != nil {
			return fmt.Errorf("append transaction event: %w", err)
		}
	}
	return nil
}
