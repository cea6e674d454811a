package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/coselection/internal/application/dispatcher"
	"github.com/garyjia/coselection/internal/application/port"
	"github.com/garyjia/coselection/internal/domain/entity"
	"github.com/garyjia/coselection/internal/domain/event"
	"github.com/garyjia/coselection/internal/domain/lifecycle"
	"github.com/garyjia/coselection/internal/domain/permission"
	"github.com/garyjia/coselection/internal/domain/workflow"
)

// LeadService manages the lead lifecycle and the review queue
type LeadService interface {
	CreateLead(ctx context.Context, actor permission.Actor, fields entity.LeadFields) (*entity.Lead, error)
	GetLead(ctx context.Context, id string) (*entity.Lead, error)
	ListLeads(ctx context.Context, filter port.ListFilter) ([]*entity.Lead, error)
	UpdateLead(ctx context.Context, id string, actor permission.Actor, fields entity.LeadFields) (*entity.Lead, error)
	TransitionLead(ctx context.Context, id string, actor permission.Actor, in TransitionInput) (*entity.Lead, error)
	ClaimLead(ctx context.Context, id string, expectedVersion int64, actor permission.Actor) (*entity.Lead, error)
	ReleaseLead(ctx context.Context, id string, expectedVersion int64, actor permission.Actor) (*entity.Lead, error)
	AvailableTargets(ctx context.Context, id string, role permission.Role) ([]workflow.State, error)
}

type leadServiceImpl struct {
	leadRepo     port.LeadRepository
	timelineRepo port.TimelineRepository
	txManager    port.TransactionManager
	publisher    publisher
	logger       Logger
	opts         options
}

// NewLeadService creates a new LeadService
func NewLeadService(
	leadRepo port.LeadRepository,
	timelineRepo port.TimelineRepository,
	txManager port.TransactionManager,
	d dispatcher.Dispatcher,
	logger Logger,
	opts ...Option,
) LeadService {
	return &leadServiceImpl{
		leadRepo:     leadRepo,
		timelineRepo: timelineRepo,
		txManager:    txManager,
		publisher:    publisher{dispatcher: d},
		logger:       logger,
		opts:         buildOptions(opts),
	}
}

// CreateLead stores a new draft lead with its Created event
func (s *leadServiceImpl) CreateLead(ctx context.Context, actor permission.Actor, fields entity.LeadFields) (*entity.Lead, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	lead, err := lifecycle.NewLead(fields, actor)
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.leadRepo.Create(txCtx, lead); err != nil {
			return fmt.Errorf("create lead: %w", err)
		}
		return s.appendEvents(txCtx, lead.ID, lead.Timeline...)
	})
	if err != nil {
		s.logger.Error("Failed to create lead", "error", err, "submitter_id", actor.ID)
		return nil, err
	}

	s.publisher.publish(ctx, workflow.KindLead, lead.ID, lead.Timeline...)
	s.logger.Info("Lead created", "lead_id", lead.ID, "submitter_id", actor.ID)
	return lead, nil
}

// GetLead loads a lead with its full timeline
func (s *leadServiceImpl) GetLead(ctx context.Context, id string) (*entity.Lead, error) {
	lead, err := s.leadRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead.Timeline, err = s.timelineRepo.ListByEntity(ctx, workflow.KindLead, id); err != nil {
		s.logger.Error("Failed to load lead timeline", "error", err, "lead_id", id)
		return nil, err
	}
	return lead, nil
}

// ListLeads returns leads without timelines
func (s *leadServiceImpl) ListLeads(ctx context.Context, filter port.ListFilter) ([]*entity.Lead, error) {
	leads, err := s.leadRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list leads", "error", err)
		return nil, err
	}
	return leads, nil
}

// UpdateLead edits a lead's details while it is with its submitter
func (s *leadServiceImpl) UpdateLead(ctx context.Context, id string, actor permission.Actor, fields entity.LeadFields) (*entity.Lead, error) {
	current, err := s.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := lifecycle.UpdateLeadFields(current, fields, actor)
	if err != nil {
		return nil, err
	}
	evt, _ := updated.Timeline.Last()

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.leadRepo.UpdateFields(txCtx, updated, current.Status); err != nil {
			if errors.Is(err, port.ErrStaleWrite) {
				return staleTransition(workflow.KindLead, id, current.Status, current.Status)
			}
			return fmt.Errorf("update lead fields: %w", err)
		}
		return s.appendEvents(txCtx, id, evt)
	})
	if err != nil {
		s.logger.Error("Failed to update lead", "error", err, "lead_id", id)
		return nil, err
	}

	s.publisher.publish(ctx, workflow.KindLead, id, evt)
	s.logger.Info("Lead updated", "lead_id", id, "fields", evt.Meta(event.MetaFields))
	return updated, nil
}

// TransitionLead validates and persists a status change
func (s *leadServiceImpl) TransitionLead(ctx context.Context, id string, actor permission.Actor, in TransitionInput) (*entity.Lead, error) {
	current, err := s.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}

	change, err := lifecycle.ApplyLead(current, lifecycle.Command{
		To:         in.To,
		Actor:      actor,
		ReasonCode: in.ReasonCode,
		Note:       in.Note,
		Now:        s.opts.now(),
	})
	if err != nil {
		s.opts.metrics.ObserveTransition(workflow.KindLead, in.To, outcomeLabel(err))
		s.logger.Info("Lead transition rejected", "lead_id", id, "to", in.To, "error", err)
		return nil, err
	}

	evt := change.Result.Event
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.leadRepo.UpdateStatus(txCtx, id, current.Status, change.Lead.Status, evt.OccurredAt); err != nil {
			if errors.Is(err, port.ErrStaleWrite) {
				return staleTransition(workflow.KindLead, id, current.Status, in.To)
			}
			return fmt.Errorf("update lead status: %w", err)
		}
		return s.appendEvents(txCtx, id, evt)
	})
	s.opts.metrics.ObserveTransition(workflow.KindLead, in.To, outcomeLabel(err))
	if err != nil {
		s.logger.Error("Failed to persist lead transition", "error", err, "lead_id", id)
		return nil, err
	}

	s.publisher.publish(ctx, workflow.KindLead, id, evt)
	s.logger.Info("Lead transitioned",
		"lead_id", id,
		"from", current.Status,
		"to", change.Lead.Status,
		"actor_id", actor.ID,
	)
	return change.Lead, nil
}

// ClaimLead assigns an unowned queued lead to the actor. A lost race, whether detected
// on the snapshot or by the conditional update, returns ErrAlreadyClaimed.
func (s *leadServiceImpl) ClaimLead(ctx context.Context, id string, expectedVersion int64, actor permission.Actor) (*entity.Lead, error) {
	current, err := s.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}

	claimed, err := lifecycle.Claim(current, expectedVersion, actor)
	if err == nil {
		err = s.swapOwner(ctx, claimed, expectedVersion, "")
	}
	s.opts.metrics.ObserveClaim(outcomeLabel(err))
	if err != nil {
		s.logger.Info("Lead claim rejected", "lead_id", id, "actor_id", actor.ID, "error", err)
		return nil, err
	}

	s.logger.Info("Lead claimed", "lead_id", id, "owner_id", actor.ID, "version", claimed.Version)
	return claimed, nil
}

// ReleaseLead gives up ownership of a lead
func (s *leadServiceImpl) ReleaseLead(ctx context.Context, id string, expectedVersion int64, actor permission.Actor) (*entity.Lead, error) {
	current, err := s.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}

	released, err := lifecycle.Release(current, expectedVersion, actor)
	if err != nil {
		return nil, err
	}
	if err := s.swapOwner(ctx, released, expectedVersion, current.OwnerID); err != nil {
		s.logger.Error("Failed to release lead", "error", err, "lead_id", id)
		return nil, err
	}

	s.logger.Info("Lead released", "lead_id", id, "actor_id", actor.ID)
	return released, nil
}

// AvailableTargets lists the states the role may move the lead to next
func (s *leadServiceImpl) AvailableTargets(ctx context.Context, id string, role permission.Role) ([]workflow.State, error) {
	lead, err := s.leadRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return workflow.MustMachine(workflow.KindLead).TargetsFor(lead.Status, role), nil
}

func (s *leadServiceImpl) swapOwner(ctx context.Context, lead *entity.Lead, expectedVersion int64, expectedOwner string) error {
	evt, _ := lead.Timeline.Last()
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.leadRepo.SwapOwner(txCtx, lead, expectedVersion, expectedOwner); err != nil {
			if errors.Is(err, port.ErrStaleWrite) {
				return &workflow.Error{
					Code:     workflow.ErrAlreadyClaimed,
					Kind:     workflow.KindLead,
					EntityID: lead.ID,
					Message:  "lead was claimed or changed by someone else",
				}
			}
			return fmt.Errorf("swap lead owner: %w", err)
		}
		return s.appendEvents(txCtx, lead.ID, evt)
	})
	if err != nil {
		return err
	}
	s.publisher.publish(ctx, workflow.KindLead, lead.ID, evt)
	return nil
}

func (s *leadServiceImpl) appendEvents(ctx context.Context, id string, events ...event.Event) error {
	for _, evt := range events {
		if err := s.timelineRepo.Append(ctx, workflow.KindLead, id, evt); err != nil {
			return fmt.Errorf("append lead event: %w", err)
		}
	}
	return nil
}
