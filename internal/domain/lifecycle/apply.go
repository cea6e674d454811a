// Package lifecycle applies state machine results to entity snapshots. Every function
// here works on a copy: the snapshot passed in is never modified, and on error nothing
// is returned but the error.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/coselection/internal/domain/entity"
	"github.com/garyjia/coselection/internal/domain/event"
	"github.com/garyjia/coselection/internal/domain/permission"
	"github.com/garyjia/coselection/internal/domain/workflow"
)

// Command is what a caller asks for: a target state plus the reason payload
type Command struct {
	To         workflow.State
	Actor      permission.Actor
	ReasonCode workflow.ReasonCode
	Note       string
	Outcome    workflow.Outcome
	Now        time.Time
}

// LeadChange is the new lead snapshot and the result that produced it
type LeadChange struct {
	Lead   *entity.Lead
	Result *workflow.Result
}

// TransactionChange holds the updated original and, for a reversal of committed
// earnings, the adjustment transaction to insert
type TransactionChange struct {
	Transaction *entity.EarningsTransaction
	Adjustment  *entity.EarningsTransaction
	Result      *workflow.Result
}

// PayoutChange is the new payout snapshot and its result
type PayoutChange struct {
	Payout *entity.Payout
	Result *workflow.Result
}

// DisputeChange is the new dispute snapshot and its result
type DisputeChange struct {
	Dispute *entity.DisputeCase
	Result  *workflow.Result
}

// ApplyLead runs a lead transition
func ApplyLead(lead *entity.Lead, cmd Command) (*LeadChange, error) {
	result, err := workflow.Transition(workflow.KindLead, workflow.Request{
		EntityID:   lead.ID,
		From:       lead.Status,
		To:         cmd.To,
		Actor:      cmd.Actor,
		ReasonCode: cmd.ReasonCode,
		Note:       cmd.Note,
		Facts: workflow.Facts{
			Now:           cmd.Now,
			MissingFields: lead.MissingFields(),
		},
	})
	if err != nil {
		return nil, err
	}

	next := lead.Clone()
	next.Status = result.NewState
	next.UpdatedAt = result.Event.OccurredAt
	if next.Timeline, err = next.Timeline.Append(result.Event); err != nil {
		return nil, fmt.Errorf("append lead event: %w", err)
	}
	return &LeadChange{Lead: next, Result: result}, nil
}

// ApplyTransaction runs an earnings transaction transition. verified is the verification
// status of the owning account, read by the eligibility guard.
func ApplyTransaction(txn *entity.EarningsTransaction, cmd Command, verified bool) (*TransactionChange, error) {
	result, err := workflow.Transition(workflow.KindTransaction, workflow.Request{
		EntityID:   txn.ID,
		From:       txn.State,
		To:         cmd.To,
		Actor:      cmd.Actor,
		ReasonCode: cmd.ReasonCode,
		Note:       cmd.Note,
		Facts: workflow.Facts{
			Now:                  cmd.Now,
			LockEndAt:            txn.LockEndAt,
			VerificationApproved: verified,
			Amount:               txn.Amount,
			ReversedBy:           txn.ReversedBy,
		},
	})
	if err != nil {
		return nil, err
	}

	next := txn.Clone()
	next.State = result.NewState
	next.UpdatedAt = result.Event.OccurredAt
	if next.Timeline, err = next.Timeline.Append(result.Event); err != nil {
		return nil, fmt.Errorf("append transaction event: %w", err)
	}

	change := &TransactionChange{Transaction: next, Result: result}
	if result.Adjustment != nil {
		change.Adjustment, err = newAdjustment(txn, result, cmd)
		if err != nil {
			return nil, err
		}
		next.ReversedBy = change.Adjustment.ID
	}
	return change, nil
}

func newAdjustment(original *entity.EarningsTransaction, result *workflow.Result, cmd Command) (*entity.EarningsTransaction, error) {
	adj := result.Adjustment
	opts := []event.Option{
		event.WithMetadata(map[string]string{
			event.MetaOriginalID: original.ID,
			event.MetaAmount:     fmt.Sprintf("%d", adj.Amount),
			event.MetaNewState:   adj.State.String(),
		}),
	}
	if cmd.ReasonCode != "" {
		opts = append(opts, event.WithReason(cmd.ReasonCode.String()))
	}
	if cmd.Note != "" {
		opts = append(opts, event.WithNote(cmd.Note))
	}
	created := event.NewEvent(cmd.Actor, event.KindCreated,
		fmt.Sprintf("Adjustment of %d for transaction %s", adj.Amount, original.ID), opts...)

	var timeline entity.Timeline
	timeline, err := timeline.Append(created)
	if err != nil {
		return nil, fmt.Errorf("append adjustment event: %w", err)
	}

	return &entity.EarningsTransaction{
		ID:         adj.ID,
		AccountID:  original.AccountID,
		LeadID:     original.LeadID,
		Amount:     adj.Amount,
		Currency:   original.Currency,
		State:      adj.State,
		OriginalID: original.ID,
		CreatedAt:  created.OccurredAt,
		UpdatedAt:  created.OccurredAt,
		Timeline:   timeline,
	}, nil
}

// ApplyPayout runs a payout transition
func ApplyPayout(payout *entity.Payout, cmd Command) (*PayoutChange, error) {
	result, err := workflow.Transition(workflow.KindPayout, workflow.Request{
		EntityID:   payout.ID,
		From:       payout.Status,
		To:         cmd.To,
		Actor:      cmd.Actor,
		ReasonCode: cmd.ReasonCode,
		Note:       cmd.Note,
		Facts:      workflow.Facts{Now: cmd.Now, Amount: payout.Amount},
	})
	if err != nil {
		return nil, err
	}

	next := payout.Clone()
	next.Status = result.NewState
	next.UpdatedAt = result.Event.OccurredAt
	if next.Timeline, err = next.Timeline.Append(result.Event); err != nil {
		return nil, fmt.Errorf("append payout event: %w", err)
	}
	return &PayoutChange{Payout: next, Result: result}, nil
}

// ApplyDispute runs a dispute transition. A resolving transition sets the outcome.
func ApplyDispute(dispute *entity.DisputeCase, cmd Command) (*DisputeChange, error) {
	result, err := workflow.Transition(workflow.KindDispute, workflow.Request{
		EntityID:   dispute.ID,
		From:       dispute.Status,
		To:         cmd.To,
		Actor:      cmd.Actor,
		ReasonCode: cmd.ReasonCode,
		Note:       cmd.Note,
		Outcome:    cmd.Outcome,
		Facts:      workflow.Facts{Now: cmd.Now},
	})
	if err != nil {
		return nil, err
	}

	next := dispute.Clone()
	next.Status = result.NewState
	next.UpdatedAt = result.Event.OccurredAt
	if result.Effect.Has(workflow.EffectOutcome) {
		next.Outcome = result.Outcome
		resolvedAt := result.Event.OccurredAt
		next.ResolvedAt = &resolvedAt
	}
	if next.Timeline, err = next.Timeline.Append(result.Event); err != nil {
		return nil, fmt.Errorf("append dispute event: %w", err)
	}
	return &DisputeChange{Dispute: next, Result: result}, nil
}

// UpdateLeadFields edits a lead's details while it is with its submitter
func UpdateLeadFields(lead *entity.Lead, fields entity.LeadFields, actor permission.Actor) (*entity.Lead, error) {
	if lead.Status != workflow.LeadDraft && lead.Status != workflow.LeadInfoRequested {
		return nil, &workflow.Error{
			Code:     workflow.ErrInvalidTransition,
			Kind:     workflow.KindLead,
			EntityID: lead.ID,
			From:     lead.Status,
			To:       lead.Status,
			Message:  fmt.Sprintf("a %s lead cannot be edited", lead.Status),
		}
	}
	if !permission.IsAllowed(actor.Role, permission.ActionLeadEdit) || actor.ID != lead.SubmitterID {
		return nil, &workflow.Error{
			Code:     workflow.ErrPermissionDenied,
			Kind:     workflow.KindLead,
			EntityID: lead.ID,
			Message:  permission.DenialReason(permission.ActionLeadEdit),
		}
	}

	next := lead.Clone()
	next.ApplyFields(fields)
	changed := changedFields(lead, next)

	evt := event.NewEvent(actor, event.KindFieldsUpdated, "Lead details updated",
		event.WithMetadata(map[string]string{
			event.MetaPreviousState: lead.Status.String(),
			event.MetaNewState:      next.Status.String(),
			event.MetaFields:        strings.Join(changed, ","),
		}))

	var err error
	if next.Timeline, err = next.Timeline.Append(evt); err != nil {
		return nil, fmt.Errorf("append lead event: %w", err)
	}
	next.UpdatedAt = evt.OccurredAt
	return next, nil
}

func changedFields(before, after *entity.Lead) []string {
	var changed []string
	if before.CompanyName != after.CompanyName {
		changed = append(changed, "company_name")
	}
	if before.ContactName != after.ContactName {
		changed = append(changed, "contact_name")
	}
	if before.ContactEmail != after.ContactEmail {
		changed = append(changed, "contact_email")
	}
	if before.EstimatedValue != after.EstimatedValue {
		changed = append(changed, "estimated_value")
	}
	if before.Currency != after.Currency {
		changed = append(changed, "currency")
	}
	if before.Description != after.Description {
		changed = append(changed, "description")
	}
	return changed
}
