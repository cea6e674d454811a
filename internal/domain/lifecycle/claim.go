package lifecycle

import (
	"fmt"

	"github.com/garyjia/coselection/internal/domain/entity"
	"github.com/garyjia/coselection/internal/domain/event"
	"github.com/garyjia/coselection/internal/domain/permission"
	"github.com/garyjia/coselection/internal/domain/workflow"
)

// Claim assigns the lead to the actor if nobody owns it and the caller's view is current.
// Losing the compare-and-set returns ErrAlreadyClaimed; the caller must re-fetch before
// trying again. The persistence layer repeats the same check in its update statement.
func Claim(lead *entity.Lead, expectedVersion int64, actor permission.Actor) (*entity.Lead, error) {
	if !permission.IsAllowed(actor.Role, permission.ActionLeadClaim) {
		return nil, claimError(lead, workflow.ErrPermissionDenied, permission.DenialReason(permission.ActionLeadClaim))
	}
	if !workflow.IsLeadQueued(lead.Status) {
		return nil, claimError(lead, workflow.ErrInvalidTransition,
			fmt.Sprintf("a %s lead is not in the review queue", lead.Status))
	}
	if lead.IsClaimed() {
		return nil, claimError(lead, workflow.ErrAlreadyClaimed,
			fmt.Sprintf("lead is already owned by %s", displayOr(lead.OwnerName, lead.OwnerID)))
	}
	if lead.Version != expectedVersion {
		return nil, claimError(lead, workflow.ErrAlreadyClaimed,
			fmt.Sprintf("lead changed since version %d", expectedVersion))
	}

	evt := event.NewEvent(actor, event.KindOwnerAssigned,
		fmt.Sprintf("Lead claimed by %s", actor.Name()),
		event.WithReason(workflow.ReasonClaimed.String()),
		event.WithMetadata(map[string]string{
			event.MetaPreviousState: lead.Status.String(),
			event.MetaNewState:      lead.Status.String(),
			event.MetaAction:        permission.ActionLeadClaim.String(),
		}))

	return assignOwner(lead, actor.ID, actor.Name(), evt)
}

// Release gives up ownership. Only the current owner may release, under the same
// version check as Claim.
func Release(lead *entity.Lead, expectedVersion int64, actor permission.Actor) (*entity.Lead, error) {
	if !lead.IsClaimed() {
		return nil, claimError(lead, workflow.ErrInvalidTransition, "lead has no owner to release")
	}
	if lead.OwnerID != actor.ID {
		return nil, claimError(lead, workflow.ErrPermissionDenied, "only the current owner can release a lead")
	}
	if lead.Version != expectedVersion {
		return nil, claimError(lead, workflow.ErrAlreadyClaimed,
			fmt.Sprintf("lead changed since version %d", expectedVersion))
	}

	evt := event.NewEvent(actor, event.KindOwnerReleased,
		fmt.Sprintf("Lead released by %s", actor.Name()),
		event.WithReason(workflow.ReasonReleased.String()),
		event.WithMetadata(map[string]string{
			event.MetaPreviousState: lead.Status.String(),
			event.MetaNewState:      lead.Status.String(),
		}))

	return assignOwner(lead, "", "", evt)
}

func assignOwner(lead *entity.Lead, ownerID, ownerName string, evt event.Event) (*entity.Lead, error) {
	next := lead.Clone()
	next.OwnerID = ownerID
	next.OwnerName = ownerName
	next.Version++
	next.UpdatedAt = evt.OccurredAt

	var err error
	if next.Timeline, err = next.Timeline.Append(evt); err != nil {
		return nil, fmt.Errorf("append ownership event: %w", err)
	}
	return next, nil
}

func claimError(lead *entity.Lead, code error, message string) error {
	return &workflow.Error{
		Code:     code,
		Kind:     workflow.KindLead,
		EntityID: lead.ID,
		From:     lead.Status,
		To:       lead.Status,
		Message:  message,
	}
}
