package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/coselection/internal/domain/event"
	"github.com/garyjia/coselection/internal/domain/permission"
	"github.com/garyjia/coselection/internal/domain/workflow"
)

func TestTimeline_Append(t *testing.T) {
	first := event.NewEvent(permission.SystemActor, event.KindCreated, "created")
	second := event.NewEvent(permission.SystemActor, event.KindStatusChanged, "moved")

	var tl Timeline
	tl, err := tl.Append(first)
	require.NoError(t, err)

	next, err := tl.Append(second)
	require.NoError(t, err)

	assert.Len(t, tl, 1, "receiver must not grow")
	assert.Len(t, next, 2)
	last, ok := next.Last()
	require.True(t, ok)
	assert.Equal(t, second.ID, last.ID)
}

func TestTimeline_AppendRejectsOutOfOrder(t *testing.T) {
	late := event.NewEvent(permission.SystemActor, event.KindCreated, "created")
	early := late
	early.ID = "other"
	early.OccurredAt = late.OccurredAt.Add(-time.Second)

	tl := Timeline{late}
	_, err := tl.Append(early)
	assert.True(t, errors.Is(err, ErrTimelineOrder))

	_, err = tl.Append(late)
	assert.True(t, errors.Is(err, ErrTimelineOrder), "duplicate id")
}

func TestTimeline_LastEmpty(t *testing.T) {
	_, ok := Timeline(nil).Last()
	assert.False(t, ok)
	assert.Nil(t, Timeline(nil).Clone())
}

func TestLead_MissingFields(t *testing.T) {
	lead := &Lead{}
	assert.Equal(t, []string{"company_name", "contact_name", "contact_email", "estimated_value"}, lead.MissingFields())

	lead.ApplyFields(LeadFields{
		CompanyName:    " Acme ",
		ContactName:    "Dana",
		ContactEmail:   "dana@acme.test",
		EstimatedValue: 5000,
		Currency:       "eur",
	})
	assert.Empty(t, lead.MissingFields())
	assert.Equal(t, "Acme", lead.CompanyName)
	assert.Equal(t, "EUR", lead.Currency)
}

func TestLead_CloneIsDeep(t *testing.T) {
	lead := &Lead{ID: "l-1", Status: workflow.LeadDraft}
	lead.Timeline = Timeline{event.NewEvent(permission.SystemActor, event.KindCreated, "created")}

	c := lead.Clone()
	c.Status = workflow.LeadSubmitted
	c.Timeline[0].Description = "changed"

	assert.Equal(t, workflow.LeadDraft, lead.Status)
	assert.Equal(t, "created", lead.Timeline[0].Description)
}

func TestEarningsTransaction_IsAdjustment(t *testing.T) {
	assert.False(t, (&EarningsTransaction{Amount: 100}).IsAdjustment())
	assert.True(t, (&EarningsTransaction{Amount: -100}).IsAdjustment())
}

func TestDisputeCase_CloneCopiesResolvedAt(t *testing.T) {
	now := time.Now()
	d := &DisputeCase{ResolvedAt: &now}
	c := d.Clone()
	*c.ResolvedAt = now.Add(time.Hour)
	assert.True(t, d.ResolvedAt.Equal(now))
}

func TestAccount_IsVerified(t *testing.T) {
	var nilAccount *Account
	assert.False(t, nilAccount.IsVerified())
	assert.False(t, (&Account{VerificationStatus: VerificationPending}).IsVerified())
	assert.True(t, (&Account{VerificationStatus: VerificationApproved}).IsVerified())
	assert.False(t, VerificationStatus("unknown").IsValid())
}
