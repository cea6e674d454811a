package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAllowed(t *testing.T) {
	tests := []struct {
		name   string
		role   Role
		action Action
		want   bool
	}{
		{"submitter submits", RoleSubmitter, ActionLeadSubmit, true},
		{"submitter cannot approve", RoleSubmitter, ActionLeadApprove, false},
		{"reviewer approves", RoleReviewer, ActionLeadApprove, true},
		{"reviewer claims", RoleReviewer, ActionLeadClaim, true},
		{"finance cannot claim", RoleFinance, ActionLeadClaim, false},
		{"reviewer locks earnings", RoleReviewer, ActionTransactionLock, true},
		{"system locks earnings", RoleSystem, ActionTransactionLock, true},
		{"reviewer cannot release", RoleReviewer, ActionTransactionRelease, false},
		{"finance pays", RoleFinance, ActionTransactionPay, true},
		{"system reverses", RoleSystem, ActionTransactionReverse, true},
		{"reviewer cannot reverse", RoleReviewer, ActionTransactionReverse, false},
		{"system fails payout", RoleSystem, ActionPayoutFail, true},
		{"finance cannot fail payout", RoleFinance, ActionPayoutFail, false},
		{"system awaits dispute", RoleSystem, ActionDisputeAwait, true},
		{"reviewer resolves dispute", RoleReviewer, ActionDisputeResolve, true},
		{"unknown role", Role("guest"), ActionLeadSubmit, false},
		{"unknown action", RoleReviewer, Action("lead.delete"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAllowed(tt.role, tt.action))
		})
	}
}

func TestDenialReason(t *testing.T) {
	assert.Equal(t, "only a reviewer can approve a lead", DenialReason(ActionLeadApprove))
	assert.Contains(t, DenialReason(Action("lead.delete")), "lead.delete")
}

func TestTable_ReturnsCopy(t *testing.T) {
	table := Table()
	assert.Len(t, table, 4)

	table[RoleSubmitter] = append(table[RoleSubmitter], ActionLeadApprove)
	table[RoleSubmitter][0] = ActionPayoutPay

	assert.False(t, IsAllowed(RoleSubmitter, ActionLeadApprove))
	assert.False(t, IsAllowed(RoleSubmitter, ActionPayoutPay))
	assert.Equal(t, []Action{ActionLeadEdit, ActionLeadResubmit, ActionLeadSubmit}, Actions(RoleSubmitter))
}

func TestRole_IsValid(t *testing.T) {
	for _, role := range Roles() {
		assert.True(t, role.IsValid(), role)
	}
	assert.False(t, Role("admin").IsValid())
	assert.False(t, Role("").IsValid())
}

func TestActor_Name(t *testing.T) {
	assert.Equal(t, "Ada", Actor{ID: "u1", DisplayName: "Ada"}.Name())
	assert.Equal(t, "u1", Actor{ID: "u1"}.Name())
	assert.True(t, Actor{}.IsZero())
	assert.False(t, SystemActor.IsZero())
}
