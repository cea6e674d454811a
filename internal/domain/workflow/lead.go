package workflow

import "github.com/garyjia/coselection/internal/domain/permission"

var (
	leadApprovalReasons = []ReasonCode{
		"qualified_opportunity",
		"existing_relationship",
		"strategic_account",
		"meets_criteria",
	}
	leadRejectionReasons = []ReasonCode{
		"duplicate_lead",
		"insufficient_information",
		"out_of_territory",
		"not_qualified",
		"conflict_of_interest",
	}
	leadInfoReasons = []ReasonCode{
		"missing_contact",
		"missing_deal_details",
		"unclear_scope",
		"needs_documentation",
	}
)

// NewLeadMachine builds the lead review lifecycle
func NewLeadMachine() *Machine {
	b := NewBuilder(KindLead, LeadDraft,
		LeadDraft,
		LeadSubmitted,
		LeadUnderReview,
		LeadInfoRequested,
		LeadApproved,
		LeadRejected,
		LeadResubmitted,
	)

	b.Configure(LeadDraft).
		Permit(LeadSubmitted, permission.ActionLeadSubmit, RequireFields())

	b.Configure(LeadSubmitted).
		Permit(LeadUnderReview, permission.ActionLeadStartReview)

	b.Configure(LeadUnderReview).
		Permit(LeadApproved, permission.ActionLeadApprove, RequireReason(leadApprovalReasons...)).
		Permit(LeadRejected, permission.ActionLeadReject, RequireReason(leadRejectionReasons...), RequireNote()).
		Permit(LeadInfoRequested, permission.ActionLeadRequestInfo, RequireReason(leadInfoReasons...), RequireNote())

	b.Configure(LeadInfoRequested).
		Permit(LeadResubmitted, permission.ActionLeadResubmit, RequireFields())

	b.Configure(LeadResubmitted).
		Permit(LeadUnderReview, permission.ActionLeadStartReview).
		Permit(LeadApproved, permission.ActionLeadApprove, RequireReason(leadApprovalReasons...)).
		Permit(LeadRejected, permission.ActionLeadReject, RequireReason(leadRejectionReasons...), RequireNote())

	return b.Terminal(LeadApproved, LeadRejected).Build()
}

// LeadQueueStates are the states in which a lead sits in the review queue and can be claimed
var LeadQueueStates = []State{LeadSubmitted, LeadUnderReview, LeadResubmitted}

// IsLeadQueued reports whether a lead in the given state can be claimed
func IsLeadQueued(state State) bool {
	for _, s := range LeadQueueStates {
		if s == state {
			return true
		}
	}
	return false
}
