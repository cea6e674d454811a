package permission

import "sort"

// Action names one edge-level operation gated by role
type Action string

const (
	ActionLeadSubmit      Action = "lead.submit"
	ActionLeadStartReview Action = "lead.start_review"
	ActionLeadApprove     Action = "lead.approve"
	ActionLeadReject      Action = "lead.reject"
	ActionLeadRequestInfo Action = "lead.request_info"
	ActionLeadResubmit    Action = "lead.resubmit"
	ActionLeadEdit        Action = "lead.edit"
	ActionLeadClaim       Action = "lead.claim"

	ActionTransactionLock    Action = "transaction.lock"
	ActionTransactionRelease Action = "transaction.release"
	ActionTransactionPay     Action = "transaction.pay"
	ActionTransactionReverse Action = "transaction.reverse"

	ActionPayoutApprove Action = "payout.approve"
	ActionPayoutReject  Action = "payout.reject"
	ActionPayoutPay     Action = "payout.pay"
	ActionPayoutFail    Action = "payout.fail"

	ActionDisputeAwait   Action = "dispute.await"
	ActionDisputeResolve Action = "dispute.resolve"

	ActionAccountVerify Action = "account.verify"
)

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}

var rolePermissions = map[Role]map[Action]bool{
	RoleSubmitter: {
		ActionLeadSubmit:   true,
		ActionLeadResubmit: true,
		ActionLeadEdit:     true,
	},
	RoleReviewer: {
		ActionLeadStartReview: true,
		ActionLeadApprove:     true,
		ActionLeadReject:      true,
		ActionLeadRequestInfo: true,
		ActionLeadClaim:       true,
		ActionTransactionLock: true,
		ActionDisputeResolve:  true,
	},
	RoleFinance: {
		ActionTransactionPay:     true,
		ActionTransactionReverse: true,
		ActionPayoutApprove:      true,
		ActionPayoutReject:       true,
		ActionPayoutPay:          true,
		ActionAccountVerify:      true,
	},
	RoleSystem: {
		ActionTransactionLock:    true,
		ActionTransactionRelease: true,
		ActionTransactionReverse: true,
		ActionPayoutFail:         true,
		ActionDisputeAwait:       true,
		ActionAccountVerify:      true,
	},
}

var denialReasons = map[Action]string{
	ActionLeadSubmit:         "only the submitter can submit a lead",
	ActionLeadStartReview:    "only a reviewer can start reviewing a lead",
	ActionLeadApprove:        "only a reviewer can approve a lead",
	ActionLeadReject:         "only a reviewer can reject a lead",
	ActionLeadRequestInfo:    "only a reviewer can request more information",
	ActionLeadResubmit:       "only the submitter can resubmit a lead",
	ActionLeadEdit:           "only the submitter can edit lead details",
	ActionLeadClaim:          "only a reviewer can claim a lead",
	ActionTransactionLock:    "only the system or a reviewer can lock earnings",
	ActionTransactionRelease: "earnings are released to payable by the system only",
	ActionTransactionPay:     "only finance can mark earnings as paid",
	ActionTransactionReverse: "only finance or the system can reverse earnings",
	ActionPayoutApprove:      "only finance can approve a payout",
	ActionPayoutReject:       "only finance can reject a payout",
	ActionPayoutPay:          "only finance can mark a payout as paid",
	ActionPayoutFail:         "payout failures are recorded by the system only",
	ActionDisputeAwait:       "disputes move to waiting by the system only",
	ActionDisputeResolve:     "only a reviewer can resolve a dispute",
	ActionAccountVerify:      "only finance or the system can change verification status",
}

// IsAllowed reports whether the role may perform the action
func IsAllowed(role Role, action Action) bool {
	return rolePermissions[role][action]
}

// DenialReason returns a human-readable message explaining why an action was denied
func DenialReason(action Action) string {
	if reason, ok := denialReasons[action]; ok {
		return reason
	}
	return "action " + string(action) + " is not permitted for this role"
}

// Actions returns the actions granted to a role, sorted by name
func Actions(role Role) []Action {
	granted := rolePermissions[role]
	actions := make([]Action, 0, len(granted))
	for action, ok := range granted {
		if ok {
			actions = append(actions, action)
		}
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

// Table returns a copy of the role to action mapping for rendering in UI layers
func Table() map[Role][]Action {
	table := make(map[Role][]Action, len(rolePermissions))
	for role := range rolePermissions {
		table[role] = Actions(role)
	}
	return table
}
