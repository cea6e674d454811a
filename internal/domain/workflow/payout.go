package workflow

import "github.com/garyjia/coselection/internal/domain/permission"

var (
	payoutRejectionReasons = []ReasonCode{
		"invalid_bank_details",
		"below_minimum",
		"account_not_verified",
		"compliance_hold",
	}
	payoutFailureReasons = []ReasonCode{
		"bank_rejected",
		"account_closed",
		"network_error",
		"limit_exceeded",
	}
)

// NewPayoutMachine builds the payout lifecycle
func NewPayoutMachine() *Machine {
	b := NewBuilder(KindPayout, PayoutRequested,
		PayoutRequested,
		PayoutApproved,
		PayoutPaid,
		PayoutFailed,
		PayoutRejected,
	)

	b.Configure(PayoutRequested).
		Permit(PayoutApproved, permission.ActionPayoutApprove).
		Permit(PayoutRejected, permission.ActionPayoutReject, RequireReason(payoutRejectionReasons...))

	b.Configure(PayoutApproved).
		Permit(PayoutPaid, permission.ActionPayoutPay).
		Permit(PayoutFailed, permission.ActionPayoutFail, RequireReason(payoutFailureReasons...))

	return b.Terminal(PayoutPaid, PayoutRejected).Build()
}
