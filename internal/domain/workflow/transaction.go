package workflow

import "github.com/garyjia/coselection/internal/domain/permission"

var transactionReversalReasons = []ReasonCode{
	"customer_refund",
	"chargeback",
	"dispute_lost",
	"fraud_suspected",
	"duplicate_commission",
	"order_cancelled",
}

// NewTransactionMachine builds the earnings transaction lifecycle
func NewTransactionMachine() *Machine {
	b := NewBuilder(KindTransaction, TransactionPending,
		TransactionPending,
		TransactionLocked,
		TransactionPayable,
		TransactionPaid,
		TransactionReversed,
	)

	reverse := func() []Guard {
		return []Guard{NotOffset(), RequireReason(transactionReversalReasons...), AmountIntegrity()}
	}

	b.Configure(TransactionPending).
		Permit(TransactionLocked, permission.ActionTransactionLock, LockElapsed()).
		Permit(TransactionReversed, permission.ActionTransactionReverse, reverse()...)

	b.Configure(TransactionLocked).
		Permit(TransactionPayable, permission.ActionTransactionRelease, NotOffset(), VerificationApproved()).
		Permit(TransactionReversed, permission.ActionTransactionReverse, reverse()...)

	b.Configure(TransactionPayable).
		Permit(TransactionPaid, permission.ActionTransactionPay, NotOffset()).
		Permit(TransactionReversed, permission.ActionTransactionReverse, reverse()...)

	b.Configure(TransactionPaid).
		Permit(TransactionReversed, permission.ActionTransactionReverse, reverse()...)

	return b.Terminal(TransactionReversed).Build()
}
