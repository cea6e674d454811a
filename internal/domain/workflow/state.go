package workflow

// Kind identifies which entity family a state machine governs
type Kind string

const (
	KindLead        Kind = "lead"
	KindTransaction Kind = "transaction"
	KindPayout      Kind = "payout"
	KindDispute     Kind = "dispute"
)

var kindLabels = map[Kind]string{
	KindLead:        "Lead",
	KindTransaction: "Transaction",
	KindPayout:      "Payout",
	KindDispute:     "Dispute",
}

// String returns the string representation of the kind
func (k Kind) String() string {
	return string(k)
}

// IsValid returns true if the kind is one of the defined entity kinds
func (k Kind) IsValid() bool {
	_, ok := kindLabels[k]
	return ok
}

// Label returns a capitalized name for descriptions
func (k Kind) Label() string {
	if label, ok := kindLabels[k]; ok {
		return label
	}
	return string(k)
}

// Kinds returns all entity kinds in a stable order
func Kinds() []Kind {
	return []Kind{KindLead, KindTransaction, KindPayout, KindDispute}
}

// State represents a lifecycle state. Validity is defined per kind by its Machine.
type State string

// Lead states
const (
	LeadDraft         State = "draft"
	LeadSubmitted     State = "submitted"
	LeadUnderReview   State = "under_review"
	LeadInfoRequested State = "info_requested"
	LeadApproved      State = "approved"
	LeadRejected      State = "rejected"
	LeadResubmitted   State = "resubmitted"
)

// Earnings transaction states
const (
	TransactionPending  State = "pending"
	TransactionLocked   State = "locked"
	TransactionPayable  State = "payable"
	TransactionPaid     State = "paid"
	TransactionReversed State = "reversed"
)

// Payout states
const (
	PayoutRequested State = "requested"
	PayoutApproved  State = "approved"
	PayoutPaid      State = "paid"
	PayoutFailed    State = "failed"
	PayoutRejected  State = "rejected"
)

// Dispute states
const (
	DisputeOpen     State = "open"
	DisputeWaiting  State = "waiting"
	DisputeResolved State = "resolved"
)

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}
