package workflow

// ReasonCode is a value from an edge-specific closed enumeration
type ReasonCode string

// String returns the string representation of the reason code
func (r ReasonCode) String() string {
	return string(r)
}

// Label returns a human readable label for dropdowns
func (r ReasonCode) Label() string {
	if label, ok := reasonLabels[r]; ok {
		return label
	}
	return string(r)
}

// ReasonClaimed is attached to OwnerAssigned events
const ReasonClaimed ReasonCode = "claimed"

// ReasonReleased is attached to OwnerReleased events
const ReasonReleased ReasonCode = "released"

var reasonLabels = map[ReasonCode]string{
	ReasonClaimed:  "Claimed",
	ReasonReleased: "Released",

	"qualified_opportunity": "Qualified opportunity",
	"existing_relationship": "Existing customer relationship",
	"strategic_account":     "Strategic account",
	"meets_criteria":        "Meets program criteria",

	"duplicate_lead":           "Duplicate lead",
	"insufficient_information": "Insufficient information",
	"out_of_territory":         "Out of territory",
	"not_qualified":            "Not qualified",
	"conflict_of_interest":     "Conflict of interest",

	"missing_contact":      "Missing contact details",
	"missing_deal_details": "Missing deal details",
	"unclear_scope":        "Unclear scope",
	"needs_documentation":  "Supporting documents needed",

	"customer_refund":      "Customer refund",
	"chargeback":           "Chargeback",
	"dispute_lost":         "Dispute lost",
	"fraud_suspected":      "Suspected fraud",
	"duplicate_commission": "Duplicate commission",
	"order_cancelled":      "Order cancelled",

	"invalid_bank_details": "Invalid bank details",
	"below_minimum":        "Below minimum payout",
	"account_not_verified": "Account not verified",
	"compliance_hold":      "Compliance hold",

	"bank_rejected":  "Rejected by bank",
	"account_closed": "Destination account closed",
	"network_error":  "Payment network error",
	"limit_exceeded": "Transfer limit exceeded",
}

// ReasonOption is one entry of an exported reason-code table
type ReasonOption struct {
	Code  ReasonCode `json:"code"`
	Label string     `json:"label"`
}

// ReasonTable returns, per kind and target state, the reason codes accepted on edges into
// that state. The result is a fresh copy.
func ReasonTable() map[Kind]map[State][]ReasonOption {
	table := make(map[Kind]map[State][]ReasonOption)
	for _, kind := range Kinds() {
		m := MustMachine(kind)
		byState := make(map[State][]ReasonOption)
		for _, s := range m.States() {
			codes := m.Reasons(s)
			if len(codes) == 0 {
				continue
			}
			options := make([]ReasonOption, len(codes))
			for i, code := range codes {
				options[i] = ReasonOption{Code: code, Label: code.Label()}
			}
			byState[s] = options
		}
		table[kind] = byState
	}
	return table
}
