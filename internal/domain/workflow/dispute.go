package workflow

import "github.com/garyjia/coselection/internal/domain/permission"

// Outcome is how a resolved dispute ended
type Outcome string

const (
	OutcomeWon      Outcome = "won"
	OutcomeLost     Outcome = "lost"
	OutcomeAdjusted Outcome = "adjusted"
)

// String returns the string representation of the outcome
func (o Outcome) String() string {
	return string(o)
}

// IsValid returns true if the outcome is one of the defined outcomes
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeWon, OutcomeLost, OutcomeAdjusted:
		return true
	default:
		return false
	}
}

// NewDisputeMachine builds the dispute case lifecycle
func NewDisputeMachine() *Machine {
	b := NewBuilder(KindDispute, DisputeOpen,
		DisputeOpen,
		DisputeWaiting,
		DisputeResolved,
	)

	b.Configure(DisputeOpen).
		Permit(DisputeWaiting, permission.ActionDisputeAwait)

	b.Configure(DisputeWaiting).
		Permit(DisputeResolved, permission.ActionDisputeResolve, RequireOutcome())

	return b.Terminal(DisputeResolved).Build()
}
