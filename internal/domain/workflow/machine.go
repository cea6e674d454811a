package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/coselection/internal/domain/event"
	"github.com/garyjia/coselection/internal/domain/permission"
)

// Request asks the machine to move one entity from its current state to a target state
type Request struct {
	EntityID   string
	From       State
	To         State
	Actor      permission.Actor
	ReasonCode ReasonCode
	Note       string
	Outcome    Outcome
	Facts      Facts
}

// Facts are the snapshot values guards evaluate against
type Facts struct {
	Now                  time.Time
	LockEndAt            time.Time
	VerificationApproved bool
	Amount               int64
	ReversedBy           string
	MissingFields        []string
}

// Adjustment describes the entity a reversal of committed earnings must create
type Adjustment struct {
	ID         string
	OriginalID string
	Amount     int64
	State      State
}

// Result is the outcome of a successful transition. The caller persists NewState and
// Event together.
type Result struct {
	Kind          Kind
	EntityID      string
	Action        permission.Action
	PreviousState State
	NewState      State
	Effect        Effect
	Outcome       Outcome
	Adjustment    *Adjustment
	Event         event.Event
}

// EdgeInfo is the public view of one adjacency table entry
type EdgeInfo struct {
	From   State             `json:"from"`
	To     State             `json:"to"`
	Action permission.Action `json:"action"`
}

// Machine is the immutable rule set of one entity kind. It is safe for concurrent use.
type Machine struct {
	kind     Kind
	initial  State
	states   []State
	valid    map[State]bool
	terminal map[State]bool
	edges    map[State][]edge
}

// Kind returns the entity kind this machine governs
func (m *Machine) Kind() Kind {
	return m.kind
}

// Initial returns the state new entities start in
func (m *Machine) Initial() State {
	return m.initial
}

// States returns all declared states in declaration order
func (m *Machine) States() []State {
	return append([]State{}, m.states...)
}

// IsValid returns true if the state belongs to this kind
func (m *Machine) IsValid(state State) bool {
	return m.valid[state]
}

// IsTerminal returns true if no further transitions are allowed from the state
func (m *Machine) IsTerminal(state State) bool {
	return m.terminal[state]
}

// Targets returns the states reachable in one step from the given state
func (m *Machine) Targets(from State) []State {
	edges := m.edges[from]
	targets := make([]State, 0, len(edges))
	for _, e := range edges {
		targets = append(targets, e.to)
	}
	return targets
}

// TargetsFor returns the reachable states whose action the role may perform
func (m *Machine) TargetsFor(from State, role permission.Role) []State {
	edges := m.edges[from]
	targets := make([]State, 0, len(edges))
	for _, e := range edges {
		if permission.IsAllowed(role, e.action) {
			targets = append(targets, e.to)
		}
	}
	return targets
}

// Edge looks up one adjacency table entry
func (m *Machine) Edge(from, to State) (EdgeInfo, bool) {
	e, ok := m.findEdge(from, to)
	if !ok {
		return EdgeInfo{}, false
	}
	return EdgeInfo{From: e.from, To: e.to, Action: e.action}, true
}

// Edges returns the whole adjacency table
func (m *Machine) Edges() []EdgeInfo {
	var infos []EdgeInfo
	for _, from := range m.states {
		for _, e := range m.edges[from] {
			infos = append(infos, EdgeInfo{From: e.from, To: e.to, Action: e.action})
		}
	}
	return infos
}

// Reasons returns the reason codes accepted on edges into the given state
func (m *Machine) Reasons(to State) []ReasonCode {
	seen := make(map[ReasonCode]bool)
	var codes []ReasonCode
	for _, from := range m.states {
		for _, e := range m.edges[from] {
			if e.to != to {
				continue
			}
			for _, g := range e.guards {
				for _, code := range g.reasons {
					if !seen[code] {
						seen[code] = true
						codes = append(codes, code)
					}
				}
			}
		}
	}
	return codes
}

// Transition validates the request against the adjacency table, the permission table and
// the edge's guards, in that order, and returns the new state with its audit event.
// It never modifies anything; on error the caller's entity stays as it was.
func (m *Machine) Transition(req Request) (*Result, error) {
	e, ok := m.findEdge(req.From, req.To)
	if !ok {
		return nil, m.reject(req, "", newError(ErrInvalidTransition, "no edge from %q to %q", req.From, req.To))
	}

	if !permission.IsAllowed(req.Actor.Role, e.action) {
		return nil, m.reject(req, "", newError(ErrPermissionDenied, "%s", permission.DenialReason(e.action)))
	}

	effect := EffectInPlace
	for _, g := range e.guards {
		guardEffect, err := g.Evaluate(req)
		if err != nil {
			return nil, m.reject(req, g.Name, err)
		}
		effect |= guardEffect
	}

	result := &Result{
		Kind:          m.kind,
		EntityID:      req.EntityID,
		Action:        e.action,
		PreviousState: req.From,
		NewState:      req.To,
		Effect:        effect,
	}

	metadata := map[string]string{
		event.MetaAction: e.action.String(),
	}
	kind := event.KindStatusChanged
	description := fmt.Sprintf("%s moved from %s to %s", m.kind.Label(), req.From, req.To)

	if effect.Has(EffectAdjustment) {
		result.NewState = req.From
		result.Adjustment = &Adjustment{
			ID:         uuid.NewString(),
			OriginalID: req.EntityID,
			Amount:     -req.Facts.Amount,
			State:      req.To,
		}
		kind = event.KindAdjustmentCreated
		description = fmt.Sprintf("%s reversal recorded as adjustment %s", m.kind.Label(), result.Adjustment.ID)
		metadata[event.MetaAdjustmentID] = result.Adjustment.ID
		metadata[event.MetaAmount] = fmt.Sprintf("%d", result.Adjustment.Amount)
	}

	if effect.Has(EffectOutcome) {
		result.Outcome = req.Outcome
		metadata[event.MetaOutcome] = req.Outcome.String()
	}

	metadata[event.MetaPreviousState] = result.PreviousState.String()
	metadata[event.MetaNewState] = result.NewState.String()

	opts := []event.Option{event.WithMetadata(metadata)}
	if req.ReasonCode != "" {
		opts = append(opts, event.WithReason(req.ReasonCode.String()))
	}
	if req.Note != "" {
		opts = append(opts, event.WithNote(req.Note))
	}

	result.Event = event.NewEvent(req.Actor, kind, description, opts...)

	return result, nil
}

func (m *Machine) findEdge(from, to State) (edge, bool) {
	for _, e := range m.edges[from] {
		if e.to == to {
			return e, true
		}
	}
	return edge{}, false
}

// reject fills in the request context on a guard or lookup failure
func (m *Machine) reject(req Request, guard string, err error) error {
	var typed *Error
	if !errors.As(err, &typed) {
		typed = &Error{Code: ErrGuardNotSatisfied, Message: err.Error()}
	}
	typed.Kind = m.kind
	typed.EntityID = req.EntityID
	typed.From = req.From
	typed.To = req.To
	if guard != "" {
		typed.Guard = guard
	}
	return typed
}
