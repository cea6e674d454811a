package workflow

import (
	"fmt"

	"github.com/garyjia/coselection/internal/domain/permission"
)

// MachineBuilder declares the states and edges of one entity kind
type MachineBuilder interface {
	// Configure returns an edge configuration for the given source state
	Configure(state State) StateConfiguration

	// Terminal marks states with no way out
	Terminal(states ...State) MachineBuilder

	// Build creates an immutable machine from the declared tables
	Build() *Machine
}

// StateConfiguration configures edges leaving one state
type StateConfiguration interface {
	// Permit allows moving to the target state when the actor may perform the action
	// and every guard passes, evaluated in the given order
	Permit(toState State, action permission.Action, guards ...Guard) StateConfiguration
}

// edge represents an allowed (from, to) pair with its action and guards
type edge struct {
	from   State
	to     State
	action permission.Action
	guards []Guard
}

type stateConfig struct {
	builder   *machineBuilder
	fromState State
}

type machineBuilder struct {
	kind     Kind
	initial  State
	states   []State
	valid    map[State]bool
	terminal map[State]bool
	edges    map[State][]edge
}

// NewBuilder creates a builder for a kind with its initial state and full state set
func NewBuilder(kind Kind, initial State, states ...State) MachineBuilder {
	b := &machineBuilder{
		kind:     kind,
		initial:  initial,
		valid:    make(map[State]bool, len(states)),
		terminal: make(map[State]bool),
		edges:    make(map[State][]edge),
	}
	for _, s := range states {
		if !b.valid[s] {
			b.valid[s] = true
			b.states = append(b.states, s)
		}
	}
	if !b.valid[initial] {
		panic(fmt.Sprintf("%s: initial state %s is not declared", kind, initial))
	}
	return b
}

// Configure returns an edge configuration for the given source state
func (b *machineBuilder) Configure(state State) StateConfiguration {
	if !b.valid[state] {
		panic(fmt.Sprintf("%s: invalid state: %s", b.kind, state))
	}
	return &stateConfig{builder: b, fromState: state}
}

// Terminal marks states with no way out
func (b *machineBuilder) Terminal(states ...State) MachineBuilder {
	for _, s := range states {
		if !b.valid[s] {
			panic(fmt.Sprintf("%s: invalid terminal state: %s", b.kind, s))
		}
		b.terminal[s] = true
	}
	return b
}

// Build creates an immutable machine from the declared tables
func (b *machineBuilder) Build() *Machine {
	// Deep copy so later builder calls cannot change a built machine
	edgesCopy := make(map[State][]edge, len(b.edges))
	for from, edges := range b.edges {
		if b.terminal[from] && len(edges) > 0 {
			panic(fmt.Sprintf("%s: terminal state %s cannot have edges", b.kind, from))
		}
		copied := make([]edge, len(edges))
		for i, e := range edges {
			copied[i] = edge{
				from:   e.from,
				to:     e.to,
				action: e.action,
				guards: append([]Guard{}, e.guards...),
			}
		}
		edgesCopy[from] = copied
	}

	valid := make(map[State]bool, len(b.valid))
	for s := range b.valid {
		valid[s] = true
	}
	terminal := make(map[State]bool, len(b.terminal))
	for s := range b.terminal {
		terminal[s] = true
	}

	return &Machine{
		kind:     b.kind,
		initial:  b.initial,
		states:   append([]State{}, b.states...),
		valid:    valid,
		terminal: terminal,
		edges:    edgesCopy,
	}
}

// Permit allows moving to the target state when the actor may perform the action
func (c *stateConfig) Permit(toState State, action permission.Action, guards ...Guard) StateConfiguration {
	b := c.builder
	if !b.valid[toState] {
		panic(fmt.Sprintf("%s: invalid target state: %s", b.kind, toState))
	}
	for _, e := range b.edges[c.fromState] {
		if e.to == toState {
			panic(fmt.Sprintf("%s: duplicate edge %s -> %s", b.kind, c.fromState, toState))
		}
	}

	b.edges[c.fromState] = append(b.edges[c.fromState], edge{
		from:   c.fromState,
		to:     toState,
		action: action,
		guards: guards,
	})

	return c
}
