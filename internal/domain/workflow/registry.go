package workflow

import "fmt"

var machines = map[Kind]*Machine{
	KindLead:        NewLeadMachine(),
	KindTransaction: NewTransactionMachine(),
	KindPayout:      NewPayoutMachine(),
	KindDispute:     NewDisputeMachine(),
}

// MachineFor returns the shared machine for an entity kind
func MachineFor(kind Kind) (*Machine, error) {
	m, ok := machines[kind]
	if !ok {
		return nil, fmt.Errorf("no state machine for kind %q", kind)
	}
	return m, nil
}

// MustMachine is MachineFor for kinds known at compile time
func MustMachine(kind Kind) *Machine {
	m, err := MachineFor(kind)
	if err != nil {
		panic(err)
	}
	return m
}

// Transition runs a request through the machine of the given kind
func Transition(kind Kind, req Request) (*Result, error) {
	m, err := MachineFor(kind)
	if err != nil {
		return nil, err
	}
	return m.Transition(req)
}
