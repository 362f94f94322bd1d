package model

import (
	"encoding/json"
	"fmt"
)

// Transition keys the transition table by (state, event).
type Transition struct {
	State string
	Event string
}

type TransitionDef struct {
	From  string `json:"from"`
	Event string `json:"event"`
	To    string `json:"to"`
}

// FSM is pure data, states plus a (state, event) -> state table. A registered
// workflow holds an immutable template, each run operates on its own clone and
// only the engine mutates Current.
type FSM struct {
	States      []string
	Initial     string
	Current     string
	transitions map[Transition]string
}

func NewFSM(states []string, initial string) *FSM {
	return &FSM{
		States:      states,
		Initial:     initial,
		transitions: make(map[Transition]string),
	}
}

func (f *FSM) AddTransition(from string, event string, to string) {
	if f.transitions == nil {
		f.transitions = make(map[Transition]string)
	}
	f.transitions[Transition{State: from, Event: event}] = to
}

func (f *FSM) Next(state string, event string) (string, error) {
	next, ok := f.transitions[Transition{State: state, Event: event}]
	if !ok {
		return "", fmt.Errorf("%w: no transition from state %s on event %s", ErrInvalidTransition, state, event)
	}
	return next, nil
}

func (f *FSM) HasTransition(state string, event string) bool {
	_, ok := f.transitions[Transition{State: state, Event: event}]
	return ok
}

// IsTerminal reports whether no transition originates from state.
func (f *FSM) IsTerminal(state string) bool {
	for t := range f.transitions {
		if t.State == state {
			return false
		}
	}
	return true
}

// Clone returns an independent instance with Current reset to Initial.
// Concurrent runs of the same workflow must never share an instance.
func (f *FSM) Clone() *FSM {
	transitions := make(map[Transition]string, len(f.transitions))
	for k, v := range f.transitions {
		transitions[k] = v
	}
	states := make([]string, len(f.States))
	copy(states, f.States)
	return &FSM{
		States:      states,
		Initial:     f.Initial,
		Current:     f.Initial,
		transitions: transitions,
	}
}

func (f *FSM) Validate() error {
	if len(f.States) == 0 {
		return fmt.Errorf("fsm must have at least one state")
	}
	stateSet := make(map[string]bool, len(f.States))
	for _, s := range f.States {
		if stateSet[s] {
			return fmt.Errorf("state %s is duplicate", s)
		}
		stateSet[s] = true
	}
	if !stateSet[f.Initial] {
		return fmt.Errorf("initial state %s not in state set", f.Initial)
	}
	for t, to := range f.transitions {
		if !stateSet[t.State] {
			return fmt.Errorf("transition from unknown state %s", t.State)
		}
		if !stateSet[to] {
			return fmt.Errorf("transition from %s on %s targets unknown state %s", t.State, t.Event, to)
		}
	}
	return nil
}

// TransitionDefs returns the table in definition order independent form,
// used for serialization and synthesis output.
func (f *FSM) TransitionDefs() []TransitionDef {
	defs := make([]TransitionDef, 0, len(f.transitions))
	for t, to := range f.transitions {
		defs = append(defs, TransitionDef{From: t.State, Event: t.Event, To: to})
	}
	return defs
}

type fsmWire struct {
	States      []string        `json:"states"`
	Initial     string          `json:"initialState"`
	Transitions []TransitionDef `json:"transitions"`
}

func (f *FSM) MarshalJSON() ([]byte, error) {
	return json.Marshal(fsmWire{
		States:      f.States,
		Initial:     f.Initial,
		Transitions: f.TransitionDefs(),
	})
}

func (f *FSM) UnmarshalJSON(data []byte) error {
	var wire fsmWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	f.States = wire.States
	f.Initial = wire.Initial
	f.transitions = make(map[Transition]string, len(wire.Transitions))
	for _, t := range wire.Transitions {
		f.transitions[Transition{State: t.From, Event: t.Event}] = t.To
	}
	return nil
}
