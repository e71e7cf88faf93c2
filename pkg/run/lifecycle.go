package run

import "fmt"

// State is a lifecycle state of a TestRun
type State string

const (
	Created   State = "created"
	Sampling  State = "sampling"
	Finalized State = "finalized"
)

// machine guards the run lifecycle.  Transitions only move forward:
// created -> sampling -> finalized.  An illegal transition is an internal
// invariant violation and is surfaced to the caller rather than recorded as
// a run failure.
type machine struct {
	current   State
	allowable map[State][]State
}

func newLifecycle() *machine {
	return &machine{
		current: Created,
		allowable: map[State][]State{
			Created:  {Sampling},
			Sampling: {Finalized},
		},
	}
}

func (m *machine) transition(to State) error {
	for _, s := range m.allowable[m.current] {
		if s == to {
			m.current = to
			return nil
		}
	}
	return fmt.Errorf("cannot transition run from state %s to %s", m.current, to)
}
