// Package run owns a single acquisition run: the ordered outcome log, the
// run lifecycle, and the sampling task that fills the log at a fixed rate.
package run

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ammeterqa/ammqa/pkg/device"
)

// Sample is one successful measurement
type Sample struct {
	Value     float64
	Timestamp time.Time
	Seq       int
}

// Failure is one failed measurement attempt, classified by the acquisition
// failure taxonomy
type Failure struct {
	Kind      device.FailureKind
	Message   string
	Timestamp time.Time
	Seq       int
}

// Outcome is a tagged union: exactly one of Sample or Failure is set
type Outcome struct {
	Sample  *Sample
	Failure *Failure
}

// Seq returns the sequence index of the outcome regardless of variant
func (o Outcome) Seq() int {
	if o.Sample != nil {
		return o.Sample.Seq
	}
	return o.Failure.Seq
}

// TestRun is the outcome log for one acquisition run.  It is owned
// exclusively by its sampling task while sampling and becomes immutable once
// finalized.  Appends carry a monotonically increasing, gapless sequence
// index starting at zero.
type TestRun struct {
	ID         uuid.UUID
	DeviceType string
	RateHz     float64
	Start      time.Time
	End        time.Time

	outcomes []Outcome
	next     int
	state    *machine
}

// NewTestRun creates a run in the created state
func NewTestRun(deviceType string, rateHz float64) (*TestRun, error) {
	if rateHz <= 0 {
		return nil, fmt.Errorf("sample rate must be greater than zero, got %f Hz", rateHz)
	}
	return &TestRun{
		ID:         uuid.New(),
		DeviceType: deviceType,
		RateHz:     rateHz,
		state:      newLifecycle(),
	}, nil
}

// begin marks the start of acquisition.  Called by the sampling task.
func (r *TestRun) begin(at time.Time) error {
	if err := r.state.transition(Sampling); err != nil {
		return err
	}
	r.Start = at
	return nil
}

func (r *TestRun) recordValue(v float64, at time.Time) error {
	if r.state.current != Sampling {
		return fmt.Errorf("cannot append to run in state %s", r.state.current)
	}
	r.outcomes = append(r.outcomes, Outcome{Sample: &Sample{Value: v, Timestamp: at, Seq: r.next}})
	r.next++
	return nil
}

func (r *TestRun) recordFailure(kind device.FailureKind, msg string, at time.Time) error {
	if r.state.current != Sampling {
		return fmt.Errorf("cannot append to run in state %s", r.state.current)
	}
	r.outcomes = append(r.outcomes, Outcome{Failure: &Failure{Kind: kind, Message: msg, Timestamp: at, Seq: r.next}})
	r.next++
	return nil
}

// Finalize freezes the run.  Only legal after the sampling task has signaled
// completion; every later append fails.
func (r *TestRun) Finalize(at time.Time) error {
	if err := r.state.transition(Finalized); err != nil {
		return err
	}
	r.End = at
	return nil
}

// Finalized reports whether the run has been frozen
func (r *TestRun) Finalized() bool {
	return r.state.current == Finalized
}

// Outcomes returns a copy of the outcome log in sequence order
func (r *TestRun) Outcomes() []Outcome {
	out := make([]Outcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

// Samples returns the successful measurements in sequence order
func (r *TestRun) Samples() []Sample {
	var samples []Sample
	for _, o := range r.outcomes {
		if o.Sample != nil {
			samples = append(samples, *o.Sample)
		}
	}
	return samples
}

// Failures returns the failed attempts in sequence order
func (r *TestRun) Failures() []Failure {
	var failures []Failure
	for _, o := range r.outcomes {
		if o.Failure != nil {
			failures = append(failures, *o.Failure)
		}
	}
	return failures
}

// FailureRate returns the fraction of outcomes that are failures, 0 for an
// empty log
func (r *TestRun) FailureRate() float64 {
	if len(r.outcomes) == 0 {
		return 0
	}
	failed := 0
	for _, o := range r.outcomes {
		if o.Failure != nil {
			failed++
		}
	}
	return float64(failed) / float64(len(r.outcomes))
}
