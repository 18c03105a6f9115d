package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kailas-cloud/refurnish/internal/domain"
	"github.com/kailas-cloud/refurnish/internal/domain/dimension"
	"github.com/kailas-cloud/refurnish/internal/domain/room"
)

// ErrIllegalTransition signals a state change the run does not allow.
var ErrIllegalTransition = errors.New("illegal pipeline transition")

// State is the position of a run in the pipeline.
type State string

// Run states.
const (
	StateIdle              State = "idle"
	StateCalibrating       State = "calibrating"
	StateProfiling         State = "profiling"
	StateConceptsRequested State = "concepts_requested"
	StateMatching          State = "matching"
	StateRendered          State = "rendered"
	StateDone              State = "done"
	StateFailed            State = "failed"
)

// Measuring stops after calibration, recommending skips concepts and rendering.
var transitions = map[State][]State{
	StateIdle:              {StateCalibrating},
	StateCalibrating:       {StateProfiling, StateDone},
	StateProfiling:         {StateConceptsRequested, StateMatching},
	StateConceptsRequested: {StateMatching},
	StateMatching:          {StateRendered, StateDone},
	StateRendered:          {StateDone},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

// Run is the aggregate of one pipeline execution. The estimate and the room
// profile are set at most once and never change afterward.
type Run struct {
	id string

	mu          sync.Mutex
	state       State
	history     []State
	estimate    dimension.Estimate
	estimateSet bool
	profile     room.Profile
	profileSet  bool
}

// NewRun creates an idle run with a fresh id.
func NewRun() *Run {
	return &Run{id: uuid.NewString(), state: StateIdle, history: []State{StateIdle}}
}

// ID returns the run id.
func (r *Run) ID() string { return r.id }

// State returns the current state.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// History returns every state the run passed through, in order.
func (r *Run) History() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.history...)
}

// Advance moves the run to next.
func (r *Run) Advance(next State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if next == StateFailed {
		return r.failLocked()
	}
	for _, allowed := range transitions[r.state] {
		if allowed == next {
			r.state = next
			r.history = append(r.history, next)
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, r.state, next)
}

// Fail moves the run to Failed. Failing a failed run is a no-op.
func (r *Run) Fail() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failLocked()
}

func (r *Run) failLocked() error {
	switch r.state {
	case StateFailed:
		return nil
	case StateDone:
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, r.state, StateFailed)
	}
	r.state = StateFailed
	r.history = append(r.history, StateFailed)
	return nil
}

// SetEstimate records the calibration output.
func (r *Run) SetEstimate(e dimension.Estimate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.estimateSet {
		return fmt.Errorf("%w: dimension estimate", domain.ErrStageReentry)
	}
	r.estimate, r.estimateSet = e, true
	return nil
}

// SetProfile records the profiling output.
func (r *Run) SetProfile(p room.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.profileSet {
		return fmt.Errorf("%w: room profile", domain.ErrStageReentry)
	}
	r.profile, r.profileSet = p, true
	return nil
}

// Estimate returns the calibration output, zero until set.
func (r *Run) Estimate() dimension.Estimate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.estimate
}

// Profile returns the profiling output, zero until set.
func (r *Run) Profile() room.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.profile
}
