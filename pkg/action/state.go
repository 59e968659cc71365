package action

import "fmt"

// State is the progress of a single run.
type State int

const (
	NotStarted State = iota
	Hovering
	PreGrasping
	Grasping
	PostGrasping
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Hovering:
		return "hovering"
	case PreGrasping:
		return "pre-grasping"
	case Grasping:
		return "grasping"
	case PostGrasping:
		return "post-grasping"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == Completed || s == Failed
}

// stateFor returns the state a run is in while moving to a pose of type t.
func stateFor(t PoseType) State {
	switch t {
	case Hover:
		return Hovering
	case PreGrasp:
		return PreGrasping
	case Grasp:
		return Grasping
	case PostGrasp:
		return PostGrasping
	default:
		panic(fmt.Sprintf("action: no state for %s", t))
	}
}

func isAllowedTransition(from, to State) bool {
	if to == Failed {
		return !from.Terminal()
	}
	switch from {
	case NotStarted:
		return to == Hovering
	case Hovering:
		return to == PreGrasping
	case PreGrasping:
		return to == Grasping
	case Grasping:
		return to == PostGrasping
	case PostGrasping:
		return to == Completed
	default:
		return false
	}
}

// Transition describes one state change of a run.
type Transition struct {
	RunID  string
	Action string
	From   State
	To     State
}

// run tracks the state machine for one Executor.Run call.
type run struct {
	id     string
	action string
	state  State
	notify func(Transition)
}

func (r *run) advance(to State) error {
	if !isAllowedTransition(r.state, to) {
		return fmt.Errorf("run %s: disallowed transition %s -> %s", r.id, r.state, to)
	}
	tr := Transition{RunID: r.id, Action: r.action, From: r.state, To: to}
	r.state = to
	if r.notify != nil {
		r.notify(tr)
	}
	return nil
}
