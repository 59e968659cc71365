package action

import "testing"

func TestIsAllowedTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{NotStarted, Hovering, true},
		{Hovering, PreGrasping, true},
		{PreGrasping, Grasping, true},
		{Grasping, PostGrasping, true},
		{PostGrasping, Completed, true},
		{NotStarted, Failed, true}, // missing hover pose
		{Grasping, Failed, true},

		{NotStarted, Grasping, false}, // no skipping
		{Hovering, Completed, false},
		{PreGrasping, Hovering, false}, // no going back
		{Completed, Failed, false},     // terminal
		{Failed, Hovering, false},      // no resume
		{Failed, NotStarted, false},
	}

	for _, tt := range tests {
		if got := isAllowedTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("isAllowedTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStateFor(t *testing.T) {
	want := []State{Hovering, PreGrasping, Grasping, PostGrasping}
	for i, pt := range Sequence() {
		if got := stateFor(pt); got != want[i] {
			t.Errorf("stateFor(%s) = %s, want %s", pt, got, want[i])
		}
	}
}

func TestRunAdvance_RejectsDisallowed(t *testing.T) {
	var seen []Transition
	r := &run{id: "r1", action: "pickup", notify: func(tr Transition) { seen = append(seen, tr) }}

	if err := r.advance(Grasping); err == nil {
		t.Fatal("advance(Grasping) from not-started should fail")
	}
	if r.state != NotStarted {
		t.Errorf("state = %s after rejected transition, want not-started", r.state)
	}
	if len(seen) != 0 {
		t.Errorf("notify called %d times for rejected transition", len(seen))
	}

	if err := r.advance(Hovering); err != nil {
		t.Fatalf("advance(Hovering): %v", err)
	}
	if len(seen) != 1 || seen[0].From != NotStarted || seen[0].To != Hovering {
		t.Errorf("unexpected transitions: %+v", seen)
	}
}

func TestState_Terminal(t *testing.T) {
	for _, s := range []State{NotStarted, Hovering, PreGrasping, Grasping, PostGrasping} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	if !Completed.Terminal() || !Failed.Terminal() {
		t.Error("completed and failed must be terminal")
	}
}
