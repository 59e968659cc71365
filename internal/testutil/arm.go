// Package testutil provides an in-memory arm for tests.
package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gwillem/armctl/pkg/action"
)

// Move is one MoveTo call seen by FakeArm.
type Move struct {
	Pose action.Pose
	IDs  []int
}

// FakeArm records every command and jumps straight to commanded poses.
//
// Thread-safety: all methods are safe for concurrent use.
type FakeArm struct {
	mu       sync.Mutex
	ids      []int
	pose     action.Pose
	moves    []Move
	failAt   map[int]error // 1-based MoveTo call -> error
	readErr  error
	reads    int
	enabled  bool
	disables int
	closed   bool
}

// NewFakeArm returns an arm with the given servo ids resting at pose.
func NewFakeArm(ids []int, pose action.Pose) *FakeArm {
	return &FakeArm{
		ids:    slices.Clone(ids),
		pose:   pose.Clone(),
		failAt: make(map[int]error),
	}
}

// FailMove makes the n-th MoveTo call (1-based) return err.
func (f *FakeArm) FailMove(n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAt[n] = err
}

// FailReads makes ReadPositions return err until cleared with nil.
func (f *FakeArm) FailReads(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr = err
}

// SetPose moves the arm as if by hand.
func (f *FakeArm) SetPose(p action.Pose) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pose = p.Clone()
}

// Moves returns the MoveTo calls made so far.
func (f *FakeArm) Moves() []Move {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.moves)
}

// Poses returns the poses of all MoveTo calls made so far.
func (f *FakeArm) Poses() []action.Pose {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]action.Pose, len(f.moves))
	for i, m := range f.moves {
		out[i] = m.Pose
	}
	return out
}

// Enabled reports whether torque is on.
func (f *FakeArm) Enabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

// Disables returns how many times Disable was called.
func (f *FakeArm) Disables() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disables
}

// Reads returns how many times ReadPositions was called.
func (f *FakeArm) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// Closed reports whether Close was called.
func (f *FakeArm) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeArm) ReadPositions(ctx context.Context) (action.Pose, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.pose.Clone(), nil
}

func (f *FakeArm) MoveTo(ctx context.Context, pose action.Pose, ids ...int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.moves = append(f.moves, Move{Pose: pose.Clone(), IDs: slices.Clone(ids)})
	if err, ok := f.failAt[len(f.moves)]; ok {
		return err
	}
	if len(pose) != len(f.ids) {
		return fmt.Errorf("fake arm: got %d positions, want %d", len(pose), len(f.ids))
	}

	if len(ids) == 0 {
		f.pose = pose.Clone()
		return nil
	}
	for _, id := range ids {
		i := slices.Index(f.ids, id)
		if i < 0 {
			return fmt.Errorf("fake arm: unknown servo %d", id)
		}
		f.pose[i] = pose[i]
	}
	return nil
}

func (f *FakeArm) Enable(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = true
	return nil
}

func (f *FakeArm) Disable(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = false
	f.disables++
	return nil
}

func (f *FakeArm) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Sleeper records settle waits instead of sleeping.
type Sleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

// Sleep records d.
func (s *Sleeper) Sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
}

// Waits returns the recorded durations.
func (s *Sleeper) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.waits)
}
