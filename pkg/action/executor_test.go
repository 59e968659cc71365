package action_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/armctl/internal/testutil"
	"github.com/gwillem/armctl/pkg/action"
)

// tracingMover interleaves move and settle events in a single log.
type tracingMover struct {
	arm    *testutil.FakeArm
	events *[]string
}

func (m tracingMover) MoveTo(ctx context.Context, pose action.Pose, ids ...int) error {
	*m.events = append(*m.events, fmt.Sprintf("move %v", []int(pose)))
	return m.arm.MoveTo(ctx, pose, ids...)
}

func pickup() action.Action {
	return action.Action{
		Name: "pickup",
		Poses: map[action.PoseType]action.Pose{
			action.Hover:     {10, 20},
			action.PreGrasp:  {15, 25},
			action.Grasp:     {18, 28},
			action.PostGrasp: {5, 5},
		},
	}
}

func newExecutor(sleeper *testutil.Sleeper, opts ...action.ExecutorOption) *action.Executor {
	return action.NewExecutor(append([]action.ExecutorOption{action.WithSleep(sleeper.Sleep)}, opts...)...)
}

func TestExecutor_RunPickupScenario(t *testing.T) {
	s, _ := openStore(t)
	for pt, pose := range pickup().Poses {
		_, err := s.RecordPose("pickup", pt, pose)
		require.NoError(t, err)
	}

	arm := testutil.NewFakeArm([]int{1, 2}, action.Pose{0, 0})
	sleeper := &testutil.Sleeper{}
	exec := newExecutor(sleeper)

	res, err := exec.RunNamed(context.Background(), s, "pickup", arm)
	require.NoError(t, err)

	assert.Equal(t, action.Completed, res.State)
	assert.Equal(t, action.Sequence(), res.Completed)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []action.Pose{{10, 20}, {15, 25}, {18, 28}, {5, 5}}, arm.Poses())
	assert.Equal(t, []time.Duration{
		action.DefaultSettle, action.DefaultSettle, action.DefaultSettle, action.DefaultSettle,
	}, sleeper.Waits())
}

func TestExecutor_SettleFollowsEachMove(t *testing.T) {
	var events []string
	arm := testutil.NewFakeArm([]int{1, 2}, action.Pose{0, 0})
	exec := action.NewExecutor(
		action.WithSettle(40*time.Millisecond),
		action.WithSleep(func(d time.Duration) {
			events = append(events, fmt.Sprintf("settle %s", d))
		}),
	)

	_, err := exec.Run(context.Background(), pickup(), tracingMover{arm: arm, events: &events})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"move [10 20]", "settle 40ms",
		"move [15 25]", "settle 40ms",
		"move [18 28]", "settle 40ms",
		"move [5 5]", "settle 40ms",
	}, events)
}

func TestExecutor_IncompleteActionStopsAtFirstMissing(t *testing.T) {
	full := pickup()

	for i, missing := range action.Sequence() {
		t.Run(missing.String(), func(t *testing.T) {
			a := full.Clone()
			delete(a.Poses, missing)
			// A later gap must not be reported ahead of an earlier one.
			if missing != action.PostGrasp {
				delete(a.Poses, action.PostGrasp)
			}

			arm := testutil.NewFakeArm([]int{1, 2}, action.Pose{0, 0})
			sleeper := &testutil.Sleeper{}
			res, err := newExecutor(sleeper).Run(context.Background(), a, arm)

			require.Error(t, err)
			assert.ErrorIs(t, err, action.ErrIncompleteAction)

			var incomplete *action.IncompleteActionError
			require.ErrorAs(t, err, &incomplete)
			assert.Equal(t, missing, incomplete.Missing)
			assert.Equal(t, "pickup", incomplete.Action)

			preceding := action.Sequence()[:i]
			assert.Equal(t, len(preceding), len(incomplete.Completed))
			assert.Len(t, arm.Moves(), i)
			assert.Len(t, sleeper.Waits(), i)
			for j, pt := range preceding {
				assert.Equal(t, full.Poses[pt], arm.Poses()[j])
			}

			assert.Equal(t, action.Failed, res.State)
		})
	}
}

func TestExecutor_HardwareFailureHaltsRun(t *testing.T) {
	arm := testutil.NewFakeArm([]int{1, 2}, action.Pose{0, 0})
	cause := errors.New("communication timeout")
	arm.FailMove(2, cause)
	sleeper := &testutil.Sleeper{}

	res, err := newExecutor(sleeper).Run(context.Background(), pickup(), arm)

	require.Error(t, err)
	assert.ErrorIs(t, err, action.ErrHardwareFailure)
	assert.ErrorIs(t, err, cause)

	var hw *action.HardwareError
	require.ErrorAs(t, err, &hw)
	assert.Equal(t, action.PreGrasp, hw.PoseType)
	assert.Equal(t, "pickup", hw.Action)

	assert.Len(t, arm.Moves(), 2, "third and fourth moves must not be issued")
	assert.Len(t, sleeper.Waits(), 1)
	assert.Equal(t, []action.PoseType{action.Hover}, res.Completed)
	assert.Equal(t, action.Failed, res.State)
}

func TestExecutor_CancelledBetweenPoses(t *testing.T) {
	arm := testutil.NewFakeArm([]int{1, 2}, action.Pose{0, 0})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	moves := 0
	exec := action.NewExecutor(action.WithSleep(func(time.Duration) {
		moves++
		if moves == 2 {
			cancel()
		}
	}))

	res, err := exec.Run(ctx, pickup(), arm)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, arm.Moves(), 2)
	assert.Equal(t, []action.PoseType{action.Hover, action.PreGrasp}, res.Completed)
	assert.Equal(t, action.Failed, res.State)
}

func TestExecutor_RunNamedNotFound(t *testing.T) {
	s, err := action.Open(filepath.Join(t.TempDir(), "actions.json"))
	require.NoError(t, err)
	arm := testutil.NewFakeArm([]int{1, 2}, action.Pose{0, 0})

	res, err := action.NewExecutor().RunNamed(context.Background(), s, "ghost", arm)
	assert.ErrorIs(t, err, action.ErrNotFound)
	assert.Equal(t, action.NotStarted, res.State)
	assert.Empty(t, arm.Moves())
}

func TestExecutor_Transitions(t *testing.T) {
	var got []action.Transition
	exec := action.NewExecutor(
		action.WithSleep(func(time.Duration) {}),
		action.OnTransition(func(tr action.Transition) { got = append(got, tr) }),
	)
	arm := testutil.NewFakeArm([]int{1, 2}, action.Pose{0, 0})

	res, err := exec.Run(context.Background(), pickup(), arm)
	require.NoError(t, err)

	want := []action.State{
		action.Hovering, action.PreGrasping, action.Grasping, action.PostGrasping, action.Completed,
	}
	require.Len(t, got, len(want))
	from := action.NotStarted
	for i, tr := range got {
		assert.Equal(t, from, tr.From)
		assert.Equal(t, want[i], tr.To)
		assert.Equal(t, res.RunID, tr.RunID)
		from = tr.To
	}
}

func TestExecutor_FailedRunRestartsFromBeginning(t *testing.T) {
	arm := testutil.NewFakeArm([]int{1, 2}, action.Pose{0, 0})
	arm.FailMove(3, errors.New("position unreachable"))
	exec := action.NewExecutor(action.WithSleep(func(time.Duration) {}))

	first, err := exec.Run(context.Background(), pickup(), arm)
	require.ErrorIs(t, err, action.ErrHardwareFailure)

	second, err := exec.Run(context.Background(), pickup(), arm)
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	poses := arm.Poses()
	require.Len(t, poses, 7)
	assert.Equal(t, action.Pose{10, 20}, poses[3], "second run starts at hover")
}
