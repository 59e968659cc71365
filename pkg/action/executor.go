package action

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gwillem/armctl/pkg/logging"
)

// DefaultSettle is how long the executor waits after each move command.
const DefaultSettle = 250 * time.Millisecond

// Result describes how far a run got.
type Result struct {
	RunID     string
	Action    string
	State     State
	Completed []PoseType
}

// Executor plays actions back on a Mover.
//
// The settle wait is a fixed delay rather than a move-complete signal; the
// servo bus gives no reliable arrival notification.
type Executor struct {
	settle       time.Duration
	sleep        func(time.Duration)
	log          zerolog.Logger
	onTransition func(Transition)
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithSettle sets the wait after each move command.
func WithSettle(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.settle = d
	}
}

// WithSleep replaces time.Sleep for the settle wait.
func WithSleep(sleep func(time.Duration)) ExecutorOption {
	return func(e *Executor) {
		e.sleep = sleep
	}
}

// WithExecutorLogger sets the logger for run progress.
func WithExecutorLogger(log zerolog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.log = logging.Component(log, "executor")
	}
}

// OnTransition registers a callback invoked on every state change.
func OnTransition(fn func(Transition)) ExecutorOption {
	return func(e *Executor) {
		e.onTransition = fn
	}
}

// NewExecutor returns an Executor with the default settle wait.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		settle: DefaultSettle,
		sleep:  time.Sleep,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Settle returns the configured settle wait.
func (e *Executor) Settle() time.Duration {
	return e.settle
}

// Run moves the arm through a's poses in the order Hover, PreGrasp, Grasp,
// PostGrasp, waiting the settle duration after each move.
//
// Run stops at the first pose that is not recorded (*IncompleteActionError)
// or that the driver fails to reach (*HardwareError). Moves already made are
// not undone. A cancelled ctx is only observed between poses; the settle wait
// always runs to completion.
func (e *Executor) Run(ctx context.Context, a Action, m Mover) (Result, error) {
	r := &run{
		id:     uuid.NewString(),
		action: a.Name,
		state:  NotStarted,
		notify: e.onTransition,
	}
	res := Result{RunID: r.id, Action: a.Name}
	log := e.log.With().Str("action", a.Name).Str("run_id", r.id).Logger()

	fail := func(err error) (Result, error) {
		if terr := r.advance(Failed); terr != nil {
			return res, terr
		}
		res.State = r.state
		log.Warn().Err(err).Msg("run failed")
		return res, err
	}

	log.Info().Msg("run started")
	for _, t := range Sequence() {
		pose, ok := a.Poses[t]
		if !ok {
			return fail(&IncompleteActionError{
				Action:    a.Name,
				Missing:   t,
				Completed: append([]PoseType(nil), res.Completed...),
			})
		}
		if err := ctx.Err(); err != nil {
			return fail(fmt.Errorf("run %q: aborted before %s pose: %w", a.Name, t, err))
		}

		if err := r.advance(stateFor(t)); err != nil {
			return res, err
		}
		if err := m.MoveTo(ctx, pose.Clone()); err != nil {
			return fail(&HardwareError{Action: a.Name, PoseType: t, Cause: err})
		}
		e.sleep(e.settle)

		res.Completed = append(res.Completed, t)
		log.Debug().Stringer("pose_type", t).Ints("pose", pose).Msg("pose reached")
	}

	if err := r.advance(Completed); err != nil {
		return res, err
	}
	res.State = r.state
	log.Info().Msg("run completed")
	return res, nil
}

// RunNamed looks the action up and runs it. An unknown name returns
// ErrNotFound without touching the hardware.
func (e *Executor) RunNamed(ctx context.Context, l Lookup, name string, m Mover) (Result, error) {
	a, err := l.Action(name)
	if err != nil {
		return Result{Action: name, State: NotStarted}, err
	}
	return e.Run(ctx, a, m)
}
