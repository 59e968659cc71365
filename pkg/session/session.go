// Package session ties one arm, its action store and an executor together for
// the lifetime of a control session.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gwillem/armctl/pkg/action"
	"github.com/gwillem/armctl/pkg/logging"
	"github.com/gwillem/armctl/pkg/robot"
)

// ErrUnknownServo is returned when jogging a servo that is not configured.
var ErrUnknownServo = errors.New("unknown servo")

// Driver is the arm surface a session needs.
type Driver interface {
	action.Driver
	Enable(ctx context.Context) error
	Close() error
}

// Config holds per-arm settings for a session.
type Config struct {
	ServoIDs []int
	HomePose action.Pose // optional, commanded by Start
	RestPose action.Pose // optional, commanded by Close
	Settle   time.Duration
}

// State is a snapshot of the arm's positions.
type State struct {
	Positions action.Pose
	Timestamp time.Time
	Error     error
}

// Session owns the arm for its lifetime. Hardware commands are serialized so
// that only one is ever in flight.
type Session struct {
	arm   Driver
	store *action.Store
	exec  *action.Executor
	cfg   Config
	log   zerolog.Logger
	sleep func(time.Duration)

	hooks      []func(action.Transition)
	keepTorque bool

	mu      sync.Mutex
	started bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. The executor logs through it too.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// WithSleep replaces time.Sleep for settle waits.
func WithSleep(sleep func(time.Duration)) Option {
	return func(s *Session) {
		s.sleep = sleep
	}
}

// WithTransitionHook is called on every executor state change.
func WithTransitionHook(fn func(action.Transition)) Option {
	return func(s *Session) {
		s.hooks = append(s.hooks, fn)
	}
}

// WithTorqueKept makes Close leave torque on, so the arm keeps holding its
// last commanded pose after the bus is closed.
func WithTorqueKept() Option {
	return func(s *Session) {
		s.keepTorque = true
	}
}

// New creates a session. The arm is not touched until Start.
func New(arm Driver, store *action.Store, cfg Config, opts ...Option) *Session {
	s := &Session{
		arm:   arm,
		store: store,
		cfg:   cfg,
		log:   zerolog.Nop(),
		sleep: time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.Settle == 0 {
		s.cfg.Settle = action.DefaultSettle
	}

	s.exec = action.NewExecutor(
		action.WithSettle(s.cfg.Settle),
		action.WithSleep(s.sleep),
		action.WithExecutorLogger(s.log),
		action.OnTransition(func(tr action.Transition) {
			for _, hook := range s.hooks {
				hook(tr)
			}
		}),
	)
	s.log = logging.Component(s.log, "session")
	return s
}

// Store returns the session's action store.
func (s *Session) Store() *action.Store {
	return s.store
}

// ServoIDs returns the configured servo IDs.
func (s *Session) ServoIDs() []int {
	return slices.Clone(s.cfg.ServoIDs)
}

// Start enables torque and moves to the home pose if one is configured.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("session already started")
	}
	if err := s.arm.Enable(ctx); err != nil {
		return fmt.Errorf("enable torque: %w", err)
	}
	s.started = true
	s.log.Info().Msg("torque enabled")

	if len(s.cfg.HomePose) > 0 {
		if err := s.moveLocked(ctx, s.cfg.HomePose); err != nil {
			return fmt.Errorf("move to home pose: %w", err)
		}
		s.log.Info().Ints("pose", s.cfg.HomePose).Msg("at home pose")
	}
	return nil
}

// Close moves to the rest pose if configured, disables torque unless
// WithTorqueKept was given, and closes the bus. Every step is attempted even
// if an earlier one fails.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.started && len(s.cfg.RestPose) > 0 {
		if err := s.moveLocked(ctx, s.cfg.RestPose); err != nil {
			errs = append(errs, fmt.Errorf("move to rest pose: %w", err))
		}
	}
	if s.keepTorque {
		s.log.Info().Msg("torque left on")
	} else if err := s.arm.Disable(ctx); err != nil {
		errs = append(errs, fmt.Errorf("disable torque: %w", err))
	} else {
		s.log.Info().Msg("torque disabled")
	}
	if err := s.arm.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close arm: %w", err))
	}
	s.started = false
	return errors.Join(errs...)
}

// Release disables torque so the arm can be posed by hand.
func (s *Session) Release(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.arm.Disable(ctx)
}

// Positions reads the current pose.
func (s *Session) Positions(ctx context.Context) (action.Pose, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.arm.ReadPositions(ctx)
}

// Jog turns one servo by deltaDeg degrees, waits for it to settle and
// returns the pose read back from the arm.
func (s *Session) Jog(ctx context.Context, servoID int, deltaDeg float64) (action.Pose, error) {
	idx := slices.Index(s.cfg.ServoIDs, servoID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %d (configured: %v)", ErrUnknownServo, servoID, s.cfg.ServoIDs)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pose, err := s.arm.ReadPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("jog servo %d: %w", servoID, err)
	}
	target := pose.Clone()
	target[idx] += robot.DegreesToTicks(deltaDeg)

	if err := s.arm.MoveTo(ctx, target, servoID); err != nil {
		return nil, fmt.Errorf("jog servo %d: %w", servoID, err)
	}
	s.sleep(s.cfg.Settle)

	cur, err := s.arm.ReadPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("jog servo %d: read back: %w", servoID, err)
	}
	s.log.Debug().Int("servo", servoID).Float64("delta_deg", deltaDeg).Ints("pose", cur).Msg("jogged")
	return cur, nil
}

// Record stores the arm's current pose as pose type t of the named action.
func (s *Session) Record(ctx context.Context, name string, t action.PoseType) (action.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Record(ctx, s.arm, name, t)
}

// RecordPose stores an already captured pose without reading the arm.
func (s *Session) RecordPose(name string, t action.PoseType, pose action.Pose) (action.Catalog, error) {
	return s.store.RecordPose(name, t, pose)
}

// Run plays the named action.
func (s *Session) Run(ctx context.Context, name string) (action.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exec.RunNamed(ctx, s.store, name, s.arm)
}

// Stream polls positions at hz until ctx is done. Slow readers only see the
// latest state. The channel is closed once the poller has stopped, after
// which the session no longer reads from the arm on its behalf.
func (s *Session) Stream(ctx context.Context, hz int) <-chan State {
	if hz <= 0 {
		hz = 10
	}
	ch := make(chan State, 1)

	go func() {
		defer close(ch)
		ticker := time.NewTicker(time.Second / time.Duration(hz))
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pos, err := s.Positions(ctx)
				sendState(ch, State{Positions: pos, Timestamp: time.Now(), Error: err})
			}
		}
	}()
	return ch
}

func sendState(ch chan State, st State) {
	select {
	case ch <- st:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

func (s *Session) moveLocked(ctx context.Context, pose action.Pose) error {
	if err := s.arm.MoveTo(ctx, pose.Clone()); err != nil {
		return err
	}
	s.sleep(s.cfg.Settle)
	return nil
}
