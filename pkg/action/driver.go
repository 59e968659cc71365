package action

import "context"

// PositionReader reads the current arm pose.
type PositionReader interface {
	// ReadPositions returns one tick value per configured servo, in configured order.
	ReadPositions(ctx context.Context) (Pose, error)
}

// Mover commands the arm to a pose.
type Mover interface {
	// MoveTo issues the move and returns once the command is sent. It does not
	// wait for the arm to arrive. When ids is non-empty only those servos move.
	MoveTo(ctx context.Context, pose Pose, ids ...int) error
}

// Driver is the hardware surface consumed by this package. Disable is only
// called by whoever owns the driver, never by Store or Executor.
type Driver interface {
	PositionReader
	Mover
	Disable(ctx context.Context) error
}

// Lookup finds actions by name.
type Lookup interface {
	Action(name string) (Action, error)
}
