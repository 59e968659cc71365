package robot

import (
	"context"
	"fmt"

	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/armctl/pkg/action"
)

var _ action.Driver = (*Arm)(nil)

// Arm represents a robot arm with multiple servos. Positions are raw ticks
// ordered like the configured servo IDs.
type Arm struct {
	bus    *feetech.Bus
	group  *feetech.ServoGroup
	limits Limits
}

// NewArm opens the serial bus and creates a servo group for the configured IDs.
func NewArm(cfg ArmConfig) (*Arm, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: cfg.Baud(),
		Protocol: feetech.ProtocolSTS,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	limits := cfg.Limits()
	group := feetech.NewServoGroupByIDs(bus, limits.IDs()...)

	return &Arm{
		bus:    bus,
		group:  group,
		limits: limits,
	}, nil
}

// Close closes the arm's bus connection.
func (a *Arm) Close() error {
	return a.bus.Close()
}

// Enable enables torque on all servos.
func (a *Arm) Enable(ctx context.Context) error {
	return a.group.EnableAll(ctx)
}

// Disable disables torque on all servos.
func (a *Arm) Disable(ctx context.Context) error {
	return a.group.DisableAll(ctx)
}

// Limits returns the configured servo limits.
func (a *Arm) Limits() Limits {
	return a.limits
}

// ReadPositions reads current positions from all motors in configured order.
func (a *Arm) ReadPositions(ctx context.Context) (action.Pose, error) {
	raw, err := a.group.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	pose := make(action.Pose, len(a.limits))
	for i, l := range a.limits {
		pos, ok := raw[l.ID]
		if !ok {
			return nil, fmt.Errorf("read positions: no reading from servo %d", l.ID)
		}
		pose[i] = pos
	}
	return pose, nil
}

// MoveTo writes target positions using sync write. With ids, only those
// servos are commanded. A pose outside the limits is rejected, not clamped.
func (a *Arm) MoveTo(ctx context.Context, pose action.Pose, ids ...int) error {
	if err := a.limits.Check(pose); err != nil {
		return fmt.Errorf("move: %w", err)
	}

	targets := make(feetech.PositionMap, len(a.limits))
	if len(ids) == 0 {
		for i, l := range a.limits {
			targets[l.ID] = pose[i]
		}
	} else {
		for _, id := range ids {
			i, ok := a.limits.Index(id)
			if !ok {
				return fmt.Errorf("move: servo %d not configured", id)
			}
			targets[id] = pose[i]
		}
	}

	if err := a.group.SetPositions(ctx, targets); err != nil {
		return fmt.Errorf("write positions: %w", err)
	}
	return nil
}
