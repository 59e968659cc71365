package robot

import (
	"fmt"

	"github.com/gwillem/armctl/pkg/action"
)

// ServoLimit is the allowed position range of one servo, in raw ticks.
type ServoLimit struct {
	ID  int
	Min int
	Max int
}

// Contains reports whether pos lies within [Min, Max].
func (l ServoLimit) Contains(pos int) bool {
	return pos >= l.Min && pos <= l.Max
}

// Span returns the size of the range.
func (l ServoLimit) Span() int {
	return l.Max - l.Min
}

// Limits holds one ServoLimit per configured servo, in configured order.
type Limits []ServoLimit

// IDs returns the servo IDs in configured order.
func (l Limits) IDs() []int {
	ids := make([]int, len(l))
	for i, sl := range l {
		ids[i] = sl.ID
	}
	return ids
}

// LimitsAt returns zero-width limits for ids centred on pose, ready to be
// widened as the arm moves.
func LimitsAt(ids []int, pose action.Pose) Limits {
	l := make(Limits, len(ids))
	for i, id := range ids {
		l[i] = ServoLimit{ID: id}
		if i < len(pose) {
			l[i].Min, l[i].Max = pose[i], pose[i]
		}
	}
	return l
}

// Widen grows each servo's range to include the matching position of pose.
// Extra positions are ignored.
func (l Limits) Widen(pose action.Pose) {
	for i := range l {
		if i >= len(pose) {
			return
		}
		l[i].Min = min(l[i].Min, pose[i])
		l[i].Max = max(l[i].Max, pose[i])
	}
}

// Unmoved returns the IDs of servos whose range is narrower than minSpan.
func (l Limits) Unmoved(minSpan int) []int {
	var ids []int
	for _, sl := range l {
		if sl.Span() < minSpan {
			ids = append(ids, sl.ID)
		}
	}
	return ids
}

// Index returns the pose index of a servo ID.
func (l Limits) Index(id int) (int, bool) {
	for i, sl := range l {
		if sl.ID == id {
			return i, true
		}
	}
	return -1, false
}

// LimitError reports a pose that cannot be sent to the arm.
type LimitError struct {
	ServoID  int
	Position int
	Limit    ServoLimit
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("servo %d (%s): position %d outside limits [%d, %d]",
		e.ServoID, MotorForID(e.ServoID), e.Position, e.Limit.Min, e.Limit.Max)
}

// Check verifies the pose has one position per servo and that each position
// is within its servo's limits. Positions are never clamped.
func (l Limits) Check(pose action.Pose) error {
	if len(pose) != len(l) {
		return fmt.Errorf("%w: got %d positions for %d servos", action.ErrInvalidPose, len(pose), len(l))
	}
	for i, sl := range l {
		if !sl.Contains(pose[i]) {
			return &LimitError{ServoID: sl.ID, Position: pose[i], Limit: sl}
		}
	}
	return nil
}
