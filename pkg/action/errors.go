package action

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidPoseType is returned for a pose type outside the four defined stages.
	ErrInvalidPoseType = errors.New("invalid pose type")

	// ErrInvalidName is returned when recording under an empty action name.
	ErrInvalidName = errors.New("invalid action name")

	// ErrInvalidPose is returned when a pose does not have one position per servo.
	ErrInvalidPose = errors.New("invalid pose")

	// ErrNotFound is returned for an unknown action name.
	ErrNotFound = errors.New("action not found")

	// ErrCorruptCatalog is returned when the catalog file exists but cannot be parsed.
	ErrCorruptCatalog = errors.New("corrupt catalog")

	// ErrIncompleteAction matches *IncompleteActionError.
	ErrIncompleteAction = errors.New("incomplete action")

	// ErrHardwareFailure matches *HardwareError.
	ErrHardwareFailure = errors.New("hardware failure")

	// ErrPersistence matches *PersistenceError.
	ErrPersistence = errors.New("catalog not persisted")
)

// IncompleteActionError reports that a run stopped at a pose that was never
// recorded. Poses in Completed were already sent to the hardware.
type IncompleteActionError struct {
	Action    string
	Missing   PoseType
	Completed []PoseType
}

func (e *IncompleteActionError) Error() string {
	return fmt.Sprintf("action %q is incomplete: %s pose not recorded (completed: %s)",
		e.Action, e.Missing, joinPoseTypes(e.Completed))
}

// Is makes errors.Is(err, ErrIncompleteAction) hold.
func (e *IncompleteActionError) Is(target error) bool {
	return target == ErrIncompleteAction
}

// HardwareError reports a driver failure while moving to a pose. The arm is
// left wherever it last got to.
type HardwareError struct {
	Action   string
	PoseType PoseType
	Cause    error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("action %q: move to %s pose: %v", e.Action, e.PoseType, e.Cause)
}

// Is makes errors.Is(err, ErrHardwareFailure) hold.
func (e *HardwareError) Is(target error) bool {
	return target == ErrHardwareFailure
}

func (e *HardwareError) Unwrap() error {
	return e.Cause
}

// PersistenceError reports that the catalog could not be written. The
// in-memory catalog is still valid.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist catalog %s: %v", e.Path, e.Err)
}

// Is makes errors.Is(err, ErrPersistence) hold.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func joinPoseTypes(types []PoseType) string {
	if len(types) == 0 {
		return "none"
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}
