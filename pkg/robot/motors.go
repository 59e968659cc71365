// Package robot drives Feetech servo arms and holds their configuration.
package robot

import "fmt"

// MotorName identifies a motor in the arm.
type MotorName string

// Motor names for the SO-101 arm.
const (
	ShoulderPan  MotorName = "shoulder_pan"
	ShoulderLift MotorName = "shoulder_lift"
	ElbowFlex    MotorName = "elbow_flex"
	WristFlex    MotorName = "wrist_flex"
	WristRoll    MotorName = "wrist_roll"
	Gripper      MotorName = "gripper"
)

// AllMotors returns all motor names in order (matching servo IDs 1-6).
func AllMotors() []MotorName {
	return []MotorName{
		ShoulderPan,
		ShoulderLift,
		ElbowFlex,
		WristFlex,
		WristRoll,
		Gripper,
	}
}

// MotorForID returns the SO-101 joint name for a servo ID, or "servo_<id>"
// for IDs outside 1-6.
func MotorForID(id int) MotorName {
	motors := AllMotors()
	if id >= 1 && id <= len(motors) {
		return motors[id-1]
	}
	return MotorName(fmt.Sprintf("servo_%d", id))
}
