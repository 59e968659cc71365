// Package armctl records and replays grasp actions on Feetech servo arms.
//
// An action is a named sequence of four poses (hover, pre-grasp, grasp and
// post-grasp). Poses are recorded from the arm's current joint positions and
// stored in a JSON catalog; running an action drives the arm through the
// poses in order, waiting for each move to settle.
//
// # Installation
//
//	go install github.com/gwillem/armctl/cmd/armctl@latest
//
// # Usage
//
// First, run setup to find the arm and record its limits:
//
//	armctl setup
//
// Then record and run actions:
//
//	armctl record pickup hover
//	armctl run pickup
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/armctl: CLI with setup, record, run, jog, shell and monitor commands
//   - pkg/action: Pose catalog store and action executor
//   - pkg/robot: Arm control, limits and configuration
//   - pkg/session: Connected arm session shared by the interactive commands
//   - pkg/logging: zerolog setup
package armctl
