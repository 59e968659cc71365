// Package action records named grasp actions and plays them back on an arm.
//
// An action is a sequence of up to four poses, one per PoseType. Poses are
// stored as raw servo ticks in configured servo order and persisted to a JSON
// catalog by a Store. An Executor replays complete actions in the fixed order
// Hover, PreGrasp, Grasp, PostGrasp.
package action

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
)

// PoseType identifies one of the four stages of an action.
type PoseType int

// Pose types in execution order.
const (
	Hover PoseType = iota
	PreGrasp
	Grasp
	PostGrasp
)

// Sequence returns all pose types in the order they are executed.
func Sequence() []PoseType {
	return []PoseType{Hover, PreGrasp, Grasp, PostGrasp}
}

// String returns the name used for the pose type in the catalog file.
func (t PoseType) String() string {
	switch t {
	case Hover:
		return "hover"
	case PreGrasp:
		return "pre-grasp"
	case Grasp:
		return "grasp"
	case PostGrasp:
		return "post-grasp"
	default:
		return fmt.Sprintf("PoseType(%d)", int(t))
	}
}

// Valid reports whether t is one of the four defined pose types.
func (t PoseType) Valid() bool {
	return t >= Hover && t <= PostGrasp
}

// ParsePoseType parses a catalog name such as "pre-grasp".
func ParsePoseType(s string) (PoseType, error) {
	for _, t := range Sequence() {
		if s == t.String() {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q (must be one of hover, pre-grasp, grasp, post-grasp)", ErrInvalidPoseType, s)
}

// MarshalText implements encoding.TextMarshaler so pose types key JSON objects.
func (t PoseType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPoseType, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *PoseType) UnmarshalText(text []byte) error {
	parsed, err := ParsePoseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Pose is one target position per servo in raw encoder ticks, ordered like
// the configured servo ids.
type Pose []int

// Clone returns a copy of p that shares no memory with it.
func (p Pose) Clone() Pose {
	if p == nil {
		return nil
	}
	return slices.Clone(p)
}

// Equal reports whether both poses hold the same positions in the same order.
func (p Pose) Equal(other Pose) bool {
	return slices.Equal(p, other)
}

// Action is a named grasp maneuver. Poses may be partially populated.
type Action struct {
	Name  string
	Poses map[PoseType]Pose
}

// Pose returns the pose recorded for t, if any.
func (a Action) Pose(t PoseType) (Pose, bool) {
	p, ok := a.Poses[t]
	return p, ok
}

// Missing returns the pose types not yet recorded, in execution order.
func (a Action) Missing() []PoseType {
	var missing []PoseType
	for _, t := range Sequence() {
		if _, ok := a.Poses[t]; !ok {
			missing = append(missing, t)
		}
	}
	return missing
}

// Complete reports whether all four poses are recorded.
func (a Action) Complete() bool {
	return len(a.Missing()) == 0
}

// Clone returns a deep copy of a.
func (a Action) Clone() Action {
	poses := make(map[PoseType]Pose, len(a.Poses))
	for t, p := range a.Poses {
		poses[t] = p.Clone()
	}
	return Action{Name: a.Name, Poses: poses}
}

// Catalog maps action names to actions. It is the unit of persistence.
type Catalog map[string]Action

// Names returns the action names in lexical order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of c.
func (c Catalog) Clone() Catalog {
	out := make(Catalog, len(c))
	for name, a := range c {
		out[name] = a.Clone()
	}
	return out
}

// MarshalJSON writes the catalog as {"name": {"hover": [...], ...}}.
func (c Catalog) MarshalJSON() ([]byte, error) {
	raw := make(map[string]map[PoseType]Pose, len(c))
	for name, a := range c {
		poses := a.Poses
		if poses == nil {
			poses = map[PoseType]Pose{}
		}
		raw[name] = poses
	}
	return json.Marshal(raw)
}

// UnmarshalJSON reads the catalog format written by MarshalJSON. Unknown pose
// keys and null or empty poses are rejected.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	var raw map[string]map[PoseType]Pose
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Catalog, len(raw))
	for name, poses := range raw {
		if poses == nil {
			poses = map[PoseType]Pose{}
		}
		for t, p := range poses {
			if len(p) == 0 {
				return fmt.Errorf("action %q: %s pose is empty", name, t)
			}
		}
		out[name] = Action{Name: name, Poses: poses}
	}
	*c = out
	return nil
}
