package action

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gwillem/armctl/pkg/logging"
)

// DefaultCatalogFile is where actions are stored unless configured otherwise.
const DefaultCatalogFile = "actions.json"

// Store owns the action catalog and its file. Every mutation is written
// through to disk before it is reported as successful.
//
// A Store assumes it is the only writer of its file.
type Store struct {
	path       string
	servoCount int
	log        zerolog.Logger

	mu      sync.RWMutex
	catalog Catalog
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for persistence events.
func WithLogger(log zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.log = logging.Component(log, "store")
	}
}

// WithServoCount makes Open and RecordPose reject poses that do not have
// exactly n positions.
func WithServoCount(n int) StoreOption {
	return func(s *Store) {
		s.servoCount = n
	}
}

// Load reads a catalog file. A missing or blank file is an empty catalog; a
// file that is not a valid catalog returns ErrCorruptCatalog.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Catalog{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Catalog{}, nil
	}

	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptCatalog, path, err)
	}
	if c == nil {
		c = Catalog{}
	}
	return c, nil
}

// checkServoCount reports the first pose without exactly n positions. n <= 0
// disables the check.
func (c Catalog) checkServoCount(n int) error {
	if n <= 0 {
		return nil
	}
	for _, name := range c.Names() {
		a := c[name]
		for _, t := range Sequence() {
			if p, ok := a.Poses[t]; ok && len(p) != n {
				return fmt.Errorf("action %q: %s pose has %d positions, want %d", name, t, len(p), n)
			}
		}
	}
	return nil
}

// Open loads the catalog at path and returns a Store that owns it.
func Open(path string, opts ...StoreOption) (*Store, error) {
	s := &Store{
		path: path,
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.checkServoCount(s.servoCount); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptCatalog, path, err)
	}
	s.catalog = c

	s.log.Debug().Str("path", path).Int("actions", len(c)).Msg("catalog loaded")
	return s, nil
}

// Path returns the catalog file path.
func (s *Store) Path() string {
	return s.path
}

// Catalog returns a copy of the current catalog.
func (s *Store) Catalog() Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Clone()
}

// Names returns the recorded action names in lexical order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Names()
}

// Action returns a copy of the named action, or ErrNotFound.
func (s *Store) Action(name string) (Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.catalog[name]
	if !ok {
		return Action{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return a.Clone(), nil
}

// RecordPose stores pose under (name, t), creating the action if needed and
// replacing any earlier pose of that type. The catalog is persisted before
// RecordPose returns nil.
//
// If persisting fails the new pose is kept in memory and a *PersistenceError
// is returned alongside the updated catalog.
func (s *Store) RecordPose(name string, t PoseType, pose Pose) (Catalog, error) {
	if err := s.checkRecord(name, t); err != nil {
		return nil, err
	}
	if len(pose) == 0 || (s.servoCount > 0 && len(pose) != s.servoCount) {
		return nil, fmt.Errorf("record %q %s: %w: got %d positions, want %d",
			name, t, ErrInvalidPose, len(pose), s.servoCount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.catalog[name]
	if !ok {
		a = Action{Name: name, Poses: make(map[PoseType]Pose, len(Sequence()))}
	}
	prev, replaced := a.Poses[t]
	a.Poses[t] = pose.Clone()
	s.catalog[name] = a

	s.log.Info().
		Str("action", name).
		Stringer("pose_type", t).
		Ints("pose", pose).
		Bool("replaced", replaced).
		Bool("changed", !prev.Equal(pose)).
		Msg("pose recorded")

	if err := s.saveLocked(); err != nil {
		return s.catalog.Clone(), err
	}
	return s.catalog.Clone(), nil
}

// Record reads the arm's current pose and records it under (name, t). The
// pose type and name are checked before the hardware is touched.
func (s *Store) Record(ctx context.Context, r PositionReader, name string, t PoseType) (Catalog, error) {
	if err := s.checkRecord(name, t); err != nil {
		return nil, err
	}

	pose, err := r.ReadPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("record %q %s: read positions: %w", name, t, err)
	}
	return s.RecordPose(name, t, pose)
}

// Save writes the full catalog, replacing the file's previous content.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveLocked()
}

func (s *Store) checkRecord(name string, t PoseType) error {
	if !t.Valid() {
		return fmt.Errorf("record %q: %w: %s", name, ErrInvalidPoseType, t)
	}
	if name == "" {
		return fmt.Errorf("record: %w: empty name", ErrInvalidName)
	}
	return nil
}

// saveLocked writes to a temporary file in the same directory and renames it
// over the catalog, so a crash never leaves a half-written file behind.
func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.catalog, "", "    ")
	if err != nil {
		return &PersistenceError{Path: s.path, Err: fmt.Errorf("encode: %w", err)}
	}
	data = append(data, '\n')

	if err := writeFileAtomic(s.path, data, 0644); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("catalog not persisted")
		return &PersistenceError{Path: s.path, Err: err}
	}

	s.log.Debug().Str("path", s.path).Int("actions", len(s.catalog)).Msg("catalog saved")
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
