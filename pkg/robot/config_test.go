package robot

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gwillem/armctl/pkg/action"
)

func validConfig() Config {
	return Config{
		Arm: ArmConfig{
			Port:             "/dev/ttyACM0",
			ServoIDs:         []int{1, 2, 3},
			MinPositionLimit: []int{500, 600, 700},
			MaxPositionLimit: []int{3500, 3600, 3700},
			HomePose:         []int{2048, 2048, 2048},
			RestPose:         []int{2048, 1000, 3000},
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestConfig_ValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing port", func(c *Config) { c.Arm.Port = "" }, "Port"},
		{"no servos", func(c *Config) { c.Arm.ServoIDs = nil }, "ServoIDs"},
		{"duplicate servo", func(c *Config) { c.Arm.ServoIDs = []int{1, 1, 3} }, "ServoIDs"},
		{"servo id range", func(c *Config) { c.Arm.ServoIDs = []int{1, 2, 300} }, "ServoIDs"},
		{"short limits", func(c *Config) { c.Arm.MinPositionLimit = []int{1, 2} }, "min_position_limit has 2 entries"},
		{"inverted limit", func(c *Config) { c.Arm.MinPositionLimit[1] = 4000 }, "servo 2: min 4000 not below max 3600"},
		{"home outside limits", func(c *Config) { c.Arm.HomePose[0] = 10 }, "home_pose"},
		{"rest wrong length", func(c *Config) { c.Arm.RestPose = []int{1} }, "rest_pose has 1 entries"},
		{"negative settle", func(c *Config) { c.SettleMS = -5 }, "SettleMS"},
	}

	for _, tt := range tests {
		cfg := validConfig()
		tt.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: Validate() = nil, want error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: Validate() = %q, want it to mention %q", tt.name, err, tt.want)
		}
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := validConfig()
	if got := cfg.Settle(); got != action.DefaultSettle {
		t.Errorf("Settle() = %s, want %s", got, action.DefaultSettle)
	}
	if got := cfg.CatalogPath(); got != action.DefaultCatalogFile {
		t.Errorf("CatalogPath() = %s, want %s", got, action.DefaultCatalogFile)
	}
	if got := cfg.Arm.Baud(); got != DefaultBaudRate {
		t.Errorf("Baud() = %d, want %d", got, DefaultBaudRate)
	}

	cfg.SettleMS = 500
	if got := cfg.Settle(); got != 500*time.Millisecond {
		t.Errorf("Settle() = %s, want 500ms", got)
	}
}

func TestConfig_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "armctl.json")
	cfg := validConfig()
	cfg.ActionsFile = "grasps.json"
	cfg.SettleMS = 300

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	if !ConfigExists(path) {
		t.Fatal("ConfigExists = false after SaveTo")
	}

	loaded, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if loaded.ActionsFile != "grasps.json" || loaded.SettleMS != 300 {
		t.Errorf("loaded = %+v", loaded)
	}
	if len(loaded.Arm.ServoIDs) != 3 || loaded.Arm.ServoIDs[2] != 3 {
		t.Errorf("servo ids = %v", loaded.Arm.ServoIDs)
	}
}

func TestLoadConfigFrom_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "armctl.json")
	if err := os.WriteFile(path, []byte(`{"arm": {"port": ""}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigFrom(path); err == nil {
		t.Error("LoadConfigFrom accepted a config without port or servos")
	}

	_, err := LoadConfigFrom(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfigFrom(missing) = %v, want os.ErrNotExist", err)
	}
}

func TestLimits(t *testing.T) {
	arm := validConfig().Arm
	limits := arm.Limits()

	if got := limits.IDs(); len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("IDs() = %v", got)
	}
	if i, ok := limits.Index(2); !ok || i != 1 {
		t.Errorf("Index(2) = %d, %v", i, ok)
	}
	if _, ok := limits.Index(9); ok {
		t.Error("Index(9) should return false")
	}

	if err := limits.Check(action.Pose{500, 3600, 2000}); err != nil {
		t.Errorf("Check(at limits) = %v", err)
	}

	err := limits.Check(action.Pose{500, 3601, 2000})
	var le *LimitError
	if !errors.As(err, &le) {
		t.Fatalf("Check(over max) = %v, want *LimitError", err)
	}
	if le.ServoID != 2 || le.Position != 3601 {
		t.Errorf("LimitError = %+v", le)
	}

	if err := limits.Check(action.Pose{500, 600}); !errors.Is(err, action.ErrInvalidPose) {
		t.Errorf("Check(short pose) = %v, want ErrInvalidPose", err)
	}
}

func TestLimits_WidenAndUnmoved(t *testing.T) {
	limits := LimitsAt([]int{1, 2}, action.Pose{2048, 2048})
	if got := limits.Unmoved(1); len(got) != 2 {
		t.Errorf("Unmoved(1) on fresh limits = %v, want both servos", got)
	}

	limits.Widen(action.Pose{1000, 2048})
	limits.Widen(action.Pose{3000, 2049})
	if got := limits.Unmoved(10); len(got) != 1 || got[0] != 2 {
		t.Errorf("Unmoved(10) = %v, want [2]", got)
	}
	if limits[0].Span() != 2000 {
		t.Errorf("servo 1 span = %d, want 2000", limits[0].Span())
	}

	limits.Widen(action.Pose{4000}) // short pose only touches servo 1
	if limits[0].Max != 4000 || limits[1].Max != 2049 {
		t.Errorf("limits after short widen = %+v", limits)
	}
}

// A rest pose captured after the range step can fall just outside the
// recorded range; widening to cover it keeps the config valid.
func TestSetLimits_CoversCapturedPoses(t *testing.T) {
	limits := LimitsAt([]int{1, 2}, action.Pose{1000, 2000})
	limits.Widen(action.Pose{3000, 2048})

	home := action.Pose{2000, 2048}
	rest := action.Pose{2000, 2049}
	for _, p := range []action.Pose{home, rest} {
		limits.Widen(p)
	}

	cfg := Config{Arm: ArmConfig{
		Port:     "/dev/ttyACM0",
		ServoIDs: []int{1, 2},
		HomePose: home,
		RestPose: rest,
	}}
	cfg.Arm.SetLimits(limits)

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if got := cfg.Arm.MaxPositionLimit; got[0] != 3000 || got[1] != 2049 {
		t.Errorf("MaxPositionLimit = %v, want [3000 2049]", got)
	}
}

func TestEnv_Apply(t *testing.T) {
	t.Setenv("ARMCTL_ACTIONS", "/tmp/other.json")
	t.Setenv("ARMCTL_LOG_LEVEL", "debug")

	e, err := ParseEnv()
	if err != nil {
		t.Fatalf("ParseEnv: %v", err)
	}
	if e.ConfigFile != DefaultConfigFile {
		t.Errorf("ConfigFile = %q, want default", e.ConfigFile)
	}
	if e.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", e.LogLevel)
	}

	cfg := validConfig()
	cfg.ActionsFile = "actions.json"
	e.Apply(&cfg)
	if cfg.ActionsFile != "/tmp/other.json" {
		t.Errorf("ActionsFile = %q after Apply", cfg.ActionsFile)
	}
}
