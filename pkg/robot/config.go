package robot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"github.com/gwillem/armctl/pkg/action"
)

const (
	DefaultConfigFile = "armctl.json"
	DefaultBaudRate   = 1_000_000
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds the robot configuration
type Config struct {
	Arm         ArmConfig `json:"arm"`
	ActionsFile string    `json:"actions_file,omitempty"`
	SettleMS    int       `json:"settle_ms,omitempty" validate:"gte=0"`
}

// ArmConfig holds configuration for a single arm. Limit and pose slices are
// indexed like ServoIDs.
type ArmConfig struct {
	Port             string `json:"port" validate:"required"`
	BaudRate         int    `json:"baud_rate,omitempty" validate:"gte=0"`
	ServoIDs         []int  `json:"servo_ids" validate:"required,min=1,unique,dive,gte=0,lte=253"`
	MinPositionLimit []int  `json:"min_position_limit" validate:"required"`
	MaxPositionLimit []int  `json:"max_position_limit" validate:"required"`
	HomePose         []int  `json:"home_pose,omitempty"`
	RestPose         []int  `json:"rest_pose,omitempty"`
}

// Limits pairs each servo ID with its configured range.
func (a *ArmConfig) Limits() Limits {
	limits := make(Limits, len(a.ServoIDs))
	for i, id := range a.ServoIDs {
		limits[i] = ServoLimit{ID: id}
		if i < len(a.MinPositionLimit) {
			limits[i].Min = a.MinPositionLimit[i]
		}
		if i < len(a.MaxPositionLimit) {
			limits[i].Max = a.MaxPositionLimit[i]
		}
	}
	return limits
}

// SetLimits stores l as the position limit arrays, in configured order.
func (a *ArmConfig) SetLimits(l Limits) {
	a.MinPositionLimit = make([]int, len(l))
	a.MaxPositionLimit = make([]int, len(l))
	for i, sl := range l {
		a.MinPositionLimit[i] = sl.Min
		a.MaxPositionLimit[i] = sl.Max
	}
}

// Baud returns the configured baud rate or the STS default.
func (a *ArmConfig) Baud() int {
	if a.BaudRate == 0 {
		return DefaultBaudRate
	}
	return a.BaudRate
}

// Settle returns the wait after each move command.
func (c *Config) Settle() time.Duration {
	if c.SettleMS == 0 {
		return action.DefaultSettle
	}
	return time.Duration(c.SettleMS) * time.Millisecond
}

// CatalogPath returns where actions are stored.
func (c *Config) CatalogPath() string {
	if c.ActionsFile == "" {
		return action.DefaultCatalogFile
	}
	return c.ActionsFile
}

// Validate checks field constraints and that every per-servo slice matches
// the servo count.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	arm := &c.Arm
	n := len(arm.ServoIDs)
	var errs []error
	for _, f := range []struct {
		name     string
		values   []int
		optional bool
	}{
		{"min_position_limit", arm.MinPositionLimit, false},
		{"max_position_limit", arm.MaxPositionLimit, false},
		{"home_pose", arm.HomePose, true},
		{"rest_pose", arm.RestPose, true},
	} {
		if f.optional && len(f.values) == 0 {
			continue
		}
		if len(f.values) != n {
			errs = append(errs, fmt.Errorf("%s has %d entries, want %d", f.name, len(f.values), n))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}

	limits := arm.Limits()
	for _, l := range limits {
		if l.Min >= l.Max {
			errs = append(errs, fmt.Errorf("servo %d: min %d not below max %d", l.ID, l.Min, l.Max))
		}
	}
	if len(arm.HomePose) > 0 {
		if err := limits.Check(arm.HomePose); err != nil {
			errs = append(errs, fmt.Errorf("home_pose: %w", err))
		}
	}
	if len(arm.RestPose) > 0 {
		if err := limits.Check(arm.RestPose); err != nil {
			errs = append(errs, fmt.Errorf("rest_pose: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// LoadConfigFrom loads and validates configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the config file exists
func ConfigExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Env holds settings read from the environment. Non-empty values override
// the config file.
type Env struct {
	ConfigFile  string `env:"ARMCTL_CONFIG" envDefault:"armctl.json"`
	ActionsFile string `env:"ARMCTL_ACTIONS"`
	LogLevel    string `env:"ARMCTL_LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"ARMCTL_LOG_FORMAT" envDefault:"console"`
}

// ParseEnv loads Env from environment variables.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// Apply overrides config values with those set in the environment.
func (e Env) Apply(c *Config) {
	if e.ActionsFile != "" {
		c.ActionsFile = e.ActionsFile
	}
}
