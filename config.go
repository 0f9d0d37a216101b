package robot_arm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
)

const (
	defaultBaudrate  = 1000000
	defaultTimeoutMs = 1000
	maxTickRateHz    = 1000
)

// DefaultServoIDs are the bus IDs of the six joints followed by the gripper.
func DefaultServoIDs() []int {
	return []int{1, 2, 3, 4, 5, 6, 7}
}

// Config is the attribute set of the arm-state sensor.
type Config struct {
	// Port is the servo bus. Without one the arm state is simulated only.
	Port      string `json:"port,omitempty"`
	Baudrate  int    `json:"baudrate,omitempty"`
	TimeoutMs int    `json:"timeout_ms,omitempty"`

	// ServoIDs lists the six joint servos in joint order, then the gripper servo.
	ServoIDs []int `json:"servo_ids,omitempty"`

	MoveDurationMs  int  `json:"move_duration_ms,omitempty"`
	TickRateHz      int  `json:"tick_rate_hz,omitempty"`
	HaltOnCollision bool `json:"halt_on_collision,omitempty"`

	PresetsFile string `json:"presets_file,omitempty"`

	// Calibration is keyed by joint name or "gripper".
	Calibration map[string]*MotorCalibration `json:"calibration,omitempty"`
}

// Validate ensures all parts of the config are valid and fills in defaults.
func (cfg *Config) Validate(path string) ([]string, []string, error) {
	if cfg.Baudrate == 0 {
		cfg.Baudrate = defaultBaudrate
	}
	if cfg.TimeoutMs == 0 {
		cfg.TimeoutMs = defaultTimeoutMs
	}
	if len(cfg.ServoIDs) == 0 {
		cfg.ServoIDs = DefaultServoIDs()
	}
	if cfg.MoveDurationMs == 0 {
		cfg.MoveDurationMs = int(DefaultMoveDuration / time.Millisecond)
	}
	if cfg.TickRateHz == 0 {
		cfg.TickRateHz = DefaultTickRate
	}

	if cfg.Baudrate < 0 {
		return nil, nil, fmt.Errorf("%s: baudrate must be positive, got %d", path, cfg.Baudrate)
	}
	if cfg.TimeoutMs < 0 {
		return nil, nil, fmt.Errorf("%s: timeout_ms must be positive, got %d", path, cfg.TimeoutMs)
	}
	if cfg.MoveDurationMs < 0 {
		return nil, nil, fmt.Errorf("%s: move_duration_ms must be positive, got %d", path, cfg.MoveDurationMs)
	}
	if cfg.TickRateHz < 0 || cfg.TickRateHz > maxTickRateHz {
		return nil, nil, fmt.Errorf("%s: tick_rate_hz must be between 1 and %d, got %d", path, maxTickRateHz, cfg.TickRateHz)
	}

	if len(cfg.ServoIDs) != JointCount+1 {
		return nil, nil, fmt.Errorf("%s: servo_ids needs %d entries (joints then gripper), got %d", path, JointCount+1, len(cfg.ServoIDs))
	}
	seen := make(map[int]bool, len(cfg.ServoIDs))
	for _, id := range cfg.ServoIDs {
		if id < 1 || id > 253 {
			return nil, nil, fmt.Errorf("%s: invalid servo ID %d", path, id)
		}
		if seen[id] {
			return nil, nil, fmt.Errorf("%s: duplicate servo ID %d", path, id)
		}
		seen[id] = true
	}

	for name, cal := range cfg.Calibration {
		if servoIndex(name) < 0 {
			return nil, nil, fmt.Errorf("%s: calibration for unknown joint %q", path, name)
		}
		if cal == nil {
			continue
		}
		if err := cal.Validate(); err != nil {
			return nil, nil, fmt.Errorf("%s: calibration %s: %w", path, name, err)
		}
	}

	return nil, nil, nil
}

// MoveDuration is the configured retarget duration.
func (cfg *Config) MoveDuration() time.Duration {
	return time.Duration(cfg.MoveDurationMs) * time.Millisecond
}

// Timeout is the configured servo bus timeout.
func (cfg *Config) Timeout() time.Duration {
	return time.Duration(cfg.TimeoutMs) * time.Millisecond
}

// BusSettings returns the settings used to open the servo bus.
func (cfg *Config) BusSettings() BusSettings {
	return BusSettings{
		Port:     cfg.Port,
		Baudrate: cfg.Baudrate,
		Timeout:  cfg.Timeout(),
	}
}

// ServoCalibrations returns one calibration per servo in joint order, then the gripper,
// falling back to the defaults for entries that are not configured.
func (cfg *Config) ServoCalibrations() [JointCount + 1]*MotorCalibration {
	ids := cfg.ServoIDs
	if len(ids) != JointCount+1 {
		ids = DefaultServoIDs()
	}

	var out [JointCount + 1]*MotorCalibration
	for i := range out {
		name := servoName(i)
		if cal, ok := cfg.Calibration[name]; ok && cal != nil {
			c := *cal
			c.ID = ids[i]
			out[i] = &c
			continue
		}
		out[i] = DefaultMotorCalibration(ids[i], i == gripperIndex)
	}
	return out
}

// LoadPresets reads the configured presets file, if any. Relative paths resolve against
// VIAM_MODULE_DATA.
func (cfg *Config) LoadPresets(limits JointLimits, logger logging.Logger) (map[string]Configuration, error) {
	if cfg.PresetsFile == "" {
		logger.Debug("no presets file specified, using built-in presets")
		return nil, nil
	}

	path := resolveDataPath(cfg.PresetsFile)
	presets, err := LoadPresetsFile(path, limits)
	if err != nil {
		return nil, err
	}
	logger.Infof("loaded %d presets from %s", len(presets), path)
	return presets, nil
}

func resolveDataPath(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	moduleDataDir := os.Getenv("VIAM_MODULE_DATA")
	if moduleDataDir == "" {
		moduleDataDir = "/tmp" // Fallback if VIAM_MODULE_DATA not set
	}
	return filepath.Join(moduleDataDir, file)
}

// LoadPresetsFile reads named configurations from a JSON object of
// {"name": {"joints": [...], "gripper": n}}. Every preset must be reachable.
func LoadPresetsFile(path string, limits JointLimits) (map[string]Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read presets file")
	}

	var presets map[string]Configuration
	if err := json.Unmarshal(data, &presets); err != nil {
		return nil, errors.Wrap(err, "failed to parse presets JSON")
	}

	for name, preset := range presets {
		if name == "" {
			return nil, errors.New("preset with empty name")
		}
		if !limits.IsPositionSafe(preset.Joints) {
			return nil, errors.Errorf("preset %q: joints %v outside joint limits", name, preset.Joints)
		}
		if preset.Gripper != ClampGripper(preset.Gripper) {
			return nil, errors.Errorf("preset %q: gripper %d outside [%d, %d]", name, preset.Gripper, GripperMinAngle, GripperMaxAngle)
		}
	}
	return presets, nil
}

// SavePresetsFile writes presets in the format LoadPresetsFile reads.
func SavePresetsFile(path string, presets map[string]Configuration) error {
	data, err := json.MarshalIndent(presets, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal presets")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write presets file")
	}
	return nil
}
