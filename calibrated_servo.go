package robot_arm

import (
	"math"

	"github.com/pkg/errors"
)

// Normalization modes
const (
	NormModeRaw      = 0 // Raw servo values (0-4095 for STS3215)
	NormModeRange100 = 1 // Normalized to 0-100 range
	NormModeDegrees  = 3 // Normalized to -180° to +180° range
)

const (
	servoResolution = 4095
	gripperName     = "gripper"
)

// MotorCalibration maps between raw servo ticks and a normalized value.
type MotorCalibration struct {
	ID           int `json:"id"`
	DriveMode    int `json:"drive_mode"`
	HomingOffset int `json:"homing_offset"`
	RangeMin     int `json:"range_min"`
	RangeMax     int `json:"range_max"`
	NormMode     int `json:"norm_mode,omitempty"`
}

// DefaultMotorCalibration covers the full turn for joints and the mechanical travel for the
// gripper.
func DefaultMotorCalibration(id int, gripper bool) *MotorCalibration {
	if gripper {
		return &MotorCalibration{
			ID: id, RangeMin: 500, RangeMax: 3500,
			NormMode: NormModeRange100,
		}
	}
	return &MotorCalibration{
		ID: id, RangeMin: 0, RangeMax: servoResolution,
		NormMode: NormModeDegrees,
	}
}

// Normalize converts a raw servo position to normalized value
func (c *MotorCalibration) Normalize(rawValue int) (float64, error) {
	raw := float64(rawValue - c.HomingOffset)
	center := float64(c.RangeMin+c.RangeMax) / 2.0

	var normalized float64
	switch c.NormMode {
	case NormModeRaw:
		normalized = raw
		if c.DriveMode != 0 {
			normalized = 2*center - normalized
		}
		return normalized, nil

	case NormModeRange100:
		if c.RangeMax == c.RangeMin {
			return 0, errors.New("invalid calibration: min and max are equal")
		}
		normalized = (raw - float64(c.RangeMin)) / float64(c.RangeMax-c.RangeMin) * 100.0
		normalized = math.Max(0, math.Min(100, normalized))
		if c.DriveMode != 0 {
			normalized = 100.0 - normalized
		}

	case NormModeDegrees:
		normalized = (raw - center) * 360 / servoResolution
		if c.DriveMode != 0 {
			normalized = -normalized
		}

	default:
		return 0, errors.Errorf("unknown normalization mode: %d", c.NormMode)
	}

	return normalized, nil
}

// Denormalize converts normalized value back to raw servo position, clamped to the range.
func (c *MotorCalibration) Denormalize(normalizedValue float64) (int, error) {
	center := float64(c.RangeMin+c.RangeMax) / 2.0

	var raw float64
	switch c.NormMode {
	case NormModeRaw:
		raw = normalizedValue
		if c.DriveMode != 0 {
			raw = 2*center - raw
		}

	case NormModeRange100:
		if c.RangeMax == c.RangeMin {
			return 0, errors.New("invalid calibration: min and max are equal")
		}
		v := math.Max(0, math.Min(100, normalizedValue))
		if c.DriveMode != 0 {
			v = 100.0 - v
		}
		raw = v/100.0*float64(c.RangeMax-c.RangeMin) + float64(c.RangeMin)

	case NormModeDegrees:
		v := normalizedValue
		if c.DriveMode != 0 {
			v = -v
		}
		raw = v*servoResolution/360 + center

	default:
		return 0, errors.Errorf("unknown normalization mode: %d", c.NormMode)
	}

	rawValue := int(math.Round(raw))
	if rawValue < c.RangeMin {
		rawValue = c.RangeMin
	}
	if rawValue > c.RangeMax {
		rawValue = c.RangeMax
	}
	return rawValue + c.HomingOffset, nil
}

// Validate checks if the calibration parameters are valid
func (c *MotorCalibration) Validate() error {
	if c.ID < 0 || c.ID > 253 {
		return errors.Errorf("invalid servo ID: %d", c.ID)
	}
	if c.RangeMin >= c.RangeMax {
		return errors.Errorf("invalid range: min (%d) must be less than max (%d)", c.RangeMin, c.RangeMax)
	}
	if c.RangeMin < 0 || c.RangeMax > servoResolution {
		return errors.Errorf("range values must be between 0-%d, got min=%d max=%d", servoResolution, c.RangeMin, c.RangeMax)
	}
	switch c.NormMode {
	case NormModeRaw, NormModeRange100, NormModeDegrees:
	default:
		return errors.Errorf("invalid normalization mode: %d", c.NormMode)
	}
	return nil
}

// angleToRaw converts a joint or gripper angle in degrees to servo ticks. The gripper's
// angle range is spread over 0-100 when the calibration is in range mode.
func angleToRaw(cal *MotorCalibration, index, degrees int) (int, error) {
	value := float64(degrees)
	if index == gripperIndex && cal.NormMode == NormModeRange100 {
		value = float64(degrees-GripperMinAngle) / float64(GripperMaxAngle-GripperMinAngle) * 100
	}
	return cal.Denormalize(value)
}

// servoName is the calibration key for a servo slot: a joint name, or "gripper".
func servoName(index int) string {
	if index == gripperIndex {
		return gripperName
	}
	return JointNames[index]
}

// servoIndex is the inverse of servoName, -1 for unknown names.
func servoIndex(name string) int {
	if name == gripperName {
		return gripperIndex
	}
	for i, n := range JointNames {
		if n == name {
			return i
		}
	}
	return -1
}
