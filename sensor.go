package robot_arm

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
)

// ArmStateModel exposes an ArmState as a sensor that accepts motion commands.
var ArmStateModel = resource.NewModel("devrel", "robot-arm", "arm-state")

func init() {
	resource.RegisterComponent(sensor.API, ArmStateModel,
		resource.Registration[sensor.Sensor, *Config]{
			Constructor: newArmStateSensor,
		},
	)
}

type armStateSensor struct {
	resource.Named
	resource.AlwaysRebuild

	logger   logging.Logger
	cfg      *Config
	runner   *Runner
	sink     *ServoSink
	registry *BusRegistry

	// Owned by the runner goroutine.
	emergencyStops   int
	positionsReached int
}

func newArmStateSensor(
	ctx context.Context,
	deps resource.Dependencies,
	conf resource.Config,
	logger logging.Logger,
) (sensor.Sensor, error) {
	cfg, err := resource.NativeConfig[*Config](conf)
	if err != nil {
		return nil, err
	}
	return NewArmStateSensor(ctx, conf.ResourceName(), cfg, clock.New(), DefaultBusRegistry(), logger)
}

// NewArmStateSensor builds the sensor and starts its runner. Servo output is only wired when
// cfg.Port is set.
func NewArmStateSensor(
	ctx context.Context,
	name resource.Name,
	cfg *Config,
	clk clock.Clock,
	registry *BusRegistry,
	logger logging.Logger,
) (sensor.Sensor, error) {
	if _, _, err := cfg.Validate(""); err != nil {
		return nil, err
	}

	limits := DefaultJointLimits()
	presets, err := cfg.LoadPresets(limits, logger)
	if err != nil {
		return nil, err
	}

	state := NewArmState(ArmStateOptions{
		Limits:          &limits,
		MoveDuration:    cfg.MoveDuration(),
		HaltOnCollision: cfg.HaltOnCollision,
		Clock:           clk,
		Presets:         presets,
	}, logger)

	s := &armStateSensor{
		Named:    name.AsNamed(),
		logger:   logger,
		cfg:      cfg,
		registry: registry,
	}
	state.Subscribe(s.countEvent)

	if cfg.Port != "" {
		bus, err := registry.Acquire(cfg.BusSettings())
		if err != nil {
			return nil, err
		}
		sink := NewServoSink(bus.Group(cfg.ServoIDs...), cfg.ServoCalibrations(), cfg.Timeout(), logger)
		if err := sink.Start(ctx); err != nil {
			if relErr := registry.Release(cfg.Port); relErr != nil {
				logger.Warnf("releasing bus after failed start: %v", relErr)
			}
			return nil, err
		}
		sink.Attach(state)
		s.sink = sink
		logger.Infof("driving servos %v on %s", cfg.ServoIDs, cfg.Port)
	} else {
		logger.Info("no port configured, arm state is simulated")
	}

	s.runner = NewRunner(state, clk, cfg.TickRateHz, logger)
	s.runner.Start()
	return s, nil
}

func (s *armStateSensor) countEvent(e Event) {
	switch e.Kind {
	case EventEmergencyStop:
		s.emergencyStops++
	case EventPositionReached:
		s.positionsReached++
	default:
	}
}

func (s *armStateSensor) Readings(ctx context.Context, extra map[string]interface{}) (map[string]interface{}, error) {
	var readings map[string]interface{}
	err := s.runner.Do(ctx, func(state *ArmState) {
		snap := state.Snapshot()
		readings = map[string]interface{}{
			"joints":            intsToInterfaces(snap.Joints[:]),
			"targets":           intsToInterfaces(snap.Targets[:]),
			"gripper":           snap.Gripper,
			"end_effector":      vectorToMap(snap.EndEffector.X, snap.EndEffector.Y, snap.EndEffector.Z),
			"status":            snap.Status.String(),
			"is_moving":         snap.Moving,
			"has_collision":     snap.Collision,
			"emergency_stops":   s.emergencyStops,
			"positions_reached": s.positionsReached,
			"workspace_radius":  WorkspaceRadius,
		}
	})
	if err != nil {
		return nil, err
	}
	if s.sink != nil {
		stats := s.sink.Stats()
		readings["servo_writes"] = stats.Written
		readings["servo_write_failures"] = stats.Failures
	}
	return readings, nil
}

func (s *armStateSensor) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	var (
		result map[string]interface{}
		cmdErr error
	)
	err := s.runner.Do(ctx, func(state *ArmState) {
		result, cmdErr = s.handleCommand(state, cmd)
	})
	if err != nil {
		return nil, err
	}
	return result, cmdErr
}

func (s *armStateSensor) handleCommand(state *ArmState, cmd map[string]interface{}) (map[string]interface{}, error) {
	switch cmd["command"] {
	case "set_joint":
		joint, err := intArg(cmd, "joint")
		if err != nil {
			return nil, err
		}
		angle, err := intArg(cmd, "angle")
		if err != nil {
			return nil, err
		}
		if !state.SetJointAngle(joint, angle) {
			return rejected("outside joint limits"), nil
		}
		return map[string]interface{}{"success": true}, nil

	case "set_gripper":
		angle, err := intArg(cmd, "angle")
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"success": true, "gripper": state.SetGripperAngle(angle)}, nil

	case "set_all_joints":
		angles, err := anglesArg(cmd)
		if err != nil {
			return nil, err
		}
		var ok bool
		if _, has := cmd["duration_ms"]; has {
			ms, err := intArg(cmd, "duration_ms")
			if err != nil {
				return nil, err
			}
			if ms < 0 {
				return nil, fmt.Errorf("duration_ms must not be negative, got %d", ms)
			}
			ok = state.SetJointAnglesSmooth(angles, time.Duration(ms)*time.Millisecond)
		} else {
			ok = state.SetAllJoints(angles)
		}
		if !ok {
			return rejected("outside joint limits"), nil
		}
		return map[string]interface{}{"success": true}, nil

	case "move_to":
		name, ok := cmd["preset"].(string)
		if !ok {
			return nil, fmt.Errorf("move_to command requires 'preset' string parameter")
		}
		if _, known := state.Preset(name); !known {
			return rejected(fmt.Sprintf("unknown preset %q", name)), nil
		}
		if !state.MoveToPreset(name) {
			return rejected("outside joint limits"), nil
		}
		return map[string]interface{}{"success": true}, nil

	case "open_gripper":
		state.OpenGripper()
		return map[string]interface{}{"success": true, "gripper": GripperMaxAngle}, nil

	case "close_gripper":
		state.CloseGripper()
		return map[string]interface{}{"success": true, "gripper": GripperMinAngle}, nil

	case "stop":
		state.EmergencyStop()
		return map[string]interface{}{"success": true}, nil

	case "is_position_safe":
		angles, err := anglesArg(cmd)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"safe": state.IsPositionSafe(angles)}, nil

	case "is_within_joint_limits":
		joint, err := intArg(cmd, "joint")
		if err != nil {
			return nil, err
		}
		angle, err := intArg(cmd, "angle")
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"within_limits": state.IsWithinJointLimits(joint, angle)}, nil

	case "end_effector_pose":
		pt := state.EndEffectorPose().Point()
		return map[string]interface{}{"x_mm": pt.X, "y_mm": pt.Y, "z_mm": pt.Z}, nil

	case "presets":
		names := state.Presets()
		out := make([]interface{}, len(names))
		for i, n := range names {
			out[i] = n
		}
		return map[string]interface{}{"presets": out}, nil

	case "joint_limits":
		limits := state.Limits()
		out := make(map[string]interface{}, JointCount)
		for i, l := range limits {
			out[JointNames[i]] = map[string]interface{}{"min": l.Min, "max": l.Max}
		}
		return map[string]interface{}{"joint_limits": out}, nil

	default:
		return nil, fmt.Errorf("unknown command: %v", cmd["command"])
	}
}

func (s *armStateSensor) Close(ctx context.Context) error {
	s.logger.Info("closing arm state sensor")
	s.runner.Close()
	if s.sink != nil {
		s.sink.Close()
		return s.registry.Release(s.cfg.Port)
	}
	return nil
}

func rejected(reason string) map[string]interface{} {
	return map[string]interface{}{"success": false, "reason": reason}
}

func intArg(cmd map[string]interface{}, key string) (int, error) {
	v, ok := cmd[key]
	if !ok {
		return 0, fmt.Errorf("%v command requires '%s' parameter", cmd["command"], key)
	}
	n, ok := toInt(v)
	if !ok {
		return 0, fmt.Errorf("'%s' must be a whole number, got %v", key, v)
	}
	return n, nil
}

func anglesArg(cmd map[string]interface{}) ([JointCount]int, error) {
	var angles [JointCount]int
	raw, ok := cmd["angles"].([]interface{})
	if !ok || len(raw) != JointCount {
		return angles, fmt.Errorf("%v command requires 'angles' list of %d numbers", cmd["command"], JointCount)
	}
	for i, v := range raw {
		n, ok := toInt(v)
		if !ok {
			return angles, fmt.Errorf("angle %d must be a whole number, got %v", i, v)
		}
		angles[i] = n
	}
	return angles, nil
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func intsToInterfaces(values []int) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func vectorToMap(x, y, z float64) map[string]interface{} {
	return map[string]interface{}{"x": x, "y": y, "z": z}
}
