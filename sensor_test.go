package robot_arm

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/logging"
)

func newTestSensor(t *testing.T, cfg *Config, registry *BusRegistry) (sensor.Sensor, *clock.Mock) {
	t.Helper()
	logger := logging.NewTestLogger(t)
	if registry == nil {
		registry = NewBusRegistry((&fakeOpener{}).open, logger)
	}
	clk := clock.NewMock()
	s, err := NewArmStateSensor(context.Background(), sensor.Named("arm"), cfg, clk, registry, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, clk
}

func doCommand(t *testing.T, s sensor.Sensor, cmd map[string]interface{}) map[string]interface{} {
	t.Helper()
	resp, err := s.DoCommand(context.Background(), cmd)
	require.NoError(t, err)
	return resp
}

func readings(t *testing.T, s sensor.Sensor) map[string]interface{} {
	t.Helper()
	r, err := s.Readings(context.Background(), nil)
	require.NoError(t, err)
	return r
}

func TestArmStateSensorInitialReadings(t *testing.T) {
	s, _ := newTestSensor(t, &Config{}, nil)

	r := readings(t, s)
	assert.Equal(t, []interface{}{0, 0, 0, 0, 0, 0}, r["joints"])
	assert.Equal(t, []interface{}{0, 0, 0, 0, 0, 0}, r["targets"])
	assert.Equal(t, 0, r["gripper"])
	assert.Equal(t, "Ready", r["status"])
	assert.Equal(t, false, r["is_moving"])
	assert.Equal(t, false, r["has_collision"])
	assert.Equal(t, 0, r["emergency_stops"])
	assert.Equal(t, 0, r["positions_reached"])
	assert.Equal(t, WorkspaceRadius, r["workspace_radius"])
	assert.NotContains(t, r, "servo_writes")

	ee, ok := r["end_effector"].(map[string]interface{})
	require.True(t, ok)
	assert.InDelta(t, 0.431, ee["x"], 1e-9)
	assert.InDelta(t, 0.196, ee["y"], 1e-9)
	assert.InDelta(t, 0.0, ee["z"], 1e-9)
}

func TestArmStateSensorMotionCommands(t *testing.T) {
	s, _ := newTestSensor(t, &Config{}, nil)

	t.Run("set_joint", func(t *testing.T) {
		resp := doCommand(t, s, map[string]interface{}{"command": "set_joint", "joint": 2.0, "angle": 45.0})
		assert.Equal(t, true, resp["success"])

		resp = doCommand(t, s, map[string]interface{}{"command": "set_joint", "joint": 1.0, "angle": 120.0})
		assert.Equal(t, false, resp["success"])
		assert.Equal(t, "outside joint limits", resp["reason"])

		_, err := s.DoCommand(context.Background(), map[string]interface{}{"command": "set_joint", "joint": 1.0})
		assert.ErrorContains(t, err, "'angle'")

		_, err = s.DoCommand(context.Background(), map[string]interface{}{"command": "set_joint", "joint": 1.0, "angle": 10.5})
		assert.ErrorContains(t, err, "whole number")
	})

	t.Run("set_all_joints instantly", func(t *testing.T) {
		resp := doCommand(t, s, map[string]interface{}{
			"command":     "set_all_joints",
			"angles":      []interface{}{10.0, 20.0, 30.0, 0.0, 0.0, 0.0},
			"duration_ms": 0.0,
		})
		assert.Equal(t, true, resp["success"])

		r := readings(t, s)
		assert.Equal(t, []interface{}{10, 20, 30, 0, 0, 0}, r["joints"])
		assert.Equal(t, false, r["is_moving"])
	})

	t.Run("set_all_joints rejects the whole move", func(t *testing.T) {
		resp := doCommand(t, s, map[string]interface{}{
			"command": "set_all_joints",
			"angles":  []interface{}{0.0, 0.0, 0.0, 0.0, 95.0, 0.0},
		})
		assert.Equal(t, false, resp["success"])
		assert.Equal(t, []interface{}{10, 20, 30, 0, 0, 0}, readings(t, s)["targets"])

		_, err := s.DoCommand(context.Background(), map[string]interface{}{
			"command": "set_all_joints",
			"angles":  []interface{}{0.0, 0.0},
		})
		assert.ErrorContains(t, err, "'angles'")
	})

	t.Run("gripper", func(t *testing.T) {
		resp := doCommand(t, s, map[string]interface{}{"command": "set_gripper", "angle": 100.0})
		assert.Equal(t, 45, resp["gripper"])

		resp = doCommand(t, s, map[string]interface{}{"command": "close_gripper"})
		assert.Equal(t, 0, resp["gripper"])

		resp = doCommand(t, s, map[string]interface{}{"command": "open_gripper"})
		assert.Equal(t, 45, resp["gripper"])
	})
}

func TestArmStateSensorPresetAndStop(t *testing.T) {
	s, clk := newTestSensor(t, &Config{}, nil)

	resp := doCommand(t, s, map[string]interface{}{"command": "move_to", "preset": "nope"})
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["reason"], "unknown preset")

	resp = doCommand(t, s, map[string]interface{}{"command": "move_to", "preset": "pick"})
	assert.Equal(t, true, resp["success"])

	r := readings(t, s)
	assert.Equal(t, true, r["is_moving"])
	assert.Equal(t, "Moving", r["status"])
	assert.Equal(t, []interface{}{0, -45, 90, 0, -45, 0}, r["targets"])

	clk.Add(100 * time.Millisecond)
	doCommand(t, s, map[string]interface{}{"command": "stop"})

	r = readings(t, s)
	assert.Equal(t, false, r["is_moving"])
	assert.Equal(t, 1, r["emergency_stops"])
	assert.Equal(t, 1, r["positions_reached"])
	assert.Equal(t, r["joints"], r["targets"])
}

func TestArmStateSensorQueries(t *testing.T) {
	s, _ := newTestSensor(t, &Config{}, nil)

	resp := doCommand(t, s, map[string]interface{}{"command": "is_position_safe", "angles": []interface{}{0.0, 90.0, 0.0, 0.0, 0.0, 0.0}})
	assert.Equal(t, true, resp["safe"])
	resp = doCommand(t, s, map[string]interface{}{"command": "is_position_safe", "angles": []interface{}{0.0, 91.0, 0.0, 0.0, 0.0, 0.0}})
	assert.Equal(t, false, resp["safe"])

	resp = doCommand(t, s, map[string]interface{}{"command": "is_within_joint_limits", "joint": 6.0, "angle": 0.0})
	assert.Equal(t, false, resp["within_limits"])
	resp = doCommand(t, s, map[string]interface{}{"command": "is_within_joint_limits", "joint": 2.0, "angle": -135.0})
	assert.Equal(t, true, resp["within_limits"])

	resp = doCommand(t, s, map[string]interface{}{"command": "end_effector_pose"})
	assert.InDelta(t, 431.0, resp["x_mm"], 1e-6)
	assert.InDelta(t, 196.0, resp["y_mm"], 1e-6)

	resp = doCommand(t, s, map[string]interface{}{"command": "presets"})
	assert.Equal(t, []interface{}{"home", "pick", "rest", "service"}, resp["presets"])

	resp = doCommand(t, s, map[string]interface{}{"command": "joint_limits"})
	limits, ok := resp["joint_limits"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"min": -90, "max": 90}, limits["shoulder_pitch"])

	_, err := s.DoCommand(context.Background(), map[string]interface{}{"command": "dance"})
	assert.ErrorContains(t, err, "unknown command: dance")
}

func TestArmStateSensorPresetsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	require.NoError(t, SavePresetsFile(path, map[string]Configuration{
		"wave": {Joints: [JointCount]int{45, 10, 20, 0, 0, 0}, Gripper: 10},
	}))

	s, _ := newTestSensor(t, &Config{PresetsFile: path}, nil)
	resp := doCommand(t, s, map[string]interface{}{"command": "presets"})
	assert.Contains(t, resp["presets"], "wave")
}

func TestArmStateSensorDrivesServos(t *testing.T) {
	logger := logging.NewTestLogger(t)
	opener := &fakeOpener{}
	registry := NewBusRegistry(opener.open, logger)

	s, err := NewArmStateSensor(context.Background(), sensor.Named("arm"), &Config{Port: "/dev/ttyUSB0"}, clock.NewMock(), registry, logger)
	require.NoError(t, err)

	bus := opener.buses["/dev/ttyUSB0"]
	require.NotNil(t, bus)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, bus.ids)
	assert.True(t, bus.writer.enabled)
	assert.Equal(t, 1, registry.RefCount("/dev/ttyUSB0"))

	nextWrite(t, bus.writer)
	doCommand(t, s, map[string]interface{}{
		"command":     "set_all_joints",
		"angles":      []interface{}{90.0, 0.0, 0.0, 0.0, 0.0, 0.0},
		"duration_ms": 0.0,
	})
	assert.Equal(t, 3071, nextWrite(t, bus.writer)[1])

	assert.Contains(t, readings(t, s), "servo_writes")

	require.NoError(t, s.Close(context.Background()))
	assert.Zero(t, registry.RefCount("/dev/ttyUSB0"))
	assert.Equal(t, 1, bus.closed)

	_, err = s.Readings(context.Background(), nil)
	assert.Error(t, err)
}

func TestArmStateSensorInvalidConfig(t *testing.T) {
	_, err := NewArmStateSensor(context.Background(), sensor.Named("arm"), &Config{ServoIDs: []int{1}},
		clock.NewMock(), NewBusRegistry(nil, logging.NewTestLogger(t)), logging.NewTestLogger(t))
	assert.ErrorContains(t, err, "servo_ids")
}
