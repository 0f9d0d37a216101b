package main

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/logging"
	robotarm "robot_arm"
)

type DemoCommand struct {
	Port       string `long:"port" description:"Servo bus serial port; the arm is simulated when empty"`
	DurationMs int    `long:"duration-ms" default:"1500" description:"Time each move takes"`
	Pause      int    `long:"pause-ms" default:"500" description:"Pause after each preset is reached"`
}

var demoSequence = []string{
	robotarm.PresetHome,
	robotarm.PresetPick,
	robotarm.PresetService,
	robotarm.PresetRest,
	robotarm.PresetHome,
}

func (c *DemoCommand) Execute(args []string) error {
	ctx := context.Background()
	logger := logging.NewLogger("robot-arm-demo")

	cfg := &robotarm.Config{
		Port:           c.Port,
		MoveDurationMs: c.DurationMs,
	}
	arm, err := robotarm.NewArmStateSensor(ctx, sensor.Named("demo"), cfg, clock.New(), robotarm.DefaultBusRegistry(), logger)
	if err != nil {
		return err
	}
	defer arm.Close(ctx)

	logger.Info("Preset demo")
	logger.Info("===========")

	for i, preset := range demoSequence {
		logger.Infof("Step %d: moving to %s", i+1, preset)
		resp, err := arm.DoCommand(ctx, map[string]interface{}{"command": "move_to", "preset": preset})
		if err != nil {
			return err
		}
		if ok, _ := resp["success"].(bool); !ok {
			logger.Warnf("move to %s rejected: %v", preset, resp["reason"])
			continue
		}

		readings, err := waitUntilIdle(ctx, arm, time.Duration(c.DurationMs)*time.Millisecond*3)
		if err != nil {
			return err
		}
		logger.Infof("reached %s: joints=%v gripper=%v end_effector=%v status=%v",
			preset, readings["joints"], readings["gripper"], readings["end_effector"], readings["status"])

		time.Sleep(time.Duration(c.Pause) * time.Millisecond)
	}

	readings, err := arm.Readings(ctx, nil)
	if err != nil {
		return err
	}
	logger.Infof("Demo complete: %v positions reached, %v emergency stops",
		readings["positions_reached"], readings["emergency_stops"])
	return nil
}

func waitUntilIdle(ctx context.Context, arm sensor.Sensor, timeout time.Duration) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		readings, err := arm.Readings(ctx, nil)
		if err != nil {
			return nil, err
		}
		if moving, _ := readings["is_moving"].(bool); !moving {
			return readings, nil
		}
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "arm did not settle")
		case <-ticker.C:
		}
	}
}
