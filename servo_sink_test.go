package robot_arm

import (
	"context"
	"testing"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.viam.com/rdk/logging"
)

func defaultTestCalibrations() [JointCount + 1]*MotorCalibration {
	cfg := &Config{}
	if _, _, err := cfg.Validate(""); err != nil {
		panic(err)
	}
	return cfg.ServoCalibrations()
}

func nextWrite(t *testing.T, w *fakeWriter) feetech.PositionMap {
	t.Helper()
	select {
	case p := <-w.written:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a servo write")
		return nil
	}
}

func TestServoSinkMirrorsState(t *testing.T) {
	logger := logging.NewTestLogger(t)
	writer := newFakeWriter()
	sink := NewServoSink(writer, defaultTestCalibrations(), time.Second, logger)
	defer sink.Close()

	require.NoError(t, sink.Start(context.Background()))
	assert.True(t, writer.enabled)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, sink.IDs())

	state := NewArmState(ArmStateOptions{MoveDuration: -1}, logger)
	detach := sink.Attach(state)
	defer detach()

	initial := nextWrite(t, writer)
	assert.Equal(t, feetech.PositionMap{1: 2048, 2: 2048, 3: 2048, 4: 2048, 5: 2048, 6: 2048, 7: 500}, initial)

	require.True(t, state.SetJointAngle(0, 90))
	moved := nextWrite(t, writer)
	assert.Equal(t, 3071, moved[1])
	assert.Equal(t, 2048, moved[2])

	state.OpenGripper()
	opened := nextWrite(t, writer)
	assert.Equal(t, 3500, opened[7])

	assert.Eventually(t, func() bool {
		return sink.Stats().Written == 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestServoSinkKeepsLatestFrame(t *testing.T) {
	sink := NewServoSink(newFakeWriter(), defaultTestCalibrations(), time.Second, logging.NewTestLogger(t))
	defer sink.Close()

	// Not started, so nothing drains the queue.
	sink.Submit(servoFrame{1})
	sink.Submit(servoFrame{2})
	sink.Submit(servoFrame{3})

	require.Len(t, sink.pending, 1)
	assert.Equal(t, servoFrame{3}, <-sink.pending)
}

func TestServoSinkEmergencyStopWritesPose(t *testing.T) {
	logger := logging.NewTestLogger(t)
	writer := newFakeWriter()
	sink := NewServoSink(writer, defaultTestCalibrations(), time.Second, logger)
	defer sink.Close()
	require.NoError(t, sink.Start(context.Background()))

	state := NewArmState(ArmStateOptions{}, logger)
	sink.Attach(state)
	nextWrite(t, writer)

	state.EmergencyStop()
	stopped := nextWrite(t, writer)
	assert.Equal(t, 2048, stopped[1])
}

func TestServoSinkStartFailure(t *testing.T) {
	writer := newFakeWriter()
	writer.enableErr = errors.New("bus timeout")
	sink := NewServoSink(writer, defaultTestCalibrations(), time.Second, logging.NewTestLogger(t))

	err := sink.Start(context.Background())
	assert.ErrorContains(t, err, "bus timeout")
	sink.Close()
}

func TestServoSinkCountsFailures(t *testing.T) {
	writer := newFakeWriter()
	writer.writeErr = errors.New("checksum mismatch")
	sink := NewServoSink(writer, defaultTestCalibrations(), time.Second, logging.NewTestLogger(t))
	defer sink.Close()
	require.NoError(t, sink.Start(context.Background()))

	sink.Submit(servoFrame{})
	require.Eventually(t, func() bool {
		return sink.Stats().Failures == 1
	}, 2*time.Second, 5*time.Millisecond)

	stats := sink.Stats()
	assert.Zero(t, stats.Written)
	assert.ErrorContains(t, stats.LastError, "checksum mismatch")
}
