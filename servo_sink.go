package robot_arm

import (
	"context"
	"sync"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	"go.viam.com/utils"
)

// servoFrame holds the six joint angles followed by the gripper angle.
type servoFrame [JointCount + 1]int

func frameFromState(s *ArmState) servoFrame {
	var f servoFrame
	joints := s.JointAngles()
	copy(f[:JointCount], joints[:])
	f[gripperIndex] = s.GripperAngle()
	return f
}

// ServoSink mirrors the arm state onto servos. Frames are written from a separate
// goroutine; when the bus falls behind only the newest frame is kept.
type ServoSink struct {
	writer       ServoWriter
	ids          [JointCount + 1]int
	calibrations [JointCount + 1]*MotorCalibration
	timeout      time.Duration
	logger       logging.Logger

	pending chan servoFrame

	cancelCtx  context.Context
	cancelFunc func()
	done       chan struct{}
	startOnce  sync.Once
	closeOnce  sync.Once

	mu       sync.Mutex
	written  int
	failures int
	lastErr  error
}

// NewServoSink returns a stopped sink writing through writer.
func NewServoSink(
	writer ServoWriter,
	calibrations [JointCount + 1]*MotorCalibration,
	timeout time.Duration,
	logger logging.Logger,
) *ServoSink {
	if timeout <= 0 {
		timeout = time.Second
	}
	var ids [JointCount + 1]int
	for i, cal := range calibrations {
		ids[i] = cal.ID
	}
	cancelCtx, cancelFunc := context.WithCancel(context.Background())
	return &ServoSink{
		writer:       writer,
		ids:          ids,
		calibrations: calibrations,
		timeout:      timeout,
		logger:       logger,
		pending:      make(chan servoFrame, 1),
		cancelCtx:    cancelCtx,
		cancelFunc:   cancelFunc,
		done:         make(chan struct{}),
	}
}

// IDs returns the servo IDs in joint order, then the gripper.
func (s *ServoSink) IDs() []int {
	return append([]int(nil), s.ids[:]...)
}

// Start enables torque and launches the writer goroutine.
func (s *ServoSink) Start(ctx context.Context) error {
	if err := s.writer.EnableAll(ctx); err != nil {
		return errors.Wrap(err, "failed to enable servo torque")
	}
	s.startOnce.Do(func() {
		utils.PanicCapturingGo(func() {
			defer close(s.done)
			s.loop()
		})
	})
	return nil
}

// Attach subscribes the sink to state and queues the current pose. The returned func detaches it.
// Attach must run on the goroutine that owns state.
func (s *ServoSink) Attach(state *ArmState) func() {
	s.Submit(frameFromState(state))
	return state.Subscribe(func(e Event) {
		switch e.Kind {
		case EventJointChanged, EventGripperChanged:
			s.Submit(frameFromState(state))
		case EventEmergencyStop:
			s.logger.Infof("emergency stop (%s): holding servos at current pose", e.Reason)
			s.Submit(frameFromState(state))
		default:
		}
	})
}

// Submit queues a frame, replacing any frame that has not been written yet. It never blocks.
func (s *ServoSink) Submit(f servoFrame) {
	for {
		select {
		case s.pending <- f:
			return
		default:
		}
		select {
		case <-s.pending:
		default:
		}
	}
}

func (s *ServoSink) loop() {
	for {
		select {
		case <-s.cancelCtx.Done():
			return
		case f := <-s.pending:
			s.write(f)
		}
	}
}

func (s *ServoSink) write(f servoFrame) {
	positions, err := s.rawPositions(f)
	if err == nil {
		ctx, cancel := context.WithTimeout(s.cancelCtx, s.timeout)
		err = s.writer.SetPositions(ctx, positions)
		cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.failures++
		s.lastErr = err
		s.logger.Warnf("failed to write servo positions %v: %v", f, err)
		return
	}
	s.written++
	s.lastErr = nil
}

func (s *ServoSink) rawPositions(f servoFrame) (feetech.PositionMap, error) {
	positions := make(feetech.PositionMap, len(f))
	for i, angle := range f {
		raw, err := angleToRaw(s.calibrations[i], i, angle)
		if err != nil {
			return nil, errors.Wrapf(err, "servo %d", s.ids[i])
		}
		positions[s.ids[i]] = raw
	}
	return positions, nil
}

// SinkStats summarizes the writes done so far.
type SinkStats struct {
	Written   int
	Failures  int
	LastError error
}

// Stats returns the write counters.
func (s *ServoSink) Stats() SinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SinkStats{Written: s.written, Failures: s.failures, LastError: s.lastErr}
}

// Close stops the writer goroutine. Frames still queued are dropped.
func (s *ServoSink) Close() {
	s.closeOnce.Do(func() {
		s.cancelFunc()
		s.startOnce.Do(func() { close(s.done) })
		<-s.done
	})
}
