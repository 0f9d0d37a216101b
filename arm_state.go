package robot_arm

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/spatialmath"
)

// gripperIndex is the dispatcher index used for the gripper value holder.
const gripperIndex = JointCount

// ArmStateOptions configures a new ArmState. The zero value is usable.
type ArmStateOptions struct {
	// Limits defaults to DefaultJointLimits.
	Limits *JointLimits
	// MoveDuration is the default retarget duration. Zero uses DefaultMoveDuration, a negative
	// value makes every move instantaneous.
	MoveDuration time.Duration
	// Checks defaults to DefaultCollisionChecks.
	Checks []CollisionCheck
	// HaltOnCollision stops every value holder when a collision starts.
	HaltOnCollision bool
	// Clock defaults to the wall clock.
	Clock clock.Clock
	// Presets are added to DefaultPresets, replacing built-ins of the same name.
	Presets map[string]Configuration
}

// ArmState owns the joint and gripper value holders and everything derived from them.
//
// An ArmState is not safe for concurrent use. Every mutation runs the full cascade
// (kinematics, collision, motion, status) before returning, on the caller's goroutine.
type ArmState struct {
	logger          logging.Logger
	limits          JointLimits
	moveDuration    time.Duration
	haltOnCollision bool
	presets         map[string]Configuration

	joints  [JointCount]*AnimatedParam
	gripper *AnimatedParam

	lastJoints  [JointCount]int
	lastGripper int

	position    r3.Vector
	detector    *CollisionDetector
	motion      motionStateMachine
	status      MotionStatus
	pendingHalt bool

	listeners listenerList
}

// NewArmState returns an arm resting at the all-zero configuration with the gripper closed.
func NewArmState(opts ArmStateOptions, logger logging.Logger) *ArmState {
	limits := DefaultJointLimits()
	if opts.Limits != nil {
		limits = *opts.Limits
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	duration := opts.MoveDuration
	if duration == 0 {
		duration = DefaultMoveDuration
	}

	presets := DefaultPresets()
	for name, cfg := range opts.Presets {
		presets[name] = cfg
	}

	s := &ArmState{
		logger:          logger,
		limits:          limits,
		moveDuration:    duration,
		haltOnCollision: opts.HaltOnCollision,
		presets:         presets,
		gripper:         NewAnimatedParam(clk, 0, duration),
		detector:        NewCollisionDetector(opts.Checks),
	}
	for i := range s.joints {
		s.joints[i] = NewAnimatedParam(clk, 0, duration)
	}

	// Seed the derived state without notifying anyone.
	s.position = ForwardKinematics(s.JointAngles())
	collision, _, _ := s.detector.Evaluate(s.JointAngles(), s.position)
	s.status = deriveStatus(collision, false)
	return s
}

// Subscribe registers fn for every event. The returned func removes it.
func (s *ArmState) Subscribe(fn Listener) func() {
	return s.listeners.add(fn)
}

func (s *ArmState) emit(kind EventKind) {
	s.listeners.emit(Event{Kind: kind, Joint: -1})
}

// Limits returns the joint limit table in use.
func (s *ArmState) Limits() JointLimits {
	return s.limits
}

// IsWithinJointLimits reports whether angle is allowed for joint.
func (s *ArmState) IsWithinJointLimits(joint, angle int) bool {
	return s.limits.IsWithinJointLimits(joint, angle)
}

// IsPositionSafe reports whether every angle is within its joint's limits.
func (s *ArmState) IsPositionSafe(angles [JointCount]int) bool {
	return s.limits.IsPositionSafe(angles)
}

// SetJointAngle retargets one joint. Out-of-range requests are ignored and return false.
func (s *ArmState) SetJointAngle(joint, angle int) bool {
	return s.setJoint(joint, angle, s.moveDuration)
}

func (s *ArmState) setJoint(joint, angle int, d time.Duration) bool {
	if !s.limits.IsWithinJointLimits(joint, angle) {
		s.logger.Debugf("ignoring joint %d angle %d: outside limits", joint, angle)
		return false
	}
	if s.joints[joint].SetValueWithDuration(angle, d) {
		s.onJointChanged(joint)
	}
	return true
}

// SetGripperAngle clamps angle into the gripper range, applies it and returns the applied value.
func (s *ArmState) SetGripperAngle(angle int) int {
	clamped := ClampGripper(angle)
	if s.gripper.SetValue(clamped) {
		s.onJointChanged(gripperIndex)
	}
	return clamped
}

// OpenGripper moves the gripper fully open.
func (s *ArmState) OpenGripper() {
	s.SetGripperAngle(GripperMaxAngle)
}

// CloseGripper moves the gripper fully closed.
func (s *ArmState) CloseGripper() {
	s.SetGripperAngle(GripperMinAngle)
}

// SetAllJoints retargets all six joints, or none of them if any angle is out of range.
func (s *ArmState) SetAllJoints(angles [JointCount]int) bool {
	return s.SetJointAnglesSmooth(angles, s.moveDuration)
}

// SetJointAnglesSmooth is SetAllJoints with an explicit move duration.
func (s *ArmState) SetJointAnglesSmooth(angles [JointCount]int, d time.Duration) bool {
	if !s.limits.IsPositionSafe(angles) {
		s.logger.Warnf("rejecting move to %v: outside joint limits", angles)
		return false
	}
	for i, a := range angles {
		s.setJoint(i, a, d)
	}
	return true
}

// MoveToPreset applies a named configuration. The gripper is set even when the joints are
// rejected. Unknown presets return false.
func (s *ArmState) MoveToPreset(name string) bool {
	cfg, ok := s.presets[name]
	if !ok {
		return false
	}
	s.logger.Infof("moving to preset %q", name)
	applied := s.SetAllJoints(cfg.Joints)
	s.SetGripperAngle(cfg.Gripper)
	return applied
}

// Presets returns the names of the known presets, sorted.
func (s *ArmState) Presets() []string {
	return presetNames(s.presets)
}

// Preset returns a named configuration.
func (s *ArmState) Preset(name string) (Configuration, bool) {
	cfg, ok := s.presets[name]
	return cfg, ok
}

// EmergencyStop halts every value holder where it is.
func (s *ArmState) EmergencyStop() {
	s.logger.Infof("emergency stop requested")
	s.listeners.emit(Event{Kind: EventEmergencyStop, Joint: -1, Reason: StopReasonRequested})
	s.halt()
}

func (s *ArmState) halt() {
	for i, p := range s.joints {
		if p.Stop() {
			s.onJointChanged(i)
		}
	}
	if s.gripper.Stop() {
		s.onJointChanged(gripperIndex)
	}
}

// Tick advances every value holder to the current time and runs the cascade for each one that changed.
func (s *ArmState) Tick() {
	for i, p := range s.joints {
		if p.Update() {
			s.onJointChanged(i)
		}
	}
	if s.gripper.Update() {
		s.onJointChanged(gripperIndex)
	}
}

// onJointChanged is the single dispatcher behind every value holder. Each stage only notifies
// when its own output changed.
func (s *ArmState) onJointChanged(index int) {
	if index == gripperIndex {
		if v := s.gripper.Value(); v != s.lastGripper {
			s.lastGripper = v
			s.emit(EventGripperChanged)
		}
	} else if v := s.joints[index].Value(); v != s.lastJoints[index] {
		s.lastJoints[index] = v
		s.listeners.emit(Event{Kind: EventJointChanged, Joint: index})
	}

	s.updateEndEffectorPosition()
	s.detectCollision()
	s.updateMovingState()
	s.updateStatus()

	if s.pendingHalt {
		s.pendingHalt = false
		s.halt()
	}
}

func (s *ArmState) updateEndEffectorPosition() {
	position := ForwardKinematics(s.JointAngles())
	if position == s.position {
		return
	}
	s.position = position
	s.emit(EventEndEffectorChanged)
}

func (s *ArmState) detectCollision() {
	_, changed, onset := s.detector.Evaluate(s.JointAngles(), s.position)
	if !changed {
		return
	}
	s.emit(EventCollisionChanged)
	if onset {
		s.logger.Warnf("collision detected at %v (%v)", s.JointAngles(), s.detector.Firing())
		s.listeners.emit(Event{Kind: EventEmergencyStop, Joint: -1, Reason: StopReasonCollision})
		if s.haltOnCollision {
			s.pendingHalt = true
		}
	}
}

func (s *ArmState) updateMovingState() {
	running := make([]bool, 0, JointCount+1)
	for _, p := range s.joints {
		running = append(running, p.IsRunning())
	}
	running = append(running, s.gripper.IsRunning())

	changed, reached := s.motion.update(running...)
	if !changed {
		return
	}
	s.emit(EventMovingChanged)
	if reached {
		s.logger.Debugf("position reached: %v gripper %d", s.JointAngles(), s.GripperAngle())
		s.emit(EventPositionReached)
	}
}

func (s *ArmState) updateStatus() {
	status := deriveStatus(s.detector.Collision(), s.motion.moving)
	if status == s.status {
		return
	}
	s.status = status
	s.emit(EventStatusChanged)
}

// JointAngle returns the current angle of a joint, or 0 for an unknown joint.
func (s *ArmState) JointAngle(joint int) int {
	if joint < 0 || joint >= JointCount {
		return 0
	}
	return s.joints[joint].Value()
}

// JointAngles returns the current angle of every joint.
func (s *ArmState) JointAngles() [JointCount]int {
	var out [JointCount]int
	for i, p := range s.joints {
		out[i] = p.Value()
	}
	return out
}

// JointTargets returns the angle every joint is moving toward.
func (s *ArmState) JointTargets() [JointCount]int {
	var out [JointCount]int
	for i, p := range s.joints {
		out[i] = p.Target()
	}
	return out
}

// GripperAngle returns the current gripper angle.
func (s *ArmState) GripperAngle() int {
	return s.gripper.Value()
}

// EndEffectorPosition returns the end-effector position in meters.
func (s *ArmState) EndEffectorPosition() r3.Vector {
	return s.position
}

// EndEffectorPose returns the end-effector position as a pose in millimeters.
func (s *ArmState) EndEffectorPose() spatialmath.Pose {
	return PoseFromPosition(s.position)
}

// HasCollision reports whether any collision check currently fires.
func (s *ArmState) HasCollision() bool {
	return s.detector.Collision()
}

// CollisionChecksFiring names the checks behind the current collision flag.
func (s *ArmState) CollisionChecksFiring() []string {
	return s.detector.Firing()
}

// IsMoving reports whether any value holder is still interpolating.
func (s *ArmState) IsMoving() bool {
	return s.motion.moving
}

// Status returns the derived status.
func (s *ArmState) Status() MotionStatus {
	return s.status
}

// Snapshot is a copy of the observable arm state.
type Snapshot struct {
	Joints      [JointCount]int
	Targets     [JointCount]int
	Gripper     int
	EndEffector r3.Vector
	Collision   bool
	Moving      bool
	Status      MotionStatus
}

// Snapshot copies the observable state.
func (s *ArmState) Snapshot() Snapshot {
	return Snapshot{
		Joints:      s.JointAngles(),
		Targets:     s.JointTargets(),
		Gripper:     s.GripperAngle(),
		EndEffector: s.position,
		Collision:   s.detector.Collision(),
		Moving:      s.motion.moving,
		Status:      s.status,
	}
}
