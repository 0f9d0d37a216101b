package robot_arm

import "fmt"

// JointCount is the number of rotary joints on the arm. The gripper is tracked separately.
const JointCount = 6

// Gripper opening range in degrees.
const (
	GripperMinAngle = 0
	GripperMaxAngle = 45
)

// WorkspaceRadius is the maximum reach of the end effector in meters.
const WorkspaceRadius = 1.2

// JointLimit is the allowable angle range of a single joint, in degrees.
type JointLimit struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// JointLimits is the limit table for all joints, indexed by joint.
type JointLimits [JointCount]JointLimit

// DefaultJointLimits returns the limit table for the 6-axis arm.
func DefaultJointLimits() JointLimits {
	return JointLimits{
		{-180, 180}, // base rotation
		{-90, 90},   // shoulder pitch
		{-135, 135}, // elbow pitch
		{-180, 180}, // wrist roll
		{-90, 90},   // wrist pitch
		{-180, 180}, // wrist yaw
	}
}

// JointNames names the joints in index order.
var JointNames = [JointCount]string{
	"base_rotation",
	"shoulder_pitch",
	"elbow_pitch",
	"wrist_roll",
	"wrist_pitch",
	"wrist_yaw",
}

// Validate checks that every range is non-empty.
func (l JointLimits) Validate() error {
	for i, lim := range l {
		if lim.Min > lim.Max {
			return fmt.Errorf("joint %d (%s): min %d greater than max %d", i, JointNames[i], lim.Min, lim.Max)
		}
	}
	return nil
}

// IsWithinJointLimits reports whether angle is allowed for the joint. Unknown joints are never within limits.
func (l JointLimits) IsWithinJointLimits(joint, angle int) bool {
	if joint < 0 || joint >= JointCount {
		return false
	}
	return angle >= l[joint].Min && angle <= l[joint].Max
}

// IsPositionSafe reports whether every joint of angles is within its limits.
func (l JointLimits) IsPositionSafe(angles [JointCount]int) bool {
	for i, a := range angles {
		if !l.IsWithinJointLimits(i, a) {
			return false
		}
	}
	return true
}

// ClampGripper saturates angle into the gripper range.
func ClampGripper(angle int) int {
	if angle < GripperMinAngle {
		return GripperMinAngle
	}
	if angle > GripperMaxAngle {
		return GripperMaxAngle
	}
	return angle
}
