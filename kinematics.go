package robot_arm

import (
	"math"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/spatialmath"
)

// Link lengths and offsets in meters.
const (
	linkBaseHeight    = 0.084 // base to shoulder
	linkShoulder      = 0.173 // shoulder to elbow
	linkElbowOffset   = 0.089 // elbow forward offset
	linkElbowToWrist  = 0.169
	linkWristSegment1 = 0.038
	linkWristSegment2 = 0.038
	linkWristGripper  = 0.036
)

func degToRad(deg int) float64 {
	return float64(deg) * math.Pi / 180
}

// ForwardKinematics returns the end-effector position in meters for the given joint angles in degrees.
//
// Only the base, shoulder and elbow contribute. The wrist joints only orient the tool in this model
// so changing them never moves the computed position.
func ForwardKinematics(joints [JointCount]int) r3.Vector {
	q1 := degToRad(joints[0])
	q2 := degToRad(joints[1])
	q3 := degToRad(joints[2])

	reach := linkShoulder + linkElbowOffset*math.Cos(q2) + linkElbowToWrist*math.Cos(q2+q3)

	return r3.Vector{
		X: math.Cos(q1) * reach,
		Y: linkBaseHeight + linkElbowOffset*math.Sin(q2) + linkElbowToWrist*math.Sin(q2+q3) +
			linkWristSegment1 + linkWristSegment2 + linkWristGripper,
		Z: math.Sin(q1) * reach,
	}
}

// PoseFromPosition converts a position in meters to a spatialmath pose in millimeters.
func PoseFromPosition(position r3.Vector) spatialmath.Pose {
	return spatialmath.NewPoseFromPoint(position.Mul(1000))
}
