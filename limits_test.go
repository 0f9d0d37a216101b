package robot_arm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsWithinJointLimits(t *testing.T) {
	limits := DefaultJointLimits()

	tests := []struct {
		name     string
		joint    int
		angle    int
		expected bool
	}{
		{name: "base at max", joint: 0, angle: 180, expected: true},
		{name: "base past max", joint: 0, angle: 181, expected: false},
		{name: "shoulder at min", joint: 1, angle: -90, expected: true},
		{name: "shoulder past min", joint: 1, angle: -91, expected: false},
		{name: "elbow inside", joint: 2, angle: 100, expected: true},
		{name: "elbow past max", joint: 2, angle: 136, expected: false},
		{name: "wrist pitch past max", joint: 4, angle: 91, expected: false},
		{name: "wrist yaw at min", joint: 5, angle: -180, expected: true},
		{name: "negative joint index", joint: -1, angle: 0, expected: false},
		{name: "joint index past last", joint: JointCount, angle: 0, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, limits.IsWithinJointLimits(tt.joint, tt.angle))
		})
	}
}

func TestIsPositionSafe(t *testing.T) {
	limits := DefaultJointLimits()

	tests := []struct {
		name     string
		angles   [JointCount]int
		expected bool
	}{
		{name: "all zero", angles: [JointCount]int{}, expected: true},
		{name: "every joint at its max", angles: [JointCount]int{180, 90, 135, 180, 90, 180}, expected: true},
		{name: "every joint at its min", angles: [JointCount]int{-180, -90, -135, -180, -90, -180}, expected: true},
		{name: "one joint out", angles: [JointCount]int{0, 0, 0, 0, 91, 0}, expected: false},
		{name: "shoulder out", angles: [JointCount]int{0, 100, 0, 0, 0, 0}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, limits.IsPositionSafe(tt.angles))
		})
	}
}

func TestJointLimitsValidate(t *testing.T) {
	assert.NoError(t, DefaultJointLimits().Validate())

	limits := DefaultJointLimits()
	limits[2] = JointLimit{Min: 10, Max: -10}
	assert.ErrorContains(t, limits.Validate(), "elbow_pitch")
}

func TestClampGripper(t *testing.T) {
	tests := []struct {
		in, expected int
	}{
		{-10, 0},
		{0, 0},
		{20, 20},
		{45, 45},
		{100, 45},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ClampGripper(tt.in), "ClampGripper(%d)", tt.in)
	}
}
