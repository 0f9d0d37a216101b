package robot_arm

import (
	"github.com/golang/geo/r3"
)

// CollisionCheck is a named collision heuristic evaluated against a configuration and its end-effector position.
type CollisionCheck struct {
	Name  string
	Check func(joints [JointCount]int, position r3.Vector) bool
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// checkSelfCollision flags shoulder/elbow combinations that fold the arm into itself.
//
// The second clause compares an absolute value against a negative bound and can never fire.
// It is kept as written; see TestSelfCollisionLowShoulderClauseNeverFires.
func checkSelfCollision(joints [JointCount]int, _ r3.Vector) bool {
	if abs(joints[1]) > 60 && abs(joints[2]) > 100 {
		return true
	}
	if joints[0] != 0 && abs(joints[1]) < -70 {
		return true
	}
	return false
}

func checkWorkspaceLimits(_ [JointCount]int, position r3.Vector) bool {
	return position.Norm() > WorkspaceRadius
}

// The remaining checks need segment geometry that the arm model does not carry yet.
func checkBaseCollisions([JointCount]int, r3.Vector) bool       { return false }
func checkArmSegmentCollisions([JointCount]int, r3.Vector) bool { return false }
func checkWristCollisions([JointCount]int, r3.Vector) bool      { return false }
func checkGripperCollisions([JointCount]int, r3.Vector) bool    { return false }

// DefaultCollisionChecks returns the heuristics evaluated by a default CollisionDetector.
func DefaultCollisionChecks() []CollisionCheck {
	return []CollisionCheck{
		{Name: "self", Check: checkSelfCollision},
		{Name: "workspace", Check: checkWorkspaceLimits},
		{Name: "base", Check: checkBaseCollisions},
		{Name: "arm_segment", Check: checkArmSegmentCollisions},
		{Name: "wrist", Check: checkWristCollisions},
		{Name: "gripper", Check: checkGripperCollisions},
	}
}

// CollisionDetector ORs a list of collision checks and tracks the resulting flag.
type CollisionDetector struct {
	checks    []CollisionCheck
	collision bool
	firing    []string
}

// NewCollisionDetector returns a detector over checks. A nil list uses DefaultCollisionChecks.
func NewCollisionDetector(checks []CollisionCheck) *CollisionDetector {
	if checks == nil {
		checks = DefaultCollisionChecks()
	}
	return &CollisionDetector{checks: checks}
}

// Evaluate runs every check and returns the new flag, whether it changed, and whether this was
// a false to true transition.
func (d *CollisionDetector) Evaluate(joints [JointCount]int, position r3.Vector) (collision, changed, onset bool) {
	collision = false
	d.firing = d.firing[:0]
	for _, c := range d.checks {
		if c.Check(joints, position) {
			collision = true
			d.firing = append(d.firing, c.Name)
		}
	}

	if collision == d.collision {
		return collision, false, false
	}
	d.collision = collision
	return collision, true, collision
}

// Collision returns the flag from the last evaluation.
func (d *CollisionDetector) Collision() bool {
	return d.collision
}

// Firing returns the names of the checks that fired during the last evaluation.
func (d *CollisionDetector) Firing() []string {
	out := make([]string, len(d.firing))
	copy(out, d.firing)
	return out
}
