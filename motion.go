package robot_arm

// MotionStatus is the status shown for the arm. Collision outranks Moving, which outranks Idle.
type MotionStatus int

const (
	StatusIdle MotionStatus = iota
	StatusMoving
	StatusCollision
)

func (s MotionStatus) String() string {
	switch s {
	case StatusIdle:
		return "Ready"
	case StatusMoving:
		return "Moving"
	case StatusCollision:
		return "Collision"
	default:
		return "Unknown"
	}
}

// deriveStatus applies the status priority.
func deriveStatus(collision, moving bool) MotionStatus {
	switch {
	case collision:
		return StatusCollision
	case moving:
		return StatusMoving
	default:
		return StatusIdle
	}
}

// motionStateMachine tracks Idle/Moving from the running flags of the value holders.
type motionStateMachine struct {
	moving bool
}

// update takes the current running flags and reports whether the moving state changed and
// whether a Moving to Idle edge was crossed.
func (m *motionStateMachine) update(running ...bool) (changed, reached bool) {
	moving := false
	for _, r := range running {
		if r {
			moving = true
			break
		}
	}
	if moving == m.moving {
		return false, false
	}
	m.moving = moving
	return true, !moving
}
