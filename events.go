package robot_arm

// EventKind identifies what changed in an ArmState.
type EventKind int

const (
	EventJointChanged EventKind = iota
	EventGripperChanged
	EventEndEffectorChanged
	EventCollisionChanged
	EventMovingChanged
	EventStatusChanged
	EventEmergencyStop
	EventPositionReached
)

func (k EventKind) String() string {
	switch k {
	case EventJointChanged:
		return "joint_changed"
	case EventGripperChanged:
		return "gripper_changed"
	case EventEndEffectorChanged:
		return "end_effector_changed"
	case EventCollisionChanged:
		return "collision_changed"
	case EventMovingChanged:
		return "moving_changed"
	case EventStatusChanged:
		return "status_changed"
	case EventEmergencyStop:
		return "emergency_stop"
	case EventPositionReached:
		return "position_reached"
	default:
		return "unknown"
	}
}

// Emergency stop reasons.
const (
	StopReasonCollision = "collision"
	StopReasonRequested = "requested"
)

// Event is a change notification emitted by an ArmState.
type Event struct {
	Kind EventKind
	// Joint is the joint index for EventJointChanged, -1 otherwise.
	Joint int
	// Reason is set for EventEmergencyStop.
	Reason string
}

// Listener receives ArmState events synchronously on the goroutine that owns the state.
type Listener func(Event)

type listenerList struct {
	nextID    int
	listeners map[int]Listener
	order     []int
}

func (l *listenerList) add(fn Listener) func() {
	if l.listeners == nil {
		l.listeners = make(map[int]Listener)
	}
	id := l.nextID
	l.nextID++
	l.listeners[id] = fn
	l.order = append(l.order, id)

	return func() {
		delete(l.listeners, id)
		for i, v := range l.order {
			if v == id {
				l.order = append(l.order[:i], l.order[i+1:]...)
				break
			}
		}
	}
}

func (l *listenerList) emit(e Event) {
	for _, id := range append([]int(nil), l.order...) {
		if fn, ok := l.listeners[id]; ok {
			fn(e)
		}
	}
}
