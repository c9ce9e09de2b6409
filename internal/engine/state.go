package engine

// TaskState is the lifecycle state of a submitted task
type TaskState int

const (
	// TaskPending means the task waits for a free execution slot
	TaskPending TaskState = iota
	// TaskRunning means the body is executing
	TaskRunning
	// TaskRestarted means an input was invalidated mid-flight and the body
	// will run again
	TaskRestarted
	// TaskSettled means the body returned without a pending restart; the
	// output is final
	TaskSettled
)

func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskRestarted:
		return "restarted"
	case TaskSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition can happen
func IsTerminal(s TaskState) bool {
	return s == TaskSettled
}

func isAllowedTransition(from, to TaskState) bool {
	switch from {
	case TaskPending:
		return to == TaskRunning || to == TaskSettled
	case TaskRunning:
		return to == TaskRestarted || to == TaskSettled
	case TaskRestarted:
		return to == TaskRunning
	default:
		return false
	}
}
