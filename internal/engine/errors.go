package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrRestarted is returned by reads inside a task body whose execution
	// has been torn down because one of its inputs was invalidated
	ErrRestarted = errors.New("task restarted")
	// ErrUnknownTask is returned when reading a task that was never
	// submitted or was already released
	ErrUnknownTask = errors.New("unknown task")
	// ErrClosed is the output of tasks that never ran because the engine
	// was closed
	ErrClosed = errors.New("engine closed")
)

// PanicError carries a panic recovered from a task body or a computation
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
