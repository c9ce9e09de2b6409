package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// TaskID identifies a submitted task
type TaskID uint64

// Output is the final result of a settled task
type Output struct {
	// Err is what the body returned on its last execution
	Err error
	// Runs counts executions, including the ones torn down by restarts
	Runs int
}

// Listener is closed when the task it was obtained from changes state
type Listener <-chan struct{}

type task struct {
	id    TaskID
	body  func(*Context) error
	state TaskState
	runs  int

	restart atomic.Bool
	cancel  context.CancelFunc
	// released drops the task as soon as it settles
	released bool

	deps    map[*node]struct{}
	readers map[*task]struct{}

	// changed is closed and replaced on every transition
	changed chan struct{}
	output  Output
}

// SubmitOnce schedules body for execution and returns its handle. The body
// may run more than once if an input it read is invalidated before it
// returns; only the last execution determines the output.
func (e *Engine) SubmitOnce(body func(*Context) error) TaskID {
	e.mu.Lock()
	e.nextID++
	t := &task{
		id:      e.nextID,
		body:    body,
		state:   TaskPending,
		deps:    make(map[*node]struct{}),
		readers: make(map[*task]struct{}),
		changed: make(chan struct{}),
	}
	e.tasks[t.id] = t
	e.mu.Unlock()

	e.metrics.TaskStarted()
	go e.run(t)
	return t.id
}

// TryReadOutputUntracked returns the output of a settled task. While the
// task has not settled it returns a listener instead, closed at the task's
// next state change (which may be a restart rather than completion). The
// read registers no dependency.
func (e *Engine) TryReadOutputUntracked(id TaskID) (Output, Listener, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tasks[id]
	if !ok {
		return Output{}, nil, fmt.Errorf("%w: %d", ErrUnknownTask, id)
	}
	if t.state == TaskSettled {
		return t.output, nil, nil
	}
	return Output{}, t.changed, nil
}

// TryReadOutput is TryReadOutputUntracked for use inside a task body: if
// the target is restarted before it settles, the reading task is restarted
// too.
func (e *Engine) TryReadOutput(c *Context, id TaskID) (Output, Listener, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tasks[id]
	if !ok {
		return Output{}, nil, fmt.Errorf("%w: %d", ErrUnknownTask, id)
	}
	if t.state == TaskSettled {
		return t.output, nil, nil
	}
	if c.task != nil && c.task != t {
		t.readers[c.task] = struct{}{}
	}
	return Output{}, t.changed, nil
}

// State returns the current lifecycle state of a task
func (e *Engine) State(id TaskID) (TaskState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tasks[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownTask, id)
	}
	return t.state, nil
}

// Release forgets a task. A task that has not settled yet keeps running
// and is forgotten when it settles.
func (e *Engine) Release(id TaskID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tasks[id]
	if !ok {
		return
	}
	if t.state == TaskSettled {
		delete(e.tasks, id)
		return
	}
	t.released = true
}

func (e *Engine) settleLocked(t *task, out Output) {
	t.output = out
	e.transitionLocked(t, TaskSettled)
	if t.released {
		delete(e.tasks, t.id)
	}
}

func (e *Engine) run(t *task) {
	log := e.log.With(zap.Uint64("task", uint64(t.id)))

	if err := e.sem.Acquire(e.ctx, 1); err != nil {
		e.mu.Lock()
		e.settleLocked(t, Output{Err: ErrClosed})
		e.mu.Unlock()
		e.metrics.TaskSettled()
		return
	}
	defer e.sem.Release(1)

	for {
		ctx, cancel := context.WithCancel(e.ctx)

		e.mu.Lock()
		t.cancel = cancel
		t.restart.Store(false)
		t.runs++
		e.transitionLocked(t, TaskRunning)
		e.mu.Unlock()

		c := &Context{Context: ctx, engine: e, task: t}
		var err error
		if perr := recovered(func() { err = t.body(c) }); perr != nil {
			err = perr
			log.Error("task body panicked", zap.Error(perr))
		}
		cancel()

		e.mu.Lock()
		e.clearTaskDepsLocked(t)
		if t.restart.Load() {
			e.transitionLocked(t, TaskRestarted)
			e.mu.Unlock()
			e.metrics.TaskRestarted()
			log.Debug("task restarted", zap.Int("run", t.runs))
			continue
		}
		e.settleLocked(t, Output{Err: err, Runs: t.runs})
		e.mu.Unlock()

		e.metrics.TaskSettled()
		log.Debug("task settled", zap.Int("runs", t.runs), zap.Error(err))
		return
	}
}

func (e *Engine) restartLocked(t *task) {
	if t.state != TaskRunning || t.restart.Load() {
		return
	}
	t.restart.Store(true)
	if t.cancel != nil {
		t.cancel()
	}
}

func (e *Engine) clearTaskDepsLocked(t *task) {
	for n := range t.deps {
		delete(n.tasks, t)
	}
	t.deps = make(map[*node]struct{})
}

func (e *Engine) transitionLocked(t *task, to TaskState) {
	if !isAllowedTransition(t.state, to) {
		e.log.Error("invalid task transition",
			zap.Uint64("task", uint64(t.id)),
			zap.Stringer("from", t.state),
			zap.Stringer("to", to))
	}
	t.state = to
	close(t.changed)
	t.changed = make(chan struct{})

	if to == TaskRestarted {
		for r := range t.readers {
			e.restartLocked(r)
		}
	}
	if to == TaskSettled || to == TaskRestarted {
		t.readers = make(map[*task]struct{})
	}
}
