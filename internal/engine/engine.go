// Package engine is a small in-process incremental computation engine.
//
// Computations are memoized under string keys. A computation that reads
// another one through its *Context records a dependency on it; invalidating
// a key marks every transitive dependent stale so it is recomputed on the
// next read.
//
// One-shot tasks are submitted with SubmitOnce. A task that is still running
// when one of its inputs is invalidated is torn down and executed again, so
// observers must poll TryReadOutputUntracked until the task settles rather
// than treat the first state change as completion.
package engine

import (
	"context"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"assetserve/internal/metrics"
)

// DefaultMaxConcurrency bounds the number of task bodies running at once
const DefaultMaxConcurrency = 64

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger used for task lifecycle messages
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMetrics records restarts, invalidations and in-flight tasks
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithMaxConcurrency bounds the number of concurrently running task bodies
func WithMaxConcurrency(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxConcurrency = n
		}
	}
}

// Engine owns the memoized computations and the submitted tasks.
// It is safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	nodes  map[string]*node
	tasks  map[TaskID]*task
	nextID TaskID

	ctx    context.Context
	cancel context.CancelFunc

	maxConcurrency int64
	sem            *semaphore.Weighted
	log            *zap.Logger
	metrics        *metrics.Metrics
}

// New creates an engine
func New(opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		nodes:          make(map[string]*node),
		tasks:          make(map[TaskID]*task),
		ctx:            ctx,
		cancel:         cancel,
		maxConcurrency: DefaultMaxConcurrency,
		log:            zap.NewNop(),
	}
	for _, apply := range opts {
		apply(e)
	}
	e.sem = semaphore.NewWeighted(e.maxConcurrency)
	e.log = e.log.Named("engine")
	return e
}

// Close cancels every running computation. Tasks still waiting for an
// execution slot settle with ErrClosed.
func (e *Engine) Close() {
	e.cancel()
}

// Context is handed to task bodies and computations. Reads made through it
// are recorded as dependencies of the computation or task it belongs to.
type Context struct {
	context.Context

	engine *Engine
	node   *node
	task   *task
}

// Engine returns the engine this context belongs to
func (c *Context) Engine() *Engine {
	return c.engine
}

// cause explains why the context is done, preferring ErrRestarted
func (c *Context) cause() error {
	if c.task != nil && c.task.restart.Load() {
		return ErrRestarted
	}
	return c.Err()
}

// Get returns the memoized value for key, computing it with fn when it is
// missing or stale, and records the read as a dependency of c.
//
// Inside a task body Get may return the previous value of a computation
// that is being redone; use GetConsistent when the result must reflect
// every invalidation applied so far. Computations must not read themselves,
// directly or transitively.
func Get[T any](c *Context, key string, fn func(*Context) (T, error)) (T, error) {
	v, err := c.engine.read(c, key, erase(fn), false)
	return unerase[T](v, err)
}

// GetConsistent is Get that blocks until no pending invalidation can change
// the result. Inside a task that gets restarted it returns ErrRestarted.
func GetConsistent[T any](c *Context, key string, fn func(*Context) (T, error)) (T, error) {
	v, err := c.engine.read(c, key, erase(fn), true)
	return unerase[T](v, err)
}

type computeFunc func(*Context) (any, error)

func erase[T any](fn func(*Context) (T, error)) computeFunc {
	return func(c *Context) (any, error) {
		return fn(c)
	}
}

func unerase[T any](v any, err error) (T, error) {
	var zero T
	if v == nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, err
	}
	return t, err
}

// Invalidate marks the computation stored under key and everything that
// depends on it as stale. Running tasks that read any of them are
// restarted. It reports whether the key was known.
func (e *Engine) Invalidate(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes[key]
	if !ok {
		return false
	}
	e.invalidateLocked(n, make(map[*node]struct{}))
	e.metrics.Invalidated()
	e.log.Debug("invalidated", zap.String("key", key))
	return true
}

// Forget drops the computation stored under key when nothing reads it: no
// computation depends on it, no task has read it and it is not being
// computed. It reports whether the key was dropped.
func (e *Engine) Forget(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes[key]
	if !ok || n.state == nodeComputing || len(n.dependents) > 0 || len(n.tasks) > 0 {
		return false
	}
	e.clearDepsLocked(n)
	delete(e.nodes, key)
	return true
}

// Keys returns the number of memoized computations
func (e *Engine) Keys() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.nodes)
}

func (e *Engine) read(c *Context, key string, compute computeFunc, consistent bool) (any, error) {
	e.mu.Lock()
	n := e.nodeLocked(key)
	e.trackLocked(c, n)

	for {
		if c.task != nil && c.task.restart.Load() {
			e.mu.Unlock()
			return nil, ErrRestarted
		}

		switch n.state {
		case nodeValid:
			v, err := n.value, n.err
			e.mu.Unlock()
			return v, err

		case nodeComputing:
			// only task bodies may observe an outdated value; computations
			// always wait so that the dependency graph stays exact
			if !consistent && c.node == nil && n.hasValue {
				v, err := n.value, n.err
				e.mu.Unlock()
				return v, err
			}
			done := n.done
			e.mu.Unlock()
			select {
			case <-done:
			case <-c.Done():
				return nil, c.cause()
			}
			e.mu.Lock()

		case nodeInvalid:
			e.computeLocked(n, compute)
		}
	}
}

// computeLocked runs compute for n with e.mu released during the call
func (e *Engine) computeLocked(n *node, compute computeFunc) {
	n.state = nodeComputing
	n.done = make(chan struct{})
	epoch := n.epoch
	e.clearDepsLocked(n)
	e.mu.Unlock()

	var (
		v   any
		err error
	)
	perr := recovered(func() {
		v, err = compute(&Context{Context: e.ctx, engine: e, node: n})
	})
	if perr != nil {
		err = perr
		e.log.Error("computation panicked", zap.String("key", n.key), zap.Error(perr))
	}

	e.mu.Lock()
	if n.epoch == epoch {
		n.state = nodeValid
		n.value, n.err, n.hasValue = v, err, true
	} else {
		// invalidated while computing; the next reader recomputes
		n.state = nodeInvalid
	}
	close(n.done)
}

func recovered(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	fn()
	return nil
}
