// Package enginetest runs code inside engine tasks from tests.
package enginetest

import (
	"context"
	"testing"
	"time"

	"assetserve/internal/engine"
)

// Timeout bounds how long Await waits for a task to settle
var Timeout = 5 * time.Second

// Await polls the task until it settles and returns its output
func Await(t testing.TB, e *engine.Engine, id engine.TaskID) engine.Output {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()

	for {
		out, listener, err := e.TryReadOutputUntracked(id)
		if err != nil {
			t.Fatalf("read task %d: %v", id, err)
		}
		if listener == nil {
			return out
		}
		select {
		case <-listener:
		case <-ctx.Done():
			t.Fatalf("task %d did not settle within %s", id, Timeout)
		}
	}
}

// Run executes body as a task and waits for it
func Run(t testing.TB, e *engine.Engine, body func(*engine.Context) error) engine.Output {
	t.Helper()
	return Await(t, e, e.SubmitOnce(body))
}

// Value computes one value inside a task and fails the test on error
func Value[T any](t testing.TB, e *engine.Engine, fn func(*engine.Context) (T, error)) T {
	t.Helper()
	var v T
	out := Run(t, e, func(c *engine.Context) error {
		var err error
		v, err = fn(c)
		return err
	})
	if out.Err != nil {
		t.Fatalf("task failed: %v", out.Err)
	}
	return v
}
