// Package bridge runs the computation of an HTTP response as an engine task
// and hands the result back to the request goroutine.
//
// The engine may tear a task down and run it again when one of its inputs
// is invalidated, so a state change of the task does not mean it is done.
// The request side therefore polls until the task settles, and takes the
// response from a Completion that the task body fills exactly once.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"assetserve/internal/domain"
	"assetserve/internal/engine"
	"assetserve/internal/metrics"
)

// Work computes the response for one request inside an engine task
type Work func(c *engine.Context) (domain.Response, error)

// Bridge submits request work to an engine
type Bridge struct {
	engine  *engine.Engine
	log     *zap.Logger
	metrics *metrics.Metrics
}

// New creates a bridge over e. logger and m may be nil.
func New(e *engine.Engine, logger *zap.Logger, m *metrics.Metrics) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		engine:  e,
		log:     logger.Named("bridge"),
		metrics: m,
	}
}

// Run executes work as a task and returns the response it delivered.
//
// Errors and panics inside work become a 500 response. The returned error
// is non-nil only when ctx ended before the task settled; the task keeps
// running, its late send is dropped and the engine forgets it once it
// settles.
func (b *Bridge) Run(ctx context.Context, work Work) (domain.Response, error) {
	if err := ctx.Err(); err != nil {
		return domain.Response{}, err
	}
	completion := NewCompletion()
	id := b.engine.SubmitOnce(func(c *engine.Context) error {
		return b.execute(c, completion, work)
	})
	defer b.engine.Release(id)

	for {
		_, listener, err := b.engine.TryReadOutputUntracked(id)
		if err != nil {
			completion.Close()
			return domain.Response{}, fmt.Errorf("observe task %d: %w", id, err)
		}
		if listener == nil {
			break
		}
		select {
		case <-listener:
		case <-ctx.Done():
			completion.Close()
			return domain.Response{}, ctx.Err()
		}
	}

	resp, ok := completion.TryReceive()
	if !ok {
		// engine closed before the body ran, or the body returned without
		// sending
		b.log.Error("task settled without a response", zap.Uint64("task", uint64(id)))
		return domain.InternalError(), nil
	}
	return resp, nil
}

// execute is the task body. Reruns after a delivered response do nothing.
// A response computed while an input was invalidated is not delivered; the
// rerun computes it again.
func (b *Bridge) execute(c *engine.Context, completion *Completion, work Work) (err error) {
	if completion.Sent() {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			perr := &engine.PanicError{Value: r, Stack: debug.Stack()}
			b.log.Error("request task panicked", zap.Error(perr), zap.ByteString("stack", perr.Stack))
			err = perr
			b.deliver(completion, domain.InternalError())
		}
	}()

	resp, err := work(c)
	if err != nil {
		if errors.Is(err, engine.ErrRestarted) || c.Err() != nil {
			// the engine runs the body again, or is shutting down
			return err
		}
		b.log.Error("request task failed", zap.Error(err))
		b.deliver(completion, domain.InternalError())
		return err
	}
	if c.Err() != nil {
		// restarted or shutting down while work ran
		return engine.ErrRestarted
	}
	b.deliver(completion, resp)
	return nil
}

func (b *Bridge) deliver(completion *Completion, resp domain.Response) {
	err := completion.Send(resp)
	switch {
	case err == nil:
	case errors.Is(err, ErrChannelClosed):
		b.metrics.SendFailed(metrics.ReasonReceiverGone)
		b.log.Info("response dropped, client went away", zap.Int("status", resp.Status))
	case errors.Is(err, ErrAlreadySent):
		b.metrics.SendFailed(metrics.ReasonAlreadySent)
		b.log.Warn("response already sent", zap.Int("status", resp.Status))
	}
}
