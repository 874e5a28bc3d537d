package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/semantiva/semantiva-go/internal/pipeline"
)

// NodeCall is the unit of work an executor runs: one node invocation
// producing the node's output payload.
type NodeCall func(ctx context.Context) (pipeline.Payload, error)

// Future is the handle returned by Submit. Await blocks until the call
// completes or ctx is done.
type Future interface {
	Await(ctx context.Context) (pipeline.Payload, error)
}

// Executor runs node calls. The orchestrator serializes across nodes of a
// linear graph, so implementations are free to use worker goroutines as
// long as each call sees its own payload and observer.
type Executor interface {
	Submit(ctx context.Context, call NodeCall) Future
}

// SequentialExecutor runs each call inline on the submitting goroutine.
// The default.
type SequentialExecutor struct{}

// NewSequentialExecutor returns the default single-threaded executor.
func NewSequentialExecutor() *SequentialExecutor {
	return &SequentialExecutor{}
}

type readyFuture struct {
	payload pipeline.Payload
	err     error
}

func (f readyFuture) Await(context.Context) (pipeline.Payload, error) {
	return f.payload, f.err
}

// Submit runs the call immediately and returns a completed future.
func (e *SequentialExecutor) Submit(ctx context.Context, call NodeCall) Future {
	if err := ctx.Err(); err != nil {
		return readyFuture{err: err}
	}
	payload, err := call(ctx)
	return readyFuture{payload: payload, err: err}
}

// PooledExecutor runs calls on a bounded group of worker goroutines. Node
// ordering is still serialized by the orchestrator; the pool matters only
// when callers fan out independent submissions.
type PooledExecutor struct {
	group *errgroup.Group
}

// NewPooledExecutor builds an executor allowing up to limit concurrent
// calls.
func NewPooledExecutor(limit int) *PooledExecutor {
	group := &errgroup.Group{}
	if limit > 0 {
		group.SetLimit(limit)
	}
	return &PooledExecutor{group: group}
}

type channelFuture struct {
	done chan readyFuture
}

func (f *channelFuture) Await(ctx context.Context) (pipeline.Payload, error) {
	select {
	case result := <-f.done:
		return result.payload, result.err
	case <-ctx.Done():
		return pipeline.Payload{}, ctx.Err()
	}
}

// Submit schedules the call on the pool.
func (e *PooledExecutor) Submit(ctx context.Context, call NodeCall) Future {
	future := &channelFuture{done: make(chan readyFuture, 1)}
	e.group.Go(func() error {
		payload, err := call(ctx)
		future.done <- readyFuture{payload: payload, err: err}
		return nil
	})
	return future
}

// Wait blocks until all submitted calls have drained.
func (e *PooledExecutor) Wait() error {
	return e.group.Wait()
}
