package delivery

import (
	"context"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-hooks/core"
)

// Executor runs synchronous deliveries inline and hands asynchronous ones to
// a queue drained by a worker.
type Executor struct {
	runner core.DeliveryRunner
	queue  core.DeliveryQueue
}

func NewExecutor(runner core.DeliveryRunner, queue core.DeliveryQueue) *Executor {
	return &Executor{runner: runner, queue: queue}
}

func (e *Executor) Apply(ctx context.Context, req core.DeliveryRequest) (core.DeliveryResult, error) {
	if e == nil || e.runner == nil {
		return core.DeliveryResult{RequestID: req.ID, URL: req.URL, State: core.DeliveryFailed}, missingDependency("delivery: runner is required")
	}
	return e.runner.Run(ctx, req)
}

func (e *Executor) ApplyAsync(ctx context.Context, req core.DeliveryRequest) (core.DeliveryHandle, error) {
	if e == nil || e.queue == nil {
		return core.DeliveryHandle{}, missingDependency("delivery: queue is required for async dispatch")
	}
	if err := req.Validate(); err != nil {
		return core.DeliveryHandle{}, err
	}
	return e.queue.Submit(ctx, req)
}

func missingDependency(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.TextCodeDependencyUnavailable)
}

var _ core.Executor = (*Executor)(nil)
