package gojob

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-hooks/core"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

const (
	DefaultConcurrency  = 4
	DefaultPollInterval = 250 * time.Millisecond
	DefaultMaxAttempts  = 3

	TerminalDeliveryFailed    job.TerminalErrorCode = "hook_delivery_failed"
	TerminalMalformedDelivery job.TerminalErrorCode = "hook_delivery_malformed"
)

// DeliveryTask is the go-job task registered under JobIDDelivery. It decodes
// the delivery request carried by an execution message and drives it through
// a delivery runner.
//
// Delivered and suppressed runs return nil so the worker acks them. Failed
// runs return a terminal error. Runs cut short by a cancelled context return
// the cancellation cause, which RetryPolicy turns into a requeue.
type DeliveryTask struct {
	runner core.DeliveryRunner
}

func NewDeliveryTask(runner core.DeliveryRunner) *DeliveryTask {
	return &DeliveryTask{runner: runner}
}

func (t *DeliveryTask) GetID() string                        { return JobIDDelivery }
func (t *DeliveryTask) GetPath() string                      { return ScriptPathDelivery }
func (t *DeliveryTask) GetConfig() job.Config                { return job.Config{} }
func (t *DeliveryTask) GetHandler() func() error             { return func() error { return nil } }
func (t *DeliveryTask) GetHandlerConfig() job.HandlerOptions { return job.HandlerOptions{} }
func (t *DeliveryTask) GetEngine() job.Engine                { return nil }

func (t *DeliveryTask) Execute(ctx context.Context, msg *job.ExecutionMessage) error {
	if t == nil || t.runner == nil {
		return fmt.Errorf("gojob: delivery runner is not configured")
	}
	req, err := FromExecutionMessage(msg)
	if err != nil {
		return job.NewTerminalError(TerminalMalformedDelivery, "", err)
	}

	result, runErr := t.runner.Run(ctx, req)
	switch result.State {
	case core.DeliveryDelivered, core.DeliverySuppressed:
		return nil
	}
	if runErr == nil {
		runErr = result.Err
	}
	if runErr == nil {
		runErr = fmt.Errorf("gojob: delivery ended in state %s", result.State)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("gojob: delivery %s interrupted: %w: %w", req.ID, ctxErr, runErr)
	}
	return job.NewTerminalError(TerminalDeliveryFailed, "", runErr)
}

// NewWorker builds a go-job worker that drains delivery messages from
// dequeuer into runner. opts are applied after the retry policy, so callers
// can set concurrency, idle delay, hooks and logger the go-job way.
func NewWorker(dequeuer queue.Dequeuer, runner core.DeliveryRunner, policy RetryPolicy, opts ...worker.Option) (*worker.Worker, error) {
	if dequeuer == nil || runner == nil {
		return nil, fmt.Errorf("gojob: worker requires a dequeuer and a delivery runner")
	}
	options := append([]worker.Option{
		worker.WithConcurrency(DefaultConcurrency),
		worker.WithIdleDelay(DefaultPollInterval),
		worker.WithRetryPolicy(policy),
	}, opts...)
	w := worker.NewWorker(dequeuer, options...)
	if err := w.Register(NewDeliveryTask(runner)); err != nil {
		return nil, fmt.Errorf("gojob: register delivery task: %w", err)
	}
	return w, nil
}

var _ job.Task = (*DeliveryTask)(nil)
