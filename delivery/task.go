package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-hooks/core"
	glog "github.com/goliatone/go-logger/glog"
)

// Task owns the delivery state machine for one request:
//
//	pending -> in_flight -> delivered
//	                     -> retrying -> in_flight ...
//	                     -> failed | suppressed
//
// Every attempt is bounded by the policy timeout. A 2xx response is
// delivered; transport errors, timeouts and any other status are retried
// while the policy allows it. A run whose context ends before a verdict is
// failed, never suppressed.
type Task struct {
	transport            core.TransportAdapter
	backoff              core.BackoffPolicy
	recorder             core.DeliveryRecorder
	logger               core.Logger
	metrics              core.MetricsRecorder
	maxResponseBodyBytes int64
	maxRetryAfter        time.Duration
	sleep                func(ctx context.Context, delay time.Duration) error
	now                  func() time.Time
}

type TaskOption func(*Task)

func WithBackoff(policy core.BackoffPolicy) TaskOption {
	return func(t *Task) {
		t.backoff = policy
	}
}

func WithRecorder(recorder core.DeliveryRecorder) TaskOption {
	return func(t *Task) {
		t.recorder = recorder
	}
}

func WithLogger(logger core.Logger) TaskOption {
	return func(t *Task) {
		t.logger = logger
	}
}

func WithMetrics(recorder core.MetricsRecorder) TaskOption {
	return func(t *Task) {
		t.metrics = recorder
	}
}

func WithMaxResponseBodyBytes(limit int64) TaskOption {
	return func(t *Task) {
		t.maxResponseBodyBytes = limit
	}
}

// WithMaxRetryAfter caps the Retry-After delay a throttled listener can
// impose between attempts.
func WithMaxRetryAfter(limit time.Duration) TaskOption {
	return func(t *Task) {
		t.maxRetryAfter = limit
	}
}

func withSleep(sleep func(ctx context.Context, delay time.Duration) error) TaskOption {
	return func(t *Task) {
		t.sleep = sleep
	}
}

func NewTask(transport core.TransportAdapter, opts ...TaskOption) *Task {
	task := &Task{
		transport:     transport,
		backoff:       ExponentialBackoff{},
		maxRetryAfter: DefaultMaxRetryAfter,
		metrics:       core.NopMetricsRecorder{},
		sleep:         sleepContext,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(task)
		}
	}
	task.logger = glog.Ensure(task.logger)
	if task.metrics == nil {
		task.metrics = core.NopMetricsRecorder{}
	}
	if task.backoff == nil {
		task.backoff = ExponentialBackoff{}
	}
	return task
}

func (t *Task) Run(ctx context.Context, req core.DeliveryRequest) (core.DeliveryResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if t == nil || t.transport == nil {
		err := goerrors.New("delivery: transport adapter is required", goerrors.CategoryInternal).
			WithCode(http.StatusInternalServerError).
			WithTextCode(core.TextCodeDependencyUnavailable)
		return core.DeliveryResult{
			RequestID: req.ID,
			URL:       req.URL,
			State:     core.DeliveryFailed,
			Err:       err,
		}, err
	}
	run := &taskRun{
		ctx:      ctx,
		observer: core.DeliveryObserverFromContext(ctx),
		result: core.DeliveryResult{
			RequestID:  req.ID,
			Hook:       req.Hook,
			ListenerID: req.ListenerID,
			URL:        req.URL,
			State:      core.DeliveryPending,
			History:    []core.DeliveryState{core.DeliveryPending},
			StartedAt:  t.now(),
		},
		now: t.now,
	}

	if err := req.Validate(); err != nil {
		run.transition(core.DeliveryFailed, 0, err)
		run.result.Err = err
		t.finish(ctx, &run.result)
		return run.result, err
	}

	policy := req.Policy
	for attempt := 1; ; attempt++ {
		run.result.Attempts = attempt
		run.transition(core.DeliveryInFlight, attempt, nil)

		hint, attemptErr := t.attempt(ctx, req, &run.result)
		if attemptErr == nil {
			run.transition(core.DeliveryDelivered, attempt, nil)
			break
		}

		if policy.Retry && attempt <= policy.MaxRetries && ctx.Err() == nil {
			run.transition(core.DeliveryRetrying, attempt, attemptErr)
			if waitErr := t.sleep(ctx, t.retryDelay(attempt, hint)); waitErr == nil {
				continue
			}
			attemptErr = fmt.Errorf("delivery: retry cancelled: %w", ctx.Err())
		}

		// Cancellation is not a listener verdict: fail_silently does not apply.
		if ctxErr := ctx.Err(); ctxErr != nil {
			if !errors.Is(attemptErr, ctxErr) {
				attemptErr = fmt.Errorf("delivery: interrupted: %w: %w", ctxErr, attemptErr)
			}
			run.result.Err = core.DeliveryTransportError(req.URL, attempt, attemptErr)
			run.transition(core.DeliveryFailed, attempt, run.result.Err)
			break
		}
		if policy.FailSilently {
			run.result.Err = nil
			run.transition(core.DeliverySuppressed, attempt, attemptErr)
			t.log(ctx, "warn", "delivery suppressed", run.result, attemptErr)
			break
		}
		run.result.Err = core.DeliveryTransportError(req.URL, attempt, attemptErr)
		run.transition(core.DeliveryFailed, attempt, run.result.Err)
		break
	}

	t.finish(ctx, &run.result)
	if run.result.State == core.DeliveryFailed {
		return run.result, run.result.Err
	}
	return run.result, nil
}

func (t *Task) retryDelay(attempt int, hint time.Duration) time.Duration {
	delay := t.backoff.Delay(attempt)
	if hint <= delay {
		return delay
	}
	if t.maxRetryAfter > 0 && hint > t.maxRetryAfter {
		return t.maxRetryAfter
	}
	return hint
}

func (t *Task) attempt(ctx context.Context, req core.DeliveryRequest, result *core.DeliveryResult) (time.Duration, error) {
	res, err := t.transport.Do(ctx, core.TransportRequest{
		Method:               http.MethodPost,
		URL:                  req.URL,
		Headers:              req.Headers,
		Body:                 req.Body,
		Timeout:              req.Policy.Timeout,
		MaxResponseBodyBytes: t.maxResponseBodyBytes,
		Idempotency:          req.ID,
		Metadata: map[string]any{
			"hook":        req.Hook,
			"listener_id": req.ListenerID,
		},
	})
	if err != nil {
		return 0, err
	}
	result.StatusCode = res.StatusCode
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return 0, nil
	}
	statusErr := goerrors.New(
		fmt.Sprintf("delivery: listener responded with status %d", res.StatusCode),
		goerrors.CategoryExternal,
	).
		WithCode(http.StatusBadGateway).
		WithTextCode(core.TextCodeDeliveryTransport)
	statusErr.WithMetadata(map[string]any{"status_code": res.StatusCode, "url": req.URL})
	hint, _ := retryAfter(res, t.now())
	return hint, statusErr
}

func (t *Task) finish(ctx context.Context, result *core.DeliveryResult) {
	result.FinishedAt = t.now()
	tags := map[string]string{"hook": result.Hook, "state": string(result.State)}
	t.metrics.IncCounter(ctx, "hooks.delivery.total", 1, tags)
	t.metrics.ObserveHistogram(ctx, "hooks.delivery.attempts", float64(result.Attempts), tags)
	t.metrics.ObserveHistogram(ctx, "hooks.delivery.duration_ms", float64(result.FinishedAt.Sub(result.StartedAt).Milliseconds()), tags)

	switch result.State {
	case core.DeliveryFailed:
		t.log(ctx, "error", "delivery failed", *result, result.Err)
	case core.DeliveryDelivered:
		t.log(ctx, "debug", "delivery succeeded", *result, nil)
	}

	if t.recorder == nil {
		return
	}
	if err := t.recorder.RecordDelivery(ctx, *result); err != nil {
		t.log(ctx, "error", "delivery outcome not recorded", *result, err)
	}
}

func (t *Task) log(ctx context.Context, level string, message string, result core.DeliveryResult, err error) {
	logger := t.logger.WithContext(ctx)
	args := []any{
		"hook", result.Hook,
		"listener_id", result.ListenerID,
		"request_id", result.RequestID,
		"url", result.URL,
		"state", string(result.State),
		"attempts", strconv.Itoa(result.Attempts),
	}
	if result.StatusCode > 0 {
		args = append(args, "status_code", result.StatusCode)
	}
	if err != nil {
		args = append(args, "error", err.Error())
	}
	switch level {
	case "error":
		logger.Error(message, args...)
	case "warn":
		logger.Warn(message, args...)
	default:
		logger.Debug(message, args...)
	}
}

type taskRun struct {
	ctx      context.Context
	observer core.DeliveryObserver
	result   core.DeliveryResult
	now      func() time.Time
}

func (r *taskRun) transition(to core.DeliveryState, attempt int, err error) {
	from := r.result.State
	r.result.State = to
	r.result.History = append(r.result.History, to)
	if r.observer == nil {
		return
	}
	r.observer.OnTransition(r.ctx, core.DeliveryTransition{
		RequestID: r.result.RequestID,
		From:      from,
		To:        to,
		Attempt:   attempt,
		Err:       err,
		At:        r.now(),
	})
}

var _ core.DeliveryRunner = (*Task)(nil)
