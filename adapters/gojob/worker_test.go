package gojob

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-hooks/core"
	"github.com/goliatone/go-hooks/delivery"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

func TestDeliveryTaskSucceedsForDeliveredAndSuppressedRuns(t *testing.T) {
	msg, _ := ToExecutionMessage(sampleRequest())
	for _, state := range []core.DeliveryState{core.DeliveryDelivered, core.DeliverySuppressed} {
		runner := &stubRunner{state: state}
		if err := NewDeliveryTask(runner).Execute(context.Background(), msg); err != nil {
			t.Fatalf("%s: expected success, got %v", state, err)
		}
		if runner.last.ID != "req-1" {
			t.Fatalf("expected runner to receive decoded request, got %+v", runner.last)
		}
	}
}

func TestDeliveryTaskFailedRunIsTerminal(t *testing.T) {
	msg, _ := ToExecutionMessage(sampleRequest())
	runner := &stubRunner{state: core.DeliveryFailed, err: errors.New("listener down")}

	err := NewDeliveryTask(runner).Execute(context.Background(), msg)
	var terminal job.NonRetryableError
	if !errors.As(err, &terminal) || !terminal.NonRetryable() {
		t.Fatalf("expected terminal error, got %v", err)
	}
	opts := RetryPolicy{MaxAttempts: 3, DeadLetterOnMax: true}.Decide(1, err)
	if opts.Disposition != queue.NackDispositionDeadLetter {
		t.Fatalf("expected failed run to be dead lettered, got %q", opts.Disposition)
	}
}

func TestDeliveryTaskRejectsMalformedMessages(t *testing.T) {
	runner := &stubRunner{state: core.DeliveryDelivered}
	err := NewDeliveryTask(runner).Execute(context.Background(), &job.ExecutionMessage{JobID: "something.else"})

	var terminal job.NonRetryableError
	if !errors.As(err, &terminal) {
		t.Fatalf("expected terminal decode error, got %v", err)
	}
	if runner.count() != 0 {
		t.Fatalf("runner must not see malformed messages")
	}
}

func TestDeliveryTaskInterruptedRunIsRetryable(t *testing.T) {
	msg, _ := ToExecutionMessage(sampleRequest())
	ctx, cancel := context.WithCancel(context.Background())
	runner := &stubRunner{state: core.DeliveryFailed, err: errors.New("retry cancelled"), before: cancel}

	err := NewDeliveryTask(runner).Execute(ctx, msg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation cause, got %v", err)
	}
	var terminal job.NonRetryableError
	if errors.As(err, &terminal) {
		t.Fatalf("interrupted run must not be terminal")
	}
	opts := RetryPolicy{MaxAttempts: 3, RequeueDelay: time.Second, DeadLetterOnMax: true}.Decide(1, err)
	if opts.Disposition != queue.NackDispositionRetry || opts.Delay != time.Second {
		t.Fatalf("expected requeue after a second, got %+v", opts)
	}
}

func TestNewWorkerRequiresDependencies(t *testing.T) {
	if _, err := NewWorker(nil, nil, RetryPolicy{}); err == nil {
		t.Fatalf("expected configuration error")
	}
}

func TestWorkerDrainsMemoryQueue(t *testing.T) {
	q := NewMemoryQueue()
	defer q.Close()
	adapter := NewEnqueuerAdapter(q, "memory")

	for _, id := range []string{"a", "b", "c"} {
		req := sampleRequest()
		req.ID = id
		if _, err := adapter.Submit(context.Background(), req); err != nil {
			t.Fatalf("submit %s: %v", id, err)
		}
	}

	done := make(chan struct{}, 3)
	runner := &stubRunner{state: core.DeliveryDelivered}
	w, err := NewWorker(q, runner, RetryPolicy{MaxAttempts: DefaultMaxAttempts, DeadLetterOnMax: true},
		worker.WithConcurrency(2),
		worker.WithIdleDelay(5*time.Millisecond),
		worker.WithHooks(worker.HookFuncs{OnSuccessFunc: func(context.Context, worker.Event) { done <- struct{}{} }}),
	)
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for delivery %d", i+1)
		}
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got := runner.count(); got != 3 {
		t.Fatalf("expected 3 runs, got %d", got)
	}
	if q.Len() != 0 || len(q.DeadLetters()) != 0 {
		t.Fatalf("expected queue to be drained, ready=%d dead=%d", q.Len(), len(q.DeadLetters()))
	}
}

func TestWorkerDeadLettersFailedDeliveries(t *testing.T) {
	q := NewMemoryQueue()
	defer q.Close()
	receipt, err := q.Enqueue(context.Background(), mustMessage(t, sampleRequest()))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	failed := make(chan worker.Event, 1)
	runner := &stubRunner{state: core.DeliveryFailed, err: errors.New("listener down")}
	w, err := NewWorker(q, runner, RetryPolicy{MaxAttempts: DefaultMaxAttempts, DeadLetterOnMax: true},
		worker.WithIdleDelay(5*time.Millisecond),
		worker.WithHooks(worker.HookFuncs{OnFailureFunc: func(_ context.Context, event worker.Event) { failed <- event }}),
	)
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case event := <-failed:
		if event.Err == nil || event.Message == nil || event.Message.JobID != JobIDDelivery {
			t.Fatalf("unexpected failure event %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for failure event")
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	dead := q.DeadLetters()
	if len(dead) != 1 {
		t.Fatalf("expected one dead letter, got %d", len(dead))
	}
	if dead[0].DispatchID != receipt.DispatchID || dead[0].Disposition != queue.NackDispositionDeadLetter {
		t.Fatalf("unexpected dead letter %+v", dead[0])
	}
	if runner.count() != 1 {
		t.Fatalf("failed delivery must not be retried by the queue, got %d runs", runner.count())
	}
}

func TestWorkerStopRequeuesSilentDeliveryCaughtInBackoff(t *testing.T) {
	q := NewMemoryQueue()
	defer q.Close()

	req := sampleRequest()
	req.Policy = core.DispatchPolicy{Timeout: time.Second, Async: true, Retry: true, MaxRetries: 3, FailSilently: true}
	if _, err := q.Enqueue(context.Background(), mustMessage(t, req)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	down := &downTransport{attempted: make(chan struct{}, 1)}
	task := delivery.NewTask(down, delivery.WithBackoff(delivery.ConstantBackoff(time.Hour)))
	hook := &capturingHook{}
	w, err := NewWorker(q, task, RetryPolicy{MaxAttempts: DefaultMaxAttempts, DeadLetterOnMax: true},
		worker.WithConcurrency(1),
		worker.WithIdleDelay(5*time.Millisecond),
		worker.WithHooks(hook),
	)
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-down.attempted:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the first attempt")
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if hook.count("success") != 0 {
		t.Fatalf("interrupted delivery must not be acked")
	}
	if hook.count("retry") != 1 {
		t.Fatalf("expected one retry event, got %d", hook.count("retry"))
	}
	if q.Len() != 1 || len(q.DeadLetters()) != 0 {
		t.Fatalf("expected delivery back on the queue, ready=%d dead=%d", q.Len(), len(q.DeadLetters()))
	}
	next, err := q.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if attempts(next) != 2 {
		t.Fatalf("expected second hand-out, got %d", attempts(next))
	}
}

func mustMessage(t *testing.T, req core.DeliveryRequest) *job.ExecutionMessage {
	t.Helper()
	msg, err := ToExecutionMessage(req)
	if err != nil {
		t.Fatalf("to execution message: %v", err)
	}
	return msg
}

type stubRunner struct {
	mu     sync.Mutex
	state  core.DeliveryState
	err    error
	before func()
	last   core.DeliveryRequest
	calls  int
}

func (s *stubRunner) Run(_ context.Context, req core.DeliveryRequest) (core.DeliveryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.last = req
	if s.before != nil {
		s.before()
	}
	return core.DeliveryResult{RequestID: req.ID, State: s.state, Attempts: 1, Err: s.err}, s.err
}

func (s *stubRunner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type downTransport struct {
	attempted chan struct{}
}

func (d *downTransport) Kind() string { return "down" }

func (d *downTransport) Do(context.Context, core.TransportRequest) (core.TransportResponse, error) {
	select {
	case d.attempted <- struct{}{}:
	default:
	}
	return core.TransportResponse{}, errors.New("connection refused")
}

type capturingHook struct {
	mu     sync.Mutex
	counts map[string]int
}

func (h *capturingHook) record(kind string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.counts == nil {
		h.counts = map[string]int{}
	}
	h.counts[kind]++
}

func (h *capturingHook) count(kind string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[kind]
}

func (h *capturingHook) OnStart(context.Context, worker.Event)   { h.record("start") }
func (h *capturingHook) OnSuccess(context.Context, worker.Event) { h.record("success") }
func (h *capturingHook) OnFailure(context.Context, worker.Event) { h.record("failure") }
func (h *capturingHook) OnRetry(context.Context, worker.Event)   { h.record("retry") }
