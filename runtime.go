package hooks

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-hooks/adapters/gojob"
	"github.com/goliatone/go-hooks/core"
	"github.com/goliatone/go-hooks/delivery"
	"github.com/goliatone/go-hooks/transport"
	"github.com/goliatone/go-hooks/webhooks"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

// Runtime is a service wired to the full delivery pipeline: an HTTP
// transport, the delivery task and a go-job queue drained by a worker.
type Runtime struct {
	service  *core.Service
	facade   *Facade
	task     *delivery.Task
	worker   *worker.Worker
	memory   *gojob.MemoryQueue
	executor *delivery.Executor

	mu      sync.Mutex
	running bool
}

type RuntimeOption func(*runtimeOptions)

type runtimeOptions struct {
	serviceOptions    []core.Option
	httpClient        transport.HTTPDoer
	enqueuer          queue.Enqueuer
	dequeuer          queue.Dequeuer
	queueName         string
	workerHooks       []worker.Hook
	logger            core.Logger
	loggerProvider    core.LoggerProvider
	metrics           core.MetricsRecorder
	recorder          core.DeliveryRecorder
	signer            core.RequestSigner
	repositoryFactory any
}

func WithServiceOptions(opts ...core.Option) RuntimeOption {
	return func(o *runtimeOptions) {
		o.serviceOptions = append(o.serviceOptions, opts...)
	}
}

func WithHTTPClient(client transport.HTTPDoer) RuntimeOption {
	return func(o *runtimeOptions) {
		o.httpClient = client
	}
}

// WithQueue replaces the in-process queue with an external go-job backend.
func WithQueue(name string, enqueuer queue.Enqueuer, dequeuer queue.Dequeuer) RuntimeOption {
	return func(o *runtimeOptions) {
		o.queueName = name
		o.enqueuer = enqueuer
		o.dequeuer = dequeuer
	}
}

func WithWorkerHook(hook worker.Hook) RuntimeOption {
	return func(o *runtimeOptions) {
		if hook != nil {
			o.workerHooks = append(o.workerHooks, hook)
		}
	}
}

func WithRuntimeLogger(logger core.Logger) RuntimeOption {
	return func(o *runtimeOptions) {
		o.logger = logger
	}
}

func WithRuntimeLoggerProvider(provider core.LoggerProvider) RuntimeOption {
	return func(o *runtimeOptions) {
		o.loggerProvider = provider
	}
}

func WithRuntimeMetrics(recorder core.MetricsRecorder) RuntimeOption {
	return func(o *runtimeOptions) {
		o.metrics = recorder
	}
}

func WithRuntimeDeliveryRecorder(recorder core.DeliveryRecorder) RuntimeOption {
	return func(o *runtimeOptions) {
		o.recorder = recorder
	}
}

// WithSigner replaces the default HMAC signer. Listeners carrying a
// "secret" config value are signed by the default one.
func WithSigner(signer core.RequestSigner) RuntimeOption {
	return func(o *runtimeOptions) {
		o.signer = signer
	}
}

// WithStores wires a repository factory, such as the SQL one, into both the
// service and the delivery task.
func WithStores(factory any) RuntimeOption {
	return func(o *runtimeOptions) {
		o.repositoryFactory = factory
	}
}

// Setup resolves cfg over the defaults and builds a Runtime. The worker is
// not started; call Start to drain asynchronous deliveries.
func Setup(cfg Config, opts ...RuntimeOption) (*Runtime, error) {
	options := runtimeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&options)
	}

	resolved, err := core.GoOptionsResolver{}.Resolve(core.DefaultConfig(), core.Config{}, cfg)
	if err != nil {
		return nil, err
	}

	provider, logger := glog.Resolve("hooks", options.loggerProvider, options.logger)
	logger = glog.Ensure(logger)
	metrics := options.metrics
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}
	recorder := options.recorder
	if recorder == nil {
		if recorders, ok := options.repositoryFactory.(core.RecorderProvider); ok {
			recorder = recorders.DeliveryRecorder()
		}
	}

	signer := options.signer
	if signer == nil {
		signer = webhooks.NewHMACSigner(resolved.Delivery.SignatureHeader)
	}

	adapter := transport.NewHTTPAdapter(options.httpClient)
	adapter.UserAgent = resolved.Delivery.UserAgent
	if resolved.Delivery.MaxResponseBodyBytes > 0 {
		adapter.MaxResponseBodyBytes = resolved.Delivery.MaxResponseBodyBytes
	}

	task := delivery.NewTask(adapter,
		delivery.WithBackoff(delivery.ExponentialBackoff{
			Initial: resolved.Delivery.BackoffInitial,
			Max:     resolved.Delivery.BackoffMax,
		}),
		delivery.WithRecorder(recorder),
		delivery.WithLogger(logger),
		delivery.WithMetrics(metrics),
		delivery.WithMaxResponseBodyBytes(resolved.Delivery.MaxResponseBodyBytes),
	)

	rt := &Runtime{task: task}
	enqueuer, dequeuer := options.enqueuer, options.dequeuer
	if enqueuer == nil || dequeuer == nil {
		rt.memory = gojob.NewMemoryQueue()
		enqueuer, dequeuer = rt.memory, rt.memory
	}

	policy := gojob.RetryPolicy{
		MaxAttempts:     gojob.DefaultMaxAttempts,
		RequeueDelay:    resolved.Delivery.BackoffInitial,
		MaxDelay:        resolved.Delivery.BackoffMax,
		DeadLetterOnMax: resolved.Worker.DeadLetter,
	}
	workerOpts := []worker.Option{
		worker.WithConcurrency(resolved.Worker.Concurrency),
		worker.WithIdleDelay(resolved.Worker.PollInterval),
		worker.WithLogger(job.GoLogger(logger)),
		worker.WithHooks(options.workerHooks...),
	}
	rt.worker, err = gojob.NewWorker(dequeuer, task, policy, workerOpts...)
	if err != nil {
		rt.closeQueue()
		return nil, err
	}
	rt.executor = delivery.NewExecutor(task, gojob.NewEnqueuerAdapter(enqueuer, options.queueName))

	serviceOpts := []core.Option{
		core.WithServiceExecutor(rt.executor),
		core.WithServiceSigner(signer),
		core.WithMetricsRecorder(metrics),
		core.WithLogger(logger),
		core.WithLoggerProvider(provider),
	}
	if recorder != nil {
		serviceOpts = append(serviceOpts, core.WithDeliveryRecorder(recorder))
	}
	if options.repositoryFactory != nil {
		serviceOpts = append(serviceOpts, core.WithRepositoryFactory(options.repositoryFactory))
	}
	serviceOpts = append(serviceOpts, options.serviceOptions...)

	service, err := core.NewService(resolved, serviceOpts...)
	if err != nil {
		rt.closeQueue()
		return nil, err
	}
	facade, err := NewFacade(service)
	if err != nil {
		rt.closeQueue()
		return nil, err
	}
	rt.service = service
	rt.facade = facade
	return rt, nil
}

func (r *Runtime) Service() *core.Service {
	if r == nil {
		return nil
	}
	return r.service
}

func (r *Runtime) Facade() *Facade {
	if r == nil {
		return nil
	}
	return r.facade
}

func (r *Runtime) Worker() *worker.Worker {
	if r == nil {
		return nil
	}
	return r.worker
}

func (r *Runtime) Executor() *delivery.Executor {
	if r == nil {
		return nil
	}
	return r.executor
}

// Queue returns the in-process queue, or nil when an external queue was
// configured with WithQueue.
func (r *Runtime) Queue() *gojob.MemoryQueue {
	if r == nil {
		return nil
	}
	return r.memory
}

// Start runs the worker in the background until ctx ends or Stop is called.
func (r *Runtime) Start(ctx context.Context) error {
	if r == nil || r.worker == nil {
		return fmt.Errorf("hooks: runtime is not configured")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("hooks: runtime already started")
	}
	if err := r.worker.Start(ctx); err != nil {
		return err
	}
	r.running = true
	return nil
}

// Stop cancels the worker and waits for in-flight deliveries to settle.
// Deliveries cut short are handed back to the queue.
func (r *Runtime) Stop(ctx context.Context) error {
	if r == nil || r.worker == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return nil
	}
	r.running = false
	return r.worker.Stop(ctx)
}

// Close stops the worker and closes the in-process queue.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	err := r.Stop(context.Background())
	r.closeQueue()
	return err
}

func (r *Runtime) closeQueue() {
	if r.memory != nil {
		r.memory.Close()
	}
}
