package core

import (
	"strings"
	"time"
)

type hookBuilder struct {
	label        string
	providesArgs []string
	providesSet  bool
	policy       DispatchPolicy
	schema       ConfigSchema
	preparer     PayloadPreparer
	listeners    ListenerStore
	executor     Executor
	signer       RequestSigner
	logger       Logger
	metrics      MetricsRecorder
}

type HookOption func(*hookBuilder)

func defaultHookBuilder() hookBuilder {
	return hookBuilder{
		policy:  DefaultDispatchPolicy(),
		schema:  URLConfigSchema{},
		metrics: NopMetricsRecorder{},
	}
}

// WithProvidesArgs declares the payload fields the hook produces. They drive
// the condition fields offered to operators and are not enforced on send.
func WithProvidesArgs(fields ...string) HookOption {
	return func(b *hookBuilder) {
		b.providesArgs = normalizeFieldList(fields)
		b.providesSet = true
	}
}

func WithLabel(label string) HookOption {
	return func(b *hookBuilder) {
		b.label = strings.TrimSpace(label)
	}
}

func WithPolicy(policy DispatchPolicy) HookOption {
	return func(b *hookBuilder) {
		b.policy = policy
	}
}

func WithTimeout(timeout time.Duration) HookOption {
	return func(b *hookBuilder) {
		b.policy.Timeout = timeout
	}
}

func WithAsync(async bool) HookOption {
	return func(b *hookBuilder) {
		b.policy.Async = async
	}
}

func WithRetry(retry bool) HookOption {
	return func(b *hookBuilder) {
		b.policy.Retry = retry
	}
}

func WithMaxRetries(maxRetries int) HookOption {
	return func(b *hookBuilder) {
		b.policy.MaxRetries = maxRetries
	}
}

func WithFailSilently(failSilently bool) HookOption {
	return func(b *hookBuilder) {
		b.policy.FailSilently = failSilently
	}
}

func WithConfigSchema(schema ConfigSchema) HookOption {
	return func(b *hookBuilder) {
		b.schema = schema
	}
}

func WithPayloadPreparer(preparer PayloadPreparer) HookOption {
	return func(b *hookBuilder) {
		b.preparer = preparer
	}
}

func WithListenerStore(store ListenerStore) HookOption {
	return func(b *hookBuilder) {
		b.listeners = store
	}
}

func WithExecutor(executor Executor) HookOption {
	return func(b *hookBuilder) {
		b.executor = executor
	}
}

func WithSigner(signer RequestSigner) HookOption {
	return func(b *hookBuilder) {
		b.signer = signer
	}
}

func WithHookLogger(logger Logger) HookOption {
	return func(b *hookBuilder) {
		b.logger = logger
	}
}

func WithHookMetrics(recorder MetricsRecorder) HookOption {
	return func(b *hookBuilder) {
		b.metrics = recorder
	}
}

func normalizeFieldList(fields []string) []string {
	out := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if _, ok := seen[field]; ok {
			continue
		}
		seen[field] = struct{}{}
		out = append(out, field)
	}
	return out
}
