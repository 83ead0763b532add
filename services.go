package hooks

import (
	"github.com/goliatone/go-hooks/core"
	"github.com/goliatone/go-hooks/match"
)

type Config = core.Config

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type Hook = core.Hook
type HookOption = core.HookOption
type HookRegistry = core.HookRegistry
type DispatchPolicy = core.DispatchPolicy
type Payload = core.Payload
type Listener = core.Listener
type DeliveryResult = core.DeliveryResult
type DeliveryState = core.DeliveryState

type SendRequest = core.SendRequest

type CreateListenerRequest = core.CreateListenerRequest

type Mapping = match.Mapping

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorMapper       = core.WithErrorMapper
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithHookRegistry      = core.WithHookRegistry
	WithListenerStore     = core.WithServiceListenerStore
	WithExecutor          = core.WithServiceExecutor
	WithDeliveryRecorder  = core.WithDeliveryRecorder
	WithRepositoryFactory = core.WithRepositoryFactory
)

var (
	WithProvidesArgs    = core.WithProvidesArgs
	WithLabel           = core.WithLabel
	WithPolicy          = core.WithPolicy
	WithTimeout         = core.WithTimeout
	WithAsync           = core.WithAsync
	WithRetry           = core.WithRetry
	WithMaxRetries      = core.WithMaxRetries
	WithFailSilently    = core.WithFailSilently
	WithConfigSchema    = core.WithConfigSchema
	WithPayloadPreparer = core.WithPayloadPreparer
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// NewService builds a bare service. Hooks built by it can only dispatch
// when an executor is supplied; Setup wires the full delivery runtime.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}
