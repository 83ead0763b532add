package core

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-hooks/match"
	glog "github.com/goliatone/go-logger/glog"
)

// Service owns the hook registry for one process and builds hooks wired to
// the configured listener store and delivery executor.
type Service struct {
	config            Config
	telemetry         telemetry
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorMapper       ErrorMapper
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	registry          *HookRegistry
	listenerStore     ListenerStore
	executor          Executor
	signer            RequestSigner
	deliveryRecorder  DeliveryRecorder
	repositoryFactory any
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorMapper       ErrorMapper
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	Registry          *HookRegistry
	ListenerStore     ListenerStore
	Executor          Executor
	Signer            RequestSigner
	DeliveryRecorder  DeliveryRecorder
	RepositoryFactory any
}

type SendRequest struct {
	Hook    string
	Sender  any
	Payload Payload
}

// CreateListenerRequest is an operator submission: the hook config values
// (url included) plus "<field>_cond"/"<field>_query" condition values.
// Match entries are merged over the mapping built from Conditions.
type CreateListenerRequest struct {
	Hook       string
	Config     map[string]any
	Conditions map[string]string
	Match      match.Mapping
}

type HookDescription struct {
	Name             string
	Label            string
	Shape            Shape
	ProvidesArgs     []string
	Policy           DispatchPolicy
	ConfigFields     []string
	ConditionFields  []match.ConditionField
	ConditionChoices []match.ConditionChoice
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("hooks", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("hooks"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.registry == nil {
		builder.registry = NewHookRegistry()
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.repositoryFactory != nil {
		if stores, ok := builder.repositoryFactory.(StoreProvider); ok && builder.listenerStore == nil {
			builder.listenerStore = stores.ListenerStore()
		}
		if recorders, ok := builder.repositoryFactory.(RecorderProvider); ok && builder.deliveryRecorder == nil {
			builder.deliveryRecorder = recorders.DeliveryRecorder()
		}
	}
	if builder.listenerStore == nil {
		builder.listenerStore = NewMemoryListenerStore()
	}

	return &Service{
		config:            finalConfig,
		telemetry:         telemetry{logger: logger, metrics: builder.metricsRecorder},
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorMapper:       builder.errorMapper,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		registry:          builder.registry,
		listenerStore:     builder.listenerStore,
		executor:          builder.executor,
		signer:            builder.signer,
		deliveryRecorder:  builder.deliveryRecorder,
		repositoryFactory: builder.repositoryFactory,
	}, nil
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Registry() *HookRegistry {
	if s == nil {
		return nil
	}
	return s.registry
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorMapper:       s.errorMapper,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		Registry:          s.registry,
		ListenerStore:     s.listenerStore,
		Executor:          s.executor,
		Signer:            s.signer,
		DeliveryRecorder:  s.deliveryRecorder,
		RepositoryFactory: s.repositoryFactory,
	}
}

// NewHook builds a generic hook wired to the service collaborators and the
// configured default policy. Options given here win over those defaults.
// The hook is not registered.
func (s *Service) NewHook(name string, opts ...HookOption) (*Hook, error) {
	hook, err := NewHook(name, append(s.hookDefaults(), opts...)...)
	return hook, s.mapError(err)
}

func (s *Service) NewModelHook(name string, model any, opts ...HookOption) (*Hook, error) {
	hook, err := NewModelHook(name, model, append(s.hookDefaults(), opts...)...)
	return hook, s.mapError(err)
}

// RegisterHook builds a generic hook and registers it.
func (s *Service) RegisterHook(name string, opts ...HookOption) (*Hook, error) {
	hook, err := s.NewHook(name, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Register(hook); err != nil {
		return nil, err
	}
	return hook, nil
}

func (s *Service) Register(hook *Hook) error {
	if s == nil || s.registry == nil {
		return dependencyError("core: hook registry is required")
	}
	return s.mapError(s.registry.Register(hook))
}

func (s *Service) Unregister(nameOrHook any) error {
	if s == nil || s.registry == nil {
		return dependencyError("core: hook registry is required")
	}
	return s.mapError(s.registry.Unregister(nameOrHook))
}

func (s *Service) Lookup(name string) (*Hook, error) {
	if s == nil || s.registry == nil {
		return nil, dependencyError("core: hook registry is required")
	}
	hook, err := s.registry.Lookup(name)
	return hook, s.mapError(err)
}

// Send delivers payload through the registered hook named req.Hook.
func (s *Service) Send(ctx context.Context, req SendRequest) ([]DeliveryResult, error) {
	hook, err := s.Lookup(req.Hook)
	if err != nil {
		return nil, err
	}
	results, err := hook.Send(ctx, req.Sender, req.Payload)
	return results, s.mapError(err)
}

// CreateListener creates a listener from an operator submission.
func (s *Service) CreateListener(ctx context.Context, req CreateListenerRequest) (Listener, error) {
	hook, err := s.Lookup(req.Hook)
	if err != nil {
		return Listener{}, err
	}
	mapping, err := hook.ApplyConditions(req.Conditions)
	if err != nil {
		return Listener{}, s.mapError(err)
	}
	for key, value := range req.Match {
		mapping[key] = value
	}
	listener, err := hook.AddListenerFromConfig(ctx, req.Config, mapping)
	return listener, s.mapError(err)
}

// ReconfigureHook replaces the dispatch policy of a registered hook.
func (s *Service) ReconfigureHook(name string, policy DispatchPolicy) error {
	hook, err := s.Lookup(name)
	if err != nil {
		return err
	}
	return s.mapError(hook.Reconfigure(policy))
}

func (s *Service) ListHooks() []HookChoice {
	if s == nil || s.registry == nil {
		return []HookChoice{}
	}
	return s.registry.Choices()
}

func (s *Service) DescribeHook(name string) (HookDescription, error) {
	hook, err := s.Lookup(name)
	if err != nil {
		return HookDescription{}, err
	}
	return DescribeHook(hook), nil
}

func DescribeHook(hook *Hook) HookDescription {
	var configFields []string
	if schema := hook.ConfigSchema(); schema != nil {
		configFields = schema.Fields()
	}
	return HookDescription{
		Name:             hook.Name(),
		Label:            hook.Label(),
		Shape:            hook.Shape(),
		ProvidesArgs:     hook.ProvidesArgs(),
		Policy:           hook.Policy(),
		ConfigFields:     configFields,
		ConditionFields:  hook.ConditionFields(),
		ConditionChoices: match.ConditionChoices(),
	}
}

// ListListeners returns every listener stored for a registered hook,
// regardless of match.
func (s *Service) ListListeners(ctx context.Context, hookName string) (listeners []Listener, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"hook": strings.TrimSpace(hookName)}
	defer func() {
		fields["listeners"] = len(listeners)
		s.telemetry.observe(ctx, startedAt, "list_listeners", err, fields)
	}()

	hook, err := s.Lookup(hookName)
	if err != nil {
		return nil, err
	}
	listeners, err = s.listenerStore.FindByHook(ctx, hook.Name())
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	return listeners, nil
}

func (s *Service) GetListener(ctx context.Context, id string) (Listener, error) {
	reader, ok := s.listenerStore.(ListenerReader)
	if !ok {
		return Listener{}, dependencyError("core: listener store does not support lookups by id")
	}
	listener, err := reader.Get(ctx, strings.TrimSpace(id))
	return listener, s.mapError(err)
}

func (s *Service) hookDefaults() []HookOption {
	return []HookOption{
		WithPolicy(s.config.DispatchPolicy()),
		WithListenerStore(s.listenerStore),
		WithExecutor(s.executor),
		WithSigner(s.signer),
		WithHookLogger(s.logger),
		WithHookMetrics(s.metricsRecorder),
	}
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
