package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// StoreProvider is implemented by repository factories that can supply the
// persistence collaborators.
type StoreProvider interface {
	ListenerStore() ListenerStore
}

type RecorderProvider interface {
	DeliveryRecorder() DeliveryRecorder
}

type serviceBuilder struct {
	runtimeConfig     Config
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

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithHookRegistry(registry *HookRegistry) Option {
	return func(b *serviceBuilder) {
		b.registry = registry
	}
}

func WithServiceListenerStore(store ListenerStore) Option {
	return func(b *serviceBuilder) {
		b.listenerStore = store
	}
}

func WithServiceExecutor(executor Executor) Option {
	return func(b *serviceBuilder) {
		b.executor = executor
	}
}

// WithServiceSigner signs the deliveries of every hook the service builds.
func WithServiceSigner(signer RequestSigner) Option {
	return func(b *serviceBuilder) {
		b.signer = signer
	}
}

func WithDeliveryRecorder(recorder DeliveryRecorder) Option {
	return func(b *serviceBuilder) {
		b.deliveryRecorder = recorder
	}
}

// WithRepositoryFactory accepts a factory implementing StoreProvider and,
// optionally, RecorderProvider.
func WithRepositoryFactory(factory any) Option {
	return func(b *serviceBuilder) {
		b.repositoryFactory = factory
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("hooks", nil, nil)
	return serviceBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		registry:        NewHookRegistry(),
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return hookErrorMapper(err)
}

// StaticConfigLoader serves a fixed raw config map.
type StaticConfigLoader struct {
	Values map[string]any
}

func (l StaticConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	return copyAnyMap(l.Values), nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg.WithExplicit(rawKeys(raw, "")...), nil
}

// rawKeys lists the dotted leaf keys present in raw.
func rawKeys(raw map[string]any, prefix string) []string {
	var keys []string
	for key, value := range raw {
		path := strings.ToLower(strings.TrimSpace(key))
		if prefix != "" {
			path = prefix + "." + path
		}
		if nested, ok := value.(map[string]any); ok {
			keys = append(keys, rawKeys(nested, path)...)
			continue
		}
		keys = append(keys, path)
	}
	return keys
}

// GoOptionsResolver merges defaults < loaded config < runtime config. Zero
// values in the upper layers leave the lower layer value in place unless the
// layer lists the key in Config.Explicit.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	set := func(key string, nonZero bool) bool {
		return includeZero || nonZero || cfg.isExplicit(key)
	}

	layer := map[string]any{}
	if set("service_name", strings.TrimSpace(cfg.ServiceName) != "") {
		layer["service_name"] = cfg.ServiceName
	}

	hooks := map[string]any{}
	if set("hooks.timeout", cfg.Hooks.Timeout > 0) {
		hooks["timeout"] = cfg.Hooks.Timeout
	}
	if set("hooks.dispatch", strings.TrimSpace(cfg.Hooks.Dispatch) != "") {
		hooks["dispatch"] = strings.ToLower(strings.TrimSpace(cfg.Hooks.Dispatch))
	}
	if set("hooks.retry", cfg.Hooks.Retry) {
		hooks["retry"] = cfg.Hooks.Retry
	}
	if set("hooks.max_retries", cfg.Hooks.MaxRetries > 0) {
		hooks["max_retries"] = cfg.Hooks.MaxRetries
	}
	if set("hooks.fail_silently", cfg.Hooks.FailSilently) {
		hooks["fail_silently"] = cfg.Hooks.FailSilently
	}
	if len(hooks) > 0 {
		layer["hooks"] = hooks
	}

	delivery := map[string]any{}
	if set("delivery.user_agent", strings.TrimSpace(cfg.Delivery.UserAgent) != "") {
		delivery["user_agent"] = cfg.Delivery.UserAgent
	}
	if set("delivery.max_response_body_bytes", cfg.Delivery.MaxResponseBodyBytes > 0) {
		delivery["max_response_body_bytes"] = cfg.Delivery.MaxResponseBodyBytes
	}
	if set("delivery.backoff_initial", cfg.Delivery.BackoffInitial > 0) {
		delivery["backoff_initial"] = cfg.Delivery.BackoffInitial
	}
	if set("delivery.backoff_max", cfg.Delivery.BackoffMax > 0) {
		delivery["backoff_max"] = cfg.Delivery.BackoffMax
	}
	if set("delivery.signature_header", strings.TrimSpace(cfg.Delivery.SignatureHeader) != "") {
		delivery["signature_header"] = strings.TrimSpace(cfg.Delivery.SignatureHeader)
	}
	if len(delivery) > 0 {
		layer["delivery"] = delivery
	}

	worker := map[string]any{}
	if set("worker.concurrency", cfg.Worker.Concurrency > 0) {
		worker["concurrency"] = cfg.Worker.Concurrency
	}
	if set("worker.poll_interval", cfg.Worker.PollInterval > 0) {
		worker["poll_interval"] = cfg.Worker.PollInterval
	}
	if set("worker.dead_letter", cfg.Worker.DeadLetter) {
		worker["dead_letter"] = cfg.Worker.DeadLetter
	}
	if len(worker) > 0 {
		layer["worker"] = worker
	}

	database := map[string]any{}
	if set("database.driver", strings.TrimSpace(cfg.Database.Driver) != "") {
		database["driver"] = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	}
	if set("database.dsn", strings.TrimSpace(cfg.Database.DSN) != "") {
		database["dsn"] = cfg.Database.DSN
	}
	if set("database.debug", cfg.Database.Debug) {
		database["debug"] = cfg.Database.Debug
	}
	if set("database.ping_timeout", cfg.Database.PingTimeout > 0) {
		database["ping_timeout"] = cfg.Database.PingTimeout
	}
	if set("database.auto_migrate", cfg.Database.AutoMigrate) {
		database["auto_migrate"] = cfg.Database.AutoMigrate
	}
	if len(database) > 0 {
		layer["database"] = database
	}
	return layer
}
