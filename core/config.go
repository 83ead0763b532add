package core

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type HooksConfig struct {
	Timeout      time.Duration `koanf:"timeout" mapstructure:"timeout"`
	Dispatch     string        `koanf:"dispatch" mapstructure:"dispatch"`
	Retry        bool          `koanf:"retry" mapstructure:"retry"`
	MaxRetries   int           `koanf:"max_retries" mapstructure:"max_retries"`
	FailSilently bool          `koanf:"fail_silently" mapstructure:"fail_silently"`
}

type DeliveryConfig struct {
	UserAgent            string        `koanf:"user_agent" mapstructure:"user_agent"`
	MaxResponseBodyBytes int64         `koanf:"max_response_body_bytes" mapstructure:"max_response_body_bytes"`
	BackoffInitial       time.Duration `koanf:"backoff_initial" mapstructure:"backoff_initial"`
	BackoffMax           time.Duration `koanf:"backoff_max" mapstructure:"backoff_max"`
	SignatureHeader      string        `koanf:"signature_header" mapstructure:"signature_header"`
}

type WorkerConfig struct {
	Concurrency  int           `koanf:"concurrency" mapstructure:"concurrency"`
	PollInterval time.Duration `koanf:"poll_interval" mapstructure:"poll_interval"`
	DeadLetter   bool          `koanf:"dead_letter" mapstructure:"dead_letter"`
}

// DatabaseConfig selects the SQL backend for listeners and delivery
// records. An empty driver keeps everything in memory.
type DatabaseConfig struct {
	Driver      string        `koanf:"driver" mapstructure:"driver"`
	DSN         string        `koanf:"dsn" mapstructure:"dsn"`
	Debug       bool          `koanf:"debug" mapstructure:"debug"`
	PingTimeout time.Duration `koanf:"ping_timeout" mapstructure:"ping_timeout"`
	AutoMigrate bool          `koanf:"auto_migrate" mapstructure:"auto_migrate"`
}

type Config struct {
	ServiceName string         `koanf:"service_name" mapstructure:"service_name"`
	Hooks       HooksConfig    `koanf:"hooks" mapstructure:"hooks"`
	Delivery    DeliveryConfig `koanf:"delivery" mapstructure:"delivery"`
	Worker      WorkerConfig   `koanf:"worker" mapstructure:"worker"`
	Database    DatabaseConfig `koanf:"database" mapstructure:"database"`

	// Explicit lists dotted keys, such as "worker.dead_letter", whose value
	// overrides lower layers even when it is the zero value.
	Explicit []string `koanf:"-" mapstructure:"-" json:"-"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "hooks",
		Hooks: HooksConfig{
			Timeout:    DefaultHookTimeout,
			Dispatch:   DispatchAsync,
			MaxRetries: DefaultHookMaxRetries,
		},
		Delivery: DeliveryConfig{
			UserAgent:            "go-hooks",
			MaxResponseBodyBytes: 1 << 20,
			BackoffInitial:       500 * time.Millisecond,
			BackoffMax:           30 * time.Second,
			SignatureHeader:      "X-Hook-Signature",
		},
		Worker: WorkerConfig{
			Concurrency:  4,
			PollInterval: 250 * time.Millisecond,
			DeadLetter:   true,
		},
		Database: DatabaseConfig{
			PingTimeout: 5 * time.Second,
			AutoMigrate: true,
		},
	}
}

// WithExplicit marks keys as set so a false or zero value still wins when
// the config is layered over another one.
func (c Config) WithExplicit(keys ...string) Config {
	out := c
	out.Explicit = slices.Clone(c.Explicit)
	for _, key := range keys {
		key = strings.ToLower(strings.TrimSpace(key))
		if key != "" && !slices.Contains(out.Explicit, key) {
			out.Explicit = append(out.Explicit, key)
		}
	}
	return out
}

func (c Config) isExplicit(key string) bool {
	return slices.Contains(c.Explicit, key)
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	switch strings.ToLower(strings.TrimSpace(c.Hooks.Dispatch)) {
	case DispatchAsync, DispatchSync:
	default:
		return fmt.Errorf("core: hooks.dispatch must be %q or %q", DispatchAsync, DispatchSync)
	}
	if c.Hooks.Timeout <= 0 {
		return fmt.Errorf("core: hooks.timeout must be positive")
	}
	if c.Hooks.MaxRetries < 0 {
		return fmt.Errorf("core: hooks.max_retries must be >= 0")
	}
	if c.Delivery.BackoffInitial < 0 || c.Delivery.BackoffMax < 0 {
		return fmt.Errorf("core: delivery backoff must be >= 0")
	}
	if c.Worker.Concurrency < 0 {
		return fmt.Errorf("core: worker.concurrency must be >= 0")
	}
	if strings.TrimSpace(c.Database.Driver) != "" && strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("core: database.dsn is required when database.driver is set")
	}
	return nil
}

// DispatchPolicy is the default policy handed to hooks built by a Service.
func (c Config) DispatchPolicy() DispatchPolicy {
	return DispatchPolicy{
		Timeout:      c.Hooks.Timeout,
		Async:        !strings.EqualFold(strings.TrimSpace(c.Hooks.Dispatch), DispatchSync),
		Retry:        c.Hooks.Retry,
		MaxRetries:   c.Hooks.MaxRetries,
		FailSilently: c.Hooks.FailSilently,
	}
}
