package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGoOptionsResolverLayersRuntimeOverConfig(t *testing.T) {
	defaults := DefaultConfig()
	loaded := Config{
		ServiceName: "orders",
		Hooks:       HooksConfig{Timeout: 10 * time.Second, Retry: true},
	}
	runtime := Config{
		Hooks:  HooksConfig{Dispatch: "SYNC", MaxRetries: 5},
		Worker: WorkerConfig{Concurrency: 8},
	}

	resolved, err := GoOptionsResolver{}.Resolve(defaults, loaded, runtime)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ServiceName != "orders" {
		t.Fatalf("expected loaded service name, got %q", resolved.ServiceName)
	}
	if resolved.Hooks.Timeout != 10*time.Second {
		t.Fatalf("expected loaded timeout, got %s", resolved.Hooks.Timeout)
	}
	if resolved.Hooks.Dispatch != DispatchSync || resolved.Hooks.MaxRetries != 5 || !resolved.Hooks.Retry {
		t.Fatalf("unexpected hooks config %+v", resolved.Hooks)
	}
	if resolved.Worker.Concurrency != 8 || resolved.Worker.PollInterval != defaults.Worker.PollInterval {
		t.Fatalf("unexpected worker config %+v", resolved.Worker)
	}

	policy := resolved.DispatchPolicy()
	if policy.Async || !policy.Retry || policy.MaxRetries != 5 || policy.Timeout != 10*time.Second {
		t.Fatalf("unexpected policy %+v", policy)
	}
}

func TestGoOptionsResolverKeepsDefaultsForUnmarkedZeroValues(t *testing.T) {
	runtime := Config{
		Hooks:    HooksConfig{MaxRetries: 0},
		Worker:   WorkerConfig{DeadLetter: false},
		Database: DatabaseConfig{AutoMigrate: false},
	}
	resolved, err := GoOptionsResolver{}.Resolve(DefaultConfig(), Config{}, runtime)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !resolved.Worker.DeadLetter || !resolved.Database.AutoMigrate || resolved.Hooks.MaxRetries != DefaultHookMaxRetries {
		t.Fatalf("expected defaults for unmarked zero values, got worker=%+v database=%+v hooks=%+v",
			resolved.Worker, resolved.Database, resolved.Hooks)
	}
}

func TestGoOptionsResolverAppliesExplicitZeroValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		check func(Config) bool
	}{
		{"dead letter off", "worker.dead_letter", func(c Config) bool { return !c.Worker.DeadLetter }},
		{"auto migrate off", "database.auto_migrate", func(c Config) bool { return !c.Database.AutoMigrate }},
		{"no retries", "hooks.max_retries", func(c Config) bool { return c.Hooks.MaxRetries == 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			runtime := Config{}.WithExplicit(tc.key)
			resolved, err := GoOptionsResolver{}.Resolve(DefaultConfig(), Config{}, runtime)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if !tc.check(resolved) {
				t.Fatalf("expected %s to resolve to its zero value, got %+v", tc.key, resolved)
			}
		})
	}
}

func TestGoOptionsResolverRuntimeZeroOverridesLoadedValue(t *testing.T) {
	loaded := Config{Hooks: HooksConfig{Retry: true, MaxRetries: 7}}
	runtime := Config{}.WithExplicit("hooks.retry", " Hooks.Max_Retries ")

	resolved, err := GoOptionsResolver{}.Resolve(DefaultConfig(), loaded, runtime)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Hooks.Retry || resolved.Hooks.MaxRetries != 0 {
		t.Fatalf("expected runtime zero values to win, got %+v", resolved.Hooks)
	}
}

func TestCfgxConfigProviderMarksLoadedKeysExplicit(t *testing.T) {
	provider := NewCfgxConfigProvider(StaticConfigLoader{Values: map[string]any{
		"worker":   map[string]any{"dead_letter": false},
		"database": map[string]any{"auto_migrate": false},
		"hooks":    map[string]any{"max_retries": 0},
	}})
	loaded, err := provider.Load(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	resolved, err := GoOptionsResolver{}.Resolve(DefaultConfig(), loaded, Config{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Worker.DeadLetter || resolved.Database.AutoMigrate || resolved.Hooks.MaxRetries != 0 {
		t.Fatalf("expected loaded zero values to win, got worker=%+v database=%+v hooks=%+v",
			resolved.Worker, resolved.Database, resolved.Hooks)
	}
}

func TestGoOptionsResolverRejectsInvalidDispatch(t *testing.T) {
	_, err := GoOptionsResolver{}.Resolve(DefaultConfig(), Config{}, Config{Hooks: HooksConfig{Dispatch: "later"}})
	if err == nil {
		t.Fatalf("expected dispatch validation error")
	}
}

func TestCfgxConfigProviderLoadsRawValues(t *testing.T) {
	provider := NewCfgxConfigProvider(StaticConfigLoader{Values: map[string]any{
		"service_name": "billing",
		"hooks": map[string]any{
			"dispatch":    "sync",
			"max_retries": 1,
		},
	}})
	cfg, err := provider.Load(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServiceName != "billing" || cfg.Hooks.Dispatch != "sync" || cfg.Hooks.MaxRetries != 1 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Hooks.Timeout != DefaultHookTimeout {
		t.Fatalf("expected default timeout to survive, got %s", cfg.Hooks.Timeout)
	}
}

type failingLoader struct{}

func (failingLoader) LoadRaw(context.Context) (map[string]any, error) {
	return nil, errors.New("config source unavailable")
}

func TestNewServiceMapsConfigLoadErrors(t *testing.T) {
	_, err := NewService(Config{}, WithConfigProvider(NewCfgxConfigProvider(failingLoader{})))
	if err == nil {
		t.Fatalf("expected load error")
	}
}
