package hooks

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-hooks/core"
)

// HookDefinition describes a hook contributed by a pack. A non nil Model
// builds a model hook whose fields are projected from that struct.
type HookDefinition struct {
	Name    string
	Model   any
	Options []core.HookOption
}

// HookPack groups the hooks a downstream module wants registered.
type HookPack struct {
	Name  string
	Hooks []HookDefinition
}

type CommandQueryBundleFactory func(service CommandQueryService) (any, error)

// HookBuilder is implemented by *core.Service.
type HookBuilder interface {
	NewHook(name string, opts ...core.HookOption) (*core.Hook, error)
	NewModelHook(name string, model any, opts ...core.HookOption) (*core.Hook, error)
	Register(hook *core.Hook) error
}

type ExtensionHooks struct {
	mu sync.RWMutex

	hookPacks map[string]HookPack
	bundles   map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		hookPacks: map[string]HookPack{},
		bundles:   map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterHookPack(pack HookPack) error {
	if h == nil {
		return fmt.Errorf("hooks: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("hooks: hook pack name is required")
	}
	if len(pack.Hooks) == 0 {
		return fmt.Errorf("hooks: hook pack %q has no hooks", name)
	}
	for _, def := range pack.Hooks {
		if strings.TrimSpace(def.Name) == "" && def.Model == nil {
			return fmt.Errorf("hooks: hook pack %q contains a hook without name or model", name)
		}
	}

	normalized := HookPack{
		Name:  name,
		Hooks: append([]HookDefinition(nil), pack.Hooks...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.hookPacks[name]; exists {
		return fmt.Errorf("hooks: hook pack %q already registered", name)
	}
	h.hookPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(
	name string,
	factory CommandQueryBundleFactory,
) error {
	if h == nil {
		return fmt.Errorf("hooks: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("hooks: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("hooks: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("hooks: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

// ApplyHookPacks builds and registers every pack hook in pack name order.
// It stops at the first failure; hooks registered before it stay registered.
func (h *ExtensionHooks) ApplyHookPacks(builder HookBuilder) error {
	if h == nil {
		return nil
	}
	if builder == nil {
		return fmt.Errorf("hooks: hook builder is required")
	}

	for _, pack := range h.HookPacks() {
		for _, def := range pack.Hooks {
			var (
				hook *core.Hook
				err  error
			)
			if def.Model != nil {
				hook, err = builder.NewModelHook(def.Name, def.Model, def.Options...)
			} else {
				hook, err = builder.NewHook(def.Name, def.Options...)
			}
			if err != nil {
				return fmt.Errorf("hooks: hook pack %q: %w", pack.Name, err)
			}
			if err := builder.Register(hook); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *ExtensionHooks) BuildCommandQueryBundles(
	service CommandQueryService,
) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if service == nil {
		return nil, fmt.Errorf("hooks: command/query service is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](service)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) HookPacks() []HookPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.hookPacks))
	for name := range h.hookPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]HookPack, 0, len(names))
	for _, name := range names {
		pack := h.hookPacks[name]
		out = append(out, HookPack{
			Name:  pack.Name,
			Hooks: append([]HookDefinition(nil), pack.Hooks...),
		})
	}
	return out
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var _ HookBuilder = (*core.Service)(nil)
