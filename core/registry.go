package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// HookRegistry maps hook names to hooks for the lifetime of a process.
// Hooks are registered while the application is wired and looked up at
// runtime; the registry is dropped with the Service that owns it.
type HookRegistry struct {
	mu    sync.RWMutex
	hooks map[string]*Hook
}

func NewHookRegistry() *HookRegistry {
	return &HookRegistry{hooks: make(map[string]*Hook)}
}

func (r *HookRegistry) Register(hook *Hook) error {
	if hook == nil {
		return newHookError("core: hook is nil", TextCodeBadInput)
	}
	name := strings.TrimSpace(hook.Name())
	if name == "" {
		return newHookError("core: hook name is required", TextCodeBadInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.hooks[name]; exists {
		return DuplicateHookError(name)
	}
	r.hooks[name] = hook
	return nil
}

// Unregister removes a hook given its name or the *Hook itself.
func (r *HookRegistry) Unregister(nameOrHook any) error {
	var name string
	switch typed := nameOrHook.(type) {
	case string:
		name = strings.TrimSpace(typed)
	case *Hook:
		if typed == nil {
			return newHookError("core: hook is nil", TextCodeBadInput)
		}
		name = typed.Name()
	default:
		return newHookError(fmt.Sprintf("core: cannot unregister %T", nameOrHook), TextCodeBadInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.hooks[name]; !exists {
		return HookNotFoundError(name)
	}
	delete(r.hooks, name)
	return nil
}

func (r *HookRegistry) Lookup(name string) (*Hook, error) {
	name = strings.TrimSpace(name)
	r.mu.RLock()
	hook, ok := r.hooks[name]
	r.mu.RUnlock()
	if !ok {
		return nil, HookNotFoundError(name)
	}
	return hook, nil
}

// All returns a copy of the registered hooks keyed by name.
func (r *HookRegistry) All() map[string]*Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*Hook, len(r.hooks))
	for name, hook := range r.hooks {
		out[name] = hook
	}
	return out
}

func (r *HookRegistry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.hooks))
	for name := range r.hooks {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Choices lists hooks sorted by name for operator selection.
func (r *HookRegistry) Choices() []HookChoice {
	names := r.Names()
	choices := make([]HookChoice, 0, len(names))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range names {
		hook, ok := r.hooks[name]
		if !ok {
			continue
		}
		choices = append(choices, HookChoice{Name: name, Label: hook.Label()})
	}
	return choices
}

func (r *HookRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}
