package core

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-hooks/match"
	"github.com/google/uuid"
)

// MemoryListenerStore keeps listeners in process memory.
type MemoryListenerStore struct {
	mu        sync.RWMutex
	listeners map[string]Listener
	now       func() time.Time
}

func NewMemoryListenerStore() *MemoryListenerStore {
	return &MemoryListenerStore{
		listeners: make(map[string]Listener),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryListenerStore) Create(_ context.Context, in CreateListenerInput) (Listener, error) {
	hook := strings.TrimSpace(in.Hook)
	if hook == "" {
		return Listener{}, newHookError("core: listener hook is required", TextCodeBadInput)
	}
	url := strings.TrimSpace(in.URL)
	if url == "" {
		return Listener{}, newHookError("core: listener url is required", TextCodeBadInput)
	}
	mapping := in.Match.Clone()
	if mapping == nil {
		mapping = match.Mapping{}
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	listener := Listener{
		ID:        uuid.NewString(),
		Hook:      hook,
		URL:       url,
		Match:     mapping,
		Config:    cloneConfig(in.Config),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.listeners[listener.ID] = listener
	return listener.clone(), nil
}

func (s *MemoryListenerStore) FindByHook(_ context.Context, hook string) ([]Listener, error) {
	hook = strings.TrimSpace(hook)
	s.mu.RLock()
	out := make([]Listener, 0)
	for _, listener := range s.listeners {
		if listener.Hook == hook {
			out = append(out, listener.clone())
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryListenerStore) Get(_ context.Context, id string) (Listener, error) {
	s.mu.RLock()
	listener, ok := s.listeners[strings.TrimSpace(id)]
	s.mu.RUnlock()
	if !ok {
		return Listener{}, ListenerNotFoundError(id)
	}
	return listener.clone(), nil
}

func (s *MemoryListenerStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listeners[strings.TrimSpace(id)]; !ok {
		return ListenerNotFoundError(id)
	}
	delete(s.listeners, strings.TrimSpace(id))
	return nil
}

// clone detaches a stored listener from the caller's maps.
func (l Listener) clone() Listener {
	out := l
	out.Match = l.Match.Clone()
	out.Config = cloneConfig(l.Config)
	return out
}

func cloneConfig(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	return map[string]any(match.Mapping(in).Clone())
}
