package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type stubExecutor struct {
	mu        sync.Mutex
	applied   []DeliveryRequest
	submitted []DeliveryRequest
	failURLs  map[string]bool
	submitErr error
}

func (e *stubExecutor) Apply(_ context.Context, req DeliveryRequest) (DeliveryResult, error) {
	e.mu.Lock()
	e.applied = append(e.applied, req)
	e.mu.Unlock()
	result := DeliveryResult{
		RequestID:  req.ID,
		Hook:       req.Hook,
		ListenerID: req.ListenerID,
		URL:        req.URL,
		Attempts:   1,
	}
	if e.failURLs[req.URL] {
		result.State = DeliveryFailed
		result.Err = DeliveryTransportError(req.URL, 1, fmt.Errorf("connection refused"))
		return result, result.Err
	}
	result.State = DeliveryDelivered
	result.StatusCode = 200
	return result, nil
}

func (e *stubExecutor) ApplyAsync(_ context.Context, req DeliveryRequest) (DeliveryHandle, error) {
	if e.submitErr != nil {
		return DeliveryHandle{}, e.submitErr
	}
	e.mu.Lock()
	e.submitted = append(e.submitted, req)
	e.mu.Unlock()
	return DeliveryHandle{RequestID: req.ID, Queue: "test", SubmittedAt: time.Now().UTC()}, nil
}

func (e *stubExecutor) appliedURLs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	urls := make([]string, 0, len(e.applied))
	for _, req := range e.applied {
		urls = append(urls, req.URL)
	}
	return urls
}

type failingListenerStore struct {
	err error
}

func (s failingListenerStore) FindByHook(context.Context, string) ([]Listener, error) {
	return nil, s.err
}

func (s failingListenerStore) Create(context.Context, CreateListenerInput) (Listener, error) {
	return Listener{}, s.err
}

type recordingMetrics struct {
	mu       sync.Mutex
	counters map[string]int64
}

func (m *recordingMetrics) IncCounter(_ context.Context, name string, value int64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = map[string]int64{}
	}
	m.counters[name] += value
}

func (m *recordingMetrics) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func (m *recordingMetrics) count(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

func newTestHook(name string, store ListenerStore, executor Executor, opts ...HookOption) (*Hook, error) {
	base := []HookOption{WithListenerStore(store), WithExecutor(executor)}
	return NewHook(name, append(base, opts...)...)
}
