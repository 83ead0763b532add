package core

import (
	"context"
	"testing"

	"github.com/goliatone/go-hooks/match"
)

func newTestService(t *testing.T, executor Executor, opts ...Option) *Service {
	t.Helper()
	base := []Option{WithServiceExecutor(executor)}
	svc, err := NewService(Config{}, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestServiceHooksInheritConfiguredPolicy(t *testing.T) {
	svc := newTestService(t, &stubExecutor{})
	svc2, err := NewService(Config{Hooks: HooksConfig{Dispatch: DispatchSync, Retry: true}}, WithServiceExecutor(&stubExecutor{}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	hook, err := svc.NewHook("a")
	if err != nil {
		t.Fatalf("new hook: %v", err)
	}
	if !hook.Policy().Async {
		t.Fatalf("expected async default")
	}

	hook, err = svc2.NewHook("b", WithMaxRetries(1))
	if err != nil {
		t.Fatalf("new hook: %v", err)
	}
	policy := hook.Policy()
	if policy.Async || !policy.Retry || policy.MaxRetries != 1 {
		t.Fatalf("unexpected policy %+v", policy)
	}
}

func TestServiceSendByName(t *testing.T) {
	ctx := context.Background()
	executor := &stubExecutor{}
	svc := newTestService(t, executor)
	hook, err := svc.RegisterHook("order.created", WithAsync(false), WithProvidesArgs("customer", "total"))
	if err != nil {
		t.Fatalf("register hook: %v", err)
	}
	if _, err := hook.AddListener(ctx, "https://a.example.com", match.Mapping{"total": match.Exact{Value: 100}}, nil); err != nil {
		t.Fatalf("add listener: %v", err)
	}

	results, err := svc.Send(ctx, SendRequest{Hook: "order.created", Payload: Payload{"customer": "joe", "total": 100}})
	if err != nil || len(results) != 1 {
		t.Fatalf("expected one delivery, got %d err=%v", len(results), err)
	}

	_, err = svc.Send(ctx, SendRequest{Hook: "missing"})
	if !IsHookNotFound(err) {
		t.Fatalf("expected hook not found, got %v", err)
	}
}

func TestServiceRegisterDuplicate(t *testing.T) {
	svc := newTestService(t, &stubExecutor{})
	if _, err := svc.RegisterHook("a"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.RegisterHook("a"); !IsDuplicateHook(err) {
		t.Fatalf("expected duplicate hook, got %v", err)
	}
	if err := svc.Unregister("a"); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if _, err := svc.Lookup("a"); !IsHookNotFound(err) {
		t.Fatalf("expected hook not found after unregister, got %v", err)
	}
}

func TestServiceCreateListenerFromSubmission(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, &stubExecutor{})
	if _, err := svc.RegisterHook("user.created", WithProvidesArgs("email", "name")); err != nil {
		t.Fatalf("register hook: %v", err)
	}

	listener, err := svc.CreateListener(ctx, CreateListenerRequest{
		Hook:   "user.created",
		Config: map[string]any{"url": "https://crm.example.com/hook"},
		Conditions: map[string]string{
			"email_cond":  "ends-with",
			"email_query": "@example.com",
			"name_cond":   "0",
		},
	})
	if err != nil {
		t.Fatalf("create listener: %v", err)
	}
	if listener.Hook != "user.created" || listener.URL != "https://crm.example.com/hook" {
		t.Fatalf("unexpected listener %+v", listener)
	}
	if len(listener.Match) != 1 {
		t.Fatalf("expected one constraint, got %v", listener.Match)
	}

	listeners, err := svc.ListListeners(ctx, "user.created")
	if err != nil || len(listeners) != 1 {
		t.Fatalf("expected one listener, got %d err=%v", len(listeners), err)
	}
	got, err := svc.GetListener(ctx, listener.ID)
	if err != nil || got.ID != listener.ID {
		t.Fatalf("get listener: %+v err=%v", got, err)
	}
	if _, err := svc.GetListener(ctx, "missing"); !IsListenerNotFound(err) {
		t.Fatalf("expected listener not found, got %v", err)
	}

	_, err = svc.CreateListener(ctx, CreateListenerRequest{
		Hook:       "user.created",
		Config:     map[string]any{"url": "https://crm.example.com/hook"},
		Conditions: map[string]string{"email_cond": "99"},
	})
	if !match.IsUnknownConditionKind(err) {
		t.Fatalf("expected unknown condition kind, got %v", err)
	}
}

func TestServiceDescribeAndListHooks(t *testing.T) {
	svc := newTestService(t, &stubExecutor{})
	_, _ = svc.RegisterHook("b.hook", WithProvidesArgs("x"))
	_, _ = svc.RegisterHook("a.hook", WithLabel("A hook"))

	choices := svc.ListHooks()
	if len(choices) != 2 || choices[0].Name != "a.hook" || choices[0].Label != "A hook" {
		t.Fatalf("unexpected choices %+v", choices)
	}

	desc, err := svc.DescribeHook("b.hook")
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if len(desc.ConditionFields) != 1 || desc.ConditionFields[0].QueryKey != "x_query" {
		t.Fatalf("unexpected condition fields %+v", desc.ConditionFields)
	}
	if len(desc.ConfigFields) != 1 || desc.ConfigFields[0] != "url" {
		t.Fatalf("unexpected config fields %+v", desc.ConfigFields)
	}
	if len(desc.ConditionChoices) != 6 {
		t.Fatalf("expected condition choices")
	}
}

type stubStoreFactory struct {
	store *MemoryListenerStore
}

func (f stubStoreFactory) ListenerStore() ListenerStore { return f.store }

func TestServiceUsesRepositoryFactoryStore(t *testing.T) {
	store := NewMemoryListenerStore()
	svc := newTestService(t, &stubExecutor{}, WithRepositoryFactory(stubStoreFactory{store: store}))
	if svc.Dependencies().ListenerStore != store {
		t.Fatalf("expected factory listener store to be used")
	}
}
