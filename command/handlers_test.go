package command

import (
	"context"
	"errors"
	"testing"
	"time"

	gocmd "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-hooks/core"
	"github.com/goliatone/go-hooks/match"
)

func TestSendEventCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	called := false
	svc := stubMutatingService{
		sendFn: func(_ context.Context, req core.SendRequest) ([]core.DeliveryResult, error) {
			called = true
			if req.Hook != "user.created" {
				t.Fatalf("expected hook user.created, got %q", req.Hook)
			}
			if req.Payload["name"] != "Elaine" {
				t.Fatalf("expected payload to pass through, got %#v", req.Payload)
			}
			return []core.DeliveryResult{{RequestID: "req-1", State: core.DeliveryDelivered}}, nil
		},
	}

	cmd := NewSendEventCommand(svc)
	collector := gocmd.NewResult[[]core.DeliveryResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, SendEventMessage{Hook: "user.created", Payload: core.Payload{"name": "Elaine"}})
	if err != nil {
		t.Fatalf("execute send: %v", err)
	}
	if !called {
		t.Fatalf("expected send service invocation")
	}
	results, ok := collector.Load()
	if !ok || len(results) != 1 || results[0].RequestID != "req-1" {
		t.Fatalf("unexpected stored results: %#v", results)
	}
}

func TestSendEventCommand_StoresPartialResultsOnFailure(t *testing.T) {
	svc := stubMutatingService{
		sendFn: func(context.Context, core.SendRequest) ([]core.DeliveryResult, error) {
			return []core.DeliveryResult{
				{RequestID: "ok", State: core.DeliveryDelivered},
				{RequestID: "bad", State: core.DeliveryFailed},
			}, errors.New("one delivery failed")
		},
	}

	collector := gocmd.NewResult[[]core.DeliveryResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := NewSendEventCommand(svc).Execute(ctx, SendEventMessage{Hook: "user.created"}); err == nil {
		t.Fatalf("expected send error")
	}
	results, ok := collector.Load()
	if !ok || len(results) != 2 {
		t.Fatalf("expected partial results to be stored, got %#v", results)
	}
}

func TestCreateListenerCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	svc := stubMutatingService{
		createFn: func(_ context.Context, req core.CreateListenerRequest) (core.Listener, error) {
			if req.Hook != "user.created" {
				t.Fatalf("unexpected hook %q", req.Hook)
			}
			if req.Conditions["name_cond"] != "exact" {
				t.Fatalf("expected conditions to pass through, got %#v", req.Conditions)
			}
			return core.Listener{ID: "lst-1", Hook: req.Hook, URL: "https://example.com/hook"}, nil
		},
	}

	collector := gocmd.NewResult[core.Listener]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	err := NewCreateListenerCommand(svc).Execute(ctx, CreateListenerMessage{
		Hook:       "user.created",
		Config:     map[string]any{"url": "https://example.com/hook"},
		Conditions: map[string]string{"name_cond": "exact", "name_query": "Elaine"},
		Match:      match.Mapping{"active": true},
	})
	if err != nil {
		t.Fatalf("execute create listener: %v", err)
	}
	listener, ok := collector.Load()
	if !ok || listener.ID != "lst-1" {
		t.Fatalf("unexpected listener result: %#v", listener)
	}
}

func TestReconfigureHookCommand_ExecuteDelegates(t *testing.T) {
	var got core.DispatchPolicy
	svc := stubMutatingService{
		reconfigureFn: func(name string, policy core.DispatchPolicy) error {
			if name != "user.created" {
				t.Fatalf("unexpected hook %q", name)
			}
			got = policy
			return nil
		},
	}
	policy := core.DispatchPolicy{Timeout: time.Second, Retry: true, MaxRetries: 1}
	if err := NewReconfigureHookCommand(svc).Execute(context.Background(), ReconfigureHookMessage{
		Hook:   "user.created",
		Policy: policy,
	}); err != nil {
		t.Fatalf("execute reconfigure: %v", err)
	}
	if got != policy {
		t.Fatalf("expected policy %+v, got %+v", policy, got)
	}
}

func TestMessages_ValidateReturnsRichErrors(t *testing.T) {
	cases := map[string]error{
		"send":            SendEventMessage{}.Validate(),
		"create_no_hook":  CreateListenerMessage{}.Validate(),
		"create_no_url":   CreateListenerMessage{Hook: "user.created"}.Validate(),
		"reconfigure":     ReconfigureHookMessage{}.Validate(),
		"negative_policy": ReconfigureHookMessage{Hook: "h", Policy: core.DispatchPolicy{Timeout: time.Second, MaxRetries: -1}}.Validate(),
	}
	for name, err := range cases {
		if err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
		var rich *goerrors.Error
		if !goerrors.As(err, &rich) {
			t.Fatalf("%s: expected go-errors envelope, got %T", name, err)
		}
		if rich.TextCode != core.TextCodeBadInput {
			t.Fatalf("%s: expected %q text code, got %q", name, core.TextCodeBadInput, rich.TextCode)
		}
	}

	valid := CreateListenerMessage{Hook: "user.created", Config: map[string]any{"url": "https://example.com"}}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
}

func TestCommands_NilServiceReturnsRichError(t *testing.T) {
	var cmd *SendEventCommand
	err := cmd.Execute(context.Background(), SendEventMessage{})
	if err == nil {
		t.Fatalf("expected command dependency error")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
}

type stubMutatingService struct {
	sendFn        func(ctx context.Context, req core.SendRequest) ([]core.DeliveryResult, error)
	createFn      func(ctx context.Context, req core.CreateListenerRequest) (core.Listener, error)
	reconfigureFn func(name string, policy core.DispatchPolicy) error
}

func (s stubMutatingService) Send(ctx context.Context, req core.SendRequest) ([]core.DeliveryResult, error) {
	if s.sendFn == nil {
		return nil, nil
	}
	return s.sendFn(ctx, req)
}

func (s stubMutatingService) CreateListener(ctx context.Context, req core.CreateListenerRequest) (core.Listener, error) {
	if s.createFn == nil {
		return core.Listener{}, nil
	}
	return s.createFn(ctx, req)
}

func (s stubMutatingService) ReconfigureHook(name string, policy core.DispatchPolicy) error {
	if s.reconfigureFn == nil {
		return nil
	}
	return s.reconfigureFn(name, policy)
}
