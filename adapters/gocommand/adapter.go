package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	hookcommand "github.com/goliatone/go-hooks/command"
	"github.com/goliatone/go-hooks/core"
	hookquery "github.com/goliatone/go-hooks/query"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

// HookService is the surface the hooks commands and queries run against.
type HookService interface {
	hookcommand.MutatingService
	hookquery.HookReader
	hookquery.ListenerReader
}

// Bus exposes the hooks service through the go-command registry and
// dispatcher.
type Bus struct {
	registry      *command.Registry
	subscriptions []commanddispatcher.Subscription
}

func NewBus(registry *command.Registry) *Bus {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &Bus{registry: registry}
}

func (b *Bus) Registry() *command.Registry {
	if b == nil {
		return nil
	}
	return b.registry
}

// RegisterService registers and subscribes every hooks command and query
// backed by svc.
func (b *Bus) RegisterService(svc HookService, runnerOpts ...runner.Option) error {
	if b == nil || b.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	if svc == nil {
		return fmt.Errorf("gocommand: hook service is required")
	}
	steps := []func() error{
		func() error { return registerCommand(b, hookcommand.NewSendEventCommand(svc), runnerOpts...) },
		func() error { return registerCommand(b, hookcommand.NewCreateListenerCommand(svc), runnerOpts...) },
		func() error { return registerCommand(b, hookcommand.NewReconfigureHookCommand(svc), runnerOpts...) },
		func() error { return registerQuery(b, hookquery.NewListHooksQuery(svc), runnerOpts...) },
		func() error { return registerQuery(b, hookquery.NewDescribeHookQuery(svc), runnerOpts...) },
		func() error { return registerQuery(b, hookquery.NewListListenersQuery(svc), runnerOpts...) },
		func() error { return registerQuery(b, hookquery.NewGetListenerQuery(svc), runnerOpts...) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			b.Close()
			return err
		}
	}
	return nil
}

func (b *Bus) AddResolver(key string, resolver command.Resolver) error {
	if b == nil || b.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return b.registry.AddResolver(strings.TrimSpace(key), resolver)
}

// AddQueueResolver mirrors registered commands into a go-job queue registry
// so they can also run as queued jobs.
func (b *Bus) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return b.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (b *Bus) HasResolver(key string) bool {
	if b == nil || b.registry == nil {
		return false
	}
	return b.registry.HasResolver(strings.TrimSpace(key))
}

func (b *Bus) Initialize() error {
	if b == nil || b.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return b.registry.Initialize()
}

// Close drops every dispatcher subscription made by RegisterService.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	for _, subscription := range b.subscriptions {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
	b.subscriptions = nil
}

// SendEvent dispatches a send command and returns the delivery results the
// handler stored, even when the send failed.
func SendEvent(ctx context.Context, msg hookcommand.SendEventMessage) ([]core.DeliveryResult, error) {
	collector := command.NewResult[[]core.DeliveryResult]()
	err := commanddispatcher.Dispatch(command.ContextWithResult(ctx, collector), msg)
	results, _ := collector.Load()
	return results, err
}

func CreateListener(ctx context.Context, msg hookcommand.CreateListenerMessage) (core.Listener, error) {
	collector := command.NewResult[core.Listener]()
	if err := commanddispatcher.Dispatch(command.ContextWithResult(ctx, collector), msg); err != nil {
		return core.Listener{}, err
	}
	listener, _ := collector.Load()
	return listener, nil
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

func registerCommand[T any](b *Bus, cmd command.Commander[T], runnerOpts ...runner.Option) error {
	subscription := commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
	if err := b.registry.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return err
	}
	b.subscriptions = append(b.subscriptions, subscription)
	return nil
}

func registerQuery[T any, R any](b *Bus, qry command.Querier[T, R], runnerOpts ...runner.Option) error {
	subscription := commanddispatcher.SubscribeQuery(qry, runnerOpts...)
	if err := b.registry.RegisterCommand(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return err
	}
	b.subscriptions = append(b.subscriptions, subscription)
	return nil
}

var _ HookService = (*core.Service)(nil)
