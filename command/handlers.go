package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-hooks/core"
)

type MutatingService interface {
	Send(ctx context.Context, req core.SendRequest) ([]core.DeliveryResult, error)
	CreateListener(ctx context.Context, req core.CreateListenerRequest) (core.Listener, error)
	ReconfigureHook(name string, policy core.DispatchPolicy) error
}

type SendEventCommand struct {
	service MutatingService
}

func NewSendEventCommand(service MutatingService) *SendEventCommand {
	return &SendEventCommand{service: service}
}

// Execute sends the event and stores the delivery results, partial ones
// included, before returning the send error.
func (c *SendEventCommand) Execute(ctx context.Context, msg SendEventMessage) error {
	if c == nil || c.service == nil {
		return missingService("send")
	}
	out, err := c.service.Send(ctx, core.SendRequest{
		Hook:    msg.Hook,
		Sender:  msg.Sender,
		Payload: msg.Payload,
	})
	if out != nil {
		storeResult(ctx, out)
	}
	return err
}

type CreateListenerCommand struct {
	service MutatingService
}

func NewCreateListenerCommand(service MutatingService) *CreateListenerCommand {
	return &CreateListenerCommand{service: service}
}

func (c *CreateListenerCommand) Execute(ctx context.Context, msg CreateListenerMessage) error {
	if c == nil || c.service == nil {
		return missingService("listener")
	}
	out, err := c.service.CreateListener(ctx, core.CreateListenerRequest{
		Hook:       msg.Hook,
		Config:     msg.Config,
		Conditions: msg.Conditions,
		Match:      msg.Match,
	})
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ReconfigureHookCommand struct {
	service MutatingService
}

func NewReconfigureHookCommand(service MutatingService) *ReconfigureHookCommand {
	return &ReconfigureHookCommand{service: service}
}

func (c *ReconfigureHookCommand) Execute(_ context.Context, msg ReconfigureHookMessage) error {
	if c == nil || c.service == nil {
		return missingService("reconfigure")
	}
	return c.service.ReconfigureHook(msg.Hook, msg.Policy)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
