package hooks

import (
	"fmt"

	hookcommand "github.com/goliatone/go-hooks/command"
	hookquery "github.com/goliatone/go-hooks/query"
)

type CommandQueryService interface {
	hookcommand.MutatingService
	hookquery.HookReader
	hookquery.ListenerReader
}

type Commands struct {
	SendEvent       *hookcommand.SendEventCommand
	CreateListener  *hookcommand.CreateListenerCommand
	ReconfigureHook *hookcommand.ReconfigureHookCommand
}

type Queries struct {
	ListHooks     *hookquery.ListHooksQuery
	DescribeHook  *hookquery.DescribeHookQuery
	ListListeners *hookquery.ListListenersQuery
	GetListener   *hookquery.GetListenerQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	listenerReader hookquery.ListenerReader
}

// WithListenerReader serves the listener queries from reader instead of the
// service, e.g. a read replica backed store.
func WithListenerReader(reader hookquery.ListenerReader) FacadeOption {
	return func(options *facadeOptions) {
		options.listenerReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("hooks: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.listenerReader
	if reader == nil {
		reader = service
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		SendEvent:       hookcommand.NewSendEventCommand(service),
		CreateListener:  hookcommand.NewCreateListenerCommand(service),
		ReconfigureHook: hookcommand.NewReconfigureHookCommand(service),
	}
	facade.queries = Queries{
		ListHooks:     hookquery.NewListHooksQuery(service),
		DescribeHook:  hookquery.NewDescribeHookQuery(service),
		ListListeners: hookquery.NewListListenersQuery(reader),
		GetListener:   hookquery.NewGetListenerQuery(reader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
