package query

import (
	"context"

	"github.com/goliatone/go-hooks/core"
)

type HookReader interface {
	ListHooks() []core.HookChoice
	DescribeHook(name string) (core.HookDescription, error)
}

type ListenerReader interface {
	ListListeners(ctx context.Context, hook string) ([]core.Listener, error)
	GetListener(ctx context.Context, id string) (core.Listener, error)
}

type ListHooksQuery struct {
	reader HookReader
}

func NewListHooksQuery(reader HookReader) *ListHooksQuery {
	return &ListHooksQuery{reader: reader}
}

func (q *ListHooksQuery) Query(_ context.Context, _ ListHooksMessage) ([]core.HookChoice, error) {
	if q == nil || q.reader == nil {
		return nil, missingReader("hook")
	}
	return q.reader.ListHooks(), nil
}

type DescribeHookQuery struct {
	reader HookReader
}

func NewDescribeHookQuery(reader HookReader) *DescribeHookQuery {
	return &DescribeHookQuery{reader: reader}
}

func (q *DescribeHookQuery) Query(_ context.Context, msg DescribeHookMessage) (core.HookDescription, error) {
	if q == nil || q.reader == nil {
		return core.HookDescription{}, missingReader("hook")
	}
	return q.reader.DescribeHook(msg.Hook)
}

type ListListenersQuery struct {
	reader ListenerReader
}

func NewListListenersQuery(reader ListenerReader) *ListListenersQuery {
	return &ListListenersQuery{reader: reader}
}

func (q *ListListenersQuery) Query(ctx context.Context, msg ListListenersMessage) ([]core.Listener, error) {
	if q == nil || q.reader == nil {
		return nil, missingReader("listener")
	}
	return q.reader.ListListeners(ctx, msg.Hook)
}

type GetListenerQuery struct {
	reader ListenerReader
}

func NewGetListenerQuery(reader ListenerReader) *GetListenerQuery {
	return &GetListenerQuery{reader: reader}
}

func (q *GetListenerQuery) Query(ctx context.Context, msg GetListenerMessage) (core.Listener, error) {
	if q == nil || q.reader == nil {
		return core.Listener{}, missingReader("listener")
	}
	return q.reader.GetListener(ctx, msg.ListenerID)
}
