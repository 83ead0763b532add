package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-hooks/core"
)

var (
	_ gocmd.Querier[ListHooksMessage, []core.HookChoice]       = (*ListHooksQuery)(nil)
	_ gocmd.Querier[DescribeHookMessage, core.HookDescription] = (*DescribeHookQuery)(nil)
	_ gocmd.Querier[ListListenersMessage, []core.Listener]     = (*ListListenersQuery)(nil)
	_ gocmd.Querier[GetListenerMessage, core.Listener]         = (*GetListenerQuery)(nil)
	_ HookReader                                               = (*core.Service)(nil)
	_ ListenerReader                                           = (*core.Service)(nil)
)
