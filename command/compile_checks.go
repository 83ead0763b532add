package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-hooks/core"
)

var (
	_ gocmd.Commander[SendEventMessage]       = (*SendEventCommand)(nil)
	_ gocmd.Commander[CreateListenerMessage]  = (*CreateListenerCommand)(nil)
	_ gocmd.Commander[ReconfigureHookMessage] = (*ReconfigureHookCommand)(nil)
	_ MutatingService                         = (*core.Service)(nil)
)
