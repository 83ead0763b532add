package query

import (
	"strings"
)

const (
	TypeListHooks     = "hooks.query.hooks.list"
	TypeDescribeHook  = "hooks.query.hook.describe"
	TypeListListeners = "hooks.query.listeners.list"
	TypeGetListener   = "hooks.query.listener.get"
)

type ListHooksMessage struct{}

func (ListHooksMessage) Type() string { return TypeListHooks }

type DescribeHookMessage struct {
	Hook string
}

func (DescribeHookMessage) Type() string { return TypeDescribeHook }

func (m DescribeHookMessage) Validate() error {
	if strings.TrimSpace(m.Hook) == "" {
		return invalidField("hook", "hook name is required")
	}
	return nil
}

type ListListenersMessage struct {
	Hook string
}

func (ListListenersMessage) Type() string { return TypeListListeners }

func (m ListListenersMessage) Validate() error {
	if strings.TrimSpace(m.Hook) == "" {
		return invalidField("hook", "hook name is required")
	}
	return nil
}

type GetListenerMessage struct {
	ListenerID string
}

func (GetListenerMessage) Type() string { return TypeGetListener }

func (m GetListenerMessage) Validate() error {
	if strings.TrimSpace(m.ListenerID) == "" {
		return invalidField("listener_id", "listener id is required")
	}
	return nil
}
