package command

import (
	"strings"

	"github.com/goliatone/go-hooks/core"
	"github.com/goliatone/go-hooks/match"
)

const (
	TypeSendEvent       = "hooks.command.event.send"
	TypeCreateListener  = "hooks.command.listener.create"
	TypeReconfigureHook = "hooks.command.hook.reconfigure"
)

type SendEventMessage struct {
	Hook    string
	Sender  any
	Payload core.Payload
}

func (SendEventMessage) Type() string { return TypeSendEvent }

func (m SendEventMessage) Validate() error {
	if strings.TrimSpace(m.Hook) == "" {
		return invalidField("hook", "hook name is required")
	}
	return nil
}

// CreateListenerMessage carries an operator submission: config values with
// the listener url plus "<field>_cond"/"<field>_query" condition values.
type CreateListenerMessage struct {
	Hook       string
	Config     map[string]any
	Conditions map[string]string
	Match      match.Mapping
}

func (CreateListenerMessage) Type() string { return TypeCreateListener }

func (m CreateListenerMessage) Validate() error {
	if strings.TrimSpace(m.Hook) == "" {
		return invalidField("hook", "hook name is required")
	}
	url, _ := m.Config[core.ListenerURLField].(string)
	if strings.TrimSpace(url) == "" {
		return invalidField(core.ListenerURLField, "listener url is required")
	}
	return nil
}

type ReconfigureHookMessage struct {
	Hook   string
	Policy core.DispatchPolicy
}

func (ReconfigureHookMessage) Type() string { return TypeReconfigureHook }

func (m ReconfigureHookMessage) Validate() error {
	if strings.TrimSpace(m.Hook) == "" {
		return invalidField("hook", "hook name is required")
	}
	return invalidPolicy(m.Policy.Validate())
}
