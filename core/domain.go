package core

import (
	"strings"
	"time"

	"github.com/goliatone/go-hooks/match"
)

const (
	DefaultHookTimeout    = 4 * time.Second
	DefaultHookMaxRetries = 3
)

// Payload is the data carried by one event occurrence.
type Payload map[string]any

func (p Payload) Clone() Payload {
	if p == nil {
		return Payload{}
	}
	out := make(Payload, len(p))
	for key, value := range p {
		out[key] = value
	}
	return out
}

type Listener struct {
	ID        string
	Hook      string
	URL       string
	Match     match.Mapping
	Config    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DispatchPolicy is captured from a hook when a send starts. Later changes to
// the hook do not affect deliveries already built from a snapshot.
type DispatchPolicy struct {
	Timeout      time.Duration `json:"timeout"`
	Async        bool          `json:"async"`
	Retry        bool          `json:"retry"`
	MaxRetries   int           `json:"max_retries"`
	FailSilently bool          `json:"fail_silently"`
}

func DefaultDispatchPolicy() DispatchPolicy {
	return DispatchPolicy{
		Timeout:    DefaultHookTimeout,
		Async:      true,
		MaxRetries: DefaultHookMaxRetries,
	}
}

func (p DispatchPolicy) Validate() error {
	if p.Timeout <= 0 {
		return newHookError("core: dispatch timeout must be positive", TextCodeBadInput)
	}
	if p.MaxRetries < 0 {
		return newHookError("core: max_retries must be >= 0", TextCodeBadInput)
	}
	return nil
}

// Attempts is the most delivery attempts the policy allows.
func (p DispatchPolicy) Attempts() int {
	if !p.Retry {
		return 1
	}
	return p.MaxRetries + 1
}

func (p DispatchPolicy) Mode() string {
	if p.Async {
		return DispatchAsync
	}
	return DispatchSync
}

const (
	DispatchAsync = "async"
	DispatchSync  = "sync"
)

type DeliveryState string

const (
	DeliveryPending    DeliveryState = "pending"
	DeliveryInFlight   DeliveryState = "in_flight"
	DeliveryDelivered  DeliveryState = "delivered"
	DeliveryRetrying   DeliveryState = "retrying"
	DeliveryFailed     DeliveryState = "failed"
	DeliverySuppressed DeliveryState = "suppressed"
)

func (s DeliveryState) Terminal() bool {
	switch s {
	case DeliveryDelivered, DeliveryFailed, DeliverySuppressed:
		return true
	default:
		return false
	}
}

// DeliveryRequest is one unit of delivery work: a serialized payload bound for
// a single listener URL under a fixed policy.
type DeliveryRequest struct {
	ID         string
	Hook       string
	ListenerID string
	URL        string
	Body       []byte
	Headers    map[string]string
	Policy     DispatchPolicy
	CreatedAt  time.Time
}

func (r DeliveryRequest) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return newHookError("core: delivery request id is required", TextCodeBadInput)
	}
	if strings.TrimSpace(r.URL) == "" {
		return newHookError("core: delivery url is required", TextCodeBadInput)
	}
	return r.Policy.Validate()
}

// DeliveryHandle acknowledges an async submission. DispatchID is the queue's
// own id for the message when the backend reports one.
type DeliveryHandle struct {
	RequestID   string
	Queue       string
	DispatchID  string
	SubmittedAt time.Time
}

type DeliveryResult struct {
	RequestID  string
	Hook       string
	ListenerID string
	URL        string
	State      DeliveryState
	Attempts   int
	StatusCode int
	Err        error
	History    []DeliveryState
	Handle     *DeliveryHandle
	StartedAt  time.Time
	FinishedAt time.Time
}

// Failed reports whether the result is a surfaced delivery failure.
func (r DeliveryResult) Failed() bool {
	return r.State == DeliveryFailed
}

type DeliveryTransition struct {
	RequestID string
	From      DeliveryState
	To        DeliveryState
	Attempt   int
	Err       error
	At        time.Time
}

type HookChoice struct {
	Name  string
	Label string
}

type CreateListenerInput struct {
	Hook   string
	URL    string
	Match  match.Mapping
	Config map[string]any
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func copyStringMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
