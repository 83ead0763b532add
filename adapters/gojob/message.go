package gojob

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/goliatone/go-hooks/core"

	job "github.com/goliatone/go-job"
)

const (
	JobIDDelivery      = "hooks.delivery"
	ScriptPathDelivery = "hooks/delivery"
)

// deliveryParams is the flat parameter shape a delivery request takes inside
// a go-job execution message. It survives JSON backed queues, where numbers
// come back as float64 and the body as a string.
type deliveryParams struct {
	RequestID    string            `mapstructure:"request_id"`
	Hook         string            `mapstructure:"hook"`
	ListenerID   string            `mapstructure:"listener_id"`
	URL          string            `mapstructure:"url"`
	Body         string            `mapstructure:"body"`
	Headers      map[string]string `mapstructure:"headers"`
	TimeoutNS    int64             `mapstructure:"timeout_ns"`
	Async        bool              `mapstructure:"async"`
	Retry        bool              `mapstructure:"retry"`
	MaxRetries   int               `mapstructure:"max_retries"`
	FailSilently bool              `mapstructure:"fail_silently"`
	CreatedAt    string            `mapstructure:"created_at"`
}

// ToExecutionMessage maps a delivery request onto a go-job message keyed by
// the request id. A requeued message keeps its key, so deduplication stays
// off: go-job's tracker would otherwise drop the second hand-out.
func ToExecutionMessage(req core.DeliveryRequest) (*job.ExecutionMessage, error) {
	params := deliveryParams{
		RequestID:    strings.TrimSpace(req.ID),
		Hook:         req.Hook,
		ListenerID:   req.ListenerID,
		URL:          strings.TrimSpace(req.URL),
		Body:         string(req.Body),
		Headers:      req.Headers,
		TimeoutNS:    req.Policy.Timeout.Nanoseconds(),
		Async:        req.Policy.Async,
		Retry:        req.Policy.Retry,
		MaxRetries:   req.Policy.MaxRetries,
		FailSilently: req.Policy.FailSilently,
	}
	if !req.CreatedAt.IsZero() {
		params.CreatedAt = req.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	parameters := map[string]any{}
	if err := mapstructure.Decode(params, &parameters); err != nil {
		return nil, fmt.Errorf("gojob: encode delivery parameters: %w", err)
	}
	return &job.ExecutionMessage{
		JobID:          JobIDDelivery,
		ScriptPath:     ScriptPathDelivery,
		Parameters:     parameters,
		IdempotencyKey: params.RequestID,
		DedupPolicy:    job.DedupPolicyIgnore,
	}, nil
}

// FromExecutionMessage rebuilds the delivery request carried by msg.
func FromExecutionMessage(msg *job.ExecutionMessage) (core.DeliveryRequest, error) {
	if msg == nil {
		return core.DeliveryRequest{}, fmt.Errorf("gojob: execution message is required")
	}
	if strings.TrimSpace(msg.JobID) != JobIDDelivery {
		return core.DeliveryRequest{}, fmt.Errorf("gojob: unexpected job id %q", msg.JobID)
	}
	var params deliveryParams
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &params,
	})
	if err != nil {
		return core.DeliveryRequest{}, err
	}
	if err := decoder.Decode(msg.Parameters); err != nil {
		return core.DeliveryRequest{}, fmt.Errorf("gojob: decode delivery parameters: %w", err)
	}

	req := core.DeliveryRequest{
		ID:         params.RequestID,
		Hook:       params.Hook,
		ListenerID: params.ListenerID,
		URL:        params.URL,
		Body:       []byte(params.Body),
		Headers:    params.Headers,
		Policy: core.DispatchPolicy{
			Timeout:      time.Duration(params.TimeoutNS),
			Async:        params.Async,
			Retry:        params.Retry,
			MaxRetries:   params.MaxRetries,
			FailSilently: params.FailSilently,
		},
	}
	if req.ID == "" {
		req.ID = strings.TrimSpace(msg.IdempotencyKey)
	}
	if params.CreatedAt != "" {
		if createdAt, parseErr := time.Parse(time.RFC3339Nano, params.CreatedAt); parseErr == nil {
			req.CreatedAt = createdAt
		}
	}
	return req, nil
}
