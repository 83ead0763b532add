package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// ListenerStore is the persistence collaborator for listener records. Reads
// must reflect writes made through any other API; hooks never cache them.
type ListenerStore interface {
	FindByHook(ctx context.Context, hook string) ([]Listener, error)
	Create(ctx context.Context, in CreateListenerInput) (Listener, error)
}

type ListenerReader interface {
	Get(ctx context.Context, id string) (Listener, error)
}

// Executor runs deliveries inline or hands them to a queued worker.
type Executor interface {
	Apply(ctx context.Context, req DeliveryRequest) (DeliveryResult, error)
	ApplyAsync(ctx context.Context, req DeliveryRequest) (DeliveryHandle, error)
}

// DeliveryRunner drives one delivery request through its state machine.
type DeliveryRunner interface {
	Run(ctx context.Context, req DeliveryRequest) (DeliveryResult, error)
}

type DeliveryQueue interface {
	Submit(ctx context.Context, req DeliveryRequest) (DeliveryHandle, error)
}

type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, result DeliveryResult) error
}

type DeliveryObserver interface {
	OnTransition(ctx context.Context, transition DeliveryTransition)
}

type DeliveryObserverFunc func(ctx context.Context, transition DeliveryTransition)

func (f DeliveryObserverFunc) OnTransition(ctx context.Context, transition DeliveryTransition) {
	if f != nil {
		f(ctx, transition)
	}
}

type BackoffPolicy interface {
	// Delay returns the wait before retry number attempt (1 based).
	Delay(attempt int) time.Duration
}

type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Body                 []byte
	Metadata             map[string]any
	Timeout              time.Duration
	MaxResponseBodyBytes int64
	Idempotency          string
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

// PayloadPreparer turns the raw payload handed to Send into the payload that
// is matched and delivered.
type PayloadPreparer interface {
	PreparePayload(ctx context.Context, sender any, payload Payload) (Payload, error)
}

type PayloadPreparerFunc func(ctx context.Context, sender any, payload Payload) (Payload, error)

func (f PayloadPreparerFunc) PreparePayload(ctx context.Context, sender any, payload Payload) (Payload, error) {
	return f(ctx, sender, payload)
}

// ConfigSchema validates the free-form config a listener is created with.
type ConfigSchema interface {
	Fields() []string
	Validate(config map[string]any) error
}

// RequestSigner returns the headers that authenticate body for listener. A
// nil map leaves the request unsigned.
type RequestSigner interface {
	Sign(listener Listener, body []byte) (map[string]string, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type deliveryObserverKey struct{}

// ContextWithDeliveryObserver attaches an observer that is told about every
// delivery state transition run with ctx.
func ContextWithDeliveryObserver(ctx context.Context, observer DeliveryObserver) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, deliveryObserverKey{}, observer)
}

func DeliveryObserverFromContext(ctx context.Context) DeliveryObserver {
	if ctx == nil {
		return nil
	}
	observer, _ := ctx.Value(deliveryObserverKey{}).(DeliveryObserver)
	return observer
}
