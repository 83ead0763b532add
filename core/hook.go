package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-hooks/match"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

// Shape is the closed set of ways a hook prepares its payload.
type Shape string

const (
	ShapeGeneric Shape = "generic"
	ShapeModel   Shape = "model"
)

// Hook binds an event name to its declared fields, dispatch policy and
// listener set.
type Hook struct {
	name         string
	label        string
	shape        Shape
	providesArgs []string

	mu     sync.RWMutex
	policy DispatchPolicy

	schema    ConfigSchema
	preparer  PayloadPreparer
	listeners ListenerStore
	executor  Executor
	signer    RequestSigner
	telemetry telemetry
}

// NewHook builds a generic hook. When name is empty it is derived from the
// qualified type name of the payload preparer.
func NewHook(name string, opts ...HookOption) (*Hook, error) {
	builder := defaultHookBuilder()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}
	name = strings.TrimSpace(name)
	if name == "" && builder.preparer != nil {
		name = qualifiedTypeName(builder.preparer)
	}
	if name == "" {
		return nil, newHookError("core: hook name is required when no payload preparer type can name it", TextCodeBadInput)
	}
	return newHook(name, ShapeGeneric, builder)
}

func newHook(name string, shape Shape, builder hookBuilder) (*Hook, error) {
	if err := builder.policy.Validate(); err != nil {
		return nil, err
	}
	if builder.schema == nil {
		builder.schema = URLConfigSchema{}
	}
	if builder.metrics == nil {
		builder.metrics = NopMetricsRecorder{}
	}
	label := builder.label
	if label == "" {
		label = name
	}
	return &Hook{
		name:         name,
		label:        label,
		shape:        shape,
		providesArgs: append([]string(nil), builder.providesArgs...),
		policy:       builder.policy,
		schema:       builder.schema,
		preparer:     builder.preparer,
		listeners:    builder.listeners,
		executor:     builder.executor,
		signer:       builder.signer,
		telemetry:    telemetry{logger: glog.Ensure(builder.logger), metrics: builder.metrics},
	}, nil
}

func (h *Hook) Name() string { return h.name }

func (h *Hook) Label() string { return h.label }

func (h *Hook) Shape() Shape { return h.shape }

func (h *Hook) ProvidesArgs() []string {
	return append([]string(nil), h.providesArgs...)
}

func (h *Hook) ConfigSchema() ConfigSchema { return h.schema }

// Policy returns a snapshot of the current dispatch policy.
func (h *Hook) Policy() DispatchPolicy {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.policy
}

// Reconfigure replaces the dispatch policy. Sends already in progress keep
// the policy they started with.
func (h *Hook) Reconfigure(policy DispatchPolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	h.mu.Lock()
	h.policy = policy
	h.mu.Unlock()
	return nil
}

func (h *Hook) PreparePayload(ctx context.Context, sender any, payload Payload) (Payload, error) {
	if h.preparer == nil {
		return payload.Clone(), nil
	}
	prepared, err := h.preparer.PreparePayload(ctx, sender, payload.Clone())
	if err != nil {
		return nil, err
	}
	if prepared == nil {
		prepared = Payload{}
	}
	return prepared, nil
}

// GetListeners reads the hook's listeners from the store and keeps the ones
// whose match mapping accepts payload. A match error aborts the lookup.
func (h *Hook) GetListeners(ctx context.Context, payload Payload) ([]Listener, error) {
	if h.listeners == nil {
		return nil, dependencyError("core: listener store is required")
	}
	candidates, err := h.listeners.FindByHook(ctx, h.name)
	if err != nil {
		return nil, err
	}
	out := make([]Listener, 0, len(candidates))
	for _, listener := range candidates {
		if listener.Match.IsEmpty() {
			out = append(out, listener)
			continue
		}
		matched, matchErr := match.DeepMatch(listener.Match, payload)
		if matchErr != nil {
			return nil, annotateListenerError(matchErr, listener)
		}
		if matched {
			out = append(out, listener)
		}
	}
	return out, nil
}

// Send prepares payload, selects matching listeners and delivers to each of
// them under a snapshot of the hook policy.
//
// Synchronous sends attempt every listener and return all results together
// with one aggregate delivery error for the failures that were not
// suppressed. Asynchronous sends return pending results; only queue
// submission failures are reported.
func (h *Hook) Send(ctx context.Context, sender any, payload Payload) (results []DeliveryResult, err error) {
	startedAt := time.Now().UTC()
	policy := h.Policy()
	fields := map[string]any{
		"hook":     h.name,
		"dispatch": policy.Mode(),
	}
	defer func() {
		fields["listeners"] = len(results)
		h.telemetry.observe(ctx, startedAt, "send", err, fields)
	}()

	if h.executor == nil {
		return nil, dependencyError("core: delivery executor is required")
	}

	prepared, err := h.PreparePayload(ctx, sender, payload)
	if err != nil {
		return nil, err
	}
	listeners, err := h.GetListeners(ctx, prepared)
	if err != nil {
		return nil, err
	}
	if len(listeners) == 0 {
		return []DeliveryResult{}, nil
	}
	body, err := json.Marshal(prepared)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "core: payload is not serializable").
			WithCode(http.StatusBadRequest).
			WithTextCode(TextCodeBadInput)
	}

	results = make([]DeliveryResult, 0, len(listeners))
	var failures []error
	for _, listener := range listeners {
		req, reqErr := h.deliveryRequest(listener, body, policy)
		if reqErr != nil {
			failures = append(failures, reqErr)
			results = append(results, unsentResult(req, reqErr))
			continue
		}
		if policy.Async {
			result, submitErr := h.submit(ctx, req)
			if submitErr != nil {
				failures = append(failures, submitErr)
			}
			results = append(results, result)
			continue
		}
		result, applyErr := h.executor.Apply(ctx, req)
		if applyErr != nil {
			failures = append(failures, applyErr)
		}
		results = append(results, result)
	}

	if len(failures) == 0 {
		return results, nil
	}
	if policy.Async {
		return results, deliverySubmitError(h.name, failures)
	}
	return results, AggregateDeliveryError(h.name, len(listeners), failures)
}

func (h *Hook) submit(ctx context.Context, req DeliveryRequest) (DeliveryResult, error) {
	result := DeliveryResult{
		RequestID:  req.ID,
		Hook:       req.Hook,
		ListenerID: req.ListenerID,
		URL:        req.URL,
		State:      DeliveryPending,
		History:    []DeliveryState{DeliveryPending},
		StartedAt:  req.CreatedAt,
	}
	handle, err := h.executor.ApplyAsync(ctx, req)
	if err != nil {
		result.Err = err
		return result, err
	}
	result.Handle = &handle
	return result, nil
}

func (h *Hook) deliveryRequest(listener Listener, body []byte, policy DispatchPolicy) (DeliveryRequest, error) {
	req := DeliveryRequest{
		ID:         uuid.NewString(),
		Hook:       h.name,
		ListenerID: listener.ID,
		URL:        listener.URL,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"X-Hook-Name":  h.name,
		},
		Policy:    policy,
		CreatedAt: time.Now().UTC(),
	}
	if h.signer == nil {
		return req, nil
	}
	signed, err := h.signer.Sign(listener, body)
	if err != nil {
		return req, annotateListenerError(err, listener)
	}
	for key, value := range signed {
		req.Headers[key] = value
	}
	return req, nil
}

func unsentResult(req DeliveryRequest, err error) DeliveryResult {
	return DeliveryResult{
		RequestID:  req.ID,
		Hook:       req.Hook,
		ListenerID: req.ListenerID,
		URL:        req.URL,
		State:      DeliveryFailed,
		History:    []DeliveryState{DeliveryPending, DeliveryFailed},
		Err:        err,
		StartedAt:  req.CreatedAt,
		FinishedAt: req.CreatedAt,
	}
}

// AddListener validates config against the hook schema and creates a
// listener for url.
func (h *Hook) AddListener(ctx context.Context, url string, mapping match.Mapping, config map[string]any) (listener Listener, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"hook": h.name, "url": url}
	defer func() {
		fields["listener_id"] = listener.ID
		h.telemetry.observe(ctx, startedAt, "create_listener", err, fields)
	}()

	if h.listeners == nil {
		return Listener{}, dependencyError("core: listener store is required")
	}
	validated := copyAnyMap(config)
	validated[ListenerURLField] = strings.TrimSpace(url)
	if err = h.schema.Validate(validated); err != nil {
		return Listener{}, err
	}
	stored := copyAnyMap(config)
	delete(stored, ListenerURLField)
	if mapping == nil {
		mapping = match.Mapping{}
	}
	return h.listeners.Create(ctx, CreateListenerInput{
		Hook:   h.name,
		URL:    strings.TrimSpace(url),
		Match:  mapping,
		Config: stored,
	})
}

// AddListenerFromConfig creates a listener from an operator submitted config
// that carries the url among its values.
func (h *Hook) AddListenerFromConfig(ctx context.Context, config map[string]any, mapping match.Mapping) (Listener, error) {
	url, _ := config[ListenerURLField].(string)
	return h.AddListener(ctx, url, mapping, config)
}

// Listener starts a listener builder seeded with config.
func (h *Hook) Listener(config map[string]any) *ListenerBuilder {
	return &ListenerBuilder{hook: h, config: copyAnyMap(config), mapping: match.Mapping{}}
}

// ApplyConditions turns "<field>_cond"/"<field>_query" values for the hook's
// declared fields into a match mapping.
func (h *Hook) ApplyConditions(values map[string]string) (match.Mapping, error) {
	return match.MappingFromValues(h.providesArgs, values)
}

func (h *Hook) ConditionFields() []match.ConditionField {
	return match.ConditionFields(h.providesArgs)
}

type ListenerBuilder struct {
	hook    *Hook
	config  map[string]any
	mapping match.Mapping
}

// Match adds field constraints to the listener being built.
func (b *ListenerBuilder) Match(fields match.Mapping) *ListenerBuilder {
	for key, value := range fields {
		b.mapping[key] = value
	}
	return b
}

func (b *ListenerBuilder) Save(ctx context.Context) (Listener, error) {
	return b.hook.AddListenerFromConfig(ctx, b.config, b.mapping)
}

func annotateListenerError(err error, listener Listener) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		richErr.WithMetadata(map[string]any{"listener_id": listener.ID, "hook": listener.Hook})
		return richErr
	}
	return fmt.Errorf("core: listener %s match failed: %w", listener.ID, err)
}

func qualifiedTypeName(value any) string {
	t := reflect.TypeOf(value)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() == reflect.Func || t.Name() == "" {
		return ""
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}
