package core

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

const (
	modelInstanceKey = "instance"
	modelSignalKey   = "signal"
)

// NewModelHook builds a hook fired by changes to records of model's type.
// Unless WithProvidesArgs is given, the hook provides every exported field of
// the model except its primary key (a field named ID or tagged hook:"pk").
// When name is empty the model's qualified type name is used.
func NewModelHook(name string, model any, opts ...HookOption) (*Hook, error) {
	modelType := structType(model)
	if modelType == nil {
		return nil, newHookError(fmt.Sprintf("core: model hook requires a struct model, got %T", model), TextCodeBadInput)
	}
	builder := defaultHookBuilder()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}
	if !builder.providesSet {
		builder.providesArgs = modelFields(modelType)
	}
	builder.preparer = modelProjector{fields: append([]string(nil), builder.providesArgs...)}

	name = strings.TrimSpace(name)
	if name == "" {
		name = qualifiedTypeName(reflect.New(modelType).Elem().Interface())
	}
	return newHook(name, ShapeModel, builder)
}

// modelProjector copies the provided fields of the changed record into the
// payload. Keys passed explicitly in the payload win over projected values.
type modelProjector struct {
	fields []string
}

func (p modelProjector) PreparePayload(_ context.Context, sender any, payload Payload) (Payload, error) {
	explicit := payload.Clone()
	instance, ok := explicit[modelInstanceKey]
	if !ok {
		instance = sender
	}
	delete(explicit, modelInstanceKey)
	delete(explicit, modelSignalKey)

	out := Payload{}
	if instance != nil {
		values, err := projectModel(instance)
		if err != nil {
			return nil, err
		}
		for _, field := range p.fields {
			if value, exists := values[field]; exists {
				out[field] = value
			}
		}
	}
	for key, value := range explicit {
		out[key] = value
	}
	return out, nil
}

func projectModel(instance any) (map[string]any, error) {
	if values, ok := instance.(map[string]any); ok {
		return values, nil
	}
	if values, ok := instance.(Payload); ok {
		return values, nil
	}
	rv := reflect.ValueOf(instance)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return map[string]any{}, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, newHookError(fmt.Sprintf("core: model instance must be a struct, got %T", instance), TextCodeBadInput)
	}

	values := make(map[string]any, rv.NumField())
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		if name := jsonFieldName(field); name != "" {
			values[name] = rv.Field(i).Interface()
		}
	}
	return values, nil
}

func structType(model any) reflect.Type {
	t := reflect.TypeOf(model)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

func modelFields(t reflect.Type) []string {
	fields := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || isPrimaryKey(field) {
			continue
		}
		name := jsonFieldName(field)
		if name == "" {
			continue
		}
		fields = append(fields, name)
	}
	return fields
}

func isPrimaryKey(field reflect.StructField) bool {
	if field.Name == "ID" {
		return true
	}
	for _, part := range strings.Split(field.Tag.Get("hook"), ",") {
		if strings.TrimSpace(part) == "pk" {
			return true
		}
	}
	return false
}

func jsonFieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return field.Name
}
