package core

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

const metricPrefix = "hooks."

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

var _ MetricsRecorder = NopMetricsRecorder{}

// telemetry is the logger and metrics pair shared by the Service and the
// hooks it builds.
type telemetry struct {
	logger  Logger
	metrics MetricsRecorder
}

func (t telemetry) observe(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
) {
	operation = normalizeOperation(operation)
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "failure"
	}

	contextFields := cloneFields(fields)
	contextFields["event_type"] = operation
	contextFields["status"] = status
	contextFields["duration_ms"] = time.Since(startedAt).Milliseconds()
	if err != nil {
		contextFields["error"] = err.Error()
	}

	tags := map[string]string{
		"operation": operation,
		"status":    status,
	}
	for _, key := range []string{"hook", "dispatch"} {
		if value := strings.TrimSpace(fmt.Sprint(contextFields[key])); value != "" && value != "<nil>" {
			tags[key] = value
		}
	}

	t.counter(ctx, metricPrefix+operation+".total", 1, tags)
	t.histogram(ctx, metricPrefix+operation+".duration_ms", float64(time.Since(startedAt).Milliseconds()), tags)

	if err != nil {
		t.log(ctx, "error", operation+" failed", contextFields)
		return
	}
	t.log(ctx, "info", operation+" succeeded", contextFields)
}

func (t telemetry) log(ctx context.Context, level string, message string, fields map[string]any) {
	if t.logger == nil {
		return
	}
	logger := t.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		logger.Error(message, args...)
	case "warn":
		logger.Warn(message, args...)
	case "debug":
		logger.Debug(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (t telemetry) counter(ctx context.Context, name string, value int64, tags map[string]string) {
	if t.metrics == nil {
		return
	}
	t.metrics.IncCounter(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func (t telemetry) histogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if t.metrics == nil {
		return
	}
	t.metrics.ObserveHistogram(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func cloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return map[string]any{}
	}
	return maps.Clone(fields)
}

func cloneTags(tags map[string]string) map[string]string {
	if tags == nil {
		return map[string]string{}
	}
	return maps.Clone(tags)
}

// flattenFields turns fields into sorted key/value logger args.
func flattenFields(fields map[string]any) []any {
	args := make([]any, 0, len(fields)*2)
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		args = append(args, key, fields[key])
	}
	return args
}

var operationReplacer = strings.NewReplacer(" ", "_", "-", "_", ".", "_")

func normalizeOperation(operation string) string {
	return operationReplacer.Replace(strings.TrimSpace(strings.ToLower(operation)))
}
