package prommetrics

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCountsWithSanitizedNamesAndLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewRecorder(registry)
	ctx := context.Background()

	recorder.IncCounter(ctx, "hooks.delivery.total", 1, map[string]string{"hook": "user.created", "state": "delivered"})
	recorder.IncCounter(ctx, "hooks.delivery.total", 2, map[string]string{"hook": "user.created", "state": "delivered"})
	recorder.IncCounter(ctx, "hooks.delivery.total", 1, map[string]string{"hook": "user.created", "state": "failed"})

	metric := recorder.counters["hooks_delivery_total"]
	if metric == nil {
		t.Fatalf("expected counter to be created under a sanitized name")
	}
	if got := testutil.ToFloat64(metric.vec.WithLabelValues("user.created", "delivered")); got != 3 {
		t.Fatalf("expected 3 delivered, got %v", got)
	}
	if got := testutil.ToFloat64(metric.vec.WithLabelValues("user.created", "failed")); got != 1 {
		t.Fatalf("expected 1 failed, got %v", got)
	}
	if count := testutil.CollectAndCount(registry, "hooks_delivery_total"); count != 2 {
		t.Fatalf("expected two label series, got %d", count)
	}
}

func TestRecorderHistogramExposition(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewRecorder(registry, WithNamespace("app"), WithBuckets([]float64{1, 5}))

	recorder.ObserveHistogram(context.Background(), "hooks.delivery.attempts", 3, map[string]string{"hook": "h"})

	expected := `
# HELP app_hooks_delivery_attempts Hooks histogram hooks.delivery.attempts
# TYPE app_hooks_delivery_attempts histogram
app_hooks_delivery_attempts_bucket{hook="h",le="1"} 0
app_hooks_delivery_attempts_bucket{hook="h",le="5"} 1
app_hooks_delivery_attempts_bucket{hook="h",le="+Inf"} 1
app_hooks_delivery_attempts_sum{hook="h"} 3
app_hooks_delivery_attempts_count{hook="h"} 1
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "app_hooks_delivery_attempts"); err != nil {
		t.Fatalf("unexpected exposition: %v", err)
	}
}

func TestRecorderFixesLabelsOnFirstUse(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewRecorder(registry)
	ctx := context.Background()

	recorder.IncCounter(ctx, "hooks.send.total", 1, map[string]string{"hook": "h", "dispatch": "sync"})
	recorder.IncCounter(ctx, "hooks.send.total", 1, map[string]string{"hook": "h", "extra": "dropped"})

	metric := recorder.counters["hooks_send_total"]
	if len(metric.labels) != 2 || metric.labels[0] != "dispatch" || metric.labels[1] != "hook" {
		t.Fatalf("unexpected label set %v", metric.labels)
	}
	if got := testutil.ToFloat64(metric.vec.WithLabelValues("", "h")); got != 1 {
		t.Fatalf("expected missing label recorded as empty, got %v", got)
	}
}

func TestRecorderSharesCollectorsAcrossRecorders(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := NewRecorder(registry)
	second := NewRecorder(registry)
	ctx := context.Background()

	first.IncCounter(ctx, "hooks.create_listener.total", 1, map[string]string{"hook": "h"})
	second.IncCounter(ctx, "hooks.create_listener.total", 1, map[string]string{"hook": "h"})

	if got := testutil.ToFloat64(first.counters["hooks_create_listener_total"].vec.WithLabelValues("h")); got != 2 {
		t.Fatalf("expected shared collector total 2, got %v", got)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"hooks.send.total": "hooks_send_total",
		"9lives":           "_9lives",
		" status-code ":    "status_code",
	}
	for in, want := range cases {
		if got := sanitizeName(in); got != want {
			t.Fatalf("sanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}
