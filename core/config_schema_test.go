package core

import (
	"errors"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestURLConfigSchemaListenerURL(t *testing.T) {
	schema := URLConfigSchema{}
	valid := []string{
		"https://a.example.com/hook",
		"http://127.0.0.1:8080/hooks?tenant=1",
		"HTTPS://a.example.com",
	}
	for _, raw := range valid {
		if err := schema.Validate(map[string]any{ListenerURLField: raw}); err != nil {
			t.Fatalf("url %q: expected valid, got %v", raw, err)
		}
	}

	invalid := []any{"", "ftp://example.com", "/relative", "https://", "not a url", 42}
	for _, raw := range invalid {
		err := schema.Validate(map[string]any{ListenerURLField: raw})
		if !IsConfigValidation(err) {
			t.Fatalf("url %v: expected config validation error, got %v", raw, err)
		}
	}
}

func TestURLConfigSchemaReportsSchemeAsFieldError(t *testing.T) {
	err := URLConfigSchema{Required: []string{"secret"}}.Validate(map[string]any{
		ListenerURLField: "ftp://example.com",
	})
	var typed *goerrors.Error
	if !errors.As(err, &typed) {
		t.Fatalf("expected go-errors error, got %T", err)
	}
	fields := map[string]string{}
	for _, field := range typed.ValidationErrors {
		fields[field.Field] = field.Message
	}
	if !strings.Contains(fields[ListenerURLField], "http or https") {
		t.Fatalf("expected scheme error on url, got %+v", fields)
	}
	if fields["secret"] == "" {
		t.Fatalf("expected missing secret error, got %+v", fields)
	}
}
