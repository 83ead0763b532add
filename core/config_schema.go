package core

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
)

const ListenerURLField = "url"

// URLConfigSchema is the default listener config schema: an absolute http(s)
// url plus any extra required keys.
type URLConfigSchema struct {
	Required []string
}

func (s URLConfigSchema) Fields() []string {
	fields := []string{ListenerURLField}
	for _, field := range s.Required {
		field = strings.TrimSpace(field)
		if field != "" && field != ListenerURLField {
			fields = append(fields, field)
		}
	}
	return fields
}

func (s URLConfigSchema) Validate(config map[string]any) error {
	keys := []*validation.KeyRules{
		validation.Key(ListenerURLField, listenerURLRules...),
	}
	for _, field := range s.Fields()[1:] {
		keys = append(keys, validation.Key(field, validation.Required))
	}
	if config == nil {
		config = map[string]any{}
	}
	err := validation.Validate(config, validation.Map(keys...).AllowExtraKeys())
	return configValidationError(err)
}

// listenerURLRules accept absolute http(s) request URLs only.
var listenerURLRules = []validation.Rule{
	validation.Required,
	is.RequestURL,
	validation.Match(httpSchemePattern).Error("must use http or https"),
}

var httpSchemePattern = regexp.MustCompile(`(?i)^\s*https?://[^/?#\s]+`)

func configValidationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "core: listener config is invalid").
			WithCode(http.StatusBadRequest).
			WithTextCode(TextCodeConfigValidation)
	}
	keys := make([]string, 0, len(fieldErrs))
	for key := range fieldErrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	fields := make([]goerrors.FieldError, 0, len(keys))
	for _, key := range keys {
		fields = append(fields, goerrors.FieldError{
			Field:   key,
			Message: fmt.Sprint(fieldErrs[key]),
		})
	}
	return goerrors.NewValidation("core: listener config is invalid", fields...).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeConfigValidation)
}

var _ ConfigSchema = URLConfigSchema{}
