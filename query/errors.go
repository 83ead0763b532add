package query

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-hooks/core"
)

func missingReader(kind string) error {
	return goerrors.New("query: "+kind+" reader is required", goerrors.CategoryInternal).
		WithCode(http.StatusServiceUnavailable).
		WithTextCode(core.TextCodeDependencyUnavailable)
}

func invalidField(field string, message string) error {
	return goerrors.NewValidation("query: validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.TextCodeBadInput)
}
