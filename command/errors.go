package command

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-hooks/core"
)

// missingService reports a handler built without the service it delegates to.
func missingService(name string) error {
	return goerrors.New("command: "+name+" service is required", goerrors.CategoryInternal).
		WithCode(http.StatusServiceUnavailable).
		WithTextCode(core.TextCodeDependencyUnavailable)
}

func invalidField(field string, message string) error {
	return goerrors.NewValidation("command: validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.TextCodeBadInput)
}

func invalidPolicy(err error) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "command: dispatch policy is invalid").
		WithCode(http.StatusBadRequest).
		WithTextCode(core.TextCodeBadInput)
}
