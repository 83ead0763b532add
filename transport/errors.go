package transport

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-hooks/core"
)

// transportFailure builds the rich error for a failed delivery attempt. The
// HTTP code and text code follow from category; source is wrapped when set.
func transportFailure(source error, category goerrors.Category, message string, metadata map[string]any) error {
	var err *goerrors.Error
	if source != nil {
		err = goerrors.Wrap(source, category, message)
	} else {
		err = goerrors.New(message, category)
	}
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		err = err.WithCode(http.StatusBadRequest).WithTextCode(core.TextCodeBadInput)
	case goerrors.CategoryExternal:
		err = err.WithCode(http.StatusBadGateway).WithTextCode(core.TextCodeDeliveryTransport)
	default:
		err = err.WithCode(http.StatusInternalServerError).WithTextCode(core.TextCodeInternal)
	}
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}
