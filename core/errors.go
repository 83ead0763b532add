package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-hooks/match"
)

const (
	TextCodeBadInput              = "HOOKS_BAD_INPUT"
	TextCodeDuplicateHook         = "HOOKS_DUPLICATE_HOOK"
	TextCodeHookNotFound          = "HOOKS_HOOK_NOT_FOUND"
	TextCodeListenerNotFound      = "HOOKS_LISTENER_NOT_FOUND"
	TextCodeInvalidPattern        = match.TextCodeInvalidPattern
	TextCodeUnknownConditionKind  = match.TextCodeUnknownConditionKind
	TextCodeTypeMismatch          = match.TextCodeTypeMismatch
	TextCodeDeliveryTransport     = "HOOKS_DELIVERY_TRANSPORT"
	TextCodeDeliverySubmit        = "HOOKS_DELIVERY_SUBMIT"
	TextCodeInternal              = "HOOKS_INTERNAL_ERROR"
	TextCodeConfigValidation      = "HOOKS_CONFIG_INVALID"
	TextCodeDependencyUnavailable = "HOOKS_DEPENDENCY_UNAVAILABLE"
)

func newHookError(message string, textCode string) *goerrors.Error {
	category := categoryForTextCode(textCode)
	return goerrors.New(message, category).
		WithCode(httpStatus(category)).
		WithTextCode(textCode)
}

func DuplicateHookError(name string) error {
	err := newHookError(fmt.Sprintf("core: hook already registered: %s", name), TextCodeDuplicateHook)
	err.WithMetadata(map[string]any{"hook": name})
	return err
}

func HookNotFoundError(name string) error {
	err := newHookError(fmt.Sprintf("core: hook not found: %s", name), TextCodeHookNotFound)
	err.WithMetadata(map[string]any{"hook": name})
	return err
}

func ListenerNotFoundError(id string) error {
	err := newHookError(fmt.Sprintf("core: listener not found: %s", id), TextCodeListenerNotFound)
	err.WithMetadata(map[string]any{"listener_id": id})
	return err
}

// DeliveryTransportError reports a delivery that reached a failed terminal
// state after exhausting its attempts.
func DeliveryTransportError(url string, attempts int, cause error) error {
	message := fmt.Sprintf("core: delivery to %s failed after %d attempt(s)", url, attempts)
	var err *goerrors.Error
	if cause == nil {
		err = goerrors.New(message, goerrors.CategoryExternal)
	} else {
		err = goerrors.Wrap(cause, goerrors.CategoryExternal, message)
	}
	err = err.WithCode(http.StatusBadGateway).WithTextCode(TextCodeDeliveryTransport)
	err.WithMetadata(map[string]any{"url": url, "attempts": attempts})
	return err
}

// AggregateDeliveryError joins the failures of one synchronous send.
func AggregateDeliveryError(hook string, attempted int, failures []error) error {
	if len(failures) == 0 {
		return nil
	}
	err := goerrors.Wrap(
		errors.Join(failures...),
		goerrors.CategoryExternal,
		fmt.Sprintf("core: %d of %d deliveries for hook %s failed", len(failures), attempted, hook),
	).
		WithCode(http.StatusBadGateway).
		WithTextCode(TextCodeDeliveryTransport)
	err.WithMetadata(map[string]any{"hook": hook, "attempted": attempted, "failed": len(failures)})
	return err
}

func deliverySubmitError(hook string, failures []error) error {
	err := goerrors.Wrap(
		errors.Join(failures...),
		goerrors.CategoryInternal,
		fmt.Sprintf("core: %d deliveries for hook %s could not be queued", len(failures), hook),
	).
		WithCode(http.StatusServiceUnavailable).
		WithTextCode(TextCodeDeliverySubmit)
	err.WithMetadata(map[string]any{"hook": hook, "failed": len(failures)})
	return err
}

func dependencyError(message string) error {
	return newHookError(message, TextCodeDependencyUnavailable)
}

func IsDuplicateHook(err error) bool { return HasTextCode(err, TextCodeDuplicateHook) }

func IsHookNotFound(err error) bool { return HasTextCode(err, TextCodeHookNotFound) }

func IsListenerNotFound(err error) bool { return HasTextCode(err, TextCodeListenerNotFound) }

func IsDeliveryTransport(err error) bool { return HasTextCode(err, TextCodeDeliveryTransport) }

func IsDeliverySubmit(err error) bool { return HasTextCode(err, TextCodeDeliverySubmit) }

func IsConfigValidation(err error) bool { return HasTextCode(err, TextCodeConfigValidation) }

// HasTextCode reports whether err, or an error it wraps, carries textCode.
func HasTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCode
}

func hookErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "already registered"):
		return ensureErrorEnvelope(goerrors.New(err.Error(), goerrors.CategoryConflict).WithTextCode(TextCodeDuplicateHook))
	case strings.Contains(msg, "not found"):
		return ensureErrorEnvelope(goerrors.New(err.Error(), goerrors.CategoryNotFound).WithTextCode(TextCodeHookNotFound))
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "must be"):
		return ensureErrorEnvelope(goerrors.New(err.Error(), goerrors.CategoryBadInput).WithTextCode(TextCodeBadInput))
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = httpStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func categoryForTextCode(textCode string) goerrors.Category {
	switch textCode {
	case TextCodeBadInput, TextCodeInvalidPattern, TextCodeUnknownConditionKind, TextCodeTypeMismatch:
		return goerrors.CategoryBadInput
	case TextCodeConfigValidation:
		return goerrors.CategoryValidation
	case TextCodeDuplicateHook:
		return goerrors.CategoryConflict
	case TextCodeHookNotFound, TextCodeListenerNotFound:
		return goerrors.CategoryNotFound
	case TextCodeDeliveryTransport:
		return goerrors.CategoryExternal
	default:
		return goerrors.CategoryInternal
	}
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput:
		return TextCodeBadInput
	case goerrors.CategoryValidation:
		return TextCodeConfigValidation
	case goerrors.CategoryNotFound:
		return TextCodeHookNotFound
	case goerrors.CategoryConflict:
		return TextCodeDuplicateHook
	case goerrors.CategoryExternal:
		return TextCodeDeliveryTransport
	default:
		return TextCodeInternal
	}
}

func httpStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
