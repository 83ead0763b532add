package match

import (
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidPattern       = "HOOKS_INVALID_PATTERN"
	TextCodeUnknownConditionKind = "HOOKS_UNKNOWN_CONDITION_KIND"
	TextCodeTypeMismatch         = "HOOKS_TYPE_MISMATCH"
	TextCodeInvalidMapping       = "HOOKS_BAD_INPUT"
)

func invalidPatternError(expr string, cause error) error {
	var err *goerrors.Error
	if cause == nil {
		err = goerrors.New(fmt.Sprintf("match: invalid pattern %q", expr), goerrors.CategoryBadInput)
	} else {
		err = goerrors.Wrap(cause, goerrors.CategoryBadInput, fmt.Sprintf("match: invalid pattern %q", expr))
	}
	err = err.WithCode(http.StatusBadRequest).WithTextCode(TextCodeInvalidPattern)
	err.WithMetadata(map[string]any{"pattern": expr})
	return err
}

func unknownConditionKindError(raw any) error {
	err := goerrors.New(fmt.Sprintf("match: unknown condition kind %v", raw), goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeUnknownConditionKind)
	err.WithMetadata(map[string]any{"condition_kind": fmt.Sprint(raw)})
	return err
}

func typeMismatchError(predicate string, candidate any) error {
	err := goerrors.New(
		fmt.Sprintf("match: %s requires a string candidate, got %T", predicate, candidate),
		goerrors.CategoryBadInput,
	).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeTypeMismatch)
	err.WithMetadata(map[string]any{"predicate": predicate, "candidate_type": fmt.Sprintf("%T", candidate)})
	return err
}

func invalidMappingError(message string, cause error) error {
	if cause == nil {
		return goerrors.New(message, goerrors.CategoryBadInput).
			WithCode(http.StatusBadRequest).
			WithTextCode(TextCodeInvalidMapping)
	}
	return goerrors.Wrap(cause, goerrors.CategoryBadInput, message).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeInvalidMapping)
}

// IsInvalidPattern reports whether err was raised for a pattern that does not compile.
func IsInvalidPattern(err error) bool {
	return hasTextCode(err, TextCodeInvalidPattern)
}

func IsUnknownConditionKind(err error) bool {
	return hasTextCode(err, TextCodeUnknownConditionKind)
}

func IsTypeMismatch(err error) bool {
	return hasTextCode(err, TextCodeTypeMismatch)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}
