package match

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

const patternMatchTimeout = time.Second

// Predicate decides whether a single payload value satisfies a filter rule.
// DeepMatch only depends on this capability, so new comparison operators can
// be added without touching the matcher.
type Predicate interface {
	Matches(candidate any) (bool, error)
}

// Any matches every present value.
type Any struct{}

func (Any) Matches(any) (bool, error) { return true, nil }

func (Any) String() string { return "Any()" }

// Exact matches values equal to Value. Strings never equal numbers and
// booleans never equal numbers; numeric values compare across Go number types.
type Exact struct {
	Value any
}

func (p Exact) Matches(candidate any) (bool, error) {
	return valuesEqual(p.Value, candidate), nil
}

func (p Exact) String() string { return fmt.Sprintf("Exact(%#v)", p.Value) }

type Prefix struct {
	Value string
}

func (p Prefix) Matches(candidate any) (bool, error) {
	text, ok := textValue(candidate)
	if !ok {
		return false, typeMismatchError("prefix", candidate)
	}
	return strings.HasPrefix(text, p.Value), nil
}

func (p Prefix) String() string { return fmt.Sprintf("Prefix(%q)", p.Value) }

type Suffix struct {
	Value string
}

func (p Suffix) Matches(candidate any) (bool, error) {
	text, ok := textValue(candidate)
	if !ok {
		return false, typeMismatchError("suffix", candidate)
	}
	return strings.HasSuffix(text, p.Value), nil
}

func (p Suffix) String() string { return fmt.Sprintf("Suffix(%q)", p.Value) }

type Contains struct {
	Value string
}

func (p Contains) Matches(candidate any) (bool, error) {
	text, ok := textValue(candidate)
	if !ok {
		return false, typeMismatchError("contains", candidate)
	}
	return strings.Contains(text, p.Value), nil
}

func (p Contains) String() string { return fmt.Sprintf("Contains(%q)", p.Value) }

// Pattern searches the candidate for a regular expression. The expression is
// compiled once by NewPattern and the value is immutable afterwards.
type Pattern struct {
	source string
	re     *regexp2.Regexp
}

func NewPattern(expr string) (Pattern, error) {
	re, err := regexp2.Compile(expr, regexp2.None)
	if err != nil {
		return Pattern{}, invalidPatternError(expr, err)
	}
	re.MatchTimeout = patternMatchTimeout
	return Pattern{source: expr, re: re}, nil
}

// MustPattern is NewPattern for expressions known at compile time.
func MustPattern(expr string) Pattern {
	p, err := NewPattern(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) Source() string { return p.source }

func (p Pattern) Matches(candidate any) (bool, error) {
	if p.re == nil {
		return false, invalidPatternError(p.source, nil)
	}
	text, ok := textValue(candidate)
	if !ok {
		return false, typeMismatchError("pattern", candidate)
	}
	found, err := p.re.MatchString(text)
	if err != nil {
		return false, fmt.Errorf("match: pattern %q evaluation failed: %w", p.source, err)
	}
	return found, nil
}

func (p Pattern) String() string { return fmt.Sprintf("Pattern(%q)", p.source) }

var (
	_ Predicate = Any{}
	_ Predicate = Exact{}
	_ Predicate = Prefix{}
	_ Predicate = Suffix{}
	_ Predicate = Contains{}
	_ Predicate = Pattern{}
)
