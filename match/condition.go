package match

import (
	"strconv"
	"strings"
)

// ConditionKind is the comparison an operator selects for one payload field.
// Numeric values are stable and are what operator forms submit.
type ConditionKind int

const (
	ConditionPass ConditionKind = iota
	ConditionExact
	ConditionStartsWith
	ConditionEndsWith
	ConditionContains
	ConditionPattern
)

const (
	CondSuffix  = "_cond"
	QuerySuffix = "_query"
)

var conditionNames = map[ConditionKind]string{
	ConditionPass:       "pass",
	ConditionExact:      "exact",
	ConditionStartsWith: "starts-with",
	ConditionEndsWith:   "ends-with",
	ConditionContains:   "contains",
	ConditionPattern:    "pattern",
}

var conditionLabels = map[ConditionKind]string{
	ConditionPass:       "anything",
	ConditionExact:      "exact",
	ConditionStartsWith: "starts with",
	ConditionEndsWith:   "ends with",
	ConditionContains:   "contains",
	ConditionPattern:    "matches pattern",
}

var conditionAliases = map[string]ConditionKind{
	"pass":        ConditionPass,
	"any":         ConditionPass,
	"anything":    ConditionPass,
	"exact":       ConditionExact,
	"is":          ConditionExact,
	"starts-with": ConditionStartsWith,
	"starts_with": ConditionStartsWith,
	"startswith":  ConditionStartsWith,
	"prefix":      ConditionStartsWith,
	"ends-with":   ConditionEndsWith,
	"ends_with":   ConditionEndsWith,
	"endswith":    ConditionEndsWith,
	"suffix":      ConditionEndsWith,
	"contains":    ConditionContains,
	"pattern":     ConditionPattern,
	"like":        ConditionPattern,
	"regex":       ConditionPattern,
}

func (k ConditionKind) Valid() bool {
	_, ok := conditionNames[k]
	return ok
}

func (k ConditionKind) String() string {
	if name, ok := conditionNames[k]; ok {
		return name
	}
	return "unknown(" + strconv.Itoa(int(k)) + ")"
}

func (k ConditionKind) Label() string {
	return conditionLabels[k]
}

// ParseConditionKind accepts the numeric form ("2") or a kind name ("starts-with").
func ParseConditionKind(raw string) (ConditionKind, error) {
	value := strings.TrimSpace(strings.ToLower(raw))
	if value == "" {
		return ConditionPass, unknownConditionKindError(raw)
	}
	if n, err := strconv.Atoi(value); err == nil {
		kind := ConditionKind(n)
		if !kind.Valid() {
			return ConditionPass, unknownConditionKindError(raw)
		}
		return kind, nil
	}
	kind, ok := conditionAliases[value]
	if !ok {
		return ConditionPass, unknownConditionKindError(raw)
	}
	return kind, nil
}

// Predicate builds the predicate for query. ConditionPass has no predicate
// and returns nil.
func (k ConditionKind) Predicate(query string) (Predicate, error) {
	switch k {
	case ConditionPass:
		return nil, nil
	case ConditionExact:
		return Exact{Value: query}, nil
	case ConditionStartsWith:
		return Prefix{Value: query}, nil
	case ConditionEndsWith:
		return Suffix{Value: query}, nil
	case ConditionContains:
		return Contains{Value: query}, nil
	case ConditionPattern:
		return NewPattern(query)
	default:
		return nil, unknownConditionKindError(int(k))
	}
}

type Condition struct {
	Field string
	Kind  ConditionKind
	Query string
}

// ToMapping converts flat conditions into a match mapping. Pass conditions are
// left out so the field stays unconstrained.
func ToMapping(conditions []Condition) (Mapping, error) {
	out := Mapping{}
	for _, condition := range conditions {
		field := strings.TrimSpace(condition.Field)
		if field == "" {
			return nil, invalidMappingError("match: condition field is required", nil)
		}
		predicate, err := condition.Kind.Predicate(condition.Query)
		if err != nil {
			return nil, err
		}
		if predicate == nil {
			continue
		}
		out[field] = predicate
	}
	return out, nil
}

// ConditionsFromValues reads "<field>_cond" and "<field>_query" entries for each
// declared field. A field without a condition value is treated as pass.
func ConditionsFromValues(fields []string, values map[string]string) ([]Condition, error) {
	conditions := make([]Condition, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		rawKind, ok := values[field+CondSuffix]
		if !ok || strings.TrimSpace(rawKind) == "" {
			conditions = append(conditions, Condition{Field: field, Kind: ConditionPass})
			continue
		}
		kind, err := ParseConditionKind(rawKind)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, Condition{
			Field: field,
			Kind:  kind,
			Query: values[field+QuerySuffix],
		})
	}
	return conditions, nil
}

// MappingFromValues is ConditionsFromValues followed by ToMapping.
func MappingFromValues(fields []string, values map[string]string) (Mapping, error) {
	conditions, err := ConditionsFromValues(fields, values)
	if err != nil {
		return nil, err
	}
	return ToMapping(conditions)
}

type ConditionChoice struct {
	Kind  ConditionKind
	Name  string
	Label string
}

func ConditionChoices() []ConditionChoice {
	kinds := []ConditionKind{
		ConditionPass,
		ConditionExact,
		ConditionStartsWith,
		ConditionEndsWith,
		ConditionContains,
		ConditionPattern,
	}
	out := make([]ConditionChoice, 0, len(kinds))
	for _, kind := range kinds {
		out = append(out, ConditionChoice{Kind: kind, Name: kind.String(), Label: kind.Label()})
	}
	return out
}

// ConditionField describes the two operator inputs generated for one field.
type ConditionField struct {
	Field    string
	CondKey  string
	QueryKey string
}

func ConditionFields(fields []string) []ConditionField {
	out := make([]ConditionField, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		out = append(out, ConditionField{
			Field:    field,
			CondKey:  field + CondSuffix,
			QueryKey: field + QuerySuffix,
		})
	}
	return out
}
