package match

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Predicates are stored as {"$match": "<kind>", "value": ...} objects so a
// listener filter survives a round trip through a JSON column.
const (
	predicateKey      = "$match"
	predicateValueKey = "value"
)

func (m Mapping) MarshalJSON() ([]byte, error) {
	encoded, err := encodeMapping(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(encoded)
}

func (m *Mapping) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeMapping(data)
	if err != nil {
		return err
	}
	*m = decoded
	return nil
}

// EncodeMapping renders a mapping as JSON. A nil mapping encodes as {}.
func EncodeMapping(m Mapping) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return m.MarshalJSON()
}

// DecodeMapping parses JSON written by EncodeMapping. Empty input decodes to
// an empty mapping.
func DecodeMapping(data []byte) (Mapping, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Mapping{}, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	var raw map[string]any
	if err := decoder.Decode(&raw); err != nil {
		return nil, invalidMappingError("match: mapping is not a JSON object", err)
	}
	return decodeMapping(raw)
}

func encodeMapping(m map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for key, value := range m {
		encoded, err := encodeValue(value)
		if err != nil {
			return nil, fmt.Errorf("match: field %q: %w", key, err)
		}
		out[key] = encoded
	}
	return out, nil
}

func encodeValue(value any) (any, error) {
	switch typed := value.(type) {
	case Any:
		return map[string]any{predicateKey: ConditionPass.String()}, nil
	case Exact:
		return map[string]any{predicateKey: ConditionExact.String(), predicateValueKey: typed.Value}, nil
	case Prefix:
		return map[string]any{predicateKey: ConditionStartsWith.String(), predicateValueKey: typed.Value}, nil
	case Suffix:
		return map[string]any{predicateKey: ConditionEndsWith.String(), predicateValueKey: typed.Value}, nil
	case Contains:
		return map[string]any{predicateKey: ConditionContains.String(), predicateValueKey: typed.Value}, nil
	case Pattern:
		return map[string]any{predicateKey: ConditionPattern.String(), predicateValueKey: typed.Source()}, nil
	case Predicate:
		return nil, invalidMappingError(fmt.Sprintf("match: predicate %T cannot be encoded", value), nil)
	}
	if nested, ok := asMapping(value); ok {
		return encodeMapping(nested)
	}
	return value, nil
}

func decodeMapping(raw map[string]any) (Mapping, error) {
	out := make(Mapping, len(raw))
	for key, value := range raw {
		decoded, err := decodeValue(value)
		if err != nil {
			return nil, err
		}
		out[key] = decoded
	}
	return out, nil
}

func decodeValue(value any) (any, error) {
	switch typed := value.(type) {
	case map[string]any:
		if kindName, ok := typed[predicateKey]; ok {
			return decodePredicate(kindName, typed[predicateValueKey])
		}
		return decodeMapping(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			decoded, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = decoded
		}
		return out, nil
	case json.Number:
		return normalizeNumber(typed), nil
	default:
		return value, nil
	}
}

func decodePredicate(rawKind any, rawValue any) (any, error) {
	name, ok := rawKind.(string)
	if !ok {
		return nil, unknownConditionKindError(rawKind)
	}
	kind, err := ParseConditionKind(name)
	if err != nil {
		return nil, err
	}
	switch kind {
	case ConditionPass:
		return Any{}, nil
	case ConditionExact:
		value, err := decodeValue(rawValue)
		if err != nil {
			return nil, err
		}
		return Exact{Value: value}, nil
	}
	text, ok := rawValue.(string)
	if !ok {
		return nil, invalidMappingError(
			fmt.Sprintf("match: %s predicate requires a string value", strings.TrimSpace(name)),
			nil,
		)
	}
	return kind.Predicate(text)
}

func normalizeNumber(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
