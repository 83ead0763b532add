package match

// Mapping is a listener event filter: field name to nested Mapping, Predicate,
// or literal value. Fields that are not present are unconstrained.
type Mapping map[string]any

// IsEmpty reports whether the mapping constrains nothing.
func (m Mapping) IsEmpty() bool {
	return len(m) == 0
}

// Clone returns a deep copy of m. Nested mappings, maps and slices are
// copied; predicates and literals are shared.
func (m Mapping) Clone() Mapping {
	if m == nil {
		return nil
	}
	out := make(Mapping, len(m))
	for key, value := range m {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case Mapping:
		return typed.Clone()
	case map[string]any:
		return map[string]any(Mapping(typed).Clone())
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return value
	}
}

type matchPair struct {
	needle   map[string]any
	haystack map[string]any
}

// DeepMatch reports whether haystack satisfies every leaf of needle.
//
// Nested needle mappings require the haystack key to exist and hold a mapping.
// Leaves compare through Predicate.Matches, or Exact equality for literals; a
// missing haystack key never satisfies a leaf. The walk uses an explicit stack
// so deeply nested payloads do not grow the call stack. An empty needle
// matches every haystack. Predicate errors abort the walk.
func DeepMatch(needle Mapping, haystack map[string]any) (bool, error) {
	if len(needle) == 0 {
		return true, nil
	}
	stack := []matchPair{{needle: needle, haystack: haystack}}
	for len(stack) > 0 {
		pair := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for key, want := range pair.needle {
			got, present := pair.haystack[key]

			if nested, ok := nestedNeedle(want); ok {
				if !present {
					return false, nil
				}
				sub, ok := asMapping(got)
				if !ok {
					return false, nil
				}
				stack = append(stack, matchPair{needle: nested, haystack: sub})
				continue
			}

			if !present {
				return false, nil
			}
			matched, err := leafMatches(want, got)
			if err != nil {
				return false, err
			}
			if !matched {
				return false, nil
			}
		}
	}
	return true, nil
}

func nestedNeedle(value any) (map[string]any, bool) {
	if _, ok := value.(Predicate); ok {
		return nil, false
	}
	return asMapping(value)
}

func leafMatches(want any, got any) (bool, error) {
	if predicate, ok := want.(Predicate); ok {
		return predicate.Matches(got)
	}
	return valuesEqual(want, got), nil
}
