package match

import (
	"encoding/json"
	"testing"
)

func TestMappingJSONRoundTrip(t *testing.T) {
	original := Mapping{
		"status": "paid",
		"total":  42,
		"flags":  true,
		"customer": Mapping{
			"email": Suffix{Value: "@example.com"},
			"name":  Prefix{Value: "El"},
		},
		"id":   Exact{Value: 7},
		"note": Contains{Value: "rush"},
		"sku":  MustPattern(`^SKU-\d+$`),
		"any":  Any{},
	}

	raw, err := EncodeMapping(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeMapping(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	payloads := []map[string]any{
		{
			"status": "paid", "total": 42, "flags": true, "id": 7, "note": "rush order", "sku": "SKU-12", "any": nil,
			"customer": map[string]any{"email": "elaine@example.com", "name": "Elaine"},
		},
		{
			"status": "paid", "total": 42.0, "flags": true, "id": 7, "note": "rush order", "sku": "SKU-x", "any": 1,
			"customer": map[string]any{"email": "elaine@example.com", "name": "Elaine"},
		},
		{
			"status": "paid", "total": 42, "flags": true, "id": "7", "note": "rush", "sku": "SKU-3", "any": 1,
			"customer": map[string]any{"email": "elaine@example.com", "name": "Elaine"},
		},
	}
	for i, payload := range payloads {
		want, err := DeepMatch(original, payload)
		if err != nil {
			t.Fatalf("payload %d original: %v", i, err)
		}
		got, err := DeepMatch(decoded, payload)
		if err != nil {
			t.Fatalf("payload %d decoded: %v", i, err)
		}
		if want != got {
			t.Fatalf("payload %d: original matched %v, decoded matched %v", i, want, got)
		}
	}
}

func TestMappingUnmarshalInsideStruct(t *testing.T) {
	type record struct {
		Filter Mapping `json:"filter"`
	}
	in := record{Filter: Mapping{"event": Prefix{Value: "order."}}}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out record
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got, ok := out.Filter["event"].(Prefix); !ok || got.Value != "order." {
		t.Fatalf("unexpected decoded filter %#v", out.Filter)
	}
}

func TestDecodeMappingNormalizesNumbers(t *testing.T) {
	decoded, err := DecodeMapping([]byte(`{"count":3,"ratio":0.5}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := decoded["count"].(int64); !ok {
		t.Fatalf("expected int64 count, got %T", decoded["count"])
	}
	if _, ok := decoded["ratio"].(float64); !ok {
		t.Fatalf("expected float64 ratio, got %T", decoded["ratio"])
	}
}

func TestDecodeMappingEmpty(t *testing.T) {
	for _, raw := range []string{"", "null", "{}"} {
		decoded, err := DecodeMapping([]byte(raw))
		if err != nil {
			t.Fatalf("decode %q: %v", raw, err)
		}
		if !decoded.IsEmpty() {
			t.Fatalf("decode %q: expected empty mapping", raw)
		}
	}
}

func TestDecodeMappingErrors(t *testing.T) {
	if _, err := DecodeMapping([]byte(`[1,2]`)); err == nil {
		t.Fatalf("expected error for non-object input")
	}
	if _, err := DecodeMapping([]byte(`{"a":{"$match":"between","value":"x"}}`)); !IsUnknownConditionKind(err) {
		t.Fatalf("expected unknown condition kind, got %v", err)
	}
	if _, err := DecodeMapping([]byte(`{"a":{"$match":"pattern","value":"("}}`)); !IsInvalidPattern(err) {
		t.Fatalf("expected invalid pattern, got %v", err)
	}
}

type oddPredicate struct{}

func (oddPredicate) Matches(any) (bool, error) { return false, nil }

func TestEncodeMappingRejectsUnknownPredicate(t *testing.T) {
	if _, err := EncodeMapping(Mapping{"x": oddPredicate{}}); err == nil {
		t.Fatalf("expected encode error")
	}
}
