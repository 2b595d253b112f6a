package jsonsig

import (
	"encoding/json"
	"testing"
)

func TestCanonicalizeSortsKeys(t *testing.T) {
	v := map[string]interface{}{"b": 1, "a": 2, "c": 3}
	got, err := Canonicalize(v)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := `{"a":2,"b":1,"c":3}`
	if string(got) != want {
		t.Fatalf("Canonicalize() = %s, want %s", got, want)
	}
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	v := map[string]interface{}{
		"nested": map[string]interface{}{"z": 1, "y": []interface{}{1, 2, "three"}},
		"top":    "value",
	}
	first, err := Canonicalize(v)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	var reparsed map[string]interface{}
	if err := json.Unmarshal(first, &reparsed); err != nil {
		t.Fatalf("decode canonical output: %v", err)
	}
	second, err := Canonicalize(reparsed)
	if err != nil {
		t.Fatalf("Canonicalize (second pass): %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("canonicalization not idempotent: first=%s second=%s", first, second)
	}
}

func TestCanonicalizeNestedArraysAndObjects(t *testing.T) {
	v := map[string]interface{}{
		"list": []interface{}{
			map[string]interface{}{"b": true, "a": nil},
			"plain string",
		},
	}
	got, err := Canonicalize(v)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := `{"list":[{"a":null,"b":true},"plain string"]}`
	if string(got) != want {
		t.Fatalf("Canonicalize() = %s, want %s", got, want)
	}
}
