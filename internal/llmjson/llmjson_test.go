package llmjson

import (
	"encoding/json"
	"testing"
)

type payload struct {
	Sentences []struct {
		Sentence string   `json:"sentence"`
		KeyTerms []string `json:"key_terms"`
	} `json:"sentences"`
}

func TestSpan(t *testing.T) {
	t.Run("wrapper text", func(t *testing.T) {
		span, ok := Span("Sure! Here you go:\n{\"a\": 1}\nHope that helps.")
		if !ok || span != `{"a": 1}` {
			t.Errorf("Span() = (%q, %v)", span, ok)
		}
	})

	t.Run("no object", func(t *testing.T) {
		if _, ok := Span("no json here"); ok {
			t.Error("expected ok=false")
		}
	})

	t.Run("reversed braces", func(t *testing.T) {
		if _, ok := Span("} {"); ok {
			t.Error("expected ok=false for } before {")
		}
	})
}

func TestDecode(t *testing.T) {
	var p payload
	response := "```json\n{\"sentences\": [{\"sentence\": \"s\", \"key_terms\": [\"t\"]}]}\n```"
	if err := Decode(response, nil, &p); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(p.Sentences) != 1 || p.Sentences[0].Sentence != "s" {
		t.Errorf("decoded = %+v", p)
	}
}

func TestDecodeSchemaValidation(t *testing.T) {
	schema := MustSchema("test.json", `{
		"type": "object",
		"required": ["sentences"],
		"properties": {"sentences": {"type": "array"}}
	}`)

	var p payload
	if err := Decode(`{"sentences": []}`, schema, &p); err != nil {
		t.Errorf("valid payload rejected: %v", err)
	}
	if err := Decode(`{"wrong_key": []}`, schema, &p); err == nil {
		t.Error("invalid payload accepted")
	}
}

func TestDecodeLenient(t *testing.T) {
	t.Run("single quotes repaired", func(t *testing.T) {
		var v map[string]any
		if err := DecodeLenient(`{'key': 'value'}`, nil, &v); err != nil {
			t.Fatalf("DecodeLenient() error = %v", err)
		}
		if v["key"] != "value" {
			t.Errorf("decoded = %v", v)
		}
	})

	t.Run("trailing comma repaired", func(t *testing.T) {
		var v map[string]any
		if err := DecodeLenient(`{"a": [1, 2,], "b": 3,}`, nil, &v); err != nil {
			t.Fatalf("DecodeLenient() error = %v", err)
		}
	})

	t.Run("unrepairable returns strict error", func(t *testing.T) {
		var v map[string]any
		if err := DecodeLenient(`{"a": [unclosed`, nil, &v); err == nil {
			t.Error("expected error")
		}
	})
}

func TestRepairMissingObjectComma(t *testing.T) {
	fixed := Repair(`{"arr": [{"a": 1} {"b": 2}]}`)
	var v map[string]any
	if err := json.Unmarshal([]byte(fixed), &v); err != nil {
		t.Errorf("repaired JSON still invalid: %v\n%s", err, fixed)
	}
}

func TestArray(t *testing.T) {
	t.Run("isolates named array", func(t *testing.T) {
		response := `{"figure_references": [{"a": 1} {"b": 2}] and then it broke`
		raw, ok := Array(response, "figure_references")
		if !ok {
			t.Fatal("Array() ok=false")
		}
		var items []map[string]int
		if err := json.Unmarshal(raw, &items); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(items) != 2 {
			t.Errorf("items = %v", items)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		if _, ok := Array(`{"other": []}`, "figure_references"); ok {
			t.Error("expected ok=false")
		}
	})

	t.Run("empty array content", func(t *testing.T) {
		if _, ok := Array(`{"refs": []}`, "refs"); ok {
			t.Error("expected ok=false for empty array")
		}
	})
}
