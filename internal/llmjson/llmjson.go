// Package llmjson extracts structured JSON payloads from model responses.
// Models wrap JSON in prose or code fences and commit predictable syntax
// mistakes; this package centralizes the tolerant extraction used by the
// citation and figure analysis stages. The contract is "never raise, always
// degrade": callers receive an explicit ok/error and fall back to empty
// results, the heuristics here are best-effort only.
package llmjson

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Span returns the outermost {...} span of a response, tolerating wrapper
// text before and after the JSON object.
func Span(response string) (string, bool) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return response[start : end+1], true
}

// Decode extracts the outermost JSON object from a response, validates it
// against schema when non-nil, and unmarshals it into v. A single strict
// pass: any failure is returned to the caller to degrade on.
func Decode(response string, schema *jsonschema.Schema, v any) error {
	span, ok := Span(response)
	if !ok {
		return fmt.Errorf("no JSON object found in response")
	}
	return decodeSpan(span, schema, v)
}

// DecodeLenient tries the strict pass first, then retries with common-mistake
// repairs applied. It is used where the upstream prompt yields long payloads
// that frequently arrive slightly malformed.
func DecodeLenient(response string, schema *jsonschema.Schema, v any) error {
	span, ok := Span(response)
	if !ok {
		return fmt.Errorf("no JSON object found in response")
	}
	strictErr := decodeSpan(span, schema, v)
	if strictErr == nil {
		return nil
	}
	if err := decodeSpan(Repair(span), schema, v); err == nil {
		return nil
	}
	return strictErr
}

func decodeSpan(span string, schema *jsonschema.Schema, v any) error {
	if schema != nil {
		var inst any
		if err := json.Unmarshal([]byte(span), &inst); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
		if err := schema.Validate(inst); err != nil {
			return fmt.Errorf("response failed schema validation: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(span), v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

var (
	trailingCommaObjRe = regexp.MustCompile(`,\s*}`)
	trailingCommaArrRe = regexp.MustCompile(`,\s*]`)
	missingObjCommaRe  = regexp.MustCompile(`}\s*{`)
	missingKVCommaRe   = regexp.MustCompile(`"\s*\n\s*"`)
)

// Repair applies a fixed sequence of regex repairs for mistakes models make
// most often: single quotes for double quotes, trailing commas, and missing
// commas between adjacent objects or key-value lines.
func Repair(span string) string {
	fixed := strings.ReplaceAll(span, "'", `"`)
	fixed = trailingCommaObjRe.ReplaceAllString(fixed, "}")
	fixed = trailingCommaArrRe.ReplaceAllString(fixed, "]")
	fixed = missingObjCommaRe.ReplaceAllString(fixed, "},{")
	fixed = missingKVCommaRe.ReplaceAllString(fixed, "\",\n\"")
	return fixed
}

// Array isolates the named top-level array from a malformed response and
// parses just that array, repairing it first. Last rung of the degrade
// ladder before giving up entirely.
func Array(response, key string) (json.RawMessage, bool) {
	re := regexp.MustCompile(`(?s)"` + regexp.QuoteMeta(key) + `"\s*:\s*\[(.*?)\]`)
	m := re.FindStringSubmatch(response)
	if m == nil {
		return nil, false
	}
	content := strings.TrimSpace(m[1])
	if content == "" {
		return nil, false
	}
	content = missingObjCommaRe.ReplaceAllString(content, "},{")
	content = trailingCommaObjRe.ReplaceAllString(content, "}")
	raw := json.RawMessage("[" + content + "]")
	if !json.Valid(raw) {
		return nil, false
	}
	return raw, true
}

// MustSchema compiles a JSON schema literal at package init time.
func MustSchema(name, schemaJSON string) *jsonschema.Schema {
	return jsonschema.MustCompileString(name, schemaJSON)
}
