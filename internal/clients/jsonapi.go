package clients

import (
	"encoding/json"
	"strings"
)

// The switch API speaks a JSON:API-like dialect, but attribute keys come
// back hyphenated on some endpoints and underscored on others
// ("balance-currency" vs "balance_currency"). Everything is rewritten to
// the underscored form once, here at the gateway boundary, so no caller
// ever branches on casing.

// NormalizeKeys decodes raw JSON and canonicalizes every object key to
// its underscored form, recursively. Returns the re-encoded document.
func NormalizeKeys(raw []byte) (json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	normalized, err := json.Marshal(normalizeValue(doc))
	if err != nil {
		return nil, err
	}
	return normalized, nil
}

func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			out[strings.ReplaceAll(k, "-", "_")] = normalizeValue(inner)
		}
		return out
	case []interface{}:
		for i := range val {
			val[i] = normalizeValue(val[i])
		}
		return val
	default:
		return v
	}
}

// Envelope is the JSON:API response envelope. Data stays raw because it
// is an object on single-resource endpoints and an array on collections.
type Envelope struct {
	Data json.RawMessage        `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}

// Resource is one JSON:API resource object with normalized attributes.
type Resource struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Attributes map[string]interface{} `json:"attributes"`
}

// DecodeResources decodes a normalized payload into JSON:API resources.
// Accepts either a bare array or a {data: [...]} envelope.
func DecodeResources(raw json.RawMessage) ([]Resource, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Data != nil {
		raw = env.Data
	}
	var resources []Resource
	if err := json.Unmarshal(raw, &resources); err != nil {
		// Single resource object.
		var one Resource
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, err
		}
		return []Resource{one}, nil
	}
	return resources, nil
}
