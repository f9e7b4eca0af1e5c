package groww

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// The upstream answers with one of three shapes depending on endpoint
// generation: a status/payload envelope, an object nested under a data key,
// or a flat object. decodeEnvelope collapses all of them into one flat
// representation before normalization. Anything else is a
// NormalizationError; the decoder never guesses.

// decodeEnvelope normalizes a raw response body into a single field map.
func decodeEnvelope(body []byte) (map[string]interface{}, error) {
	var root map[string]interface{}
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, &NormalizationError{Reason: fmt.Sprintf("response is not a JSON object: %v", err)}
	}

	// Shape 1: {"status": "...", "payload": {...}}. A non-success status is
	// fatal whether or not the payload key is present.
	if status, ok := root["status"].(string); ok {
		if !strings.EqualFold(status, "success") {
			return nil, &NormalizationError{Reason: fmt.Sprintf("upstream status %q", status)}
		}
		if payload, ok := root["payload"].(map[string]interface{}); ok {
			return flatten(payload), nil
		}
	}

	// Shape 2: {"data": {...}}
	if data, ok := root["data"].(map[string]interface{}); ok {
		return flatten(data), nil
	}

	// Shape 3: flat object
	if len(root) == 0 {
		return nil, &NormalizationError{Reason: "empty payload"}
	}
	return flatten(root), nil
}

// flatten lifts single-level nested objects (e.g. an "ohlc" block) into the
// top level so every field is addressable by name. Top-level scalars always
// win over lifted inner keys, and nested blocks are lifted in sorted key
// order so a collision between two blocks resolves the same way every time.
func flatten(obj map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(obj))
	var nestedKeys []string
	for k, v := range obj {
		if _, isMap := v.(map[string]interface{}); isMap {
			nestedKeys = append(nestedKeys, k)
			continue
		}
		out[k] = v
	}
	sort.Strings(nestedKeys)
	for _, k := range nestedKeys {
		nested := obj[k].(map[string]interface{})
		inner := make([]string, 0, len(nested))
		for nk := range nested {
			inner = append(inner, nk)
		}
		sort.Strings(inner)
		for _, nk := range inner {
			if _, exists := out[nk]; exists {
				continue
			}
			if _, deeper := nested[nk].(map[string]interface{}); deeper {
				continue
			}
			out[nk] = nested[nk]
		}
	}
	return out
}
