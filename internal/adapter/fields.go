package adapter

import "encoding/json"

// decodeFields decodes a JSON object payload into the open field
// mapping carried by a Record.
func decodeFields(body []byte) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// fieldString returns m[key] as a string, or "" when absent or not a
// string.
func fieldString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// fieldInt64 returns m[key] as an int64. JSON numbers decode as
// float64 in an open mapping.
func fieldInt64(m map[string]any, key string) int64 {
	f, _ := m[key].(float64)
	return int64(f)
}

// fieldObjects returns m[key] as a slice of JSON objects, skipping
// entries of any other shape.
func fieldObjects(m map[string]any, key string) []map[string]any {
	raw, _ := m[key].([]any)
	if raw == nil {
		return nil
	}
	objs := make([]map[string]any, 0, len(raw))
	for _, e := range raw {
		if obj, ok := e.(map[string]any); ok {
			objs = append(objs, obj)
		}
	}
	return objs
}

// capSummaries bounds a summary slice to n entries.
func capSummaries(s []TxSummary, n int) []TxSummary {
	if len(s) > n {
		return s[:n]
	}
	return s
}
