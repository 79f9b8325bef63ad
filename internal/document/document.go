// Package document provides tolerant accessors over decoded structured
// documents. Trees decoded from JSON carry float64 numbers while YAML and
// hand-built trees carry int, so numeric getters accept all of them.
package document

// Doc is one keyed document node.
type Doc = map[string]any

// GetString extracts a string from m, returning defaultVal if missing or of
// the wrong type.
func GetString(m Doc, key, defaultVal string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return defaultVal
}

// GetInt extracts an integer from m. Whole float64 values, as produced by
// encoding/json, are converted.
func GetInt(m Doc, key string, defaultVal int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint8:
		return int(v)
	case float64:
		if v == float64(int(v)) {
			return int(v)
		}
	}
	return defaultVal
}

// HasKey reports whether key is present in m.
func HasKey(m Doc, key string) bool {
	_, ok := m[key]
	return ok
}

// GetBool extracts a bool from m.
func GetBool(m Doc, key string, defaultVal bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return defaultVal
}

// GetMap extracts a nested document from m.
func GetMap(m Doc, key string) Doc {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}

// GetList extracts a list from m. Handles both []any and []Doc.
func GetList(m Doc, key string) []any {
	switch v := m[key].(type) {
	case []any:
		return v
	case []Doc:
		out := make([]any, len(v))
		for i, d := range v {
			out[i] = d
		}
		return out
	}
	return nil
}

// AsMap converts a list item to a document, or nil.
func AsMap(v any) Doc {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}
