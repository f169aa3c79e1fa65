package bridge

// Loose-map argument extraction. JSON decoding delivers numbers as
// float64 and objects as map[string]any; handler tests build args maps
// directly, so the numeric helper also accepts Go ints.

// stringArg returns the string under key, or "" when absent or not a
// string.
func stringArg(args map[string]any, key string) string {
	if s, ok := args[key].(string); ok {
		return s
	}
	return ""
}

// floatArgDefault returns the number under key, or fallback when the key
// is absent or not numeric. An explicit zero is honored.
func floatArgDefault(args map[string]any, key string, fallback float64) float64 {
	switch n := args[key].(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return fallback
}

// boolArgDefault returns the bool under key, or fallback when the key is
// absent or not a bool.
func boolArgDefault(args map[string]any, key string, fallback bool) bool {
	if b, ok := args[key].(bool); ok {
		return b
	}
	return fallback
}

// mapArg returns the object under key, or nil when absent or not an
// object.
func mapArg(args map[string]any, key string) map[string]any {
	if m, ok := args[key].(map[string]any); ok {
		return m
	}
	return nil
}
