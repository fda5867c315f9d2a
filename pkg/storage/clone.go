package storage

// cloneValue deep-copies a normalized value so adapter-held state never
// aliases values handed to or from callers. Scalars are immutable; only
// sequences (and maps, tolerated for forward compatibility) need copying.
func cloneValue(value any) any {
	switch v := value.(type) {
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = cloneValue(item)
		}
		return out
	default:
		return value
	}
}
