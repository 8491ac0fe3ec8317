package schema

// Merge combines two schema fragments. Objects are merged key by key,
// arrays are concatenated (base first) and on any other conflict base wins.
func Merge(base, new any) any {
	if base == nil {
		return new
	}
	if new == nil {
		return base
	}

	baseObj, baseIsObj := base.(map[string]any)
	newObj, newIsObj := new.(map[string]any)
	if baseIsObj && newIsObj {
		merged := make(map[string]any, len(baseObj)+len(newObj))
		for key, value := range baseObj {
			merged[key] = Merge(value, newObj[key])
		}
		for key, value := range newObj {
			if _, ok := baseObj[key]; !ok {
				merged[key] = value
			}
		}
		return merged
	}

	baseArr, baseIsArr := base.([]any)
	newArr, newIsArr := new.([]any)
	if baseIsArr && newIsArr {
		merged := make([]any, 0, len(baseArr)+len(newArr))
		merged = append(merged, baseArr...)
		return append(merged, newArr...)
	}

	return base
}

// MergeDocuments is Merge for whole documents.
func MergeDocuments(base, new map[string]any) map[string]any {
	if base == nil && new == nil {
		return nil
	}
	if base == nil {
		return new
	}
	if new == nil {
		return base
	}
	return Merge(base, new).(map[string]any)
}

// Clone returns a deep copy of a JSON-compatible tree.
func Clone(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			out[key] = Clone(value)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, value := range v {
			out[i] = Clone(value)
		}
		return out
	default:
		return v
	}
}
