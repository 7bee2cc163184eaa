package internal

// StripFields returns a copy of a decoded JSON value with every object key
// in names removed, at any depth. Values that are not objects or arrays are
// returned unchanged.
func StripFields(v any, names ...string) any {
	if len(names) == 0 {
		return v
	}
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	return strip(v, drop)
}

// StripSQL removes "sql" fields, hiding generated queries from clients
func StripSQL(v any) any {
	return StripFields(v, "sql")
}

func strip(v any, drop map[string]struct{}) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if _, ok := drop[k]; ok {
				continue
			}
			out[k] = strip(child, drop)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = strip(child, drop)
		}
		return out
	default:
		return v
	}
}
