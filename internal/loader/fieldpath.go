// Package loader turns raw on-disk records into normalized BenchmarkItems.
// The schema-driven path maps arbitrary JSON/CSV records through dot-path
// field accessors; specialized loaders (code retrieval) construct items
// directly from task descriptors.
package loader

import (
	"strconv"
	"strings"
)

// Record is one raw dataset record.
type Record = map[string]interface{}

// fieldPath walks a dot path into a record. Numeric segments index into
// arrays ("sessions.0.turns"). Returns nil when any segment is absent.
func fieldPath(rec interface{}, path string) interface{} {
	if path == "" {
		return nil
	}
	cur := rec
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			v, ok := node[seg]
			if !ok {
				return nil
			}
			cur = v
		case []interface{}:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil
			}
			cur = node[idx]
		default:
			return nil
		}
	}
	return cur
}

// fieldString reads a dot path and coerces the value to a string.
// Numbers format without a trailing ".0" so numeric ids stay stable.
func fieldString(rec interface{}, path string) string {
	return coerceString(fieldPath(rec, path))
}

func coerceString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// fieldStrings reads a dot path expected to hold an array of scalars.
func fieldStrings(rec interface{}, path string) []string {
	arr, ok := fieldPath(rec, path).([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s := coerceString(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}
