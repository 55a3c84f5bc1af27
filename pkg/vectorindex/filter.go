package vectorindex

import (
	"fmt"
	"reflect"
	"sort"
)

// Filter restricts a query by metadata. A scalar value means equality, a
// slice value means the metadata value must equal one of its elements. All
// keys must match.
type Filter map[string]interface{}

// Keys returns the filter keys in a stable order.
func (f Filter) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values returns v's elements when v is a slice (excluding []byte), or v alone.
func Values(v interface{}) ([]interface{}, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return []interface{}{v}, false
	}
	out := make([]interface{}, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// Matches reports whether metadata satisfies f. Values are compared by their
// printed form so an int in the filter matches an int64 or float64 decoded
// from JSON.
func (f Filter) Matches(metadata map[string]interface{}) bool {
	for key, want := range f {
		got, ok := metadata[key]
		if !ok {
			return false
		}
		candidates, _ := Values(want)
		found := false
		for _, c := range candidates {
			if scalarString(c) == scalarString(got) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprint(int64(t))
		}
	case float32:
		if t == float32(int64(t)) {
			return fmt.Sprint(int64(t))
		}
	}
	return fmt.Sprint(v)
}
