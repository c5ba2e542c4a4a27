package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// KeySeparator delimits cache key segments. Namespaces never contain it, so
// prefix invalidation of "<namespace>::" can never bleed across entity types.
const KeySeparator = "::"

// defaultKeySerializer produces deterministic keys for the argument shapes
// the entity cache layer actually uses: integer keys, strings, times, and the
// occasional small struct (JSON fallback).
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

func (s *defaultKeySerializer) SerializeKey(namespace, method string, args ...any) string {
	parts := make([]string, 0, len(args)+2)
	parts = append(parts, namespace, method)
	for _, arg := range args {
		parts = append(parts, s.serializeValue(arg))
	}
	return strings.Join(parts, KeySeparator)
}

func (s *defaultKeySerializer) serializeValue(v any) string {
	if v == nil {
		return "nil"
	}

	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return fmt.Sprintf("%v", t)
	case fmt.Stringer:
		return t.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeValue(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts[i] = s.serializeValue(rv.Index(i).Interface())
		}
		return fmt.Sprintf("[%s]", strings.Join(parts, ","))
	}

	// JSON fallback keeps struct keys deterministic without per-type code.
	if data, err := json.Marshal(v); err == nil {
		return string(data)
	}
	return fmt.Sprintf("%T", v)
}
