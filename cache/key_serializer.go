package cache

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// defaultKeySerializer turns method names and lookup arguments into stable
// cache keys. Scalars use their %v form, slices and maps recurse, structs
// list exported fields by name.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// SerializeKey joins method and every serialized arg with KeySeparator.
func (s *defaultKeySerializer) SerializeKey(method string, args ...any) string {
	if len(args) == 0 {
		return method
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, method)
	for _, arg := range args {
		parts = append(parts, s.serializeValue(reflect.ValueOf(arg)))
	}

	return strings.Join(parts, KeySeparator)
}

func (s *defaultKeySerializer) serializeValue(rv reflect.Value) string {
	if !rv.IsValid() {
		return "nil"
	}

	if st, ok := asStringer(rv); ok {
		return st.String()
	}

	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeValue(rv.Elem())

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return "[]"
		}
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = s.serializeValue(rv.Index(i))
		}
		return "[" + strings.Join(parts, ",") + "]"

	case reflect.Map:
		parts := make([]string, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			parts = append(parts, s.serializeValue(iter.Key())+"="+s.serializeValue(iter.Value()))
		}
		sort.Strings(parts)
		return "{" + strings.Join(parts, ",") + "}"

	case reflect.Struct:
		rt := rv.Type()
		parts := make([]string, 0, rt.NumField())
		for i := 0; i < rt.NumField(); i++ {
			if !rt.Field(i).IsExported() {
				continue
			}
			parts = append(parts, rt.Field(i).Name+":"+s.serializeValue(rv.Field(i)))
		}
		return "{" + strings.Join(parts, ",") + "}"

	case reflect.Func, reflect.Chan:
		// stable only within one process
		return fmt.Sprintf("%s:%p", rv.Kind(), rv.Interface())
	}

	return fmt.Sprintf("%v", rv.Interface())
}

func asStringer(rv reflect.Value) (fmt.Stringer, bool) {
	if !rv.CanInterface() {
		return nil, false
	}
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return nil, false
	}
	st, ok := rv.Interface().(fmt.Stringer)
	return st, ok
}
