// Package build implements the builder DSL: Vec and Map compose into
// Builders that, given a Writer, emit exactly one array or map value.
// Non-builder arguments are dispatched through Serialize, which covers
// every primitive, string, byte slice, and arbitrary slice/map of
// serializable elements via reflection — the same reflect-driven field
// walk the teacher uses to encode struct fields.
package build

import (
	"fmt"
	"reflect"

	"github.com/mrayva/zerialize"
)

// Field is one key/value pair passed to Map. C++'s zmap<"k1","k2">(...)
// takes its keys as compile-time template parameters; Go has no non-type
// string template parameter, so Map takes its keys at runtime instead.
type Field struct {
	Key string
	Val any
}

// Vec returns a Builder that emits an array containing each of xs in order.
// Any xs element that is itself a zerialize.Builder is invoked recursively;
// everything else goes through Serialize.
func Vec(xs ...any) zerialize.Builder {
	return func(w zerialize.Writer) error {
		if err := w.BeginArray(len(xs)); err != nil {
			return err
		}
		for _, x := range xs {
			if err := emit(x, w); err != nil {
				return err
			}
		}
		return w.EndArray()
	}
}

// Map returns a Builder that emits a map from the given fields, in order.
func Map(fields ...Field) zerialize.Builder {
	return func(w zerialize.Writer) error {
		if err := w.BeginMap(len(fields)); err != nil {
			return err
		}
		for _, f := range fields {
			if err := w.Key(f.Key); err != nil {
				return err
			}
			if err := emit(f.Val, w); err != nil {
				return err
			}
		}
		return w.EndMap()
	}
}

func emit(x any, w zerialize.Writer) error {
	if b, ok := x.(zerialize.Builder); ok {
		return b(w)
	}
	return Serialize(x, w)
}

// Serialize dispatches a plain Go value to the matching Writer emission,
// the default-serializer counterpart of the builder combinators above.
// Slices and arrays become arrays; maps become maps (key order is
// nondeterministic for a Go map — callers that need ordered map output
// should use Map with explicit Fields instead).
func Serialize(v any, w zerialize.Writer) error {
	switch x := v.(type) {
	case nil:
		return w.Null()
	case bool:
		return w.Boolean(x)
	case int:
		return w.Int64(int64(x))
	case int8:
		return w.Int64(int64(x))
	case int16:
		return w.Int64(int64(x))
	case int32:
		return w.Int64(int64(x))
	case int64:
		return w.Int64(x)
	case uint:
		return w.Uint64(uint64(x))
	case uint8:
		return w.Uint64(uint64(x))
	case uint16:
		return w.Uint64(uint64(x))
	case uint32:
		return w.Uint64(uint64(x))
	case uint64:
		return w.Uint64(x)
	case float32:
		return w.Double(float64(x))
	case float64:
		return w.Double(x)
	case string:
		return w.String(x)
	case []byte:
		return w.Binary(x)
	case zerialize.Builder:
		return x(w)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		if err := w.BeginArray(n); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := Serialize(rv.Index(i).Interface(), w); err != nil {
				return err
			}
		}
		return w.EndArray()
	case reflect.Map:
		keys := rv.MapKeys()
		if err := w.BeginMap(len(keys)); err != nil {
			return err
		}
		for _, k := range keys {
			if err := w.Key(fmt.Sprint(k.Interface())); err != nil {
				return err
			}
			if err := Serialize(rv.MapIndex(k).Interface(), w); err != nil {
				return err
			}
		}
		return w.EndMap()
	}
	return fmt.Errorf("build: no default serializer for %T", v)
}
