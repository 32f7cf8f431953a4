package memoize

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// KeySerializer builds a cache key segment from an operation name and its
// arguments. Two argument lists must serialize to the same string iff they
// are element-wise equal.
type KeySerializer interface {
	SerializeKey(operation string, args ...any) string
}

// CacheKeyer lets argument types provide their own stable key segment.
// It is useful for criteria values whose natural representation is a
// function pointer.
type CacheKeyer interface {
	CacheKey() string
}

// defaultKeySerializer implements KeySerializer using reflection.
// Every segment carries enough type information that values of different
// types never serialize to the same string.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// SerializeKey builds a key segment from the operation name and args.
func (s *defaultKeySerializer) SerializeKey(operation string, args ...any) string {
	if len(args) == 0 {
		return operation
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, operation)

	for _, arg := range args {
		parts = append(parts, s.serialize(arg))
	}

	return strings.Join(parts, KeySeparator)
}

func (s *defaultKeySerializer) serialize(v any) string {
	if v == nil {
		return "nil"
	}
	return s.serializeValue(reflect.ValueOf(v), map[visit]struct{}{})
}

// visit identifies a reference value on the walk stack. Slices sharing a
// backing array are told apart by type and length.
type visit struct {
	addr uintptr
	typ  reflect.Type
	len  int
}

// enter records rv on the walk stack. It returns false when rv is already
// being walked, i.e. the value references itself.
func enter(rv reflect.Value, seen map[visit]struct{}) (visit, bool) {
	v := visit{addr: rv.Pointer(), typ: rv.Type()}
	if rv.Kind() == reflect.Slice {
		v.len = rv.Len()
	}
	if _, ok := seen[v]; ok {
		return v, false
	}
	seen[v] = struct{}{}
	return v, true
}

func cycleMarker(v visit) string {
	return fmt.Sprintf("cycle:%s:%#x", v.typ.String(), v.addr)
}

// serializeValue walks rv recursively. seen holds the pointers, maps and
// slices currently on the walk stack so self-referencing values terminate.
func (s *defaultKeySerializer) serializeValue(rv reflect.Value, seen map[visit]struct{}) string {
	if !rv.IsValid() {
		return "nil"
	}

	if rv.CanInterface() {
		if keyer, ok := rv.Interface().(CacheKeyer); ok && !isNilable(rv) {
			return "key:" + strconv.Quote(keyer.CacheKey())
		}
	}

	rt := rv.Type()

	switch rt.Kind() {
	case reflect.Func:
		if rv.IsNil() {
			return "func:nil"
		}
		return fmt.Sprintf("func:%#x", rv.Pointer())

	case reflect.Chan:
		if rv.IsNil() {
			return "chan:nil"
		}
		return fmt.Sprintf("chan:%#x", rv.Pointer())

	case reflect.UnsafePointer:
		return fmt.Sprintf("unsafe:%#x", rv.Pointer())

	case reflect.Ptr:
		if rv.IsNil() {
			return "nil"
		}
		v, ok := enter(rv, seen)
		if !ok {
			return cycleMarker(v)
		}
		defer delete(seen, v)
		return s.serializeValue(rv.Elem(), seen)

	case reflect.Interface:
		if rv.IsNil() {
			return "interface:nil"
		}
		return s.serializeValue(rv.Elem(), seen)

	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil"
		}
		if rv.Len() > 0 {
			v, ok := enter(rv, seen)
			if !ok {
				return cycleMarker(v)
			}
			defer delete(seen, v)
		}
		return "slice" + s.serializeElements(rv, seen)

	case reflect.Array:
		return "array" + s.serializeElements(rv, seen)

	case reflect.Map:
		if rv.IsNil() {
			return "map:nil"
		}
		v, ok := enter(rv, seen)
		if !ok {
			return cycleMarker(v)
		}
		defer delete(seen, v)
		return s.serializeMap(rv, seen)

	case reflect.Struct:
		return s.serializeStruct(rv, rt, seen)

	case reflect.String:
		if rt.PkgPath() == "" {
			return strconv.Quote(rv.String())
		}
		return rt.String() + "(" + strconv.Quote(rv.String()) + ")"
	}

	if isBasicKind(rt.Kind()) {
		return fmt.Sprintf("%s(%v)", rt.String(), rv)
	}

	return fmt.Sprintf("fallback:%s:%v", rt.String(), rv)
}

// serializeElements handles slice and array elements in order.
func (s *defaultKeySerializer) serializeElements(rv reflect.Value, seen map[visit]struct{}) string {
	length := rv.Len()
	parts := make([]string, length)

	for i := 0; i < length; i++ {
		parts[i] = s.serializeValue(rv.Index(i), seen)
	}

	return fmt.Sprintf("[%d]:{%s}", length, strings.Join(parts, ","))
}

// serializeMap emits key/value pairs sorted by their serialized key.
func (s *defaultKeySerializer) serializeMap(rv reflect.Value, seen map[visit]struct{}) string {
	type pair struct{ key, value string }

	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, pair{
			key:   s.serializeValue(iter.Key(), seen),
			value: s.serializeValue(iter.Value(), seen),
		})
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.key + "=" + p.value
	}

	return fmt.Sprintf("map[%d]:{%s}", len(parts), strings.Join(parts, ","))
}

// serializeStruct includes unexported fields: two values that differ only in
// private state are different arguments.
func (s *defaultKeySerializer) serializeStruct(rv reflect.Value, rt reflect.Type, seen map[visit]struct{}) string {
	numFields := rv.NumField()
	parts := make([]string, 0, numFields)

	for i := 0; i < numFields; i++ {
		field := rt.Field(i)
		parts = append(parts, field.Name+":"+s.serializeValue(rv.Field(i), seen))
	}

	return rt.String() + "{" + strings.Join(parts, ",") + "}"
}

func isNilable(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

func isBasicKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return true
	default:
		return false
	}
}
