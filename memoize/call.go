package memoize

import (
	"context"
	"reflect"
)

// Call is a type-safe wrapper around Table.Call.
func Call[T any](ctx context.Context, table *Table, recv any, name string, args ...any) (T, error) {
	result, err := table.Call(ctx, recv, name, args...)
	return cast[T](name, result, err)
}

// CallStatic is a type-safe wrapper around Table.CallStatic.
func CallStatic[T any](ctx context.Context, table *Table, name string, args ...any) (T, error) {
	result, err := table.CallStatic(ctx, name, args...)
	return cast[T](name, result, err)
}

// cast converts an untyped result. A nil result yields the zero value of T,
// which keeps interface and pointer results working.
func cast[T any](name string, result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}

	typed, ok := result.(T)
	if !ok {
		return zero, invalidResultTypeError(name, reflect.TypeOf((*T)(nil)).Elem().String(), result)
	}
	return typed, nil
}
