package memoize

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Key is the composite cache key (scope, operation, args). The serialized id
// is computed once at derivation and is what stores index by.
type Key struct {
	Scope     any
	Operation string
	Args      []any

	id string
}

// DeriveKey builds the key for a call of operation on recv under scope.
func DeriveKey(serializer KeySerializer, recv any, operation string, scope Scope, args ...any) Key {
	if serializer == nil {
		serializer = NewDefaultKeySerializer()
	}

	return Key{
		Scope:     scope.Resolve(recv),
		Operation: operation,
		Args:      args,
		id:        scope.identity(serializer, recv) + KeySeparator + serializer.SerializeKey(operation, args...),
	}
}

// String returns the serialized key.
func (k Key) String() string {
	return k.id
}

// Equal reports whether both keys address the same cache entry.
func (k Key) Equal(other Key) bool {
	return k.id == other.id
}

// Digest is a short hash of the key, meant for log fields.
func (k Key) Digest() string {
	return strconv.FormatUint(xxhash.Sum64String(k.id), 16)
}
