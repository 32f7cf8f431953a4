package memoize

import (
	"fmt"
	"reflect"
)

// ScopeKind selects the axis along which cached results are partitioned.
type ScopeKind int

const (
	// ScopeSelf partitions by receiver: every instance gets its own entries.
	ScopeSelf ScopeKind = iota
	// ScopeExplicit partitions by a token given at registration time.
	ScopeExplicit
	// ScopeGlobal shares entries across every receiver and table.
	ScopeGlobal
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeSelf:
		return "self"
	case ScopeExplicit:
		return "explicit"
	case ScopeGlobal:
		return "global"
	default:
		return fmt.Sprintf("ScopeKind(%d)", int(k))
	}
}

// Scope is resolved against the receiver on every call.
type Scope struct {
	kind  ScopeKind
	token any
}

// GlobalScope is the reserved marker for global memoization.
var GlobalScope = Scope{kind: ScopeGlobal}

// SelfScope returns the default per-receiver scope.
func SelfScope() Scope {
	return Scope{kind: ScopeSelf}
}

// ExplicitScope returns a scope shared by every receiver registered with an
// equal token. A nil token yields SelfScope.
func ExplicitScope(token any) Scope {
	if token == nil {
		return SelfScope()
	}
	return Scope{kind: ScopeExplicit, token: token}
}

// Kind reports the scope kind.
func (s Scope) Kind() ScopeKind {
	return s.kind
}

// Token returns the explicit scope token, nil for other kinds.
func (s Scope) Token() any {
	return s.token
}

// Resolve returns the value the scope partitions by for recv.
func (s Scope) Resolve(recv any) any {
	switch s.kind {
	case ScopeExplicit:
		return s.token
	case ScopeGlobal:
		return GlobalScope
	default:
		return recv
	}
}

func (s Scope) String() string {
	if s.kind == ScopeExplicit {
		return fmt.Sprintf("explicit(%v)", s.token)
	}
	return s.kind.String()
}

// identity returns the key segment for the resolved scope. Pointer-like
// receivers are compared by address, everything else by value.
func (s Scope) identity(serializer KeySerializer, recv any) string {
	switch s.kind {
	case ScopeGlobal:
		return "global"
	case ScopeExplicit:
		return serializer.SerializeKey("scope", s.token)
	}

	if recv == nil {
		return "self:nil"
	}

	rv := reflect.ValueOf(recv)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return fmt.Sprintf("self@%s:%#x", rv.Type().String(), rv.Pointer())
	case reflect.Slice:
		return fmt.Sprintf("self@%s:%#x:%d", rv.Type().String(), rv.Pointer(), rv.Len())
	}

	return serializer.SerializeKey("self", recv)
}
