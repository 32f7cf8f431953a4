// Package memoize provides transparent memoization of operation results scoped
// to an externally managed cache lifecycle, such as an ORM's per-request query
// cache.
//
// # Overview
//
// The package has three responsibilities:
//
//   - Interception: a Table holds a type's operations; memoized operations are
//     replaced by a wrapper that routes calls through the Memoizer
//   - Key derivation: a Key is built from the resolved Scope, the operation
//     name and the ordered argument list
//   - Cache access: a Store is obtained from a Host on every call; the Host
//     owns the store lifecycle, the Memoizer never creates or clears it
//
// # Basic Usage
//
//	m := memoize.New(memoize.WithDefaultHost(conn))
//
//	users := m.NewTable("user")
//	users.Define("Permissions", func(ctx context.Context, recv any, args ...any) (any, error) {
//		return loadPermissions(ctx, recv.(*User), args[0].(string))
//	})
//	if err := users.Memoize("Permissions"); err != nil {
//		return err
//	}
//
//	perms, err := memoize.Call[[]string](ctx, users, user, "Permissions", "billing")
//
// # Scopes
//
// Cached results are partitioned by scope:
//
//   - SelfScope (default): the receiver; pointer receivers compare by address
//   - WithScope(token): every registration with an equal token shares entries,
//     across tables
//   - MemoizeGlobally: one partition for every receiver and every table
//
// Scope is resolved on every call.
//
// # Hosts
//
// The host for a call is resolved in order from the receiver (Connector), the
// context (WithHost) and the memoizer default (WithDefaultHost). When no host
// is found, the host reports the query cache disabled, or it has no cache
// container, the call executes directly and nothing is stored.
//
// # Inheritance
//
// A table created with Extends sees its parent's operations, including
// memoized wrappers. Memoization binds to the body present when Memoize ran:
// a child that defines its own body under the same name bypasses the cache.
//
// # Error Handling
//
// Registration errors are go-errors values wrapping ErrOperationNotFound or
// ErrAlreadyMemoized, so errors.Is works. Errors returned by a memoized
// operation are propagated unchanged and never cached.
package memoize
