// Package repositorymemo memoizes the reads of go-repository-bun repositories
// for the lifetime of a query cache.
//
// # Overview
//
// MemoizedRepository wraps a base repository and routes its read operations
// through a memoize.Table. A read made while the resolved cache host has its
// query cache enabled is computed once and then served from the host's side
// store until the host clears it. Everything else is delegated to the base
// repository.
//
// # Basic Usage
//
//	memoizer := memoize.New()
//	users, err := repositorymemo.New[*User](base, memoizer)
//	if err != nil {
//		return err
//	}
//
//	err = conn.Cache(ctx, func(ctx context.Context) error {
//		u1, _ := users.GetByID(ctx, "user-123") // hits the database
//		u2, _ := users.GetByID(ctx, "user-123") // served from the query cache
//		return nil
//	})
//
// # Memoized vs Pass-through Operations
//
// Memoized (read-only):
//   - Get, GetByID, GetByIdentifier
//   - List, Count
//
// Pass-through:
//   - All write operations (Create, Update, Upsert, Delete and variants)
//   - All transaction-based operations (*Tx methods)
//   - Raw SQL queries
//
// Writes do not invalidate memoized reads. Entries live until the host
// clears its query cache, usually at the end of a Cache block.
//
// # Criteria
//
// Select criteria are functions and cannot be compared. A read with criteria
// is memoized only when the context labels them:
//
//	ctx = repositorymemo.WithCriteriaKey(ctx, "active")
//	users, total, err := repo.List(ctx, activeOnly)
//
// Equal labels must describe equal criteria. Unlabeled reads with criteria
// go to the base repository every time.
//
// # Scopes
//
// By default entries are partitioned per decorator. WithScope shares them
// between decorators of the same table created with an equal token, and
// WithGlobalScope between every decorator of the table. Table names default
// to the snake-cased record type and can be set with WithTableName.
//
// # Error Handling
//
// Errors from the base repository are propagated unchanged and are never
// cached.
package repositorymemo
