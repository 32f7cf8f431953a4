package memoize

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sort"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/singleflight"
)

// Operation is the signature every memoizable operation is adapted to.
// recv is the instance the call was made on, or the *Table for type-level
// calls.
type Operation func(ctx context.Context, recv any, args ...any) (any, error)

// Memoizer derives keys, resolves hosts and runs the cache-check-then-compute
// path for every registered operation.
type Memoizer struct {
	serializer  KeySerializer
	defaultHost Host
	slot        string
	logger      *slog.Logger
	observer    Observer
	coalesce    bool

	group    singleflight.Group
	registry *xsync.MapOf[string, Registration]
	wrapped  atomic.Uint64
}

// Option configures a Memoizer.
type Option func(*Memoizer)

// WithKeySerializer replaces the default reflection based serializer.
func WithKeySerializer(serializer KeySerializer) Option {
	return func(m *Memoizer) {
		if serializer != nil {
			m.serializer = serializer
		}
	}
}

// WithDefaultHost sets the host used when neither the receiver nor the
// context provide one.
func WithDefaultHost(host Host) Option {
	return func(m *Memoizer) {
		m.defaultHost = host
	}
}

// WithSlot changes the slot name requested from hosts.
func WithSlot(slot string) Option {
	return func(m *Memoizer) {
		if slot != "" {
			m.slot = slot
		}
	}
}

// WithLogger sets the structured logger. Hits, misses and bypasses are
// logged at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Memoizer) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithObserver attaches an observer notified after every memoized call.
func WithObserver(observer Observer) Option {
	return func(m *Memoizer) {
		m.observer = observer
	}
}

// WithCoalescing collapses concurrent misses for the same key on the same
// store into a single computation. The first caller's context runs it, so
// its cancellation error is shared with every caller waiting on it. Stores
// that are not pointers are never coalesced.
func WithCoalescing() Option {
	return func(m *Memoizer) {
		m.coalesce = true
	}
}

// New creates a Memoizer.
func New(opts ...Option) *Memoizer {
	m := &Memoizer{
		serializer: NewDefaultKeySerializer(),
		slot:       DefaultSlot,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		registry:   xsync.NewMapOf[string, Registration](),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// KeySerializer returns the serializer used for key derivation.
func (m *Memoizer) KeySerializer() KeySerializer {
	return m.serializer
}

// Slot returns the slot name requested from hosts.
func (m *Memoizer) Slot() string {
	return m.slot
}

// DeriveKey builds the cache key for a call using the memoizer serializer.
func (m *Memoizer) DeriveKey(recv any, operation string, scope Scope, args ...any) Key {
	return DeriveKey(m.serializer, recv, operation, scope, args...)
}

// ResolveHost finds the host for a call: the receiver's own connection,
// then the context, then the default host.
func (m *Memoizer) ResolveHost(ctx context.Context, recv any) Host {
	if connector, ok := recv.(Connector); ok && !isNil(connector) {
		if host := connector.Connection(); !isNil(host) {
			return host
		}
	}

	if host, ok := HostFromContext(ctx); ok && !isNil(host) {
		return host
	}

	if !isNil(m.defaultHost) {
		return m.defaultHost
	}

	return nil
}

// ResolveStore returns the store for this call, or nil when results must
// not be cached. The result is valid for the current call only.
func (m *Memoizer) ResolveStore(ctx context.Context, recv any) Store {
	host := m.ResolveHost(ctx, recv)
	if host == nil || !host.QueryCacheEnabled() {
		return nil
	}

	store := host.StoreFor(m.slot)
	if isNil(store) {
		return nil
	}
	return store
}

// Registrations lists every registration made through this memoizer,
// ordered by table, level and operation.
func (m *Memoizer) Registrations() []Registration {
	var regs []Registration
	m.registry.Range(func(_ string, reg Registration) bool {
		regs = append(regs, reg)
		return true
	})
	sortRegistrations(regs)
	return regs
}

// Wrap memoizes a standalone operation. The returned function behaves like
// op but is routed through the memoizer under name.
func (m *Memoizer) Wrap(name string, op Operation, opts ...RegisterOption) (Operation, error) {
	table := m.NewTable(fmt.Sprintf("func:%s#%d", name, m.wrapped.Add(1)))
	table.Define(name, op)

	if err := table.Memoize(name, opts...); err != nil {
		return nil, err
	}

	return func(ctx context.Context, recv any, args ...any) (any, error) {
		return table.Call(ctx, recv, name, args...)
	}, nil
}

func (m *Memoizer) register(table *Table, reg Registration) {
	m.registry.Store(registryKey(table, reg), reg)
}

func (m *Memoizer) unregister(table *Table, reg Registration) {
	m.registry.Delete(registryKey(table, reg))
}

func registryKey(table *Table, reg Registration) string {
	return fmt.Sprintf("%p%s%s%s%s", table, KeySeparator, reg.Level, KeySeparator, reg.Operation)
}

// invoke runs the interception algorithm for one call.
func (m *Memoizer) invoke(ctx context.Context, reg *Registration, recv any, args []any) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()

	store := m.ResolveStore(ctx, recv)
	if store == nil {
		result, err := reg.original(ctx, recv, args...)
		m.observe(ctx, EventBypass, reg, Key{Operation: reg.Operation, Args: args}, start, err)
		return result, err
	}

	key := m.DeriveKey(recv, reg.Operation, reg.Scope, args...)

	if cached, ok := store.Lookup(key); ok {
		m.observe(ctx, EventHit, reg, key, start, nil)
		return cached, nil
	}

	result, err := m.compute(ctx, reg, store, key, recv, args)
	if err != nil {
		m.observe(ctx, EventError, reg, key, start, err)
		return result, err
	}

	store.Put(key, result)
	m.observe(ctx, EventMiss, reg, key, start, nil)

	return result, nil
}

func (m *Memoizer) compute(ctx context.Context, reg *Registration, store Store, key Key, recv any, args []any) (any, error) {
	if !m.coalesce {
		return reg.original(ctx, recv, args...)
	}

	flight, ok := flightKey(store, key)
	if !ok {
		return reg.original(ctx, recv, args...)
	}

	result, err, _ := m.group.Do(flight, func() (any, error) {
		return reg.original(ctx, recv, args...)
	})
	return result, err
}

// flightKey scopes a coalesced computation to the store it fills, so calls
// from different hosts never share a flight.
func flightKey(store Store, key Key) (string, bool) {
	rv := reflect.ValueOf(store)
	if rv.Kind() != reflect.Pointer {
		return "", false
	}
	return fmt.Sprintf("%#x", rv.Pointer()) + KeySeparator + key.String(), true
}

func (m *Memoizer) observe(ctx context.Context, kind EventKind, reg *Registration, key Key, start time.Time, err error) {
	event := Event{
		Kind:      kind,
		Table:     reg.Table,
		Operation: reg.Operation,
		Level:     reg.Level,
		Key:       key,
		Duration:  time.Since(start),
		Err:       err,
	}

	if m.logger.Enabled(ctx, slog.LevelDebug) {
		attrs := []any{
			"table", event.Table,
			"operation", event.Operation,
			"level", event.Level.String(),
			"scope", reg.Scope.String(),
			"key_digest", key.Digest(),
			"duration", event.Duration,
		}
		if err != nil {
			attrs = append(attrs, "error", err)
		}
		m.logger.DebugContext(ctx, "memoize "+string(kind), attrs...)
	}

	if m.observer != nil {
		m.observer.OnMemoizedCall(ctx, event)
	}
}

func sortRegistrations(regs []Registration) {
	sort.Slice(regs, func(i, j int) bool {
		if regs[i].Table != regs[j].Table {
			return regs[i].Table < regs[j].Table
		}
		if regs[i].Level != regs[j].Level {
			return regs[i].Level < regs[j].Level
		}
		return regs[i].Operation < regs[j].Operation
	})
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
