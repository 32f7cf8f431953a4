package memoize

import "context"

// DefaultSlot is the reserved slot under which memoized results live in a
// host's cache container.
const DefaultSlot = "memoize"

// Host owns the cache lifecycle. The memoizer only asks it, per call,
// whether caching is on and for the side store under its slot.
type Host interface {
	QueryCacheEnabled() bool
	// StoreFor returns the store under slot, creating it when missing.
	// It returns nil when the host has no cache container.
	StoreFor(slot string) Store
}

// Connector is implemented by receivers that carry their own host.
type Connector interface {
	Connection() Host
}

type hostContextKey struct{}

// WithHost attaches host to ctx. Calls made with the returned context
// resolve to host unless the receiver provides its own.
func WithHost(ctx context.Context, host Host) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, hostContextKey{}, host)
}

// HostFromContext returns the host attached with WithHost.
func HostFromContext(ctx context.Context) (Host, bool) {
	if ctx == nil {
		return nil, false
	}
	host, ok := ctx.Value(hostContextKey{}).(Host)
	return host, ok && host != nil
}

// HostFunc adapts a pair of functions to Host. Handy in tests.
type HostFunc struct {
	Enabled func() bool
	Store   func(slot string) Store
}

// QueryCacheEnabled implements Host.
func (h HostFunc) QueryCacheEnabled() bool {
	return h.Enabled != nil && h.Enabled()
}

// StoreFor implements Host.
func (h HostFunc) StoreFor(slot string) Store {
	if h.Store == nil {
		return nil
	}
	return h.Store(slot)
}
