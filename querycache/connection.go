package querycache

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/goliatone/go-memoizer/internal/cacheinfra"
	"github.com/goliatone/go-memoizer/memoize"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// StoreFactory creates the side store for a slot.
type StoreFactory func(slot string) (memoize.Store, error)

// Option configures a Connection.
type Option func(*Connection)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Connection) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStoreFactory replaces the sturdyc backed store factory.
func WithStoreFactory(factory StoreFactory) Option {
	return func(c *Connection) {
		if factory != nil {
			c.factory = factory
		}
	}
}

// Connection is a cache host. It holds the query cache flag and a container
// of side stores keyed by slot name.
type Connection struct {
	id      string
	logger  *slog.Logger
	factory StoreFactory

	mu      sync.RWMutex
	enabled bool

	slots *xsync.MapOf[string, memoize.Store]
}

var (
	_ memoize.Host      = (*Connection)(nil)
	_ memoize.Connector = (*Connection)(nil)
)

// New validates cfg and creates a Connection. The query cache starts in the
// state given by cfg.Enabled.
func New(cfg Config, opts ...Option) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	internal := cfg.toInternal()

	c := &Connection{
		id:      uuid.NewString(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		enabled: cfg.Enabled,
		slots:   xsync.NewMapOf[string, memoize.Store](),
		factory: func(string) (memoize.Store, error) {
			return cacheinfra.NewSturdycStore(internal)
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With(slog.String("connection_id", c.id))

	return c, nil
}

// ID returns the connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// Connection returns c, so a connection can act as its own Connector.
func (c *Connection) Connection() memoize.Host {
	return c
}

// QueryCacheEnabled implements memoize.Host.
func (c *Connection) QueryCacheEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// EnableQueryCache turns the query cache on.
func (c *Connection) EnableQueryCache() {
	c.setEnabled(true)
}

// DisableQueryCache turns the query cache off. Stored entries are kept.
func (c *Connection) DisableQueryCache() {
	c.setEnabled(false)
}

func (c *Connection) setEnabled(enabled bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	previous := c.enabled
	c.enabled = enabled
	return previous
}

// Cache runs fn with the query cache enabled and the connection attached to
// the context passed to fn. The previous state is restored however fn
// exits. If the cache was off before, everything cached during the block is
// dropped.
func (c *Connection) Cache(ctx context.Context, fn func(ctx context.Context) error) error {
	previous := c.setEnabled(true)
	defer func() {
		c.setEnabled(previous)
		if !previous {
			c.ClearQueryCache()
		}
	}()

	return fn(memoize.WithHost(ctx, c))
}

// Uncached runs fn with the query cache disabled. Entries survive the block.
func (c *Connection) Uncached(ctx context.Context, fn func(ctx context.Context) error) error {
	previous := c.setEnabled(false)
	defer c.setEnabled(previous)

	return fn(memoize.WithHost(ctx, c))
}

// clearer is implemented by stores that can be emptied in place.
type clearer interface {
	Clear()
}

// ClearQueryCache empties every slot. Stores that can clear themselves are
// kept for reuse; any other store is dropped and the next StoreFor creates a
// fresh one.
func (c *Connection) ClearQueryCache() {
	cleared, dropped := 0, 0
	c.slots.Range(func(slot string, store memoize.Store) bool {
		cleared++
		if s, ok := store.(clearer); ok {
			s.Clear()
			return true
		}
		c.slots.Delete(slot)
		dropped++
		return true
	})
	c.logger.Debug("query cache cleared",
		slog.Int("slots", cleared),
		slog.Int("dropped", dropped),
	)
}

// StoreFor implements memoize.Host. It returns the store under slot,
// creating it through the store factory when missing, or nil when the
// factory fails.
func (c *Connection) StoreFor(slot string) memoize.Store {
	if store, ok := c.slots.Load(slot); ok {
		return store
	}

	store, _ := c.slots.Compute(slot, func(current memoize.Store, loaded bool) (memoize.Store, bool) {
		if loaded {
			return current, false
		}

		created, err := c.factory(slot)
		if err != nil || created == nil {
			c.logger.Warn("failed to create side store",
				slog.String("slot", slot),
				slog.Any("error", err),
			)
			return nil, true
		}

		c.logger.Debug("side store created", slog.String("slot", slot))
		return created, false
	})

	return store
}
