package di

import (
	"io"
	"log/slog"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-memoizer/memoize"
	"github.com/goliatone/go-memoizer/querycache"
	"github.com/goliatone/go-memoizer/repositorymemo"
)

// Config groups the settings the container wires into its components.
type Config struct {
	// QueryCache configures connections created with NewConnection.
	QueryCache querycache.Config
	// Slot overrides memoize.DefaultSlot.
	Slot string
	// Coalescing collapses concurrent misses for the same key on one store.
	Coalescing bool
	// Logger is shared by the memoizer and every connection. Nil discards.
	Logger *slog.Logger
	// Observer receives an event for every memoized call, see pkg/metrics.
	Observer memoize.Observer
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return Config{
		QueryCache: querycache.DefaultConfig(),
		Slot:       memoize.DefaultSlot,
	}
}

// Container provides dependency injection for memoization components.
// It owns a single memoizer and creates connections and memoized
// repositories bound to it.
type Container struct {
	memoizer      *memoize.Memoizer
	keySerializer memoize.KeySerializer
	logger        *slog.Logger
	config        Config
}

// NewContainer creates a new DI container with the provided configuration.
func NewContainer(config Config) (*Container, error) {
	if err := config.QueryCache.Validate(); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	keySerializer := memoize.NewDefaultKeySerializer()

	opts := []memoize.Option{
		memoize.WithKeySerializer(keySerializer),
		memoize.WithLogger(logger),
		memoize.WithSlot(config.Slot),
	}
	if config.Coalescing {
		opts = append(opts, memoize.WithCoalescing())
	}
	if config.Observer != nil {
		opts = append(opts, memoize.WithObserver(config.Observer))
	}

	return &Container{
		memoizer:      memoize.New(opts...),
		keySerializer: keySerializer,
		logger:        logger,
		config:        config,
	}, nil
}

// NewContainerWithDefaults creates a new DI container using default configuration.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(DefaultConfig())
}

// Memoizer returns the singleton memoizer.
func (c *Container) Memoizer() *memoize.Memoizer {
	return c.memoizer
}

// KeySerializer returns the singleton key serializer instance.
func (c *Container) KeySerializer() memoize.KeySerializer {
	return c.keySerializer
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() Config {
	return c.config
}

// NewConnection creates a cache host configured from the container. Extra
// options are applied after the container's own.
func (c *Container) NewConnection(opts ...querycache.Option) (*querycache.Connection, error) {
	all := append([]querycache.Option{querycache.WithLogger(c.logger)}, opts...)
	return querycache.New(c.config.QueryCache, all...)
}

// NewMemoizedRepository wraps base so its reads are memoized by the
// container's memoizer.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewMemoizedRepository[User](container, baseUserRepository)
func NewMemoizedRepository[T any](container *Container, base repository.Repository[T], opts ...repositorymemo.Option) (*repositorymemo.MemoizedRepository[T], error) {
	return repositorymemo.New[T](base, container.memoizer, opts...)
}
