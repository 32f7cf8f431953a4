package cacheinfra

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-memoizer/memoize"
	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc backed side store.
type Config struct {
	// Capacity defines the maximum number of entries that the store can hold.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of shards for concurrent access.
	// Must be greater than 0. Default: 64
	NumShards int

	// TTL bounds how long an entry may outlive its query cache session.
	// Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the store reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often a background goroutine sweeps expired
	// entries. Zero disables the sweeper: expired entries are then skipped on
	// read and evicted once Capacity is reached. The sweeper goroutine lives
	// as long as the process, so only enable it for long lived stores.
	EvictionInterval time.Duration
}

// DefaultConfig returns a Config sized for a single request's worth of
// memoized results.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          64,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
		EvictionInterval:   0,
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Duration(1))),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
	)
}

// ToSturdycOptions maps the optional settings to sturdyc options. Capacity,
// NumShards, TTL and EvictionPercentage go to sturdyc.New directly.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	if c.EvictionInterval > 0 {
		return []sturdyc.Option{sturdyc.WithEvictionInterval(c.EvictionInterval)}
	}
	return []sturdyc.Option{sturdyc.WithNoContinuousEvictions()}
}

// entry boxes stored values so nil results are cached like any other.
type entry struct {
	value any
}

// SturdycStore implements memoize.Store on top of a sturdyc client.
type SturdycStore struct {
	client *sturdyc.Client[entry]
}

var _ memoize.Store = (*SturdycStore)(nil)

// NewSturdycStore validates cfg and creates an empty store.
func NewSturdycStore(cfg Config) (*SturdycStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[entry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycStore{client: client}, nil
}

// Lookup implements memoize.Store.
func (s *SturdycStore) Lookup(key memoize.Key) (any, bool) {
	e, ok := s.client.Get(key.String())
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Put implements memoize.Store.
func (s *SturdycStore) Put(key memoize.Key, value any) {
	s.client.Set(key.String(), entry{value: value})
}

// Clear removes every entry.
func (s *SturdycStore) Clear() {
	for _, key := range s.client.ScanKeys() {
		s.client.Delete(key)
	}
}

// Len returns the number of live entries.
func (s *SturdycStore) Len() int {
	return len(s.client.ScanKeys())
}
