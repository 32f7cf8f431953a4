package querycache

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-memoizer/internal/cacheinfra"
	"github.com/kelseyhightower/envconfig"
)

// DefaultEnvPrefix is the prefix LoadConfig uses when none is given, so
// capacity is read from MEMOIZE_QUERY_CACHE_CAPACITY.
const DefaultEnvPrefix = "MEMOIZE_QUERY_CACHE"

// Config exposes the side store configuration for consumers of the
// querycache package.
type Config struct {
	Capacity           int           `envconfig:"CAPACITY" default:"10000"`
	NumShards          int           `envconfig:"NUM_SHARDS" default:"64"`
	TTL                time.Duration `envconfig:"TTL" default:"5m"`
	EvictionPercentage int           `envconfig:"EVICTION_PERCENTAGE" default:"10"`
	EvictionInterval   time.Duration `envconfig:"EVICTION_INTERVAL" default:"0s"`
	// Enabled turns the query cache on for new connections.
	Enabled bool `envconfig:"ENABLED" default:"false"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if err := c.toInternal().Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid query cache configuration").
			WithTextCode("QUERY_CACHE_INVALID_CONFIG")
	}
	return nil
}

// LoadConfig reads a Config from the environment. Unset variables take the
// defaults above. An empty prefix means DefaultEnvPrefix.
func LoadConfig(prefix string) (Config, error) {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}

	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return Config{}, goerrors.Wrap(err, goerrors.CategoryValidation, "failed to read query cache configuration").
			WithTextCode("QUERY_CACHE_ENV").
			WithMetadata(map[string]any{"prefix": prefix})
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
