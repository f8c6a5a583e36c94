// Package runtimeconfig holds the runtime-wide knobs a host can tune
// when constructing a story-flow runtime: locale, PRNG seed, the
// internal-node pass-through depth cap, the compiled-expression cache
// size and the undefined-variable policy.
package runtimeconfig

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Defaults applied by New when an option does not override them.
const (
	DefaultMaxDepth      = 1000
	DefaultCacheCapacity = 256
)

// Config carries the runtime's tunable settings. The zero seed means
// "seed from the clock" and is resolved by the runtime, not here, so a
// config value can round-trip through YAML without freezing a
// wall-clock read into the document.
type Config struct {
	// Locale overrides the project's own locale when non-empty.
	Locale string `yaml:"locale"`

	// Seed seeds the runtime's PRNG; 0 means seed from the clock.
	Seed int64 `yaml:"seed"`

	// MaxDepth caps how many internal nodes one next_node call may pass
	// through before the walker gives up and ends the traversal.
	MaxDepth int `yaml:"max_depth"`

	// CacheCapacity bounds the compiled-expression LRU.
	CacheCapacity int `yaml:"cache_capacity"`

	// StrictUndefined makes a read of an unbound variable an evaluation
	// error rather than a nil read.
	StrictUndefined bool `yaml:"strict_undefined"`
}

// Option mutates a Config during New.
type Option func(*Config)

// WithLocale overrides the project's locale.
func WithLocale(locale string) Option {
	return func(c *Config) { c.Locale = locale }
}

// WithSeed fixes the PRNG seed, making RND/SRND and Random-node picks
// reproducible across runs.
func WithSeed(seed int64) Option {
	return func(c *Config) { c.Seed = seed }
}

// WithMaxDepth overrides the internal-node pass-through depth cap.
func WithMaxDepth(depth int) Option {
	return func(c *Config) { c.MaxDepth = depth }
}

// WithCacheCapacity overrides the compiled-expression cache bound.
func WithCacheCapacity(capacity int) Option {
	return func(c *Config) { c.CacheCapacity = capacity }
}

// WithStrictUndefined toggles the undefined-variable policy.
func WithStrictUndefined(strict bool) Option {
	return func(c *Config) { c.StrictUndefined = strict }
}

// New builds a Config from defaults plus options.
func New(opts ...Option) *Config {
	c := &Config{
		MaxDepth:        DefaultMaxDepth,
		CacheCapacity:   DefaultCacheCapacity,
		StrictUndefined: true,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FromYAML parses a YAML document into a Config, starting from the
// same defaults New applies so an empty document is a valid config.
func FromYAML(data []byte) (*Config, error) {
	c := New()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("runtimeconfig: %w", err)
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.CacheCapacity <= 0 {
		c.CacheCapacity = DefaultCacheCapacity
	}
	return c, nil
}
