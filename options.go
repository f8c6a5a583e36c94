package storyflow

import (
	"io"

	"github.com/narrativeflow/storyflow/internal/runtimeconfig"
)

// Option tunes a Runtime at construction time.
type Option func(*Runtime)

// WithLocale overrides the project's own locale for rendering and
// condition evaluation.
func WithLocale(locale string) Option {
	return func(r *Runtime) { runtimeconfig.WithLocale(locale)(r.cfg) }
}

// WithSeed fixes the PRNG seed so Random nodes and RND/SRND variations
// replay identically; 0 (the default) seeds from the clock.
func WithSeed(seed int64) Option {
	return func(r *Runtime) { runtimeconfig.WithSeed(seed)(r.cfg) }
}

// WithMaxDepth caps how many internal nodes one NextNode call may pass
// through before the walker ends the traversal.
func WithMaxDepth(depth int) Option {
	return func(r *Runtime) { runtimeconfig.WithMaxDepth(depth)(r.cfg) }
}

// WithCacheCapacity bounds the compiled-expression cache.
func WithCacheCapacity(capacity int) Option {
	return func(r *Runtime) { runtimeconfig.WithCacheCapacity(capacity)(r.cfg) }
}

// WithStrictUndefined controls whether reading an unbound variable is
// an evaluation error (default) or a nil read.
func WithStrictUndefined(strict bool) Option {
	return func(r *Runtime) { runtimeconfig.WithStrictUndefined(strict)(r.cfg) }
}

// WithConfig replaces the whole config, e.g. one parsed from YAML via
// runtimeconfig.FromYAML.
func WithConfig(cfg *runtimeconfig.Config) Option {
	return func(r *Runtime) {
		if cfg != nil {
			r.cfg = cfg
		}
	}
}

// WithLogWriter directs the runtime's console log to w.
func WithLogWriter(w io.Writer) Option {
	return func(r *Runtime) { r.logger = NewLogger(w) }
}

// WithLogger installs a pre-built Logger (e.g. NewStructuredLogger over
// the host's zerolog instance).
func WithLogger(l *Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}
