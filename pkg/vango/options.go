package vango

import (
	"context"
	"log/slog"
)

// Config holds runtime settings.
type Config struct {
	// Logger receives runtime diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// Observer is notified of renders, events, and task completions.
	Observer Observer

	// MaxRenderPasses bounds how many times one scope may render during a
	// single RenderImmediate. A component that marks itself dirty on every
	// render trips this limit and terminates the runtime with E008. The
	// number of dirty scopes is not limited.
	MaxRenderPasses int

	// Context is the parent of every task context.
	Context context.Context

	rootContexts []func(rt *Runtime)
}

// DefaultConfig returns the default runtime settings.
func DefaultConfig() Config {
	return Config{
		Logger:          slog.Default(),
		MaxRenderPasses: 100,
		Context:         context.Background(),
	}
}

// Option configures a Runtime.
type Option func(*Config)

// WithLogger sets the runtime logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithObserver installs an observer.
func WithObserver(o Observer) Option {
	return func(c *Config) { c.Observer = o }
}

// WithMaxRenderPasses bounds the renders of one scope per RenderImmediate.
func WithMaxRenderPasses(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxRenderPasses = n
		}
	}
}

// WithContext sets the parent context of every task.
func WithContext(ctx context.Context) Option {
	return func(c *Config) {
		if ctx != nil {
			c.Context = ctx
		}
	}
}

// WithRootContext provides value to every component before the first render.
func WithRootContext[T any](value T) Option {
	return func(c *Config) {
		c.rootContexts = append(c.rootContexts, func(rt *Runtime) {
			ProvideRootContext(rt, value)
		})
	}
}
