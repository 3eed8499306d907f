package strand

import (
	"log/slog"
	"time"
)

// An Option configures a [Context] at creation.
type Option func(c *Context)

// WithCarrierSource selects the carrier supply strategy for the context.
// The default is [DefaultPool].
func WithCarrierSource(src CarrierSource) Option {
	return func(c *Context) {
		if src == nil {
			panic("strand: nil carrier source")
		}
		c.src = src
	}
}

// WithLogger sets the context's structured logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) {
		if l == nil {
			panic("strand: nil logger")
		}
		c.log = l
	}
}

// WithMetrics enables instrumentation of the context.
func WithMetrics(m *Metrics) Option {
	return func(c *Context) {
		c.metrics = m
	}
}

// A PoolOption configures an [ElasticPool] at creation.
type PoolOption func(p *ElasticPool)

// WithMaxCarriers bounds the number of live carriers. Zero, the default,
// means unbounded. When the pool is at its bound, dispatched turns queue
// until a carrier frees up.
func WithMaxCarriers(n int) PoolOption {
	return func(p *ElasticPool) {
		if n < 0 {
			panic("strand: negative carrier bound")
		}
		p.max = n
	}
}

// WithKeepAlive sets how long an idle carrier stays alive before
// retiring. A non-positive d retires carriers as soon as they go idle.
func WithKeepAlive(d time.Duration) PoolOption {
	return func(p *ElasticPool) {
		p.keepAlive = d
	}
}

// WithPoolLogger sets the pool's structured logger. The default discards.
func WithPoolLogger(l *slog.Logger) PoolOption {
	return func(p *ElasticPool) {
		if l == nil {
			panic("strand: nil logger")
		}
		p.log = l
	}
}

// WithPoolMetrics enables instrumentation of the pool.
func WithPoolMetrics(m *Metrics) PoolOption {
	return func(p *ElasticPool) {
		p.metrics = m
	}
}
