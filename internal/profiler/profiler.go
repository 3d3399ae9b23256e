// Package profiler asks a language model for a cluster-count estimate and for
// one marketing persona per customer cluster.
package profiler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BerylCAtieno/customer-persona-agent/internal/errs"
)

// Generator produces raw text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Profiler holds the model client. It keeps no per-request state and is safe
// for concurrent use.
type Profiler struct {
	gen     Generator
	logger  *zap.Logger
	timeout time.Duration
	maxK    int
}

type Option func(*Profiler)

// WithTimeout bounds every model call. Expiry surfaces as an UpstreamError.
func WithTimeout(d time.Duration) Option {
	return func(p *Profiler) { p.timeout = d }
}

// WithMaxK rejects estimates above n. Zero disables the check.
func WithMaxK(n int) Option {
	return func(p *Profiler) { p.maxK = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Profiler) { p.logger = l }
}

func New(gen Generator, opts ...Option) *Profiler {
	p := &Profiler{gen: gen, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// call runs one model round trip under the configured timeout.
func (p *Profiler) call(ctx context.Context, op, prompt string) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	start := time.Now()
	text, err := p.gen.Generate(ctx, prompt)
	if err != nil {
		p.logger.Warn("model call failed", zap.String("op", op), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return "", &errs.UpstreamError{Op: op, Err: err}
	}
	p.logger.Debug("model call done",
		zap.String("op", op),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("response_bytes", len(text)))
	return text, nil
}
