package lanczos

import (
	"context"
	"log/slog"

	"github.com/hupe1980/diaggo/resource"
)

const (
	// DefaultMaxIterations bounds a run that neither converges nor deflates.
	DefaultMaxIterations = 1000
	// DefaultDeflationTolerance is the residual norm below which the Krylov
	// space counts as exhausted.
	DefaultDeflationTolerance = 1e-7
)

// ReduceFunc sums a rank-local partial result over all ranks. It is a
// collective operation: every rank must call it in the same order.
type ReduceFunc func(ctx context.Context, local float64) (float64, error)

// Option configures a Lanczos run.
type Option func(*options)

type options struct {
	maxIterations int
	deflationTol  float64
	reduce        ReduceFunc
	resources     *resource.Controller
	logger        *slog.Logger
}

func applyOptions(opts []Option) options {
	o := options{
		maxIterations: DefaultMaxIterations,
		deflationTol:  DefaultDeflationTolerance,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithMaxIterations sets the iteration limit.
func WithMaxIterations(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

// WithDeflationTolerance sets the residual norm that ends the run as
// deflated.
func WithDeflationTolerance(tol float64) Option {
	return func(o *options) {
		if tol >= 0 {
			o.deflationTol = tol
		}
	}
}

// WithReduce makes inner products and norms collective: each rank computes
// its partial sum and f combines them. Use it for distributed vectors.
func WithReduce(f ReduceFunc) Option {
	return func(o *options) { o.reduce = f }
}

// WithResources charges the Lanczos work vectors to rc. A budget that
// cannot hold them fails the run with ErrAllocationFailure.
func WithResources(rc *resource.Controller) Option {
	return func(o *options) { o.resources = rc }
}

// WithLogger enables iteration logging. A nil logger is silent.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}
