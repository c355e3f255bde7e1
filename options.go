package diaggo

import (
	"log/slog"

	"github.com/hupe1980/diaggo/basis"
	"github.com/hupe1980/diaggo/lanczos"
	"github.com/hupe1980/diaggo/resource"
	"github.com/hupe1980/diaggo/snapshot"
)

const (
	// DefaultPrecision is the relative change below which Lanczos
	// eigenvalues count as converged.
	DefaultPrecision = 1e-12
	// DefaultSeed seeds the random Lanczos start vector.
	DefaultSeed uint64 = 42
)

type options struct {
	workers          int
	metricsCollector MetricsCollector
	logger           *Logger
	resources        *resource.Controller
	basisOptions     []basis.Option
	precision        float64
	seed             uint64
	maxIterations    int
	deflationTol     float64
	compression      snapshot.Compression
}

// Option configures the functions of this package.
type Option func(*options)

// WithWorkers sets the number of goroutines used for term application.
// Values below 2 run serially.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := diaggo.NewJSONLogger(slog.LevelInfo)
//	res, err := diaggo.EigvalsLanczos(ctx, ops, b, 1, diaggo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithResources limits workers and charges dense matrices and Lanczos
// vectors to rc.
func WithResources(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithBasisOptions passes options to bases built internally, e.g. by
// OutputBasis.
func WithBasisOptions(opts ...basis.Option) Option {
	return func(o *options) {
		o.basisOptions = append(o.basisOptions, opts...)
	}
}

// WithPrecision sets the Lanczos convergence precision: the tolerated
// change of the eigenvalues per step, or for EigsLanczos the tolerated
// Ritz residual norm. Both are relative to the eigenvalue magnitude.
func WithPrecision(p float64) Option {
	return func(o *options) {
		if p > 0 {
			o.precision = p
		}
	}
}

// WithSeed seeds the random Lanczos start vector.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithMaxIterations bounds Lanczos runs.
func WithMaxIterations(n int) Option {
	return func(o *options) {
		o.maxIterations = n
	}
}

// WithDeflationTolerance sets the Lanczos deflation tolerance.
func WithDeflationTolerance(tol float64) Option {
	return func(o *options) {
		o.deflationTol = tol
	}
}

// WithSnapshotCompression sets the payload compression of SaveSnapshot.
// Default zstd.
func WithSnapshotCompression(c snapshot.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		precision:        DefaultPrecision,
		seed:             DefaultSeed,
		deflationTol:     -1,
		compression:      snapshot.CompressionZstd,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

func (o options) lanczosOptions() []lanczos.Option {
	opts := []lanczos.Option{lanczos.WithResources(o.resources)}
	if o.maxIterations > 0 {
		opts = append(opts, lanczos.WithMaxIterations(o.maxIterations))
	}
	if o.deflationTol >= 0 {
		opts = append(opts, lanczos.WithDeflationTolerance(o.deflationTol))
	}
	return opts
}
