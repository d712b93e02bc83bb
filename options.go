package retrodb

import (
	"log/slog"

	"github.com/hupe1980/retrodb/codec"
	"github.com/hupe1980/retrodb/internal/compress"
	"github.com/hupe1980/retrodb/internal/fs"
	"github.com/hupe1980/retrodb/resource"
)

type options struct {
	codec            codec.Codec
	compression      compress.Kind
	knnPath          string
	controller       *resource.Controller
	fs               fs.FileSystem
	metricsCollector MetricsCollector
	logger           *Logger
	verify           bool
}

// Option configures Publish, Fetch and NewRetriever.
type Option func(*options)

// WithCodec configures the codec used to encode manifests.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression sets the compression applied to published files.
// Fetch reads the compression of each file from the manifest.
func WithCompression(k compress.Kind) Option {
	return func(o *options) {
		o.compression = k
	}
}

// WithKNN publishes the KNN table at path together with the corpus.
func WithKNN(path string) Option {
	return func(o *options) {
		o.knnPath = path
	}
}

// WithController bounds transfer concurrency, buffer memory and bandwidth.
// Without one, all files of a corpus transfer at once without a rate limit.
func WithController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// WithFileSystem sets the file system used for local files.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

// WithVerify controls whether Fetch re-validates the index after download.
// It is on by default.
func WithVerify(verify bool) Option {
	return func(o *options) {
		o.verify = verify
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &retrodb.BasicMetricsCollector{}
//	_, _ = retrodb.Publish(ctx, store, prefix, "wiki", retrodb.WithMetricsCollector(metrics))
//	stats := metrics.GetStats()
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
//	logger := retrodb.NewJSONLogger(slog.LevelInfo)
//	prefix, _ := retrodb.Fetch(ctx, store, "wiki", dir, retrodb.WithLogger(logger))
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

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		compression:      compress.None,
		fs:               fs.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		verify:           true,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.fs == nil {
		o.fs = fs.Default
	}
	return o
}
