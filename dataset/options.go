package dataset

import (
	"log/slog"

	"github.com/hupe1980/retrodb/internal/fs"
	"github.com/hupe1980/retrodb/internal/mmap"
)

type options struct {
	fs     fs.FileSystem
	logger *slog.Logger
	advice mmap.AccessPattern
}

// Option configures Open and NewBuilder.
type Option func(*options)

// WithFileSystem sets the file system the builder writes through.
// Readers always map the real file system.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys != nil {
			o.fs = fsys
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithAccessPattern sets the kernel hint for the data mapping.
// The default is mmap.AccessRandom, matching chunk lookups during training.
func WithAccessPattern(p mmap.AccessPattern) Option {
	return func(o *options) {
		o.advice = p
	}
}

func applyOptions(opts []Option) options {
	o := options{
		fs:     fs.Default,
		logger: slog.New(slog.DiscardHandler),
		advice: mmap.AccessRandom,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// IndexPath returns the index file name for a dataset prefix.
func IndexPath(prefix string) string { return prefix + ".idx" }

// DataPath returns the data file name for a dataset prefix.
func DataPath(prefix string) string { return prefix + ".bin" }
