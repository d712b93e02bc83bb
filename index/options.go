package index

import (
	"log/slog"

	"github.com/hupe1980/retrodb/internal/fs"
)

type options struct {
	fs     fs.FileSystem
	logger *slog.Logger
}

// Option configures a Writer.
type Option func(*options)

// WithFileSystem sets the file system the writer creates its file on.
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

func applyOptions(opts []Option) options {
	o := options{
		fs:     fs.Default,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
