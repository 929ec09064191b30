package bfs

import (
	"io"
	"log/slog"
)

// Option configures Create, Open and New.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

func newOptions(opts []Option) *options {
	o := &options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger used for open, close, format and allocation
// events. By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
