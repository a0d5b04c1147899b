package hierarchy

import (
	"io"
	"path"

	"github.com/sirupsen/logrus"
)

// Option configures a Hierarchy or one of its walkers.
type Option func(*options)

type options struct {
	logger   logrus.FieldLogger
	excluded map[string]struct{}
}

// WithLogger routes walk diagnostics to logger. Without it they are dropped.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithExcluded leaves the given root-relative, slash-separated paths out of
// data walks.
func WithExcluded(paths ...string) Option {
	return func(o *options) {
		if o.excluded == nil {
			o.excluded = make(map[string]struct{}, len(paths))
		}
		for _, p := range paths {
			o.excluded[p] = struct{}{}
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: discardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fsPath maps a root-relative path to the name used against the filesystem.
// The root itself is the empty relative path.
func fsPath(rel string) string {
	if rel == "" {
		return "."
	}
	return rel
}

func joinRel(dir, name string) string {
	if dir == "" {
		return name
	}
	return path.Join(dir, name)
}
