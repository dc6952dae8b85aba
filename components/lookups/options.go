package lookups

import (
	"io"
	"net/http"
	"strings"

	"github.com/goliatone/go-backoffice/pkg/client"
	"github.com/sirupsen/logrus"
)

type EmptySearchMode string

const (
	EmptySearchNone EmptySearchMode = "none"
	EmptySearchTop  EmptySearchMode = "top"
)

// GuardFunc rejects a request before any source is queried.
type GuardFunc func(r *http.Request) error

// SessionFunc extracts the backend session of a request.
type SessionFunc func(r *http.Request) (client.Session, error)

// SourceNameFunc returns the requested source name.
type SourceNameFunc func(r *http.Request) string

type Options struct {
	RoutePath       string
	SearchParam     string
	LimitParam      string
	DefaultLimit    int
	MaxLimit        int
	EmptySearchMode EmptySearchMode
	Guard           GuardFunc
	Session         SessionFunc
	SourceName      SourceNameFunc
	Logger          logrus.FieldLogger

	Sources map[string]Source
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		RoutePath:       "/api/lookups/",
		SearchParam:     "q",
		LimitParam:      "limit",
		DefaultLimit:    20,
		MaxLimit:        100,
		EmptySearchMode: EmptySearchTop,
	}
}

func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 20
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 100
	}
	if opts.EmptySearchMode == "" {
		opts.EmptySearchMode = EmptySearchTop
	}
	if opts.RoutePath == "" {
		opts.RoutePath = "/api/lookups/"
	}
	if opts.SearchParam == "" {
		opts.SearchParam = "q"
	}
	if opts.LimitParam == "" {
		opts.LimitParam = "limit"
	}
	if opts.SourceName == nil {
		opts.SourceName = lastSegment
	}
	if opts.Logger == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		opts.Logger = logger
	}
	if opts.Sources != nil {
		sources := make(map[string]Source, len(opts.Sources))
		for name, source := range opts.Sources {
			sources[name] = source
		}
		opts.Sources = sources
	}
	return opts
}

func WithRoutePath(path string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.RoutePath = path
	}
}

func WithSearchParam(name string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.SearchParam = name
	}
}

func WithLimitParam(name string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.LimitParam = name
	}
}

func WithDefaultLimit(limit int) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.DefaultLimit = limit
	}
}

func WithMaxLimit(limit int) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.MaxLimit = limit
	}
}

func WithEmptySearchMode(mode EmptySearchMode) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.EmptySearchMode = mode
	}
}

func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Guard = guard
	}
}

func WithSession(fn SessionFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Session = fn
	}
}

// WithSourceName overrides how the source name is read from the request,
// e.g. from router parameters.
func WithSourceName(fn SourceNameFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.SourceName = fn
	}
}

func WithLogger(logger logrus.FieldLogger) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Logger = logger
	}
}

// WithSource registers a named source.
func WithSource(name string, source Source) OptionFn {
	return func(o *Options) {
		if o == nil || source == nil {
			return
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if o.Sources == nil {
			o.Sources = map[string]Source{}
		}
		o.Sources[name] = source
	}
}

func clampLimit(limit int, opts Options) int {
	if limit < 0 {
		return 0
	}
	if limit == 0 {
		limit = opts.DefaultLimit
	}
	if opts.MaxLimit > 0 && limit > opts.MaxLimit {
		return opts.MaxLimit
	}
	return limit
}

func lastSegment(r *http.Request) string {
	path := strings.TrimRight(r.URL.Path, "/")
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
