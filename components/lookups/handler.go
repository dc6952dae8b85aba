package lookups

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/goliatone/go-backoffice/pkg/client"
	"github.com/goliatone/go-backoffice/pkg/model"
)

type HTTPError interface {
	error
	StatusCode() int
}

type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

type optionsResponse struct {
	Data []model.Option `json:"data"`
}

// Handler builds a net/http handler with default options plus any overrides.
func Handler(fns ...OptionFn) http.Handler {
	return HandlerWithOptions(NewOptions(fns...))
}

// HandlerWithOptions builds a handler from a pre-constructed Options value.
func HandlerWithOptions(opts Options) http.Handler {
	opts = NewOptions(func(o *Options) { *o = opts })
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r == nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", http.MethodGet+", "+http.MethodHead)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		if opts.Guard != nil {
			if err := opts.Guard(r); err != nil {
				writeStatusError(w, err, http.StatusForbidden)
				return
			}
		}

		var session client.Session
		if opts.Session != nil {
			resolved, err := opts.Session(r)
			if err != nil {
				writeStatusError(w, err, http.StatusUnauthorized)
				return
			}
			session = resolved
		}

		name := strings.TrimSpace(opts.SourceName(r))
		source, ok := opts.Sources[name]
		if !ok {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}

		query := r.URL.Query().Get(opts.SearchParam)
		limit := parseInt(r.URL.Query().Get(opts.LimitParam))

		candidates, err := source.Lookup(r.Context(), session, query)
		if err != nil {
			opts.Logger.WithError(err).WithField("source", name).Warn("lookup failed")
			code := http.StatusBadGateway
			if errors.Is(err, client.ErrNoSession) {
				code = http.StatusUnauthorized
			}
			http.Error(w, http.StatusText(code), code)
			return
		}

		results := Search(candidates, query, limit, opts)
		if results == nil {
			results = []model.Option{}
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		_ = json.NewEncoder(w).Encode(optionsResponse{Data: results})
	})
}

func writeStatusError(w http.ResponseWriter, err error, fallback int) {
	if w == nil {
		return
	}
	code := fallback
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr != nil {
		if status := httpErr.StatusCode(); status > 0 {
			code = status
		}
	}
	http.Error(w, http.StatusText(code), code)
}

func parseInt(raw string) int {
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}
