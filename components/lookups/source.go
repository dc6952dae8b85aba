package lookups

import (
	"context"
	"strings"

	"github.com/goliatone/go-backoffice/pkg/client"
	"github.com/goliatone/go-backoffice/pkg/model"
)

// Source produces the candidate options of a lookup. Query filtering and
// limits are applied by the handler afterwards.
type Source interface {
	Lookup(ctx context.Context, session client.Session, query string) ([]model.Option, error)
}

// SourceFunc adapts a function into a Source.
type SourceFunc func(ctx context.Context, session client.Session, query string) ([]model.Option, error)

// Lookup calls the underlying function.
func (fn SourceFunc) Lookup(ctx context.Context, session client.Session, query string) ([]model.Option, error) {
	return fn(ctx, session, query)
}

// OptionsFetcher is the data client call behind backend sources.
type OptionsFetcher interface {
	Options(ctx context.Context, session client.Session, cfg model.FieldConfig, query string) ([]model.Option, error)
}

// Backend returns a source that forwards to a backend option endpoint.
func Backend(fetcher OptionsFetcher, cfg model.FieldConfig) Source {
	return SourceFunc(func(ctx context.Context, session client.Session, query string) ([]model.Option, error) {
		return fetcher.Options(ctx, session, cfg, query)
	})
}

// Static returns a source serving a fixed option list.
func Static(options []model.Option) Source {
	copied := append([]model.Option(nil), options...)
	return SourceFunc(func(context.Context, client.Session, string) ([]model.Option, error) {
		return copied, nil
	})
}

// FromDefinitions builds backend sources for every options source named by
// the fields (and table columns) of the definitions, keyed by SourceName.
func FromDefinitions(fetcher OptionsFetcher, forms ...model.FormDefinition) map[string]Source {
	out := map[string]Source{}
	var visit func(fields []model.Field)
	visit = func(fields []model.Field) {
		for _, field := range fields {
			if name := SourceName(field.Config.OptionsSource); name != "" {
				if _, exists := out[name]; !exists {
					out[name] = Backend(fetcher, field.Config)
				}
			}
			visit(field.Config.Columns)
		}
	}
	for _, form := range forms {
		visit(form.Fields)
	}
	return out
}

// SourceName is the lookup name of an options source: its last path segment
// without query ("/lookups/branches?active=1" is "branches").
func SourceName(optionsSource string) string {
	name := strings.TrimSpace(optionsSource)
	if idx := strings.IndexAny(name, "?#"); idx >= 0 {
		name = name[:idx]
	}
	name = strings.TrimRight(name, "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}
