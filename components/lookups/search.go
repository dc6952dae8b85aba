package lookups

import (
	"sort"
	"strings"

	"github.com/goliatone/go-backoffice/pkg/model"
)

// Search filters options whose label or value contains the query, ranking
// label prefix matches first. Source order is kept within a rank.
func Search(options []model.Option, query string, limit int, opts Options) []model.Option {
	limit = clampLimit(limit, opts)
	if limit == 0 {
		return nil
	}

	query = strings.TrimSpace(query)
	if query == "" {
		if opts.EmptySearchMode == EmptySearchTop {
			if len(options) <= limit {
				return append([]model.Option{}, options...)
			}
			return append([]model.Option{}, options[:limit]...)
		}
		return nil
	}

	q := strings.ToLower(query)
	matches := make([]matchedOption, 0, 32)
	for _, option := range options {
		label := strings.ToLower(option.Label)
		if !strings.Contains(label, q) && !strings.Contains(strings.ToLower(option.Value), q) {
			continue
		}
		matches = append(matches, matchedOption{option: option, isPrefix: strings.HasPrefix(label, q)})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].isPrefix && !matches[j].isPrefix
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]model.Option, 0, len(matches))
	for _, match := range matches {
		out = append(out, match.option)
	}
	return out
}

type matchedOption struct {
	option   model.Option
	isPrefix bool
}
