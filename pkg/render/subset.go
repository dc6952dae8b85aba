package render

import (
	"strings"

	"github.com/goliatone/go-backoffice/pkg/model"
)

// FieldSubset selects the fields a page tab shows out of a larger form. A
// field matches when its code is listed or its metadata "group" is listed.
type FieldSubset struct {
	Codes  []string `json:"fields,omitempty" yaml:"fields,omitempty"`
	Groups []string `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// Empty reports whether the subset selects everything.
func (s FieldSubset) Empty() bool {
	return len(s.Codes) == 0 && len(s.Groups) == 0
}

// ApplySubset removes fields outside the subset. An empty subset leaves the
// form unchanged.
func ApplySubset(form *model.FormDefinition, subset FieldSubset) {
	if form == nil || subset.Empty() {
		return
	}
	codes := tokenSet(subset.Codes, false)
	groups := tokenSet(subset.Groups, true)

	filtered := make([]model.Field, 0, len(form.Fields))
	for _, field := range form.Fields {
		if _, ok := codes[field.Code]; ok {
			filtered = append(filtered, field)
			continue
		}
		group := strings.ToLower(strings.TrimSpace(field.Metadata["group"]))
		if _, ok := groups[group]; ok && group != "" {
			filtered = append(filtered, field)
		}
	}
	form.Fields = filtered
}

func tokenSet(values []string, fold bool) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if fold {
			value = strings.ToLower(value)
		}
		if value != "" {
			out[value] = struct{}{}
		}
	}
	return out
}
