// Package layout loads page documents: the pages of the admin with their
// tabs, and per-form presentation overrides (order, grid spans, labels,
// groups) applied to fetched definitions before rendering.
package layout

import (
	"strings"

	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/goliatone/go-backoffice/pkg/render"
)

// Store keeps the parsed pages and form layouts. It is safe for concurrent
// readers when treated as immutable after construction.
type Store struct {
	pages map[string]Page
	forms map[string]FormLayout
}

// Page is one admin page made of tabs.
type Page struct {
	ID     string `json:"-" yaml:"-"`
	Title  string `json:"title" yaml:"title"`
	Tabs   []Tab  `json:"tabs" yaml:"tabs"`
	Source string `json:"-" yaml:"-"`
}

// Tab shows either a static page or a dynamic form. Fields and Groups
// restrict a dynamic form to a subset.
type Tab struct {
	ID       string   `json:"id" yaml:"id"`
	Title    string   `json:"title" yaml:"title"`
	Icon     string   `json:"icon,omitempty" yaml:"icon,omitempty"`
	FormCode string   `json:"formCode,omitempty" yaml:"formCode,omitempty"`
	Static   string   `json:"static,omitempty" yaml:"static,omitempty"`
	Fields   []string `json:"fields,omitempty" yaml:"fields,omitempty"`
	Groups   []string `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// Subset returns the field subset of the tab.
func (t Tab) Subset() render.FieldSubset {
	return render.FieldSubset{Codes: t.Fields, Groups: t.Groups}
}

// Tab looks up a tab by id. An empty id selects the first tab.
func (p Page) Tab(id string) (Tab, bool) {
	id = strings.TrimSpace(id)
	if len(p.Tabs) == 0 {
		return Tab{}, false
	}
	if id == "" {
		return p.Tabs[0], true
	}
	for _, tab := range p.Tabs {
		if tab.ID == id {
			return tab, true
		}
	}
	return Tab{}, false
}

// FormLayout overrides the presentation of one form.
type FormLayout struct {
	Title  string                 `json:"title,omitempty" yaml:"title,omitempty"`
	Fields map[string]FieldLayout `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// FieldLayout customises one field. Zero values leave the definition as is.
type FieldLayout struct {
	Order       *int              `json:"order,omitempty" yaml:"order,omitempty"`
	Grid        *model.Grid       `json:"grid,omitempty" yaml:"grid,omitempty"`
	Label       string            `json:"label,omitempty" yaml:"label,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Placeholder string            `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Group       string            `json:"group,omitempty" yaml:"group,omitempty"`
	Widget      string            `json:"widget,omitempty" yaml:"widget,omitempty"`
	CSSClass    string            `json:"cssClass,omitempty" yaml:"cssClass,omitempty"`
	HideLabel   bool              `json:"hideLabel,omitempty" yaml:"hideLabel,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Page returns a page by id.
func (s *Store) Page(id string) (Page, bool) {
	if s == nil {
		return Page{}, false
	}
	page, ok := s.pages[strings.TrimSpace(id)]
	return page, ok
}

// Pages returns the page ids in no particular order.
func (s *Store) Pages() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.pages))
	for id := range s.pages {
		ids = append(ids, id)
	}
	return ids
}

// Form returns the layout of a form.
func (s *Store) Form(code string) (FormLayout, bool) {
	if s == nil {
		return FormLayout{}, false
	}
	layout, ok := s.forms[strings.TrimSpace(code)]
	return layout, ok
}

// Empty reports whether the store holds nothing.
func (s *Store) Empty() bool {
	return s == nil || (len(s.pages) == 0 && len(s.forms) == 0)
}
