package widgets

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-backoffice/pkg/model"
)

// Built-in widget identifiers exposed by the registry.
const (
	WidgetInput         = "input"
	WidgetArea          = "area"
	WidgetDecimal       = "decimal"
	WidgetDate          = "date"
	WidgetSelect        = "select"
	WidgetCheckbox      = "checkbox"
	WidgetCheckboxGroup = "checkbox-group"
	WidgetImage         = "image"
	WidgetBanner        = "banner"
	WidgetLabelBanner   = "label-banner"
	WidgetTable         = "table"
	WidgetTableDynamic  = "table-dynamic"
	WidgetPosting       = "posting"
	WidgetLabel         = "label"
	WidgetUnsupported   = "unsupported"
)

// Matcher decides whether a widget renderer should handle the supplied field.
type Matcher func(field model.Field) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Option configures a Registry.
type Option func(*Registry)

// WithFallback names the widget used for fields no binding or matcher claims.
// Without a fallback such fields resolve to nothing and are skipped.
func WithFallback(name string) Option {
	return func(r *Registry) {
		r.fallback = strings.TrimSpace(name)
	}
}

// Registry is the field dispatcher. Sensitive scalar fields always resolve to
// the label widget. Otherwise the order is: explicit widget metadata, exact
// type binding, then matchers (higher priority first, ties by registration
// order), then the optional fallback.
type Registry struct {
	mu       sync.RWMutex
	bindings map[model.FieldType]string
	rules    []rule
	fallback string
}

// NewRegistry constructs a registry with the built-in type bindings.
func NewRegistry(options ...Option) *Registry {
	reg := &Registry{bindings: make(map[model.FieldType]string)}
	reg.registerBuiltins()
	for _, opt := range options {
		if opt != nil {
			opt(reg)
		}
	}
	return reg
}

// Bind maps a field type tag to a widget name, replacing existing bindings.
func (r *Registry) Bind(fieldType model.FieldType, widget string) {
	if r == nil {
		return
	}
	key := model.FieldType(strings.ToLower(strings.TrimSpace(string(fieldType))))
	widget = strings.TrimSpace(widget)
	if key == "" || widget == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[key] = widget
}

// Register adds a widget matcher with the provided name and priority. Matchers
// run only when no explicit hint or type binding applies.
func (r *Registry) Register(name string, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Resolve returns the widget name for a field.
func (r *Registry) Resolve(field model.Field) (string, bool) {
	if Masked(field) {
		return WidgetLabel, true
	}
	if explicit := field.Widget(); explicit != "" {
		return explicit, true
	}
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	widget, bound := r.bindings[field.Type]
	rules := append([]rule(nil), r.rules...)
	fallback := r.fallback
	r.mu.RUnlock()

	if bound {
		return widget, true
	}

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(field) {
			return entry.name, true
		}
	}
	if fallback != "" {
		return fallback, true
	}
	return "", false
}

// Decorate implements model.Decorator, stamping Metadata["widget"] on every
// field the registry resolves. Table columns are decorated too so cell editors
// pick the right primitive input.
func (r *Registry) Decorate(form *model.FormDefinition) error {
	if r == nil || form == nil {
		return nil
	}
	form.Fields = r.decorateFields(form.Fields)
	return nil
}

func (r *Registry) decorateFields(fields []model.Field) []model.Field {
	if len(fields) == 0 {
		return fields
	}
	decorated := make([]model.Field, len(fields))
	for idx, field := range fields {
		decorated[idx] = r.decorateField(field)
	}
	return decorated
}

func (r *Registry) decorateField(field model.Field) model.Field {
	if widget, ok := r.Resolve(field); ok && widget != "" {
		metadata := make(map[string]string, len(field.Metadata)+1)
		for key, value := range field.Metadata {
			metadata[key] = value
		}
		metadata["widget"] = widget
		field.Metadata = metadata
	}
	if len(field.Config.Columns) > 0 {
		field.Config.Columns = r.decorateFields(field.Config.Columns)
	}
	return field
}

// Masked reports whether a field holds a sensitive scalar. Such fields render
// masked and are edited only after the operator password is verified, which
// the label widget provides. Tables, uploads and checkbox groups keep their
// own widgets.
func Masked(field model.Field) bool {
	if !field.IsSensitive || field.Type.IsArray() {
		return false
	}
	switch field.Type {
	case model.FieldTypeImage, model.FieldTypeCheckboxGroup:
		return false
	}
	return true
}

func (r *Registry) registerBuiltins() {
	r.bindings[model.FieldTypeText] = WidgetInput
	r.bindings[model.FieldTypeNumber] = WidgetInput
	r.bindings[model.FieldTypeTextarea] = WidgetArea
	r.bindings[model.FieldTypeArea] = WidgetArea
	r.bindings[model.FieldTypeDecimal] = WidgetDecimal
	r.bindings[model.FieldTypeDate] = WidgetDate
	r.bindings[model.FieldTypeSelect] = WidgetSelect
	r.bindings[model.FieldTypeCheckbox] = WidgetCheckbox
	r.bindings[model.FieldTypeCheckboxGroup] = WidgetCheckboxGroup
	r.bindings[model.FieldTypeImage] = WidgetImage
	r.bindings[model.FieldTypeBanner] = WidgetBanner
	r.bindings[model.FieldTypeLabelBanner] = WidgetLabelBanner
	r.bindings[model.FieldTypeTable] = WidgetTable
	r.bindings[model.FieldTypeTableDynamic] = WidgetTableDynamic
	r.bindings[model.FieldTypePosting] = WidgetPosting
	r.bindings[model.FieldTypeLabel] = WidgetLabel

	// Legacy definitions sometimes ship "multiselect"/"checkboxes" with static
	// options instead of the checkbox-group tag.
	r.Register(WidgetCheckboxGroup, 50, func(field model.Field) bool {
		tag := strings.ToLower(string(field.Type))
		return (tag == "multiselect" || tag == "checkboxes") && len(field.Config.Options) > 0
	})
	r.Register(WidgetSelect, 40, func(field model.Field) bool {
		return len(field.Config.Options) > 0 || field.Config.OptionsSource != ""
	})
}
