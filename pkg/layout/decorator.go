package layout

import (
	"strings"

	"github.com/goliatone/go-backoffice/pkg/model"
)

// Metadata keys written by the decorator.
const (
	MetadataGroup     = "group"
	MetadataWidget    = "widget"
	MetadataCSSClass  = "cssClass"
	MetadataHideLabel = "hideLabel"
)

// Decorator applies form layouts to definitions.
type Decorator struct {
	store *Store
}

// NewDecorator builds a Decorator backed by store. A nil or empty store makes
// it a no-op.
func NewDecorator(store *Store) *Decorator {
	return &Decorator{store: store}
}

// Decorate applies the layout registered for the form code, if any.
func (d *Decorator) Decorate(form *model.FormDefinition) error {
	if d == nil || d.store.Empty() || form == nil {
		return nil
	}
	layout, ok := d.store.Form(form.FormCode)
	if !ok {
		return nil
	}
	if title := strings.TrimSpace(layout.Title); title != "" {
		form.Title = title
	}
	for idx := range form.Fields {
		if cfg, ok := layout.Fields[form.Fields[idx].Code]; ok {
			form.Fields[idx] = applyField(form.Fields[idx], cfg)
		}
	}
	return nil
}

func applyField(field model.Field, cfg FieldLayout) model.Field {
	if cfg.Order != nil {
		field.Order = *cfg.Order
	}
	if cfg.Grid != nil {
		field.Grid = *cfg.Grid
	}
	if cfg.Label != "" {
		field.Label = cfg.Label
	}
	if cfg.Description != "" {
		field.Description = cfg.Description
	}
	if cfg.Placeholder != "" {
		field.Placeholder = cfg.Placeholder
	}

	metadata := make(map[string]string, len(field.Metadata)+len(cfg.Metadata)+4)
	for key, value := range field.Metadata {
		metadata[key] = value
	}
	for key, value := range cfg.Metadata {
		metadata[key] = value
	}
	set := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			metadata[key] = value
		}
	}
	set(MetadataGroup, cfg.Group)
	set(MetadataWidget, cfg.Widget)
	set(MetadataCSSClass, cfg.CSSClass)
	if cfg.HideLabel {
		metadata[MetadataHideLabel] = "true"
	}
	if len(metadata) > 0 {
		field.Metadata = metadata
	}
	return field
}
