package render

import (
	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/goliatone/go-backoffice/pkg/notify"
)

// Mode is the display mode of a label-style field.
type Mode string

const (
	ModeView Mode = "view"
	ModeEdit Mode = "edit"
)

// StagedUpload describes a picked but not yet confirmed file for an image or
// banner field.
type StagedUpload struct {
	ID         string
	Filename   string
	PreviewURL string
	Size       int64
}

// RenderOptions describe per-request data that renderers use to customise
// their output without mutating the definition.
type RenderOptions struct {
	// Action is the form POST target. Empty means the current page.
	Action string
	// Values pre-populates controls keyed by field code.
	Values map[string]any
	// Errors carries field messages keyed by code; the "" key holds
	// form-level messages.
	Errors map[string][]string
	// Modes holds the view/edit mode of label fields. Missing means view.
	Modes map[string]Mode
	// Unlocked lists sensitive fields whose password check passed.
	Unlocked map[string]bool
	// Staged maps image/banner field codes to their pending upload.
	Staged map[string]StagedUpload
	// Notices are rendered as a toast list above the form.
	Notices []notify.Notice
	// Hidden inputs emitted alongside the visible fields.
	Hidden map[string]string
	// Visible restricts rendering to fields mapped to true. Nil renders all.
	Visible map[string]bool
	// Dirty lists fields changed since load, for change markers.
	Dirty map[string]bool
	// Pending marks array fields with row edits not yet applied.
	Pending map[string]bool
	// Options holds option lists fetched for select and checkbox-group
	// fields backed by an options source.
	Options map[string][]model.Option
	// Fragment asks for the form markup only, without the page document,
	// so a page shell can embed it.
	Fragment bool
}

// ModeOf returns the mode of a field, defaulting to view.
func (o RenderOptions) ModeOf(code string) Mode {
	if mode, ok := o.Modes[code]; ok && mode != "" {
		return mode
	}
	return ModeView
}

// IsVisible reports whether a field should be rendered.
func (o RenderOptions) IsVisible(code string) bool {
	if o.Visible == nil {
		return true
	}
	return o.Visible[code]
}

// FormErrors returns the form-level messages.
func (o RenderOptions) FormErrors() []string {
	return o.Errors[""]
}
