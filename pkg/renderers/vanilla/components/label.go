package components

import (
	"bytes"
	"html"
	"strings"

	"github.com/goliatone/go-backoffice/pkg/editable"
	"github.com/goliatone/go-backoffice/pkg/format"
	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/goliatone/go-backoffice/pkg/render"
	"github.com/goliatone/go-backoffice/pkg/widgets"
)

// PasswordKey is the posted name of the sensitive-unlock password.
const PasswordKey = "_password"

// labelRenderer toggles between a formatted display value and a type-specific
// input. Sensitive fields ask for the operator password before the input is
// shown.
func labelRenderer(buf *bytes.Buffer, field model.Field, data ComponentData) error {
	var b strings.Builder
	b.WriteString(`<div class="bo-label"`)
	writeAttr(&b, "id", ControlID(field.Code))
	writeAttr(&b, "data-mode", string(data.Mode))
	b.WriteString(`>`)

	switch {
	case data.Mode != render.ModeEdit || !field.IsModify:
		b.WriteString(`<span class="bo-label-value">`)
		b.WriteString(html.EscapeString(DisplayValue(field, data.Value, data.Options, data.Unlocked)))
		b.WriteString(`</span>`)
		if field.IsModify {
			writeActionButton(&b, FieldAction(data.Action, field.Code, "toggle"), "Edit", "bo-button--link", false)
		}
	case field.IsSensitive && !data.Unlocked:
		b.WriteString(`<span class="bo-label-value">`)
		b.WriteString(html.EscapeString(format.Mask(data.Value, 4)))
		b.WriteString(`</span><input type="password" autocomplete="current-password" class="bo-input"`)
		writeAttr(&b, "name", PasswordKey)
		writeAttr(&b, "aria-label", "Password")
		b.WriteString(`>`)
		writeActionButton(&b, FieldAction(data.Action, field.Code, "unlock"), "Unlock", "bo-button--primary", false)
		writeActionButton(&b, FieldAction(data.Action, field.Code, "toggle"), "Cancel", "bo-button--link", false)
	default:
		if data.RenderChild == nil {
			b.WriteString(html.EscapeString(Text(data.Value)))
		} else {
			child, err := data.RenderChild(editable.InputKind(field), field, data.Value)
			if err != nil {
				return err
			}
			b.WriteString(child)
		}
		writeActionButton(&b, FieldAction(data.Action, field.Code, "toggle"), "Done", "bo-button--link", false)
	}
	b.WriteString(`</div>`)
	buf.WriteString(b.String())
	return nil
}

// DisplayValue formats a label value for view mode. Sensitive values stay
// masked until unlocked.
func DisplayValue(field model.Field, value any, options []model.Option, unlocked bool) string {
	if field.IsSensitive && !unlocked {
		return format.Mask(value, 4)
	}
	switch editable.InputKind(field) {
	case widgets.WidgetSelect:
		return optionLabel(options, Text(value))
	case widgets.WidgetDecimal:
		return format.Decimal(value, decimalPlaces(field))
	case widgets.WidgetDate:
		return DateValue(value)
	case widgets.WidgetCheckbox:
		return Text(Bool(value))
	}
	return Text(value)
}

func unsupportedRenderer(buf *bytes.Buffer, field model.Field, _ ComponentData) error {
	buf.WriteString(`<p class="bo-unsupported">Unsupported field type "`)
	buf.WriteString(html.EscapeString(string(field.Type)))
	buf.WriteString(`"</p>`)
	return nil
}
