package components

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goliatone/go-backoffice/pkg/format"
	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/goliatone/go-backoffice/pkg/widgets"
)

// templateControl renders a primitive control through the template engine.
func templateControl(name string) Renderer {
	templateName := templatePrefix + name + ".tmpl"
	return func(buf *bytes.Buffer, field model.Field, data ComponentData) error {
		if data.Template == nil {
			return fmt.Errorf("components: template renderer not configured for %q", templateName)
		}
		rendered, err := data.Template.RenderTemplate(templateName, controlPayload(name, field, data))
		if err != nil {
			return fmt.Errorf("components: render template %q: %w", templateName, err)
		}
		buf.WriteString(rendered)
		return nil
	}
}

func controlPayload(name string, field model.Field, data ComponentData) map[string]any {
	payload := map[string]any{
		"id":          ControlID(field.Code),
		"name":        field.Code,
		"label":       field.DisplayLabel(),
		"placeholder": field.Placeholder,
		"required":    field.Required,
		"readonly":    !field.IsModify,
		"invalid":     len(data.Errors) > 0,
		"presence":    PresenceKey,
		"value":       Text(data.Value),
	}

	switch name {
	case widgets.WidgetInput:
		payload["type"] = "text"
		if field.Type == model.FieldTypeNumber {
			payload["type"] = "number"
		}
	case widgets.WidgetDecimal:
		payload["value"] = ""
		if data.Value != nil && Text(data.Value) != "" {
			payload["value"] = format.Decimal(data.Value, decimalPlaces(field))
		}
	case widgets.WidgetDate:
		payload["value"] = DateValue(data.Value)
	case widgets.WidgetCheckbox:
		payload["checked"] = Bool(data.Value)
	case widgets.WidgetSelect:
		selected := Text(data.Value)
		options := make([]map[string]any, 0, len(data.Options))
		for _, option := range data.Options {
			options = append(options, map[string]any{
				"label":    option.Label,
				"value":    option.Value,
				"selected": option.Value == selected,
			})
		}
		payload["options"] = options
	}
	return payload
}

func decimalPlaces(field model.Field) int32 {
	switch v := field.Config.Extra["places"].(type) {
	case float64:
		return int32(v)
	case int:
		return int32(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return int32(n)
		}
	}
	return format.DefaultPlaces
}
