package components

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/goliatone/go-backoffice/pkg/render"
)

// richText strips scripts, handlers and unsafe URLs from backend-supplied HTML
// before it is shown in view mode.
var richText = bluemonday.UGCPolicy()

// SanitizeHTML applies the rich text policy.
func SanitizeHTML(raw string) string {
	return richText.Sanitize(raw)
}

func areaRenderer(buf *bytes.Buffer, field model.Field, data ComponentData) error {
	var b strings.Builder
	if data.Mode == render.ModeEdit && field.IsModify {
		writePresence(&b, PresenceKey, field.Code)
		b.WriteString(`<textarea rows="6" class="bo-textarea"`)
		writeAttr(&b, "id", ControlID(field.Code))
		writeAttr(&b, "name", field.Code)
		if field.Placeholder != "" {
			writeAttr(&b, "placeholder", field.Placeholder)
		}
		if field.Required {
			b.WriteString(` required`)
		}
		if len(data.Errors) > 0 {
			b.WriteString(` aria-invalid="true"`)
		}
		b.WriteString(`>`)
		b.WriteString(html.EscapeString(Text(data.Value)))
		b.WriteString(`</textarea>`)
		writeActionButton(&b, FieldAction(data.Action, field.Code, "toggle"), "Done", "bo-button--link", false)
		buf.WriteString(b.String())
		return nil
	}

	b.WriteString(`<div class="bo-richtext"`)
	writeAttr(&b, "id", ControlID(field.Code))
	b.WriteString(`>`)
	b.WriteString(SanitizeHTML(Text(data.Value)))
	b.WriteString(`</div>`)
	if field.IsModify {
		writeActionButton(&b, FieldAction(data.Action, field.Code, "toggle"), "Edit", "bo-button--link", false)
	}
	buf.WriteString(b.String())
	return nil
}
