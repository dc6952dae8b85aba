package components

import (
	"bytes"
	"html"
	"strconv"
	"strings"

	"github.com/goliatone/go-backoffice/pkg/model"
)

// checkboxGroupRenderer renders one checkbox per option; an option is checked
// when its value is contained in the field's array value.
func checkboxGroupRenderer(buf *bytes.Buffer, field model.Field, data ComponentData) error {
	selected := Strings(data.Value)
	var b strings.Builder

	b.WriteString(`<div class="bo-checkbox-group" role="group"`)
	writeAttr(&b, "id", ControlID(field.Code))
	writeAttr(&b, "aria-label", field.DisplayLabel())
	b.WriteString(`>`)
	if field.IsModify {
		writePresence(&b, PresenceKey, field.Code)
	}
	if len(data.Options) == 0 {
		b.WriteString(`<p class="bo-empty">No options available</p>`)
	}
	for idx, option := range data.Options {
		id := ControlID(field.Code) + "-" + strconv.Itoa(idx)
		b.WriteString(`<label class="bo-checkbox"><input type="checkbox"`)
		writeAttr(&b, "id", id)
		writeAttr(&b, "name", field.Code)
		writeAttr(&b, "value", option.Value)
		if contains(selected, option.Value) {
			b.WriteString(` checked`)
		}
		if !field.IsModify {
			b.WriteString(` disabled`)
		}
		b.WriteString(`> <span>`)
		b.WriteString(html.EscapeString(option.Label))
		b.WriteString(`</span></label>`)
	}
	b.WriteString(`</div>`)
	buf.WriteString(b.String())
	return nil
}
