package components

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/goliatone/go-backoffice/pkg/format"
	"github.com/goliatone/go-backoffice/pkg/model"
)

// Form field names shared with the HTTP handlers that read posted values.
const (
	// PresenceKey lists the scalar fields a post carries, so unchecked
	// checkboxes and empty checkbox groups are still applied.
	PresenceKey = "_fields"
	// TablePresenceKey lists the table fields whose cells a post carries.
	TablePresenceKey = "_tables"
)

const templatePrefix = "templates/components/"

// ControlID is the DOM id of a field control.
func ControlID(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	return "bo-" + code
}

// CellName is the posted name of one table cell.
func CellName(code string, row int, column string) string {
	return code + "." + strconv.Itoa(row) + "." + column
}

// ParseCellName splits a posted cell name. ok is false for other names.
func ParseCellName(name string) (code string, row int, column string, ok bool) {
	parts := strings.SplitN(name, ".", 3)
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return "", 0, "", false
	}
	row, err := strconv.Atoi(parts[1])
	if err != nil || row < 0 {
		return "", 0, "", false
	}
	return parts[0], row, parts[2], true
}

// FieldAction is the URL of a per-field action below the form action.
func FieldAction(action, code, verb string) string {
	return strings.TrimRight(action, "/") + "/fields/" + code + "/" + verb
}

// TableAction is the URL of a table action below the form action.
func TableAction(action, code string, parts ...string) string {
	out := strings.TrimRight(action, "/") + "/tables/" + code
	for _, part := range parts {
		out += "/" + part
	}
	return out
}

// UploadAction is the URL of an upload action below the form action.
func UploadAction(action, code string, parts ...string) string {
	out := strings.TrimRight(action, "/") + "/uploads/" + code
	for _, part := range parts {
		out += "/" + part
	}
	return out
}

// Text renders a scalar value for display.
func Text(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "Yes"
		}
		return "No"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprint(value)
}

// Bool reads a checkbox value.
func Bool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	case float64:
		return v != 0
	case int:
		return v != 0
	}
	return false
}

// Strings reads a multi-valued field value.
func Strings(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, Text(item))
		}
		return out
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return strings.Split(v, ",")
	}
	return []string{Text(value)}
}

// DateValue normalises backend timestamps to the yyyy-mm-dd form date inputs
// expect.
func DateValue(value any) string {
	return format.Date(Text(value))
}

func optionLabel(options []model.Option, value string) string {
	for _, option := range options {
		if option.Value == value {
			return option.Label
		}
	}
	return value
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func writeAttr(b *strings.Builder, name, value string) {
	b.WriteByte(' ')
	b.WriteString(name)
	b.WriteString(`="`)
	b.WriteString(html.EscapeString(value))
	b.WriteByte('"')
}

func writePresence(b *strings.Builder, key, code string) {
	b.WriteString(`<input type="hidden"`)
	writeAttr(b, "name", key)
	writeAttr(b, "value", code)
	b.WriteString(`>`)
}

// writeActionButton renders a submit button that posts the whole form to a
// different action.
func writeActionButton(b *strings.Builder, action, label, class string, multipart bool) {
	b.WriteString(`<button type="submit" formmethod="post"`)
	writeAttr(b, "formaction", action)
	if multipart {
		writeAttr(b, "formenctype", "multipart/form-data")
	}
	writeAttr(b, "class", strings.TrimSpace("bo-button "+class))
	b.WriteString(`>`)
	b.WriteString(html.EscapeString(label))
	b.WriteString(`</button>`)
}
