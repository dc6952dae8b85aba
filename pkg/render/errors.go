package render

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-backoffice/pkg/client"
	"github.com/goliatone/go-backoffice/pkg/model"
)

// ErrorMapping splits backend errors into field-level and form-level messages.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// Errors flattens the mapping into the RenderOptions.Errors shape, with
// form-level messages under the "" key.
func (m ErrorMapping) Errors() map[string][]string {
	if len(m.Fields) == 0 && len(m.Form) == 0 {
		return nil
	}
	out := make(map[string][]string, len(m.Fields)+1)
	for code, messages := range m.Fields {
		out[code] = append([]string(nil), messages...)
	}
	if len(m.Form) > 0 {
		out[""] = append([]string(nil), m.Form...)
	}
	return out
}

// MergeFormErrors concatenates form-level messages, trimming whitespace and
// removing duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// MapErrorPayload maps field-keyed messages onto the form. Keys may address
// table cells ("beneficiaries.0.iban", "/data/beneficiaries[0]/iban"); those
// resolve to the owning field. Unknown keys become form-level messages.
func MapErrorPayload(form model.FormDefinition, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}
	for rawKey, messages := range payload {
		clean := normalizeMessages(messages)
		if len(clean) == 0 {
			continue
		}
		if code, ok := resolveField(form, rawKey); ok {
			mapping.Fields[code] = normalizeMessages(append(mapping.Fields[code], clean...))
			continue
		}
		mapping.Form = append(mapping.Form, clean...)
	}
	return finish(mapping)
}

// MapErrorEntries maps the entries of a backend error[] array. Entries without
// a field, or naming a field the form does not have, are form-level.
func MapErrorEntries(form model.FormDefinition, entries []client.ErrorEntry) ErrorMapping {
	payload := make(map[string][]string, len(entries))
	for _, entry := range entries {
		message := strings.TrimSpace(entry.Message)
		if message == "" {
			message = strings.TrimSpace(entry.Code)
		}
		payload[entry.Field] = append(payload[entry.Field], message)
	}
	return MapErrorPayload(form, payload)
}

func finish(mapping ErrorMapping) ErrorMapping {
	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

func resolveField(form model.FormDefinition, raw string) (string, bool) {
	segments := pathSegments(raw)
	for len(segments) > 0 && isWrapper(segments[0]) {
		segments = segments[1:]
	}
	if len(segments) == 0 {
		return "", false
	}
	if field, ok := form.Field(segments[0]); ok {
		return field.Code, true
	}
	// Some backends report the column only; attribute it to the single table
	// owning that column.
	if len(segments) == 1 {
		owner := ""
		for _, field := range form.Fields {
			for _, column := range field.ColumnCodes() {
				if column == segments[0] {
					if owner != "" {
						return "", false
					}
					owner = field.Code
				}
			}
		}
		return owner, owner != ""
	}
	return "", false
}

func pathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	clean = strings.TrimLeft(clean, "#$/.")
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)
	parts := strings.FieldsFunc(clean, func(r rune) bool { return r == '.' || r == '/' })
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, err := strconv.Atoi(part); err == nil && len(out) == 0 {
			continue
		}
		out = append(out, part)
	}
	if isFormLevelKey(path) {
		return nil
	}
	return out
}

func isWrapper(segment string) bool {
	switch strings.ToLower(segment) {
	case "body", "request", "payload", "data":
		return true
	}
	return false
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "__all__", "non_field_errors":
		return true
	}
	return false
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
