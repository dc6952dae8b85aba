package render

import (
	"fmt"
	"sort"
	"strings"
)

// Hidden input names understood by the form handlers.
const (
	HiddenCSRF     = "_csrf"
	HiddenFormCode = "form_code"
	HiddenVersion  = "_version"
	HiddenReturnTo = "_return"
)

// HiddenField is a hidden input emitted alongside the visible fields.
type HiddenField struct {
	Name  string
	Value string
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{Name: strings.TrimSpace(name), Value: fmt.Sprint(value)}
}

// CSRFToken carries the anti-forgery token bound to the session.
func CSRFToken(token string) HiddenField {
	return Hidden(HiddenCSRF, token)
}

// FormCode identifies the definition a submission belongs to.
func FormCode(code string) HiddenField {
	return Hidden(HiddenFormCode, code)
}

// VersionField carries the state version for stale-submit detection.
func VersionField(version any) HiddenField {
	return Hidden(HiddenVersion, version)
}

// MergeHiddenFields returns a copy of base with the fields applied. Empty
// names are ignored; later fields win on name collisions.
func MergeHiddenFields(base map[string]string, fields ...HiddenField) map[string]string {
	out := make(map[string]string, len(base)+len(fields))
	for key, value := range base {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			out[trimmed] = value
		}
	}
	for _, field := range fields {
		if name := strings.TrimSpace(field.Name); name != "" {
			out[name] = field.Value
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SortedHiddenFields orders hidden fields by name for deterministic output.
func SortedHiddenFields(fields map[string]string) []HiddenField {
	if len(fields) == 0 {
		return nil
	}
	result := make([]HiddenField, 0, len(fields))
	for name, value := range fields {
		if name = strings.TrimSpace(name); name != "" {
			result = append(result, HiddenField{Name: name, Value: value})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}
