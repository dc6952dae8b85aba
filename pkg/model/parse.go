package model

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// ErrEmptyDefinition is returned when a definition payload carries no bytes.
var ErrEmptyDefinition = errors.New("model: form definition is empty")

// ParseDefinition decodes a form definition from JSON, falling back to YAML so
// hand-written definitions on disk can use either format.
func ParseDefinition(data []byte) (FormDefinition, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return FormDefinition{}, ErrEmptyDefinition
	}

	var form FormDefinition
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &form); err != nil {
			return FormDefinition{}, fmt.Errorf("model: decode form definition: %w", err)
		}
	} else if err := yaml.Unmarshal(trimmed, &form); err != nil {
		return FormDefinition{}, fmt.Errorf("model: decode form definition: %w", err)
	}

	if err := form.normalize(); err != nil {
		return FormDefinition{}, err
	}
	return form, nil
}

func (f *FormDefinition) normalize() error {
	f.FormCode = strings.TrimSpace(f.FormCode)
	if f.FormCode == "" {
		return errors.New("model: form_code is required")
	}
	seen := make(map[string]struct{}, len(f.Fields))
	for idx := range f.Fields {
		field := &f.Fields[idx]
		field.Code = strings.TrimSpace(field.Code)
		field.Type = FieldType(strings.ToLower(strings.TrimSpace(string(field.Type))))
		if field.Code == "" {
			return fmt.Errorf("model: field %d in %q has no code", idx, f.FormCode)
		}
		if _, dup := seen[field.Code]; dup {
			return fmt.Errorf("model: duplicate field code %q in %q", field.Code, f.FormCode)
		}
		seen[field.Code] = struct{}{}
		if field.Required && !hasRule(field.Validations, ValidationRuleRequired) {
			field.Validations = append(field.Validations, ValidationRule{Kind: ValidationRuleRequired})
		}
	}
	return nil
}

func hasRule(rules []ValidationRule, kind string) bool {
	for _, rule := range rules {
		if rule.Kind == kind {
			return true
		}
	}
	return false
}
