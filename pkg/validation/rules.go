// Package validation checks operator input against the constraints declared on
// a form definition. Each constraint compiles to a small OpenAPI schema so the
// same rule vocabulary the backend publishes is enforced before submit.
package validation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/goliatone/go-backoffice/pkg/model"
)

// Check is one compiled constraint of a field.
type Check struct {
	Kind    string
	Schema  *openapi3.Schema
	Message string
}

// FieldRules groups the compiled checks of a single field.
type FieldRules struct {
	Field    model.Field
	Required bool
	Numeric  bool
	Checks   []Check
}

// Rules maps field codes to their compiled checks.
type Rules map[string]FieldRules

// BuildRules compiles the validations of every field in the definition.
// Malformed thresholds or patterns are reported instead of ignored.
func BuildRules(form model.FormDefinition) (Rules, error) {
	rules := make(Rules, len(form.Fields))
	for _, field := range form.Fields {
		compiled, err := buildField(field)
		if err != nil {
			return nil, err
		}
		rules[field.Code] = compiled
	}
	return rules, nil
}

func buildField(field model.Field) (FieldRules, error) {
	out := FieldRules{Field: field, Required: field.Required, Numeric: isNumeric(field.Type)}
	label := field.DisplayLabel()

	if out.Numeric {
		out.Checks = append(out.Checks, Check{
			Kind:    "type",
			Schema:  openapi3.NewFloat64Schema(),
			Message: fmt.Sprintf("%s must be a number", label),
		})
	}

	for _, rule := range field.Validations {
		custom := strings.TrimSpace(rule.Params["message"])
		check := Check{Kind: rule.Kind}
		switch rule.Kind {
		case model.ValidationRuleRequired:
			out.Required = true
			continue
		case model.ValidationRuleMin, model.ValidationRuleMax:
			limit, err := floatParam(field, rule)
			if err != nil {
				return FieldRules{}, err
			}
			if rule.Kind == model.ValidationRuleMin {
				check.Schema = openapi3.NewFloat64Schema().WithMin(limit)
				check.Message = fmt.Sprintf("%s must be at least %s", label, rule.Params["value"])
			} else {
				check.Schema = openapi3.NewFloat64Schema().WithMax(limit)
				check.Message = fmt.Sprintf("%s must be at most %s", label, rule.Params["value"])
			}
		case model.ValidationRuleMinLength, model.ValidationRuleMaxLength:
			limit, err := intParam(field, rule)
			if err != nil {
				return FieldRules{}, err
			}
			if rule.Kind == model.ValidationRuleMinLength {
				check.Schema = openapi3.NewStringSchema().WithMinLength(limit)
				check.Message = fmt.Sprintf("%s must be at least %d characters", label, limit)
			} else {
				check.Schema = openapi3.NewStringSchema().WithMaxLength(limit)
				check.Message = fmt.Sprintf("%s must be at most %d characters", label, limit)
			}
		case model.ValidationRulePattern:
			pattern := rule.Params["pattern"]
			if pattern == "" {
				pattern = rule.Params["value"]
			}
			check.Schema = openapi3.NewStringSchema().WithPattern(pattern)
			if err := check.Schema.Validate(context.Background()); err != nil {
				return FieldRules{}, fmt.Errorf("validation: field %q: pattern %q: %w", field.Code, pattern, err)
			}
			check.Message = fmt.Sprintf("%s has an invalid format", label)
		default:
			return FieldRules{}, fmt.Errorf("validation: field %q: unknown rule %q", field.Code, rule.Kind)
		}
		if custom != "" {
			check.Message = custom
		}
		out.Checks = append(out.Checks, check)
	}

	if enum := optionEnum(field); enum != nil {
		schema := openapi3.NewStringSchema().WithEnum(enum...)
		if field.Type == model.FieldTypeCheckboxGroup {
			schema = openapi3.NewArraySchema().WithItems(schema)
		}
		out.Checks = append(out.Checks, Check{
			Kind:    "enum",
			Schema:  schema,
			Message: fmt.Sprintf("%s has an unknown option", label),
		})
	}
	return out, nil
}

// Validate checks values against the form's rules. Fields missing from the
// visible map (when it is non-nil) or mapped to false are skipped. The result
// maps field codes to messages and is empty when everything passes.
func Validate(ctx context.Context, form model.FormDefinition, values model.Values, visible map[string]bool) (map[string][]string, error) {
	rules, err := BuildRules(form)
	if err != nil {
		return nil, err
	}
	return rules.Validate(ctx, values, visible), nil
}

// Validate runs the compiled rules.
func (r Rules) Validate(ctx context.Context, values model.Values, visible map[string]bool) map[string][]string {
	codes := make([]string, 0, len(r))
	for code := range r {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := map[string][]string{}
	for _, code := range codes {
		if ctx.Err() != nil {
			break
		}
		if visible != nil && !visible[code] {
			continue
		}
		if messages := r[code].check(values[code]); len(messages) > 0 {
			out[code] = messages
		}
	}
	return out
}

func (f FieldRules) check(raw any) []string {
	if isEmpty(raw) {
		if f.Required {
			return []string{fmt.Sprintf("%s is required", f.Field.DisplayLabel())}
		}
		return nil
	}

	value, numericOK := coerce(raw, f.Numeric)
	var messages []string
	for _, check := range f.Checks {
		if check.Kind == "type" {
			if !numericOK {
				return []string{check.Message}
			}
			continue
		}
		if err := check.Schema.VisitJSON(value); err != nil {
			messages = append(messages, check.Message)
		}
	}
	return messages
}

// coerce converts form input into the JSON shapes the schemas expect.
// Numeric fields accept strings with thousand separators.
func coerce(raw any, numeric bool) (any, bool) {
	switch v := raw.(type) {
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, true
	case []any:
		return v, true
	}
	if !numeric {
		return fmt.Sprint(raw), true
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	text := strings.ReplaceAll(strings.TrimSpace(fmt.Sprint(raw)), ",", "")
	parsed, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return raw, false
	}
	return parsed, true
}

func isEmpty(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case bool:
		return !v
	}
	return false
}

func isNumeric(t model.FieldType) bool {
	return t == model.FieldTypeNumber || t == model.FieldTypeDecimal
}

func optionEnum(field model.Field) []any {
	if field.Type != model.FieldTypeSelect && field.Type != model.FieldTypeCheckboxGroup {
		return nil
	}
	if field.Config.OptionsSource != "" || len(field.Config.Options) == 0 {
		return nil
	}
	enum := make([]any, 0, len(field.Config.Options))
	for _, option := range field.Config.Options {
		enum = append(enum, option.Value)
	}
	return enum
}

func floatParam(field model.Field, rule model.ValidationRule) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(rule.Params["value"]), 64)
	if err != nil {
		return 0, fmt.Errorf("validation: field %q: rule %s: %w", field.Code, rule.Kind, err)
	}
	return value, nil
}

func intParam(field model.Field, rule model.ValidationRule) (int64, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(rule.Params["value"]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("validation: field %q: rule %s: %w", field.Code, rule.Kind, err)
	}
	return value, nil
}
