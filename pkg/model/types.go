package model

import (
	"sort"
	"strings"
)

// FieldType is the type tag the backend attaches to every field. Unknown tags
// are preserved verbatim so the dispatcher can decide how to handle them.
type FieldType string

const (
	FieldTypeText          FieldType = "text"
	FieldTypeTextarea      FieldType = "textarea"
	FieldTypeArea          FieldType = "area"
	FieldTypeNumber        FieldType = "number"
	FieldTypeDecimal       FieldType = "decimal"
	FieldTypeDate          FieldType = "date"
	FieldTypeSelect        FieldType = "select"
	FieldTypeCheckbox      FieldType = "checkbox"
	FieldTypeCheckboxGroup FieldType = "checkbox-group"
	FieldTypeImage         FieldType = "image"
	FieldTypeBanner        FieldType = "banner"
	FieldTypeLabelBanner   FieldType = "label-banner"
	FieldTypeTable         FieldType = "table"
	FieldTypeTableDynamic  FieldType = "table-dynamic"
	FieldTypePosting       FieldType = "posting"
	FieldTypeLabel         FieldType = "label"
)

// KnownFieldTypes lists every type tag the built-in widgets understand.
var KnownFieldTypes = []FieldType{
	FieldTypeText, FieldTypeTextarea, FieldTypeArea, FieldTypeNumber,
	FieldTypeDecimal, FieldTypeDate, FieldTypeSelect, FieldTypeCheckbox,
	FieldTypeCheckboxGroup, FieldTypeImage, FieldTypeBanner,
	FieldTypeLabelBanner, FieldTypeTable, FieldTypeTableDynamic,
	FieldTypePosting, FieldTypeLabel,
}

// Known reports whether t is one of the built-in type tags.
func (t FieldType) Known() bool {
	for _, candidate := range KnownFieldTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsArray reports whether the field value is an array of rows.
func (t FieldType) IsArray() bool {
	switch t {
	case FieldTypeTable, FieldTypeTableDynamic, FieldTypeBanner, FieldTypeLabelBanner, FieldTypePosting:
		return true
	}
	return false
}

const (
	ValidationRuleRequired  = "required"
	ValidationRuleMin       = "min"
	ValidationRuleMax       = "max"
	ValidationRuleMinLength = "minLength"
	ValidationRuleMaxLength = "maxLength"
	ValidationRulePattern   = "pattern"
)

// ValidationRule is a single constraint. Thresholds live in Params["value"],
// patterns in Params["pattern"], and an optional override message in
// Params["message"].
type ValidationRule struct {
	Kind   string            `json:"kind" yaml:"kind"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// Grid holds 12-column spans per breakpoint. Zero means full width.
type Grid struct {
	XS int `json:"xs,omitempty" yaml:"xs,omitempty"`
	SM int `json:"sm,omitempty" yaml:"sm,omitempty"`
	MD int `json:"md,omitempty" yaml:"md,omitempty"`
	LG int `json:"lg,omitempty" yaml:"lg,omitempty"`
}

// Option is a label/value pair for select and checkbox-group fields.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// KeyMapping names the keys used to project fetched option rows.
type KeyMapping struct {
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// FieldConfig carries widget-specific configuration.
type FieldConfig struct {
	OptionsSource string         `json:"optionsSource,omitempty" yaml:"optionsSource,omitempty"`
	OptionsPath   string         `json:"optionsPath,omitempty" yaml:"optionsPath,omitempty"`
	Options       []Option       `json:"options,omitempty" yaml:"options,omitempty"`
	KeyMapping    KeyMapping     `json:"keyMapping,omitempty" yaml:"keyMapping,omitempty"`
	Columns       []Field        `json:"columns,omitempty" yaml:"columns,omitempty"`
	Accept        string         `json:"accept,omitempty" yaml:"accept,omitempty"`
	MaxSizeKB     int            `json:"maxSizeKb,omitempty" yaml:"maxSizeKb,omitempty"`
	Extra         map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Field describes one input inside a form definition.
type Field struct {
	Code        string            `json:"code" yaml:"code"`
	Type        FieldType         `json:"type" yaml:"type"`
	Label       string            `json:"label,omitempty" yaml:"label,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Placeholder string            `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Required    bool              `json:"required,omitempty" yaml:"required,omitempty"`
	Default     any               `json:"default,omitempty" yaml:"default,omitempty"`
	Order       int               `json:"order,omitempty" yaml:"order,omitempty"`
	Grid        Grid              `json:"grid,omitempty" yaml:"grid,omitempty"`
	Config      FieldConfig       `json:"config,omitempty" yaml:"config,omitempty"`
	IsModify    bool              `json:"ismodify,omitempty" yaml:"ismodify,omitempty"`
	IsSensitive bool              `json:"issensitive,omitempty" yaml:"issensitive,omitempty"`
	VisibleWhen string            `json:"visibleWhen,omitempty" yaml:"visibleWhen,omitempty"`
	Validations []ValidationRule  `json:"validations,omitempty" yaml:"validations,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// DisplayLabel falls back to the field code when no label is configured.
func (f Field) DisplayLabel() string {
	if label := strings.TrimSpace(f.Label); label != "" {
		return label
	}
	return f.Code
}

// Widget returns the widget stamped by the dispatcher, if any.
func (f Field) Widget() string {
	if f.Metadata == nil {
		return ""
	}
	return strings.TrimSpace(f.Metadata["widget"])
}

// ColumnCodes returns the configured column codes in declaration order.
func (f Field) ColumnCodes() []string {
	codes := make([]string, 0, len(f.Config.Columns))
	for _, column := range f.Config.Columns {
		if code := strings.TrimSpace(column.Code); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

// FormDefinition is the server-supplied schema driving the dynamic renderer.
type FormDefinition struct {
	FormCode       string            `json:"form_code" yaml:"form_code"`
	Title          string            `json:"title,omitempty" yaml:"title,omitempty"`
	Description    string            `json:"description,omitempty" yaml:"description,omitempty"`
	LoadWorkflow   string            `json:"load_workflow,omitempty" yaml:"load_workflow,omitempty"`
	SubmitWorkflow string            `json:"submit_workflow,omitempty" yaml:"submit_workflow,omitempty"`
	Fields         []Field           `json:"fields" yaml:"fields"`
	Metadata       map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Field looks up a field by code.
func (f FormDefinition) Field(code string) (Field, bool) {
	code = strings.TrimSpace(code)
	for _, field := range f.Fields {
		if field.Code == code {
			return field, true
		}
	}
	return Field{}, false
}

// SortedFields orders fields by Order, keeping declaration order for ties.
func (f FormDefinition) SortedFields() []Field {
	out := append([]Field(nil), f.Fields...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

// Values holds runtime field values keyed by field code.
type Values map[string]any

// Clone returns a deep copy of the values so callers can diff snapshots.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	for key, value := range v {
		out[key] = CloneValue(value)
	}
	return out
}

// DeletedKey is the per-row soft-delete flag.
const DeletedKey = "isdeleted"

// Row is one element of an array-valued field.
type Row map[string]any

// Deleted reports whether the row carries a truthy isdeleted flag.
func (r Row) Deleted() bool {
	switch v := r[DeletedKey].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true") || v == "1"
	case float64:
		return v != 0
	case int:
		return v != 0
	}
	return false
}

// RowsFromValue coerces a bound array value into rows. Non-object elements are
// skipped.
func RowsFromValue(value any) []Row {
	switch v := value.(type) {
	case nil:
		return nil
	case []Row:
		out := make([]Row, len(v))
		for idx, row := range v {
			out[idx] = cloneRow(row)
		}
		return out
	case []map[string]any:
		out := make([]Row, len(v))
		for idx, row := range v {
			out[idx] = cloneRow(row)
		}
		return out
	case []any:
		out := make([]Row, 0, len(v))
		for _, item := range v {
			switch row := item.(type) {
			case map[string]any:
				out = append(out, cloneRow(row))
			case Row:
				out = append(out, cloneRow(row))
			}
		}
		return out
	}
	return nil
}

// RowsToValue converts rows back into the []any shape used by JSON payloads.
func RowsToValue(rows []Row) []any {
	out := make([]any, len(rows))
	for idx, row := range rows {
		out[idx] = map[string]any(cloneRow(row))
	}
	return out
}

// RowKeys returns the sorted union of row keys, without the soft-delete flag.
// Tables with no configured columns use it as their column set.
func RowKeys(rows []Row) []string {
	seen := map[string]struct{}{}
	for _, row := range rows {
		for key := range row {
			if key != DeletedKey {
				seen[key] = struct{}{}
			}
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func cloneRow(row map[string]any) Row {
	out := make(Row, len(row))
	for key, value := range row {
		out[key] = CloneValue(value)
	}
	return out
}

// CloneValue deep-copies JSON-shaped values (maps, slices, scalars).
func CloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return map[string]any(cloneRow(v))
	case Row:
		return cloneRow(v)
	case []any:
		out := make([]any, len(v))
		for idx, item := range v {
			out[idx] = CloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), v...)
	case []Row:
		out := make([]Row, len(v))
		for idx, row := range v {
			out[idx] = cloneRow(row)
		}
		return out
	default:
		return v
	}
}
