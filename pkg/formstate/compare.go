package formstate

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-backoffice/pkg/format"
	"github.com/goliatone/go-backoffice/pkg/model"
)

// sameValue reports whether value leaves stored unchanged for a field. HTML
// controls post text, so "10" matches 10, "true" matches true, a formatted
// amount matches the raw backend number and an empty control matches a field
// the backend never sent.
func sameValue(field model.Field, stored, value any) bool {
	if equalValues(stored, value) {
		return true
	}
	if isEmpty(stored) && isEmpty(value) {
		return true
	}
	if field.Type.IsArray() {
		return sameRows(field, stored, value)
	}
	switch field.Type {
	case model.FieldTypeDecimal, model.FieldTypeNumber:
		if sameAmount(stored, value) {
			return true
		}
	case model.FieldTypeDate:
		a, aok := stored.(string)
		b, bok := value.(string)
		if aok && bok && format.Date(a) == format.Date(b) {
			return true
		}
	}
	return sameScalar(stored, value) || sameScalar(value, stored)
}

// sameScalar compares a typed value against the text a control posted for it.
func sameScalar(typed, posted any) bool {
	text, ok := posted.(string)
	if !ok {
		return false
	}
	switch v := typed.(type) {
	case bool:
		b, err := strconv.ParseBool(strings.TrimSpace(text))
		return err == nil && b == v
	case float64, float32, int, int64:
		return sameAmount(v, text)
	}
	return false
}

func sameAmount(a, b any) bool {
	left, lok := format.ParseDecimal(a)
	right, rok := format.ParseDecimal(b)
	return lok && rok && left.Equal(right)
}

// sameRows compares two row lists cell by cell, typing cells by their
// configured column.
func sameRows(field model.Field, stored, value any) bool {
	a := model.RowsFromValue(stored)
	b := model.RowsFromValue(value)
	if len(a) != len(b) {
		return false
	}
	for idx := range a {
		if a[idx].Deleted() != b[idx].Deleted() {
			return false
		}
		for _, key := range model.RowKeys([]model.Row{a[idx], b[idx]}) {
			if !sameValue(columnOf(field, key), a[idx][key], b[idx][key]) {
				return false
			}
		}
	}
	return true
}

// columnOf returns the configured column, or an untyped one for derived
// columns.
func columnOf(field model.Field, code string) model.Field {
	for _, column := range field.Config.Columns {
		if column.Code == code {
			return column
		}
	}
	return model.Field{Code: code}
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case bool:
		return !v
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case []model.Row:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}
