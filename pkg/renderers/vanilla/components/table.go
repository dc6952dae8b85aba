package components

import (
	"bytes"
	"html"
	"strconv"
	"strings"

	"github.com/goliatone/go-backoffice/pkg/editable"
	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/goliatone/go-backoffice/pkg/widgets"
)

type column struct {
	code  string
	label string
	field model.Field
}

func tableRenderer(buf *bytes.Buffer, field model.Field, data ComponentData) error {
	return writeTable(buf, field, data, configuredColumns(field))
}

// tableDynamicRenderer derives columns from the union of row keys when the
// definition does not configure any.
func tableDynamicRenderer(buf *bytes.Buffer, field model.Field, data ComponentData) error {
	columns := configuredColumns(field)
	if len(columns) == 0 {
		columns = derivedColumns(model.RowsFromValue(data.Value))
	}
	return writeTable(buf, field, data, columns)
}

func configuredColumns(field model.Field) []column {
	columns := make([]column, 0, len(field.Config.Columns))
	for _, col := range field.Config.Columns {
		if strings.TrimSpace(col.Code) == "" {
			continue
		}
		columns = append(columns, column{code: col.Code, label: col.DisplayLabel(), field: col})
	}
	return columns
}

// derivedColumns types every column as text; the server edits derived cells
// the same way.
func derivedColumns(rows []model.Row) []column {
	codes := model.RowKeys(rows)
	columns := make([]column, len(codes))
	for idx, code := range codes {
		columns[idx] = column{code: code, label: code, field: model.Field{Code: code, Type: model.FieldTypeText}}
	}
	return columns
}

// writeTable renders rows over the given columns. Deleted rows render struck
// out without inputs; live rows get cell inputs and a delete action when the
// field is modifiable.
func writeTable(buf *bytes.Buffer, field model.Field, data ComponentData, columns []column) error {
	rows := model.RowsFromValue(data.Value)
	editable := field.IsModify
	var b strings.Builder

	b.WriteString(`<div class="bo-table-wrap"`)
	writeAttr(&b, "id", ControlID(field.Code))
	if data.Pending {
		b.WriteString(` data-pending="true"`)
	}
	b.WriteString(`>`)
	if editable {
		writePresence(&b, TablePresenceKey, field.Code)
	}
	b.WriteString(`<table class="bo-table"><thead><tr>`)
	for _, col := range columns {
		b.WriteString(`<th scope="col">`)
		b.WriteString(html.EscapeString(col.label))
		b.WriteString(`</th>`)
	}
	if editable {
		b.WriteString(`<th scope="col"><span class="bo-sr-only">Actions</span></th>`)
	}
	b.WriteString(`</tr></thead><tbody>`)

	if len(rows) == 0 {
		b.WriteString(`<tr class="bo-table-empty"><td`)
		span := len(columns)
		if editable {
			span++
		}
		writeAttr(&b, "colspan", strconv.Itoa(max(span, 1)))
		b.WriteString(`>No rows</td></tr>`)
	}

	for idx, row := range rows {
		if row.Deleted() {
			b.WriteString(`<tr class="bo-row bo-row--deleted" data-deleted="true">`)
			for _, col := range columns {
				b.WriteString(`<td><s>`)
				b.WriteString(html.EscapeString(cellText(col, row[col.code])))
				b.WriteString(`</s></td>`)
			}
			if editable {
				b.WriteString(`<td></td>`)
			}
			b.WriteString(`</tr>`)
			continue
		}

		b.WriteString(`<tr class="bo-row">`)
		for _, col := range columns {
			b.WriteString(`<td>`)
			if editable {
				writeCell(&b, CellName(field.Code, idx, col.code), col, row[col.code])
			} else {
				b.WriteString(html.EscapeString(cellText(col, row[col.code])))
			}
			b.WriteString(`</td>`)
		}
		if editable {
			b.WriteString(`<td class="bo-row-actions">`)
			writeActionButton(&b, TableAction(data.Action, field.Code, "rows", strconv.Itoa(idx), "delete"), "Delete", "bo-button--danger", false)
			b.WriteString(`</td>`)
		}
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</tbody></table>`)

	if editable {
		b.WriteString(`<div class="bo-table-actions">`)
		writeActionButton(&b, TableAction(data.Action, field.Code, "rows"), "Add row", "", false)
		writeActionButton(&b, TableAction(data.Action, field.Code, "apply"), "Apply", "bo-button--primary", false)
		if data.Pending {
			b.WriteString(`<span class="bo-pending">Changes not applied</span>`)
		}
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div>`)
	buf.WriteString(b.String())
	return nil
}

// writeCell renders the editor for one cell in the shape the server parses
// back: checkboxes post "true" only when checked, dates post yyyy-mm-dd and
// everything else posts its raw text.
func writeCell(b *strings.Builder, name string, col column, value any) {
	kind := editable.InputKind(col.field)
	switch kind {
	case widgets.WidgetCheckbox:
		b.WriteString(`<input type="checkbox" class="bo-input--cell" value="true"`)
		writeAttr(b, "name", name)
		if Bool(value) {
			b.WriteString(` checked`)
		}
		writeAttr(b, "aria-label", col.label)
		b.WriteString(`>`)
	case widgets.WidgetSelect:
		selected := Text(value)
		b.WriteString(`<select class="bo-select bo-input--cell"`)
		writeAttr(b, "name", name)
		writeAttr(b, "aria-label", col.label)
		b.WriteString(`><option value=""></option>`)
		known := selected == ""
		for _, option := range col.field.Config.Options {
			writeOption(b, option.Value, option.Label, option.Value == selected)
			known = known || option.Value == selected
		}
		if !known {
			writeOption(b, selected, selected, true)
		}
		b.WriteString(`</select>`)
	default:
		inputType, text := "text", Text(value)
		if kind == widgets.WidgetDate {
			inputType, text = "date", DateValue(value)
		}
		b.WriteString(`<input class="bo-input bo-input--cell"`)
		writeAttr(b, "type", inputType)
		if kind == widgets.WidgetDecimal {
			b.WriteString(` inputmode="decimal"`)
		}
		writeAttr(b, "name", name)
		writeAttr(b, "value", text)
		writeAttr(b, "aria-label", col.label)
		b.WriteString(`>`)
	}
}

func writeOption(b *strings.Builder, value, label string, selected bool) {
	b.WriteString(`<option`)
	writeAttr(b, "value", value)
	if selected {
		b.WriteString(` selected`)
	}
	b.WriteString(`>`)
	b.WriteString(html.EscapeString(label))
	b.WriteString(`</option>`)
}

func cellText(col column, value any) string {
	return DisplayValue(col.field, value, col.field.Config.Options, true)
}
