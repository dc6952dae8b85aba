package server

import (
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/goliatone/go-backoffice/pkg/orchestrator"
	"github.com/goliatone/go-backoffice/pkg/renderers/vanilla/components"
)

const multipartMemory = 8 << 20

// parseForm parses url-encoded and multipart bodies alike.
func parseForm(r *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(multipartMemory)
	}
	return r.ParseForm()
}

// applyPosted copies the posted control values into the open form state.
// Only fields the session may edit are applied: modifiable, and unlocked
// when sensitive. Table cells go to the working copy of their table and
// stay there until the table is applied.
func (s *Server) applyPosted(r *http.Request, form *orchestrator.Form) error {
	sessionID := sessionOf(r).ID()
	code := form.Code()
	var errs []error

	for _, fieldCode := range r.PostForm[components.PresenceKey] {
		field, ok := form.Definition.Field(fieldCode)
		if !ok || field.Type.IsArray() || !s.editable.Editable(sessionID, code, field) {
			continue
		}
		if err := form.State.Set(field.Code, postedValue(r, field)); err != nil {
			errs = append(errs, err)
		}
	}

	tables := map[string]*tableEdit{}
	for _, fieldCode := range r.PostForm[components.TablePresenceKey] {
		field, ok := form.Definition.Field(fieldCode)
		if !ok || !field.Type.IsArray() || !s.editable.Editable(sessionID, code, field) {
			continue
		}
		if _, seen := tables[field.Code]; seen {
			continue
		}
		binding, err := form.State.Array(field.Code)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tables[field.Code] = &tableEdit{field: field, binding: binding, rows: binding.Rows()}
	}

	for name, values := range r.PostForm {
		tableCode, row, column, ok := components.ParseCellName(name)
		if !ok || len(values) == 0 {
			continue
		}
		edit, ok := tables[tableCode]
		if !ok || !edit.writable(row) {
			continue
		}
		columnField, ok := edit.column(column)
		if !ok || columnField.Type == model.FieldTypeCheckbox {
			continue
		}
		if err := edit.binding.SetCell(row, column, values[0]); err != nil {
			errs = append(errs, err)
		}
	}

	// Unchecked checkbox cells are not posted at all.
	for _, edit := range tables {
		for _, columnField := range edit.field.Config.Columns {
			if columnField.Type != model.FieldTypeCheckbox {
				continue
			}
			for row := range edit.rows {
				if !edit.writable(row) {
					continue
				}
				checked := components.Bool(r.PostForm.Get(components.CellName(edit.field.Code, row, columnField.Code)))
				if err := edit.binding.SetCell(row, columnField.Code, checked); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("server: apply posted values: %w", errors.Join(errs...))
	}
	return nil
}

func postedValue(r *http.Request, field model.Field) any {
	switch field.Type {
	case model.FieldTypeCheckbox:
		return components.Bool(r.PostForm.Get(field.Code))
	case model.FieldTypeCheckboxGroup:
		selected := append([]string{}, r.PostForm[field.Code]...)
		return selected
	}
	return r.PostForm.Get(field.Code)
}

type tableEdit struct {
	field   model.Field
	binding interface {
		SetCell(index int, key string, value any) error
	}
	rows []model.Row
}

func (t *tableEdit) writable(row int) bool {
	return row >= 0 && row < len(t.rows) && !t.rows[row].Deleted()
}

func (t *tableEdit) column(code string) (model.Field, bool) {
	if t.field.Type == model.FieldTypeBanner {
		switch code {
		case components.BannerTitle, components.BannerLink:
			return model.Field{Code: code, Type: model.FieldTypeText}, true
		}
		return model.Field{}, false
	}
	for _, column := range t.field.Config.Columns {
		if column.Code == code {
			return column, true
		}
	}
	// Dynamic tables without configured columns edit the keys their rows carry.
	if t.field.Type == model.FieldTypeTableDynamic && len(t.field.Config.Columns) == 0 {
		for _, key := range model.RowKeys(t.rows) {
			if key == code {
				return model.Field{Code: code, Type: model.FieldTypeText}, true
			}
		}
	}
	return model.Field{}, false
}
