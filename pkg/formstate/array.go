package formstate

import (
	"fmt"
	"sync"

	"github.com/goliatone/go-backoffice/pkg/model"
)

// ArrayField is the array-aware binding used by table widgets. Rows are edited
// on a working copy; Apply pushes the whole array back into the form state.
// Deletes are soft: rows are flagged isdeleted and never removed.
type ArrayField struct {
	mu      sync.Mutex
	state   *State
	field   model.Field
	rows    []model.Row
	columns []string
	pending bool
}

// Field returns the bound field definition.
func (a *ArrayField) Field() model.Field {
	return a.field
}

// Rows returns a copy of the working rows, including soft-deleted ones.
func (a *ArrayField) Rows() []model.Row {
	a.mu.Lock()
	defer a.mu.Unlock()
	return model.RowsFromValue(model.RowsToValue(a.rows))
}

// Pending reports whether the working copy has changes not yet applied.
func (a *ArrayField) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// Append adds an empty row carrying every column key and returns its index.
// Checkbox cells start unchecked, every other cell empty.
// Tables without configured columns use the keys of their existing rows.
func (a *ArrayField) Append() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	columns := a.columns
	if len(columns) == 0 {
		columns = model.RowKeys(a.rows)
	}
	row := make(model.Row, len(columns))
	for _, column := range columns {
		row[column] = emptyCell(columnOf(a.field, column))
	}
	a.rows = append(a.rows, row)
	a.pending = true
	return len(a.rows) - 1
}

// SoftDelete flags the row at index as deleted.
func (a *ArrayField) SoftDelete(index int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index < 0 || index >= len(a.rows) {
		return fmt.Errorf("%w: %d of %d", ErrRowOutOfRange, index, len(a.rows))
	}
	a.rows[index][model.DeletedKey] = true
	a.pending = true
	return nil
}

// SetCell writes one cell of a live row. Deleted rows stay read-only. A value
// equivalent to the stored cell is ignored, so the cell keeps its type and the
// table does not turn pending.
func (a *ArrayField) SetCell(index int, key string, value any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index < 0 || index >= len(a.rows) {
		return fmt.Errorf("%w: %d of %d", ErrRowOutOfRange, index, len(a.rows))
	}
	if a.rows[index].Deleted() {
		return fmt.Errorf("formstate: row %d of %q is deleted", index, a.field.Code)
	}
	if key == model.DeletedKey {
		return fmt.Errorf("formstate: %q cannot be set directly", model.DeletedKey)
	}
	if sameValue(columnOf(a.field, key), a.rows[index][key], value) {
		return nil
	}
	a.rows[index][key] = model.CloneValue(value)
	a.pending = true
	return nil
}

// Apply pushes the full working array into the form state. Concurrent appliers
// are not reconciled: the last Apply wins.
func (a *ArrayField) Apply() error {
	a.mu.Lock()
	value := model.RowsToValue(a.rows)
	a.pending = false
	a.mu.Unlock()
	return a.state.Set(a.field.Code, value)
}

// Discard drops the working copy and reloads it from the form state.
func (a *ArrayField) Discard() {
	current, _ := a.state.Get(a.field.Code)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rows = model.RowsFromValue(current)
	a.pending = false
}

func emptyCell(column model.Field) any {
	if column.Type == model.FieldTypeCheckbox {
		return false
	}
	return ""
}
