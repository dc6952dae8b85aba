// Package formstate holds the editable state of one form: the values fetched
// from the backend, the values the operator changed, and array-aware bindings
// for table fields. Dirty tracking compares against the fetched snapshot so
// only changed fields are submitted.
package formstate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"sync"

	"github.com/goliatone/go-backoffice/pkg/model"
)

var (
	// ErrUnknownField is returned when a code is not part of the definition.
	ErrUnknownField = errors.New("formstate: unknown field")
	// ErrNotArrayField is returned when an array binding targets a scalar field.
	ErrNotArrayField = errors.New("formstate: field is not array valued")
	// ErrRowOutOfRange is returned for row indexes outside the array.
	ErrRowOutOfRange = errors.New("formstate: row index out of range")
)

// State is the editable value set of one form. It is safe for concurrent use.
type State struct {
	mu      sync.RWMutex
	form    model.FormDefinition
	initial model.Values
	current model.Values
	arrays  map[string]*ArrayField
}

// New opens a state over the fetched values. Missing fields fall back to the
// field default.
func New(form model.FormDefinition, values model.Values) *State {
	initial := model.Values{}
	for _, field := range form.Fields {
		if value, ok := values[field.Code]; ok {
			initial[field.Code] = model.CloneValue(value)
			continue
		}
		if field.Default != nil {
			initial[field.Code] = model.CloneValue(field.Default)
		}
	}
	return &State{
		form:    form,
		initial: initial,
		current: initial.Clone(),
		arrays:  make(map[string]*ArrayField),
	}
}

// Form returns the definition the state was opened for.
func (s *State) Form() model.FormDefinition {
	return s.form
}

// Get returns the current value of a field.
func (s *State) Get(code string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.current[code]
	return model.CloneValue(value), ok
}

// Set replaces the current value of a field. A value equivalent to the
// current one is ignored, and one equivalent to the fetched value restores it,
// so posting an untouched control never makes a field dirty.
func (s *State) Set(code string, value any) error {
	field, ok := s.form.Field(code)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, code)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch initial, fetched := s.initial[code]; {
	case sameValue(field, s.current[code], value):
	case sameValue(field, initial, value):
		if fetched {
			s.current[code] = model.CloneValue(initial)
		} else {
			delete(s.current, code)
		}
	default:
		s.current[code] = model.CloneValue(value)
	}
	return nil
}

// Values returns a copy of all current values.
func (s *State) Values() model.Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Dirty returns the sorted codes whose current value differs from the
// fetched snapshot.
func (s *State) Dirty() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var dirty []string
	seen := make(map[string]struct{}, len(s.current))
	for code, value := range s.current {
		seen[code] = struct{}{}
		field, _ := s.form.Field(code)
		if !sameValue(field, s.initial[code], value) {
			dirty = append(dirty, code)
		}
	}
	for code, value := range s.initial {
		if _, ok := seen[code]; !ok && !isEmpty(value) {
			dirty = append(dirty, code)
		}
	}
	sort.Strings(dirty)
	return dirty
}

// IsDirty reports whether a single field changed.
func (s *State) IsDirty(code string) bool {
	for _, dirty := range s.Dirty() {
		if dirty == code {
			return true
		}
	}
	return false
}

// DirtyValues returns only the changed values.
func (s *State) DirtyValues() model.Values {
	codes := s.Dirty()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(model.Values, len(codes))
	for _, code := range codes {
		out[code] = model.CloneValue(s.current[code])
	}
	return out
}

// Reset discards edits and pending array bindings.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = s.initial.Clone()
	s.arrays = make(map[string]*ArrayField)
}

// Commit makes the current values the new baseline, after a successful submit.
func (s *State) Commit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initial = s.current.Clone()
}

// CommitFields makes the current values of the given fields their new
// baseline. Fields not named keep their dirty state.
func (s *State) CommitFields(codes ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, code := range codes {
		if value, ok := s.current[code]; ok {
			s.initial[code] = model.CloneValue(value)
			continue
		}
		delete(s.initial, code)
	}
}

// Array returns the array binding for a table-like field, creating it from the
// current value on first use. The binding keeps its own working copy until
// Apply pushes it back.
func (s *State) Array(code string) (*ArrayField, error) {
	field, ok := s.form.Field(code)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, code)
	}
	if !field.Type.IsArray() {
		return nil, fmt.Errorf("%w: %q", ErrNotArrayField, code)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if binding, ok := s.arrays[code]; ok {
		return binding, nil
	}
	binding := &ArrayField{
		state:   s,
		field:   field,
		rows:    model.RowsFromValue(s.current[code]),
		columns: field.ColumnCodes(),
	}
	s.arrays[code] = binding
	return binding, nil
}

func equalValues(a, b any) bool {
	return reflect.DeepEqual(normalizeValue(a), normalizeValue(b))
}

// normalizeValue folds the shapes a value can take after round trips (typed
// rows vs generic maps, ints vs float64) so comparisons are structural.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case model.Row:
		return normalizeValue(map[string]any(v))
	case []model.Row:
		return normalizeValue(model.RowsToValue(v))
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for idx, item := range v {
			out[idx] = normalizeValue(item)
		}
		return out
	case []string:
		out := make([]any, len(v))
		for idx, item := range v {
			out[idx] = item
		}
		return out
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float32:
		return float64(v)
	default:
		return v
	}
}

// RowIndex parses a row index from a request path segment.
func RowIndex(raw string) (int, error) {
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 {
		return 0, fmt.Errorf("%w: %q", ErrRowOutOfRange, raw)
	}
	return idx, nil
}
