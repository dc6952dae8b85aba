package formstate

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/google/go-cmp/cmp"
)

func walletForm() model.FormDefinition {
	return model.FormDefinition{
		FormCode: "wallet-edit",
		Fields: []model.Field{
			{Code: "nickname", Type: model.FieldTypeText},
			{Code: "limit", Type: model.FieldTypeDecimal, Default: "0.00"},
			{Code: "channels", Type: model.FieldTypeCheckboxGroup},
			{
				Code: "beneficiaries",
				Type: model.FieldTypeTable,
				Config: model.FieldConfig{Columns: []model.Field{
					{Code: "name", Type: model.FieldTypeText},
					{Code: "iban", Type: model.FieldTypeText},
				}},
			},
		},
	}
}

func TestState_DirtyTracking(t *testing.T) {
	state := New(walletForm(), model.Values{
		"nickname": "Main",
		"channels": []any{"sms"},
	})

	if dirty := state.Dirty(); len(dirty) != 0 {
		t.Fatalf("fresh state should be clean, got %v", dirty)
	}
	if got, _ := state.Get("limit"); got != "0.00" {
		t.Fatalf("default not applied: %v", got)
	}

	if err := state.Set("nickname", "Savings"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := state.Set("channels", []string{"sms"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if diff := cmp.Diff([]string{"nickname"}, state.Dirty()); diff != "" {
		t.Fatalf("dirty mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(model.Values{"nickname": "Savings"}, state.DirtyValues()); diff != "" {
		t.Fatalf("dirty values mismatch (-want +got):\n%s", diff)
	}

	if err := state.Set("nickname", "Main"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if state.IsDirty("nickname") {
		t.Fatalf("restoring the original value should clear the dirty flag")
	}

	if err := state.Set("missing", 1); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestState_CommitAndReset(t *testing.T) {
	state := New(walletForm(), model.Values{"nickname": "Main"})
	_ = state.Set("nickname", "Savings")
	state.Commit()
	if len(state.Dirty()) != 0 {
		t.Fatalf("commit should make the current values the baseline")
	}
	_ = state.Set("nickname", "Other")
	state.Reset()
	if got, _ := state.Get("nickname"); got != "Savings" {
		t.Fatalf("reset should restore committed value, got %v", got)
	}
}

func TestArrayField_AppendSoftDeleteApply(t *testing.T) {
	state := New(walletForm(), model.Values{
		"beneficiaries": []any{
			map[string]any{"name": "Ada", "iban": "DE01"},
			map[string]any{"name": "Bob", "iban": "DE02"},
		},
	})

	table, err := state.Array("beneficiaries")
	if err != nil {
		t.Fatalf("array: %v", err)
	}
	idx := table.Append()
	if idx != 2 {
		t.Fatalf("append index = %d", idx)
	}
	if err := table.SetCell(idx, "name", "Cy"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := table.SoftDelete(0); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if err := table.SetCell(0, "name", "zombie"); err == nil {
		t.Fatalf("deleted rows must be read-only")
	}
	if err := table.SoftDelete(9); !errors.Is(err, ErrRowOutOfRange) {
		t.Fatalf("expected ErrRowOutOfRange, got %v", err)
	}

	if state.IsDirty("beneficiaries") {
		t.Fatalf("edits must stay in the working copy until Apply")
	}
	if !table.Pending() {
		t.Fatalf("expected pending edits")
	}
	if err := table.Apply(); err != nil {
		t.Fatalf("apply: %v", err)
	}

	got, _ := state.Get("beneficiaries")
	want := []any{
		map[string]any{"name": "Ada", "iban": "DE01", model.DeletedKey: true},
		map[string]any{"name": "Bob", "iban": "DE02"},
		map[string]any{"name": "Cy", "iban": ""},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("applied rows mismatch (-want +got):\n%s", diff)
	}
	if len(table.Rows()) != 3 {
		t.Fatalf("soft delete must not remove rows")
	}
	if !state.IsDirty("beneficiaries") {
		t.Fatalf("applied table should be dirty")
	}
}

func TestArrayField_RejectsScalarField(t *testing.T) {
	state := New(walletForm(), nil)
	if _, err := state.Array("nickname"); !errors.Is(err, ErrNotArrayField) {
		t.Fatalf("expected ErrNotArrayField, got %v", err)
	}
}

func TestArrayField_ConcurrentApplyLastWriteWins(t *testing.T) {
	state := New(walletForm(), nil)
	table, _ := state.Array("beneficiaries")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			table.Append()
			_ = table.Apply()
		}()
	}
	wg.Wait()
	_ = table.Apply()

	got, _ := state.Get("beneficiaries")
	if rows := model.RowsFromValue(got); len(rows) != 8 {
		t.Fatalf("expected 8 rows after final apply, got %d", len(rows))
	}
}

func TestStore_Expiry(t *testing.T) {
	store := NewStore(time.Minute)
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	state := New(walletForm(), nil)
	store.Put("s1", "wallet-edit", state)
	if got, ok := store.Get("s1", "wallet-edit"); !ok || got != state {
		t.Fatalf("expected stored state")
	}

	clock = clock.Add(2 * time.Minute)
	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("expected one eviction, got %d", removed)
	}
	if _, ok := store.Get("s1", "wallet-edit"); ok {
		t.Fatalf("expired state should be gone")
	}
}

func TestState_PostedTextMatchesFetchedValues(t *testing.T) {
	form := model.FormDefinition{
		FormCode: "limits",
		Fields: []model.Field{
			{Code: "nickname", Type: model.FieldTypeText},
			{Code: "note", Type: model.FieldTypeText},
			{Code: "active", Type: model.FieldTypeCheckbox},
			{Code: "channels", Type: model.FieldTypeCheckboxGroup},
			{Code: "limit", Type: model.FieldTypeDecimal},
			{Code: "count", Type: model.FieldTypeNumber},
			{Code: "opened", Type: model.FieldTypeDate},
		},
	}
	state := New(form, model.Values{
		"nickname": "Old",
		"limit":    1234.5,
		"count":    "10",
		"opened":   "2024-03-01T00:00:00Z",
	})

	// What the browser posts back for an untouched form.
	posted := model.Values{
		"nickname": "Old",
		"note":     "",
		"active":   false,
		"channels": []string{},
		"limit":    "1,234.50",
		"count":    "10.0",
		"opened":   "2024-03-01",
	}
	for code, value := range posted {
		if err := state.Set(code, value); err != nil {
			t.Fatalf("set %s: %v", code, err)
		}
	}
	if dirty := state.Dirty(); len(dirty) != 0 {
		t.Fatalf("untouched controls should stay clean, got %v", dirty)
	}
	if got, _ := state.Get("limit"); got != 1234.5 {
		t.Fatalf("fetched value should keep its type, got %#v", got)
	}

	_ = state.Set("limit", "1,300.00")
	_ = state.Set("note", "hello")
	if diff := cmp.Diff([]string{"limit", "note"}, state.Dirty()); diff != "" {
		t.Fatalf("dirty mismatch (-want +got):\n%s", diff)
	}

	_ = state.Set("limit", "1234.50")
	if state.IsDirty("limit") {
		t.Fatalf("posting the fetched amount again should clear the dirty flag")
	}
	if got, _ := state.Get("limit"); got != 1234.5 {
		t.Fatalf("restored value should be the fetched one, got %#v", got)
	}
}

func TestState_CommitFields(t *testing.T) {
	state := New(walletForm(), model.Values{"nickname": "Main"})
	_ = state.Set("nickname", "Savings")
	_ = state.Set("limit", "50.00")

	state.CommitFields("nickname")
	if diff := cmp.Diff([]string{"limit"}, state.Dirty()); diff != "" {
		t.Fatalf("only named fields should be committed (-want +got):\n%s", diff)
	}
	state.Reset()
	if got, _ := state.Get("nickname"); got != "Savings" {
		t.Fatalf("committed field should survive reset, got %v", got)
	}
	if got, _ := state.Get("limit"); got != "0.00" {
		t.Fatalf("uncommitted field should reset, got %v", got)
	}
}

func TestArrayField_UnchangedCellsKeepTypes(t *testing.T) {
	form := model.FormDefinition{
		FormCode: "limits",
		Fields: []model.Field{{
			Code: "limits",
			Type: model.FieldTypeTable,
			Config: model.FieldConfig{Columns: []model.Field{
				{Code: "currency", Type: model.FieldTypeText},
				{Code: "amount", Type: model.FieldTypeDecimal},
				{Code: "active", Type: model.FieldTypeCheckbox},
			}},
		}},
	}
	state := New(form, model.Values{"limits": []any{
		map[string]any{"currency": "USD", "amount": 10.0, "active": true},
	}})
	table, _ := state.Array("limits")

	for key, value := range map[string]any{"currency": "USD", "amount": "10", "active": true} {
		if err := table.SetCell(0, key, value); err != nil {
			t.Fatalf("set cell %s: %v", key, err)
		}
	}
	if table.Pending() {
		t.Fatalf("posting unchanged cells must not mark the table pending")
	}
	if err := table.Apply(); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if state.IsDirty("limits") {
		t.Fatalf("applying unchanged rows must not dirty the table")
	}
	got, _ := state.Get("limits")
	want := []any{map[string]any{"currency": "USD", "amount": 10.0, "active": true}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}

	_ = table.SetCell(0, "amount", "12.5")
	if !table.Pending() {
		t.Fatalf("a changed cell should mark the table pending")
	}
}

func TestArrayField_DynamicTableAppendUsesRowKeys(t *testing.T) {
	form := model.FormDefinition{
		FormCode: "limits",
		Fields:   []model.Field{{Code: "extra", Type: model.FieldTypeTableDynamic}},
	}
	state := New(form, model.Values{"extra": []any{
		map[string]any{"currency": "USD", "amount": "10"},
	}})
	table, _ := state.Array("extra")
	idx := table.Append()
	if diff := cmp.Diff(model.Row{"amount": "", "currency": ""}, table.Rows()[idx]); diff != "" {
		t.Fatalf("appended row mismatch (-want +got):\n%s", diff)
	}
}
