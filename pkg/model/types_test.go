package model

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseDefinition_JSONAndYAML(t *testing.T) {
	jsonDoc := []byte(`{
		"form_code": "wallet-edit",
		"submit_workflow": "WF_WALLET_UPDATE",
		"fields": [
			{"code": "limit", "type": "Decimal", "required": true, "order": 2},
			{"code": "nickname", "type": "text", "ismodify": true, "issensitive": true, "order": 1}
		]
	}`)
	yamlDoc := []byte(`
form_code: wallet-edit
submit_workflow: WF_WALLET_UPDATE
fields:
  - code: limit
    type: Decimal
    required: true
    order: 2
  - code: nickname
    type: text
    ismodify: true
    issensitive: true
    order: 1
`)

	fromJSON, err := ParseDefinition(jsonDoc)
	if err != nil {
		t.Fatalf("parse json: %v", err)
	}
	fromYAML, err := ParseDefinition(yamlDoc)
	if err != nil {
		t.Fatalf("parse yaml: %v", err)
	}
	if diff := cmp.Diff(fromJSON, fromYAML); diff != "" {
		t.Fatalf("json/yaml mismatch (-json +yaml):\n%s", diff)
	}

	limit, ok := fromJSON.Field("limit")
	if !ok {
		t.Fatalf("expected limit field")
	}
	if limit.Type != FieldTypeDecimal {
		t.Fatalf("type not normalised: %q", limit.Type)
	}
	if len(limit.Validations) != 1 || limit.Validations[0].Kind != ValidationRuleRequired {
		t.Fatalf("required flag should add a required rule, got %#v", limit.Validations)
	}

	sorted := fromJSON.SortedFields()
	if sorted[0].Code != "nickname" || sorted[1].Code != "limit" {
		t.Fatalf("unexpected order: %s, %s", sorted[0].Code, sorted[1].Code)
	}
}

func TestParseDefinition_Errors(t *testing.T) {
	if _, err := ParseDefinition([]byte("  ")); !errors.Is(err, ErrEmptyDefinition) {
		t.Fatalf("expected ErrEmptyDefinition, got %v", err)
	}
	if _, err := ParseDefinition([]byte(`{"fields": []}`)); err == nil {
		t.Fatalf("expected missing form_code error")
	}
	dup := []byte(`{"form_code":"x","fields":[{"code":"a","type":"text"},{"code":"a","type":"text"}]}`)
	if _, err := ParseDefinition(dup); err == nil {
		t.Fatalf("expected duplicate code error")
	}
}

func TestRowDeleted(t *testing.T) {
	cases := map[string]struct {
		row  Row
		want bool
	}{
		"missing":     {Row{"a": 1}, false},
		"bool true":   {Row{DeletedKey: true}, true},
		"string true": {Row{DeletedKey: "TRUE"}, true},
		"number":      {Row{DeletedKey: float64(1)}, true},
		"false":       {Row{DeletedKey: false}, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := tc.row.Deleted(); got != tc.want {
				t.Fatalf("Deleted() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRowsFromValue_CopiesRows(t *testing.T) {
	source := []any{
		map[string]any{"iban": "DE01"},
		"ignored",
		map[string]any{"iban": "DE02", "tags": []any{"a"}},
	}
	rows := RowsFromValue(source)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	rows[1]["tags"].([]any)[0] = "mutated"
	if source[2].(map[string]any)["tags"].([]any)[0] != "a" {
		t.Fatalf("RowsFromValue must deep copy nested values")
	}
}

func TestRowKeys(t *testing.T) {
	rows := []Row{
		{"currency": "USD", "amount": 10.0},
		{"amount": "5", "note": "x", DeletedKey: true},
	}
	if diff := cmp.Diff([]string{"amount", "currency", "note"}, RowKeys(rows)); diff != "" {
		t.Fatalf("RowKeys mismatch (-want +got):\n%s", diff)
	}
	if keys := RowKeys(nil); len(keys) != 0 {
		t.Fatalf("RowKeys(nil) = %v, want empty", keys)
	}
}
