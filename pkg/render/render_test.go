package render_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-backoffice/pkg/client"
	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/goliatone/go-backoffice/pkg/render"
)

func walletForm() model.FormDefinition {
	return model.FormDefinition{
		FormCode: "wallet-edit",
		Fields: []model.Field{
			{Code: "nickname", Type: model.FieldTypeText, Metadata: map[string]string{"group": "General"}},
			{Code: "limit", Type: model.FieldTypeDecimal, Metadata: map[string]string{"group": "limits"}},
			{
				Code: "beneficiaries",
				Type: model.FieldTypeTable,
				Config: model.FieldConfig{Columns: []model.Field{
					{Code: "name"},
					{Code: "iban"},
				}},
			},
		},
	}
}

func TestMapErrorPayload(t *testing.T) {
	payload := map[string][]string{
		"/body/nickname":             {"Nickname taken", " Nickname taken "},
		"data.beneficiaries[1].iban": {"IBAN invalid"},
		"iban":                       {"IBAN blocked"},
		"non_field_errors":           {"Form level error"},
		"unknown":                    {"Falls back to form"},
		"":                           {"  "},
	}

	mapped := render.MapErrorPayload(walletForm(), payload)

	wantFields := map[string][]string{
		"nickname":      {"Nickname taken"},
		"beneficiaries": {"IBAN blocked", "IBAN invalid"},
	}
	sorted := cmpopts.SortSlices(func(a, b string) bool { return a < b })
	if diff := cmp.Diff(wantFields, mapped.Fields, sorted); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Falls back to form", "Form level error"}, mapped.Form, sorted); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestMapErrorEntries(t *testing.T) {
	mapped := render.MapErrorEntries(walletForm(), []client.ErrorEntry{
		{Field: "limit", Message: "must be below 5000"},
		{Message: "limit exceeds product cap"},
		{Field: "ghost", Code: "E42"},
	})

	want := map[string][]string{
		"limit": {"must be below 5000"},
		"":      {"limit exceeds product cap", "E42"},
	}
	sorted := cmpopts.SortSlices(func(a, b string) bool { return a < b })
	if diff := cmp.Diff(want, mapped.Errors(), sorted); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestHiddenFields(t *testing.T) {
	merged := render.MergeHiddenFields(
		map[string]string{" _csrf ": "old", "": "dropped"},
		render.CSRFToken("new"),
		render.FormCode("wallet-edit"),
		render.VersionField(3),
	)
	want := []render.HiddenField{
		{Name: "_csrf", Value: "new"},
		{Name: "_version", Value: "3"},
		{Name: "form_code", Value: "wallet-edit"},
	}
	if diff := cmp.Diff(want, render.SortedHiddenFields(merged)); diff != "" {
		t.Fatalf("hidden mismatch (-want +got):\n%s", diff)
	}
}

func TestApplySubset(t *testing.T) {
	form := walletForm()
	render.ApplySubset(&form, render.FieldSubset{Codes: []string{"beneficiaries"}, Groups: []string{"general"}})

	var codes []string
	for _, field := range form.Fields {
		codes = append(codes, field.Code)
	}
	if diff := cmp.Diff([]string{"nickname", "beneficiaries"}, codes); diff != "" {
		t.Fatalf("subset mismatch (-want +got):\n%s", diff)
	}
}

type stubRenderer struct{ name string }

func (s stubRenderer) Name() string        { return s.name }
func (s stubRenderer) ContentType() string { return "text/plain" }
func (s stubRenderer) Render(context.Context, model.FormDefinition, render.RenderOptions) ([]byte, error) {
	return []byte(s.name), nil
}

func TestRegistry(t *testing.T) {
	registry := render.NewRegistry()
	registry.MustRegister(stubRenderer{name: "vanilla"})
	if err := registry.Register(stubRenderer{name: "vanilla"}); err == nil {
		t.Fatalf("expected duplicate error")
	}
	registry.MustRegister(stubRenderer{name: "text"})

	got, err := registry.Get("")
	if err != nil || got.Name() != "vanilla" {
		t.Fatalf("expected default vanilla renderer, got %v %v", got, err)
	}
	if _, err := registry.Get("preact"); err == nil {
		t.Fatalf("expected missing renderer error")
	}
	if diff := cmp.Diff([]string{"text", "vanilla"}, registry.List()); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderOptionsDefaults(t *testing.T) {
	opts := render.RenderOptions{Modes: map[string]render.Mode{"nickname": render.ModeEdit}}
	if opts.ModeOf("nickname") != render.ModeEdit || opts.ModeOf("limit") != render.ModeView {
		t.Fatalf("unexpected modes")
	}
	if !opts.IsVisible("anything") {
		t.Fatalf("nil visibility should render everything")
	}
	opts.Visible = map[string]bool{"limit": true}
	if opts.IsVisible("nickname") {
		t.Fatalf("unlisted field should be hidden")
	}
}
