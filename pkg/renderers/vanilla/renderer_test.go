package vanilla

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/goliatone/go-backoffice/pkg/notify"
	"github.com/goliatone/go-backoffice/pkg/render"
	"github.com/goliatone/go-backoffice/pkg/renderers/vanilla/components"
	"github.com/goliatone/go-backoffice/pkg/widgets"
)

type recordingTemplateRenderer struct {
	calls []recordedCall
}

type recordedCall struct {
	name string
	data map[string]any
}

func (r *recordingTemplateRenderer) Render(name string, data any, out ...io.Writer) (string, error) {
	return r.RenderTemplate(name, data, out...)
}

func (r *recordingTemplateRenderer) RenderTemplate(name string, data any, _ ...io.Writer) (string, error) {
	payload, _ := data.(map[string]any)
	r.calls = append(r.calls, recordedCall{name: name, data: payload})
	return "<" + name + ">", nil
}

func (r *recordingTemplateRenderer) RenderString(string, any, ...io.Writer) (string, error) {
	return "", nil
}

func (r *recordingTemplateRenderer) RegisterFilter(string, func(any, any) (any, error)) error {
	return nil
}

func (r *recordingTemplateRenderer) GlobalContext(any) error { return nil }

func walletForm() model.FormDefinition {
	return model.FormDefinition{
		FormCode: "wallet-edit",
		Title:    "Wallet",
		Fields: []model.Field{
			{Code: "limit", Type: model.FieldTypeDecimal, Label: "Limit", Order: 2, IsModify: true, Grid: model.Grid{XS: 12, MD: 6}},
			{Code: "nickname", Type: model.FieldTypeText, Label: "Nickname", Order: 1, Required: true, IsModify: true},
			{Code: "secret", Type: model.FieldTypeText, Label: "Secret", Order: 3},
			{
				Code: "beneficiaries", Type: model.FieldTypeTable, Label: "Beneficiaries", Order: 4, IsModify: true,
				Config: model.FieldConfig{Columns: []model.Field{{Code: "name", Label: "Name"}}},
			},
		},
	}
}

func TestRenderer_RecordsPagePayload(t *testing.T) {
	recorder := &recordingTemplateRenderer{}
	renderer, err := New(WithTemplateRenderer(recorder))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	_, err = renderer.Render(context.Background(), walletForm(), render.RenderOptions{
		Values:  map[string]any{"nickname": "Main"},
		Visible: map[string]bool{"nickname": true, "limit": true, "beneficiaries": true},
		Hidden:  map[string]string{render.HiddenCSRF: "tok"},
		Notices: []notify.Notice{notify.Success("Saved")},
		Errors:  map[string][]string{"": {"Backend rejected the change"}},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	var names []string
	for _, call := range recorder.calls {
		names = append(names, call.name)
	}
	want := []string{
		"templates/components/input.tmpl",
		"templates/components/decimal.tmpl",
		FormTemplate,
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("template calls mismatch (-want +got):\n%s", diff)
	}

	page := recorder.calls[len(recorder.calls)-1].data
	if page["action"] != "/forms/wallet-edit" {
		t.Fatalf("default action = %v", page["action"])
	}
	if diff := cmp.Diff([]map[string]string{
		{"name": render.HiddenCSRF, "value": "tok"},
		{"name": render.HiddenFormCode, "value": "wallet-edit"},
	}, page["hidden"]); diff != "" {
		t.Fatalf("hidden mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"/assets/backoffice.css", components.TableStylesheet}, page["stylesheets"]); diff != "" {
		t.Fatalf("stylesheets mismatch (-want +got):\n%s", diff)
	}
	cells, _ := page["cells"].([]string)
	if len(cells) != 3 {
		t.Fatalf("expected 3 visible cells, got %d", len(cells))
	}
	if !strings.Contains(cells[0], `data-field="nickname"`) || !strings.Contains(cells[1], "bo-col-12 bo-col-md-6") {
		t.Fatalf("unexpected cell order or grid:\n%s", strings.Join(cells, ""))
	}
	if page["editable"] != true {
		t.Fatalf("expected submit button for modifiable fields")
	}
}

func TestRenderer_UnknownWidget(t *testing.T) {
	renderer, err := New(WithTemplateRenderer(&recordingTemplateRenderer{}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	form := model.FormDefinition{FormCode: "f", Fields: []model.Field{
		{Code: "x", Type: model.FieldTypeText, Metadata: map[string]string{"widget": "hologram"}},
	}}
	if _, err := renderer.Render(context.Background(), form, render.RenderOptions{}); err == nil || !strings.Contains(err.Error(), "hologram") {
		t.Fatalf("expected unregistered component error, got %v", err)
	}
}

func TestRenderer_SkipsFieldsWithoutWidget(t *testing.T) {
	recorder := &recordingTemplateRenderer{}
	renderer, err := New(WithTemplateRenderer(recorder), WithWidgetRegistry(widgets.NewRegistry()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	form := model.FormDefinition{FormCode: "f", Fields: []model.Field{{Code: "x", Type: "hologram"}}}
	if _, err := renderer.Render(context.Background(), form, render.RenderOptions{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	page := recorder.calls[len(recorder.calls)-1].data
	if cells, _ := page["cells"].([]string); len(cells) != 0 {
		t.Fatalf("expected the field to be skipped, got %v", cells)
	}
}

func TestRenderer_FullPage(t *testing.T) {
	renderer, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := renderer.Render(context.Background(), walletForm(), render.RenderOptions{
		Values: map[string]any{
			"nickname":      "<Main>",
			"limit":         "2500",
			"beneficiaries": []any{map[string]any{"name": "Ada"}},
		},
		Errors:  map[string][]string{"nickname": {"Nickname is required"}},
		Dirty:   map[string]bool{"limit": true},
		Notices: []notify.Notice{notify.Error("Something went wrong")},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	page := string(out)
	for _, fragment := range []string{
		`<form method="post" action="/forms/wallet-edit"`,
		`<li class="bo-toast bo-toast--error">Something went wrong</li>`,
		`value="&lt;Main&gt;"`,
		`value="2,500.00"`,
		`bo-field bo-field--dirty`,
		`<p class="bo-field-error" role="alert">Nickname is required</p>`,
		`name="beneficiaries.0.name"`,
		`<link rel="stylesheet" href="/assets/backoffice-tables.css">`,
		`name="form_code" value="wallet-edit"`,
		`<button type="submit" class="bo-button bo-button--primary">Save</button>`,
	} {
		if !strings.Contains(page, fragment) {
			t.Fatalf("expected %q in page:\n%s", fragment, page)
		}
	}
	if strings.Index(page, `data-field="nickname"`) > strings.Index(page, `data-field="limit"`) {
		t.Fatalf("fields must follow Order")
	}
}

func TestRenderer_SensitiveScalarsStayMasked(t *testing.T) {
	renderer, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	form := model.FormDefinition{FormCode: "wallet-edit", Fields: []model.Field{
		{Code: "pin", Type: model.FieldTypeText, Label: "PIN", IsModify: true, IsSensitive: true,
			Metadata: map[string]string{"widget": widgets.WidgetInput}},
	}}
	values := map[string]any{"pin": "4321"}

	steps := []struct {
		name    string
		opts    render.RenderOptions
		want    []string
		notWant []string
	}{
		{
			name:    "view",
			opts:    render.RenderOptions{Values: values},
			want:    []string{`data-component="label"`, "••••", "/fields/pin/toggle"},
			notWant: []string{"4321", `name="pin"`},
		},
		{
			name:    "edit before unlock",
			opts:    render.RenderOptions{Values: values, Modes: map[string]render.Mode{"pin": render.ModeEdit}},
			want:    []string{`name="_password"`, "/fields/pin/unlock"},
			notWant: []string{"4321", `name="pin"`},
		},
		{
			name: "edit after unlock",
			opts: render.RenderOptions{
				Values:   values,
				Modes:    map[string]render.Mode{"pin": render.ModeEdit},
				Unlocked: map[string]bool{"pin": true},
			},
			want: []string{`name="pin"`, `value="4321"`},
		},
	}
	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			out, err := renderer.Render(context.Background(), form, step.opts)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			page := string(out)
			for _, fragment := range step.want {
				if !strings.Contains(page, fragment) {
					t.Fatalf("expected %q in page:\n%s", fragment, page)
				}
			}
			for _, fragment := range step.notWant {
				if strings.Contains(page, fragment) {
					t.Fatalf("unexpected %q in page:\n%s", fragment, page)
				}
			}
		})
	}
}

func TestRenderer_Fragment(t *testing.T) {
	renderer, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := renderer.Render(context.Background(), walletForm(), render.RenderOptions{Fragment: true})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	page := string(out)
	if strings.Contains(page, "<!doctype") || strings.Contains(page, "<body") {
		t.Fatalf("fragment must not carry the page document:\n%s", page)
	}
	if !strings.Contains(page, `<form method="post"`) || !strings.Contains(page, `<link rel="stylesheet" href="/assets/backoffice.css">`) {
		t.Fatalf("fragment should keep the form and its stylesheets:\n%s", page)
	}
}

func TestRenderer_ReadOnlyFormHasNoSubmit(t *testing.T) {
	renderer, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	form := model.FormDefinition{FormCode: "view", Fields: []model.Field{{Code: "name", Type: model.FieldTypeLabel, Label: "Name"}}}
	out, err := renderer.Render(context.Background(), form, render.RenderOptions{Values: map[string]any{"name": "Ada"}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(string(out), `type="submit" class="bo-button bo-button--primary"`) {
		t.Fatalf("read-only form should not offer submit")
	}
}

func TestGridClasses(t *testing.T) {
	cases := []struct {
		grid model.Grid
		want []string
	}{
		{model.Grid{}, []string{"bo-col-12"}},
		{model.Grid{XS: 6, SM: 4, LG: 3}, []string{"bo-col-6", "bo-col-sm-4", "bo-col-lg-3"}},
		{model.Grid{XS: 20, MD: 13}, []string{"bo-col-12"}},
	}
	for _, tc := range cases {
		if diff := cmp.Diff(tc.want, gridClasses(tc.grid)); diff != "" {
			t.Errorf("grid %+v mismatch (-want +got):\n%s", tc.grid, diff)
		}
	}
}

func TestAssetsFS(t *testing.T) {
	for _, name := range []string{StylesheetName, "backoffice-tables.css"} {
		if _, err := AssetsFS().Open(name); err != nil {
			t.Fatalf("missing asset %s: %v", name, err)
		}
	}
}
