package tui

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/goliatone/go-backoffice/pkg/render"
	"github.com/goliatone/go-backoffice/pkg/testsupport"
	"github.com/google/go-cmp/cmp"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	multiIdx     [][]int
	confirm      []bool
	textAreas    []string
	passwords    []string
	infoMessages []string
	prompted     []string
	inputPos     int
	selectPos    int
	multiPos     int
	confirmPos   int
	textPos      int
	passPos      int
}

func (s *stubDriver) Line(_ context.Context, q Question) (string, error) {
	s.prompted = append(s.prompted, q.Label)
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Secret(_ context.Context, q Question) (string, error) {
	s.prompted = append(s.prompted, q.Label)
	if s.passPos >= len(s.passwords) {
		return "", errors.New("no password scripted")
	}
	val := s.passwords[s.passPos]
	s.passPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, q YesNo) (bool, error) {
	s.prompted = append(s.prompted, q.Label)
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Pick(_ context.Context, c Choice) (int, error) {
	s.prompted = append(s.prompted, c.Label)
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) PickMany(_ context.Context, c Choice) ([]int, error) {
	s.prompted = append(s.prompted, c.Label)
	if s.multiPos >= len(s.multiIdx) {
		return nil, errors.New("no multiselect scripted")
	}
	val := s.multiIdx[s.multiPos]
	s.multiPos++
	return val, nil
}

func (s *stubDriver) Lines(_ context.Context, q Question) (string, error) {
	s.prompted = append(s.prompted, q.Label)
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func profileForm() model.FormDefinition {
	return model.FormDefinition{
		FormCode: "wallet-edit",
		Title:    "Edit wallet",
		Fields: []model.Field{
			{Code: "nickname", Type: model.FieldTypeText, Label: "Nickname", IsModify: true, Order: 1},
			{
				Code: "tier", Type: model.FieldTypeSelect, Label: "Tier", IsModify: true, Order: 2,
				Config: model.FieldConfig{Options: []model.Option{{Label: "Gold", Value: "G"}, {Label: "Silver", Value: "S"}}},
			},
			{Code: "active", Type: model.FieldTypeCheckbox, Label: "Active", IsModify: true, Order: 3},
			{Code: "owner", Type: model.FieldTypeText, Label: "Owner", Order: 4},
		},
	}
}

func TestRender_ScalarFieldsAsJSON(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"  Savings "},
		selectIdx: []int{1},
		confirm:   []bool{true},
	}
	r, err := New(WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	out, err := r.Render(context.Background(), profileForm(), render.RenderOptions{
		Values: map[string]any{"nickname": "Main", "owner": "Ada"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if diff := cmp.Diff(`{"active":true,"nickname":"Savings","tier":"S"}`, string(out)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Edit wallet", "Owner: Ada"}, driver.infoMessages); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}
	if r.ContentType() != "application/json" {
		t.Fatalf("content type = %q", r.ContentType())
	}
}

func TestRender_SkipsHiddenAndLockedFields(t *testing.T) {
	form := model.FormDefinition{
		FormCode: "pin",
		Fields: []model.Field{
			{Code: "pin", Type: model.FieldTypeText, Label: "PIN", IsModify: true, IsSensitive: true, Order: 1},
			{Code: "memo", Type: model.FieldTypeText, Label: "Memo", IsModify: true, Order: 2},
		},
	}
	driver := &stubDriver{}
	r, _ := New(WithPromptDriver(driver))

	out, err := r.Render(context.Background(), form, render.RenderOptions{
		Values:  map[string]any{"pin": "123456"},
		Visible: map[string]bool{"pin": true, "memo": false},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if string(out) != "{}" {
		t.Fatalf("expected no answers, got %s", out)
	}
	if len(driver.prompted) != 0 {
		t.Fatalf("locked and hidden fields must not prompt, got %v", driver.prompted)
	}
	if len(driver.infoMessages) != 1 || strings.Contains(driver.infoMessages[0], "123456") {
		t.Fatalf("sensitive value should be masked, got %v", driver.infoMessages)
	}
}

func TestRender_UnlockedSensitiveUsesPassword(t *testing.T) {
	form := model.FormDefinition{
		FormCode: "pin",
		Fields:   []model.Field{{Code: "pin", Type: model.FieldTypeText, Label: "PIN", IsModify: true, IsSensitive: true}},
	}
	driver := &stubDriver{passwords: []string{"4321"}}
	r, _ := New(WithPromptDriver(driver))

	out, err := r.Render(context.Background(), form, render.RenderOptions{Unlocked: map[string]bool{"pin": true}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if string(out) != `{"pin":"4321"}` {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestRender_RetriesInvalidAnswers(t *testing.T) {
	form := model.FormDefinition{
		FormCode: "limits",
		Fields: []model.Field{{
			Code: "daily", Type: model.FieldTypeDecimal, Label: "Daily limit", IsModify: true, Required: true,
			Validations: []model.ValidationRule{{Kind: model.ValidationRuleMin, Params: map[string]string{"value": "10"}}},
		}},
	}
	driver := &stubDriver{inputs: []string{"5", "250.00"}}
	r, _ := New(WithPromptDriver(driver))

	out, err := r.Render(context.Background(), form, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if string(out) != `{"daily":"250.00"}` {
		t.Fatalf("unexpected output %s", out)
	}
	if diff := cmp.Diff([]string{"Invalid: Daily limit must be at least 10"}, driver.infoMessages); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_TooManyRetries(t *testing.T) {
	form := model.FormDefinition{
		FormCode: "limits",
		Fields:   []model.Field{{Code: "nickname", Type: model.FieldTypeText, Label: "Nickname", IsModify: true, Required: true}},
	}
	driver := &stubDriver{inputs: []string{"", " "}}
	r, _ := New(WithPromptDriver(driver), WithMaxRetries(2))

	if _, err := r.Render(context.Background(), form, render.RenderOptions{}); !errors.Is(err, ErrTooManyRetries) {
		t.Fatalf("expected ErrTooManyRetries, got %v", err)
	}
}

func TestRender_TableRowsAsFormBody(t *testing.T) {
	form := model.FormDefinition{
		FormCode: "wallet-edit",
		Fields: []model.Field{{
			Code: "beneficiaries", Type: model.FieldTypeTable, Label: "Beneficiaries", IsModify: true,
			Config: model.FieldConfig{Columns: []model.Field{
				{Code: "name", Type: model.FieldTypeText, Label: "Name"},
				{Code: "active", Type: model.FieldTypeCheckbox, Label: "Active"},
			}},
		}},
	}
	driver := &stubDriver{
		inputs:  []string{"Bob"},
		confirm: []bool{true, true, false},
	}
	r, _ := New(WithPromptDriver(driver), WithOutputFormat(OutputFormatFormURLEncoded))

	out, err := r.Render(context.Background(), form, render.RenderOptions{
		Values: map[string]any{"beneficiaries": []any{map[string]any{"name": "Ada", "active": false}}},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	got, err := url.ParseQuery(string(out))
	if err != nil {
		t.Fatalf("parse body: %v", err)
	}
	want := url.Values{
		"_tables":                {"beneficiaries"},
		"beneficiaries.0.active": {"false"},
		"beneficiaries.0.name":   {"Ada"},
		"beneficiaries.1.active": {"true"},
		"beneficiaries.1.name":   {"Bob"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_PrettyTextUsesOptionLabels(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"Savings"},
		selectIdx: []int{0},
		confirm:   []bool{false},
	}
	r, _ := New(WithPromptDriver(driver), WithOutputFormat(OutputFormatPrettyText))

	out, err := r.Render(context.Background(), profileForm(), render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "Nickname: Savings\nTier: Gold\nActive: No\n"
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_RejectsUnknownFormat(t *testing.T) {
	if _, err := New(WithPromptDriver(&stubDriver{}), WithOutputFormat("xml")); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestRender_PrettyGolden(t *testing.T) {
	form := testsupport.MustLoadDefinition(t, filepath.Join("testdata", "wallet-edit.yaml"))
	driver := &stubDriver{inputs: []string{"Savings"}, selectIdx: []int{0}, confirm: []bool{true}}
	r, _ := New(WithPromptDriver(driver), WithOutputFormat(OutputFormatPrettyText))

	out, err := r.Render(context.Background(), form, render.RenderOptions{Values: map[string]any{"owner": "Ada"}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	golden := filepath.Join("testdata", "wallet-edit.pretty.golden")
	if testsupport.WriteMaybeGolden(t, golden, out) {
		return
	}
	if diff := cmp.Diff(testsupport.MustReadGoldenString(t, golden), string(out)); diff != "" {
		t.Fatalf("golden mismatch (-want +got):\n%s", diff)
	}
}
