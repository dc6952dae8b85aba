package server

import (
	"context"
	"html"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-backoffice/internal/config"
	"github.com/goliatone/go-backoffice/pkg/client"
	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/goliatone/go-backoffice/pkg/notify"
	"github.com/goliatone/go-backoffice/pkg/orchestrator"
)

const accountDefinition = `
form_code: account-edit
title: Account
load_workflow: wf.account.load
submit_workflow: wf.account.save
fields:
  - code: nickname
    type: text
    label: Nickname
    ismodify: true
  - code: note
    type: text
    label: Note
    ismodify: true
  - code: flagged
    type: checkbox
    label: Flagged
    ismodify: true
  - code: limit
    type: decimal
    label: Limit
    ismodify: true
  - code: opened
    type: date
    label: Opened
    ismodify: true
  - code: pin
    type: text
    label: PIN
    ismodify: true
    issensitive: true
  - code: beneficiaries
    type: table
    label: Beneficiaries
    ismodify: true
    config:
      columns:
        - code: name
          type: text
        - code: active
          type: checkbox
        - code: since
          type: date
  - code: limits
    type: table-dynamic
    label: Limits
    ismodify: true
`

type fakeData struct{ values model.Values }

func (f fakeData) FormData(context.Context, client.Session, string, map[string]any) (model.Values, error) {
	return f.values.Clone(), nil
}

func (fakeData) Options(context.Context, client.Session, model.FieldConfig, string) ([]model.Option, error) {
	return nil, nil
}

func accountValues() model.Values {
	return model.Values{
		"nickname": "Old",
		"limit":    1234.5,
		"opened":   "2024-03-01T00:00:00Z",
		"pin":      "4321",
		"beneficiaries": []any{
			map[string]any{"name": "Ada", "active": true, "since": "2024-01-15T00:00:00Z"},
		},
		"limits": []any{
			map[string]any{"currency": "USD", "amount": 10.0},
		},
	}
}

func newAccountFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixture(t, config.Server{},
		orchestrator.WithDefinitions(orchestrator.FSDefinitions{FS: fstest.MapFS{"account-edit.yaml": {Data: []byte(accountDefinition)}}}),
		orchestrator.WithData(fakeData{values: accountValues()}),
	)
}

var (
	controlPattern = regexp.MustCompile(`(?s)<input\b([^>]*)>|<select\b([^>]*)>(.*?)</select>|<textarea\b([^>]*)>(.*?)</textarea>`)
	attrPattern    = regexp.MustCompile(`([a-zA-Z-]+)(?:="([^"]*)")?`)
	optionPattern  = regexp.MustCompile(`<option\b([^>]*)>`)
)

// formValues collects what a browser submits for the page: every named,
// enabled control, checked boxes only, the selected option of each select.
func formValues(page string) url.Values {
	values := url.Values{}
	for _, match := range controlPattern.FindAllStringSubmatch(page, -1) {
		switch {
		case strings.HasPrefix(match[0], "<input"):
			attrs := parseAttrs(match[1])
			name, named := attrs["name"]
			if !named || hasAttr(attrs, "disabled") {
				continue
			}
			switch attrs["type"] {
			case "submit", "button", "reset", "file", "image":
				continue
			case "checkbox", "radio":
				if !hasAttr(attrs, "checked") {
					continue
				}
				value, ok := attrs["value"]
				if !ok {
					value = "on"
				}
				values.Add(name, value)
			default:
				values.Add(name, attrs["value"])
			}
		case strings.HasPrefix(match[0], "<select"):
			attrs := parseAttrs(match[2])
			name, named := attrs["name"]
			if !named || hasAttr(attrs, "disabled") {
				continue
			}
			var first, selected *string
			for _, option := range optionPattern.FindAllStringSubmatch(match[3], -1) {
				optionAttrs := parseAttrs(option[1])
				value := optionAttrs["value"]
				if first == nil {
					first = &value
				}
				if hasAttr(optionAttrs, "selected") && selected == nil {
					selected = &value
				}
			}
			if selected == nil {
				selected = first
			}
			if selected != nil {
				values.Add(name, *selected)
			}
		default:
			attrs := parseAttrs(match[4])
			if name, named := attrs["name"]; named && !hasAttr(attrs, "disabled") {
				values.Add(name, html.UnescapeString(match[5]))
			}
		}
	}
	return values
}

func parseAttrs(raw string) map[string]string {
	attrs := map[string]string{}
	for _, match := range attrPattern.FindAllStringSubmatch(raw, -1) {
		attrs[strings.ToLower(match[1])] = html.UnescapeString(match[2])
	}
	return attrs
}

func hasAttr(attrs map[string]string, name string) bool {
	_, ok := attrs[name]
	return ok
}

func TestRoundTrip_UntouchedFormHasNoChanges(t *testing.T) {
	f := newAccountFixture(t)
	posted := formValues(f.get(t, "/forms/account-edit"))
	require.Equal(t, "1,234.50", posted.Get("limit"))
	require.Equal(t, "2024-03-01", posted.Get("opened"))

	f.post(t, "/forms/account-edit", posted)
	assert.Nil(t, f.workflow.payload)
	assert.Equal(t, []notify.Notice{notify.Info("There are no changes to save")}, f.server.flash.Drain(sessionID()))
	assert.Empty(t, f.open(t, "account-edit").State.Dirty())
}

func TestRoundTrip_CheckedCellsSurviveUnrelatedEdits(t *testing.T) {
	f := newAccountFixture(t)
	page := f.get(t, "/forms/account-edit")
	assert.Contains(t, page, `value="true" name="beneficiaries.0.active" checked`)

	posted := formValues(page)
	assert.Equal(t, "true", posted.Get("beneficiaries.0.active"))
	posted.Set("nickname", "New")
	f.post(t, "/forms/account-edit", posted)

	assert.Equal(t, map[string]any{"nickname": "New", "form_code": "account-edit"}, f.workflow.payload)
	form := f.open(t, "account-edit")
	binding, err := form.State.Array("beneficiaries")
	require.NoError(t, err)
	assert.False(t, binding.Pending(), "rendered cells posted back unchanged are not edits")

	f.post(t, "/forms/account-edit/tables/beneficiaries/apply", formValues(f.get(t, "/forms/account-edit")))
	got, _ := form.State.Get("beneficiaries")
	assert.Equal(t, accountValues()["beneficiaries"], got)
	assert.False(t, form.State.IsDirty("beneficiaries"))

	// Unchecking the rendered box is a real edit.
	posted = formValues(f.get(t, "/forms/account-edit"))
	posted.Del("beneficiaries.0.active")
	f.post(t, "/forms/account-edit/tables/beneficiaries/apply", posted)
	got, _ = form.State.Get("beneficiaries")
	rows := model.RowsFromValue(got)
	require.Len(t, rows, 1)
	assert.Equal(t, false, rows[0]["active"])
	assert.True(t, form.State.IsDirty("beneficiaries"))
}

func TestRoundTrip_DynamicTableCellsApply(t *testing.T) {
	f := newAccountFixture(t)
	posted := formValues(f.get(t, "/forms/account-edit"))
	require.Equal(t, "10", posted.Get("limits.0.amount"))

	posted.Set("limits.0.amount", "99")
	f.post(t, "/forms/account-edit/tables/limits/apply", posted)

	form := f.open(t, "account-edit")
	got, _ := form.State.Get("limits")
	assert.Equal(t, []any{map[string]any{"currency": "USD", "amount": "99"}}, got)
	assert.True(t, form.State.IsDirty("limits"))

	f.post(t, "/forms/account-edit/tables/limits/rows", formValues(f.get(t, "/forms/account-edit")))
	binding, err := form.State.Array("limits")
	require.NoError(t, err)
	rows := binding.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, model.Row{"amount": "", "currency": ""}, rows[1])

	f.post(t, "/forms/account-edit/tables/limits/rows/0", url.Values{"currency": {"EUR"}})
	assert.Equal(t, "EUR", binding.Rows()[0]["currency"])
}

func TestRoundTrip_SensitiveFieldNeedsUnlock(t *testing.T) {
	f := newAccountFixture(t)

	page := f.get(t, "/forms/account-edit")
	assert.NotContains(t, page, "4321")
	assert.NotContains(t, page, `name="pin"`)
	assert.Contains(t, page, `formaction="/forms/account-edit/fields/pin/toggle"`)

	f.post(t, "/forms/account-edit/fields/pin/toggle", formValues(page))
	page = f.get(t, "/forms/account-edit")
	assert.NotContains(t, page, "4321")
	assert.Contains(t, page, `name="_password"`)
	assert.Contains(t, page, `formaction="/forms/account-edit/fields/pin/unlock"`)

	posted := formValues(page)
	posted.Set("_password", "secret")
	f.post(t, "/forms/account-edit/fields/pin/unlock", posted)
	page = f.get(t, "/forms/account-edit")
	assert.Contains(t, page, `value="4321"`)

	posted = formValues(page)
	require.Equal(t, "4321", posted.Get("pin"))
	posted.Set("pin", "9999")
	f.post(t, "/forms/account-edit", posted)
	assert.Equal(t, map[string]any{"pin": "9999", "form_code": "account-edit"}, f.workflow.payload)
}
