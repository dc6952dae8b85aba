package server

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-backoffice/internal/config"
	"github.com/goliatone/go-backoffice/pkg/client"
	"github.com/goliatone/go-backoffice/pkg/editable"
	"github.com/goliatone/go-backoffice/pkg/notify"
	"github.com/goliatone/go-backoffice/pkg/orchestrator"
	"github.com/goliatone/go-backoffice/pkg/upload"
)

const walletDefinition = `
form_code: wallet-edit
title: Wallet
submit_workflow: wf.wallet.save
fields:
  - code: nickname
    type: text
    label: Nickname
    required: true
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
  - code: avatar
    type: image
    label: Avatar
    ismodify: true
`

const token = "tok-1"

type fakeWorkflow struct {
	payload map[string]any
	err     error
}

func (f *fakeWorkflow) Execute(_ context.Context, _ client.Session, _ string, payload any) (client.Envelope, error) {
	f.payload, _ = payload.(map[string]any)
	return client.Envelope{Status: "200"}, f.err
}

type fakeVerifier struct{}

func (fakeVerifier) VerifyPassword(_ context.Context, _ client.Session, password string) error {
	if password != "secret" {
		return client.ErrInvalidPassword
	}
	return nil
}

type fakeUploader struct{ uploads int }

func (f *fakeUploader) Upload(_ context.Context, _ client.Session, up client.Upload) (client.UploadResult, error) {
	f.uploads++
	return client.UploadResult{FileURL: "https://cdn.example.com/" + up.Filename}, nil
}

type fixture struct {
	server   *Server
	workflow *fakeWorkflow
	uploader *fakeUploader
	handler  http.Handler
}

func newFixture(t *testing.T, cfg config.Server, extra ...orchestrator.Option) *fixture {
	t.Helper()
	workflow := &fakeWorkflow{}
	uploader := &fakeUploader{}
	controller := editable.NewController(fakeVerifier{})
	stager := upload.NewStager(uploader)
	options := []orchestrator.Option{
		orchestrator.WithDefinitions(orchestrator.FSDefinitions{FS: fstest.MapFS{"wallet-edit.yaml": {Data: []byte(walletDefinition)}}}),
		orchestrator.WithWorkflow(workflow),
		orchestrator.WithEditModes(controller),
		orchestrator.WithStagedUploads(stager),
	}
	forms := orchestrator.New(append(options, extra...)...)
	srv, err := New(cfg, Deps{Forms: forms, Editable: controller, Uploads: stager})
	require.NoError(t, err)
	return &fixture{server: srv, workflow: workflow, uploader: uploader, handler: srv.Handler()}
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)
	return f.do(t, req)
}

func (f *fixture) get(t *testing.T, path string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := f.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return rec.Body.String()
}

func (f *fixture) state(t *testing.T) *orchestrator.Form {
	t.Helper()
	return f.open(t, "wallet-edit")
}

func (f *fixture) open(t *testing.T, code string) *orchestrator.Form {
	t.Helper()
	form, err := f.server.forms.Open(context.Background(), client.Session{Token: token}, code)
	require.NoError(t, err)
	return form
}

func sessionID() string { return client.Session{Token: token}.ID() }

func TestHealthAndAuth(t *testing.T) {
	f := newFixture(t, config.Server{})

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/forms/wallet-edit", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestShowForm(t *testing.T) {
	f := newFixture(t, config.Server{})

	req := httptest.NewRequest(http.MethodGet, "/forms/wallet-edit", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rec := f.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Nickname")

	req = httptest.NewRequest(http.MethodGet, "/forms/missing", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusNotFound, f.do(t, req).Code)
}

func TestSubmit_AppliesPostedValuesAndRedirects(t *testing.T) {
	f := newFixture(t, config.Server{})

	rec := f.post(t, "/forms/wallet-edit", url.Values{
		"_fields":  {"nickname", "pin"},
		"nickname": {"Savings"},
		"pin":      {"1234"},
		"_return":  {"/pages/wallet/details"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/pages/wallet/details", rec.Header().Get("Location"))

	assert.Equal(t, "Savings", f.workflow.payload["nickname"])
	assert.NotContains(t, f.workflow.payload, "pin", "locked sensitive fields are not applied")
	assert.Equal(t, []notify.Notice{notify.Success("Changes saved")}, f.server.flash.Drain(sessionID()))
}

func TestSubmit_ValidationKeepsFieldErrors(t *testing.T) {
	f := newFixture(t, config.Server{})

	rec := f.post(t, "/forms/wallet-edit", url.Values{
		"_fields":  {"nickname"},
		"nickname": {" "},
		"_return":  {"//evil.example.com"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/forms/wallet-edit", rec.Header().Get("Location"))
	assert.Nil(t, f.workflow.payload)

	notices := f.server.flash.Drain(sessionID())
	require.Len(t, notices, 1)
	assert.Equal(t, notify.LevelWarning, notices[0].Level)
	assert.Equal(t, map[string][]string{"nickname": {"Nickname is required"}}, f.server.feedback.take(sessionID(), "wallet-edit"))
}

func TestSubmit_NothingChanged(t *testing.T) {
	f := newFixture(t, config.Server{})
	posted := url.Values{"_fields": {"nickname"}, "nickname": {"Savings"}}
	f.post(t, "/forms/wallet-edit", posted)
	f.server.flash.Drain(sessionID())

	f.post(t, "/forms/wallet-edit", posted)
	assert.Equal(t, []notify.Notice{notify.Info("There are no changes to save")}, f.server.flash.Drain(sessionID()))
}

func TestUnlockSensitiveField(t *testing.T) {
	f := newFixture(t, config.Server{})

	f.post(t, "/forms/wallet-edit/fields/pin/unlock", url.Values{"_password": {"wrong"}})
	notices := f.server.flash.Drain(sessionID())
	require.Len(t, notices, 1)
	assert.Equal(t, notify.Error("Password verification failed"), notices[0])

	f.post(t, "/forms/wallet-edit/fields/pin/unlock", url.Values{"_password": {"secret"}})
	assert.True(t, f.server.editable.Unlocked(sessionID(), "wallet-edit")["pin"])

	f.post(t, "/forms/wallet-edit", url.Values{"_fields": {"nickname", "pin"}, "nickname": {"Main"}, "pin": {"9876"}})
	assert.Equal(t, "9876", f.workflow.payload["pin"])
	assert.Empty(t, f.server.editable.Unlocked(sessionID(), "wallet-edit"), "a successful submit locks fields again")
}

func TestTableActions(t *testing.T) {
	f := newFixture(t, config.Server{})

	f.post(t, "/forms/wallet-edit/tables/beneficiaries/rows", url.Values{})
	f.post(t, "/forms/wallet-edit/tables/beneficiaries/rows", url.Values{})
	f.post(t, "/forms/wallet-edit/tables/beneficiaries/apply", url.Values{
		"_tables":                {"beneficiaries"},
		"beneficiaries.0.name":   {"Ada"},
		"beneficiaries.0.active": {"true"},
		"beneficiaries.1.name":   {"Bob"},
	})

	form := f.state(t)
	got, _ := form.State.Get("beneficiaries")
	assert.Equal(t, []any{
		map[string]any{"name": "Ada", "active": true},
		map[string]any{"name": "Bob", "active": false},
	}, got)

	f.post(t, "/forms/wallet-edit/tables/beneficiaries/rows/1/delete", url.Values{})
	f.post(t, "/forms/wallet-edit/tables/beneficiaries/rows/0", url.Values{"name": {"Ada L."}})
	binding, err := form.State.Array("beneficiaries")
	require.NoError(t, err)
	assert.True(t, binding.Pending())
	rows := binding.Rows()
	assert.Equal(t, "Ada L.", rows[0]["name"])
	assert.True(t, rows[1].Deleted())

	f.server.flash.Drain(sessionID())
	f.post(t, "/forms/wallet-edit/tables/beneficiaries/rows/7/delete", url.Values{})
	assert.Equal(t, []notify.Notice{notify.Warning("That row no longer exists")}, f.server.flash.Drain(sessionID()))
}

func TestUploadStageAndConfirm(t *testing.T) {
	f := newFixture(t, config.Server{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="avatar.png"`)
	header.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, _ = part.Write([]byte("\x89PNG\r\n\x1a\nimage-bytes"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/forms/wallet-edit/uploads/avatar", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := f.do(t, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	staged := f.server.uploads.Staged(sessionID(), "wallet-edit")
	require.Contains(t, staged, "avatar")

	preview := httptest.NewRequest(http.MethodGet, staged["avatar"].PreviewURL, nil)
	preview.Header.Set("Authorization", "Bearer "+token)
	rec = f.do(t, preview)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	foreign := httptest.NewRequest(http.MethodGet, staged["avatar"].PreviewURL, nil)
	foreign.Header.Set("Authorization", "Bearer someone-else")
	assert.Equal(t, http.StatusNotFound, f.do(t, foreign).Code)

	f.post(t, "/forms/wallet-edit/uploads/avatar/confirm", url.Values{})
	assert.Equal(t, 1, f.uploader.uploads)
	got, _ := f.state(t).State.Get("avatar")
	assert.Equal(t, "https://cdn.example.com/avatar.png", got)
	assert.Empty(t, f.server.uploads.Staged(sessionID(), "wallet-edit"))
}

func TestConfirmWithoutStagedFile(t *testing.T) {
	f := newFixture(t, config.Server{})
	f.post(t, "/forms/wallet-edit/uploads/avatar/confirm", url.Values{})
	assert.Equal(t, []notify.Notice{notify.Warning("Pick a file for Avatar first")}, f.server.flash.Drain(sessionID()))
	assert.Zero(t, f.uploader.uploads)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, config.Server{RequestsPerSecond: 0.001, Burst: 1, SessionTTL: time.Minute})

	assert.Equal(t, http.StatusOK, f.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestSafeReturn(t *testing.T) {
	cases := map[string]string{
		"/pages/wallet/details":  "/pages/wallet/details",
		"/forms/wallet-edit?x=1": "/forms/wallet-edit?x=1",
		"//evil.example.com":     "",
		"https://evil.example":   "",
		"/admin":                 "",
		`/pages\evil`:            "",
		"":                       "",
	}
	for raw, want := range cases {
		assert.Equal(t, want, safeReturn(raw), raw)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(config.Server{}, Deps{})
	assert.Error(t, err)
}
