package lookups

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/goliatone/go-backoffice/pkg/client"
	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/google/go-cmp/cmp"
)

type handlerResponse struct {
	Data []model.Option `json:"data"`
}

var branches = []model.Option{
	{Label: "Berlin Mitte", Value: "B01"},
	{Label: "Hamburg", Value: "H01"},
	{Label: "Bremen", Value: "B02"},
	{Label: "Nord Berlin", Value: "B03"},
}

type fakeFetcher struct {
	cfg   model.FieldConfig
	query string
	err   error
}

func (f *fakeFetcher) Options(_ context.Context, _ client.Session, cfg model.FieldConfig, query string) ([]model.Option, error) {
	f.cfg, f.query = cfg, query
	return branches, f.err
}

func serve(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, handlerResponse) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var payload handlerResponse
	if rec.Code == http.StatusOK && method == http.MethodGet {
		if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return rec, payload
}

func TestHandler_SearchRanksPrefixFirst(t *testing.T) {
	h := Handler(WithSource("branches", Static(branches)))
	rec, payload := serve(t, h, http.MethodGet, "/api/lookups/branches?q=berlin")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected JSON content-type, got %q", ct)
	}
	want := []model.Option{{Label: "Berlin Mitte", Value: "B01"}, {Label: "Nord Berlin", Value: "B03"}}
	if diff := cmp.Diff(want, payload.Data); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestHandler_LimitClamped(t *testing.T) {
	h := Handler(WithSource("branches", Static(branches)), WithMaxLimit(2))
	_, payload := serve(t, h, http.MethodGet, "/api/lookups/branches?limit=50")
	if len(payload.Data) != 2 {
		t.Fatalf("expected 2 results, got %#v", payload.Data)
	}

	_, payload = serve(t, h, http.MethodGet, "/api/lookups/branches?q=b&limit=-1")
	if payload.Data == nil || len(payload.Data) != 0 {
		t.Fatalf("negative limit should return an empty array, got %#v", payload.Data)
	}
}

func TestHandler_EmptySearchNone(t *testing.T) {
	h := Handler(WithSource("branches", Static(branches)), WithEmptySearchMode(EmptySearchNone))
	_, payload := serve(t, h, http.MethodGet, "/api/lookups/branches")
	if payload.Data == nil || len(payload.Data) != 0 {
		t.Fatalf("expected empty data array, got %#v", payload.Data)
	}
}

func TestHandler_BackendSource(t *testing.T) {
	fetcher := &fakeFetcher{}
	cfg := model.FieldConfig{OptionsSource: "branches", OptionsPath: "items"}
	h := Handler(
		WithSource("branches", Backend(fetcher, cfg)),
		WithSession(func(r *http.Request) (client.Session, error) {
			return client.Session{Token: "tok"}, nil
		}),
	)
	_, payload := serve(t, h, http.MethodGet, "/api/lookups/branches?q=ham")
	if fetcher.query != "ham" || fetcher.cfg.OptionsPath != "items" {
		t.Fatalf("fetcher not called with config: %#v %q", fetcher.cfg, fetcher.query)
	}
	if len(payload.Data) != 1 || payload.Data[0].Value != "H01" {
		t.Fatalf("unexpected payload: %#v", payload.Data)
	}

	fetcher.err = client.ErrNetwork
	rec, _ := serve(t, h, http.MethodGet, "/api/lookups/branches?q=ham")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 on backend failure, got %d", rec.Code)
	}
}

func TestHandler_Rejections(t *testing.T) {
	cases := map[string]struct {
		handler http.Handler
		method  string
		target  string
		want    int
	}{
		"unknown source": {Handler(), http.MethodGet, "/api/lookups/cards", http.StatusNotFound},
		"method":         {Handler(WithSource("b", Static(branches))), http.MethodPost, "/api/lookups/b", http.StatusMethodNotAllowed},
		"guard": {Handler(WithSource("b", Static(branches)), WithGuard(func(*http.Request) error {
			return StatusError{Code: http.StatusTeapot}
		})), http.MethodGet, "/api/lookups/b", http.StatusTeapot},
		"session": {Handler(WithSource("b", Static(branches)), WithSession(func(*http.Request) (client.Session, error) {
			return client.Session{}, errors.New("no token")
		})), http.MethodGet, "/api/lookups/b", http.StatusUnauthorized},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec, _ := serve(t, tc.handler, tc.method, tc.target)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestFromDefinitions_CollectsColumnSources(t *testing.T) {
	form := model.FormDefinition{FormCode: "f", Fields: []model.Field{
		{Code: "branch", Type: model.FieldTypeSelect, Config: model.FieldConfig{OptionsSource: "/lookups/branches?active=1"}},
		{Code: "rows", Type: model.FieldTypeTable, Config: model.FieldConfig{Columns: []model.Field{
			{Code: "currency", Type: model.FieldTypeSelect, Config: model.FieldConfig{OptionsSource: "currencies"}},
		}}},
	}}
	component := New(func(o *Options) { o.Sources = FromDefinitions(&fakeFetcher{}, form) })
	got := component.Sources()
	if diff := cmp.Diff([]string{"branches", "currencies"}, got); diff != "" {
		t.Fatalf("sources mismatch (-want +got):\n%s", diff)
	}
}

func TestRegisterRoutes(t *testing.T) {
	if got := MountPath("/admin", "api/lookups/"); got != "/admin/api/lookups/" {
		t.Fatalf("unexpected mount path: %q", got)
	}
	mux := http.NewServeMux()
	pattern, err := New(WithSource("branches", Static(branches))).RegisterRoutes(mux, "/admin")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	rec, _ := serve(t, mux, http.MethodGet, pattern+"branches?q=ham")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
