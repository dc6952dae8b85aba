package template_test

import (
	"embed"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-backoffice/pkg/render/template/gotemplate"
	"github.com/goliatone/go-backoffice/pkg/testsupport"
)

//go:embed testdata/templates/*.tmpl
var embeddedTemplates embed.FS

func newEngine(t *testing.T) *gotemplate.Engine {
	t.Helper()
	sub, err := fs.Sub(embeddedTemplates, "testdata/templates")
	if err != nil {
		t.Fatalf("sub fs: %v", err)
	}
	engine, err := gotemplate.New(gotemplate.WithFS(sub))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestEngine_RenderTemplate(t *testing.T) {
	engine := newEngine(t)

	result, written := testsupport.CaptureTemplateOutput(t, func(w io.Writer) (string, error) {
		return engine.RenderTemplate("hello", map[string]any{"name": "  Ada "}, w)
	})

	want := testsupport.MustReadGoldenString(t, filepath.Join("testdata", "hello.golden"))
	if result != want || written != want {
		t.Fatalf("render mismatch\nwant: %q\n got: %q (writer %q)", want, result, written)
	}
}

func TestEngine_GlobalContext(t *testing.T) {
	engine := newEngine(t)
	if err := engine.GlobalContext(map[string]any{"settings": map[string]any{"env": "staging"}}); err != nil {
		t.Fatalf("global context: %v", err)
	}

	result, err := engine.RenderTemplate("use-global", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := testsupport.MustReadGoldenString(t, filepath.Join("testdata", "use-global.golden"))
	if result != want {
		t.Fatalf("render mismatch\nwant: %q\n got: %q", want, result)
	}
}

func TestEngine_DefaultFilters(t *testing.T) {
	engine := newEngine(t)
	result, err := engine.RenderTemplate("amounts", map[string]any{
		"amount": "1234567.5",
		"rate":   0.12345,
		"iban":   "DE89370400440532013000",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "1,234,567.50 0.1235 " + strings.Repeat("•", 18) + "3000\n"
	if result != want {
		t.Fatalf("filters mismatch\nwant: %q\n got: %q", want, result)
	}
}

func TestEngine_RenderStringWithStruct(t *testing.T) {
	engine := newEngine(t)
	type view struct {
		Title string `json:"title"`
	}
	result, err := engine.Render("<h1>{{ title }}</h1>", view{Title: "Wallet"})
	if err != nil {
		t.Fatalf("render string: %v", err)
	}
	if result != "<h1>Wallet</h1>" {
		t.Fatalf("unexpected output %q", result)
	}
}

func TestEngine_RegisterFilter(t *testing.T) {
	engine := newEngine(t)
	if err := engine.RegisterFilter("trim", func(in, _ any) (any, error) { return in, nil }); err == nil {
		t.Fatalf("expected duplicate filter error")
	}
	if err := engine.RegisterFilter("shout_test", func(in, _ any) (any, error) {
		if in == nil {
			return nil, errors.New("nothing to shout")
		}
		return strings.ToUpper(in.(string)), nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	result, err := engine.RenderString("{{ word|shout_test }}", map[string]any{"word": "ok"})
	if err != nil || result != "OK" {
		t.Fatalf("custom filter: %q %v", result, err)
	}
}

func TestEngine_RequiresSource(t *testing.T) {
	if _, err := gotemplate.New(); err == nil {
		t.Fatalf("expected error without templates")
	}
}
