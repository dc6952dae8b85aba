package pages

import (
	"embed"
	"io/fs"

	rendertemplate "github.com/goliatone/go-backoffice/pkg/render/template"
	gotemplate "github.com/goliatone/go-backoffice/pkg/render/template/gotemplate"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

const (
	shellTemplate   = "shell"
	summaryTemplate = "wallet_summary"
)

func newEngine() (rendertemplate.TemplateRenderer, error) {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, err
	}
	return gotemplate.New(gotemplate.WithFS(sub), gotemplate.WithName("pages"))
}
