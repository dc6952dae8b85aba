package vanilla

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/goliatone/go-backoffice/pkg/render"
	rendertemplate "github.com/goliatone/go-backoffice/pkg/render/template"
	gotemplate "github.com/goliatone/go-backoffice/pkg/render/template/gotemplate"
	"github.com/goliatone/go-backoffice/pkg/renderers/vanilla/components"
	"github.com/goliatone/go-backoffice/pkg/widgets"
)

// FormTemplate is the page template every form renders through.
const FormTemplate = "templates/form.tmpl"

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	components       *components.Registry
	widgets          *widgets.Registry
	assetsPrefix     string
	submitLabel      string
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithComponentRegistry replaces the default widget renderers.
func WithComponentRegistry(registry *components.Registry) Option {
	return func(cfg *config) {
		if registry != nil {
			cfg.components = registry
		}
	}
}

// WithWidgetRegistry sets the dispatcher used for fields that reach the
// renderer without a stamped widget.
func WithWidgetRegistry(registry *widgets.Registry) Option {
	return func(cfg *config) {
		if registry != nil {
			cfg.widgets = registry
		}
	}
}

// WithAssetsPrefix sets the URL prefix of the base stylesheet.
func WithAssetsPrefix(prefix string) Option {
	return func(cfg *config) {
		cfg.assetsPrefix = strings.TrimRight(prefix, "/")
	}
}

// WithSubmitLabel overrides the label of the submit button.
func WithSubmitLabel(label string) Option {
	return func(cfg *config) {
		if strings.TrimSpace(label) != "" {
			cfg.submitLabel = label
		}
	}
}

// Renderer renders a form definition as a server-side HTML page where every
// widget action is a plain form post.
type Renderer struct {
	templates  rendertemplate.TemplateRenderer
	components *components.Registry
	widgets    *widgets.Registry
	stylesheet string
	submit     string
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the vanilla renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{
		templateFS:   TemplatesFS(),
		assetsPrefix: "/assets",
		submitLabel:  "Save",
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engine, err := gotemplate.New(
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithExtension(".tmpl"),
		)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}
	if cfg.components == nil {
		cfg.components = components.NewDefaultRegistry()
	}
	if cfg.widgets == nil {
		cfg.widgets = widgets.NewRegistry(widgets.WithFallback(widgets.WidgetUnsupported))
	}

	return &Renderer{
		templates:  renderer,
		components: cfg.components,
		widgets:    cfg.widgets,
		stylesheet: cfg.assetsPrefix + "/" + StylesheetName,
		submit:     cfg.submitLabel,
	}, nil
}

func (r *Renderer) Name() string {
	return "vanilla"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render emits the page for form. Fields are laid out in Order; fields hidden
// by opts.Visible or without a widget are left out.
func (r *Renderer) Render(ctx context.Context, form model.FormDefinition, opts render.RenderOptions) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("vanilla renderer: template renderer is nil")
	}

	action := opts.Action
	if action == "" {
		action = "/forms/" + form.FormCode
		opts.Action = action
	}

	fields := newComponentRenderer(r.templates, r.components, r.widgets, opts)
	cells := make([]string, 0, len(form.Fields))
	editable := false
	for _, field := range form.SortedFields() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !opts.IsVisible(field.Code) {
			continue
		}
		cell, err := fields.render(field)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: %w", err)
		}
		if cell == "" {
			continue
		}
		cells = append(cells, cell)
		editable = editable || field.IsModify
	}

	stylesheets, scripts := fields.assets()
	hidden := render.SortedHiddenFields(render.MergeHiddenFields(opts.Hidden, render.FormCode(form.FormCode)))
	hiddenInputs := make([]map[string]string, 0, len(hidden))
	for _, field := range hidden {
		hiddenInputs = append(hiddenInputs, map[string]string{"name": field.Name, "value": field.Value})
	}

	notices := make([]map[string]string, 0, len(opts.Notices))
	for _, notice := range opts.Notices {
		notices = append(notices, map[string]string{"level": string(notice.Level), "message": notice.Message})
	}

	scriptData := make([]map[string]any, 0, len(scripts))
	for _, script := range scripts {
		scriptData = append(scriptData, map[string]any{"src": script.Src, "inline": script.Inline, "defer": script.Defer})
	}

	result, err := r.templates.RenderTemplate(FormTemplate, map[string]any{
		"form": map[string]any{
			"code":        form.FormCode,
			"title":       form.Title,
			"description": form.Description,
		},
		"action":      action,
		"classes":     chromeClasses(),
		"stylesheets": append([]string{r.stylesheet}, stylesheets...),
		"scripts":     scriptData,
		"notices":     notices,
		"form_errors": opts.FormErrors(),
		"cells":       cells,
		"hidden":      hiddenInputs,
		"editable":    editable,
		"submit":      r.submit,
		"fragment":    opts.Fragment,
	})
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render template: %w", err)
	}
	return []byte(result), nil
}
