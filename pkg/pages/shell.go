package pages

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/goliatone/go-backoffice/pkg/client"
	"github.com/goliatone/go-backoffice/pkg/layout"
	"github.com/goliatone/go-backoffice/pkg/notify"
	"github.com/goliatone/go-backoffice/pkg/orchestrator"
	"github.com/goliatone/go-backoffice/pkg/render"
	rendertemplate "github.com/goliatone/go-backoffice/pkg/render/template"
	"github.com/goliatone/go-backoffice/pkg/renderers/vanilla"
	"github.com/sirupsen/logrus"
)

// ReturnField is the hidden input carrying the page a form POST should
// redirect back to.
const ReturnField = "_return"

// Forms is the part of the orchestrator the shell needs.
type Forms interface {
	Open(ctx context.Context, session client.Session, formCode string) (*orchestrator.Form, error)
	Render(ctx context.Context, req orchestrator.RenderRequest) ([]byte, error)
}

// Request carries per-request data into the shell.
type Request struct {
	Notices []notify.Notice
	// Form is passed to dynamic tabs (errors, request values).
	Form render.RenderOptions
}

// ShellOption customises a Shell.
type ShellOption func(*Shell)

// WithAssetsPrefix sets the URL prefix of the bundled stylesheets.
func WithAssetsPrefix(prefix string) ShellOption {
	return func(s *Shell) {
		if prefix = strings.TrimSpace(prefix); prefix != "" {
			s.assetsPrefix = strings.TrimRight(prefix, "/")
		}
	}
}

// WithLogger sets the logger used for failed tab content.
func WithLogger(logger logrus.FieldLogger) ShellOption {
	return func(s *Shell) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Shell renders layout pages.
type Shell struct {
	layouts      *layout.Store
	static       *Registry
	forms        Forms
	engine       rendertemplate.TemplateRenderer
	assetsPrefix string
	logger       logrus.FieldLogger
}

// NewShell builds a shell over the layout store, static pages and forms.
func NewShell(layouts *layout.Store, static *Registry, forms Forms, opts ...ShellOption) (*Shell, error) {
	if layouts == nil {
		return nil, errors.New("pages: layout store is required")
	}
	if static == nil {
		static = NewRegistry()
	}
	engine, err := newEngine()
	if err != nil {
		return nil, fmt.Errorf("pages: shell templates: %w", err)
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	shell := &Shell{
		layouts:      layouts,
		static:       static,
		forms:        forms,
		engine:       engine,
		assetsPrefix: "/assets",
		logger:       logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(shell)
		}
	}
	return shell, nil
}

// PagePath returns the URL of a page tab.
func PagePath(pageID, tabID string) string {
	path := "/pages/" + url.PathEscape(pageID)
	if tabID != "" {
		path += "/" + url.PathEscape(tabID)
	}
	return path
}

// Render draws the tab strip of a page and the content of the selected tab.
// An empty tab id selects the first tab. Unknown pages and tabs are errors;
// failures loading the tab content become notices so the strip stays usable.
func (s *Shell) Render(ctx context.Context, session client.Session, pageID, tabID string, req Request) ([]byte, error) {
	page, ok := s.layouts.Page(pageID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPageNotFound, pageID)
	}
	tab, ok := page.Tab(tabID)
	if !ok {
		return nil, fmt.Errorf("%w: %q on page %q", ErrTabNotFound, tabID, pageID)
	}

	notices := append([]notify.Notice(nil), req.Notices...)
	content, err := s.content(ctx, session, page, tab, req.Form)
	if err != nil {
		if errors.Is(err, orchestrator.ErrDefinitionNotFound) || errors.Is(err, ErrStaticPage) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		notices = append(notices, notify.FromError(s.logger.WithField("page", page.ID).WithField("tab", tab.ID), "load tab", err))
		content = nil
	}

	tabs := make([]map[string]any, 0, len(page.Tabs))
	for _, item := range page.Tabs {
		tabs = append(tabs, map[string]any{
			"href":   PagePath(page.ID, item.ID),
			"title":  item.Title,
			"icon":   item.Icon,
			"active": item.ID == tab.ID,
		})
	}
	noticeData := make([]map[string]string, 0, len(notices))
	for _, notice := range notices {
		noticeData = append(noticeData, map[string]string{"level": string(notice.Level), "message": notice.Message})
	}

	out, err := s.engine.RenderTemplate(shellTemplate, map[string]any{
		"page":        map[string]string{"id": page.ID, "title": page.Title},
		"tab":         map[string]string{"id": tab.ID, "title": tab.Title},
		"tabs":        tabs,
		"notices":     noticeData,
		"stylesheets": []string{s.assetsPrefix + "/" + vanilla.StylesheetName},
		"content":     string(content),
	})
	if err != nil {
		return nil, fmt.Errorf("pages: render shell: %w", err)
	}
	return []byte(out), nil
}

func (s *Shell) content(ctx context.Context, session client.Session, page layout.Page, tab layout.Tab, opts render.RenderOptions) ([]byte, error) {
	if static := strings.TrimSpace(tab.Static); static != "" {
		staticPage, err := s.static.Get(static)
		if err != nil {
			return nil, err
		}
		return staticPage.Render(ctx, session)
	}
	if s.forms == nil {
		return nil, errors.New("pages: dynamic tabs need a form orchestrator")
	}

	form, err := s.forms.Open(ctx, session, tab.FormCode)
	if err != nil {
		return nil, err
	}
	opts.Fragment = true
	opts.Visible = subsetVisibility(form, tab.Subset(), opts.Visible)
	opts.Hidden = render.MergeHiddenFields(opts.Hidden, render.Hidden(ReturnField, PagePath(page.ID, tab.ID)))
	return s.forms.Render(ctx, orchestrator.RenderRequest{Session: session, Form: form, Options: opts})
}

// subsetVisibility limits rendering to the tab's fields without touching the
// shared definition.
func subsetVisibility(form *orchestrator.Form, subset render.FieldSubset, requested map[string]bool) map[string]bool {
	if subset.Empty() {
		return requested
	}
	scoped := form.Definition
	scoped.Fields = append(scoped.Fields[:0:0], form.Definition.Fields...)
	render.ApplySubset(&scoped, subset)

	visible := make(map[string]bool, len(form.Definition.Fields))
	for _, field := range form.Definition.Fields {
		visible[field.Code] = false
	}
	for _, field := range scoped.Fields {
		visible[field.Code] = requested == nil || requested[field.Code]
	}
	return visible
}
