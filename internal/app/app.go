// Package app assembles the back office from its configuration: backend
// client, form engine, layout pages, lookups and the HTTP server.
package app

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-backoffice/components/lookups"
	"github.com/goliatone/go-backoffice/internal/config"
	"github.com/goliatone/go-backoffice/internal/metrics"
	"github.com/goliatone/go-backoffice/internal/server"
	"github.com/goliatone/go-backoffice/pkg/authz"
	"github.com/goliatone/go-backoffice/pkg/client"
	"github.com/goliatone/go-backoffice/pkg/editable"
	"github.com/goliatone/go-backoffice/pkg/formstate"
	"github.com/goliatone/go-backoffice/pkg/layout"
	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/goliatone/go-backoffice/pkg/notify"
	"github.com/goliatone/go-backoffice/pkg/orchestrator"
	"github.com/goliatone/go-backoffice/pkg/pages"
	"github.com/goliatone/go-backoffice/pkg/render"
	"github.com/goliatone/go-backoffice/pkg/renderers/vanilla"
	"github.com/goliatone/go-backoffice/pkg/upload"
	"github.com/goliatone/go-backoffice/pkg/visibility/celexpr"
	"github.com/goliatone/go-backoffice/pkg/widgets"
)

// App is the assembled back office.
type App struct {
	Server  *server.Server
	Forms   *orchestrator.Orchestrator
	Layouts *layout.Store
	Lookups *lookups.Component
	Metrics *metrics.Metrics
}

// Build wires every component from cfg.
func Build(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*App, error) {
	m := metrics.New()
	clientMetrics, err := client.NewMetrics(m.Registry)
	if err != nil {
		return nil, fmt.Errorf("app: client metrics: %w", err)
	}
	api := client.New(client.Config{
		WorkflowURL: cfg.Backend.WorkflowURL,
		DataURL:     cfg.Backend.DataURL,
		SystemURL:   cfg.Backend.SystemURL,
		CDNURL:      cfg.Backend.CDNURL,
		Timeout:     cfg.Backend.Timeout,
	}, client.WithLogger(logger.WithField("component", "client")), client.WithMetrics(clientMetrics))

	var layoutsDir fs.FS
	if dir := strings.TrimSpace(cfg.Forms.LayoutsDir); dir != "" {
		layoutsDir = os.DirFS(dir)
	}
	layouts, err := layout.LoadFS(layout.EmbeddedFS(), layoutsDir)
	if err != nil {
		return nil, err
	}

	dispatcher := widgets.NewRegistry(widgets.WithFallback(widgets.WidgetUnsupported))
	renderer, err := vanilla.New(vanilla.WithWidgetRegistry(dispatcher))
	if err != nil {
		return nil, fmt.Errorf("app: renderer: %w", err)
	}
	renderers := render.NewRegistry()
	renderers.MustRegister(renderer)

	evaluator, err := celexpr.New()
	if err != nil {
		return nil, fmt.Errorf("app: visibility rules: %w", err)
	}

	controller := editable.NewController(api.System, editable.WithAttemptLimit(cfg.Editable.UnlockInterval, cfg.Editable.UnlockBurst))
	stager := upload.NewStager(api.CDN,
		upload.WithMaxBytes(cfg.Uploads.MaxBytes),
		upload.WithTTL(cfg.Uploads.TTL),
		upload.WithLogger(logger.WithField("component", "upload")),
	)

	options := []orchestrator.Option{
		orchestrator.WithClient(api),
		orchestrator.WithRegistry(renderers),
		orchestrator.WithWidgets(dispatcher),
		orchestrator.WithEvaluator(evaluator),
		orchestrator.WithStore(formstate.NewStore(cfg.Server.SessionTTL)),
		orchestrator.WithEditModes(controller),
		orchestrator.WithStagedUploads(stager),
		orchestrator.WithDecorators(layout.NewDecorator(layouts)),
		orchestrator.WithLogger(logger.WithField("component", "forms")),
	}
	var local *orchestrator.FSDefinitions
	if dir := strings.TrimSpace(cfg.Forms.DefinitionsDir); dir != "" {
		local = &orchestrator.FSDefinitions{FS: os.DirFS(dir)}
		options = append(options, orchestrator.WithDefinitions(*local))
	}

	mode, err := authz.ParseMode(cfg.Authz.Mode)
	if err != nil {
		return nil, err
	}
	if mode != authz.ModeDisabled {
		authorizer, err := authz.New(authz.Config{Mode: mode, Policies: cfg.Authz.Policies, PolicyFile: cfg.Authz.PolicyFile}, logger.WithField("component", "authz"))
		if err != nil {
			return nil, err
		}
		options = append(options, orchestrator.WithSessionDecorators(authorizer))
	}
	forms := orchestrator.New(options...)

	static := pages.NewRegistry()
	summary, err := pages.NewWalletSummary(api.Data, cfg.WalletPages.SummaryWorkflow)
	if err != nil {
		return nil, err
	}
	if err := static.Register(summary); err != nil {
		return nil, err
	}
	shell, err := pages.NewShell(layouts, static, forms, pages.WithLogger(logger.WithField("component", "pages")))
	if err != nil {
		return nil, err
	}

	lookupOptions := []lookups.OptionFn{
		lookups.WithSession(server.RequestSession),
		lookups.WithDefaultLimit(cfg.Lookups.DefaultLimit),
		lookups.WithMaxLimit(cfg.Lookups.MaxLimit),
		lookups.WithLogger(logger.WithField("component", "lookups")),
	}
	if local != nil {
		definitions, err := localDefinitions(ctx, *local, cfg.Forms.Lookups)
		if err != nil {
			return nil, err
		}
		for name, source := range lookups.FromDefinitions(api.Data, definitions...) {
			lookupOptions = append(lookupOptions, lookups.WithSource(name, source))
		}
	} else if len(cfg.Forms.Lookups) > 0 {
		logger.WithField("forms", cfg.Forms.Lookups).Warn("lookup preload needs forms.definitionsDir; skipped")
	}
	component := lookups.New(lookupOptions...)

	srv, err := server.New(cfg.Server, server.Deps{
		Forms:    forms,
		Editable: controller,
		Uploads:  stager,
		Shell:    shell,
		Lookups:  component,
		Flash:    notify.NewFlash(10),
		Metrics:  m,
		Logger:   logger.WithField("component", "server"),
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"pages":   layouts.Pages(),
		"lookups": component.Sources(),
		"authz":   mode,
	}).Info("back office assembled")
	return &App{Server: srv, Forms: forms, Layouts: layouts, Lookups: component, Metrics: m}, nil
}

// localDefinitions reads the named definitions, or every definition in the
// directory when codes is empty.
func localDefinitions(ctx context.Context, source orchestrator.FSDefinitions, codes []string) ([]model.FormDefinition, error) {
	if len(codes) == 0 {
		listed, err := source.Codes()
		if err != nil {
			return nil, err
		}
		codes = listed
	}
	out := make([]model.FormDefinition, 0, len(codes))
	for _, code := range codes {
		definition, err := source.Definition(ctx, client.Session{}, code)
		if err != nil {
			return nil, fmt.Errorf("app: lookup sources: %w", err)
		}
		out = append(out, definition)
	}
	return out, nil
}
