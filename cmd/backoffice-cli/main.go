package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-backoffice/internal/config"
	"github.com/goliatone/go-backoffice/internal/logging"
	"github.com/goliatone/go-backoffice/pkg/client"
	"github.com/goliatone/go-backoffice/pkg/formstate"
	"github.com/goliatone/go-backoffice/pkg/layout"
	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/goliatone/go-backoffice/pkg/orchestrator"
	"github.com/goliatone/go-backoffice/pkg/render"
	"github.com/goliatone/go-backoffice/pkg/renderers/tui"
	"github.com/goliatone/go-backoffice/pkg/renderers/vanilla"
	"github.com/goliatone/go-backoffice/pkg/visibility/celexpr"
	"github.com/goliatone/go-backoffice/pkg/widgets"
)

type options struct {
	definitions string
	form        string
	values      string
	output      string
	interactive bool
	submit      bool
	config      string
	env         string
	token       string
	role        string
}

func main() {
	var opts options
	flag.StringVar(&opts.definitions, "definitions", "definitions", "directory holding <code>.yaml or <code>.json form definitions")
	flag.StringVar(&opts.form, "form", "", "form code to render")
	flag.StringVar(&opts.values, "values", "", "JSON file with the values the form opens with")
	flag.StringVar(&opts.output, "output", "", "output file (stdout if empty)")
	flag.BoolVar(&opts.interactive, "interactive", false, "fill the form in on the terminal instead of rendering HTML")
	flag.BoolVar(&opts.submit, "submit", false, "post the answers to the form's submit workflow (needs -interactive)")
	flag.StringVar(&opts.config, "config", "", "YAML configuration with the backend URLs, used by -submit")
	flag.StringVar(&opts.env, "env", ".env", "optional .env file with BACKOFFICE_* overrides")
	flag.StringVar(&opts.token, "token", os.Getenv("BACKOFFICE_TOKEN"), "session token sent to the backend")
	flag.StringVar(&opts.role, "role", "", "role used for visibility rules")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out := io.Writer(os.Stdout)
	if opts.output != "" {
		file, err := os.Create(opts.output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "backoffice-cli: %v\n", err)
			os.Exit(1)
		}
		defer file.Close()
		out = file
	}

	if err := run(ctx, opts, nil, out); err != nil {
		if errors.Is(err, tui.ErrAborted) {
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "backoffice-cli: %v\n", err)
		os.Exit(1)
	}
	if opts.output != "" {
		fmt.Fprintf(os.Stderr, "Form written to %s\n", opts.output)
	}
}

// run renders or fills in one form. driver replaces the terminal prompts
// when set.
func run(ctx context.Context, opts options, driver tui.PromptDriver, out io.Writer) error {
	code := strings.TrimSpace(opts.form)
	if code == "" {
		return errors.New("-form is required")
	}
	if opts.submit && !opts.interactive {
		return errors.New("-submit needs -interactive")
	}

	logger := logging.Discard()
	session := client.Session{Token: opts.token, Role: opts.role, UserID: "cli"}

	dispatcher := widgets.NewRegistry(widgets.WithFallback(widgets.WidgetUnsupported))
	html, err := vanilla.New(vanilla.WithWidgetRegistry(dispatcher))
	if err != nil {
		return err
	}
	prompts, err := tui.New(tui.WithPromptDriver(driver), tui.WithOutputFormat(tui.OutputFormatJSON))
	if err != nil {
		return err
	}
	renderers := render.NewRegistry()
	renderers.MustRegister(html)
	renderers.MustRegister(prompts)

	evaluator, err := celexpr.New()
	if err != nil {
		return err
	}
	layouts, err := layout.LoadFS(layout.EmbeddedFS())
	if err != nil {
		return err
	}

	forms := []orchestrator.Option{
		orchestrator.WithDefinitions(orchestrator.FSDefinitions{FS: os.DirFS(opts.definitions)}),
		orchestrator.WithRegistry(renderers),
		orchestrator.WithWidgets(dispatcher),
		orchestrator.WithEvaluator(evaluator),
		orchestrator.WithDecorators(layout.NewDecorator(layouts)),
		orchestrator.WithLogger(logger),
	}
	if opts.submit {
		api, err := backend(opts, logger)
		if err != nil {
			return err
		}
		forms = append(forms, orchestrator.WithWorkflow(api.Workflow))
	}
	engine := orchestrator.New(forms...)

	form, err := engine.Load(ctx, session, code)
	if err != nil {
		return err
	}
	if opts.values != "" {
		values, err := readValues(opts.values)
		if err != nil {
			return err
		}
		form.State = formstate.New(form.Definition, values)
		engine.Store().Put(session.StateKey(), code, form.State)
	}

	if !opts.interactive {
		output, err := engine.Render(ctx, orchestrator.RenderRequest{Session: session, Form: form, Renderer: html.Name()})
		if err != nil {
			return err
		}
		_, err = out.Write(output)
		return err
	}

	answers, err := engine.Render(ctx, orchestrator.RenderRequest{Session: session, Form: form, Renderer: prompts.Name()})
	if err != nil {
		return err
	}
	if err := apply(form, answers); err != nil {
		return err
	}

	if !opts.submit {
		return writeJSON(out, form.State.DirtyValues())
	}
	env, err := engine.Submit(ctx, session, form)
	if err != nil {
		var invalid *orchestrator.ValidationError
		if errors.As(err, &invalid) {
			for field, messages := range invalid.Fields {
				fmt.Fprintf(out, "%s: %s\n", field, strings.Join(messages, "; "))
			}
		}
		return err
	}
	for _, message := range env.Messages() {
		fmt.Fprintln(out, message)
	}
	fmt.Fprintln(out, "Changes saved")
	return nil
}

func backend(opts options, logger logrus.FieldLogger) (*client.Client, error) {
	cfg, err := config.Load(opts.config, opts.env)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Backend.WorkflowURL) == "" {
		return nil, errors.New("-submit needs backend.workflowURL")
	}
	return client.New(client.Config{
		WorkflowURL: cfg.Backend.WorkflowURL,
		DataURL:     cfg.Backend.DataURL,
		SystemURL:   cfg.Backend.SystemURL,
		CDNURL:      cfg.Backend.CDNURL,
		Timeout:     cfg.Backend.Timeout,
	}, client.WithLogger(logger)), nil
}

func readValues(path string) (model.Values, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	values := model.Values{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("values %s: %w", path, err)
	}
	return values, nil
}

// apply copies the prompted answers onto the open form.
func apply(form *orchestrator.Form, answers []byte) error {
	values := model.Values{}
	if err := json.Unmarshal(answers, &values); err != nil {
		return fmt.Errorf("decode answers: %w", err)
	}
	var errs []error
	for code, value := range values {
		if items, ok := value.([]any); ok {
			if field, found := form.Definition.Field(code); found && field.Type == model.FieldTypeCheckboxGroup {
				value = stringsOf(items)
			}
		}
		if err := form.State.Set(code, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func stringsOf(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, fmt.Sprint(item))
	}
	return out
}

func writeJSON(out io.Writer, values model.Values) error {
	encoded, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(encoded))
	return err
}
