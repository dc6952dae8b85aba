package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-backoffice/pkg/client"
	"github.com/goliatone/go-backoffice/pkg/formstate"
	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/goliatone/go-backoffice/pkg/notify"
	"github.com/goliatone/go-backoffice/pkg/render"
	"github.com/goliatone/go-backoffice/pkg/renderers/vanilla"
	"github.com/goliatone/go-backoffice/pkg/validation"
	"github.com/goliatone/go-backoffice/pkg/visibility"
	"github.com/goliatone/go-backoffice/pkg/widgets"
)

const defaultRendererName = "vanilla"

// ErrNothingToSubmit is returned by Submit when no visible field changed.
var ErrNothingToSubmit = errors.New("orchestrator: nothing to submit")

// EditModes reports the label modes and sensitive unlocks of a session.
type EditModes interface {
	Modes(sessionID, formCode string) map[string]render.Mode
	Unlocked(sessionID, formCode string) map[string]bool
}

// SessionDecorator enriches a definition for one session, after the
// session-independent decorators ran.
type SessionDecorator interface {
	DecorateFor(session client.Session, form *model.FormDefinition) error
}

// StagedUploads reports the files picked but not yet confirmed per field.
type StagedUploads interface {
	Staged(sessionID, formCode string) map[string]render.StagedUpload
}

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithClient wires definitions, data and workflows to the REST client.
func WithClient(c *client.Client) Option {
	return func(o *Orchestrator) {
		if c == nil {
			return
		}
		o.definitions = ClientDefinitions{Data: c.Data}
		o.data = c.Data
		o.workflow = c.Workflow
	}
}

// WithDefinitions overrides where definitions come from.
func WithDefinitions(source DefinitionSource) Option {
	return func(o *Orchestrator) {
		o.definitions = source
	}
}

// WithData overrides where form values and option lists come from.
func WithData(source DataSource) Option {
	return func(o *Orchestrator) {
		o.data = source
	}
}

// WithWorkflow overrides the workflow executor used by Submit.
func WithWorkflow(executor WorkflowExecutor) Option {
	return func(o *Orchestrator) {
		o.workflow = executor
	}
}

// WithRegistry injects a renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithDefaultRenderer overrides the renderer used when a request omits an
// explicit Renderer field.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		o.defaultRenderer = name
	}
}

// WithDecorators registers decorators that run against every fetched
// definition, after the widget dispatcher.
func WithDecorators(decorators ...model.Decorator) Option {
	return func(o *Orchestrator) {
		o.decorators = append(o.decorators, decorators...)
	}
}

// WithSessionDecorators registers decorators that depend on the session, such
// as role-based edit permissions.
func WithSessionDecorators(decorators ...SessionDecorator) Option {
	return func(o *Orchestrator) {
		o.sessionDecorators = append(o.sessionDecorators, decorators...)
	}
}

// WithWidgets replaces the widget dispatcher.
func WithWidgets(registry *widgets.Registry) Option {
	return func(o *Orchestrator) {
		o.widgets = registry
	}
}

// WithEvaluator sets the visibility rule evaluator. Without one every field
// is visible.
func WithEvaluator(evaluator visibility.Evaluator) Option {
	return func(o *Orchestrator) {
		o.evaluator = evaluator
	}
}

// WithStore shares an edit-state store.
func WithStore(store *formstate.Store) Option {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithEditModes supplies label modes and unlocks for rendering.
func WithEditModes(modes EditModes) Option {
	return func(o *Orchestrator) {
		o.modes = modes
	}
}

// WithStagedUploads supplies staged upload previews for rendering.
func WithStagedUploads(staged StagedUploads) Option {
	return func(o *Orchestrator) {
		o.staged = staged
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.log = logger
		}
	}
}

// Orchestrator coordinates fetch, decorate, render and submit for dynamic
// forms. Missing dependencies fall back to built-in implementations where one
// exists (vanilla renderer, default dispatcher, in-memory store).
type Orchestrator struct {
	definitions       DefinitionSource
	data              DataSource
	workflow          WorkflowExecutor
	registry          *render.Registry
	defaultRenderer   string
	widgets           *widgets.Registry
	decorators        []model.Decorator
	sessionDecorators []SessionDecorator
	evaluator         visibility.Evaluator
	store             *formstate.Store
	modes             EditModes
	staged            StagedUploads
	log               logrus.FieldLogger
	initialiseErr     error
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{defaultRenderer: defaultRendererName}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

func (o *Orchestrator) applyDefaults() {
	if o.log == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		o.log = logger
	}
	if o.widgets == nil {
		o.widgets = widgets.NewRegistry(widgets.WithFallback(widgets.WidgetUnsupported))
	}
	if o.store == nil {
		o.store = formstate.NewStore(0)
	}
	if o.registry == nil {
		o.registry = render.NewRegistry()
		renderer, err := vanilla.New(vanilla.WithWidgetRegistry(o.widgets))
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default renderer: %w", err)
		} else {
			o.registry.MustRegister(renderer)
		}
	}
	if o.defaultRenderer == "" {
		o.defaultRenderer = defaultRendererName
	}
}

// Store exposes the edit-state store so handlers can drop finished states.
func (o *Orchestrator) Store() *formstate.Store {
	return o.store
}

// Form is one open form: its decorated definition, compiled rules and the
// editable state of a session.
type Form struct {
	Definition model.FormDefinition
	Rules      validation.Rules
	State      *formstate.State
}

// Code returns the form code.
func (f *Form) Code() string {
	return f.Definition.FormCode
}

// Load fetches the definition and its data, runs the decorators, compiles the
// validation rules and opens a fresh state for the session, replacing any
// state the session already had for the form.
func (o *Orchestrator) Load(ctx context.Context, session client.Session, formCode string) (*Form, error) {
	if err := o.ready(ctx); err != nil {
		return nil, err
	}
	formCode = strings.TrimSpace(formCode)
	if formCode == "" {
		return nil, errors.New("orchestrator: form code is required")
	}
	if o.definitions == nil {
		return nil, errors.New("orchestrator: no definition source configured")
	}

	definition, err := o.definitions.Definition(ctx, session, formCode)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load definition %q: %w", formCode, err)
	}
	if definition.FormCode == "" {
		definition.FormCode = formCode
	}

	var values model.Values
	if workflow := strings.TrimSpace(definition.LoadWorkflow); workflow != "" && o.data != nil {
		values, err = o.data.FormData(ctx, session, workflow, map[string]any{render.HiddenFormCode: definition.FormCode})
		if err != nil {
			return nil, fmt.Errorf("orchestrator: load data for %q: %w", formCode, err)
		}
	}

	if err := o.decorate(session, &definition); err != nil {
		return nil, err
	}
	rules, err := validation.BuildRules(definition)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: build rules for %q: %w", formCode, err)
	}

	form := &Form{Definition: definition, Rules: rules, State: formstate.New(definition, values)}
	o.store.Put(session.StateKey(), formCode, form.State)
	o.log.WithFields(logrus.Fields{"form_code": formCode, "fields": len(definition.Fields)}).Debug("form loaded")
	return form, nil
}

// Open returns the session's open form, loading it when none is stored or
// the stored state expired.
func (o *Orchestrator) Open(ctx context.Context, session client.Session, formCode string) (*Form, error) {
	if state, ok := o.store.Get(session.StateKey(), strings.TrimSpace(formCode)); ok {
		definition := state.Form()
		rules, err := validation.BuildRules(definition)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: build rules for %q: %w", formCode, err)
		}
		return &Form{Definition: definition, Rules: rules, State: state}, nil
	}
	return o.Load(ctx, session, formCode)
}

// Close drops the session's state for a form.
func (o *Orchestrator) Close(session client.Session, formCode string) {
	o.store.Delete(session.StateKey(), formCode)
}

// RenderRequest describes one render pass.
type RenderRequest struct {
	Session client.Session
	Form    *Form
	// Renderer names the renderer to use; empty selects the default.
	Renderer string
	// Options carries request data (notices, errors, hidden inputs). Values,
	// visibility, dirty and pending markers, fetched options, modes and
	// staged uploads are filled in from the open form when left empty.
	Options render.RenderOptions
}

// Render resolves visibility and renders the open form.
func (o *Orchestrator) Render(ctx context.Context, req RenderRequest) ([]byte, error) {
	if err := o.ready(ctx); err != nil {
		return nil, err
	}
	if req.Form == nil || req.Form.State == nil {
		return nil, errors.New("orchestrator: form is required")
	}
	form := req.Form
	code := form.Code()
	sessionID := req.Session.ID()
	opts := req.Options

	values, pending := workingValues(form)
	for key, value := range opts.Values {
		values[key] = value
	}
	opts.Values = values
	if opts.Pending == nil {
		opts.Pending = pending
	}

	visible := o.visibility(form, req.Session, values)
	if opts.Visible != nil {
		for key := range visible {
			visible[key] = visible[key] && opts.Visible[key]
		}
	}
	opts.Visible = visible

	if opts.Dirty == nil {
		opts.Dirty = make(map[string]bool)
		for _, dirty := range form.State.Dirty() {
			opts.Dirty[dirty] = true
		}
	}
	if opts.Modes == nil && o.modes != nil {
		opts.Modes = o.modes.Modes(sessionID, code)
	}
	if opts.Unlocked == nil && o.modes != nil {
		opts.Unlocked = o.modes.Unlocked(sessionID, code)
	}
	if opts.Staged == nil && o.staged != nil {
		opts.Staged = o.staged.Staged(sessionID, code)
	}
	if opts.Options == nil {
		fetched, failures := o.fetchOptions(ctx, req.Session, form.Definition, visible)
		opts.Options = fetched
		if len(failures) > 0 {
			if opts.Errors == nil {
				opts.Errors = map[string][]string{}
			}
			opts.Errors[""] = render.MergeFormErrors(opts.Errors[""], failures...)
		}
	}

	renderer, err := o.rendererFor(req.Renderer)
	if err != nil {
		return nil, err
	}
	output, err := renderer.Render(ctx, form.Definition, opts)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: render output: %w", err)
	}
	return output, nil
}

// ValidationError carries the per-field messages of a rejected submit.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("orchestrator: %d field(s) failed validation", len(e.Fields))
}

// Unwrap exposes notify.ErrValidation so notices classify the failure.
func (e *ValidationError) Unwrap() error { return notify.ErrValidation }

// SubmitError is a workflow failure with its messages mapped onto the form.
type SubmitError struct {
	Mapping render.ErrorMapping
	Err     error
}

func (e *SubmitError) Error() string { return e.Err.Error() }

func (e *SubmitError) Unwrap() error { return e.Err }

// Submit validates the visible fields, posts the changed visible values with
// the form code to the submit workflow and commits the submitted fields on
// success.
// Unapplied table edits are not part of the payload.
func (o *Orchestrator) Submit(ctx context.Context, session client.Session, form *Form) (client.Envelope, error) {
	if err := o.ready(ctx); err != nil {
		return client.Envelope{}, err
	}
	if form == nil || form.State == nil {
		return client.Envelope{}, errors.New("orchestrator: form is required")
	}
	workflow := strings.TrimSpace(form.Definition.SubmitWorkflow)
	if workflow == "" {
		return client.Envelope{}, fmt.Errorf("orchestrator: form %q has no submit workflow", form.Code())
	}
	if o.workflow == nil {
		return client.Envelope{}, errors.New("orchestrator: no workflow executor configured")
	}

	values := form.State.Values()
	visible := o.visibility(form, session, values)
	if messages := form.Rules.Validate(ctx, values, visible); len(messages) > 0 {
		return client.Envelope{}, &ValidationError{Fields: messages}
	}
	if err := ctx.Err(); err != nil {
		return client.Envelope{}, err
	}

	payload := map[string]any{}
	var submitted []string
	for code, value := range form.State.DirtyValues() {
		if visible[code] {
			payload[code] = value
			submitted = append(submitted, code)
		}
	}
	if len(payload) == 0 {
		return client.Envelope{}, ErrNothingToSubmit
	}
	payload[render.HiddenFormCode] = form.Code()

	logger := o.log.WithFields(logrus.Fields{"form_code": form.Code(), "workflow": workflow, "fields": len(payload) - 1})
	env, err := o.workflow.Execute(ctx, session, workflow, payload)
	if err != nil {
		var business *client.BusinessError
		if errors.As(err, &business) {
			logger.WithError(err).Info("submit rejected")
			return env, &SubmitError{Mapping: render.MapErrorEntries(form.Definition, business.Entries), Err: err}
		}
		logger.WithError(err).Warn("submit failed")
		return env, fmt.Errorf("orchestrator: submit %q: %w", form.Code(), err)
	}
	// Hidden edits were not sent and stay dirty for a later submit.
	form.State.CommitFields(submitted...)
	logger.Info("form submitted")
	return env, nil
}

// Visible resolves the visibility map of an open form.
func (o *Orchestrator) Visible(session client.Session, form *Form) map[string]bool {
	values, _ := workingValues(form)
	return o.visibility(form, session, values)
}

func (o *Orchestrator) visibility(form *Form, session client.Session, values model.Values) map[string]bool {
	visible, err := visibility.Resolve(form.Definition, o.evaluator, visibility.Context{
		Values:  values,
		Session: sessionAttributes(session),
	})
	if err != nil {
		o.log.WithError(err).WithField("form_code", form.Code()).Warn("visibility rule failed")
	}
	return visible
}

func (o *Orchestrator) fetchOptions(ctx context.Context, session client.Session, form model.FormDefinition, visible map[string]bool) (map[string][]model.Option, []string) {
	if o.data == nil {
		return nil, nil
	}
	var (
		out      map[string][]model.Option
		failures []string
	)
	for _, field := range form.Fields {
		if field.Config.OptionsSource == "" || !visible[field.Code] {
			continue
		}
		options, err := o.data.Options(ctx, session, field.Config, "")
		if err != nil {
			o.log.WithError(err).WithFields(logrus.Fields{"form_code": form.FormCode, "field": field.Code}).Warn("options fetch failed")
			failures = append(failures, fmt.Sprintf("Options for %s could not be loaded", field.DisplayLabel()))
			continue
		}
		if out == nil {
			out = make(map[string][]model.Option)
		}
		out[field.Code] = options
	}
	return out, failures
}

func (o *Orchestrator) decorate(session client.Session, form *model.FormDefinition) error {
	if err := o.widgets.Decorate(form); err != nil {
		return fmt.Errorf("orchestrator: resolve widgets: %w", err)
	}
	for _, decorator := range o.decorators {
		if decorator == nil {
			continue
		}
		if err := decorator.Decorate(form); err != nil {
			return fmt.Errorf("orchestrator: decorate form: %w", err)
		}
	}
	for _, decorator := range o.sessionDecorators {
		if decorator == nil {
			continue
		}
		if err := decorator.DecorateFor(session, form); err != nil {
			return fmt.Errorf("orchestrator: decorate form for session: %w", err)
		}
	}
	return nil
}

func (o *Orchestrator) rendererFor(name string) (render.Renderer, error) {
	if o.registry == nil {
		return nil, errors.New("orchestrator: renderer registry is nil")
	}

	target := name
	if target == "" {
		target = o.defaultRenderer
	}
	renderer, err := o.registry.Get(target)
	if err == nil {
		return renderer, nil
	}
	if name != "" {
		return nil, fmt.Errorf("orchestrator: renderer %q: %w", name, err)
	}
	renderer, err = o.registry.Get("")
	if err != nil {
		return nil, fmt.Errorf("orchestrator: no usable renderer: %w", err)
	}
	return renderer, nil
}

func (o *Orchestrator) ready(ctx context.Context) error {
	if ctx == nil {
		return errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return o.initialiseErr
}

// workingValues returns the state values with array fields replaced by their
// working rows, and the set of arrays holding unapplied edits.
func workingValues(form *Form) (model.Values, map[string]bool) {
	values := form.State.Values()
	if values == nil {
		values = model.Values{}
	}
	pending := map[string]bool{}
	for _, field := range form.Definition.Fields {
		if !field.Type.IsArray() {
			continue
		}
		binding, err := form.State.Array(field.Code)
		if err != nil || !binding.Pending() {
			continue
		}
		values[field.Code] = model.RowsToValue(binding.Rows())
		pending[field.Code] = true
	}
	return values, pending
}

func sessionAttributes(session client.Session) map[string]any {
	return map[string]any{
		"role":   session.Role,
		"user":   session.UserID,
		"locale": session.EffectiveLocale(),
	}
}
