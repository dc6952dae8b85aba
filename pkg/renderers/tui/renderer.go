// Package tui renders a form definition as a sequence of terminal prompts.
// Instead of markup it returns the answers, serialized as JSON, as the
// posted form body, or as readable text, so the same definition can be
// filled in from a shell session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/goliatone/go-backoffice/pkg/render"
	"github.com/goliatone/go-backoffice/pkg/renderers/vanilla/components"
	"github.com/goliatone/go-backoffice/pkg/validation"
)

const defaultMaxRetries = 3

// Renderer implements render.Renderer for terminal sessions.
type Renderer struct {
	driver       PromptDriver
	outputFormat OutputFormat
	maxRetries   int
}

// New constructs a TUI renderer prompting on the terminal and emitting JSON.
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		outputFormat: OutputFormatJSON,
		maxRetries:   defaultMaxRetries,
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	switch r.outputFormat {
	case OutputFormatJSON, OutputFormatFormURLEncoded, OutputFormatPrettyText:
	default:
		return nil, fmt.Errorf("tui: unknown output format %q", r.outputFormat)
	}
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// Render prompts for every visible field the operator may change, in field
// order, and returns the answers. Read-only fields are printed with their
// current value. Upload and posting fields are left to the web console.
// Answers are checked against the field's validation rules and asked again
// when invalid.
func (r *Renderer) Render(ctx context.Context, form model.FormDefinition, opts render.RenderOptions) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	rules, err := validation.BuildRules(form)
	if err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}
	if title := strings.TrimSpace(form.Title); title != "" {
		if err := r.driver.Info(ctx, title); err != nil {
			return nil, err
		}
	}
	for _, message := range opts.FormErrors() {
		if err := r.driver.Info(ctx, "! "+message); err != nil {
			return nil, err
		}
	}

	answers := model.Values{}
	var order []model.Field
	for _, field := range form.SortedFields() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !opts.IsVisible(field.Code) {
			continue
		}
		options := optionsFor(field, opts)
		if !field.IsModify || (field.IsSensitive && !opts.Unlocked[field.Code]) {
			shown := components.DisplayValue(field, opts.Values[field.Code], options, opts.Unlocked[field.Code])
			if err := r.driver.Info(ctx, fmt.Sprintf("%s: %s", field.DisplayLabel(), shown)); err != nil {
				return nil, err
			}
			continue
		}
		for _, message := range opts.Errors[field.Code] {
			if err := r.driver.Info(ctx, fmt.Sprintf("! %s: %s", field.DisplayLabel(), message)); err != nil {
				return nil, err
			}
		}

		value, asked, err := r.ask(ctx, field, opts.Values[field.Code], options, rules)
		if err != nil {
			return nil, err
		}
		if asked {
			answers[field.Code] = value
			order = append(order, field)
		}
	}
	return r.serialize(order, answers, opts)
}

// ask prompts for one field until the answer passes its rules.
func (r *Renderer) ask(ctx context.Context, field model.Field, current any, options []model.Option, rules validation.Rules) (any, bool, error) {
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		value, asked, err := r.prompt(ctx, field, current, options)
		if err != nil || !asked {
			return nil, asked, err
		}
		messages := rules.Validate(ctx, model.Values{field.Code: value}, map[string]bool{field.Code: true})[field.Code]
		if len(messages) == 0 {
			return value, true, nil
		}
		for _, message := range messages {
			if err := r.driver.Info(ctx, "Invalid: "+message); err != nil {
				return nil, false, err
			}
		}
		current = value
	}
	return nil, false, fmt.Errorf("%w: %s", ErrTooManyRetries, field.Code)
}

func (r *Renderer) prompt(ctx context.Context, field model.Field, current any, options []model.Option) (any, bool, error) {
	label := field.DisplayLabel()
	help := field.Description

	switch field.Type {
	case model.FieldTypeCheckbox:
		value, err := r.driver.Confirm(ctx, YesNo{Label: label, Default: components.Bool(current), Help: help})
		return value, true, err
	case model.FieldTypeSelect:
		if len(options) == 0 {
			break
		}
		idx, err := r.driver.Pick(ctx, Choice{
			Label:    label,
			Labels:   optionLabels(options),
			Selected: []int{optionIndex(options, components.Text(current))},
			Help:     help,
		})
		if err != nil {
			return nil, false, err
		}
		if idx < 0 || idx >= len(options) {
			return "", true, nil
		}
		return options[idx].Value, true, nil
	case model.FieldTypeCheckboxGroup:
		selected := components.Strings(current)
		var defaults []int
		for _, value := range selected {
			if idx := optionIndex(options, value); idx >= 0 {
				defaults = append(defaults, idx)
			}
		}
		indices, err := r.driver.PickMany(ctx, Choice{Label: label, Labels: optionLabels(options), Selected: defaults, Help: help})
		if err != nil {
			return nil, false, err
		}
		values := make([]string, 0, len(indices))
		for _, idx := range indices {
			if idx >= 0 && idx < len(options) {
				values = append(values, options[idx].Value)
			}
		}
		return values, true, nil
	case model.FieldTypeTextarea, model.FieldTypeArea:
		value, err := r.driver.Lines(ctx, Question{Label: label, Default: components.Text(current), Help: help})
		return value, true, err
	case model.FieldTypeTable, model.FieldTypeTableDynamic:
		return r.promptRows(ctx, field, current)
	case model.FieldTypeLabel:
		return nil, false, r.driver.Info(ctx, fmt.Sprintf("%s: %s", label, components.Text(current)))
	case model.FieldTypeImage, model.FieldTypeBanner, model.FieldTypeLabelBanner, model.FieldTypePosting:
		return nil, false, r.driver.Info(ctx, fmt.Sprintf("%s: upload and posting fields are edited in the web console", label))
	}

	if field.IsSensitive {
		value, err := r.driver.Secret(ctx, Question{Label: label, Help: help})
		return value, true, err
	}
	defaultValue := components.Text(current)
	if field.Type == model.FieldTypeDate {
		defaultValue = components.DateValue(current)
	}
	value, err := r.driver.Line(ctx, Question{Label: label, Default: defaultValue, Help: help})
	return strings.TrimSpace(value), true, err
}

// promptRows keeps the existing rows and appends new ones while the
// operator asks for more.
func (r *Renderer) promptRows(ctx context.Context, field model.Field, current any) (any, bool, error) {
	rows := model.RowsFromValue(current)
	if err := r.driver.Info(ctx, fmt.Sprintf("%s: %d row(s)", field.DisplayLabel(), len(rows))); err != nil {
		return nil, false, err
	}
	added := false
	for {
		more, err := r.driver.Confirm(ctx, YesNo{Label: "Add a row to " + field.DisplayLabel() + "?"})
		if err != nil {
			return nil, false, err
		}
		if !more {
			break
		}
		row := model.Row{}
		for _, column := range field.Config.Columns {
			value, _, err := r.prompt(ctx, column, nil, column.Config.Options)
			if err != nil {
				return nil, false, err
			}
			row[column.Code] = value
		}
		rows = append(rows, row)
		added = true
	}
	if !added {
		return nil, false, nil
	}
	return model.RowsToValue(rows), true, nil
}

func (r *Renderer) serialize(order []model.Field, answers model.Values, opts render.RenderOptions) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(formEncode(order, answers)), nil
	case OutputFormatPrettyText:
		var b strings.Builder
		for _, field := range order {
			fmt.Fprintf(&b, "%s: %s\n", field.DisplayLabel(), components.DisplayValue(field, answers[field.Code], optionsFor(field, opts), true))
		}
		return []byte(b.String()), nil
	default:
		out, err := json.Marshal(answers)
		if err != nil {
			return nil, fmt.Errorf("tui: encode answers: %w", err)
		}
		return out, nil
	}
}

// formEncode mirrors the names the web form posts: scalar fields listed
// under the presence key, table cells as code.row.column.
func formEncode(order []model.Field, answers model.Values) string {
	values := url.Values{}
	for _, field := range order {
		answer := answers[field.Code]
		if field.Type.IsArray() {
			values.Add(components.TablePresenceKey, field.Code)
			for idx, row := range model.RowsFromValue(answer) {
				keys := make([]string, 0, len(row))
				for key := range row {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				for _, key := range keys {
					values.Add(components.CellName(field.Code, idx, key), postedText(row[key]))
				}
			}
			continue
		}
		values.Add(components.PresenceKey, field.Code)
		switch v := answer.(type) {
		case []string:
			for _, item := range v {
				values.Add(field.Code, item)
			}
		case bool:
			if v {
				values.Set(field.Code, "true")
			}
		default:
			values.Set(field.Code, postedText(v))
		}
	}
	return values.Encode()
}

// postedText renders booleans the way checkboxes post them.
func postedText(value any) string {
	if v, ok := value.(bool); ok {
		return strconv.FormatBool(v)
	}
	return components.Text(value)
}

func optionsFor(field model.Field, opts render.RenderOptions) []model.Option {
	if fetched, ok := opts.Options[field.Code]; ok {
		return fetched
	}
	return field.Config.Options
}

func optionLabels(options []model.Option) []string {
	out := make([]string, len(options))
	for idx, option := range options {
		out[idx] = option.Label
		if out[idx] == "" {
			out[idx] = option.Value
		}
	}
	return out
}

func optionIndex(options []model.Option, value string) int {
	for idx, option := range options {
		if option.Value == value {
			return idx
		}
	}
	return -1
}
