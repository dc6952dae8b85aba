package vanilla

import (
	"bytes"
	"fmt"
	"html"
	"slices"
	"strconv"
	"strings"

	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/goliatone/go-backoffice/pkg/render"
	"github.com/goliatone/go-backoffice/pkg/render/template"
	"github.com/goliatone/go-backoffice/pkg/renderers/vanilla/components"
	"github.com/goliatone/go-backoffice/pkg/widgets"
)

type componentRenderer struct {
	templates template.TemplateRenderer
	registry  *components.Registry
	widgets   *widgets.Registry
	opts      render.RenderOptions

	usedComponents map[string]struct{}
}

func newComponentRenderer(templates template.TemplateRenderer, registry *components.Registry, dispatcher *widgets.Registry, opts render.RenderOptions) *componentRenderer {
	if registry == nil {
		registry = components.NewDefaultRegistry()
	}
	return &componentRenderer{
		templates:      templates,
		registry:       registry,
		widgets:        dispatcher,
		opts:           opts,
		usedComponents: make(map[string]struct{}),
	}
}

// widgetFor returns the widget stamped on the field, falling back to the
// dispatcher. An empty result means the field is skipped. Sensitive scalars
// go through the label widget whatever a layout stamped on them.
func (r *componentRenderer) widgetFor(field model.Field) string {
	if widgets.Masked(field) {
		return widgets.WidgetLabel
	}
	if widget := field.Widget(); widget != "" {
		return widget
	}
	if r.widgets == nil {
		return ""
	}
	widget, _ := r.widgets.Resolve(field)
	return widget
}

// render returns the wrapped cell for one field, or "" when the field has no
// widget.
func (r *componentRenderer) render(field model.Field) (string, error) {
	widget := r.widgetFor(field)
	if widget == "" {
		return "", nil
	}
	control, err := r.control(widget, field, r.opts.Values[field.Code])
	if err != nil {
		return "", err
	}
	return buildFieldMarkup(field, widget, control, r.opts.Errors[field.Code], r.opts.Dirty[field.Code]), nil
}

func (r *componentRenderer) control(widget string, field model.Field, value any) (string, error) {
	descriptor, ok := r.registry.Descriptor(widget)
	if !ok {
		return "", fmt.Errorf("component %q not registered for field %q", widget, field.Code)
	}

	data := components.ComponentData{
		Template:    r.templates,
		Action:      r.opts.Action,
		Value:       value,
		Mode:        r.opts.ModeOf(field.Code),
		Unlocked:    r.opts.Unlocked[field.Code],
		Pending:     r.opts.Pending[field.Code],
		Options:     r.optionsFor(field),
		Errors:      r.opts.Errors[field.Code],
		RenderChild: r.renderChild,
	}
	if staged, ok := r.opts.Staged[field.Code]; ok {
		data.Staged = &staged
	}

	var buf bytes.Buffer
	if err := descriptor.Renderer(&buf, field, data); err != nil {
		return "", fmt.Errorf("render component %q for field %q: %w", widget, field.Code, err)
	}
	r.usedComponents[descriptor.Name] = struct{}{}
	return buf.String(), nil
}

// renderChild renders a bare control with no field chrome.
func (r *componentRenderer) renderChild(widget string, field model.Field, value any) (string, error) {
	return r.control(widget, field, value)
}

func (r *componentRenderer) optionsFor(field model.Field) []model.Option {
	if fetched, ok := r.opts.Options[field.Code]; ok {
		return fetched
	}
	return field.Config.Options
}

func (r *componentRenderer) assets() (stylesheets []string, scripts []components.Script) {
	if r.registry == nil || len(r.usedComponents) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(r.usedComponents))
	for name := range r.usedComponents {
		names = append(names, name)
	}
	slices.Sort(names)
	return r.registry.Assets(names)
}

func buildFieldMarkup(field model.Field, widget, control string, errors []string, dirty bool) string {
	var builder strings.Builder
	builder.Grow(len(control) + 256)

	builder.WriteString(`<div class="`)
	builder.WriteString(string(ClassField))
	if dirty {
		builder.WriteString(" bo-field--dirty")
	}
	if len(errors) > 0 {
		builder.WriteString(" bo-field--invalid")
	}
	for _, cls := range gridClasses(field.Grid) {
		builder.WriteByte(' ')
		builder.WriteString(cls)
	}
	if cls := strings.TrimSpace(field.Metadata["cssClass"]); cls != "" {
		builder.WriteByte(' ')
		builder.WriteString(html.EscapeString(cls))
	}
	builder.WriteString(`" data-component="`)
	builder.WriteString(html.EscapeString(widget))
	builder.WriteString(`" data-field="`)
	builder.WriteString(html.EscapeString(field.Code))
	builder.WriteString("\">\n")

	if shouldRenderLabel(field) {
		builder.WriteString(`    <label for="`)
		builder.WriteString(html.EscapeString(components.ControlID(field.Code)))
		builder.WriteString(`">`)
		builder.WriteString(html.EscapeString(field.Label))
		if field.Required {
			builder.WriteString(` *`)
		}
		builder.WriteString("</label>\n")
	}

	for _, line := range strings.Split(control, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		builder.WriteString("    ")
		builder.WriteString(line)
		builder.WriteByte('\n')
	}

	if desc := strings.TrimSpace(field.Description); desc != "" {
		builder.WriteString(`    <small class="bo-field-help">`)
		builder.WriteString(html.EscapeString(desc))
		builder.WriteString("</small>\n")
	}

	for _, message := range errors {
		builder.WriteString(`    <p class="bo-field-error" role="alert">`)
		builder.WriteString(html.EscapeString(message))
		builder.WriteString("</p>\n")
	}

	builder.WriteString("</div>\n")
	return builder.String()
}

// gridClasses maps 12-column spans to responsive classes. A zero xs span is
// full width.
func gridClasses(grid model.Grid) []string {
	xs := grid.XS
	if xs <= 0 || xs > gridColumns {
		xs = gridColumns
	}
	classes := []string{"bo-col-" + strconv.Itoa(xs)}
	for _, bp := range []struct {
		name string
		span int
	}{{"sm", grid.SM}, {"md", grid.MD}, {"lg", grid.LG}} {
		if bp.span > 0 && bp.span <= gridColumns {
			classes = append(classes, "bo-col-"+bp.name+"-"+strconv.Itoa(bp.span))
		}
	}
	return classes
}

func shouldRenderLabel(field model.Field) bool {
	if strings.TrimSpace(field.Label) == "" {
		return false
	}
	return strings.TrimSpace(field.Metadata["hideLabel"]) != "true"
}
