package components

import (
	"github.com/goliatone/go-backoffice/pkg/widgets"
)

// Stylesheet served with every page that renders a table-like widget.
const TableStylesheet = "/assets/backoffice-tables.css"

// NewDefaultRegistry constructs a registry with every built-in widget.
func NewDefaultRegistry() *Registry {
	registry := New()

	for _, name := range []string{
		widgets.WidgetInput,
		widgets.WidgetDecimal,
		widgets.WidgetDate,
		widgets.WidgetSelect,
		widgets.WidgetCheckbox,
	} {
		registry.MustRegister(name, Descriptor{Renderer: templateControl(name)})
	}

	registry.MustRegister(widgets.WidgetArea, Descriptor{Renderer: areaRenderer})
	registry.MustRegister(widgets.WidgetCheckboxGroup, Descriptor{Renderer: checkboxGroupRenderer})
	registry.MustRegister(widgets.WidgetImage, Descriptor{
		Renderer: imageRenderer,
		Scripts:  []Script{uploadPreviewScript},
	})
	registry.MustRegister(widgets.WidgetBanner, Descriptor{
		Renderer:    bannerRenderer,
		Stylesheets: []string{TableStylesheet},
		Scripts:     []Script{uploadPreviewScript},
	})
	registry.MustRegister(widgets.WidgetLabelBanner, Descriptor{Renderer: labelBannerRenderer})
	registry.MustRegister(widgets.WidgetTable, Descriptor{
		Renderer:    tableRenderer,
		Stylesheets: []string{TableStylesheet},
	})
	registry.MustRegister(widgets.WidgetTableDynamic, Descriptor{
		Renderer:    tableDynamicRenderer,
		Stylesheets: []string{TableStylesheet},
	})
	registry.MustRegister(widgets.WidgetPosting, Descriptor{
		Renderer:    postingRenderer,
		Stylesheets: []string{TableStylesheet},
	})
	registry.MustRegister(widgets.WidgetLabel, Descriptor{Renderer: labelRenderer})
	registry.MustRegister(widgets.WidgetUnsupported, Descriptor{Renderer: unsupportedRenderer})

	return registry
}

// uploadPreviewScript enables the stage button once a file is picked.
var uploadPreviewScript = Script{Inline: `document.addEventListener("change",function(e){var t=e.target;if(t&&t.classList&&t.classList.contains("bo-file")){var b=t.nextElementSibling;if(b){b.disabled=!t.files.length}}});`}
