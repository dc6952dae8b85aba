package tui

// OutputFormat controls how collected values are serialized.
type OutputFormat string

const (
	// OutputFormatJSON emits a JSON object keyed by field code.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatFormURLEncoded emits the same names the web form posts.
	OutputFormatFormURLEncoded OutputFormat = "form"
	// OutputFormatPrettyText emits one "Label: value" line per field.
	OutputFormatPrettyText OutputFormat = "pretty"
)

// Option configures the TUI renderer.
type Option func(*Renderer)

// WithPromptDriver overrides the prompt driver used by the renderer.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Renderer) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithOutputFormat selects the output serialization format.
func WithOutputFormat(format OutputFormat) Option {
	return func(r *Renderer) {
		if format != "" {
			r.outputFormat = format
		}
	}
}

// WithMaxRetries bounds how often an invalid answer is asked again.
func WithMaxRetries(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.maxRetries = n
		}
	}
}
