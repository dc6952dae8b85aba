// Package render defines the contracts shared by every output renderer: the
// Renderer interface, a name-keyed registry, and the per-request options that
// carry values, errors, edit modes and notices into a render pass.
package render

import (
	"context"

	"github.com/goliatone/go-backoffice/pkg/model"
)

// Renderer converts a form definition into a byte representation (HTML, text).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, form model.FormDefinition, options RenderOptions) ([]byte, error)
}
