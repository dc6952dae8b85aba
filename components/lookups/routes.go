package lookups

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Mux is the minimal interface required to register a net/http handler.
// It is satisfied by *http.ServeMux.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

// Component bundles the handler configuration with its routing helpers.
type Component struct {
	opts Options
}

// New constructs a component with default options plus any overrides.
func New(fns ...OptionFn) *Component {
	return &Component{opts: NewOptions(fns...)}
}

// Handler returns the lookup handler.
func (c *Component) Handler() http.Handler {
	if c == nil {
		return Handler()
	}
	return HandlerWithOptions(c.opts)
}

// Sources lists the registered source names in sorted order.
func (c *Component) Sources() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.opts.Sources))
	for name := range c.opts.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterRoutes registers the handler under basePath on mux.
func (c *Component) RegisterRoutes(mux Mux, basePath string) (string, error) {
	if mux == nil {
		return "", fmt.Errorf("lookups: missing mux")
	}
	opts := DefaultOptions()
	if c != nil {
		opts = c.opts
	}
	pattern := MountPath(basePath, opts.RoutePath)
	mux.Handle(pattern, HandlerWithOptions(opts))
	return pattern, nil
}

// MountPath joins basePath and routePath into a rooted pattern.
func MountPath(basePath, routePath string) string {
	basePath = strings.TrimSpace(basePath)
	routePath = strings.TrimSpace(routePath)

	if routePath == "" {
		routePath = "/"
	}
	if !strings.HasPrefix(routePath, "/") {
		routePath = "/" + routePath
	}

	if basePath == "" || basePath == "/" {
		return routePath
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return strings.TrimRight(basePath, "/") + routePath
}
