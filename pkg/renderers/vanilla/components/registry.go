// Package components holds the widget renderers of the vanilla HTML renderer.
// Each widget is a Descriptor keyed by the widget name the dispatcher
// resolves; descriptors declare the stylesheets and scripts they need so the
// page can emit each asset once.
package components

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/goliatone/go-backoffice/pkg/render"
	rendertemplate "github.com/goliatone/go-backoffice/pkg/render/template"
)

// Renderer writes the control markup of one field into buf.
type Renderer func(buf *bytes.Buffer, field model.Field, data ComponentData) error

// ComponentData carries the per-field render state.
type ComponentData struct {
	Template rendertemplate.TemplateRenderer
	// Action is the base URL of the form; widget actions post to sub paths.
	Action string
	Value  any
	Mode   render.Mode
	// Unlocked is set once a sensitive field passed the password check.
	Unlocked bool
	Staged   *render.StagedUpload
	// Pending marks array values holding row edits not yet applied.
	Pending bool
	Options []model.Option
	Errors  []string
	// RenderChild renders a nested control, used by label in edit mode.
	RenderChild func(widget string, field model.Field, value any) (string, error)
}

// Script describes JavaScript a component needs emitted once per page.
type Script struct {
	Src    string
	Inline string
	Defer  bool
}

// Descriptor bundles the renderer implementation with its asset dependencies.
type Descriptor struct {
	Name        string
	Renderer    Renderer
	Stylesheets []string
	Scripts     []Script
}

// Registry tracks component descriptors keyed by widget name.
type Registry struct {
	mu         sync.RWMutex
	components map[string]Descriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{components: make(map[string]Descriptor)}
}

// Clone returns a copy of the registry to allow isolated overrides.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cloned := New()
	for name, descriptor := range r.components {
		cloned.components[name] = cloneDescriptor(descriptor)
	}
	return cloned
}

// Register associates a descriptor with a widget name, replacing any existing
// entry.
func (r *Registry) Register(name string, descriptor Descriptor) error {
	if name = normalize(name); name == "" {
		return fmt.Errorf("components: component name is required")
	}
	if descriptor.Renderer == nil {
		return fmt.Errorf("components: renderer for %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	descriptor.Name = name
	r.components[name] = cloneDescriptor(descriptor)
	return nil
}

// MustRegister mirrors Register but panics on error.
func (r *Registry) MustRegister(name string, descriptor Descriptor) {
	if err := r.Register(name, descriptor); err != nil {
		panic(err)
	}
}

// Descriptor fetches a descriptor by name.
func (r *Registry) Descriptor(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	descriptor, ok := r.components[normalize(name)]
	if !ok {
		return Descriptor{}, false
	}
	return cloneDescriptor(descriptor), true
}

// Names returns the sorted registered component names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Assets aggregates the stylesheets and scripts of the named components,
// keeping first-seen order and dropping duplicates.
func (r *Registry) Assets(names []string) (stylesheets []string, scripts []Script) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seenStyles := make(map[string]struct{})
	seenScripts := make(map[string]struct{})
	for _, name := range names {
		descriptor, ok := r.components[normalize(name)]
		if !ok {
			continue
		}
		for _, href := range descriptor.Stylesheets {
			if _, exists := seenStyles[href]; exists || href == "" {
				continue
			}
			seenStyles[href] = struct{}{}
			stylesheets = append(stylesheets, href)
		}
		for _, script := range descriptor.Scripts {
			key := "inline:" + script.Inline
			if script.Src != "" {
				key = "src:" + script.Src
			}
			if _, exists := seenScripts[key]; exists {
				continue
			}
			seenScripts[key] = struct{}{}
			scripts = append(scripts, script)
		}
	}
	return stylesheets, scripts
}

func cloneDescriptor(src Descriptor) Descriptor {
	return Descriptor{
		Name:        src.Name,
		Renderer:    src.Renderer,
		Stylesheets: slices.Clone(src.Stylesheets),
		Scripts:     slices.Clone(src.Scripts),
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
