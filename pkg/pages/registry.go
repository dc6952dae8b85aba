// Package pages composes admin pages out of tabs. A tab shows either a
// static page registered here or a dynamic form rendered by the
// orchestrator; the Shell draws the tab strip around both.
package pages

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-backoffice/pkg/client"
)

var (
	ErrPageNotFound = errors.New("pages: page not found")
	ErrTabNotFound  = errors.New("pages: tab not found")
	ErrStaticPage   = errors.New("pages: static page not registered")
)

// StaticPage renders a fixed page body for a session.
type StaticPage interface {
	Code() string
	Title() string
	Render(ctx context.Context, session client.Session) ([]byte, error)
}

// Registry keeps static pages keyed by code.
type Registry struct {
	mu    sync.RWMutex
	pages map[string]StaticPage
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{pages: make(map[string]StaticPage)}
}

// Register adds a static page. Codes are unique.
func (r *Registry) Register(page StaticPage) error {
	if page == nil {
		return errors.New("pages: static page is nil")
	}
	code := strings.TrimSpace(page.Code())
	if code == "" {
		return errors.New("pages: static page code is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pages[code]; exists {
		return fmt.Errorf("pages: static page %q already registered", code)
	}
	r.pages[code] = page
	return nil
}

// Get returns the page registered under code.
func (r *Registry) Get(code string) (StaticPage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	page, ok := r.pages[strings.TrimSpace(code)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrStaticPage, code)
	}
	return page, nil
}

// List returns the registered codes sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.pages))
	for code := range r.pages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
