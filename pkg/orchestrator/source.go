package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/goliatone/go-backoffice/pkg/client"
	"github.com/goliatone/go-backoffice/pkg/model"
)

// ErrDefinitionNotFound is returned when no source knows a form code.
var ErrDefinitionNotFound = errors.New("orchestrator: form definition not found")

// DefinitionSource fetches form definitions by code.
type DefinitionSource interface {
	Definition(ctx context.Context, session client.Session, formCode string) (model.FormDefinition, error)
}

// DefinitionSourceFunc adapts a function into a DefinitionSource.
type DefinitionSourceFunc func(ctx context.Context, session client.Session, formCode string) (model.FormDefinition, error)

// Definition calls the underlying function.
func (fn DefinitionSourceFunc) Definition(ctx context.Context, session client.Session, formCode string) (model.FormDefinition, error) {
	return fn(ctx, session, formCode)
}

// DataSource fetches the values a form opens with and the option lists of
// fields backed by an options source.
type DataSource interface {
	FormData(ctx context.Context, session client.Session, workflowID string, params map[string]any) (model.Values, error)
	Options(ctx context.Context, session client.Session, cfg model.FieldConfig, query string) ([]model.Option, error)
}

// WorkflowExecutor runs a backend workflow.
type WorkflowExecutor interface {
	Execute(ctx context.Context, session client.Session, workflowID string, payload any) (client.Envelope, error)
}

// ClientDefinitions fetches definitions from the data service.
type ClientDefinitions struct {
	Data *client.DataService
}

// Definition implements DefinitionSource.
func (c ClientDefinitions) Definition(ctx context.Context, session client.Session, formCode string) (model.FormDefinition, error) {
	if c.Data == nil {
		return model.FormDefinition{}, errors.New("orchestrator: data service is nil")
	}
	return c.Data.FormDefinition(ctx, session, formCode)
}

// definitionExtensions are tried in order when resolving a code on disk.
var definitionExtensions = []string{".json", ".yaml", ".yml"}

// FSDefinitions reads definitions named <code>.json, <code>.yaml or
// <code>.yml from a filesystem. It serves local development and the CLI.
type FSDefinitions struct {
	FS  fs.FS
	Dir string
}

// Definition implements DefinitionSource.
func (s FSDefinitions) Definition(ctx context.Context, _ client.Session, formCode string) (model.FormDefinition, error) {
	if err := ctx.Err(); err != nil {
		return model.FormDefinition{}, err
	}
	if s.FS == nil {
		return model.FormDefinition{}, errors.New("orchestrator: definitions filesystem is nil")
	}
	code := strings.TrimSpace(formCode)
	if code == "" || strings.ContainsAny(code, `/\`) || strings.HasPrefix(code, ".") {
		return model.FormDefinition{}, fmt.Errorf("orchestrator: invalid form code %q", formCode)
	}
	for _, ext := range definitionExtensions {
		data, err := fs.ReadFile(s.FS, path.Join(s.dirOrRoot(), code+ext))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return model.FormDefinition{}, fmt.Errorf("orchestrator: read definition %q: %w", code, err)
		}
		form, err := model.ParseDefinition(data)
		if err != nil {
			return model.FormDefinition{}, fmt.Errorf("orchestrator: definition %q: %w", code, err)
		}
		if form.FormCode == "" {
			form.FormCode = code
		}
		return form, nil
	}
	return model.FormDefinition{}, fmt.Errorf("%w: %q", ErrDefinitionNotFound, code)
}

// Codes lists the form codes available in the filesystem.
func (s FSDefinitions) Codes() ([]string, error) {
	if s.FS == nil {
		return nil, errors.New("orchestrator: definitions filesystem is nil")
	}
	entries, err := fs.ReadDir(s.FS, s.dirOrRoot())
	if err != nil {
		return nil, fmt.Errorf("orchestrator: list definitions: %w", err)
	}
	seen := map[string]struct{}{}
	var codes []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := path.Ext(entry.Name())
		if !hasExtension(ext) {
			continue
		}
		code := strings.TrimSuffix(entry.Name(), ext)
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

func (s FSDefinitions) dirOrRoot() string {
	if dir := strings.Trim(s.Dir, "/"); dir != "" {
		return dir
	}
	return "."
}

func hasExtension(ext string) bool {
	for _, candidate := range definitionExtensions {
		if candidate == ext {
			return true
		}
	}
	return false
}
