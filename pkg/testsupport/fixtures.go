// Package testsupport holds fixture and golden-file helpers shared by package
// tests. Goldens are rewritten when UPDATE_GOLDENS is set.
package testsupport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-backoffice/pkg/model"
)

// MustLoadDefinition reads a JSON or YAML form definition fixture.
func MustLoadDefinition(t *testing.T, path string) model.FormDefinition {
	t.Helper()

	form, err := LoadDefinition(path)
	if err != nil {
		t.Fatalf("load definition: %v", err)
	}
	return form
}

// LoadDefinition reads a definition fixture without requiring testing.T.
func LoadDefinition(path string) (model.FormDefinition, error) {
	if path == "" {
		return model.FormDefinition{}, errors.New("testsupport: definition path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.FormDefinition{}, fmt.Errorf("testsupport: read definition: %w", err)
	}
	form, err := model.ParseDefinition(data)
	if err != nil {
		return model.FormDefinition{}, fmt.Errorf("testsupport: parse definition: %w", err)
	}
	return form, nil
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// MustReadGoldenString reads a golden file and returns its string content.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	return string(MustReadGolden(t, path))
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// CaptureTemplateOutput executes a render function that writes to an io.Writer,
// returning both the string result and the writer contents.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}
	return out, buf.String()
}
