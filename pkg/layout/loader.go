package layout

import (
	"bytes"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

const gridColumns = 12

type documentFile struct {
	Pages map[string]Page       `json:"pages" yaml:"pages"`
	Forms map[string]FormLayout `json:"forms" yaml:"forms"`
}

// LoadFS walks the filesystems in order and parses JSON/YAML layout
// documents. Nil filesystems are skipped; with no documents the returned
// store is empty. A page or form defined twice, in one filesystem or across
// several, is an error.
func LoadFS(fsyss ...fs.FS) (*Store, error) {
	store := &Store{pages: make(map[string]Page), forms: make(map[string]FormLayout)}
	for _, fsys := range fsyss {
		if fsys == nil {
			continue
		}
		if err := store.load(fsys); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func (store *Store) load(fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isLayoutFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("layout: read %s: %w", path, err)
		}
		doc, err := parseDocument(data, path)
		if err != nil {
			return err
		}

		for rawID, page := range doc.Pages {
			id := strings.TrimSpace(rawID)
			if id == "" {
				return fmt.Errorf("layout: file %s defines a page with an empty id", path)
			}
			if _, exists := store.pages[id]; exists {
				return fmt.Errorf("layout: duplicate page %q (file %s)", id, path)
			}
			if err := validatePage(id, page, path); err != nil {
				return err
			}
			for idx := range page.Tabs {
				page.Tabs[idx].Icon = sanitizeIconMarkup(page.Tabs[idx].Icon)
			}
			page.ID = id
			page.Source = path
			store.pages[id] = page
		}
		for rawCode, form := range doc.Forms {
			code := strings.TrimSpace(rawCode)
			if code == "" {
				return fmt.Errorf("layout: file %s defines a form with an empty code", path)
			}
			if _, exists := store.forms[code]; exists {
				return fmt.Errorf("layout: duplicate form %q (file %s)", code, path)
			}
			if err := validateForm(code, form, path); err != nil {
				return err
			}
			store.forms[code] = form
		}
		return nil
	})
}

func parseDocument(data []byte, source string) (documentFile, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return documentFile{}, fmt.Errorf("layout: file %s is empty", source)
	}
	var doc documentFile
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return documentFile{}, fmt.Errorf("layout: parse %s: %w", source, err)
		}
		return doc, nil
	}
	if err := yaml.Unmarshal(trimmed, &doc); err != nil {
		return documentFile{}, fmt.Errorf("layout: parse %s: %w", source, err)
	}
	return doc, nil
}

func validatePage(id string, page Page, source string) error {
	if len(page.Tabs) == 0 {
		return fmt.Errorf("layout: page %q (file %s) has no tabs", id, source)
	}
	seen := make(map[string]struct{}, len(page.Tabs))
	for idx, tab := range page.Tabs {
		if strings.TrimSpace(tab.ID) == "" {
			return fmt.Errorf("layout: page %q (file %s) tab %d has no id", id, source, idx)
		}
		if _, dup := seen[tab.ID]; dup {
			return fmt.Errorf("layout: page %q (file %s) repeats tab %q", id, source, tab.ID)
		}
		seen[tab.ID] = struct{}{}
		hasForm := strings.TrimSpace(tab.FormCode) != ""
		hasStatic := strings.TrimSpace(tab.Static) != ""
		if hasForm == hasStatic {
			return fmt.Errorf("layout: page %q (file %s) tab %q needs exactly one of formCode or static", id, source, tab.ID)
		}
	}
	return nil
}

func validateForm(code string, form FormLayout, source string) error {
	for fieldCode, cfg := range form.Fields {
		if cfg.Grid == nil {
			continue
		}
		for _, span := range []int{cfg.Grid.XS, cfg.Grid.SM, cfg.Grid.MD, cfg.Grid.LG} {
			if span < 0 || span > gridColumns {
				return fmt.Errorf("layout: form %q (file %s) field %q: grid span %d outside 0..%d", code, source, fieldCode, span, gridColumns)
			}
		}
	}
	return nil
}

func isLayoutFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
