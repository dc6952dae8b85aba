package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goliatone/go-backoffice/pkg/layout"
	"github.com/goliatone/go-backoffice/pkg/model"
	"github.com/goliatone/go-backoffice/pkg/validation"
	"github.com/goliatone/go-backoffice/pkg/visibility/celexpr"
)

type violation struct {
	file     string
	location string
	message  string
}

// ruleCompiler is the part of the visibility evaluator the linter needs.
type ruleCompiler interface {
	Compile(rule string) error
}

func main() {
	layoutsDir := flag.String("layouts", "", "directory with layout overrides to check against the definitions")
	flag.Usage = func() {
		if _, err := fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-layouts dir] [paths...]\n", filepath.Base(os.Args[0])); err != nil {
			panic(err)
		}
		if _, err := fmt.Fprintf(flag.CommandLine.Output(), "\nLint back-office form definitions.\n"); err != nil {
			panic(err)
		}
	}
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		paths = []string{"definitions"}
	}

	evaluator, err := celexpr.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "lint: %v\n", err)
		os.Exit(1)
	}
	var layoutFS fs.FS
	if *layoutsDir != "" {
		layoutFS = os.DirFS(*layoutsDir)
	}
	layouts, err := layout.LoadFS(layout.EmbeddedFS(), layoutFS)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lint: %v\n", err)
		os.Exit(1)
	}

	files, err := collect(paths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lint: %v\n", err)
		os.Exit(1)
	}

	var violations []violation
	for _, file := range files {
		violations = append(violations, lintFile(file, evaluator, layouts)...)
	}
	if len(violations) == 0 {
		return
	}
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].file == violations[j].file {
			if violations[i].location == violations[j].location {
				return violations[i].message < violations[j].message
			}
			return violations[i].location < violations[j].location
		}
		return violations[i].file < violations[j].file
	})
	for _, v := range violations {
		fmt.Fprintf(os.Stderr, "%s: %s -> %s\n", v.file, v.location, v.message)
	}
	os.Exit(1)
}

// collect expands directories into the definition files they hold.
func collect(paths []string) ([]string, error) {
	var files []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if entry.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".json", ".yaml", ".yml":
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

func lintFile(path string, rules ruleCompiler, layouts *layout.Store) []violation {
	raw, err := os.ReadFile(path)
	if err != nil {
		return []violation{{file: path, location: "file", message: err.Error()}}
	}
	form, err := model.ParseDefinition(raw)
	if err != nil {
		return []violation{{file: path, location: "definition", message: err.Error()}}
	}

	result := lintDefinition(path, form, rules)
	if name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)); name != form.FormCode {
		result = append(result, violation{
			file:     path,
			location: "form_code",
			message:  fmt.Sprintf("form_code %q does not match the file name %q, lookups by code will miss it", form.FormCode, name),
		})
	}
	if layouts != nil {
		result = append(result, lintLayout(path, form, layouts)...)
	}
	return result
}

func lintDefinition(file string, form model.FormDefinition, rules ruleCompiler) []violation {
	var result []violation
	add := func(location, format string, args ...any) {
		result = append(result, violation{file: file, location: location, message: fmt.Sprintf(format, args...)})
	}

	editable := false
	for _, field := range form.Fields {
		location := "fields > " + field.Code
		if field.IsModify {
			editable = true
		}
		result = append(result, lintField(file, location, field)...)

		if field.IsSensitive && !field.IsModify {
			add(location, "issensitive has no effect on a field that is not modifiable")
		}
		if rule := strings.TrimSpace(field.VisibleWhen); rule != "" && rules != nil {
			if err := rules.Compile(rule); err != nil {
				add(location, "visibleWhen does not compile: %v", err)
			}
		}
		if field.Type.IsArray() && field.Type != model.FieldTypeBanner && field.Type != model.FieldTypeLabelBanner {
			if len(field.Config.Columns) == 0 {
				add(location, "%s field has no columns", field.Type)
			}
			seen := map[string]bool{}
			for _, column := range field.Config.Columns {
				columnLocation := location + " > columns > " + column.Code
				if strings.TrimSpace(column.Code) == "" {
					add(location, "column without a code")
					continue
				}
				if seen[column.Code] {
					add(columnLocation, "duplicate column code")
				}
				seen[column.Code] = true
				if column.Type.IsArray() {
					add(columnLocation, "nested %s columns are not supported", column.Type)
				}
				result = append(result, lintField(file, columnLocation, column)...)
			}
		}
	}

	if _, err := validation.BuildRules(form); err != nil {
		add("validations", "%v", err)
	}
	if editable && strings.TrimSpace(form.SubmitWorkflow) == "" {
		add("submit_workflow", "form has modifiable fields but no submit workflow")
	}
	return result
}

func lintField(file, location string, field model.Field) []violation {
	var result []violation
	if !field.Type.Known() {
		result = append(result, violation{
			file:     file,
			location: location,
			message:  fmt.Sprintf("unknown field type %q (supported: %s)", field.Type, knownTypes()),
		})
	}
	if field.Type == model.FieldTypeSelect || field.Type == model.FieldTypeCheckboxGroup {
		if len(field.Config.Options) == 0 && strings.TrimSpace(field.Config.OptionsSource) == "" {
			result = append(result, violation{file: file, location: location, message: "option field has neither options nor an optionsSource"})
		}
	}
	return result
}

func lintLayout(file string, form model.FormDefinition, layouts *layout.Store) []violation {
	overrides, ok := layouts.Form(form.FormCode)
	if !ok {
		return nil
	}
	codes := make([]string, 0, len(overrides.Fields))
	for code := range overrides.Fields {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var result []violation
	for _, code := range codes {
		if _, found := form.Field(code); !found {
			result = append(result, violation{
				file:     file,
				location: "layout > " + code,
				message:  "layout override names a field the definition does not have",
			})
		}
	}
	return result
}

func knownTypes() string {
	names := make([]string, 0, len(model.KnownFieldTypes))
	for _, t := range model.KnownFieldTypes {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
