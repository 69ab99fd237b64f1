package registry

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/deckbuilder/internal/schema"
)

//go:embed builtin
var builtinFS embed.FS

// definitionSchema validates template declarations themselves before they
// are registered.
var definitionSchema = &schema.Schema{
	Type:     "object",
	Required: []string{"name", "output"},
	Properties: map[string]*schema.Schema{
		"name":        {Type: "string", Pattern: `\S`},
		"description": {Type: "string"},
		"category":    {Type: "string"},
		"schema":      {Type: "object"},
		"output":      {Type: "string", Pattern: `\S`},
		"example":     {Type: "string"},
		"css":         {Type: "string"},
	},
}

var checkDefinition = func() schema.CheckFunc {
	chk, err := schema.Compile(definitionSchema)
	if err != nil {
		panic("registry: definition schema does not compile: " + err.Error())
	}
	return chk
}()

// LoadFromText parses and registers a single template declaration.
//
// An invalid declaration fails immediately, enumerating every validation
// failure; templates registered earlier are unaffected.
func (r *Registry) LoadFromText(data []byte) (*Definition, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse template declaration: %w", err)
	}

	if res := checkDefinition(raw); !res.Valid {
		return nil, fmt.Errorf("invalid template declaration: %s", strings.Join(res.Errors, "; "))
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decode template declaration: %w", err)
	}

	check, err := schema.Compile(def.Schema)
	if err != nil {
		return nil, fmt.Errorf("template %q: compile content schema: %w", def.Name, err)
	}
	def.check = check

	r.Register(&def)
	return &def, nil
}

// LoadFS recursively loads every .yaml/.yml template file under fsys in
// traversal order.
//
// A failing file is fatal to that file only: the error is recorded, the walk
// continues and previously registered templates stay registered. The joined
// per-file errors are returned.
func (r *Registry) LoadFS(fsys fs.FS) error {
	var errs []error
	walkErr := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isTemplateFile(path) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			return nil
		}
		def, err := r.LoadFromText(data)
		if err != nil {
			slog.Warn("Skipping invalid template file", "path", path, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			return nil
		}
		slog.Debug("Registered template", "name", def.Name, "path", path)
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}
	return errors.Join(errs...)
}

// LoadDirectory recursively loads every template file under path.
func (r *Registry) LoadDirectory(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("template directory: %w", err)
	}
	return r.LoadFS(os.DirFS(path))
}

// LoadBuiltins registers the embedded stock templates.
func (r *Registry) LoadBuiltins() error {
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		return err
	}
	return r.LoadFS(sub)
}

func isTemplateFile(path string) bool {
	return strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
}
