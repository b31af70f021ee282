// Package template loads the named rule sets that drive the detection
// modules. Each rule set lives in one file per document region and is
// validated against a JSON schema before use.
package template

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed defaults/*.yaml schemas/*.json
var builtin embed.FS

var (
	// ErrNotFound is returned when no file exists for a template name.
	ErrNotFound = errors.New("template not found")
	// ErrInvalid is returned when a template does not parse or violates its schema.
	ErrInvalid = errors.New("invalid template")
)

// Template is one loaded rule set. It is immutable after Load.
type Template struct {
	Name   string
	Source string
	raw    []byte
}

// Decode unmarshals the template into v, usually a module rule struct.
func (t *Template) Decode(v any) error {
	if t == nil {
		return fmt.Errorf("%w: nil template", ErrInvalid)
	}
	if err := yaml.Unmarshal(t.raw, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, t.Name, err)
	}
	return nil
}

// Store resolves template names to files. Loaded templates are memoized;
// Load is safe for concurrent use.
type Store struct {
	dir   string
	files fs.FS

	mu    sync.Mutex
	cache map[string]*Template
}

// NewStore reads templates from dir. An empty dir selects the embedded
// defaults.
func NewStore(dir string) *Store {
	if dir == "" {
		return Embedded()
	}
	return &Store{dir: dir, files: os.DirFS(dir), cache: map[string]*Template{}}
}

// Embedded returns a store over the built-in default templates.
func Embedded() *Store {
	sub, err := fs.Sub(builtin, "defaults")
	if err != nil {
		panic(err)
	}
	return &Store{dir: "(embedded)", files: sub, cache: map[string]*Template{}}
}

// Dir reports where templates are read from.
func (s *Store) Dir() string { return s.dir }

// Load returns the template called name, trying .yaml, .yml and .json.
func (s *Store) Load(name string) (*Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.cache[name]; ok {
		return t, nil
	}
	var (
		data   []byte
		source string
	)
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		b, err := fs.ReadFile(s.files, name+ext)
		if err == nil {
			data, source = b, path.Join(s.dir, name+ext)
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read template %s: %w", name, err)
		}
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, name, s.dir)
	}
	if err := validate(name, data); err != nil {
		return nil, err
	}
	t := &Template{Name: name, Source: source, raw: data}
	s.cache[name] = t
	return t, nil
}

// validate checks data against schemas/<name>.json when such a schema
// exists.
func validate(name string, data []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	schemaBytes, err := builtin.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaBytes, &schemaMap); err != nil {
		return fmt.Errorf("schema %s: %w", name, err)
	}

	schemaLoader := gojsonschema.NewGoLoader(schemaMap)
	documentLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
	}
	if !result.Valid() {
		var errs []string
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return fmt.Errorf("%w: %s: schema validation failed: %v", ErrInvalid, name, errs)
	}
	return nil
}
