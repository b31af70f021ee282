package template

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

var names = []string{"Title", "Abstract", "Keywords", "Content", "Formula", "Figure", "Table"}

func TestEmbedded_LoadsAllDefaults(t *testing.T) {
	s := Embedded()
	for _, n := range names {
		t.Run(n, func(t *testing.T) {
			tpl, err := s.Load(n)
			if err != nil {
				t.Fatalf("load %s: %v", n, err)
			}
			if tpl.Name != n {
				t.Fatalf("name: got %q want %q", tpl.Name, n)
			}
			var v map[string]any
			if err := tpl.Decode(&v); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(v) == 0 {
				t.Fatalf("empty template %s", n)
			}
		})
	}
}

func TestNewStore_EmptyDirIsEmbedded(t *testing.T) {
	if got := NewStore("").Dir(); got != "(embedded)" {
		t.Fatalf("dir: got %q", got)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := NewStore(t.TempDir()).Load("Title")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func write(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name, file, body string
	}{
		{"schema", "Title.yaml", "font_size_names:\n  - pt: big\n    name: x\n"},
		{"syntax", "Abstract.yaml", "min_length: [\n"},
		{"type", "Abstract.yaml", "min_length: many\n"},
		{"enum", "Title.yaml", "title:\n  case: shouting\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			write(t, dir, tc.file, tc.body)
			_, err := NewStore(dir).Load(tc.file[:len(tc.file)-len(filepath.Ext(tc.file))])
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("want ErrInvalid, got %v", err)
			}
		})
	}
}

func TestLoad_DirOverrideAndCache(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "Abstract.yml", "min_length: 10\nmax_length: 99\n")
	write(t, dir, "Formula.json", `{"font_size_pt": 12}`)
	s := NewStore(dir)

	a, err := s.Load("Abstract")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var rules struct {
		MinLength int `yaml:"min_length"`
		MaxLength int `yaml:"max_length"`
	}
	if err := a.Decode(&rules); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rules.MinLength != 10 || rules.MaxLength != 99 {
		t.Fatalf("got %+v", rules)
	}
	if a.Source != filepath.Join(dir, "Abstract.yml") {
		t.Fatalf("source: %q", a.Source)
	}
	again, err := s.Load("Abstract")
	if err != nil || again != a {
		t.Fatalf("expected cached template, err=%v", err)
	}

	f, err := s.Load("Formula")
	if err != nil {
		t.Fatalf("load json: %v", err)
	}
	var fr struct {
		Size float64 `yaml:"font_size_pt"`
	}
	if err := f.Decode(&fr); err != nil || fr.Size != 12 {
		t.Fatalf("json decode: %v %+v", err, fr)
	}
}
