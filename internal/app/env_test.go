package app

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// clearEnv blanks every variable the config layers read so that the host
// environment cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PAPERCHECK_INPUT", "PAPERCHECK_TEMPLATES", "PAPERCHECK_OUT", "PAPERCHECK_REPORT",
		"PAPERCHECK_REPORT_HTML", "PAPERCHECK_REPORT_PDF", "PAPERCHECK_PDF_FONT", "PAPERCHECK_JSON",
		"PAPERCHECK_METRICS_OUT", "PAPERCHECK_MODULES", "PAPERCHECK_PARALLEL", "PAPERCHECK_NO_ANNOTATE",
		"PAPERCHECK_FIGURE_CONTENT", "PAPERCHECK_CACHE_DIR", "PAPERCHECK_COMMENT_AUTHOR",
		"PAPERCHECK_COMMENT_INITIALS", "PAPERCHECK_VERBOSE", "LLM_BASE_URL", "LLM_MODEL", "LLM_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadEnvFiles_LoadsKeyValues(t *testing.T) {
	t.Setenv("FOO", "")
	t.Setenv("BAR", "")

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "\n# sample dotenv file\nFOO=alpha\nBAR=\"beta\"\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	if err := LoadEnvFiles(envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("FOO"); got != "alpha" {
		t.Fatalf("FOO=%q, want alpha", got)
	}
	if got := os.Getenv("BAR"); got != "beta" {
		t.Fatalf("BAR=%q, want beta", got)
	}
}

func TestLoadEnvFiles_OverrideOrder(t *testing.T) {
	t.Setenv("K", "")
	t.Setenv("KEEP", "real")
	dir := t.TempDir()
	a := filepath.Join(dir, ".env.a")
	b := filepath.Join(dir, ".env.b")
	if err := os.WriteFile(a, []byte("K=first\nKEEP=file\n"), 0o600); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.WriteFile(b, []byte("K=second\n"), 0o600); err != nil {
		t.Fatalf("write b: %v", err)
	}

	if err := LoadEnvFiles(a, b); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("K"); got != "second" {
		t.Fatalf("override order failed: got %q, want second", got)
	}
	if got := os.Getenv("KEEP"); got != "real" {
		t.Fatalf("real environment overwritten: got %q", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAPERCHECK_OUT", "/tmp/papercheck-out")
	t.Setenv("PAPERCHECK_MODULES", "Title, Figure,")
	t.Setenv("PAPERCHECK_PARALLEL", "yes")
	t.Setenv("PAPERCHECK_NO_ANNOTATE", "off")
	t.Setenv("LLM_MODEL", "qwen-vl")

	cfg := Defaults()
	cfg.NoAnnotate = true
	cfg.InputPath = "kept.docx"
	ApplyEnvOverrides(&cfg)

	if cfg.OutputDir != "/tmp/papercheck-out" {
		t.Fatalf("OutputDir=%q", cfg.OutputDir)
	}
	if !reflect.DeepEqual(cfg.Modules, []string{"Title", "Figure"}) {
		t.Fatalf("Modules=%v", cfg.Modules)
	}
	if !cfg.Parallel || cfg.NoAnnotate {
		t.Fatalf("booleans: parallel=%v noAnnotate=%v", cfg.Parallel, cfg.NoAnnotate)
	}
	if cfg.LLMModel != "qwen-vl" || cfg.InputPath != "kept.docx" {
		t.Fatalf("cfg: %+v", cfg)
	}
}
