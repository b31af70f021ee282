package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperifyio/papercheck/internal/annotate"
	"github.com/hyperifyio/papercheck/internal/report"
)

// ErrInvalidConfig wraps every ValidateConfig failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds runtime configuration for the application.
type Config struct {
	ConfigPath string
	EnvFiles   []string

	InputPath    string
	TemplatesDir string

	// Outputs
	OutputDir  string
	ReportPath string
	HTMLPath   string
	PDFPath    string
	PDFFont    string
	JSONPath   string
	MetricsOut string

	// Detection
	Modules       []string
	Parallel      bool
	NoAnnotate    bool
	FigureContent bool

	// Vision model
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string

	// Vision answer cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheMaxEntries  int
	CacheClear       bool
	CacheStrictPerms bool

	// Comments
	CommentAuthor   string
	CommentInitials string

	Verbose bool
}

// Defaults returns the lowest configuration layer.
func Defaults() Config {
	return Config{
		EnvFiles:        []string{".env"},
		OutputDir:       "annotated",
		CacheDir:        ".papercheck-cache",
		CommentAuthor:   annotate.DefaultAuthor,
		CommentInitials: annotate.DefaultInitials,
	}
}

// ValidateConfig checks the settings a run cannot start without.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.InputPath) == "" {
		return fmt.Errorf("%w: input path is required", ErrInvalidConfig)
	}
	known := make(map[string]bool, len(report.DefaultOrder))
	for _, m := range report.DefaultOrder {
		known[m] = true
	}
	for _, m := range cfg.Modules {
		if !known[m] {
			return fmt.Errorf("%w: unknown module %q (want one of %s)", ErrInvalidConfig, m, strings.Join(report.DefaultOrder, ", "))
		}
	}
	if cfg.CacheMaxAge < 0 || cfg.CacheMaxEntries < 0 {
		return fmt.Errorf("%w: negative cache limits are not allowed", ErrInvalidConfig)
	}
	if cfg.FigureContent && strings.TrimSpace(cfg.LLMModel) == "" {
		return fmt.Errorf("%w: llm.model is required for figure content checks (or set LLM_MODEL)", ErrInvalidConfig)
	}
	return nil
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
