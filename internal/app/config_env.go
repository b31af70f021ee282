package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides overrides cfg fields with the environment variables that
// are set. It runs after the config file so that env takes precedence over
// the file while flags, parsed last, remain highest.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(&cfg.InputPath, "PAPERCHECK_INPUT")
	setString(&cfg.TemplatesDir, "PAPERCHECK_TEMPLATES")
	setString(&cfg.OutputDir, "PAPERCHECK_OUT")
	setString(&cfg.ReportPath, "PAPERCHECK_REPORT")
	setString(&cfg.HTMLPath, "PAPERCHECK_REPORT_HTML")
	setString(&cfg.PDFPath, "PAPERCHECK_REPORT_PDF")
	setString(&cfg.PDFFont, "PAPERCHECK_PDF_FONT")
	setString(&cfg.JSONPath, "PAPERCHECK_JSON")
	setString(&cfg.MetricsOut, "PAPERCHECK_METRICS_OUT")
	setString(&cfg.LLMBaseURL, "LLM_BASE_URL")
	setString(&cfg.LLMModel, "LLM_MODEL")
	setString(&cfg.LLMAPIKey, "LLM_API_KEY")
	setString(&cfg.CacheDir, "PAPERCHECK_CACHE_DIR")
	setString(&cfg.CommentAuthor, "PAPERCHECK_COMMENT_AUTHOR")
	setString(&cfg.CommentInitials, "PAPERCHECK_COMMENT_INITIALS")

	if s := os.Getenv("PAPERCHECK_CACHE_MAX_AGE"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.CacheMaxAge = d
		}
	}
	if s := os.Getenv("PAPERCHECK_CACHE_MAX_ENTRIES"); s != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			cfg.CacheMaxEntries = n
		}
	}

	if v := os.Getenv("PAPERCHECK_MODULES"); strings.TrimSpace(v) != "" {
		cfg.Modules = splitList(v)
	}

	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, key string) {
		switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}
	setBool(&cfg.Parallel, "PAPERCHECK_PARALLEL")
	setBool(&cfg.NoAnnotate, "PAPERCHECK_NO_ANNOTATE")
	setBool(&cfg.FigureContent, "PAPERCHECK_FIGURE_CONTENT")
	setBool(&cfg.CacheClear, "PAPERCHECK_CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "PAPERCHECK_CACHE_STRICT_PERMS")
	setBool(&cfg.Verbose, "PAPERCHECK_VERBOSE")
}
