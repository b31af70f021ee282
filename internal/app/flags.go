package app

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// listFlag is a comma-separated flag.Value.
type listFlag struct{ dst *[]string }

func (l listFlag) String() string {
	if l.dst == nil {
		return ""
	}
	return strings.Join(*l.dst, ",")
}

func (l listFlag) Set(s string) error {
	*l.dst = splitList(s)
	return nil
}

// NewFlagSet binds every command line flag to cfg. The current cfg values
// become the flag defaults.
func NewFlagSet(name string, cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "Path to a YAML or JSON config file")
	fs.Var(listFlag{&cfg.EnvFiles}, "env", "Comma-separated dotenv files; later files win")
	fs.StringVar(&cfg.InputPath, "input", cfg.InputPath, "Path to the .docx manuscript to check")
	fs.StringVar(&cfg.TemplatesDir, "templates", cfg.TemplatesDir, "Directory of rule templates (default: built-in templates)")
	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "Directory for the annotated copy and sidecars")
	fs.StringVar(&cfg.ReportPath, "report", cfg.ReportPath, "Write the text report to this path (always printed to stdout)")
	fs.StringVar(&cfg.HTMLPath, "report.html", cfg.HTMLPath, "Write an HTML report to this path")
	fs.StringVar(&cfg.PDFPath, "report.pdf", cfg.PDFPath, "Write a PDF report to this path")
	fs.StringVar(&cfg.PDFFont, "pdf.font", cfg.PDFFont, "TrueType font with CJK glyphs for the PDF report")
	fs.StringVar(&cfg.JSONPath, "json", cfg.JSONPath, "Write machine-readable results to this path")
	fs.Var(listFlag{&cfg.Modules}, "modules", "Comma-separated modules to run (default: all)")
	fs.BoolVar(&cfg.Parallel, "parallel", cfg.Parallel, "Run detection modules concurrently")
	fs.BoolVar(&cfg.NoAnnotate, "no-annotate", cfg.NoAnnotate, "Skip writing the annotated copy")
	fs.BoolVar(&cfg.FigureContent, "figure.content", cfg.FigureContent, "Check chart conventions with a vision model")
	fs.StringVar(&cfg.LLMBaseURL, "llm.base", cfg.LLMBaseURL, "OpenAI-compatible base URL")
	fs.StringVar(&cfg.LLMModel, "llm.model", cfg.LLMModel, "Vision model name")
	fs.StringVar(&cfg.LLMAPIKey, "llm.key", cfg.LLMAPIKey, "API key for the OpenAI-compatible server")
	fs.StringVar(&cfg.CacheDir, "cache.dir", cfg.CacheDir, "Cache directory for vision answers")
	fs.DurationVar(&cfg.CacheMaxAge, "cache.maxAge", cfg.CacheMaxAge, "Purge cached answers older than this (e.g. 72h); 0 disables")
	fs.IntVar(&cfg.CacheMaxEntries, "cache.maxEntries", cfg.CacheMaxEntries, "Keep at most this many cached answers; 0 disables")
	fs.BoolVar(&cfg.CacheClear, "cache.clear", cfg.CacheClear, "Clear the cache directory before the run")
	fs.BoolVar(&cfg.CacheStrictPerms, "cache.strictPerms", cfg.CacheStrictPerms, "Restrict cache permissions (0700 dirs, 0600 files)")
	fs.StringVar(&cfg.MetricsOut, "metrics.out", cfg.MetricsOut, "Write Prometheus metrics to this textfile")
	fs.StringVar(&cfg.CommentAuthor, "comment.author", cfg.CommentAuthor, "Author of inserted comments")
	fs.StringVar(&cfg.CommentInitials, "comment.initials", cfg.CommentInitials, "Initials of inserted comments")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	return fs
}

// ParseArgs layers defaults, the config file, the environment and the
// command line, in increasing precedence. The arguments are parsed twice:
// once to find -config and -env, then over the layered values so that only
// flags given explicitly replace them.
func ParseArgs(name string, args []string, usage io.Writer) (Config, error) {
	probe := Defaults()
	pre := NewFlagSet(name, &probe)
	pre.SetOutput(io.Discard)
	if err := pre.Parse(args); err != nil {
		// The second pass reports the same error with usage.
		probe = Defaults()
	}

	cfg := Defaults()
	if probe.ConfigPath != "" {
		fc, err := LoadConfigFile(probe.ConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("%w: config file: %v", ErrInvalidConfig, err)
		}
		ApplyFileConfig(&cfg, fc)
	}
	if err := LoadEnvFiles(probe.EnvFiles...); err != nil {
		return cfg, fmt.Errorf("%w: env file: %v", ErrInvalidConfig, err)
	}
	ApplyEnvOverrides(&cfg)

	fs := NewFlagSet(name, &cfg)
	fs.SetOutput(usage)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if cfg.InputPath == "" && fs.NArg() > 0 {
		cfg.InputPath = fs.Arg(0)
	}
	return cfg, nil
}
