// Package app wires configuration, detection, rendering and annotation
// into the papercheck command line pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/papercheck/internal/annotate"
	"github.com/hyperifyio/papercheck/internal/cache"
	"github.com/hyperifyio/papercheck/internal/detect"
	"github.com/hyperifyio/papercheck/internal/llm"
	"github.com/hyperifyio/papercheck/internal/metrics"
	"github.com/hyperifyio/papercheck/internal/orchestrator"
	"github.com/hyperifyio/papercheck/internal/render"
	"github.com/hyperifyio/papercheck/internal/report"
	"github.com/hyperifyio/papercheck/internal/template"
	"github.com/hyperifyio/papercheck/internal/vision"
)

// ErrDocument is returned when the input could not be loaded for any
// module.
var ErrDocument = errors.New("document could not be loaded")

// Exit codes of the command line.
const (
	ExitOK         = 0
	ExitConfig     = 1
	ExitDocument   = 2
	ExitAnnotation = 3
)

// ExitCode maps a Run or configuration error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrDocument):
		return ExitDocument
	case errors.Is(err, annotate.ErrWrite):
		return ExitAnnotation
	default:
		return ExitConfig
	}
}

const visionTimeout = 3 * time.Minute

type App struct {
	cfg       Config
	orch      *orchestrator.Orchestrator
	annotator *annotate.Annotator
	metrics   *metrics.Recorder
	stdout    io.Writer
	now       func() time.Time
}

// Outcome is what one Run produced.
type Outcome struct {
	Result     orchestrator.Result
	Annotation annotate.Outcome
	// Written lists every file the run created, annotated copy included.
	Written []string
}

// New validates cfg and builds the pipeline. The text report is printed
// to stdout.
func New(ctx context.Context, cfg Config, stdout io.Writer) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if stdout == nil {
		stdout = io.Discard
	}

	store := template.Embedded()
	if cfg.TemplatesDir != "" {
		store = template.NewStore(cfg.TemplatesDir)
	}

	// A nil *vision.Checker inside the interface would look configured.
	var checker detect.ContentChecker
	if cfg.FigureContent {
		var c *cache.LLMCache
		if cfg.CacheDir != "" {
			c = &cache.LLMCache{Dir: filepath.Join(cfg.CacheDir, "llm"), StrictPerms: cfg.CacheStrictPerms}
			prepareCache(cfg, c.Dir)
		}
		checker = &vision.Checker{
			Client: llm.NewOpenAI(cfg.LLMBaseURL, cfg.LLMAPIKey, visionTimeout),
			Model:  cfg.LLMModel,
			Cache:  c,
		}
		log.Debug().Str("model", cfg.LLMModel).Str("base", cfg.LLMBaseURL).Msg("figure content checks enabled")
	}

	return &App{
		cfg:       cfg,
		orch:      orchestrator.New(store, orchestrator.DefaultModules(checker)...),
		annotator: &annotate.Annotator{Author: cfg.CommentAuthor, Initials: cfg.CommentInitials},
		metrics:   metrics.New(),
		stdout:    stdout,
		now:       time.Now,
	}, nil
}

// prepareCache applies the invalidation controls. Failures only cost cache
// hits, so they are logged and the run continues.
func prepareCache(cfg Config, dir string) {
	if cfg.CacheClear {
		if err := cache.ClearDir(dir); err != nil {
			log.Warn().Err(err).Str("path", dir).Msg("cache clear failed")
		}
	}
	if cfg.CacheMaxAge > 0 {
		if n, err := cache.PurgeByAge(dir, cfg.CacheMaxAge); err != nil {
			log.Warn().Err(err).Str("path", dir).Msg("cache purge failed")
		} else if n > 0 {
			log.Debug().Int("removed", n).Msg("purged stale cache entries")
		}
	}
	if cfg.CacheMaxEntries > 0 {
		if n, err := cache.EnforceLimits(dir, 0, cfg.CacheMaxEntries); err != nil {
			log.Warn().Err(err).Str("path", dir).Msg("cache limit failed")
		} else if n > 0 {
			log.Debug().Int("removed", n).Msg("evicted cache entries")
		}
	}
}

// Run checks the input document, writes the configured reports and the
// annotated copy. Report files are written even when annotation fails.
func (a *App) Run(ctx context.Context) (Outcome, error) {
	start := a.now()
	res, err := a.orch.CheckAll(ctx, a.cfg.InputPath, orchestrator.Options{
		Modules:                  a.cfg.Modules,
		EnableFigureContentCheck: a.cfg.FigureContent,
		Parallel:                 a.cfg.Parallel,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("check: %w", err)
	}
	out := Outcome{Result: res}
	a.metrics.ObserveResults(res.Results)

	if err := a.writeReports(res, start, &out); err != nil {
		return out, err
	}

	var runErr error
	switch {
	case res.DocumentFailed():
		runErr = fmt.Errorf("%w: %s", ErrDocument, res.Results[0].ErrorMessage)
	case !a.cfg.NoAnnotate:
		runErr = a.annotate(ctx, res, &out)
	}

	if !res.DocumentFailed() {
		if err := a.writeContentDetails(res, &out); err != nil {
			log.Warn().Err(err).Msg("content details not written")
		}
	}
	if a.cfg.JSONPath != "" {
		if err := a.writeResultsJSON(res, out.Annotation, start); err != nil {
			return out, err
		}
		out.Written = append(out.Written, a.cfg.JSONPath)
	}

	a.metrics.ObserveDuration(a.now().Sub(start))
	if a.cfg.MetricsOut != "" {
		if err := a.metrics.WriteTextfile(a.cfg.MetricsOut); err != nil {
			log.Warn().Err(err).Str("path", a.cfg.MetricsOut).Msg("metrics not written")
		} else {
			out.Written = append(out.Written, a.cfg.MetricsOut)
		}
	}
	return out, runErr
}

func (a *App) writeReports(res orchestrator.Result, now time.Time, out *Outcome) error {
	text := render.Text(res, now)
	if _, err := fmt.Fprintln(a.stdout, text); err != nil {
		return fmt.Errorf("print report: %w", err)
	}
	if p := a.cfg.ReportPath; p != "" {
		if err := render.SaveText(text, p); err != nil {
			return err
		}
		log.Info().Str("path", p).Msg("text report written")
		out.Written = append(out.Written, p)
	}
	if p := a.cfg.HTMLPath; p != "" {
		page, err := render.HTML(res, now)
		if err != nil {
			return err
		}
		if err := writeFile(p, page); err != nil {
			return err
		}
		log.Info().Str("path", p).Msg("html report written")
		out.Written = append(out.Written, p)
	}
	if p := a.cfg.PDFPath; p != "" {
		if err := render.PDF(text, p, a.cfg.PDFFont); err != nil {
			return fmt.Errorf("pdf report: %w", err)
		}
		log.Info().Str("path", p).Msg("pdf report written")
		out.Written = append(out.Written, p)
	}
	return nil
}

func (a *App) annotate(ctx context.Context, res orchestrator.Result, out *Outcome) error {
	ann, err := a.annotator.GenerateAnnotatedDocument(ctx, a.cfg.InputPath, res.Results, a.cfg.OutputDir)
	if err != nil {
		log.Error().Err(err).Str("path", a.cfg.InputPath).Msg("annotation failed")
		return err
	}
	out.Annotation = ann
	out.Written = append(out.Written, ann.Path)
	a.metrics.ObserveAnnotation(ann)

	m := Manifest{
		RunID:       res.RunID,
		Source:      a.cfg.InputPath,
		Copy:        ann.Path,
		Comments:    ann.Comments,
		Issues:      ann.Issues,
		Dropped:     len(ann.Dropped),
		Version:     BuildVersion,
		GeneratedAt: a.now().UTC(),
	}
	if m.SourceSHA, err = fileSHA256(a.cfg.InputPath); err != nil {
		log.Warn().Err(err).Msg("source digest failed")
	}
	if m.CopySHA, err = fileSHA256(ann.Path); err != nil {
		log.Warn().Err(err).Msg("copy digest failed")
	}
	b, err := marshalManifestJSON(m)
	if err != nil {
		log.Warn().Err(err).Msg("manifest not written")
		return nil
	}
	p := deriveManifestSidecarPath(ann.Path)
	if err := writeFile(p, append(b, '\n')); err != nil {
		log.Warn().Err(err).Str("path", p).Msg("manifest not written")
		return nil
	}
	out.Written = append(out.Written, p)
	return nil
}

func (a *App) writeContentDetails(res orchestrator.Result, out *Outcome) error {
	rep, ok := res.Results.Get(report.Content)
	if !ok || rep.Error {
		return nil
	}
	text := render.ContentDetails(filepath.Base(a.cfg.InputPath), rep)
	if text == "" {
		return nil
	}
	p := deriveContentDetailsPath(a.cfg.OutputDir, a.cfg.InputPath)
	if err := writeFile(p, []byte(text)); err != nil {
		return err
	}
	log.Info().Str("path", p).Int("paragraphs", len(rep.Details.ParagraphIssues)).Msg("content details written")
	out.Written = append(out.Written, p)
	return nil
}

// resultsFile is the schema of the -json output.
type resultsFile struct {
	RunID       uuid.UUID      `json:"run_id"`
	Document    string         `json:"document"`
	DocumentSHA string         `json:"document_sha256,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
	Summary     report.Summary `json:"summary"`
	Results     report.Results `json:"results"`
	Annotated   string         `json:"annotated,omitempty"`
	Comments    int            `json:"comments"`
}

func (a *App) writeResultsJSON(res orchestrator.Result, ann annotate.Outcome, now time.Time) error {
	sum, err := fileSHA256(res.Document)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("document digest failed")
	}
	return writeJSON(a.cfg.JSONPath, resultsFile{
		RunID:       res.RunID,
		Document:    res.Document,
		DocumentSHA: sum,
		GeneratedAt: now.UTC(),
		Summary:     res.Summary,
		Results:     res.Results,
		Annotated:   ann.Path,
		Comments:    ann.Comments,
	})
}
