// Package orchestrator runs the detection modules over one document and
// aggregates their normalized reports.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/papercheck/internal/detect"
	"github.com/hyperifyio/papercheck/internal/docmodel"
	"github.com/hyperifyio/papercheck/internal/report"
	"github.com/hyperifyio/papercheck/internal/template"
)

// ErrUnknownModule is returned when Options names a module that is not in
// the orchestrator's table.
var ErrUnknownModule = errors.New("unknown module")

// Options selects what CheckAll runs.
type Options struct {
	// Modules restricts the run to these names. Empty runs every module.
	Modules []string
	// EnableFigureContentCheck turns on the vision-model figure checks.
	EnableFigureContentCheck bool
	// Parallel runs modules concurrently. Results keep the table order.
	Parallel bool
}

// Result is the outcome of CheckAll.
type Result struct {
	RunID    uuid.UUID      `json:"run_id"`
	Document string         `json:"document"`
	Results  report.Results `json:"results"`
	Summary  report.Summary `json:"summary"`
}

// DocumentFailed reports whether every module errored, which happens when
// the document could not be loaded.
func (r Result) DocumentFailed() bool {
	if len(r.Results) == 0 {
		return false
	}
	for _, rep := range r.Results {
		if !rep.Error {
			return false
		}
	}
	return true
}

// Orchestrator holds an explicit module table and the template store.
type Orchestrator struct {
	store   *template.Store
	modules []detect.Module
}

// DefaultModules returns the seven modules in their fixed order. checker
// may be nil when figure content checks are not used.
func DefaultModules(checker detect.ContentChecker) []detect.Module {
	return []detect.Module{
		detect.Title{},
		detect.Abstract{},
		detect.Keywords{},
		detect.Content{},
		detect.Formula{},
		detect.Figure{Checker: checker},
		detect.Table{},
	}
}

// New builds an orchestrator. Without modules it uses DefaultModules(nil).
func New(store *template.Store, modules ...detect.Module) *Orchestrator {
	if store == nil {
		store = template.Embedded()
	}
	if len(modules) == 0 {
		modules = DefaultModules(nil)
	}
	return &Orchestrator{store: store, modules: modules}
}

// Modules returns the names of the module table in order.
func (o *Orchestrator) Modules() []string {
	out := make([]string, len(o.modules))
	for i, m := range o.modules {
		out[i] = m.Name()
	}
	return out
}

func (o *Orchestrator) selected(names []string) ([]detect.Module, error) {
	if len(names) == 0 {
		return o.modules, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []detect.Module
	for _, m := range o.modules {
		if want[m.Name()] {
			out = append(out, m)
			delete(want, m.Name())
		}
	}
	for _, n := range names {
		if want[n] {
			return nil, fmt.Errorf("%w: %s", ErrUnknownModule, n)
		}
	}
	return out, nil
}

// CheckAll runs the selected modules over the document at path. The only
// errors returned are unknown module names and template failures; a
// document that cannot be parsed yields an error report per module.
func (o *Orchestrator) CheckAll(ctx context.Context, path string, opts Options) (Result, error) {
	mods, err := o.selected(opts.Modules)
	if err != nil {
		return Result{}, err
	}
	tpls := make([]*template.Template, len(mods))
	for i, m := range mods {
		t, err := o.store.Load(m.Name())
		if err != nil {
			return Result{}, fmt.Errorf("load template: %w", err)
		}
		tpls[i] = t
	}

	res := Result{RunID: uuid.New(), Document: path}
	reports := make([]report.Report, len(mods))

	doc, err := docmodel.Open(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("document failed to load")
		for i, m := range mods {
			reports[i] = report.Normalize(m.Name(), report.Errored(m.Name(), err))
		}
		res.Results = reports
		res.Summary = report.Tally(reports)
		return res, nil
	}

	run := func(i int) {
		in := detect.Input{Doc: doc, Template: tpls[i], FigureContent: opts.EnableFigureContentCheck}
		reports[i] = runModule(ctx, mods[i], in)
	}
	if opts.Parallel {
		var g errgroup.Group
		for i := range mods {
			i := i
			g.Go(func() error {
				run(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range mods {
			run(i)
		}
	}

	res.Results = reports
	res.Summary = report.Tally(reports)
	log.Info().Str("path", path).Int("total", res.Summary.TotalChecks).Int("failed", res.Summary.FailedChecks).
		Float64("pass_rate", res.Summary.PassRate).Msg("detection finished")
	return res, nil
}

func runModule(ctx context.Context, m detect.Module, in detect.Input) report.Report {
	name := m.Name()
	start := time.Now()
	log.Debug().Str("module", name).Msg("module start")
	rep, err := detect.Run(ctx, m, in)
	if err != nil {
		log.Warn().Err(err).Str("module", name).Msg("module failed")
	}
	rep = report.Normalize(name, rep)
	passed := true
	rep.AllChecks(func(_, _ string, r report.CheckResult) { passed = passed && r.OK })
	log.Debug().Str("module", name).Dur("took", time.Since(start)).Bool("passed", passed && !rep.Error).Msg("module finish")
	return rep
}

// Check runs a single module.
func (o *Orchestrator) Check(ctx context.Context, path, module string) (report.Report, error) {
	res, err := o.CheckAll(ctx, path, Options{Modules: []string{module}})
	if err != nil {
		return report.Report{}, err
	}
	rep, _ := res.Results.Get(module)
	return rep, nil
}

func (o *Orchestrator) CheckTitle(ctx context.Context, path string) (report.Report, error) {
	return o.Check(ctx, path, report.Title)
}

func (o *Orchestrator) CheckAbstract(ctx context.Context, path string) (report.Report, error) {
	return o.Check(ctx, path, report.Abstract)
}

func (o *Orchestrator) CheckKeywords(ctx context.Context, path string) (report.Report, error) {
	return o.Check(ctx, path, report.Keywords)
}

func (o *Orchestrator) CheckContent(ctx context.Context, path string) (report.Report, error) {
	return o.Check(ctx, path, report.Content)
}

func (o *Orchestrator) CheckFormula(ctx context.Context, path string) (report.Report, error) {
	return o.Check(ctx, path, report.Formula)
}

func (o *Orchestrator) CheckFigure(ctx context.Context, path string) (report.Report, error) {
	return o.Check(ctx, path, report.Figure)
}

func (o *Orchestrator) CheckTable(ctx context.Context, path string) (report.Report, error) {
	return o.Check(ctx, path, report.Table)
}
