// Package detect holds the seven detection modules. Each module reads an
// immutable document snapshot and its template and returns a report; none
// of them writes to the document.
package detect

import (
	"context"
	"fmt"
	"regexp"
	"runtime/debug"

	"github.com/hyperifyio/papercheck/internal/docmodel"
	"github.com/hyperifyio/papercheck/internal/report"
	"github.com/hyperifyio/papercheck/internal/template"
)

// Input is shared read-only by all modules of one run.
type Input struct {
	Doc      *docmodel.Document
	Template *template.Template
	// FigureContent enables the vision-model chart checks.
	FigureContent bool
}

// Module is one detection module.
type Module interface {
	Name() string
	Detect(ctx context.Context, in Input) (report.Report, error)
}

// ModuleError reports a module that could not produce a report.
type ModuleError struct {
	Module string
	Err    error
}

func (e *ModuleError) Error() string { return fmt.Sprintf("%s: %v", e.Module, e.Err) }

func (e *ModuleError) Unwrap() error { return e.Err }

// Run executes m with panics recovered. On failure it returns an error
// report together with a *ModuleError.
func Run(ctx context.Context, m Module, in Input) (rep report.Report, err error) {
	name := m.Name()
	defer func() {
		if r := recover(); r != nil {
			err = &ModuleError{Module: name, Err: fmt.Errorf("panic: %v\n%s", r, debug.Stack())}
			rep = report.Errored(name, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := ctx.Err(); err != nil {
		return report.Errored(name, err), &ModuleError{Module: name, Err: err}
	}
	rep, err = m.Detect(ctx, in)
	if err != nil {
		return report.Errored(name, err), &ModuleError{Module: name, Err: err}
	}
	rep.Module = name
	return rep, nil
}

// Func adapts a function to Module.
type Func struct {
	ModuleName string
	Fn         func(ctx context.Context, in Input) (report.Report, error)
}

func (f Func) Name() string { return f.ModuleName }

func (f Func) Detect(ctx context.Context, in Input) (report.Report, error) { return f.Fn(ctx, in) }

// compile compiles a template pattern, naming the key on failure.
func compile(key, pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return re, nil
}

// summarize renders one summary line per check.
func summarize(checks report.Checks, labels map[string]string) []string {
	out := make([]string, 0, len(checks))
	for _, nc := range checks {
		label := labels[nc.Name]
		if label == "" {
			label = nc.Name
		}
		if nc.Result.OK {
			out = append(out, "✓ "+label+"检查通过")
			continue
		}
		out = append(out, fmt.Sprintf("✗ %s检查未通过（%d条问题）", label, len(nc.Result.Messages)))
	}
	return out
}
