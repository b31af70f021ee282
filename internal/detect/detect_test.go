package detect

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperifyio/papercheck/internal/docmodel"
	"github.com/hyperifyio/papercheck/internal/docxtest"
	"github.com/hyperifyio/papercheck/internal/report"
	"github.com/hyperifyio/papercheck/internal/template"
)

func openDoc(t *testing.T, d docxtest.Doc) *docmodel.Document {
	t.Helper()
	data, err := d.Bytes()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	doc, err := docmodel.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return doc
}

func body(paras ...string) docxtest.Doc { return docxtest.Doc{Body: paras} }

// detectWith runs m over doc with its embedded default template.
func detectWith(t *testing.T, m Module, doc *docmodel.Document) report.Report {
	t.Helper()
	tpl, err := template.Embedded().Load(m.Name())
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	rep, err := Run(context.Background(), m, Input{Doc: doc, Template: tpl})
	if err != nil {
		t.Fatalf("%s: %v", m.Name(), err)
	}
	return rep
}

func check(t *testing.T, rep report.Report, name string) report.CheckResult {
	t.Helper()
	res, ok := rep.Checks.Get(name)
	if !ok {
		t.Fatalf("%s: no check %q in %+v", rep.Module, name, rep.Checks)
	}
	return res
}

func itemCheck(t *testing.T, rep report.Report, item, name string) report.CheckResult {
	t.Helper()
	it, ok := rep.Item(item)
	if !ok {
		t.Fatalf("%s: no item %q", rep.Module, item)
	}
	res, ok := it.Checks.Get(name)
	if !ok {
		t.Fatalf("%s/%s: no check %q", rep.Module, item, name)
	}
	return res
}

func hasMessage(res report.CheckResult, sub string) bool {
	for _, m := range res.Messages {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

func allModules() []Module {
	return []Module{Title{}, Abstract{}, Keywords{}, Content{}, Formula{}, Figure{}, Table{}}
}

func TestSample_AllModulesPass(t *testing.T) {
	doc := openDoc(t, docxtest.Sample{}.Doc())
	for _, m := range allModules() {
		t.Run(m.Name(), func(t *testing.T) {
			rep := detectWith(t, m, doc)
			rep.AllChecks(func(item, name string, res report.CheckResult) {
				if !res.OK {
					t.Errorf("%s %s failed: %v", item, name, res.Messages)
				}
			})
		})
	}
}

type boom struct{}

func (boom) Name() string { return "Boom" }

func (boom) Detect(context.Context, Input) (report.Report, error) {
	var m map[string]int
	m["x"]++
	return report.Report{}, nil
}

func TestRun_RecoversPanic(t *testing.T) {
	rep, err := Run(context.Background(), boom{}, Input{})
	var me *ModuleError
	if !errors.As(err, &me) || me.Module != "Boom" {
		t.Fatalf("want ModuleError for Boom, got %v", err)
	}
	if !rep.Error || !strings.HasPrefix(rep.Summary[0], "检测失败: panic:") {
		t.Fatalf("unexpected report %+v", rep)
	}
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := Run(ctx, Abstract{}, Input{Doc: &docmodel.Document{}})
	if err == nil || !rep.Error {
		t.Fatalf("expected error report, got %+v %v", rep, err)
	}
}

func TestFunc_Adapter(t *testing.T) {
	f := Func{ModuleName: "X", Fn: func(context.Context, Input) (report.Report, error) {
		var r report.Report
		r.Checks.Set("a", report.Pass())
		return r, nil
	}}
	rep, err := Run(context.Background(), f, Input{})
	if err != nil || rep.Module != "X" || len(rep.Checks) != 1 {
		t.Fatalf("got %+v %v", rep, err)
	}
}
