package detect

import (
	"reflect"
	"testing"

	"github.com/hyperifyio/papercheck/internal/docmodel"
	"github.com/hyperifyio/papercheck/internal/docxtest"
)

// equation builds a display equation paragraph numbered n.
func equation(n string, opts ...docxtest.Option) string {
	tnr := []docxtest.Option{docxtest.Font("Times New Roman"), docxtest.Size(10.5)}
	base := []docxtest.Option{
		docxtest.TabStop("center", 4200), docxtest.TabStop("right", 8400),
		docxtest.Raw(docxtest.R("\t", tnr...) + `<m:oMath><m:r><m:t>a+b</m:t></m:r></m:oMath>` + docxtest.R("\t("+n+")", tnr...)),
	}
	return docxtest.P("", append(base, opts...)...)
}

func TestFormula_Sample(t *testing.T) {
	rep := detectWith(t, Formula{}, openDoc(t, docxtest.Sample{}.Doc()))
	for _, name := range []string{"formula_detection", "numbering", "suggestions"} {
		if res := check(t, rep, name); !res.OK {
			t.Fatalf("%s: %v", name, res.Messages)
		}
	}
	if len(rep.Details.Formulas) != 1 {
		t.Fatalf("formulas: %+v", rep.Details.Formulas)
	}
	f := rep.Details.Formulas[0]
	if f.DetectedBy != "math_object" || f.Number != "(1)" || f.TextPreview != "E=mc^2 (1)" {
		t.Fatalf("formula: %+v", f)
	}
	if !reflect.DeepEqual(rep.Extracted["numbers"], []int{1}) {
		t.Fatalf("numbers: %v", rep.Extracted["numbers"])
	}
}

func TestFormula_None(t *testing.T) {
	rep := detectWith(t, Formula{}, openDoc(t, body(docxtest.P("Plain text only"))))
	res := check(t, rep, "formula_detection")
	if !res.OK || !hasMessage(res, "未检测到公式段落") {
		t.Fatalf("got %+v", res)
	}
}

func TestFormula_ParagraphIssues(t *testing.T) {
	tnr := []docxtest.Option{docxtest.Font("Times New Roman"), docxtest.Size(10.5)}
	cases := []struct {
		name string
		para string
		want string
	}{
		{"no tabs", docxtest.P("", docxtest.Math("x=1"), docxtest.Raw(docxtest.R("(1)", tnr...))), "未检测到制表位设置（段落格式和样式中都没有）"},
		{"tabs unused", docxtest.P("", docxtest.TabStop("center", 4200), docxtest.TabStop("right", 8400),
			docxtest.Math("x=1"), docxtest.Raw(docxtest.R("(1)", tnr...))), "设置了制表位但没有使用制表符"},
		{"tab alignment", docxtest.P("", docxtest.TabStop("left", 4200), docxtest.TabStop("right", 8400),
			docxtest.Raw(docxtest.R("\t", tnr...)+`<m:oMath><m:r><m:t>x</m:t></m:r></m:oMath>`+docxtest.R("\t(1)", tnr...))),
			"制表位20字符处对齐方式错误，期望center，实际left"},
		{"number font", docxtest.P("", docxtest.TabStop("center", 4200), docxtest.TabStop("right", 8400),
			docxtest.Raw(docxtest.R("\t", tnr...)+`<m:oMath><m:r><m:t>x</m:t></m:r></m:oMath>`+
				docxtest.R("\t(1)", docxtest.Font("SimSun"), docxtest.Size(10.5)))),
			"公式编号字体应为Times New Roman，实际为SimSun（编号：(1)）"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rep := detectWith(t, Formula{}, openDoc(t, body(tc.para)))
			res := check(t, rep, "formula_detection")
			if res.OK || res.Messages[0] != "公式段落 1 格式问题：" || !hasMessage(res, tc.want) {
				t.Fatalf("got %q, want %q", res.Messages, tc.want)
			}
		})
	}
}

func TestFormula_Numbering(t *testing.T) {
	cases := []struct {
		name  string
		paras []string
		want  string
	}{
		{"single", []string{equation("2")}, "单个公式编号应为(1)，实际为(2)"},
		{"gap", []string{equation("1"), equation("3")}, "公式编号不连续或不从1开始：检测到编号 [1 3]，期望 [1 2]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rep := detectWith(t, Formula{}, openDoc(t, body(tc.paras...)))
			if res := check(t, rep, "formula_detection"); !res.OK {
				t.Fatalf("detection: %v", res.Messages)
			}
			res := check(t, rep, "numbering")
			if res.OK || res.Messages[0] != tc.want {
				t.Fatalf("got %q, want %q", res.Messages, tc.want)
			}
		})
	}
}

func TestFormula_Suggestions(t *testing.T) {
	rep := detectWith(t, Formula{}, openDoc(t, body(docxtest.P("Let x = y + 1 hold for all samples"))))
	res := check(t, rep, "suggestions")
	if !res.OK || !hasMessage(res, "段落0: Let x = y + 1") {
		t.Fatalf("got %+v", res)
	}
}

func TestDetectFormula(t *testing.T) {
	cases := []struct {
		name string
		p    docmodel.Paragraph
		want string
	}{
		{"math", docmodel.Paragraph{MathCount: 1}, "math_object"},
		{"tabs", docmodel.Paragraph{Tabs: []docmodel.TabStop{{Align: "center", Position: 4200}, {Align: "right", Position: 8400}}}, "tab_stops"},
		{"style", docmodel.Paragraph{StyleName: "Equation Block"}, "style"},
		{"plain", docmodel.Paragraph{Tabs: []docmodel.TabStop{{Align: "left", Position: 4200}}}, ""},
	}
	for _, tc := range cases {
		if got := detectFormula(tc.p, []string{"formula", "equation"}); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}
