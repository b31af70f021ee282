package detect

import (
	"reflect"
	"testing"

	"github.com/hyperifyio/papercheck/internal/docxtest"
)

func TestContent_Hierarchy(t *testing.T) {
	cases := []struct {
		name  string
		paras []string
		want  string
	}{
		{"bare introduction", []string{docxtest.P("Introduction"), docxtest.P("1 Methods")}, "Introduction标题缺少编号"},
		{"auto numbered introduction", []string{docxtest.P("Introduction", docxtest.Numbered()), docxtest.P("1 Methods")}, "Introduction标题使用了Word自动编号"},
		{"no introduction", []string{docxtest.P("Abstract: x"), docxtest.P("1 Methods")}, "未找到Introduction标题"},
		{"gap", []string{docxtest.P("0 Introduction"), docxtest.P("1 Methods"), docxtest.P("3 Results")}, "一级标题编号不连续或不从1开始：检测到 [1 3]，期望 [1 2]"},
		{"orphan", []string{docxtest.P("0 Introduction"), docxtest.P("1 Methods"), docxtest.P("2.1 Setup")}, "二级标题 '2.1 Setup' 没有对应的一级标题 2"},
		{"child gap", []string{docxtest.P("0 Introduction"), docxtest.P("1 Methods"), docxtest.P("1.2 Setup")}, "二级标题 '1.2 Setup' 编号不连续，期望 1.1"},
		{"word numbering", []string{docxtest.P("0 Introduction"), docxtest.P("Experimental setup", docxtest.Numbered())}, "发现 1 个使用Word自动编号的标题"},
		{"suspected", []string{docxtest.P("0 Introduction"), docxtest.P("Experimental Results Overview", docxtest.Bold(), docxtest.Size(12))}, "发现 1 个疑似标题但完全缺少编号"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rep := detectWith(t, Content{}, openDoc(t, body(tc.paras...)))
			res := check(t, rep, "hierarchy")
			if res.OK || !hasMessage(res, tc.want) {
				t.Fatalf("got %+v, want %q", res, tc.want)
			}
		})
	}
}

func TestContent_Case(t *testing.T) {
	rep := detectWith(t, Content{}, openDoc(t, body(
		docxtest.P("0 Introduction"),
		docxtest.P("1 data analysis"),
		docxtest.P("1.1 Data Collection"),
	)))
	res := check(t, rep, "case")
	want := []string{
		"一级标题 '1 data analysis' 大小写不正确，应为 'Data Analysis'",
		"二级标题 '1.1 Data Collection' 大小写不正确，应为 'Data collection'",
	}
	if res.OK || !reflect.DeepEqual(res.Messages, want) {
		t.Fatalf("got %q", res.Messages)
	}
}

func TestContent_BodyTextIndent(t *testing.T) {
	rep := detectWith(t, Content{}, openDoc(t, body(
		docxtest.P("0 Introduction", docxtest.Font("Times New Roman"), docxtest.Size(12), docxtest.Bold()),
		docxtest.BodyParagraph("The first paragraph of the body is indented by two characters as required."),
		docxtest.P("The second paragraph of the body has no first line indent at all.",
			docxtest.Font("Times New Roman"), docxtest.Size(10.5), docxtest.Align("both")),
	)))
	res := check(t, rep, "content_format")
	if res.OK || !hasMessage(res, "正文段落 2 首行缩进应为21pt（约2字符）") {
		t.Fatalf("got %q", res.Messages)
	}
	if n := len(rep.Details.ParagraphIssues); n != 1 || rep.Details.ParagraphIssues[0].ParagraphIndex != 2 {
		t.Fatalf("issues: %+v", rep.Details.ParagraphIssues)
	}
	if rep.Details.TotalParagraphs != 2 {
		t.Fatalf("total: %d", rep.Details.TotalParagraphs)
	}
}

func TestBodyParagraphs_Sample(t *testing.T) {
	doc := openDoc(t, docxtest.Sample{}.Doc())
	intro, headings := DefaultOutline(doc)
	if intro != docxtest.SampleIntroduction {
		t.Fatalf("intro: %d", intro)
	}
	for _, i := range []int{docxtest.SampleIntroduction, docxtest.SampleMethods, docxtest.SampleDataCollection, docxtest.SampleResults} {
		if !headings[i] {
			t.Fatalf("paragraph %d not a heading: %v", i, headings)
		}
	}
	got := BodyParagraphs(doc, intro, headings)
	want := []int{docxtest.SampleBody1, docxtest.SampleBody2, docxtest.SampleBody3}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if BodyParagraphs(doc, -1, headings) != nil {
		t.Fatal("no introduction should yield nil")
	}
}
