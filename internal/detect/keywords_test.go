package detect

import (
	"reflect"
	"strings"
	"testing"

	"github.com/hyperifyio/papercheck/internal/docxtest"
)

func TestKeywords_Structure(t *testing.T) {
	cases := []struct {
		line string
		ok   bool
		want string
	}{
		{"Keywords: textile; image analysis; quality control", true, ""},
		{"Keywords：textile；image analysis；quality control", true, ""},
		{"Keywords textile; image analysis; quality control", false, "Keywords后应使用冒号"},
		{"Keywords: textile, image analysis; quality control", false, "关键词分隔符混用"},
		{"Keywords: textile, image analysis, quality control", false, "关键词应使用分号分隔"},
		{"Keywords: textile; image analysis", false, "关键词数量为2个，少于3个"},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			rep := detectWith(t, Keywords{}, openDoc(t, body(docxtest.P(tc.line))))
			res := check(t, rep, "structure")
			if res.OK != tc.ok || (tc.want != "" && !hasMessage(res, tc.want)) {
				t.Fatalf("got %+v, want ok=%v %q", res, tc.ok, tc.want)
			}
		})
	}
}

func TestKeywords_ExtractedFromSample(t *testing.T) {
	rep := detectWith(t, Keywords{}, openDoc(t, docxtest.Sample{}.Doc()))
	want := []string{"textile", "image analysis", "quality control"}
	if got := rep.Extracted["keywords"]; !reflect.DeepEqual(got, want) {
		t.Fatalf("keywords: %#v", got)
	}
	if rep.Extracted["clc_number"] != "TS101" || rep.Extracted["document_code"] != "A" {
		t.Fatalf("clc: %v %v", rep.Extracted["clc_number"], rep.Extracted["document_code"])
	}
}

func TestKeywords_CLC(t *testing.T) {
	kw := docxtest.P("Keywords: textile; image analysis; quality control")
	cases := []struct {
		name  string
		paras []string
		want  string
	}{
		{"gap", []string{kw, docxtest.P("CLC number: TS101  Document code: A")}, "应间隔8-15个空格，实际为2个"},
		{"two lines", []string{kw, docxtest.P("CLC number: TS101"), docxtest.P("Document code: A")}, "应位于同一行"},
		{"code only", []string{kw, docxtest.P("Document code: A")}, "找到Document code但未找到CLC number"},
		{"missing", []string{kw, docxtest.P("0 Introduction")}, "未找到CLC number和Document code"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rep := detectWith(t, Keywords{}, openDoc(t, body(tc.paras...)))
			res := check(t, rep, "clc_structure")
			if res.OK || !hasMessage(res, tc.want) {
				t.Fatalf("got %+v, want %q", res, tc.want)
			}
		})
	}
}

func TestKeywords_CLCLabelsBold(t *testing.T) {
	gap := strings.Repeat(" ", 10)
	rep := detectWith(t, Keywords{}, openDoc(t, body(
		docxtest.P("Keywords: textile; image analysis; quality control"),
		docxtest.P("CLC number: TS101"+gap+"Document code: A", docxtest.Size(10.5)),
	)))
	if res := check(t, rep, "clc_structure"); !res.OK {
		t.Fatalf("structure: %v", res.Messages)
	}
	res := check(t, rep, "clc_format")
	if !hasMessage(res, "CLC number标签应为加粗") || !hasMessage(res, "Document code标签应为加粗") {
		t.Fatalf("format: %v", res.Messages)
	}
}

func TestKeywords_Footnotes(t *testing.T) {
	base := docxtest.Sample{}.Doc()
	cases := []struct {
		name      string
		footnotes []string
		want      string
	}{
		{"none", nil, "未找到脚注"},
		{"misspelt", []string{"Receive date: 2024-01-01", "Foundation item: X", "* Correspondence should be addressed to ZHANG San", "Citation: ZHANG S, LI S. A study of things [J]. Journal of Donghua University (English Edition), 2024."}, "正确写法为'Received date'"},
		{"stranger", []string{"Received date: 2024", "Foundation item: X", "* Correspondence should be addressed to WU Qi", "Citation: ZHANG S, LI S. A study of things [J]. Journal of Donghua University (English Edition), 2024."}, "Correspondence作者'WU Qi'不在论文作者列表中"},
		{"title", []string{"Received date: 2024", "Foundation item: X", "* Correspondence should be addressed to ZHANG San", "Citation: ZHANG S, LI S. A Study Of Things [J]. Journal of Donghua University (English Edition), 2024."}, "Citation中的标题与论文标题不一致"},
		{"author form", []string{"Received date: 2024", "Foundation item: X", "* Correspondence should be addressed to ZHANG San", "Citation: Zhang San, LI S. A study of things [J]. Journal of Donghua University (English Edition), 2024."}, "作者 1 'Zhang San' 格式不正确"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := base
			d.Footnotes = tc.footnotes
			rep := detectWith(t, Keywords{}, openDoc(t, d))
			res := check(t, rep, "footnote_structure")
			if res.OK || !hasMessage(res, tc.want) {
				t.Fatalf("got %+v, want %q", res, tc.want)
			}
		})
	}
}

func TestKeywords_FootnoteItalicJournal(t *testing.T) {
	d := docxtest.Sample{}.Doc()
	d.Footnotes = []string{"<w:p>" + docxtest.R("Citation: ZHANG S, LI S. A study of things [J]. Journal of Donghua University (English Edition), 2024.", docxtest.Size(9)) + "</w:p>"}
	rep := detectWith(t, Keywords{}, openDoc(t, d))
	res := check(t, rep, "footnote_format")
	if res.OK || res.Messages[0] != "脚注格式问题：" || !hasMessage(res, "应为斜体") {
		t.Fatalf("got %+v", res)
	}
}
