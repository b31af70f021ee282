package detect

import (
	"strings"
	"testing"

	"github.com/hyperifyio/papercheck/internal/docxtest"
)

func TestAbstract_Missing(t *testing.T) {
	rep := detectWith(t, Abstract{}, openDoc(t, body(docxtest.P("Title"), docxtest.P("Keywords: a; b; c"))))
	for _, name := range []string{"structure", "paragraphs", "format"} {
		res := check(t, rep, name)
		if res.OK || res.Messages[0] != "未找到Abstract段落" {
			t.Fatalf("%s: %+v", name, res)
		}
	}
}

func TestAbstract_Checks(t *testing.T) {
	long := strings.Repeat("word ", 20)
	cases := []struct {
		name  string
		paras []string
		check string
		want  string
	}{
		{"short", []string{docxtest.P("Abstract: too short")}, "structure", "摘要内容过短"},
		{"twice", []string{docxtest.P("Abstract: " + long), docxtest.P("Abstract: " + long)}, "paragraphs", "检测到2个Abstract段落"},
		{"font", []string{docxtest.P("Abstract: "+long, docxtest.Size(12), docxtest.Align("both"))}, "format", "字体大小应为五号（10.5pt），实际为小四（12pt）"},
		{"indent", []string{docxtest.P("Abstract: "+long, docxtest.Size(10.5), docxtest.Align("both"), docxtest.FirstLine(420))}, "format", "首行缩进应为0pt，实际为21.0pt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rep := detectWith(t, Abstract{}, openDoc(t, body(tc.paras...)))
			res := check(t, rep, tc.check)
			if res.OK || !hasMessage(res, tc.want) {
				t.Fatalf("got %+v, want %q", res, tc.want)
			}
		})
	}
}

func TestAbstract_Extracted(t *testing.T) {
	doc := openDoc(t, docxtest.Sample{}.Doc())
	rep := detectWith(t, Abstract{}, doc)
	text, _ := rep.Extracted["abstract"].(string)
	if !strings.HasPrefix(text, "This paper presents") {
		t.Fatalf("abstract: %q", text)
	}
	if rep.Extracted["paragraph_index"] != docxtest.SampleAbstract {
		t.Fatalf("paragraph_index: %v", rep.Extracted["paragraph_index"])
	}
}
