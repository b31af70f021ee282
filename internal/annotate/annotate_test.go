package annotate

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/papercheck/internal/docmodel"
	"github.com/hyperifyio/papercheck/internal/docxtest"
	"github.com/hyperifyio/papercheck/internal/orchestrator"
	"github.com/hyperifyio/papercheck/internal/report"
)

var fixed = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func newAnnotator() *Annotator {
	return &Annotator{Clock: func() time.Time { return fixed }}
}

func check(t *testing.T, path string) report.Results {
	t.Helper()
	res, err := orchestrator.New(nil).CheckAll(context.Background(), path, orchestrator.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return res.Results
}

func parts(t *testing.T, path string) map[string][]byte {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer zr.Close()
	out := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		out[f.Name] = data
	}
	return out
}

func digest(t *testing.T, path string) [32]byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return sha256.Sum256(data)
}

// commented returns the indices of body paragraphs carrying a comment
// reference.
func commented(t *testing.T, documentXML []byte) []int {
	t.Helper()
	spans, err := scanParagraphs(documentXML)
	if err != nil {
		t.Fatal(err)
	}
	var out []int
	for i, s := range spans {
		if s.SelfClose {
			continue
		}
		if bytes.Contains(documentXML[s.Start:s.Close], []byte("w:commentReference")) {
			out = append(out, i)
		}
	}
	return out
}

func assertSingleComment(t *testing.T, path string, paragraph int) string {
	t.Helper()
	p := parts(t, path)
	cx := string(p[partComments])
	if n := strings.Count(cx, "<w:comment "); n != 1 {
		t.Fatalf("comments.xml has %d comments: %s", n, cx)
	}
	doc := p[docmodel.PartDocument]
	if got := commented(t, doc); len(got) != 1 || got[0] != paragraph {
		t.Fatalf("commented paragraphs = %v, want [%d]", got, paragraph)
	}
	for _, marker := range []string{`<w:commentRangeStart w:id="0"/>`, `<w:commentRangeEnd w:id="0"/>`} {
		if strings.Count(string(doc), marker) != 1 {
			t.Fatalf("document.xml lacks %s", marker)
		}
	}
	if !strings.Contains(string(p[docmodel.PartContentTypes]), ctComments) {
		t.Fatal("content type override missing")
	}
	if !strings.Contains(string(p[docmodel.PartDocumentRels]), relTypeComments) {
		t.Fatal("comments relationship missing")
	}
	return cx
}

func TestGenerate_LowercaseTitle(t *testing.T) {
	dir := t.TempDir()
	src := docxtest.Write(t, dir, "paper.docx", docxtest.Sample{Title: "a study of x"}.Doc())
	before := digest(t, src)

	out, err := newAnnotator().GenerateAnnotatedDocument(context.Background(), src, check(t, src), filepath.Join(dir, "out"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Comments != 1 || out.Issues != 1 || len(out.Dropped) != 0 {
		t.Fatalf("outcome: %+v", out)
	}
	if want := filepath.Join(dir, "out", "20240506_070809_paper_annotated.docx"); out.Path != want {
		t.Fatalf("path = %s, want %s", out.Path, want)
	}
	if digest(t, src) != before {
		t.Fatal("source document changed")
	}
	cx := assertSingleComment(t, out.Path, docxtest.SampleTitle)
	for _, want := range []string{`w:author="论文检测系统"`, `w:initials="PDS"`, "[Title-format_title]", "• 标题格式问题："} {
		if !strings.Contains(cx, want) {
			t.Fatalf("comments.xml lacks %q: %s", want, cx)
		}
	}

	doc, err := docmodel.Open(out.Path)
	if err != nil {
		t.Fatalf("annotated copy does not load: %v", err)
	}
	orig, _ := docmodel.Open(src)
	if strings.Join(doc.Texts(), "\n") != strings.Join(orig.Texts(), "\n") {
		t.Fatal("paragraph text changed")
	}
}

func TestGenerate_FigureNumberingGap(t *testing.T) {
	dir := t.TempDir()
	src := docxtest.Write(t, dir, "paper.docx", docxtest.Sample{FigureCaptions: []string{
		"Fig. 1 First image", "Fig. 3 Second image", "Fig. 4 Third image",
	}}.Doc())
	out, err := newAnnotator().GenerateAnnotatedDocument(context.Background(), src, check(t, src), dir)
	if err != nil {
		t.Fatal(err)
	}
	if out.Comments != 1 {
		t.Fatalf("outcome: %+v", out)
	}
	cx := assertSingleComment(t, out.Path, docxtest.SampleBody3+2)
	if !strings.Contains(cx, "图片编号不连续：缺少 [2]") {
		t.Fatalf("comments.xml: %s", cx)
	}
}

func TestGenerate_CompliantDocument(t *testing.T) {
	dir := t.TempDir()
	src := docxtest.Write(t, dir, "paper.docx", docxtest.Sample{}.Doc())
	out, err := newAnnotator().GenerateAnnotatedDocument(context.Background(), src, check(t, src), dir)
	if err != nil {
		t.Fatal(err)
	}
	if out.Path == "" || out.Path == src || out.Comments != 0 {
		t.Fatalf("outcome: %+v", out)
	}
	if digest(t, out.Path) != digest(t, src) {
		t.Fatal("copy without comments should be byte-identical")
	}
}

func TestGenerate_MergesAndDrops(t *testing.T) {
	dir := t.TempDir()
	src := docxtest.Write(t, dir, "paper.docx", docxtest.Sample{}.Doc())
	results := report.Results{
		{Module: report.Title, Checks: report.Checks{
			{Name: "title", Result: report.Fail("标题末尾不应有句号")},
			{Name: "format", Result: report.Fail("标题格式问题：", "  - 字号应为14pt")},
		}},
		{Module: report.Abstract, Checks: report.Checks{
			{Name: "format", Result: report.Fail("字体应为Times New Roman")},
		}},
		{Module: report.Content, Checks: report.Checks{
			{Name: "content_format", Result: report.Fail("正文段落 9 缺少缩进")},
		}},
	}
	out, err := (&Annotator{Author: "Reviewer", Initials: "RV", Clock: func() time.Time { return fixed }}).
		GenerateAnnotatedDocument(context.Background(), src, results, dir)
	if err != nil {
		t.Fatal(err)
	}
	if out.Comments != 2 || out.Issues != 4 || len(out.Dropped) != 1 || out.Dropped[0].Module != report.Content {
		t.Fatalf("outcome: %+v", out)
	}
	p := parts(t, out.Path)
	cx := string(p[partComments])
	if strings.Count(cx, "<w:comment ") != 2 || !strings.Contains(cx, `w:author="Reviewer"`) {
		t.Fatalf("comments.xml: %s", cx)
	}
	first := cx[:strings.Index(cx, "</w:comment>")]
	if !strings.Contains(first, "[Title-title]") || !strings.Contains(first, "[Title-format_title]") || !strings.Contains(first, "<w:p/>") {
		t.Fatalf("merged comment: %s", first)
	}
	if got := commented(t, p[docmodel.PartDocument]); len(got) != 2 || got[0] != docxtest.SampleTitle || got[1] != docxtest.SampleAbstract {
		t.Fatalf("commented paragraphs: %v", got)
	}
}

func TestGenerate_ExistingComments(t *testing.T) {
	dir := t.TempDir()
	d := docxtest.Sample{Title: "a study of x"}.Doc()
	d.Extra = map[string]string{
		partComments: `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:comments xmlns:w="` + nsMain + `"><w:comment w:id="5" w:author="Editor"><w:p/></w:comment></w:comments>`,
	}
	src := docxtest.Write(t, dir, "paper.docx", d)
	out, err := newAnnotator().GenerateAnnotatedDocument(context.Background(), src, check(t, src), dir)
	if err != nil {
		t.Fatal(err)
	}
	p := parts(t, out.Path)
	cx := string(p[partComments])
	if strings.Count(cx, "<w:comment ") != 2 || !strings.Contains(cx, `w:id="6"`) {
		t.Fatalf("comments.xml: %s", cx)
	}
	if !strings.Contains(string(p[docmodel.PartDocument]), `<w:commentReference w:id="6"/>`) {
		t.Fatal("reference id should follow the existing comments")
	}
}

func TestGenerate_DistinctCopies(t *testing.T) {
	dir := t.TempDir()
	src := docxtest.Write(t, dir, "paper.docx", docxtest.Sample{}.Doc())
	a := newAnnotator()
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		out, err := a.GenerateAnnotatedDocument(context.Background(), src, nil, dir)
		if err != nil {
			t.Fatal(err)
		}
		if seen[out.Path] {
			t.Fatalf("copy %s reused", out.Path)
		}
		seen[out.Path] = true
	}
	if !seen[filepath.Join(dir, "20240506_070809_paper_annotated_2.docx")] {
		t.Fatalf("copies: %v", seen)
	}
}

func TestGenerate_WriteErrors(t *testing.T) {
	dir := t.TempDir()
	src := docxtest.Write(t, dir, "paper.docx", docxtest.Sample{}.Doc())
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := newAnnotator().GenerateAnnotatedDocument(context.Background(), src, nil, blocker)
	if !errors.Is(err, ErrWrite) || out.Path != "" {
		t.Fatalf("got %+v, %v", out, err)
	}
	if _, err := newAnnotator().GenerateAnnotatedDocument(context.Background(), filepath.Join(dir, "missing.docx"), nil, dir); !errors.Is(err, ErrWrite) {
		t.Fatalf("missing source: %v", err)
	}
}

func TestSpliceComments_SelfClosingParagraph(t *testing.T) {
	in := []byte(`<w:document xmlns:w="` + nsMain + `"><w:body><w:p/><w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:t>x</w:t></w:r></w:p></w:body></w:document>`)
	out, err := spliceComments(in, []Comment{{Paragraph: 0, Text: "a"}, {Paragraph: 1, Text: "b"}}, []int{3, 4})
	if err != nil {
		t.Fatal(err)
	}
	want := `<w:body><w:p><w:commentRangeStart w:id="3"/><w:commentRangeEnd w:id="3"/><w:r><w:commentReference w:id="3"/></w:r></w:p>` +
		`<w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:commentRangeStart w:id="4"/><w:r><w:t>x</w:t></w:r>` +
		`<w:commentRangeEnd w:id="4"/><w:r><w:commentReference w:id="4"/></w:r></w:p></w:body>`
	if !strings.Contains(string(out), want) {
		t.Fatalf("got %s", out)
	}
	if _, err := spliceComments(in, []Comment{{Paragraph: 2}}, []int{0}); err == nil {
		t.Fatal("out of range paragraph should fail")
	}
}
