package docmodel_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperifyio/papercheck/internal/docmodel"
	"github.com/hyperifyio/papercheck/internal/docxtest"
)

const testStyles = `<w:docDefaults><w:rPrDefault><w:rPr><w:sz w:val="21"/></w:rPr></w:rPrDefault></w:docDefaults>` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/>` +
	`<w:rPr><w:rFonts w:ascii="Times New Roman" w:hAnsi="Times New Roman"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Caption"><w:name w:val="caption"/><w:basedOn w:val="Normal"/>` +
	`<w:pPr><w:jc w:val="center"/></w:pPr><w:rPr><w:b/><w:sz w:val="18"/></w:rPr></w:style>`

func TestOpen_ParagraphsAndFormatting(t *testing.T) {
	dir := t.TempDir()
	p := docxtest.Write(t, dir, "a.docx", docxtest.Doc{
		Styles: testStyles,
		Body: []string{
			docxtest.P("A Study of Things", docxtest.Center(), docxtest.Bold(), docxtest.Size(16), docxtest.Font("Arial")),
			docxtest.P(""),
			docxtest.P("Body text", docxtest.FirstLine(420), docxtest.Spacing(240, 120), docxtest.Line(360)),
			docxtest.P("Fig. 1 Caption", docxtest.Style("Caption")),
		},
	})
	doc, err := docmodel.Open(p)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(doc.Paragraphs) != 4 {
		t.Fatalf("paragraphs = %d, want 4", len(doc.Paragraphs))
	}
	title := doc.Paragraphs[0]
	if title.Alignment != docmodel.AlignCenter || !title.AlignmentSet {
		t.Fatalf("title alignment = %v set=%v", title.Alignment, title.AlignmentSet)
	}
	r, ok := title.FirstRun()
	if !ok || r.FontName != "Arial" || r.SizePt != 16 || !r.Bold || r.Italic {
		t.Fatalf("title run = %+v", r)
	}

	body := doc.Paragraphs[2]
	if body.FirstLineIndentPt != 21 || body.SpaceBeforePt != 12 || body.SpaceAfterPt != 6 {
		t.Fatalf("body spacing = %+v", body)
	}
	if body.LineRule != docmodel.LineMultiple || body.LineSpacing != 1.5 {
		t.Fatalf("line spacing = %v %v", body.LineRule, body.LineSpacing)
	}
	br, _ := body.FirstRun()
	if br.FontName != "Times New Roman" || br.SizePt != 10.5 {
		t.Fatalf("default style run = %+v", br)
	}

	caption := doc.Paragraphs[3]
	if caption.StyleName != "caption" || caption.Alignment != docmodel.AlignCenter || caption.AlignmentSet {
		t.Fatalf("caption paragraph = %+v", caption)
	}
	cr, _ := caption.FirstRun()
	if !cr.Bold || cr.SizePt != 9 {
		t.Fatalf("caption run = %+v", cr)
	}
	if got := doc.NonEmpty(); len(got) != 3 {
		t.Fatalf("non-empty = %v", got)
	}
}

func TestOpen_TablesKeepBodyOrder(t *testing.T) {
	dir := t.TempDir()
	tbl := docxtest.Table(docxtest.SimpleRows("center", []string{"A", "B"}, []string{"1", "2"}),
		`<w:top w:val="single" w:sz="12"/><w:left w:val="single" w:sz="4"/><w:insideV w:val="none"/>`, false)
	p := docxtest.Write(t, dir, "t.docx", docxtest.Doc{
		Body: []string{
			docxtest.P("Table 1 Results"),
			docxtest.P(""),
			tbl,
			docxtest.P("after"),
		},
	})
	doc, err := docmodel.Open(p)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(doc.Tables) != 1 || len(doc.Paragraphs) != 3 || len(doc.Body) != 4 {
		t.Fatalf("tables=%d paragraphs=%d body=%d", len(doc.Tables), len(doc.Paragraphs), len(doc.Body))
	}
	if doc.Paragraphs[2].Body != 3 {
		t.Fatalf("body position of last paragraph = %d", doc.Paragraphs[2].Body)
	}
	got, ok := doc.TableAfter(0, 4)
	if !ok {
		t.Fatal("expected table after caption")
	}
	if len(got.Rows) != 2 || got.Rows[0].Cells[1].Text != "B" || got.Rows[0].Cells[0].Alignment != docmodel.AlignCenter {
		t.Fatalf("table = %+v", got)
	}
	if !got.Borders.Left.Visible() || got.Borders.InsideV.Visible() || got.Borders.Right.Visible() {
		t.Fatalf("borders = %+v", got.Borders)
	}
	if got.Borders.Top.SizePt != 1.5 {
		t.Fatalf("top border = %v pt", got.Borders.Top.SizePt)
	}
	if _, ok := doc.TableAfter(2, 4); ok {
		t.Fatal("no table follows the last paragraph")
	}
}

func TestOpen_PicturesMathAndFootnotes(t *testing.T) {
	dir := t.TempDir()
	p := docxtest.Write(t, dir, "m.docx", docxtest.Doc{
		Body: []string{
			docxtest.P("", docxtest.Picture("rIdImg1"), docxtest.Center()),
			docxtest.P("\t\t(1)", docxtest.Math("E=mc^2"), docxtest.TabStop("center", 4200), docxtest.TabStop("right", 8400)),
		},
		Footnotes: []string{"Received date: 2024-01-01"},
		Images:    map[string][]byte{"rIdImg1": docxtest.PNG},
	})
	doc, err := docmodel.Open(p)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	pic := doc.Paragraphs[0]
	if !pic.HasPicture() || len(pic.ImageRelIDs) != 1 || pic.ImageRelIDs[0] != "rIdImg1" {
		t.Fatalf("picture paragraph = %+v", pic)
	}
	img, err := doc.Image("rIdImg1")
	if err != nil {
		t.Fatalf("image: %v", err)
	}
	if img.ContentType != "image/png" || len(img.Data) != len(docxtest.PNG) {
		t.Fatalf("image = %s %d bytes", img.ContentType, len(img.Data))
	}
	eq := doc.Paragraphs[1]
	if !eq.HasMath() || eq.MathText != "E=mc^2" || eq.TabCount != 2 || len(eq.Tabs) != 2 {
		t.Fatalf("equation paragraph = %+v", eq)
	}
	if !strings.HasSuffix(eq.Text, "(1)") {
		t.Fatalf("equation text = %q", eq.Text)
	}
	if len(doc.Footnotes) != 1 || doc.Footnotes[0].Text != "Received date: 2024-01-01" {
		t.Fatalf("footnotes = %+v", doc.Footnotes)
	}
}

func TestOpen_InvalidDocument(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.docx")
	if err := os.WriteFile(bad, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := docmodel.Open(bad); !errors.Is(err, docmodel.ErrInvalidDocument) {
		t.Fatalf("err = %v, want ErrInvalidDocument", err)
	}
	if _, err := docmodel.Open(filepath.Join(dir, "missing.docx")); !errors.Is(err, docmodel.ErrInvalidDocument) {
		t.Fatalf("missing file err = %v", err)
	}
}

func TestParseAlignment(t *testing.T) {
	tests := []struct {
		in   string
		want docmodel.Alignment
		ok   bool
	}{
		{"center", docmodel.AlignCenter, true},
		{"both", docmodel.AlignJustify, true},
		{"END", docmodel.AlignRight, true},
		{"居中", docmodel.AlignCenter, true},
		{"sideways", docmodel.AlignLeft, false},
	}
	for _, tt := range tests {
		got, ok := docmodel.ParseAlignment(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("ParseAlignment(%q) = %v,%v want %v,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
