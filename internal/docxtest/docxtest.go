// Package docxtest builds small .docx files for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

const (
	nsDecl = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
		`xmlns:m="http://schemas.openxmlformats.org/officeDocument/2006/math" ` +
		`xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing" ` +
		`xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
		`xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture" ` +
		`xmlns:v="urn:schemas-microsoft-com:vml" ` +
		`xmlns:o="urn:schemas-microsoft-com:office:office"`
)

// PNG is a 1x1 transparent PNG.
var PNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

type para struct {
	style     string
	align     string
	numbered  bool
	firstLine int
	before    int
	after     int
	line      int
	lineRule  string
	tabs      []string
	run       runProps
	extra     []string
}

type runProps struct {
	font   string
	size   float64
	bold   bool
	italic bool
}

// Option configures a paragraph built by P.
type Option func(*para)

// Style sets w:pStyle.
func Style(id string) Option { return func(p *para) { p.style = id } }

// Align sets w:jc.
func Align(v string) Option { return func(p *para) { p.align = v } }

// Center is Align("center").
func Center() Option { return Align("center") }

// Numbered adds w:numPr.
func Numbered() Option { return func(p *para) { p.numbered = true } }

// FirstLine sets the first-line indent in twips.
func FirstLine(twips int) Option { return func(p *para) { p.firstLine = twips } }

// Spacing sets space before and after in twips.
func Spacing(before, after int) Option {
	return func(p *para) { p.before, p.after = before, after }
}

// Line sets auto line spacing in 240ths of a line.
func Line(v int) Option { return func(p *para) { p.line = v; p.lineRule = "auto" } }

// TabStop adds a custom tab stop.
func TabStop(val string, pos int) Option {
	return func(p *para) { p.tabs = append(p.tabs, fmt.Sprintf(`<w:tab w:val="%s" w:pos="%d"/>`, val, pos)) }
}

// Font sets the run font.
func Font(name string) Option { return func(p *para) { p.run.font = name } }

// Size sets the run size in points.
func Size(pt float64) Option { return func(p *para) { p.run.size = pt } }

// Bold marks the run bold.
func Bold() Option { return func(p *para) { p.run.bold = true } }

// Italic marks the run italic.
func Italic() Option { return func(p *para) { p.run.italic = true } }

// Picture appends an inline picture referencing relID.
func Picture(relID string) Option {
	return func(p *para) {
		p.extra = append(p.extra, `<w:r><w:drawing><wp:inline><wp:extent cx="100" cy="100"/>`+
			`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
			`<pic:pic><pic:blipFill><a:blip r:embed="`+relID+`"/></pic:blipFill></pic:pic>`+
			`</a:graphicData></a:graphic></wp:inline></w:drawing></w:r>`)
	}
}

// Math appends an Office Math object with the given text.
func Math(text string) Option {
	return func(p *para) {
		p.extra = append(p.extra, `<m:oMath><m:r><m:t>`+escape(text)+`</m:t></m:r></m:oMath>`)
	}
}

// Raw appends raw paragraph content after the main run.
func Raw(xml string) Option { return func(p *para) { p.extra = append(p.extra, xml) } }

// P builds a <w:p> element. Tabs in text become w:tab.
func P(text string, opts ...Option) string {
	var p para
	for _, o := range opts {
		o(&p)
	}
	var b strings.Builder
	b.WriteString("<w:p>")
	ppr := p.pPr()
	if ppr != "" {
		b.WriteString("<w:pPr>" + ppr + "</w:pPr>")
	}
	if text != "" {
		b.WriteString(run(text, p.run))
	}
	for _, x := range p.extra {
		b.WriteString(x)
	}
	b.WriteString("</w:p>")
	return b.String()
}

// R builds a <w:r> with its own formatting, for use with Raw.
func R(text string, opts ...Option) string {
	var p para
	for _, o := range opts {
		o(&p)
	}
	return run(text, p.run)
}

func (p para) pPr() string {
	var b strings.Builder
	if p.style != "" {
		b.WriteString(`<w:pStyle w:val="` + p.style + `"/>`)
	}
	if p.numbered {
		b.WriteString(`<w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr>`)
	}
	if len(p.tabs) > 0 {
		b.WriteString("<w:tabs>" + strings.Join(p.tabs, "") + "</w:tabs>")
	}
	if p.before != 0 || p.after != 0 || p.line != 0 {
		b.WriteString("<w:spacing")
		if p.before != 0 {
			fmt.Fprintf(&b, ` w:before="%d"`, p.before)
		}
		if p.after != 0 {
			fmt.Fprintf(&b, ` w:after="%d"`, p.after)
		}
		if p.line != 0 {
			fmt.Fprintf(&b, ` w:line="%d" w:lineRule="%s"`, p.line, p.lineRule)
		}
		b.WriteString("/>")
	}
	if p.firstLine != 0 {
		fmt.Fprintf(&b, `<w:ind w:firstLine="%d"/>`, p.firstLine)
	}
	if p.align != "" {
		b.WriteString(`<w:jc w:val="` + p.align + `"/>`)
	}
	return b.String()
}

func run(text string, rp runProps) string {
	var b strings.Builder
	b.WriteString("<w:r>")
	var pr strings.Builder
	if rp.font != "" {
		fmt.Fprintf(&pr, `<w:rFonts w:ascii="%s" w:hAnsi="%s"/>`, rp.font, rp.font)
	}
	if rp.bold {
		pr.WriteString("<w:b/>")
	}
	if rp.italic {
		pr.WriteString("<w:i/>")
	}
	if rp.size != 0 {
		fmt.Fprintf(&pr, `<w:sz w:val="%d"/>`, int(rp.size*2))
	}
	if pr.Len() > 0 {
		b.WriteString("<w:rPr>" + pr.String() + "</w:rPr>")
	}
	for i, part := range strings.Split(text, "\t") {
		if i > 0 {
			b.WriteString("<w:tab/>")
		}
		if part != "" {
			b.WriteString(`<w:t xml:space="preserve">` + escape(part) + `</w:t>`)
		}
	}
	b.WriteString("</w:r>")
	return b.String()
}

// Cell describes one table cell.
type Cell struct {
	Text  string
	Align string
	// Borders is raw tcBorders content, e.g. `<w:top w:val="single" w:sz="12"/>`.
	Borders string
	Merge   bool
}

// Table builds a <w:tbl>. tblBorders is raw border XML; empty omits
// tblPr entirely when noProps is true.
func Table(rows [][]Cell, tblBorders string, noProps bool) string {
	var b strings.Builder
	b.WriteString("<w:tbl>")
	if !noProps {
		b.WriteString(`<w:tblPr><w:tblW w:w="0" w:type="auto"/>`)
		if tblBorders != "" {
			b.WriteString("<w:tblBorders>" + tblBorders + "</w:tblBorders>")
		}
		b.WriteString("</w:tblPr>")
	}
	for _, row := range rows {
		b.WriteString("<w:tr>")
		for _, c := range row {
			b.WriteString("<w:tc>")
			var pr strings.Builder
			if c.Borders != "" {
				pr.WriteString("<w:tcBorders>" + c.Borders + "</w:tcBorders>")
			}
			if c.Merge {
				pr.WriteString(`<w:vMerge/>`)
			}
			if pr.Len() > 0 {
				b.WriteString("<w:tcPr>" + pr.String() + "</w:tcPr>")
			}
			var opts []Option
			if c.Align != "" {
				opts = append(opts, Align(c.Align))
			}
			b.WriteString(P(c.Text, opts...))
			b.WriteString("</w:tc>")
		}
		b.WriteString("</w:tr>")
	}
	b.WriteString("</w:tbl>")
	return b.String()
}

// SimpleRows turns strings into cells with the given alignment.
func SimpleRows(align string, rows ...[]string) [][]Cell {
	out := make([][]Cell, 0, len(rows))
	for _, r := range rows {
		cells := make([]Cell, 0, len(r))
		for _, s := range r {
			cells = append(cells, Cell{Text: s, Align: align})
		}
		out = append(out, cells)
	}
	return out
}

// Doc is the content of a generated .docx.
type Doc struct {
	Body []string
	// Styles is the inner XML of w:styles.
	Styles string
	// Footnotes are the texts of regular footnotes. An entry starting with
	// "<" is used as the raw footnote content.
	Footnotes []string
	// Images maps relationship ids to PNG bytes.
	Images map[string][]byte
	// Extra adds arbitrary parts.
	Extra map[string]string
}

// Bytes returns the zipped package.
func (d Doc) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	ct := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Default Extension="png" ContentType="image/png"/>` +
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>`
	if d.Styles != "" {
		ct += `<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>`
	}
	if len(d.Footnotes) > 0 {
		ct += `<Override PartName="/word/footnotes.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.footnotes+xml"/>`
	}
	ct += `</Types>`

	files := map[string]string{
		"[Content_Types].xml": ct,
		"_rels/.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
			`</Relationships>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:document ` + nsDecl + `><w:body>` + strings.Join(d.Body, "") + `<w:sectPr/></w:body></w:document>`,
	}

	var rels strings.Builder
	rels.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	if d.Styles != "" {
		rels.WriteString(`<Relationship Id="rIdStyles" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>`)
		files["word/styles.xml"] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><w:styles ` + nsDecl + `>` + d.Styles + `</w:styles>`
	}
	if len(d.Footnotes) > 0 {
		rels.WriteString(`<Relationship Id="rIdFootnotes" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/footnotes" Target="footnotes.xml"/>`)
		var fb strings.Builder
		fb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?><w:footnotes ` + nsDecl + `>`)
		fb.WriteString(`<w:footnote w:type="separator" w:id="-1"><w:p><w:r><w:separator/></w:r></w:p></w:footnote>`)
		fb.WriteString(`<w:footnote w:type="continuationSeparator" w:id="0"><w:p><w:r><w:continuationSeparator/></w:r></w:p></w:footnote>`)
		for i, f := range d.Footnotes {
			if strings.HasPrefix(f, "<") {
				fmt.Fprintf(&fb, `<w:footnote w:id="%d">%s</w:footnote>`, i+1, f)
				continue
			}
			fmt.Fprintf(&fb, `<w:footnote w:id="%d"><w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p></w:footnote>`, i+1, escape(f))
		}
		fb.WriteString(`</w:footnotes>`)
		files["word/footnotes.xml"] = fb.String()
	}
	ids := make([]string, 0, len(d.Images))
	for id := range d.Images {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		name := "media/" + id + ".png"
		fmt.Fprintf(&rels, `<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="%s"/>`, id, name)
	}
	rels.WriteString(`</Relationships>`)
	files["word/_rels/document.xml.rels"] = rels.String()
	for k, v := range d.Extra {
		files[k] = v
	}

	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		w, err := zw.Create(n)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(files[n])); err != nil {
			return nil, err
		}
	}
	for _, id := range ids {
		w, err := zw.Create("word/media/" + id + ".png")
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(d.Images[id]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write stores the package under dir and returns its path.
func Write(t testing.TB, dir, name string, d Doc) string {
	t.Helper()
	data, err := d.Bytes()
	if err != nil {
		t.Fatalf("build docx: %v", err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write docx: %v", err)
	}
	return p
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
