// Package docmodel loads a WordprocessingML (.docx) file into an immutable
// snapshot of its body: paragraphs with resolved formatting, tables and
// footnotes. Detection code reads the snapshot and never touches the file.
package docmodel

import "strings"

// Alignment is a resolved paragraph justification.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
	AlignJustify
)

// String returns the OOXML-style name.
func (a Alignment) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	case AlignJustify:
		return "justify"
	default:
		return "left"
	}
}

// Label returns the name used in review messages.
func (a Alignment) Label() string {
	switch a {
	case AlignCenter:
		return "居中对齐"
	case AlignRight:
		return "右对齐"
	case AlignJustify:
		return "两端对齐"
	default:
		return "左对齐"
	}
}

// ParseAlignment maps a template or OOXML value to an Alignment.
func ParseAlignment(s string) (Alignment, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "start", "左对齐":
		return AlignLeft, true
	case "center", "centre", "居中", "居中对齐":
		return AlignCenter, true
	case "right", "end", "右对齐":
		return AlignRight, true
	case "both", "justify", "distribute", "两端对齐":
		return AlignJustify, true
	}
	return AlignLeft, false
}

// LineRule tells how LineSpacing is measured.
type LineRule int

const (
	// LineMultiple means LineSpacing is a multiple of single spacing.
	LineMultiple LineRule = iota
	// LineExact means LineSpacing is an exact height in points.
	LineExact
	// LineAtLeast means LineSpacing is a minimum height in points.
	LineAtLeast
)

// Run is a text run with formatting resolved through the style chain.
type Run struct {
	Text         string
	FontName     string
	EastAsiaFont string
	SizePt       float64
	Bold         bool
	Italic       bool
	VertAlign    string
}

// TabStop is a custom tab stop. Position is in twentieths of a point.
type TabStop struct {
	Align    string
	Position int
}

// Paragraph is a body-level paragraph snapshot.
type Paragraph struct {
	// Index is the zero-based position among body-level paragraphs.
	Index int
	// Body is the position among all body elements, tables included.
	Body int

	Text      string
	StyleID   string
	StyleName string

	Alignment Alignment
	// AlignmentSet reports whether jc is set directly on the paragraph.
	AlignmentSet bool

	SpaceBeforePt float64
	SpaceAfterPt  float64
	LineSpacing   float64
	LineRule      LineRule

	FirstLineIndentPt float64
	LeftIndentPt      float64
	RightIndentPt     float64

	Numbered bool
	NumLevel int

	Tabs     []TabStop
	TabCount int

	MathCount      int
	MathText       string
	MathFonts      []string
	EquationObject bool

	PictureCount int
	ImageRelIDs  []string

	Runs []Run
}

// HasPicture reports whether the paragraph anchors a drawing or picture.
func (p Paragraph) HasPicture() bool { return p.PictureCount > 0 }

// HasMath reports whether the paragraph holds an equation.
func (p Paragraph) HasMath() bool { return p.MathCount > 0 || p.EquationObject }

// FirstRun returns the first run with visible text.
func (p Paragraph) FirstRun() (Run, bool) {
	for _, r := range p.Runs {
		if strings.TrimSpace(r.Text) != "" {
			return r, true
		}
	}
	if len(p.Runs) > 0 {
		return p.Runs[0], true
	}
	return Run{}, false
}

// Border is one resolved table or cell border.
type Border struct {
	Val    string
	SizePt float64
	Set    bool
}

// Visible reports whether the border is drawn.
func (b Border) Visible() bool {
	if !b.Set {
		return false
	}
	v := strings.ToLower(b.Val)
	return v != "" && v != "none" && v != "nil"
}

// Borders groups the border edges of a table or cell.
type Borders struct {
	Top, Bottom, Left, Right, InsideH, InsideV Border
}

// Cell is a table cell.
type Cell struct {
	Text      string
	Alignment Alignment
	Borders   Borders
	GridSpan  int
	// Merged is true for continuation cells of a vertical or horizontal merge.
	Merged bool
}

// Row is a table row.
type Row struct {
	Cells []Cell
}

// Table is a body-level table snapshot.
type Table struct {
	Index    int
	Body     int
	HasProps bool
	StyleID  string
	Borders  Borders
	Rows     []Row
}

// Footnote is a regular footnote. Separator footnotes are not kept.
type Footnote struct {
	ID   string
	Text string
	Runs []Run
}

// ElementKind tells paragraphs from tables in Body.
type ElementKind int

const (
	KindParagraph ElementKind = iota
	KindTable
)

// Element points into Paragraphs or Tables in body order.
type Element struct {
	Kind  ElementKind
	Index int
}

// Image is an embedded picture part.
type Image struct {
	RelID       string
	Part        string
	ContentType string
	Data        []byte
}

// Document is the immutable snapshot produced by Open.
type Document struct {
	Path       string
	Paragraphs []Paragraph
	Tables     []Table
	Body       []Element
	Footnotes  []Footnote

	imageTargets map[string]string
}

// Texts returns every paragraph text in order.
func (d *Document) Texts() []string {
	out := make([]string, len(d.Paragraphs))
	for i, p := range d.Paragraphs {
		out[i] = p.Text
	}
	return out
}

// NonEmpty returns the indices of paragraphs with non-blank text.
func (d *Document) NonEmpty() []int {
	out := make([]int, 0, len(d.Paragraphs))
	for i, p := range d.Paragraphs {
		if strings.TrimSpace(p.Text) != "" {
			out = append(out, i)
		}
	}
	return out
}

// TableAfter returns the first table within limit body elements after the
// paragraph at index p.
func (d *Document) TableAfter(p, limit int) (Table, bool) {
	if p < 0 || p >= len(d.Paragraphs) {
		return Table{}, false
	}
	start := d.Paragraphs[p].Body
	for i := start + 1; i < len(d.Body) && i <= start+limit; i++ {
		if d.Body[i].Kind == KindTable {
			return d.Tables[d.Body[i].Index], true
		}
	}
	return Table{}, false
}
