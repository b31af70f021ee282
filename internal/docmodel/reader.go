package docmodel

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
)

// ErrInvalidDocument is returned when a file cannot be read as a .docx.
var ErrInvalidDocument = errors.New("invalid document")

// Part names used by the reader and the annotator.
const (
	PartDocument     = "word/document.xml"
	PartStyles       = "word/styles.xml"
	PartFootnotes    = "word/footnotes.xml"
	PartDocumentRels = "word/_rels/document.xml.rels"
	PartContentTypes = "[Content_Types].xml"
)

// Open reads the .docx at p.
func Open(p string) (*Document, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	doc, err := Read(f, info.Size())
	if err != nil {
		return nil, err
	}
	doc.Path = p
	return doc, nil
}

// Read parses a .docx from r.
func Read(r io.ReaderAt, size int64) (*Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: opening zip archive: %v", ErrInvalidDocument, err)
	}
	parts := map[string]*zip.File{}
	for _, f := range zr.File {
		parts[f.Name] = f
	}
	docFile, ok := parts[PartDocument]
	if !ok {
		return nil, fmt.Errorf("%w: missing required file: %s", ErrInvalidDocument, PartDocument)
	}

	var dx documentXML
	if err := decodePart(docFile, &dx); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalidDocument, PartDocument, err)
	}

	// Styles, footnotes and relationships are optional.
	var sx *stylesXML
	if f, ok := parts[PartStyles]; ok {
		sx = &stylesXML{}
		if err := decodePart(f, sx); err != nil {
			sx = nil
		}
	}
	b := &builder{styles: newStyleSheet(sx)}

	doc := &Document{imageTargets: map[string]string{}}
	if f, ok := parts[PartDocumentRels]; ok {
		var rels relationshipsXML
		if err := decodePart(f, &rels); err == nil {
			for _, rel := range rels.Relationships {
				if strings.HasSuffix(rel.Type, "/image") && rel.TargetMode != "External" {
					doc.imageTargets[rel.ID] = resolveTarget("word", rel.Target)
				}
			}
		}
	}

	for _, el := range dx.Body.Elements {
		switch {
		case el.Paragraph != nil:
			p := b.paragraph(el.Paragraph)
			p.Index = len(doc.Paragraphs)
			p.Body = len(doc.Body)
			doc.Body = append(doc.Body, Element{Kind: KindParagraph, Index: p.Index})
			doc.Paragraphs = append(doc.Paragraphs, p)
		case el.Table != nil:
			t := b.table(el.Table)
			t.Index = len(doc.Tables)
			t.Body = len(doc.Body)
			doc.Body = append(doc.Body, Element{Kind: KindTable, Index: t.Index})
			doc.Tables = append(doc.Tables, t)
		}
	}

	if f, ok := parts[PartFootnotes]; ok {
		var fx footnotesXML
		if err := decodePart(f, &fx); err == nil {
			doc.Footnotes = b.footnotes(fx)
		}
	}
	return doc, nil
}

// Image loads the picture part referenced by relID from the source file.
func (d *Document) Image(relID string) (Image, error) {
	part, ok := d.imageTargets[relID]
	if !ok {
		return Image{}, fmt.Errorf("image relationship %q not found", relID)
	}
	if d.Path == "" {
		return Image{}, errors.New("document has no source path")
	}
	zr, err := zip.OpenReader(d.Path)
	if err != nil {
		return Image{}, err
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != part {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return Image{}, err
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return Image{}, err
		}
		return Image{RelID: relID, Part: part, ContentType: imageContentType(part), Data: data}, nil
	}
	return Image{}, fmt.Errorf("image part %s missing", part)
}

func decodePart(f *zip.File, v any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return xml.NewDecoder(rc).Decode(v)
}

func resolveTarget(base, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(base, target))
}

func imageContentType(part string) string {
	switch strings.ToLower(path.Ext(part)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".emf":
		return "image/x-emf"
	case ".wmf":
		return "image/x-wmf"
	default:
		return "application/octet-stream"
	}
}

type builder struct {
	styles *styleSheet
}

func (b *builder) paragraph(px *paragraphXML) Paragraph {
	styleID := b.styles.paragraphStyle(px.Properties)
	p := Paragraph{StyleID: styleID, StyleName: b.styles.name(styleID)}
	chain := b.styles.paraChain(px.Properties, styleID)
	b.applyParagraphProps(&p, px.Properties, chain)

	var text strings.Builder
	for i := range px.Runs {
		rx := &px.Runs[i]
		text.WriteString(rx.Text)
		p.TabCount += rx.TabCount
		p.Runs = append(p.Runs, resolveRun(rx.Text, b.styles.runChain(rx.Properties, styleID)))
		for _, dr := range rx.Drawings {
			p.PictureCount++
			for _, g := range []*graphicHolderXML{dr.Inline, dr.Anchor} {
				if g != nil && g.Blip != nil && g.Blip.Embed != "" {
					p.ImageRelIDs = append(p.ImageRelIDs, g.Blip.Embed)
				}
			}
		}
		for _, pc := range rx.Picts {
			p.PictureCount++
			for _, sh := range pc.Shapes {
				if sh.ImageData != nil && sh.ImageData.ID != "" {
					p.ImageRelIDs = append(p.ImageRelIDs, sh.ImageData.ID)
				}
			}
		}
		for _, ob := range rx.Objects {
			if ob.OLE != nil {
				id := strings.ToLower(ob.OLE.ProgID)
				if strings.Contains(id, "equation") || strings.Contains(id, "mathtype") {
					p.EquationObject = true
				}
			}
		}
	}
	p.Text = text.String()

	var math []string
	for _, m := range px.Math {
		p.MathCount++
		p.MathFonts = append(p.MathFonts, m.Fonts...)
		if s := strings.TrimSpace(m.Text); s != "" {
			math = append(math, s)
		}
	}
	p.MathText = strings.Join(math, " ")
	return p
}

func (b *builder) applyParagraphProps(p *Paragraph, direct *paragraphPropsXML, chain []*paragraphPropsXML) {
	if direct != nil && direct.Jc != nil {
		p.AlignmentSet = true
	}
	alignDone, beforeDone, afterDone, lineDone := false, false, false, false
	firstDone, leftDone, rightDone, numDone, tabsDone := false, false, false, false, false
	p.LineSpacing = 1.0
	for _, pp := range chain {
		if !alignDone && pp.Jc != nil {
			p.Alignment, _ = ParseAlignment(pp.Jc.Val)
			alignDone = true
		}
		if sp := pp.Spacing; sp != nil {
			if !beforeDone && sp.Before != "" {
				p.SpaceBeforePt, beforeDone = twipsToPt(sp.Before)
			}
			if !afterDone && sp.After != "" {
				p.SpaceAfterPt, afterDone = twipsToPt(sp.After)
			}
			if !lineDone && sp.Line != "" {
				if n, err := strconv.ParseFloat(sp.Line, 64); err == nil {
					switch sp.LineRule {
					case "exact":
						p.LineRule, p.LineSpacing = LineExact, n/20
					case "atLeast":
						p.LineRule, p.LineSpacing = LineAtLeast, n/20
					default:
						p.LineRule, p.LineSpacing = LineMultiple, n/240
					}
					lineDone = true
				}
			}
		}
		if ind := pp.Ind; ind != nil {
			if !firstDone {
				if v, ok := twipsToPt(ind.FirstLine); ok {
					p.FirstLineIndentPt, firstDone = v, true
				} else if v, ok := twipsToPt(ind.Hanging); ok {
					p.FirstLineIndentPt, firstDone = -v, true
				}
			}
			if !leftDone {
				if v, ok := twipsToPt(firstNonEmpty(ind.Left, ind.Start)); ok {
					p.LeftIndentPt, leftDone = v, true
				}
			}
			if !rightDone {
				if v, ok := twipsToPt(firstNonEmpty(ind.Right, ind.End)); ok {
					p.RightIndentPt, rightDone = v, true
				}
			}
		}
		if !numDone && pp.NumPr != nil && pp.NumPr.NumID != nil {
			p.Numbered = pp.NumPr.NumID.Val != "" && pp.NumPr.NumID.Val != "0"
			if pp.NumPr.ILvl != nil {
				p.NumLevel, _ = strconv.Atoi(pp.NumPr.ILvl.Val)
			}
			numDone = true
		}
		if !tabsDone && pp.Tabs != nil && len(pp.Tabs.Tabs) > 0 {
			for _, t := range pp.Tabs.Tabs {
				if t.Val == "clear" {
					continue
				}
				pos, err := strconv.Atoi(strings.TrimSpace(t.Pos))
				if err != nil {
					continue
				}
				p.Tabs = append(p.Tabs, TabStop{Align: t.Val, Position: pos})
			}
			tabsDone = true
		}
	}
}

func (b *builder) table(tx *tableXML) Table {
	t := Table{HasProps: tx.Properties != nil}
	if tx.Properties != nil && tx.Properties.Style != nil {
		t.StyleID = tx.Properties.Style.Val
	}
	t.Borders = convertBorders(b.styles.tableBorders(tx.Properties))
	for _, rx := range tx.Rows {
		var row Row
		for _, cx := range rx.Cells {
			row.Cells = append(row.Cells, b.cell(cx))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func (b *builder) cell(cx tableCellXML) Cell {
	c := Cell{GridSpan: 1}
	var texts []string
	alignSet := false
	for i := range cx.Paragraphs {
		p := b.paragraph(&cx.Paragraphs[i])
		texts = append(texts, p.Text)
		if !alignSet && strings.TrimSpace(p.Text) != "" {
			c.Alignment = p.Alignment
			alignSet = true
		}
	}
	if !alignSet && len(cx.Paragraphs) > 0 {
		c.Alignment = b.paragraph(&cx.Paragraphs[0]).Alignment
	}
	c.Text = strings.Join(texts, "\n")
	if pr := cx.Properties; pr != nil {
		if pr.GridSpan != nil {
			if n, err := strconv.Atoi(pr.GridSpan.Val); err == nil && n > 1 {
				c.GridSpan = n
			}
		}
		if pr.VMerge != nil && pr.VMerge.Val != "restart" {
			c.Merged = true
		}
		if pr.HMerge != nil && pr.HMerge.Val != "restart" {
			c.Merged = true
		}
		c.Borders = convertBorders(pr.Borders)
	}
	return c
}

func convertBorders(bx *bordersXML) Borders {
	if bx == nil {
		return Borders{}
	}
	left := bx.Left
	if left == nil {
		left = bx.Start
	}
	right := bx.Right
	if right == nil {
		right = bx.End
	}
	return Borders{
		Top:     convertBorder(bx.Top),
		Bottom:  convertBorder(bx.Bottom),
		Left:    convertBorder(left),
		Right:   convertBorder(right),
		InsideH: convertBorder(bx.InsideH),
		InsideV: convertBorder(bx.InsideV),
	}
}

func convertBorder(b *borderXML) Border {
	if b == nil {
		return Border{}
	}
	out := Border{Val: b.Val, Set: true}
	if n, err := strconv.ParseFloat(b.Sz, 64); err == nil {
		out.SizePt = n / 8
	}
	return out
}

func (b *builder) footnotes(fx footnotesXML) []Footnote {
	var out []Footnote
	for _, fn := range fx.Footnotes {
		if fn.ID == "-1" || fn.ID == "0" || fn.Type == "separator" || fn.Type == "continuationSeparator" {
			continue
		}
		n := Footnote{ID: fn.ID}
		var texts []string
		for i := range fn.Paragraphs {
			p := b.paragraph(&fn.Paragraphs[i])
			texts = append(texts, p.Text)
			n.Runs = append(n.Runs, p.Runs...)
		}
		n.Text = strings.TrimSpace(strings.Join(texts, "\n"))
		out = append(out, n)
	}
	return out
}
