package docmodel

import (
	"encoding/xml"
	"io"
	"strings"
)

// documentXML represents word/document.xml.
type documentXML struct {
	XMLName xml.Name `xml:"document"`
	Body    bodyXML  `xml:"body"`
}

// bodyXML keeps paragraphs and tables in document order.
type bodyXML struct {
	Elements []bodyElementXML
}

type bodyElementXML struct {
	Paragraph *paragraphXML
	Table     *tableXML
}

// UnmarshalXML walks the direct children of w:body so that the relative order
// of paragraphs and tables survives decoding.
func (b *bodyXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				var p paragraphXML
				if err := d.DecodeElement(&p, &t); err != nil {
					return err
				}
				b.Elements = append(b.Elements, bodyElementXML{Paragraph: &p})
			case "tbl":
				var tbl tableXML
				if err := d.DecodeElement(&tbl, &t); err != nil {
					return err
				}
				b.Elements = append(b.Elements, bodyElementXML{Table: &tbl})
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

// paragraphXML represents <w:p>. Runs nested in hyperlinks, tracked
// insertions and smart tags are flattened in document order.
type paragraphXML struct {
	Properties *paragraphPropsXML
	Runs       []runXML
	Math       []mathXML
}

func (p *paragraphXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pPr":
				p.Properties = &paragraphPropsXML{}
				if err := d.DecodeElement(p.Properties, &t); err != nil {
					return err
				}
			case "r":
				var r runXML
				if err := d.DecodeElement(&r, &t); err != nil {
					return err
				}
				p.Runs = append(p.Runs, r)
			case "hyperlink", "ins", "smartTag", "fldSimple":
				var c runContainerXML
				if err := d.DecodeElement(&c, &t); err != nil {
					return err
				}
				p.Runs = append(p.Runs, c.Runs...)
			case "oMath":
				var m mathXML
				if err := d.DecodeElement(&m, &t); err != nil {
					return err
				}
				p.Math = append(p.Math, m)
			case "oMathPara":
				var mp mathParaXML
				if err := d.DecodeElement(&mp, &t); err != nil {
					return err
				}
				p.Math = append(p.Math, mp.Math...)
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

type runContainerXML struct {
	Runs []runXML `xml:"r"`
}

type mathParaXML struct {
	Math []mathXML `xml:"oMath"`
}

// mathXML keeps the concatenated m:t text of an Office Math object and the
// fonts named by its runs.
type mathXML struct {
	Text  string
	Fonts []string
}

func (m *mathXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var buf []byte
	depth := 0
	inText := false
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "t":
				inText = true
			case "rFonts":
				for _, a := range t.Attr {
					if a.Name.Local == "ascii" && a.Value != "" {
						m.Fonts = append(m.Fonts, a.Value)
					}
				}
			}
		case xml.CharData:
			if inText {
				buf = append(buf, t...)
			}
		case xml.EndElement:
			if depth == 0 {
				m.Text = string(buf)
				return nil
			}
			depth--
			if t.Name.Local == "t" {
				inText = false
			}
		}
	}
}

// paragraphPropsXML represents <w:pPr>.
type paragraphPropsXML struct {
	Style   *valXML      `xml:"pStyle"`
	NumPr   *numPrXML    `xml:"numPr"`
	Jc      *valXML      `xml:"jc"`
	Spacing *spacingXML  `xml:"spacing"`
	Ind     *indentXML   `xml:"ind"`
	Tabs    *tabStopsXML `xml:"tabs"`
	RunProp *runPropsXML `xml:"rPr"`
}

type valXML struct {
	Val string `xml:"val,attr"`
}

type numPrXML struct {
	ILvl  *valXML `xml:"ilvl"`
	NumID *valXML `xml:"numId"`
}

type spacingXML struct {
	Before   string `xml:"before,attr"`
	After    string `xml:"after,attr"`
	Line     string `xml:"line,attr"`
	LineRule string `xml:"lineRule,attr"`
}

type indentXML struct {
	Left      string `xml:"left,attr"`
	Start     string `xml:"start,attr"`
	Right     string `xml:"right,attr"`
	End       string `xml:"end,attr"`
	FirstLine string `xml:"firstLine,attr"`
	Hanging   string `xml:"hanging,attr"`
}

type tabStopsXML struct {
	Tabs []tabStopXML `xml:"tab"`
}

type tabStopXML struct {
	Val string `xml:"val,attr"`
	Pos string `xml:"pos,attr"`
}

// runXML represents <w:r>. Text keeps w:t, w:tab and w:br in order.
type runXML struct {
	Properties *runPropsXML
	Text       string
	TabCount   int
	Drawings   []drawingXML
	Picts      []pictXML
	Objects    []objectXML
}

func (r *runXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var sb strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var err error
			switch t.Name.Local {
			case "rPr":
				r.Properties = &runPropsXML{}
				err = d.DecodeElement(r.Properties, &t)
			case "t":
				var tx textXML
				err = d.DecodeElement(&tx, &t)
				sb.WriteString(tx.Value)
			case "tab":
				sb.WriteByte('\t')
				r.TabCount++
				err = d.Skip()
			case "br", "cr":
				sb.WriteByte('\n')
				err = d.Skip()
			case "drawing":
				var dr drawingXML
				err = d.DecodeElement(&dr, &t)
				r.Drawings = append(r.Drawings, dr)
			case "pict":
				var pc pictXML
				err = d.DecodeElement(&pc, &t)
				r.Picts = append(r.Picts, pc)
			case "object":
				var ob objectXML
				err = d.DecodeElement(&ob, &t)
				r.Objects = append(r.Objects, ob)
			case "AlternateContent":
				var ac alternateContentXML
				err = d.DecodeElement(&ac, &t)
				// Choice and Fallback describe the same picture.
				if ac.Choice != nil && (len(ac.Choice.Drawings) > 0 || len(ac.Choice.Picts) > 0) {
					r.Drawings = append(r.Drawings, ac.Choice.Drawings...)
					r.Picts = append(r.Picts, ac.Choice.Picts...)
				} else if ac.Fallback != nil {
					r.Drawings = append(r.Drawings, ac.Fallback.Drawings...)
					r.Picts = append(r.Picts, ac.Fallback.Picts...)
				}
			default:
				err = d.Skip()
			}
			if err != nil {
				return err
			}
		case xml.EndElement:
			r.Text = sb.String()
			return nil
		}
	}
}

type textXML struct {
	Value string `xml:",chardata"`
}

// runPropsXML represents <w:rPr>.
type runPropsXML struct {
	Style     *valXML   `xml:"rStyle"`
	Fonts     *fontsXML `xml:"rFonts"`
	Bold      *valXML   `xml:"b"`
	Italic    *valXML   `xml:"i"`
	Size      *valXML   `xml:"sz"`
	VertAlign *valXML   `xml:"vertAlign"`
}

type fontsXML struct {
	ASCII    string `xml:"ascii,attr"`
	HAnsi    string `xml:"hAnsi,attr"`
	EastAsia string `xml:"eastAsia,attr"`
	CS       string `xml:"cs,attr"`
}

type drawingXML struct {
	Inline *graphicHolderXML `xml:"inline"`
	Anchor *graphicHolderXML `xml:"anchor"`
}

type graphicHolderXML struct {
	Blip *blipXML `xml:"graphic>graphicData>pic>blipFill>blip"`
}

type blipXML struct {
	Embed string `xml:"embed,attr"`
}

type pictXML struct {
	Shapes []vmlShapeXML `xml:"shape"`
}

type vmlShapeXML struct {
	ImageData *imageDataXML `xml:"imagedata"`
}

type imageDataXML struct {
	ID string `xml:"id,attr"`
}

type objectXML struct {
	Shapes []vmlShapeXML `xml:"shape"`
	OLE    *oleObjectXML `xml:"OLEObject"`
}

type oleObjectXML struct {
	ProgID string `xml:"ProgID,attr"`
}

type alternateContentXML struct {
	Choice   *alternateBranchXML `xml:"Choice"`
	Fallback *alternateBranchXML `xml:"Fallback"`
}

type alternateBranchXML struct {
	Drawings []drawingXML `xml:"drawing"`
	Picts    []pictXML    `xml:"pict"`
}

// tableXML represents <w:tbl>.
type tableXML struct {
	Properties *tablePropsXML `xml:"tblPr"`
	Rows       []tableRowXML  `xml:"tr"`
}

type tablePropsXML struct {
	Style   *valXML     `xml:"tblStyle"`
	Borders *bordersXML `xml:"tblBorders"`
}

type bordersXML struct {
	Top     *borderXML `xml:"top"`
	Bottom  *borderXML `xml:"bottom"`
	Left    *borderXML `xml:"left"`
	Start   *borderXML `xml:"start"`
	Right   *borderXML `xml:"right"`
	End     *borderXML `xml:"end"`
	InsideH *borderXML `xml:"insideH"`
	InsideV *borderXML `xml:"insideV"`
}

type borderXML struct {
	Val string `xml:"val,attr"`
	Sz  string `xml:"sz,attr"`
}

type tableRowXML struct {
	Cells []tableCellXML `xml:"tc"`
}

type tableCellXML struct {
	Properties *cellPropsXML  `xml:"tcPr"`
	Paragraphs []paragraphXML `xml:"p"`
}

type cellPropsXML struct {
	GridSpan *valXML     `xml:"gridSpan"`
	VMerge   *valXML     `xml:"vMerge"`
	HMerge   *valXML     `xml:"hMerge"`
	Borders  *bordersXML `xml:"tcBorders"`
}

// stylesXML represents word/styles.xml.
type stylesXML struct {
	DocDefaults *docDefaultsXML `xml:"docDefaults"`
	Styles      []styleXML      `xml:"style"`
}

type docDefaultsXML struct {
	RunDefault *struct {
		RunProp *runPropsXML `xml:"rPr"`
	} `xml:"rPrDefault"`
	ParagraphDefault *struct {
		ParaProp *paragraphPropsXML `xml:"pPr"`
	} `xml:"pPrDefault"`
}

type styleXML struct {
	Type      string             `xml:"type,attr"`
	StyleID   string             `xml:"styleId,attr"`
	Default   string             `xml:"default,attr"`
	Name      *valXML            `xml:"name"`
	BasedOn   *valXML            `xml:"basedOn"`
	ParaProp  *paragraphPropsXML `xml:"pPr"`
	RunProp   *runPropsXML       `xml:"rPr"`
	TableProp *tablePropsXML     `xml:"tblPr"`
}

// footnotesXML represents word/footnotes.xml.
type footnotesXML struct {
	Footnotes []footnoteXML `xml:"footnote"`
}

type footnoteXML struct {
	ID         string         `xml:"id,attr"`
	Type       string         `xml:"type,attr"`
	Paragraphs []paragraphXML `xml:"p"`
}

// relationshipsXML represents a .rels part.
type relationshipsXML struct {
	Relationships []relationshipXML `xml:"Relationship"`
}

type relationshipXML struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}
