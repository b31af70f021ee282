package docmodel

import (
	"strconv"
	"strings"
)

const maxStyleDepth = 16

// styleSheet resolves inherited properties through basedOn chains and
// document defaults.
type styleSheet struct {
	byID        map[string]*styleXML
	defaultPara string
	runDefault  *runPropsXML
	paraDefault *paragraphPropsXML
}

func newStyleSheet(sx *stylesXML) *styleSheet {
	s := &styleSheet{byID: map[string]*styleXML{}}
	if sx == nil {
		return s
	}
	for i := range sx.Styles {
		st := &sx.Styles[i]
		s.byID[st.StyleID] = st
		if st.Type == "paragraph" && onOff(st.Default, false) && s.defaultPara == "" {
			s.defaultPara = st.StyleID
		}
	}
	if dd := sx.DocDefaults; dd != nil {
		if dd.RunDefault != nil {
			s.runDefault = dd.RunDefault.RunProp
		}
		if dd.ParagraphDefault != nil {
			s.paraDefault = dd.ParagraphDefault.ParaProp
		}
	}
	return s
}

// chain returns the style and its ancestors, nearest first.
func (s *styleSheet) chain(id string) []*styleXML {
	var out []*styleXML
	seen := map[string]bool{}
	for id != "" && len(out) < maxStyleDepth && !seen[id] {
		seen[id] = true
		st, ok := s.byID[id]
		if !ok {
			break
		}
		out = append(out, st)
		if st.BasedOn == nil {
			break
		}
		id = st.BasedOn.Val
	}
	return out
}

func (s *styleSheet) name(id string) string {
	if st, ok := s.byID[id]; ok && st.Name != nil {
		return st.Name.Val
	}
	return ""
}

func (s *styleSheet) paragraphStyle(direct *paragraphPropsXML) string {
	if direct != nil && direct.Style != nil && direct.Style.Val != "" {
		return direct.Style.Val
	}
	return s.defaultPara
}

// paraChain lists paragraph property sets from the most to the least specific.
func (s *styleSheet) paraChain(direct *paragraphPropsXML, styleID string) []*paragraphPropsXML {
	out := []*paragraphPropsXML{}
	if direct != nil {
		out = append(out, direct)
	}
	for _, st := range s.chain(styleID) {
		if st.ParaProp != nil {
			out = append(out, st.ParaProp)
		}
	}
	if s.paraDefault != nil {
		out = append(out, s.paraDefault)
	}
	return out
}

// runChain lists run property sets: direct, character style, paragraph
// style, document defaults.
func (s *styleSheet) runChain(direct *runPropsXML, paraStyle string) []*runPropsXML {
	out := []*runPropsXML{}
	if direct != nil {
		out = append(out, direct)
		if direct.Style != nil {
			for _, st := range s.chain(direct.Style.Val) {
				if st.RunProp != nil {
					out = append(out, st.RunProp)
				}
			}
		}
	}
	for _, st := range s.chain(paraStyle) {
		if st.RunProp != nil {
			out = append(out, st.RunProp)
		}
	}
	if s.runDefault != nil {
		out = append(out, s.runDefault)
	}
	return out
}

func (s *styleSheet) tableBorders(direct *tablePropsXML) *bordersXML {
	if direct != nil && direct.Borders != nil {
		return direct.Borders
	}
	if direct == nil || direct.Style == nil {
		return nil
	}
	for _, st := range s.chain(direct.Style.Val) {
		if st.TableProp != nil && st.TableProp.Borders != nil {
			return st.TableProp.Borders
		}
	}
	return nil
}

// Default run formatting when nothing in the chain sets a value.
const (
	DefaultFontName = "Times New Roman"
	DefaultSizePt   = 12.0
)

func resolveRun(text string, chain []*runPropsXML) Run {
	r := Run{Text: text, SizePt: DefaultSizePt}
	nameSet, eaSet, sizeSet, boldSet, italicSet, vertSet := false, false, false, false, false, false
	for _, rp := range chain {
		if rp.Fonts != nil {
			if !nameSet {
				if n := firstNonEmpty(rp.Fonts.ASCII, rp.Fonts.HAnsi); n != "" {
					r.FontName = n
					nameSet = true
				}
			}
			if !eaSet && rp.Fonts.EastAsia != "" {
				r.EastAsiaFont = rp.Fonts.EastAsia
				eaSet = true
			}
		}
		if !sizeSet && rp.Size != nil {
			if hp, err := strconv.ParseFloat(rp.Size.Val, 64); err == nil {
				r.SizePt = hp / 2
				sizeSet = true
			}
		}
		if !boldSet && rp.Bold != nil {
			r.Bold = onOff(rp.Bold.Val, true)
			boldSet = true
		}
		if !italicSet && rp.Italic != nil {
			r.Italic = onOff(rp.Italic.Val, true)
			italicSet = true
		}
		if !vertSet && rp.VertAlign != nil {
			r.VertAlign = rp.VertAlign.Val
			vertSet = true
		}
	}
	if !nameSet {
		r.FontName = DefaultFontName
	}
	return r
}

// onOff decodes an ST_OnOff value. An absent value means def.
func onOff(v string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return def
	case "1", "true", "on":
		return true
	default:
		return false
	}
}

func twipsToPt(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return n / 20, true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
