package detect

import (
	"fmt"
	"math"
	"strings"

	"github.com/hyperifyio/papercheck/internal/docmodel"
)

const (
	sizeTolerance    = 0.5
	lineTolerance    = 0.1
	spacingTolerance = 0.2
	// Spacing is measured in lines of 12pt.
	ptPerLine = 12.0
)

func sizeMatches(actual, expected float64) bool {
	return math.Abs(actual-expected) <= sizeTolerance
}

// fontMatches compares font names case-insensitively by containment.
func fontMatches(actual, expected string) bool {
	a := strings.ToLower(strings.TrimSpace(actual))
	e := strings.ToLower(strings.TrimSpace(expected))
	if e == "" {
		return true
	}
	return a != "" && (strings.Contains(a, e) || strings.Contains(e, a))
}

// spacingMatches compares paragraph spacing in lines. One line also
// accepts up to 1.35 lines because Word rounds 12pt spacing generously.
func spacingMatches(actual, expected float64) bool {
	if math.Abs(actual-expected) <= spacingTolerance {
		return true
	}
	return expected == 1 && actual >= 1 && actual <= 1.35
}

func lineName(v float64) string {
	switch {
	case math.Abs(v-1) < 0.01:
		return "单倍行距"
	case math.Abs(v-1.5) < 0.01:
		return "1.5倍行距"
	case math.Abs(v-2) < 0.01:
		return "双倍行距"
	}
	return num(v) + "倍行距"
}

func describeLine(p docmodel.Paragraph) string {
	switch p.LineRule {
	case docmodel.LineExact:
		return "固定值" + num(p.LineSpacing) + "pt"
	case docmodel.LineAtLeast:
		return "最小值" + num(p.LineSpacing) + "pt"
	}
	return fmt.Sprintf("%s（%s倍）", lineName(p.LineSpacing), num(p.LineSpacing))
}

func boldLabel(b bool) string {
	if b {
		return "加粗"
	}
	return "不加粗"
}

func italicLabel(b bool) string {
	if b {
		return "斜体"
	}
	return "正体"
}

// checkRun compares the character formatting of run against r.
func (c Common) checkRun(run docmodel.Run, r FormatRule) []string {
	var out []string
	if r.FontSize != nil && !sizeMatches(run.SizePt, *r.FontSize) {
		out = append(out, c.msg("font_size_error", "字体大小应为{expected}，实际为{actual}",
			"expected", c.size(*r.FontSize), "actual", c.size(run.SizePt)))
	}
	if r.FontName != "" && !fontMatches(run.FontName, r.FontName) {
		out = append(out, c.msg("font_name_error", "字体应为{expected}，实际为{actual}",
			"expected", r.FontName, "actual", run.FontName))
	}
	if r.Bold != nil && run.Bold != *r.Bold {
		out = append(out, c.msg("bold_error", "字体应为{expected}，实际为{actual}",
			"expected", boldLabel(*r.Bold), "actual", boldLabel(run.Bold)))
	}
	if r.Italic != nil && run.Italic != *r.Italic {
		out = append(out, c.msg("italic_error", "字体应为{expected}，实际为{actual}",
			"expected", italicLabel(*r.Italic), "actual", italicLabel(run.Italic)))
	}
	return out
}

// checkFormat compares p against r and returns one message per mismatch.
// Character formatting is read from the first visible run.
func (c Common) checkFormat(p docmodel.Paragraph, r FormatRule) []string {
	var out []string
	if run, ok := p.FirstRun(); ok {
		out = append(out, c.checkRun(run, r)...)
	}
	if r.LineSpacing != nil {
		want := *r.LineSpacing
		if p.LineRule != docmodel.LineMultiple || math.Abs(p.LineSpacing-want) > lineTolerance {
			out = append(out, c.msg("line_spacing_error", "行间距应为{expected}，实际为{actual}",
				"expected", fmt.Sprintf("%s（%s倍）", lineName(want), num(want)), "actual", describeLine(p)))
		}
	}
	if want, ok := docmodel.ParseAlignment(r.Alignment); ok && p.Alignment != want {
		out = append(out, c.msg("alignment_error", "对齐方式应为{expected}，实际为{actual}",
			"expected", want.Label(), "actual", p.Alignment.Label()))
	}
	tol := r.IndentTolerance
	if tol == 0 {
		tol = 1
	}
	indents := []struct {
		key, label string
		want       *float64
		got        float64
	}{
		{"first_line_indent_error", "首行缩进", r.FirstLineIndent, p.FirstLineIndentPt},
		{"left_indent_error", "左缩进", r.LeftIndent, p.LeftIndentPt},
		{"right_indent_error", "右缩进", r.RightIndent, p.RightIndentPt},
	}
	for _, in := range indents {
		if in.want != nil && math.Abs(in.got-*in.want) > tol {
			out = append(out, c.msg(in.key, in.label+"应为{expected}pt，实际为{actual}pt",
				"expected", num(*in.want), "actual", fmt.Sprintf("%.1f", in.got)))
		}
	}
	out = append(out, c.checkSpacing(p, r.SpaceBefore, r.SpaceAfter)...)
	return out
}

// checkSpacing compares paragraph spacing in lines.
func (c Common) checkSpacing(p docmodel.Paragraph, before, after *float64) []string {
	var out []string
	if before != nil {
		if got := p.SpaceBeforePt / ptPerLine; !spacingMatches(got, *before) {
			out = append(out, c.msg("space_before_error", "段前间距应为{expected}行，实际为{actual}行",
				"expected", num(*before), "actual", fmt.Sprintf("%.1f", got)))
		}
	}
	if after != nil {
		if got := p.SpaceAfterPt / ptPerLine; !spacingMatches(got, *after) {
			out = append(out, c.msg("space_after_error", "段后间距应为{expected}行，实际为{actual}行",
				"expected", num(*after), "actual", fmt.Sprintf("%.1f", got)))
		}
	}
	return out
}

// withHeader prefixes detail lines with a header line. It returns nil when
// there are no details.
func withHeader(header string, details []string) []string {
	if len(details) == 0 {
		return nil
	}
	out := make([]string, 0, len(details)+1)
	out = append(out, header)
	for _, d := range details {
		out = append(out, "  - "+d)
	}
	return out
}

func preview(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}

func runeLen(s string) int { return len([]rune(s)) }

func f64(v float64) *float64 { return &v }
