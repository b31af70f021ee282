package detect

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperifyio/papercheck/internal/docmodel"
	"github.com/hyperifyio/papercheck/internal/report"
)

// Formula checks display equations: tab alignment, fonts and numbering.
type Formula struct{}

func (Formula) Name() string { return report.Formula }

// twipsPerChar is one 10.5pt character.
const twipsPerChar = 210.0

var (
	mathSymbols   = regexp.MustCompile(`[=<>≤≥≠±∞∑∏∫∂∇∆]|[\x{0391}-\x{03A9}\x{03B1}-\x{03C9}]`)
	formulaNumber = regexp.MustCompile(`^\s*[(\[{]\s*\d+\s*[)\]}]\s*$`)
)

func formulaDefaults(r *FormulaRules) {
	if len(r.TabStops) == 0 {
		r.TabStops = []TabRule{{PositionChars: 20, Alignment: "center"}, {PositionChars: 40, Alignment: "right"}}
	}
	if r.TabTolerance == 0 {
		r.TabTolerance = 2
	}
	r.FormulaFont = orDefault(r.FormulaFont, "Cambria Math")
	r.NumberFont = orDefault(r.NumberFont, "Times New Roman")
	r.NumberPattern = orDefault(r.NumberPattern, `\((\d+)\)\s*$`)
	if len(r.StyleKeywords) == 0 {
		r.StyleKeywords = []string{"formula", "equation", "公式", "math"}
	}
}

// detectFormula reports how p was recognised as a formula paragraph.
func detectFormula(p docmodel.Paragraph, keywords []string) string {
	if p.HasMath() {
		return "math_object"
	}
	center, right := false, false
	for _, t := range p.Tabs {
		chars := math.Round(float64(t.Position) / twipsPerChar)
		switch t.Align {
		case "center":
			center = center || (chars >= 10 && chars <= 50)
		case "right", "end":
			right = right || (chars >= 20 && chars <= 100)
		}
	}
	if center && right {
		return "tab_stops"
	}
	style := strings.ToLower(p.StyleName + " " + p.StyleID)
	for _, k := range keywords {
		if k != "" && strings.Contains(style, strings.ToLower(k)) {
			return "style"
		}
	}
	return ""
}

// Detect implements Module.
func (m Formula) Detect(ctx context.Context, in Input) (report.Report, error) {
	var r FormulaRules
	if err := decodeRules(in.Template, &r, formulaDefaults); err != nil {
		return report.Report{}, err
	}
	numRe, err := compile("number_pattern", r.NumberPattern)
	if err != nil {
		return report.Report{}, err
	}
	doc := in.Doc

	var rep report.Report
	var msgs, suggestions []string
	var numbers []int
	failed := 0
	stats := map[string]int{}
	isFormula := map[int]bool{}
	for _, p := range doc.Paragraphs {
		how := detectFormula(p, r.StyleKeywords)
		if how == "" {
			continue
		}
		isFormula[p.Index] = true
		stats[how]++
		info := report.FormulaInfo{Index: len(rep.Details.Formulas) + 1, ParagraphIndex: p.Index, DetectedBy: how}
		if mm := numRe.FindStringSubmatch(strings.TrimSpace(p.Text)); mm != nil {
			info.Number = "(" + mm[1] + ")"
			if n, err := strconv.Atoi(mm[1]); err == nil {
				numbers = append(numbers, n)
			}
		}
		info.TextPreview = formulaPreview(p, info.Number)
		rep.Details.Formulas = append(rep.Details.Formulas, info)

		issues := m.checkParagraph(&r, p)
		if len(issues) > 0 {
			failed++
			msgs = append(msgs, withHeader(fmt.Sprintf("公式段落 %d 格式问题：", info.Index), issues)...)
		}
	}

	total := len(rep.Details.Formulas)
	switch {
	case total == 0:
		rep.Checks.Set("formula_detection", report.Pass(r.msg("formula_none", "未检测到公式段落")))
	case len(msgs) > 0:
		rep.Checks.Set("formula_detection", report.Fail(msgs...))
	default:
		rep.Checks.Set("formula_detection", report.Pass())
	}
	rep.Checks.Set("numbering", m.checkNumbering(&r, total, numbers))

	for _, p := range doc.Paragraphs {
		text := strings.TrimSpace(p.Text)
		if isFormula[p.Index] || text == "" || runeLen(text) >= 200 || !mathSymbols.MatchString(text) {
			continue
		}
		suggestions = append(suggestions, fmt.Sprintf("  - 段落%d: %s", p.Index, preview(text, 60)))
	}
	if len(suggestions) > 0 {
		suggestions = append([]string{"以下段落包含数学符号，如为公式请按公式格式排版："}, suggestions...)
	}
	rep.Checks.Set("suggestions", report.Pass(suggestions...))

	if total > 0 {
		if failed == 0 {
			rep.Summary = append(rep.Summary, fmt.Sprintf("所有 %d 个公式段落格式检查通过", total))
		} else {
			rep.Summary = append(rep.Summary, fmt.Sprintf("发现 %d 个公式段落格式问题，共检查 %d 个公式段落", failed, total))
		}
		rep.Summary = append(rep.Summary, fmt.Sprintf("检测方式统计：Office Math %d 个，制表位 %d 个，样式 %d 个",
			stats["math_object"], stats["tab_stops"], stats["style"]))
	} else {
		rep.Summary = []string{r.msg("formula_none", "未检测到公式段落")}
	}
	if res, _ := rep.Checks.Get("numbering"); !res.OK {
		rep.Summary = append(rep.Summary, "✗ 公式编号检查未通过")
	}
	rep.Extracted = map[string]any{
		"formula_count": total,
		"numbers":       numbers,
	}
	return rep, nil
}

func formulaPreview(p docmodel.Paragraph, number string) string {
	var s string
	switch {
	case strings.TrimSpace(p.MathText) != "":
		s = strings.TrimSpace(p.MathText)
		if number != "" {
			s += " " + number
		}
	case p.HasMath() && number != "":
		s = "[公式] " + number
	default:
		s = strings.TrimSpace(strings.ReplaceAll(p.Text, "\t", " "))
	}
	return preview(s, 150)
}

func (Formula) checkParagraph(r *FormulaRules, p docmodel.Paragraph) []string {
	var out []string
	if len(r.TabStops) > 0 {
		if len(p.Tabs) == 0 {
			out = append(out, "未检测到制表位设置（段落格式和样式中都没有）")
		} else {
			if len(p.Tabs) < len(r.TabStops) {
				out = append(out, fmt.Sprintf("制表位数量不足，期望%d个，实际%d个", len(r.TabStops), len(p.Tabs)))
			}
			for _, want := range r.TabStops {
				found := false
				for _, t := range p.Tabs {
					chars := float64(t.Position) / twipsPerChar
					if math.Abs(chars-want.PositionChars) > r.TabTolerance {
						continue
					}
					found = true
					if !strings.EqualFold(t.Align, want.Alignment) {
						out = append(out, fmt.Sprintf("制表位%s字符处对齐方式错误，期望%s，实际%s", num(want.PositionChars), want.Alignment, t.Align))
					}
					break
				}
				if !found {
					out = append(out, fmt.Sprintf("未找到位置为%s字符的制表位", num(want.PositionChars)))
				}
			}
			want := len(r.TabStops)
			switch {
			case p.TabCount == 0:
				out = append(out, "设置了制表位但没有使用制表符，公式不会按预期对齐",
					"建议：在公式前按Tab键跳到居中位置，在公式后按Tab键跳到右对齐位置")
			case p.TabCount < want:
				out = append(out, fmt.Sprintf("制表符使用不足，期望%d个，实际%d个", want, p.TabCount))
			case p.TabCount > want:
				out = append(out, fmt.Sprintf("制表符使用过多，期望%d个，实际%d个", want, p.TabCount))
			}
		}
	}

	seen := map[string]bool{}
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, run := range p.Runs {
		t := strings.TrimSpace(run.Text)
		if t == "" {
			continue
		}
		switch {
		case formulaNumber.MatchString(t):
			if !fontMatches(run.FontName, r.NumberFont) {
				add(fmt.Sprintf("公式编号字体应为%s，实际为%s（编号：%s）", r.NumberFont, run.FontName, t))
			}
		case mathSymbols.MatchString(t) || run.VertAlign != "":
			if !fontMatches(run.FontName, r.FormulaFont) {
				add(fmt.Sprintf("公式内容字体应为%s，实际为%s（内容：%s）", r.FormulaFont, run.FontName, preview(t, 20)))
			}
		}
		if r.FontSize != nil && !sizeMatches(run.SizePt, *r.FontSize) {
			add(r.msg("font_size_error", "字体大小应为{expected}，实际为{actual}",
				"expected", r.size(*r.FontSize), "actual", r.size(run.SizePt)))
		}
	}
	if p.MathCount > 0 && len(p.MathFonts) > 0 {
		ok := false
		for _, f := range p.MathFonts {
			if fontMatches(f, r.FormulaFont) {
				ok = true
				break
			}
		}
		if !ok {
			add(fmt.Sprintf("检测到Office Math对象但未找到%s字体", r.FormulaFont))
		}
	}
	return out
}

func (Formula) checkNumbering(r *FormulaRules, total int, numbers []int) report.CheckResult {
	if total == 0 || len(numbers) == 0 {
		return report.Pass()
	}
	if total == 1 {
		if numbers[0] != 1 {
			return report.Fail(r.msg("numbering_single", "单个公式编号应为(1)，实际为({actual})", "actual", fmt.Sprint(numbers[0])))
		}
		return report.Pass()
	}
	expected := make([]int, len(numbers))
	bad := false
	for i := range numbers {
		expected[i] = i + 1
		if numbers[i] != i+1 {
			bad = true
		}
	}
	if bad {
		return report.Fail(r.msg("numbering_error", "公式编号不连续或不从1开始：检测到编号 {actual}，期望 {expected}",
			"actual", fmt.Sprint(numbers), "expected", fmt.Sprint(expected)))
	}
	return report.Pass()
}
