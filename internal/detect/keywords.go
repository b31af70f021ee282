package detect

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/width"

	"github.com/hyperifyio/papercheck/internal/docmodel"
	"github.com/hyperifyio/papercheck/internal/report"
)

// Keywords checks the keyword line, the CLC line below it and the
// first-page footnote.
type Keywords struct{}

func (Keywords) Name() string { return report.Keywords }

func keywordsDefaults(r *KeywordsRules) {
	r.HeaderPattern = orDefault(r.HeaderPattern, `(?i)^\s*Keywords\s*:\s*(.+)$`)
	r.LooseHeaderPattern = orDefault(r.LooseHeaderPattern, `(?i)^\s*Keywords\s+(.+)$`)
	r.ParagraphPattern = orDefault(r.ParagraphPattern, `(?i)\bKeywords\b`)
	r.MinCount = orInt(r.MinCount, 3)
	r.MaxCount = orInt(r.MaxCount, 8)
	r.MinLength = orInt(r.MinLength, 10)
	r.MaxLength = orInt(r.MaxLength, 500)
	r.CLC.Pattern = orDefault(r.CLC.Pattern, `(?i)^\s*CLC\s+number\s*:\s*(.+?)(\s+)Document\s+code\s*:\s*(.+)$`)
	r.CLC.CLCPattern = orDefault(r.CLC.CLCPattern, `(?i)^\s*CLC\s+number\s*:\s*(.+)$`)
	r.CLC.DocumentPattern = orDefault(r.CLC.DocumentPattern, `(?i)^\s*Document\s+code\s*:\s*(.+)$`)
	r.CLC.SpacingMin = orInt(r.CLC.SpacingMin, 8)
	r.CLC.SpacingMax = orInt(r.CLC.SpacingMax, 15)
	r.CLC.Window = orInt(r.CLC.Window, 3)
	r.Footnote.JournalName = orDefault(r.Footnote.JournalName, "Journal of Donghua University (English Edition)")
	r.Footnote.CitationAuthorCount = orInt(r.Footnote.CitationAuthorCount, 3)
}

// fold maps full-width punctuation and spaces to their ASCII forms.
func fold(s string) string { return width.Fold.String(s) }

// Detect implements Module.
func (m Keywords) Detect(ctx context.Context, in Input) (report.Report, error) {
	var r KeywordsRules
	if err := decodeRules(in.Template, &r, keywordsDefaults); err != nil {
		return report.Report{}, err
	}
	header, err := compile("header_pattern", r.HeaderPattern)
	if err != nil {
		return report.Report{}, err
	}
	loose, err := compile("loose_header_pattern", r.LooseHeaderPattern)
	if err != nil {
		return report.Report{}, err
	}
	marker, err := compile("paragraph_pattern", r.ParagraphPattern)
	if err != nil {
		return report.Report{}, err
	}

	var rep report.Report
	doc := in.Doc
	idx, count := -1, 0
	for _, p := range doc.Paragraphs {
		if marker.MatchString(fold(p.Text)) {
			count++
			if idx < 0 {
				idx = p.Index
			}
		}
	}
	if idx < 0 {
		missing := r.msg("keywords_missing", "未找到Keywords段落")
		for _, name := range []string{"structure", "paragraphs", "format", "clc_structure", "clc_format", "footnote_structure", "footnote_format"} {
			rep.Checks.Set(name, report.Fail(missing))
		}
		rep.Summary = []string{"关键词检查失败：" + missing}
		rep.Extracted = map[string]any{}
		return rep, nil
	}

	text := strings.TrimSpace(fold(doc.Paragraphs[idx].Text))
	structure, keywords := m.checkStructure(&r, text, header, loose)
	rep.Checks.Set("structure", structure)
	if count > 1 {
		rep.Checks.Set("paragraphs", report.Fail(r.msg("paragraphs_multiple", "检测到多个Keywords段落，应该只有一个")))
	} else {
		rep.Checks.Set("paragraphs", report.Pass())
	}
	rep.Checks.Set("format", report.Result(r.checkFormat(doc.Paragraphs[idx], r.Format)))

	clc, err := m.findCLC(doc, &r, idx)
	if err != nil {
		return report.Report{}, err
	}
	rep.Checks.Set("clc_structure", clc.result)
	rep.Checks.Set("clc_format", m.checkCLCFormat(doc, &r, clc))

	var tr TitleRules
	titleDefaults(&tr)
	fm, err := parseFrontMatter(doc, &tr)
	if err != nil {
		return report.Report{}, err
	}
	rep.Checks.Set("footnote_structure", m.checkFootnoteStructure(doc, &r, fm))
	rep.Checks.Set("footnote_format", m.checkFootnoteFormat(doc, &r))

	rep.Extracted = map[string]any{
		"keywords":        keywords,
		"keywords_text":   text,
		"clc_number":      clc.number,
		"document_code":   clc.code,
		"paragraph_index": idx,
	}
	rep.Summary = summarize(rep.Checks, map[string]string{
		"structure": "关键词结构", "paragraphs": "关键词段落", "format": "关键词格式",
		"clc_structure": "CLC结构", "clc_format": "CLC格式",
		"footnote_structure": "脚注结构", "footnote_format": "脚注格式",
	})
	return rep, nil
}

func (Keywords) checkStructure(r *KeywordsRules, text string, header, loose *regexp.Regexp) (report.CheckResult, []string) {
	var msgs []string
	var content string
	if m := header.FindStringSubmatch(text); m != nil {
		content = strings.TrimSpace(m[1])
	} else if m := loose.FindStringSubmatch(text); m != nil {
		msgs = append(msgs, r.msg("structure_colon_missing", "Keywords后应使用冒号，如 'Keywords: a; b; c'"))
		content = strings.TrimSpace(m[1])
	} else {
		return report.Fail(r.msg("structure_format_error", "Keywords段落格式不正确，应为 'Keywords: a; b; c'")), nil
	}

	hasSemi := strings.Contains(content, ";")
	hasComma := strings.Contains(content, ",")
	switch {
	case hasSemi && hasComma:
		msgs = append(msgs, r.msg("structure_separator_mixed", "关键词分隔符混用：应统一使用分号分割，不应混用逗号"))
	case !hasSemi && (hasComma || strings.Contains(content, ":")):
		msgs = append(msgs, r.msg("structure_separator_error", "关键词应使用分号分隔"))
	}
	sep := regexp.MustCompile(`;`)
	if !hasSemi {
		sep = regexp.MustCompile(`[,:]`)
	}
	var keywords []string
	for _, k := range sep.Split(content, -1) {
		if k = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(k), ".")); k != "" {
			keywords = append(keywords, k)
		}
	}
	if n := len(keywords); n < r.MinCount {
		msgs = append(msgs, r.msg("structure_count_few", "关键词数量为{count}个，少于{min}个",
			"count", fmt.Sprint(n), "min", fmt.Sprint(r.MinCount)))
	} else if n > r.MaxCount {
		msgs = append(msgs, r.msg("structure_count_many", "关键词数量为{count}个，多于{max}个",
			"count", fmt.Sprint(n), "max", fmt.Sprint(r.MaxCount)))
	}
	if n := runeLen(content); n < r.MinLength {
		msgs = append(msgs, r.msg("structure_length_short", "关键词内容过短，应不少于{min}个字符", "min", fmt.Sprint(r.MinLength)))
	} else if n > r.MaxLength {
		msgs = append(msgs, r.msg("structure_length_long", "关键词内容过长，应不超过{max}个字符", "max", fmt.Sprint(r.MaxLength)))
	}
	return report.Result(msgs), keywords
}

type clcLine struct {
	result       report.CheckResult
	clcPara      int
	documentPara int
	number       string
	code         string
}

// findCLC scans the paragraphs after the keyword line for the CLC number
// and Document code.
func (Keywords) findCLC(doc *docmodel.Document, r *KeywordsRules, after int) (clcLine, error) {
	out := clcLine{clcPara: -1, documentPara: -1}
	single, err := compile("clc.pattern", r.CLC.Pattern)
	if err != nil {
		return out, err
	}
	clcOnly, err := compile("clc.clc_pattern", r.CLC.CLCPattern)
	if err != nil {
		return out, err
	}
	codeOnly, err := compile("clc.document_code_pattern", r.CLC.DocumentPattern)
	if err != nil {
		return out, err
	}

	seen := 0
	loose := false
	for i := after + 1; i < len(doc.Paragraphs) && seen < r.CLC.Window; i++ {
		text := fold(doc.Paragraphs[i].Text)
		if strings.TrimSpace(text) == "" {
			continue
		}
		seen++
		if m := single.FindStringSubmatch(text); m != nil {
			out.clcPara, out.documentPara = i, i
			out.number = strings.TrimSpace(m[1])
			out.code = strings.TrimSpace(m[len(m)-1])
			if len(m) >= 4 {
				gap := runeLen(m[2])
				if gap < r.CLC.SpacingMin || gap > r.CLC.SpacingMax {
					out.result = report.Fail(r.msg("clc_document_spacing_error",
						"CLC number与Document code之间应间隔{min}-{max}个空格，实际为{actual}个",
						"min", fmt.Sprint(r.CLC.SpacingMin), "max", fmt.Sprint(r.CLC.SpacingMax), "actual", fmt.Sprint(gap)))
					return out, nil
				}
			}
			out.result = report.Pass()
			return out, nil
		}
		if m := clcOnly.FindStringSubmatch(text); m != nil && out.clcPara < 0 {
			out.clcPara, out.number = i, strings.TrimSpace(m[1])
			continue
		}
		if m := codeOnly.FindStringSubmatch(text); m != nil && out.documentPara < 0 {
			out.documentPara, out.code = i, strings.TrimSpace(m[1])
			continue
		}
		lower := strings.ToLower(text)
		if strings.Contains(lower, "clc") || strings.Contains(lower, "document code") {
			loose = true
		}
	}
	switch {
	case out.clcPara >= 0 && out.documentPara >= 0:
		out.result = report.Fail(r.msg("clc_document_multiline_error", "CLC number与Document code应位于同一行"))
	case out.clcPara >= 0:
		out.result = report.Fail(r.msg("clc_document_partial_clc", "找到CLC number但未找到Document code"))
	case out.documentPara >= 0:
		out.result = report.Fail(r.msg("clc_document_partial_code", "找到Document code但未找到CLC number"))
	case loose:
		out.result = report.Fail(r.msg("clc_document_structure_error", "CLC number与Document code格式不正确，应为 'CLC number: X  Document code: A'"))
	default:
		out.result = report.Fail(r.msg("clc_document_missing", "未找到CLC number和Document code"))
	}
	return out, nil
}

func (Keywords) checkCLCFormat(doc *docmodel.Document, r *KeywordsRules, clc clcLine) report.CheckResult {
	if clc.clcPara < 0 && clc.documentPara < 0 {
		return report.Fail(r.msg("clc_missing", "未找到CLC number段落"))
	}
	var msgs []string
	labels := []struct {
		para  int
		label string
	}{{clc.clcPara, "CLC number"}, {clc.documentPara, "Document code"}}
	seen := map[int]bool{}
	for _, l := range labels {
		if l.para < 0 {
			continue
		}
		p := doc.Paragraphs[l.para]
		if !seen[l.para] {
			seen[l.para] = true
			msgs = append(msgs, r.checkFormat(p, r.CLC.Format)...)
		}
		if !boolOr(r.CLC.BoldLabels, true) {
			continue
		}
		if run, ok := runContaining(p.Runs, strings.Fields(l.label)[0]); ok && !run.Bold {
			msgs = append(msgs, r.msg("clc_label_bold", "{label}标签应为加粗，实际为不加粗", "label", l.label))
		}
	}
	return report.Result(msgs)
}

// runContaining returns the first run whose text contains word,
// case-insensitively.
func runContaining(runs []docmodel.Run, word string) (docmodel.Run, bool) {
	w := strings.ToLower(word)
	for _, r := range runs {
		if strings.Contains(strings.ToLower(fold(r.Text)), w) {
			return r, true
		}
	}
	return docmodel.Run{}, false
}
