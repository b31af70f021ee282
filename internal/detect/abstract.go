package detect

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperifyio/papercheck/internal/report"
)

// Abstract checks the English abstract paragraph.
type Abstract struct{}

func (Abstract) Name() string { return report.Abstract }

func abstractDefaults(r *AbstractRules) {
	r.HeaderPattern = orDefault(r.HeaderPattern, `(?is)^\s*Abstract\s*:\s*(.+)$`)
	r.ParagraphPattern = orDefault(r.ParagraphPattern, `(?i)\bAbstract\s*:`)
	r.MinLength = orInt(r.MinLength, 50)
	r.MaxLength = orInt(r.MaxLength, 2000)
}

// Detect implements Module.
func (Abstract) Detect(ctx context.Context, in Input) (report.Report, error) {
	var r AbstractRules
	if err := decodeRules(in.Template, &r, abstractDefaults); err != nil {
		return report.Report{}, err
	}
	header, err := compile("header_pattern", r.HeaderPattern)
	if err != nil {
		return report.Report{}, err
	}
	marker, err := compile("paragraph_pattern", r.ParagraphPattern)
	if err != nil {
		return report.Report{}, err
	}

	var rep report.Report
	idx, content, count := -1, "", 0
	for _, p := range in.Doc.Paragraphs {
		text := strings.TrimSpace(p.Text)
		if marker.MatchString(text) {
			count++
		}
		if idx < 0 {
			if m := header.FindStringSubmatch(text); m != nil {
				idx, content = p.Index, strings.TrimSpace(m[1])
			}
		}
	}
	if idx < 0 {
		missing := r.msg("abstract_missing", "未找到Abstract段落")
		rep.Checks.Set("structure", report.Fail(missing))
		rep.Checks.Set("paragraphs", report.Fail(missing))
		rep.Checks.Set("format", report.Fail(missing))
		rep.Summary = []string{"摘要检查失败：" + missing}
		rep.Extracted = map[string]any{}
		return rep, nil
	}

	var structure []string
	n := runeLen(content)
	if n < r.MinLength {
		structure = append(structure, r.msg("structure_length_short", "摘要内容过短：{length}字符，应不少于{min}字符",
			"length", fmt.Sprint(n), "min", fmt.Sprint(r.MinLength)))
	}
	if n > r.MaxLength {
		structure = append(structure, r.msg("structure_length_long", "摘要内容过长：{length}字符，应不超过{max}字符",
			"length", fmt.Sprint(n), "max", fmt.Sprint(r.MaxLength)))
	}
	rep.Checks.Set("structure", report.Result(structure))

	switch {
	case count > 1:
		rep.Checks.Set("paragraphs", report.Fail(r.msg("paragraphs_multiple", "检测到{count}个Abstract段落，应该只有一个",
			"count", fmt.Sprint(count))))
	default:
		rep.Checks.Set("paragraphs", report.Pass())
	}

	rep.Checks.Set("format", report.Result(r.checkFormat(in.Doc.Paragraphs[idx], r.Format)))
	rep.Extracted = map[string]any{
		"abstract":        content,
		"length":          n,
		"paragraph_index": idx,
	}
	rep.Summary = summarize(rep.Checks, map[string]string{
		"structure": "摘要结构", "paragraphs": "摘要段落", "format": "摘要格式",
	})
	return rep, nil
}
