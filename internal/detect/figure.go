package detect

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/papercheck/internal/docmodel"
	"github.com/hyperifyio/papercheck/internal/report"
)

// ContentChecker reviews what a figure image shows.
type ContentChecker interface {
	CheckFigure(ctx context.Context, img docmodel.Image) (report.CheckResult, error)
}

// Figure checks pictures, their captions and caption numbering. Content
// checks run only when the input asks for them and Checker is set.
type Figure struct {
	Checker ContentChecker
}

func (Figure) Name() string { return report.Figure }

func figureDefaults(r *FigureRules) {
	r.CaptionPattern = orDefault(r.CaptionPattern, `(?i)^\s*Fig\.\s+(\d+)(?:\s+(.*))?$`)
	r.CaptionPrefix = orDefault(r.CaptionPrefix, "Fig.")
	r.CaptionWindow = orInt(r.CaptionWindow, 2)
	r.NumberingStart = orInt(r.NumberingStart, 1)
	r.PictureAlignment = orDefault(r.PictureAlignment, "center")
	r.Caption.Alignment = orDefault(r.Caption.Alignment, "center")
	r.Caption.FontName = orDefault(r.Caption.FontName, "Times New Roman")
	if r.Caption.FontSize == nil {
		v := 10.5
		r.Caption.FontSize = &v
	}
}

// Detect implements Module.
func (m Figure) Detect(ctx context.Context, in Input) (report.Report, error) {
	var r FigureRules
	if err := decodeRules(in.Template, &r, figureDefaults); err != nil {
		return report.Report{}, err
	}
	caption, err := compile("caption_pattern", r.CaptionPattern)
	if err != nil {
		return report.Report{}, err
	}
	doc := in.Doc
	rep := report.Report{Kind: report.Hierarchical}

	var numbers []int
	for _, p := range doc.Paragraphs {
		if !p.HasPicture() {
			continue
		}
		info := report.FigureInfo{Index: len(rep.Details.Figures) + 1, ParagraphIndex: p.Index, CaptionIndex: -1}
		candidates := []int{p.Index}
		for i := p.Index + 1; i < len(doc.Paragraphs) && i <= p.Index+r.CaptionWindow; i++ {
			candidates = append(candidates, i)
		}
		for _, i := range candidates {
			text := strings.TrimSpace(doc.Paragraphs[i].Text)
			if mm := caption.FindStringSubmatch(text); mm != nil {
				info.CaptionIndex, info.Caption = i, text
				if n, err := strconv.Atoi(mm[1]); err == nil {
					info.Number = n
					numbers = append(numbers, n)
				}
				break
			}
		}
		rep.Details.Figures = append(rep.Details.Figures, info)

		item := report.Item{Name: fmt.Sprintf("figure%d", info.Index), Label: fmt.Sprintf("图%d", info.Index)}
		item.Checks.Set("format_check", m.checkCaption(doc, &r, info))
		if want, ok := docmodel.ParseAlignment(r.PictureAlignment); ok && p.Alignment != want {
			item.Checks.Set("picture_check", report.Fail(r.msg("picture_alignment_error", "图片应{expected}（当前：{actual}）",
				"expected", want.Label(), "actual", p.Alignment.Label())))
		} else {
			item.Checks.Set("picture_check", report.Pass())
		}
		if in.FigureContent {
			item.Checks.Set("content_check", m.checkContent(ctx, doc, p))
		}
		rep.Items = append(rep.Items, item)
	}

	if len(rep.Details.Figures) == 0 {
		rep.Checks.Set("numbering", report.Pass(r.msg("figure_none", "文档中未找到任何图片")))
		rep.Summary = []string{r.msg("figure_none", "文档中未找到任何图片")}
		rep.Extracted = map[string]any{"figure_count": 0}
		return rep, nil
	}
	rep.Checks.Set("numbering", checkSequence(r.Common, "图片", r.NumberingStart, numbers))

	failed := 0
	for _, it := range rep.Items {
		for _, nc := range it.Checks {
			if !nc.Result.OK {
				failed++
				break
			}
		}
	}
	if failed == 0 {
		rep.Summary = append(rep.Summary, fmt.Sprintf("✓ 全部 %d 张图片检查通过", len(rep.Items)))
	} else {
		rep.Summary = append(rep.Summary, fmt.Sprintf("✗ %d/%d 张图片存在问题", failed, len(rep.Items)))
	}
	if res, _ := rep.Checks.Get("numbering"); !res.OK {
		rep.Summary = append(rep.Summary, "✗ 图片编号检查未通过")
	}
	rep.Extracted = map[string]any{
		"figure_count":   len(rep.Items),
		"numbers":        numbers,
		"caption_prefix": r.CaptionPrefix,
	}
	return rep, nil
}

func (Figure) checkCaption(doc *docmodel.Document, r *FigureRules, info report.FigureInfo) report.CheckResult {
	if info.CaptionIndex < 0 {
		return report.Fail(r.msg("caption_missing", "❌ 图片缺少标题（应为：{prefix} 编号 标题文字）", "prefix", r.CaptionPrefix))
	}
	return report.Result(checkCaptionFormat(r.Common, "图片标题", r.Caption, doc.Paragraphs[info.CaptionIndex]))
}

// checkCaptionFormat applies a caption rule to the caption paragraph p.
// what names the caption in messages.
func checkCaptionFormat(c Common, what string, rule CaptionRule, p docmodel.Paragraph) []string {
	var msgs []string
	if want, ok := docmodel.ParseAlignment(rule.Alignment); ok && p.Alignment != want {
		msgs = append(msgs, c.msg("caption_alignment_error", "{what}应{expected}（当前：{actual}）",
			"what", what, "expected", want.Label(), "actual", p.Alignment.Label()))
	}
	run, ok := p.FirstRun()
	if !ok {
		return msgs
	}
	if rule.FontSize != nil && !sizeMatches(run.SizePt, *rule.FontSize) {
		msgs = append(msgs, c.msg("caption_size_error", "{what}字号应为{expected}，实际为{actual}",
			"what", what, "expected", c.size(*rule.FontSize), "actual", c.size(run.SizePt)))
	}
	if rule.FontName != "" && !fontMatches(run.FontName, rule.FontName) {
		msgs = append(msgs, c.msg("caption_font_error", "{what}字体应为{expected}，实际为{actual}",
			"what", what, "expected", rule.FontName, "actual", run.FontName))
	}
	if rule.Bold != nil && run.Bold != *rule.Bold {
		msgs = append(msgs, c.msg("caption_bold_error", "{what}应为{expected}，实际为{actual}",
			"what", what, "expected", boldLabel(*rule.Bold), "actual", boldLabel(run.Bold)))
	}
	return msgs
}

// checkSequence verifies that numbers run start, start+1, ... without
// gaps, repeats or reordering.
func checkSequence(c Common, what string, start int, numbers []int) report.CheckResult {
	if len(numbers) == 0 {
		return report.Pass()
	}
	var msgs []string
	if numbers[0] != start {
		msgs = append(msgs, c.msg("numbering_start_error", "{what}编号应从{start}开始，实际从{actual}开始",
			"what", what, "start", fmt.Sprint(start), "actual", fmt.Sprint(numbers[0])))
	}
	present := map[int]bool{}
	var dup []int
	for _, n := range numbers {
		if present[n] {
			dup = append(dup, n)
		}
		present[n] = true
	}
	sorted := append([]int(nil), numbers...)
	sort.Ints(sorted)
	var missing []int
	for n := start; n <= sorted[len(sorted)-1]; n++ {
		if !present[n] {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		msgs = append(msgs, c.msg("numbering_gap_error", "{what}编号不连续：缺少 {missing}",
			"what", what, "missing", fmt.Sprint(missing)))
	}
	if len(dup) > 0 {
		msgs = append(msgs, c.msg("numbering_duplicate_error", "{what}编号重复：{numbers}",
			"what", what, "numbers", fmt.Sprint(dup)))
	}
	if !sort.IntsAreSorted(numbers) {
		msgs = append(msgs, c.msg("numbering_order_error", "{what}编号顺序错误：{numbers}",
			"what", what, "numbers", fmt.Sprint(numbers)))
	}
	return report.Result(msgs)
}

func (m Figure) checkContent(ctx context.Context, doc *docmodel.Document, p docmodel.Paragraph) report.CheckResult {
	if m.Checker == nil {
		return report.Fail("图片内容检查未配置视觉模型")
	}
	if len(p.ImageRelIDs) == 0 {
		return report.Fail("无法定位图片数据（可能为链接或嵌入对象）")
	}
	var msgs []string
	for _, id := range p.ImageRelIDs {
		img, err := doc.Image(id)
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("无法读取图片内容: %v", err))
			continue
		}
		res, err := m.Checker.CheckFigure(ctx, img)
		if err != nil {
			log.Warn().Err(err).Int("paragraph", p.Index).Msg("figure content check failed")
			msgs = append(msgs, fmt.Sprintf("图片内容检查失败: %v", err))
			continue
		}
		if !res.OK {
			msgs = append(msgs, res.Messages...)
		}
	}
	return report.Result(msgs)
}
