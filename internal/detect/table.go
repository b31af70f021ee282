package detect

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/hyperifyio/papercheck/internal/docmodel"
	"github.com/hyperifyio/papercheck/internal/report"
)

// Table checks three-line tables, their captions and caption numbering.
type Table struct{}

func (Table) Name() string { return report.Table }

func tableDefaults(r *TableRules) {
	r.CaptionPattern = orDefault(r.CaptionPattern, `(?i)^\s*Table\s+(\d+)\s+(.+)$`)
	r.CaptionPrefix = orDefault(r.CaptionPrefix, "Table")
	r.SearchWindow = orInt(r.SearchWindow, 4)
	r.NumberingStart = orInt(r.NumberingStart, 1)
	r.AlignmentLengthThreshold = orInt(r.AlignmentLengthThreshold, 20)
	r.Caption.Alignment = orDefault(r.Caption.Alignment, "center")
	if r.Caption.FontSize == nil {
		v := 12.0
		r.Caption.FontSize = &v
	}
	if r.Caption.Bold == nil {
		b := true
		r.Caption.Bold = &b
	}
	if r.BorderWidths != nil && r.BorderWidths.Tolerance == 0 {
		r.BorderWidths.Tolerance = 0.1
	}
}

// Detect implements Module.
func (m Table) Detect(ctx context.Context, in Input) (report.Report, error) {
	var r TableRules
	if err := decodeRules(in.Template, &r, tableDefaults); err != nil {
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
		text := strings.TrimSpace(p.Text)
		mm := caption.FindStringSubmatch(text)
		if mm == nil {
			continue
		}
		info := report.TableInfo{Index: len(rep.Details.Tables) + 1, CaptionIndex: p.Index, Caption: text}
		if n, err := strconv.Atoi(mm[1]); err == nil {
			info.Number = n
			numbers = append(numbers, n)
		}
		title := ""
		if len(mm) > 2 {
			title = strings.TrimSpace(mm[2])
		}
		tbl, found := doc.TableAfter(p.Index, r.SearchWindow)
		info.Found = found
		rep.Details.Tables = append(rep.Details.Tables, info)

		item := report.Item{Name: fmt.Sprintf("table%d", info.Index), Label: fmt.Sprintf("表%d", info.Index)}
		item.Checks.Set("caption_format", m.checkCaption(&r, p, title))
		if !found {
			missing := r.msg("table_missing", "未找到表格对象（标题后{window}个元素内）", "window", fmt.Sprint(r.SearchWindow))
			item.Checks.Set("table_style", report.Fail(missing))
			item.Checks.Set("table_alignment", report.Fail(missing))
		} else {
			item.Checks.Set("table_style", report.Result(m.checkStyle(&r, tbl)))
			item.Checks.Set("table_alignment", report.Result(m.checkAlignment(&r, tbl)))
		}
		rep.Items = append(rep.Items, item)
	}

	if len(rep.Details.Tables) == 0 {
		if n := len(doc.Tables); n > 0 {
			rep.Checks.Set("numbering", report.Fail(r.msg("caption_none",
				"文档包含{count}个表格但未找到表格标题（应为：{prefix} 编号 标题）", "count", fmt.Sprint(n), "prefix", r.CaptionPrefix)))
			rep.Summary = []string{"✗ 表格缺少标题"}
		} else {
			rep.Checks.Set("numbering", report.Pass(r.msg("table_none", "文档中未找到任何表格")))
			rep.Summary = []string{r.msg("table_none", "文档中未找到任何表格")}
		}
		rep.Extracted = map[string]any{"table_count": len(doc.Tables), "caption_prefix": r.CaptionPrefix}
		return rep, nil
	}
	rep.Checks.Set("numbering", checkSequence(r.Common, "表格", r.NumberingStart, numbers))

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
		rep.Summary = append(rep.Summary, fmt.Sprintf("✓ 全部 %d 个表格检查通过", len(rep.Items)))
	} else {
		rep.Summary = append(rep.Summary, fmt.Sprintf("✗ %d/%d 个表格存在问题", failed, len(rep.Items)))
	}
	if res, _ := rep.Checks.Get("numbering"); !res.OK {
		rep.Summary = append(rep.Summary, "✗ 表格编号检查未通过")
	}
	rep.Extracted = map[string]any{
		"table_count":    len(rep.Items),
		"numbers":        numbers,
		"caption_prefix": r.CaptionPrefix,
	}
	return rep, nil
}

func (Table) checkCaption(r *TableRules, p docmodel.Paragraph, title string) report.CheckResult {
	msgs := checkCaptionFormat(r.Common, "表格标题", r.Caption, p)
	if boolOr(r.CaptionTitleUppercase, true) && title != "" {
		if first := []rune(title)[0]; unicode.IsLetter(first) && !unicode.IsUpper(first) {
			msgs = append(msgs, r.msg("caption_uppercase_error", "表格标题首字母应大写：'{title}'", "title", title))
		}
	}
	return report.Result(msgs)
}

func (Table) checkStyle(r *TableRules, t docmodel.Table) []string {
	var msgs []string
	left, right := t.Borders.Left.Visible(), t.Borders.Right.Visible()
	for _, row := range t.Rows {
		if n := len(row.Cells); n > 0 {
			left = left || row.Cells[0].Borders.Left.Visible()
			right = right || row.Cells[n-1].Borders.Right.Visible()
		}
	}
	if left {
		msgs = append(msgs, r.msg("border_left_error", "表格不应有左边框（三线表格式）"))
	}
	if right {
		msgs = append(msgs, r.msg("border_right_error", "表格不应有右边框（三线表格式）"))
	}
	if t.Borders.InsideV.Visible() {
		msgs = append(msgs, r.msg("border_inside_v_error", "表格不应有内部竖线（三线表格式）"))
	}
	if w := r.BorderWidths; w != nil && len(t.Rows) > 0 && len(t.Rows[0].Cells) > 0 {
		first := t.Rows[0].Cells[0].Borders
		last := t.Rows[len(t.Rows)-1].Cells
		top := pick(first.Top, t.Borders.Top)
		header := pick(first.Bottom, t.Borders.InsideH)
		bottom := t.Borders.Bottom
		if len(last) > 0 {
			bottom = pick(last[0].Borders.Bottom, t.Borders.Bottom)
		}
		for _, e := range []struct {
			name string
			got  docmodel.Border
			want float64
		}{{"顶线", top, w.Top}, {"栏目线", header, w.Header}, {"底线", bottom, w.Bottom}} {
			if e.want == 0 {
				continue
			}
			if !e.got.Visible() {
				msgs = append(msgs, fmt.Sprintf("表格缺少%s（三线表格式）", e.name))
				continue
			}
			if math.Abs(e.got.SizePt-e.want) > w.Tolerance {
				msgs = append(msgs, r.msg("border_width_error", "表格{edge}宽度应为{expected}pt，实际为{actual}pt",
					"edge", e.name, "expected", num(e.want), "actual", num(e.got.SizePt)))
			}
		}
	}
	return msgs
}

// pick returns the cell border when set and the table border otherwise.
func pick(cell, table docmodel.Border) docmodel.Border {
	if cell.Set {
		return cell
	}
	return table
}

func (Table) checkAlignment(r *TableRules, t docmodel.Table) []string {
	var msgs []string
	for ri, row := range t.Rows {
		for _, c := range row.Cells {
			text := strings.TrimSpace(c.Text)
			if c.Merged || text == "" {
				continue
			}
			if ri == 0 {
				if c.Alignment != docmodel.AlignCenter {
					msgs = append(msgs, r.msg("header_alignment_error", "表头单元格 '{text}' 应居中对齐（当前：{actual}）",
						"text", preview(text, 20), "actual", c.Alignment.Label()))
				}
				continue
			}
			long := runeLen(text) > r.AlignmentLengthThreshold
			switch {
			case long && c.Alignment != docmodel.AlignLeft && c.Alignment != docmodel.AlignJustify:
				msgs = append(msgs, r.msg("long_cell_alignment_error", "第{row}行单元格 '{text}' 内容较长，应左对齐（当前：{actual}）",
					"row", fmt.Sprint(ri+1), "text", preview(text, 20), "actual", c.Alignment.Label()))
			case !long && c.Alignment != docmodel.AlignCenter:
				msgs = append(msgs, r.msg("short_cell_alignment_error", "第{row}行单元格 '{text}' 应居中对齐（当前：{actual}）",
					"row", fmt.Sprint(ri+1), "text", preview(text, 20), "actual", c.Alignment.Label()))
			}
		}
	}
	return msgs
}
