package detect

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperifyio/papercheck/internal/docmodel"
	"github.com/hyperifyio/papercheck/internal/report"
)

// Content checks the section headings and the body text.
type Content struct{}

func (Content) Name() string { return report.Content }

const autoNumberLabel = "[Word自动编号]"

var (
	bareIntroduction = regexp.MustCompile(`(?i)^\s*Introduction\s*$`)
	referencesHeader = regexp.MustCompile(`(?i)^\s*(References|参考文献)\s*$`)
	referenceAuthor  = regexp.MustCompile(`^[A-Z]{2,}\s+[A-Z]`)
	captionStart     = regexp.MustCompile(`(?i)^(表|图|Table|Figure|Fig\.)\s*\d+`)
	frontMarker      = regexp.MustCompile(`(?i)^\s*(Abstract|Keywords|CLC\s+number|Document\s+code)\b`)
	dashedNumber     = regexp.MustCompile(`^\d+[\-—]`)
	parenNumber      = regexp.MustCompile(`^\(\d+\)`)
)

func contentDefaults(r *ContentRules) {
	r.Level0Pattern = orDefault(r.Level0Pattern, `(?i)^\s*0\s+(Introduction)\s*$`)
	r.Level1Pattern = orDefault(r.Level1Pattern, `^\s*(\d+)\s+(.+)$`)
	r.Level2Pattern = orDefault(r.Level2Pattern, `^\s*(\d+\.\d+)\s+(.+)$`)
	r.Level3Pattern = orDefault(r.Level3Pattern, `^\s*(\d+\.\d+\.\d+)\s+(.+)$`)
	if len(r.MinorWords) == 0 {
		r.MinorWords = defaultMinorWords
	}
	if r.FormatRules.ContentText.IndentTolerance == 0 {
		r.FormatRules.ContentText.IndentTolerance = 2
	}
}

func isReferenceLike(text string) bool {
	lower := strings.ToLower(text)
	return referenceAuthor.MatchString(text) ||
		strings.Contains(text, "[J]") || strings.Contains(text, "[D]") ||
		strings.Contains(text, "[C]") || strings.Contains(text, "[M]") ||
		strings.HasPrefix(lower, "gb/t") || strings.HasPrefix(lower, "iso") ||
		strings.HasPrefix(lower, "reference")
}

func isCaption(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range []string{"table ", "figure ", "fig.", "图 ", "表 "} {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return captionStart.MatchString(text)
}

type headingPatterns struct {
	level0, level1, level2, level3 *regexp.Regexp
}

func compileHeadings(r *ContentRules) (headingPatterns, error) {
	var hp headingPatterns
	var err error
	if hp.level0, err = compile("level0_pattern", r.Level0Pattern); err != nil {
		return hp, err
	}
	if hp.level1, err = compile("level1_pattern", r.Level1Pattern); err != nil {
		return hp, err
	}
	if hp.level2, err = compile("level2_pattern", r.Level2Pattern); err != nil {
		return hp, err
	}
	if hp.level3, err = compile("level3_pattern", r.Level3Pattern); err != nil {
		return hp, err
	}
	return hp, nil
}

// outline is the heading structure of the body.
type outline struct {
	intro     int
	titles    []report.Heading
	suspected []int
}

func (o outline) headingSet() map[int]bool {
	set := make(map[int]bool, len(o.titles))
	for _, t := range o.titles {
		set[t.ParagraphIndex] = true
	}
	return set
}

func findOutline(doc *docmodel.Document, hp headingPatterns) outline {
	o := outline{intro: -1}
	start := 0
	for i, p := range doc.Paragraphs {
		text := strings.TrimSpace(p.Text)
		if hp.level0.MatchString(text) || bareIntroduction.MatchString(text) {
			o.intro = i
			break
		}
		if frontMarker.MatchString(text) {
			start = i + 1
		}
	}
	if o.intro >= 0 {
		start = o.intro
	}
	for i := start; i < len(doc.Paragraphs); i++ {
		p := doc.Paragraphs[i]
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}
		if referencesHeader.MatchString(text) {
			break
		}
		if i == o.intro {
			h := report.Heading{Text: text, FullText: text, Level: 0, ParagraphIndex: i}
			if m := hp.level0.FindStringSubmatch(text); m != nil {
				h.Number = "0"
				if len(m) > 1 {
					h.Text = m[len(m)-1]
				}
			} else if p.Numbered {
				h.Number, h.AutoNumbered = "[自动编号]", true
			}
			o.titles = append(o.titles, h)
			continue
		}
		if m := hp.level3.FindStringSubmatch(text); m != nil {
			o.titles = append(o.titles, report.Heading{Text: m[2], FullText: text, Level: 3, Number: m[1], ParagraphIndex: i})
			continue
		}
		if m := hp.level2.FindStringSubmatch(text); m != nil {
			o.titles = append(o.titles, report.Heading{Text: m[2], FullText: text, Level: 2, Number: m[1], ParagraphIndex: i})
			continue
		}
		if m := hp.level1.FindStringSubmatch(text); m != nil && runeLen(text) < 150 && !isReferenceLike(text) {
			o.titles = append(o.titles, report.Heading{Text: m[2], FullText: text, Level: 1, Number: m[1], ParagraphIndex: i})
			continue
		}
		if o.intro < 0 || isCaption(text) || frontMarker.MatchString(text) || isReferenceLike(text) {
			continue
		}
		if p.Numbered && p.NumLevel == 0 && !dashedNumber.MatchString(text) && !parenNumber.MatchString(text) {
			o.titles = append(o.titles, report.Heading{Text: text, FullText: text, Level: 1, Number: autoNumberLabel, ParagraphIndex: i, AutoNumbered: true})
			continue
		}
		if n := runeLen(text); n > 10 && n < 150 {
			if run, ok := p.FirstRun(); ok && run.Bold && run.SizePt >= 10.5 {
				o.suspected = append(o.suspected, i)
			}
		}
	}
	return o
}

// DefaultOutline finds the Introduction heading and all heading
// paragraphs with the built-in heading patterns.
func DefaultOutline(doc *docmodel.Document) (intro int, headings map[int]bool) {
	var r ContentRules
	contentDefaults(&r)
	hp, err := compileHeadings(&r)
	if err != nil {
		return -1, nil
	}
	o := findOutline(doc, hp)
	return o.intro, o.headingSet()
}

// BodyParagraphs returns, in order, the indices of the body-text
// paragraphs after the Introduction heading at intro. Headings, short
// lines, captions, centered short lines and likely unnumbered headings are
// skipped. Enumeration stops once three consecutive paragraphs look like
// reference entries.
func BodyParagraphs(doc *docmodel.Document, intro int, headings map[int]bool) []int {
	if intro < 0 {
		return nil
	}
	var out []int
	refs := 0
	for i := intro + 1; i < len(doc.Paragraphs); i++ {
		if headings[i] {
			continue
		}
		p := doc.Paragraphs[i]
		text := strings.TrimSpace(p.Text)
		if runeLen(text) <= 20 {
			refs = 0
			continue
		}
		if isReferenceLike(text) {
			refs++
			if refs >= 3 {
				break
			}
			continue
		}
		refs = 0
		if p.Numbered && p.NumLevel == 0 {
			continue
		}
		if isCaption(text) {
			continue
		}
		if p.Alignment == docmodel.AlignCenter && runeLen(text) < 80 {
			continue
		}
		if run, ok := p.FirstRun(); ok && run.Bold && run.SizePt > 10.5 && runeLen(text) < 150 {
			continue
		}
		out = append(out, i)
	}
	return out
}

// Detect implements Module.
func (m Content) Detect(ctx context.Context, in Input) (report.Report, error) {
	var r ContentRules
	if err := decodeRules(in.Template, &r, contentDefaults); err != nil {
		return report.Report{}, err
	}
	hp, err := compileHeadings(&r)
	if err != nil {
		return report.Report{}, err
	}
	doc := in.Doc
	o := findOutline(doc, hp)

	var rep report.Report
	rep.Checks.Set("hierarchy", m.checkHierarchy(&r, doc, o))
	rep.Checks.Set("format", m.checkHeadingFormat(&r, doc, o))
	rep.Checks.Set("case", m.checkCase(&r, o))

	body := BodyParagraphs(doc, o.intro, o.headingSet())
	var msgs []string
	if len(body) == 0 {
		msgs = append(msgs, r.msg("content_missing", "未找到正文内容段落"))
	}
	for n, idx := range body {
		issues := r.checkFormat(doc.Paragraphs[idx], r.FormatRules.ContentText)
		if len(issues) == 0 {
			continue
		}
		rep.Details.ParagraphIssues = append(rep.Details.ParagraphIssues, report.ParagraphIssue{
			Number:         n + 1,
			ParagraphIndex: idx,
			Preview:        preview(doc.Paragraphs[idx].Text, 40),
			Issues:         issues,
		})
		for _, is := range issues {
			msgs = append(msgs, fmt.Sprintf("正文段落 %d %s", n+1, is))
		}
	}
	rep.Checks.Set("content_format", report.Result(msgs))

	rep.Details.Titles = o.titles
	rep.Details.TotalParagraphs = len(body)
	rep.Extracted = map[string]any{
		"introduction_index": o.intro,
		"titles_count":       len(o.titles),
		"body_paragraphs":    len(body),
		"suspected_headings": append([]int{}, o.suspected...),
	}
	rep.Summary = summarize(rep.Checks, map[string]string{
		"hierarchy": "标题层级", "format": "标题格式", "case": "标题大小写", "content_format": "正文格式",
	})
	return rep, nil
}

func (Content) checkHierarchy(r *ContentRules, doc *docmodel.Document, o outline) report.CheckResult {
	var msgs []string
	if o.intro < 0 {
		msgs = append(msgs, r.msg("structure_introduction_error", "未找到Introduction标题，应为 '0 Introduction'（0后恰好1个空格）"))
	} else if intro := o.titles[0]; intro.Number != "0" {
		if intro.AutoNumbered {
			msgs = append(msgs, r.msg("introduction_auto_numbered", "Introduction标题使用了Word自动编号，应改为文本形式 '0 Introduction'（0后恰好1个空格）"))
		} else {
			msgs = append(msgs, r.msg("introduction_unnumbered", "Introduction标题缺少编号，应为 '0 Introduction'（0后恰好1个空格）"))
		}
	}

	var auto []report.Heading
	for _, t := range o.titles {
		if t.AutoNumbered && t.Level == 1 {
			auto = append(auto, t)
		}
	}
	if len(auto) > 0 {
		msgs = append(msgs, fmt.Sprintf("发现 %d 个使用Word自动编号的标题，应改为文本形式的编号（如 '1 Title'，而非使用Word编号库）", len(auto)))
		for _, t := range auto {
			msgs = append(msgs, fmt.Sprintf("  - 段落 %d: '%s'", t.ParagraphIndex, preview(t.FullText, 60)))
		}
	}
	if len(o.suspected) > 0 {
		msgs = append(msgs, fmt.Sprintf("发现 %d 个疑似标题但完全缺少编号，标题应有编号格式（如 '1 Title', '1.1 Subtitle'）", len(o.suspected)))
		for _, idx := range o.suspected {
			msgs = append(msgs, fmt.Sprintf("  - 段落 %d: '%s'", idx, preview(doc.Paragraphs[idx].Text, 60)))
		}
	}

	var level1 []int
	parents := map[int]bool{}
	for _, t := range o.titles {
		if t.Level != 1 || t.AutoNumbered {
			continue
		}
		if n, err := strconv.Atoi(t.Number); err == nil {
			level1 = append(level1, n)
			parents[n] = true
		}
	}
	for i, n := range level1 {
		if n != i+1 {
			expected := make([]int, len(level1))
			for j := range expected {
				expected[j] = j + 1
			}
			msgs = append(msgs, r.msg("structure_numbering_error", "一级标题编号不连续或不从1开始：检测到 {actual}，期望 {expected}",
				"actual", fmt.Sprint(level1), "expected", fmt.Sprint(expected)))
			break
		}
	}

	last := map[int]int{}
	for _, t := range o.titles {
		if t.Level != 2 {
			continue
		}
		parts := strings.SplitN(t.Number, ".", 2)
		parent, err1 := strconv.Atoi(parts[0])
		child, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			continue
		}
		if !parents[parent] {
			msgs = append(msgs, fmt.Sprintf("二级标题 '%s' 没有对应的一级标题 %d", t.FullText, parent))
			continue
		}
		if child != last[parent]+1 {
			msgs = append(msgs, fmt.Sprintf("二级标题 '%s' 编号不连续，期望 %d.%d", t.FullText, parent, last[parent]+1))
		}
		last[parent] = child
	}
	return report.Result(msgs)
}

func (Content) checkHeadingFormat(r *ContentRules, doc *docmodel.Document, o outline) report.CheckResult {
	var msgs []string
	for _, t := range o.titles {
		rule := r.FormatRules.Level1
		switch t.Level {
		case 2:
			rule = r.FormatRules.Level2
		case 3:
			rule = r.FormatRules.Level3
		}
		prefix := ""
		if t.AutoNumbered {
			prefix = "[使用Word自动编号] "
		}
		for _, is := range r.checkFormat(doc.Paragraphs[t.ParagraphIndex], rule) {
			msgs = append(msgs, fmt.Sprintf("%s标题 '%s' %s", prefix, t.FullText, is))
		}
	}
	return report.Result(msgs)
}

func (Content) checkCase(r *ContentRules, o outline) report.CheckResult {
	var msgs []string
	for _, t := range o.titles {
		var want, label string
		switch t.Level {
		case 0:
			want, label = "Introduction", "标题"
		case 1:
			want, label = TitleCase(t.Text, r.MinorWords), "一级标题"
		case 2:
			want, label = SentenceCase(t.Text), "二级标题"
		default:
			want, label = SentenceCase(t.Text), "三级标题"
		}
		if want != t.Text {
			msgs = append(msgs, fmt.Sprintf("%s '%s' 大小写不正确，应为 '%s'", label, t.FullText, want))
		}
	}
	return report.Result(msgs)
}
