package detect

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperifyio/papercheck/internal/report"
)

// Title checks the title, byline and affiliation block.
type Title struct{}

func (Title) Name() string { return report.Title }

func titleDefaults(r *TitleRules) {
	r.RunningHeaderPattern = orDefault(r.RunningHeaderPattern, `^\s*\d+(\s+\d+)*\s+[A-Z]`)
	r.StopPattern = orDefault(r.StopPattern, `(?i)^\s*(Abstract|Keywords|CLC|Introduction|摘要|关键词)[\s:：]`)
	r.Title.MaxWords = orInt(r.Title.MaxWords, 20)
	r.Title.Case = orDefault(r.Title.Case, "title")
	r.Authors.SeparatorPattern = orDefault(r.Authors.SeparatorPattern, `[,，;；]+`)
	r.Authors.CorrespondingMarkers = orDefault(r.Authors.CorrespondingMarkers, "*†✉☆")
	r.Affiliations.NumberedPattern = orDefault(r.Affiliations.NumberedPattern, `^\s*(\d+)[.、\s:-]+(.+)$`)
	if len(r.Affiliations.InstitutionKeywords) == 0 {
		r.Affiliations.InstitutionKeywords = []string{"College", "University", "Institute", "School", "Department", "学院", "大学", "研究院"}
	}
	r.Affiliations.Marker = orDefault(r.Affiliations.Marker, "College")
}

// Detect implements Module.
func (m Title) Detect(ctx context.Context, in Input) (report.Report, error) {
	var rules TitleRules
	if err := decodeRules(in.Template, &rules, titleDefaults); err != nil {
		return report.Report{}, err
	}
	fm, err := parseFrontMatter(in.Doc, &rules)
	if err != nil {
		return report.Report{}, err
	}

	var rep report.Report
	rep.Checks.Set("title", m.checkTitle(&rules, fm))
	authors, err := m.checkAuthors(&rules, fm)
	if err != nil {
		return report.Report{}, err
	}
	rep.Checks.Set("authors", authors)
	rep.Checks.Set("affiliations", m.checkAffiliations(&rules, fm))
	rep.Checks.Set("format", m.checkFormat(in, &rules, fm))

	authorList := make([]any, len(fm.Authors))
	for i, a := range fm.Authors {
		authorList[i] = a.plain()
	}
	affs := make([]any, len(fm.Affiliations))
	for i, a := range fm.Affiliations {
		affs[i] = map[string]any{"id": a.ID, "name": a.Name, "paragraph_index": a.Paragraph}
		rep.Details.AffiliationParagraphs = append(rep.Details.AffiliationParagraphs, a.Paragraph)
	}
	authorAt := -1
	if len(fm.AuthorIndices) > 0 {
		authorAt = fm.AuthorIndices[0]
	}
	rep.Extracted = map[string]any{
		"title":              fm.Title,
		"title_index":        fm.TitleIndex,
		"author_index":       authorAt,
		"authors_text":       fm.AuthorsText,
		"authors":            authorList,
		"affiliations":       affs,
		"affiliation_marker": rules.Affiliations.Marker,
	}
	rep.Details.TotalParagraphs = len(in.Doc.Paragraphs)
	rep.Summary = summarize(rep.Checks, map[string]string{
		"title": "标题", "authors": "作者", "affiliations": "单位", "format": "格式",
	})
	return rep, nil
}

func (Title) checkTitle(r *TitleRules, fm frontMatter) report.CheckResult {
	if fm.Title == "" {
		return report.Fail(r.msg("title_missing", "未找到标题"))
	}
	var msgs []string
	if n := len(strings.Fields(fm.Title)); n > r.Title.MaxWords {
		msgs = append(msgs, r.msg("title_too_long", "标题单词数为{count}，超过上限{max}",
			"count", fmt.Sprint(n), "max", fmt.Sprint(r.Title.MaxWords)))
	}
	if strings.HasSuffix(fm.Title, ".") || strings.HasSuffix(fm.Title, "。") {
		msgs = append(msgs, r.msg("title_trailing_period", "标题末尾不应有句号"))
	}
	return report.Result(msgs)
}

func (Title) checkAuthors(r *TitleRules, fm frontMatter) (report.CheckResult, error) {
	if len(fm.Authors) == 0 {
		return report.Fail(r.msg("authors_missing", "未找到作者信息")), nil
	}
	type compiled struct {
		AuthorRule
		re *regexp.Regexp
	}
	rules := make([]compiled, 0, len(r.Authors.WarningRules))
	for i, ar := range r.Authors.WarningRules {
		if strings.TrimSpace(ar.Field) == "" || ar.Pattern == "" {
			continue
		}
		re, err := compile(fmt.Sprintf("authors.warning_rules[%d]", i), ar.Pattern)
		if err != nil {
			return report.CheckResult{}, err
		}
		rules = append(rules, compiled{ar, re})
	}
	var msgs []string
	for _, a := range fm.Authors {
		for _, ar := range rules {
			value := a.field(ar.Field)
			if boolOr(ar.WhenPresentOnly, true) && value == "" {
				continue
			}
			must := boolOr(ar.MustMatch, true)
			matched := ar.re.MatchString(value)
			if must == matched {
				continue
			}
			tpl := ar.Message
			if tpl == "" {
				tpl = "作者字段 {field} 未满足规则"
			}
			msgs = append(msgs, strings.NewReplacer(
				"{raw}", a.Raw, "{field}", ar.Field, "{value}", value,
				"{surname}", a.Surname, "{given_en}", a.GivenEN, "{given_cn}", a.GivenCN,
			).Replace(tpl))
		}
	}
	return report.Result(msgs), nil
}

func (Title) checkAffiliations(r *TitleRules, fm frontMatter) report.CheckResult {
	docIDs := map[int]bool{}
	for _, a := range fm.Affiliations {
		if a.Numbered {
			docIDs[a.ID] = true
		}
	}
	tplIDs := map[int]bool{}
	for _, a := range r.Affiliations.Example {
		tplIDs[a.ID] = true
	}
	used := usedAffiliationIDs(fm.Authors)

	var msgs []string
	var missing []int
	for _, id := range used {
		if !docIDs[id] && !tplIDs[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		msgs = append(msgs, r.msg("affiliations_missing_prefix", "作者引用的单位编号不存在：")+fmt.Sprint(missing))
	}
	switch {
	case len(used) == 1:
		id := fmt.Sprint(used[0])
		if docIDs[used[0]] || tplIDs[used[0]] {
			msgs = append(msgs,
				r.msg("affiliations_all_same", "所有作者均标注同一单位编号{id}", "id", id),
				r.msg("affiliations_all_same_advice", "作者属于同一单位时不应标注单位编号"))
		}
	case len(used) == 0:
		if len(docIDs) == 1 {
			for id := range docIDs {
				msgs = append(msgs, r.msg("affiliations_doc_single_warning",
					"文档中只有一个编号单位（{id}），单一单位不应编号", "id", fmt.Sprint(id)))
			}
		}
		if len(tplIDs) == 1 {
			for id := range tplIDs {
				msgs = append(msgs, r.msg("affiliations_tpl_single_warning",
					"模板示例中只有一个单位（{id}），作者未引用任何单位编号", "id", fmt.Sprint(id)))
			}
		}
	}
	return report.Result(msgs)
}

func (Title) checkFormat(in Input, r *TitleRules, fm frontMatter) report.CheckResult {
	if fm.TitleIndex < 0 {
		return report.Fail(r.msg("title_missing", "未找到标题"))
	}
	doc := in.Doc
	var msgs []string

	title := doc.Paragraphs[fm.TitleIndex]
	details := r.checkFormat(title, r.Format.Title)
	if want := expectedCase(r.Title.Case, fm.Title, r.Title.MinorWords); want != fm.Title {
		details = append(details, r.msg("title_case_error", "标题大小写不正确，应为'{expected}'，实际为'{actual}'",
			"expected", want, "actual", fm.Title))
	}
	msgs = append(msgs, withHeader(r.msg("format_title_header", "标题格式问题："), details)...)

	var authorDetails []string
	for _, idx := range fm.AuthorIndices {
		authorDetails = append(authorDetails, r.checkFormat(doc.Paragraphs[idx], r.Format.Authors)...)
	}
	msgs = append(msgs, withHeader(r.msg("format_authors_header", "作者格式问题："), authorDetails)...)

	for i, a := range fm.Affiliations {
		rule := r.Format.Affiliations
		if i < len(fm.Affiliations)-1 {
			rule.SpaceAfter = f64(0)
		}
		header := r.msg("format_affiliation_header", "单位格式问题（第{index}段）：", "index", fmt.Sprint(a.Paragraph+1))
		msgs = append(msgs, withHeader(header, r.checkFormat(doc.Paragraphs[a.Paragraph], rule))...)
	}
	return report.Result(msgs)
}

// expectedCase returns s rewritten in the configured case style.
func expectedCase(style, s string, minor []string) string {
	switch strings.ToLower(style) {
	case "title":
		return TitleCase(s, minor)
	case "sentence":
		return SentenceCase(s)
	}
	return s
}
