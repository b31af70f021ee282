package detect

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/hyperifyio/papercheck/internal/docmodel"
	"github.com/hyperifyio/papercheck/internal/report"
)

type footnoteItem struct {
	name     string
	required *regexp.Regexp
	misspelt *regexp.Regexp
	wrong    string
}

var footnoteItems = []footnoteItem{
	{"Received date", regexp.MustCompile(`(?i)\bReceived\s+date\s*:`), regexp.MustCompile(`(?i)\bReceive\s+date\b`), "Receive date"},
	{"Foundation item", regexp.MustCompile(`(?i)\bFoundation\s+item\s*:`), regexp.MustCompile(`(?i)\bFoundation\s+items\b`), "Foundation items"},
	{"Correspondence", regexp.MustCompile(`(?i)\*\s*Correspondence\s+should\s+be\s+addressed\s+to`), regexp.MustCompile(`(?i)\*\s*Corresponding\s+`), "Corresponding"},
	{"Citation", regexp.MustCompile(`(?i)\bCitation\s*:`), nil, ""},
}

var (
	correspondenceName = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Correspondence\s+should\s+be\s+addressed\s+to\s+([^,\n]+)`),
		regexp.MustCompile(`(?i)Correspondence\s*:\s*([^,\n]+)`),
	}
	citationText       = regexp.MustCompile(`(?is)\bCitation\s*:\s*(.+)$`)
	citationEtAl       = regexp.MustCompile(`^(.+?),\s*et al\.\s*(.+?)\s*\[J\]`)
	citationPlain      = regexp.MustCompile(`^(.+?)\.\s*(.+?)\s*\[J\]`)
	citationAuthorForm = regexp.MustCompile(`^[A-Z]+\s+[A-Z](?:\s+[A-Z])?$`)
	titleNoise         = regexp.MustCompile(`[\s.,;:!?]+`)
)

func (Keywords) checkFootnoteStructure(doc *docmodel.Document, r *KeywordsRules, fm frontMatter) report.CheckResult {
	if len(doc.Footnotes) == 0 {
		return report.Fail(r.msg("footnote_missing", "未找到脚注"))
	}
	texts := make([]string, len(doc.Footnotes))
	for i, f := range doc.Footnotes {
		texts[i] = fold(f.Text)
	}
	all := strings.Join(texts, "\n")

	var msgs []string
	present := map[string]bool{}
	for _, it := range footnoteItems {
		if it.required.MatchString(all) {
			present[it.name] = true
			continue
		}
		if it.misspelt != nil && it.misspelt.MatchString(all) {
			msgs = append(msgs, r.msg("footnote_misspelling", "❌ 字段拼写错误：正确写法为'{expected}'，当前为'{actual}'",
				"expected", it.name, "actual", it.wrong))
			continue
		}
		label := it.name
		if label == "Correspondence" {
			label = "* Correspondence should be addressed to"
		}
		msgs = append(msgs, r.msg("footnote_item_missing", "脚注中未找到{item}项目", "item", label))
	}

	var info []string
	if present["Correspondence"] {
		m, i := checkCorrespondence(all, fm.Authors)
		msgs = append(msgs, m...)
		info = append(info, i...)
	}
	if present["Citation"] {
		for _, t := range texts {
			if m := citationText.FindStringSubmatch(t); m != nil {
				msgs = append(msgs, checkCitation(r, strings.TrimSpace(m[1]), fm)...)
				break
			}
		}
	}
	if len(msgs) > 0 {
		return report.Fail(msgs...)
	}
	return report.Pass(info...)
}

func normName(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
}

func initials(given string) string {
	var out []string
	for _, part := range strings.FieldsFunc(given, func(r rune) bool { return r == ' ' || r == '-' }) {
		if rs := []rune(part); len(rs) > 0 {
			out = append(out, strings.ToUpper(string(rs[0])))
		}
	}
	return strings.Join(out, " ")
}

func displayName(a Author) string { return strings.TrimSpace(a.Surname + " " + a.GivenEN) }

// matchAuthor finds name among authors by full name, surname plus
// initials, or surname alone.
func matchAuthor(name string, authors []Author) (Author, bool) {
	n := normName(name)
	for _, a := range authors {
		if normName(a.Surname+a.GivenEN) == n {
			return a, true
		}
	}
	for _, a := range authors {
		if normName(a.Surname+initials(a.GivenEN)) == n {
			return a, true
		}
	}
	for _, a := range authors {
		if s := normName(a.Surname); s != "" && strings.Contains(n, s) {
			return a, true
		}
	}
	return Author{}, false
}

func checkCorrespondence(text string, authors []Author) (fail, info []string) {
	var name string
	for _, re := range correspondenceName {
		if m := re.FindStringSubmatch(text); m != nil {
			name = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(m[1]), ".;"))
			break
		}
	}
	if name == "" {
		return []string{"⚠️ 无法从Correspondence中提取作者名字"}, nil
	}
	a, ok := matchAuthor(name, authors)
	if !ok {
		names := make([]string, len(authors))
		for i, a := range authors {
			names[i] = displayName(a)
		}
		return []string{
			fmt.Sprintf("❌ Correspondence作者'%s'不在论文作者列表中", name),
			"   论文作者列表: " + strings.Join(names, ", "),
		}, nil
	}
	if !a.Corresponding {
		return []string{fmt.Sprintf("⚠️ Correspondence作者'%s'在作者列表中但未标记为通讯作者（缺少*或†标记）", name)}, nil
	}
	return nil, []string{fmt.Sprintf("✓ Correspondence作者'%s'与通讯作者'%s'匹配", name, displayName(a))}
}

func checkCitation(r *KeywordsRules, text string, fm frontMatter) []string {
	var msgs []string
	if !strings.Contains(text, r.Footnote.JournalName) {
		msgs = append(msgs, r.msg("citation_journal_missing", "缺少{journal}", "journal", r.Footnote.JournalName))
	}
	etAl := true
	m := citationEtAl.FindStringSubmatch(text)
	if m == nil {
		etAl = false
		m = citationPlain.FindStringSubmatch(text)
	}
	if m == nil {
		return append(msgs, r.msg("citation_parse_error", "Citation格式不正确，无法解析作者和标题部分"))
	}
	var cited []string
	for _, s := range strings.Split(m[1], ",") {
		if s = strings.TrimSpace(s); s != "" {
			cited = append(cited, s)
		}
	}

	want := r.Footnote.CitationAuthorCount
	if !etAl && len(fm.Authors) > 0 && len(fm.Authors) < want {
		want = len(fm.Authors)
	}
	if len(cited) != want {
		msgs = append(msgs, r.msg("citation_author_count", "Citation中作者数量应为{expected}个，实际为{actual}个",
			"expected", fmt.Sprint(want), "actual", fmt.Sprint(len(cited))))
	}
	for i, c := range cited {
		if !citationAuthorForm.MatchString(c) {
			msgs = append(msgs, fmt.Sprintf("作者 %d '%s' 格式不正确，应为 'SURNAME I' 或 'SURNAME I N' 格式", i+1, c))
		}
	}
	if len(fm.Authors) > 0 {
		if !etAl && len(cited) != len(fm.Authors) {
			msgs = append(msgs, fmt.Sprintf("❌ Citation中作者数量(%d个)与论文作者数量(%d个)不匹配", len(cited), len(fm.Authors)))
		}
		for i := 0; i < len(cited) && i < len(fm.Authors); i++ {
			a := fm.Authors[i]
			expected := strings.TrimSpace(strings.ToUpper(a.Surname) + " " + initials(a.GivenEN))
			if normName(cited[i]) != normName(expected) {
				msgs = append(msgs, fmt.Sprintf("❌ Citation中第%d位作者'%s'与论文作者'%s'不匹配", i+1, cited[i], expected))
			}
		}
	}
	if fm.Title != "" {
		expected := SentenceCase(fm.Title)
		got := strings.TrimSpace(m[2])
		if normTitle(got) != normTitle(expected) {
			msgs = append(msgs,
				"❌ Citation中的标题与论文标题不一致",
				"   论文标题: "+fm.Title,
				"   期望格式(sentence case): "+expected,
				"   实际Citation: "+got)
		}
	}
	return msgs
}

func normTitle(s string) string {
	return strings.TrimSpace(titleNoise.ReplaceAllString(s, " "))
}

func (Keywords) checkFootnoteFormat(doc *docmodel.Document, r *KeywordsRules) report.CheckResult {
	if len(doc.Footnotes) == 0 {
		return report.Fail(r.msg("footnote_missing", "未找到脚注"))
	}
	var details []string
	seen := map[string]bool{}
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			details = append(details, s)
		}
	}
	for _, f := range doc.Footnotes {
		for _, run := range f.Runs {
			if strings.TrimSpace(run.Text) == "" {
				continue
			}
			for _, m := range r.checkRun(run, FormatRule{FontName: r.Footnote.Format.FontName, FontSize: r.Footnote.Format.FontSize}) {
				add("脚注" + m)
			}
		}
		if !boolOr(r.Footnote.JournalItalic, true) {
			continue
		}
		if runs, ok := spanRuns(f.Runs, r.Footnote.JournalName); ok {
			for _, run := range runs {
				if !run.Italic {
					add(r.msg("journal_italic_error", "{journal}应为斜体", "journal", r.Footnote.JournalName))
					break
				}
			}
		}
	}
	return report.Result(withHeader(r.msg("footnote_format_header", "脚注格式问题："), details))
}

// spanRuns returns the runs that cover the first occurrence of s in the
// concatenated run text.
func spanRuns(runs []docmodel.Run, s string) ([]docmodel.Run, bool) {
	var b strings.Builder
	starts := make([]int, len(runs))
	for i, r := range runs {
		starts[i] = b.Len()
		b.WriteString(r.Text)
	}
	at := strings.Index(b.String(), s)
	if at < 0 || s == "" {
		return nil, false
	}
	end := at + len(s)
	var out []docmodel.Run
	for i, r := range runs {
		rs, re := starts[i], starts[i]+len(r.Text)
		if re > at && rs < end && strings.TrimSpace(r.Text) != "" {
			out = append(out, r)
		}
	}
	return out, true
}
