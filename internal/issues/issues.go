// Package issues turns failing checks into located, reviewable defects.
// Each Issue names exactly one way of finding its paragraph.
package issues

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperifyio/papercheck/internal/report"
)

// Method selects the locate strategy of an Issue.
type Method int

const (
	MethodKeyword Method = iota + 1
	MethodIndex
	MethodText
	MethodContentParagraph
	MethodFormulaNumber
)

func (m Method) String() string {
	switch m {
	case MethodKeyword:
		return "keyword"
	case MethodIndex:
		return "index"
	case MethodText:
		return "text"
	case MethodContentParagraph:
		return "content_paragraph"
	case MethodFormulaNumber:
		return "formula_number"
	}
	return "unknown"
}

// Locator is the designated way of finding an Issue's paragraph.
type Locator struct {
	Method Method `json:"method"`
	// Query is the keyword, search text or numbering token.
	Query string `json:"query,omitempty"`
	// N is the paragraph index for Index and the 1-based body paragraph
	// number for ContentParagraph.
	N             int  `json:"n,omitempty"`
	CaseSensitive bool `json:"case_sensitive,omitempty"`
}

func Keyword(s string) Locator { return Locator{Method: MethodKeyword, Query: s} }
func Index(i int) Locator { return Locator{Method: MethodIndex, N: i} }
func Text(s string) Locator { return Locator{Method: MethodText, Query: s} }
func ContentParagraphNumber(n int) Locator { return Locator{Method: MethodContentParagraph, N: n} }
func FormulaNumber(token string) Locator { return Locator{Method: MethodFormulaNumber, Query: token} }

func (l Locator) String() string {
	switch l.Method {
	case MethodIndex, MethodContentParagraph:
		return fmt.Sprintf("%s(%d)", l.Method, l.N)
	}
	return fmt.Sprintf("%s(%q)", l.Method, l.Query)
}

// Issue is one defect bound to one physical location.
type Issue struct {
	Module   string   `json:"module"`
	Section  string   `json:"section"`
	Messages []string `json:"messages"`
	Locate   Locator  `json:"locate"`
	// Titles is the heading hierarchy of the Content module, carried for
	// ContentParagraph locators.
	Titles []report.Heading `json:"-"`
}

// Group is a run of messages that share a paragraph number. Number is 0
// for the messages without one.
type Group struct {
	Number   int
	Messages []string
}

var (
	bodyParagraphRe = regexp.MustCompile(`正文段落\s*(\d+)`)
	paragraphRe     = regexp.MustCompile(`段落\s*(\d+)`)
	quotedTitleRe   = regexp.MustCompile(`标题\s+'(.+?)'(?:\s|$)`)
	nthParagraphRe  = regexp.MustCompile(`第(\d+)段`)
	formulaHeaderRe = regexp.MustCompile(`^公式段落\s*(\d+)`)
	trailingNumRe   = regexp.MustCompile(`\((\d+)\)\s*$`)
)

// ParagraphNumber extracts the body paragraph number embedded in msg.
func ParagraphNumber(msg string) (int, bool) {
	for _, re := range []*regexp.Regexp{bodyParagraphRe, paragraphRe} {
		if m := re.FindStringSubmatch(msg); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// GroupByParagraph partitions msgs by embedded paragraph number. Groups
// appear in order of first occurrence; messages without a number form the
// group with Number 0.
func GroupByParagraph(msgs []string) []Group {
	var out []Group
	pos := map[int]int{}
	for _, m := range msgs {
		n, _ := ParagraphNumber(m)
		i, ok := pos[n]
		if !ok {
			i = len(out)
			pos[n] = i
			out = append(out, Group{Number: n})
		}
		out[i].Messages = append(out[i].Messages, m)
	}
	return out
}

// TitleGroup is a run of messages about one quoted heading.
type TitleGroup struct {
	Title    string
	Messages []string
}

// GroupByTitle groups msgs by the quoted heading text they mention and
// returns the remaining messages separately.
func GroupByTitle(msgs []string) (groups []TitleGroup, ungrouped []string) {
	pos := map[string]int{}
	for _, m := range msgs {
		mm := quotedTitleRe.FindStringSubmatch(m)
		if mm == nil {
			ungrouped = append(ungrouped, m)
			continue
		}
		i, ok := pos[mm[1]]
		if !ok {
			i = len(groups)
			pos[mm[1]] = i
			groups = append(groups, TitleGroup{Title: mm[1]})
		}
		groups[i].Messages = append(groups[i].Messages, m)
	}
	return groups, ungrouped
}

func isDetail(msg string) bool {
	return strings.HasPrefix(strings.TrimSpace(msg), "- ")
}

// byHeader splits msgs into blocks that each start with a header line and
// continue with its "  - " detail lines. Leading detail lines form a block
// of their own.
func byHeader(msgs []string) [][]string {
	var out [][]string
	for _, m := range msgs {
		if isDetail(m) && len(out) > 0 {
			out[len(out)-1] = append(out[len(out)-1], m)
			continue
		}
		out = append(out, []string{m})
	}
	return out
}

// Extract walks the normalized reports in order and emits one Issue per
// location that has failing checks. Errored reports contribute nothing.
func Extract(results report.Results) []Issue {
	var out []Issue
	for _, rep := range results {
		if rep.Error {
			continue
		}
		var got []Issue
		switch rep.Module {
		case report.Title:
			got = titleIssues(rep)
		case report.Abstract:
			got = keywordIssues(rep, func(string) string { return "Abstract:" })
		case report.Keywords:
			got = keywordIssues(rep, func(section string) string {
				s := strings.ToLower(section)
				if strings.Contains(s, "clc") || strings.Contains(s, "footnote") {
					return "CLC number"
				}
				return "Keywords:"
			})
		case report.Content:
			got = contentIssues(rep)
		case report.Formula:
			got = formulaIssues(rep)
		case report.Figure:
			got = figureIssues(rep)
		case report.Table:
			got = tableIssues(rep)
		}
		out = append(out, got...)
	}
	return out
}

// failing yields the failing top-level checks of rep with messages.
func failing(rep report.Report) []report.NamedCheck {
	var out []report.NamedCheck
	for _, nc := range rep.Checks {
		if !nc.Result.OK && len(nc.Result.Messages) > 0 {
			out = append(out, nc)
		}
	}
	return out
}

func extractedString(rep report.Report, key, def string) string {
	if s, ok := rep.Extracted[key].(string); ok && s != "" {
		return s
	}
	return def
}

func titleIssues(rep report.Report) []Issue {
	titleAt := 0
	if i, ok := rep.Extracted["title_index"].(int); ok && i >= 0 {
		titleAt = i
	}
	authorAt := titleAt + 1
	if i, ok := rep.Extracted["author_index"].(int); ok && i >= 0 {
		authorAt = i
	}
	affiliations := Keyword(extractedString(rep, "affiliation_marker", "College"))
	if ps := rep.Details.AffiliationParagraphs; len(ps) > 0 {
		affiliations = Index(ps[0])
	}
	issue := func(section string, msgs []string, l Locator) Issue {
		return Issue{Module: rep.Module, Section: section, Messages: msgs, Locate: l}
	}

	var out []Issue
	for _, nc := range failing(rep) {
		msgs := nc.Result.Messages
		name := strings.ToLower(nc.Name)
		switch {
		case strings.Contains(name, "title"):
			out = append(out, issue(nc.Name, msgs, Index(titleAt)))
		case strings.Contains(name, "author"):
			out = append(out, issue(nc.Name, msgs, Index(authorAt)))
		case strings.Contains(name, "affiliation"):
			out = append(out, issue(nc.Name, msgs, affiliations))
		case strings.Contains(name, "format"):
			var title, authors, general []string
			var byPara []Group
			for _, block := range byHeader(msgs) {
				head := block[0]
				lower := strings.ToLower(head)
				switch {
				case strings.Contains(head, "作者格式") || strings.Contains(lower, "author"):
					authors = append(authors, block...)
				case strings.Contains(head, "单位格式") || strings.Contains(head, "单位段落") || strings.Contains(lower, "affiliation"):
					if m := nthParagraphRe.FindStringSubmatch(head); m != nil {
						n, _ := strconv.Atoi(m[1])
						byPara = append(byPara, Group{Number: n, Messages: block})
					} else {
						general = append(general, block...)
					}
				default:
					title = append(title, block...)
				}
			}
			if len(title) > 0 {
				out = append(out, issue(nc.Name+"_title", title, Index(titleAt)))
			}
			if len(authors) > 0 {
				out = append(out, issue(nc.Name+"_authors", authors, Index(authorAt)))
			}
			for _, g := range byPara {
				out = append(out, issue(fmt.Sprintf("%s_affiliation_para%d", nc.Name, g.Number), g.Messages, Index(g.Number-1)))
			}
			if len(general) > 0 {
				out = append(out, issue(nc.Name+"_affiliations", general, affiliations))
			}
		default:
			out = append(out, issue(nc.Name, msgs, Index(titleAt)))
		}
	}
	return out
}

func keywordIssues(rep report.Report, anchor func(section string) string) []Issue {
	var out []Issue
	for _, nc := range failing(rep) {
		out = append(out, Issue{Module: rep.Module, Section: nc.Name, Messages: nc.Result.Messages, Locate: Keyword(anchor(nc.Name))})
	}
	return out
}

func contentIssues(rep report.Report) []Issue {
	titles := rep.Details.Titles
	var out []Issue
	fallback := func(section string, msgs []string) {
		if len(msgs) > 0 {
			out = append(out, Issue{Module: rep.Module, Section: section, Messages: msgs, Locate: Keyword("Introduction")})
		}
	}
	for _, nc := range failing(rep) {
		msgs := nc.Result.Messages
		switch nc.Name {
		case "content_format":
			var loose []string
			for _, g := range GroupByParagraph(msgs) {
				if g.Number == 0 {
					loose = g.Messages
					continue
				}
				out = append(out, Issue{
					Module:   rep.Module,
					Section:  fmt.Sprintf("%s_para%d", nc.Name, g.Number),
					Messages: g.Messages,
					Locate:   ContentParagraphNumber(g.Number),
					Titles:   titles,
				})
			}
			fallback(nc.Name, loose)
		case "format", "case":
			groups, loose := GroupByTitle(msgs)
			for _, g := range groups {
				l := Text(g.Title)
				if h, ok := findHeading(titles, g.Title); ok {
					l = Index(h.ParagraphIndex)
				}
				out = append(out, Issue{Module: rep.Module, Section: nc.Name, Messages: g.Messages, Locate: l})
			}
			fallback(nc.Name, loose)
		default:
			fallback(nc.Name, msgs)
		}
	}
	return out
}

func findHeading(titles []report.Heading, text string) (report.Heading, bool) {
	for _, h := range titles {
		if h.FullText == text || h.Text == text {
			return h, true
		}
	}
	return report.Heading{}, false
}

// formulaLocator picks FormulaNumber when the preview ends in a numbering
// token and otherwise a trailing snippet of the preview.
func formulaLocator(f report.FormulaInfo) (Locator, bool) {
	preview := strings.TrimSpace(f.TextPreview)
	if m := trailingNumRe.FindString(preview); m != "" {
		return FormulaNumber(strings.TrimSpace(m)), true
	}
	r := []rune(preview)
	if len(r) > 20 {
		r = r[len(r)-20:]
	}
	snippet := strings.TrimSpace(string(r))
	if len([]rune(snippet)) < 3 {
		return Locator{}, false
	}
	return Text(snippet), true
}

func formulaIssues(rep report.Report) []Issue {
	formulas := rep.Details.Formulas
	if len(formulas) == 0 {
		return nil
	}
	var out []Issue
	for _, nc := range failing(rep) {
		for _, block := range byHeader(nc.Result.Messages) {
			f := formulas[0]
			if m := formulaHeaderRe.FindStringSubmatch(block[0]); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= len(formulas) {
					f = formulas[n-1]
				}
			}
			l, ok := formulaLocator(f)
			if !ok {
				continue
			}
			out = append(out, Issue{Module: rep.Module, Section: fmt.Sprintf("%s_formula%d", nc.Name, f.Index), Messages: block, Locate: l})
		}
	}
	return mergeSame(out)
}

// mergeSame joins consecutive issues that share section and locator.
func mergeSame(in []Issue) []Issue {
	var out []Issue
	for _, is := range in {
		if n := len(out); n > 0 && out[n-1].Section == is.Section && out[n-1].Locate == is.Locate {
			out[n-1].Messages = append(out[n-1].Messages, is.Messages...)
			continue
		}
		out = append(out, is)
	}
	return out
}

func itemMessages(it report.Item, names ...string) []string {
	var msgs []string
	for _, name := range names {
		if r, ok := it.Checks.Get(name); ok && !r.OK {
			msgs = append(msgs, r.Messages...)
		}
	}
	return msgs
}

func figureIssues(rep report.Report) []Issue {
	var out []Issue
	if r, ok := rep.Checks.Get("numbering"); ok && !r.OK && len(r.Messages) > 0 {
		out = append(out, Issue{Module: rep.Module, Section: "numbering", Messages: r.Messages,
			Locate: Keyword(extractedString(rep, "caption_prefix", "Fig."))})
	}
	for i, it := range rep.Items {
		if i >= len(rep.Details.Figures) {
			break
		}
		info := rep.Details.Figures[i]
		caption := itemMessages(it, "format_check")
		picture := itemMessages(it, "picture_check", "content_check")
		if len(caption) > 0 && info.CaptionIndex >= 0 {
			out = append(out, Issue{Module: rep.Module, Section: it.Name + "_caption", Messages: caption, Locate: Index(info.CaptionIndex)})
		} else {
			picture = append(caption, picture...)
		}
		if len(picture) > 0 {
			out = append(out, Issue{Module: rep.Module, Section: it.Name + "_picture", Messages: picture, Locate: Index(info.ParagraphIndex)})
		}
	}
	return out
}

func tableIssues(rep report.Report) []Issue {
	var out []Issue
	if r, ok := rep.Checks.Get("numbering"); ok && !r.OK && len(r.Messages) > 0 {
		out = append(out, Issue{Module: rep.Module, Section: "numbering", Messages: r.Messages,
			Locate: Keyword(extractedString(rep, "caption_prefix", "Table"))})
	}
	for i, it := range rep.Items {
		if i >= len(rep.Details.Tables) {
			break
		}
		info := rep.Details.Tables[i]
		for _, nc := range it.Checks {
			if nc.Result.OK || len(nc.Result.Messages) == 0 {
				continue
			}
			out = append(out, Issue{Module: rep.Module, Section: it.Name + "_" + nc.Name, Messages: nc.Result.Messages, Locate: Index(info.CaptionIndex)})
		}
	}
	return out
}
