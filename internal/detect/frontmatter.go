package detect

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/hyperifyio/papercheck/internal/docmodel"
)

// Author is one parsed entry of the byline.
type Author struct {
	Raw           string
	Surname       string
	GivenEN       string
	GivenCN       string
	Affiliations  []int
	Corresponding bool
}

func (a Author) field(name string) string {
	switch name {
	case "raw":
		return a.Raw
	case "surname":
		return a.Surname
	case "given_en":
		return a.GivenEN
	case "given_cn":
		return a.GivenCN
	}
	return ""
}

func (a Author) plain() map[string]any {
	return map[string]any{
		"raw":           a.Raw,
		"surname":       a.Surname,
		"given_en":      a.GivenEN,
		"given_cn":      a.GivenCN,
		"affs":          append([]int{}, a.Affiliations...),
		"corresponding": a.Corresponding,
	}
}

type affiliation struct {
	ID        int
	Name      string
	Paragraph int
	Numbered  bool
}

// frontMatter is the title block at the top of the first page.
type frontMatter struct {
	TitleIndex    int
	Title         string
	AuthorIndices []int
	AuthorsText   string
	Authors       []Author
	Affiliations  []affiliation
}

var (
	cnNameInParens = regexp.MustCompile(`[(（]([^()（）]*\p{Han}+[^()（）]*)[)）]`)
	trailingIDs    = regexp.MustCompile(`(\d+(?:,\d+)*)\s*$`)
	idInList       = regexp.MustCompile(`(\d)\s*,\s*(\d)`)
)

// institutionPattern matches any configured keyword. Latin keywords need
// word boundaries; Han keywords cannot use them.
func institutionPattern(keywords []string) (*regexp.Regexp, error) {
	var latin, han []string
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if isASCII(k) {
			latin = append(latin, regexp.QuoteMeta(k))
		} else {
			han = append(han, regexp.QuoteMeta(k))
		}
	}
	var alts []string
	if len(latin) > 0 {
		alts = append(alts, `\b(?:`+strings.Join(latin, "|")+`)\b`)
	}
	alts = append(alts, han...)
	if len(alts) == 0 {
		return regexp.MustCompile(`$^`), nil
	}
	return compile("institution_keywords", `(?i)`+strings.Join(alts, "|"))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// parseFrontMatter finds the title, byline and affiliation paragraphs.
func parseFrontMatter(doc *docmodel.Document, r *TitleRules) (frontMatter, error) {
	fm := frontMatter{TitleIndex: -1}
	header, err := compile("running_header_pattern", r.RunningHeaderPattern)
	if err != nil {
		return fm, err
	}
	stop, err := compile("stop_pattern", r.StopPattern)
	if err != nil {
		return fm, err
	}
	numbered, err := compile("affiliations.numbered_pattern", r.Affiliations.NumberedPattern)
	if err != nil {
		return fm, err
	}
	inst, err := institutionPattern(r.Affiliations.InstitutionKeywords)
	if err != nil {
		return fm, err
	}
	sep, err := compile("authors.separator_pattern", r.Authors.SeparatorPattern)
	if err != nil {
		return fm, err
	}
	var nameRe *regexp.Regexp
	if r.Authors.AuthorRegex != "" {
		if nameRe, err = compile("authors.author_regex", r.Authors.AuthorRegex); err != nil {
			return fm, err
		}
	}

	nonEmpty := doc.NonEmpty()
	if len(nonEmpty) == 0 {
		return fm, nil
	}
	pos := 0
	for i, idx := range nonEmpty {
		if !header.MatchString(strings.TrimSpace(doc.Paragraphs[idx].Text)) {
			pos = i
			break
		}
	}
	fm.TitleIndex = nonEmpty[pos]
	fm.Title = strings.TrimSpace(doc.Paragraphs[fm.TitleIndex].Text)

	i := pos + 1
	var lines []string
	for ; i < len(nonEmpty); i++ {
		line := strings.TrimSpace(doc.Paragraphs[nonEmpty[i]].Text)
		if stop.MatchString(line) || numbered.MatchString(line) || inst.MatchString(line) {
			break
		}
		lines = append(lines, line)
		fm.AuthorIndices = append(fm.AuthorIndices, nonEmpty[i])
	}
	fm.AuthorsText = strings.Join(lines, " ")
	fm.Authors = parseAuthors(fm.AuthorsText, sep, nameRe, r.Authors.CorrespondingMarkers)

	for ; i < len(nonEmpty); i++ {
		idx := nonEmpty[i]
		line := strings.TrimSpace(doc.Paragraphs[idx].Text)
		if stop.MatchString(line) {
			break
		}
		if m := numbered.FindStringSubmatch(line); m != nil {
			id, _ := strconv.Atoi(m[1])
			fm.Affiliations = append(fm.Affiliations, affiliation{ID: id, Name: strings.TrimSpace(m[2]), Paragraph: idx, Numbered: true})
			continue
		}
		if inst.MatchString(line) {
			fm.Affiliations = append(fm.Affiliations, affiliation{Name: line, Paragraph: idx})
			continue
		}
		break
	}
	return fm, nil
}

// parseAuthors splits a byline into authors. Commas inside affiliation
// id lists such as "1,2" do not separate authors.
func parseAuthors(text string, sep, nameRe *regexp.Regexp, markers string) []Author {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	protected := text
	for {
		next := idInList.ReplaceAllString(protected, "${1}\x00${2}")
		if next == protected {
			break
		}
		protected = next
	}
	if markers == "" {
		markers = "*†✉☆"
	}
	var out []Author
	for _, part := range sep.Split(protected, -1) {
		part = strings.TrimSpace(strings.ReplaceAll(part, "\x00", ","))
		if part == "" {
			continue
		}
		a := Author{Raw: part}
		s := part
		if m := cnNameInParens.FindStringSubmatchIndex(s); m != nil {
			a.GivenCN = strings.TrimSpace(s[m[2]:m[3]])
			s = strings.TrimSpace(s[:m[0]] + s[m[1]:])
		}
		if strings.ContainsAny(s, markers) {
			a.Corresponding = true
			s = strings.TrimSpace(strings.Map(func(r rune) rune {
				if strings.ContainsRune(markers, r) {
					return -1
				}
				return r
			}, s))
		}
		if m := trailingIDs.FindStringSubmatchIndex(s); m != nil {
			for _, id := range strings.Split(s[m[2]:m[3]], ",") {
				if n, err := strconv.Atoi(id); err == nil {
					a.Affiliations = append(a.Affiliations, n)
				}
			}
			s = strings.TrimSpace(s[:m[0]])
		}
		if nameRe != nil {
			if m := nameRe.FindStringSubmatch(s); len(m) > 1 {
				a.Surname = strings.TrimSpace(m[1])
				if len(m) > 2 {
					a.GivenEN = strings.TrimSpace(m[2])
				}
			}
		}
		if a.Surname == "" {
			toks := strings.Fields(s)
			if len(toks) > 0 {
				a.Surname = toks[0]
				a.GivenEN = strings.Join(toks[1:], " ")
			}
		}
		out = append(out, a)
	}
	return out
}

func usedAffiliationIDs(authors []Author) []int {
	seen := map[int]bool{}
	var ids []int
	for _, a := range authors {
		for _, id := range a.Affiliations {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Ints(ids)
	return ids
}
