// Package locate maps issues onto body paragraph indices of a document.
package locate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperifyio/papercheck/internal/detect"
	"github.com/hyperifyio/papercheck/internal/docmodel"
	"github.com/hyperifyio/papercheck/internal/issues"
	"github.com/hyperifyio/papercheck/internal/report"
)

// ErrMiss is returned when no paragraph satisfies the locator.
var ErrMiss = errors.New("paragraph not found")

// TextThreshold is the minimum share of a candidate paragraph the search
// text must cover for a fuzzy Text match.
const TextThreshold = 0.7

// Engine resolves locators against one document snapshot. It never
// modifies the document.
type Engine struct {
	Doc *docmodel.Document
}

// Locate returns the paragraph index designated by is.Locate.
func (e Engine) Locate(is issues.Issue) (int, error) {
	if e.Doc == nil {
		return -1, fmt.Errorf("%w: no document", ErrMiss)
	}
	l := is.Locate
	var (
		idx int
		ok  bool
	)
	switch l.Method {
	case issues.MethodKeyword, issues.MethodFormulaNumber:
		idx, ok = e.Keyword(l.Query, l.CaseSensitive)
	case issues.MethodIndex:
		idx, ok = e.Index(l.N)
	case issues.MethodText:
		idx, ok = e.Text(l.Query)
	case issues.MethodContentParagraph:
		idx, ok = e.ContentParagraph(l.N, is.Titles)
	default:
		return -1, fmt.Errorf("%w: unknown method %d", ErrMiss, l.Method)
	}
	if !ok {
		return -1, fmt.Errorf("%w: %s", ErrMiss, l)
	}
	return idx, nil
}

// Keyword returns the first non-empty paragraph containing keyword.
func (e Engine) Keyword(keyword string, caseSensitive bool) (int, bool) {
	if keyword == "" {
		return -1, false
	}
	if !caseSensitive {
		keyword = strings.ToLower(keyword)
	}
	for i, p := range e.Doc.Paragraphs {
		if p.Text == "" {
			continue
		}
		text := p.Text
		if !caseSensitive {
			text = strings.ToLower(text)
		}
		if strings.Contains(text, keyword) {
			return i, true
		}
	}
	return -1, false
}

// Index checks that i is a valid paragraph position.
func (e Engine) Index(i int) (int, bool) {
	if i < 0 || i >= len(e.Doc.Paragraphs) {
		return -1, false
	}
	return i, true
}

// Text finds the paragraph that contains fragment and is covered by it the
// most. Fragments shorter than five characters take the first containing
// paragraph instead.
func (e Engine) Text(fragment string) (int, bool) {
	search := strings.TrimSpace(strings.ToLower(fragment))
	n := len([]rune(search))
	if n < 5 {
		for i, p := range e.Doc.Paragraphs {
			if strings.Contains(strings.ToLower(p.Text), search) {
				return i, true
			}
		}
		return -1, false
	}
	best, score := -1, 0.0
	for i, p := range e.Doc.Paragraphs {
		text := strings.TrimSpace(strings.ToLower(p.Text))
		size := len([]rune(text))
		if size < 5 || !strings.Contains(text, search) {
			continue
		}
		if s := float64(n) / float64(size); s > score {
			best, score = i, s
		}
	}
	if score < TextThreshold {
		return -1, false
	}
	return best, true
}

// ContentParagraph returns the n-th (1-based) body paragraph after the
// Introduction heading. titles is the heading hierarchy reported by the
// Content module; when empty the outline is rebuilt from the document.
func (e Engine) ContentParagraph(n int, titles []report.Heading) (int, bool) {
	if n < 1 {
		return -1, false
	}
	intro := -1
	headings := map[int]bool{}
	for _, t := range titles {
		headings[t.ParagraphIndex] = true
		if t.Level == 0 && intro < 0 {
			intro = t.ParagraphIndex
		}
	}
	if intro < 0 {
		intro = e.introduction()
	}
	if len(titles) == 0 {
		_, headings = detect.DefaultOutline(e.Doc)
	}
	body := detect.BodyParagraphs(e.Doc, intro, headings)
	if n > len(body) {
		return -1, false
	}
	return body[n-1], true
}

func (e Engine) introduction() int {
	for i, p := range e.Doc.Paragraphs {
		switch strings.TrimSpace(p.Text) {
		case "Introduction", "0 Introduction":
			return i
		}
	}
	return -1
}
