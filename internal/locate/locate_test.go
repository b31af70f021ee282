package locate

import (
	"bytes"
	"errors"
	"testing"

	"github.com/hyperifyio/papercheck/internal/docmodel"
	"github.com/hyperifyio/papercheck/internal/docxtest"
	"github.com/hyperifyio/papercheck/internal/issues"
	"github.com/hyperifyio/papercheck/internal/report"
)

func heading(text string) string {
	return docxtest.P(text, docxtest.Font("Times New Roman"), docxtest.Size(12), docxtest.Bold())
}

// testDoc has a title, the Introduction heading, two further headings and
// four body paragraphs.
func testDoc(t *testing.T) *docmodel.Document {
	t.Helper()
	data, err := docxtest.Doc{Body: []string{
		docxtest.P("A Study of Things", docxtest.Center()),
		heading("0 Introduction"),
		docxtest.BodyParagraph("The first body paragraph introduces the problem of yarn inspection."),
		heading("1 Methods"),
		docxtest.BodyParagraph("The second body paragraph describes how samples were prepared."),
		heading("1.1 Data collection"),
		docxtest.BodyParagraph("The third body paragraph explains the imaging setup in detail."),
		docxtest.BodyParagraph("The fourth body paragraph closes with E=mc^2 as equation (1)."),
	}}.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	doc, err := docmodel.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestLocate(t *testing.T) {
	e := Engine{Doc: testDoc(t)}
	cases := []struct {
		name string
		loc  issues.Locator
		want int
	}{
		{"keyword", issues.Keyword("methods"), 3},
		{"keyword first match", issues.Keyword("body paragraph"), 2},
		{"keyword case sensitive", issues.Locator{Method: issues.MethodKeyword, Query: "Data", CaseSensitive: true}, 5},
		{"index", issues.Index(4), 4},
		{"text fuzzy", issues.Text("data collection"), 5},
		{"text short", issues.Text("1.1"), 5},
		{"formula number", issues.FormulaNumber("(1)"), 7},
		{"content paragraph", issues.ContentParagraphNumber(3), 6},
		{"content paragraph first", issues.ContentParagraphNumber(1), 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := e.Locate(issues.Issue{Locate: tc.loc})
			if err != nil || got != tc.want {
				t.Fatalf("Locate(%v) = %d, %v; want %d", tc.loc, got, err, tc.want)
			}
		})
	}
}

func TestLocate_Miss(t *testing.T) {
	e := Engine{Doc: testDoc(t)}
	for _, l := range []issues.Locator{
		issues.Keyword(""),
		issues.Keyword("Abstract:"),
		{Method: issues.MethodKeyword, Query: "data collection", CaseSensitive: true},
		issues.Index(-1),
		issues.Index(8),
		issues.Text("The third body paragraph"),
		issues.ContentParagraphNumber(0),
		issues.ContentParagraphNumber(5),
		issues.FormulaNumber("(2)"),
		{},
	} {
		if got, err := e.Locate(issues.Issue{Locate: l}); !errors.Is(err, ErrMiss) || got != -1 {
			t.Errorf("Locate(%v) = %d, %v; want miss", l, got, err)
		}
	}
	if _, err := (Engine{}).Locate(issues.Issue{Locate: issues.Index(0)}); !errors.Is(err, ErrMiss) {
		t.Fatalf("nil document: %v", err)
	}
}

func TestText_Idempotent(t *testing.T) {
	e := Engine{Doc: testDoc(t)}
	first, ok1 := e.Text("1 Methods")
	second, ok2 := e.Text("1 Methods")
	if !ok1 || !ok2 || first != second || first != 3 {
		t.Fatalf("got %d/%v then %d/%v", first, ok1, second, ok2)
	}
}

func TestContentParagraph_UsesTitles(t *testing.T) {
	e := Engine{Doc: testDoc(t)}
	titles := []report.Heading{
		{Text: "Introduction", FullText: "0 Introduction", Level: 0, Number: "0", ParagraphIndex: 1},
		{Text: "Methods", FullText: "1 Methods", Level: 1, Number: "1", ParagraphIndex: 3},
		{FullText: "misdetected", Level: 1, ParagraphIndex: 4},
		{Text: "Data collection", FullText: "1.1 Data collection", Level: 2, Number: "1.1", ParagraphIndex: 5},
	}
	got, ok := e.ContentParagraph(2, titles)
	if !ok || got != 6 {
		t.Fatalf("got %d, %v; want 6", got, ok)
	}
}
