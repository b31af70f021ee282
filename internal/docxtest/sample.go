package docxtest

import (
	"fmt"
	"strings"
)

// Sample describes a manuscript that satisfies the default templates.
// Zero fields take the compliant defaults.
type Sample struct {
	Title          string
	FigureCaptions []string
}

// Paragraph indices of the fixed part of a Sample document.
const (
	SampleTitle = iota
	SampleAuthors
	SampleAffiliation
	SampleAbstract
	SampleKeywords
	SampleCLC
	SampleIntroduction
	SampleBody1
	SampleMethods
	SampleDataCollection
	SampleBody2
	SampleResults
	SampleBody3
)

const bodyText = "The proposed method measures yarn evenness from scanned fabric images " +
	"and compares the result with manual inspection on the same samples."

func small(opts ...Option) []Option {
	return append([]Option{Font("Times New Roman"), Size(10.5)}, opts...)
}

// BodyParagraph returns a body paragraph that satisfies the Content rules.
func BodyParagraph(text string) string {
	return P(text, small(Align("both"), FirstLine(420))...)
}

// Doc builds the package.
func (s Sample) Doc() Doc {
	title := s.Title
	if title == "" {
		title = "A Study of Things"
	}
	captions := s.FigureCaptions
	if captions == nil {
		captions = []string{"Fig. 1 Sample image of fabric"}
	}
	gap := strings.Repeat(" ", 10)
	body := []string{
		P(title, Font("Times New Roman"), Size(14), Bold(), Center(), Spacing(0, 240)),
		P("ZHANG San*, LI Si", Font("Times New Roman"), Size(12), Center()),
		P("College of Textiles, Donghua University, Shanghai 201620, China", small(Center(), Spacing(0, 240))...),
		P("Abstract: This paper presents an image based approach for measuring fabric quality "+
			"and reports its accuracy on industrial samples.", small(Align("both"))...),
		P("Keywords: textile; image analysis; quality control", small(Align("both"))...),
		P("", Raw(R("CLC number:", small(Bold())...)+R(" TS101"+gap, small()...)+
			R("Document code:", small(Bold())...)+R(" A", small()...))),
		P("0 Introduction", Font("Times New Roman"), Size(12), Bold()),
		BodyParagraph(bodyText),
		P("1 Methods", Font("Times New Roman"), Size(12), Bold()),
		P("1.1 Data collection", small(Bold())...),
		BodyParagraph("Images were captured under constant lighting with a resolution of " +
			"600 dpi and stored without compression for later analysis."),
		P("2 Results", Font("Times New Roman"), Size(12), Bold()),
		BodyParagraph("The automatic measurement agrees with the manual inspection for " +
			"most samples and the remaining differences are discussed below."),
	}
	images := map[string][]byte{}
	for i, c := range captions {
		id := fmt.Sprintf("rIdImg%d", i+1)
		images[id] = PNG
		body = append(body,
			P("", Center(), Picture(id)),
			P(c, small(Center())...))
	}
	body = append(body,
		P("", TabStop("center", 4200), TabStop("right", 8400),
			Raw(R("\t", small()...)+`<m:oMath><m:r><m:t>E=mc^2</m:t></m:r></m:oMath>`+R("\t(1)", small()...))),
		P("Table 1 Summary of results", small(Bold(), Center())...),
		Table([][]Cell{
			{{Text: "Sample", Align: "center", Borders: `<w:bottom w:val="single" w:sz="6"/>`}, {Text: "Value", Align: "center", Borders: `<w:bottom w:val="single" w:sz="6"/>`}},
			{{Text: "A", Align: "center"}, {Text: "1.0", Align: "center"}},
		}, `<w:top w:val="single" w:sz="12"/><w:bottom w:val="single" w:sz="12"/>`, false),
		P("References", Font("Times New Roman"), Size(12), Bold()),
		P("[1] ZHANG S. A method for yarn inspection [J]. Textile Research Journal, 2020, 90(1): 1-5.", small()...),
	)

	foot := func(runs ...string) string { return "<w:p>" + strings.Join(runs, "") + "</w:p>" }
	nine := []Option{Size(9)}
	return Doc{
		Body:   body,
		Images: images,
		Footnotes: []string{
			foot(R("Received date: 2024-01-01", nine...)),
			foot(R("Foundation item: National Natural Science Foundation of China (No. 12345678)", nine...)),
			foot(R("* Correspondence should be addressed to ZHANG San, E-mail: zhang@dhu.edu.cn", nine...)),
			foot(R("Citation: ZHANG S, LI S. A study of things [J]. ", nine...),
				R("Journal of Donghua University (English Edition)", Size(9), Italic()),
				R(", 2024, 41(1): 1-10.", nine...)),
		},
	}
}
