package report

// Details carries module-specific structural data that later stages need
// to place comments. Every field is a plain value.
type Details struct {
	TotalParagraphs int `json:"total_paragraphs,omitempty"`

	// Content
	Titles          []Heading        `json:"titles,omitempty"`
	ParagraphIssues []ParagraphIssue `json:"paragraphs_with_issues,omitempty"`

	// Title
	AffiliationParagraphs []int `json:"affiliation_paragraphs,omitempty"`

	// Formula
	Formulas []FormulaInfo `json:"formula_paragraphs,omitempty"`

	// Figure
	Figures []FigureInfo `json:"figures,omitempty"`

	// Table
	Tables []TableInfo `json:"tables,omitempty"`
}

// Heading is one entry of the section heading hierarchy.
type Heading struct {
	Text           string `json:"text"`
	FullText       string `json:"full_text"`
	Level          int    `json:"level"`
	Number         string `json:"number,omitempty"`
	ParagraphIndex int    `json:"paragraph_index"`
	AutoNumbered   bool   `json:"auto_numbered,omitempty"`
}

// ParagraphIssue lists the problems of one body paragraph.
type ParagraphIssue struct {
	Number         int      `json:"paragraph_number"`
	ParagraphIndex int      `json:"paragraph_index"`
	Preview        string   `json:"preview"`
	Issues         []string `json:"issues"`
}

// FormulaInfo describes one detected formula paragraph.
type FormulaInfo struct {
	Index          int    `json:"index"`
	ParagraphIndex int    `json:"paragraph_index"`
	TextPreview    string `json:"text_preview"`
	Number         string `json:"number,omitempty"`
	DetectedBy     string `json:"detected_by"`
}

// FigureInfo describes one picture and its caption.
type FigureInfo struct {
	Index          int    `json:"index"`
	ParagraphIndex int    `json:"paragraph_index"`
	CaptionIndex   int    `json:"caption_index"`
	Caption        string `json:"caption,omitempty"`
	Number         int    `json:"number,omitempty"`
}

// TableInfo describes one captioned table.
type TableInfo struct {
	Index        int    `json:"index"`
	CaptionIndex int    `json:"caption_index"`
	Caption      string `json:"caption"`
	Number       int    `json:"number"`
	Found        bool   `json:"found"`
}
