package detect

import (
	"fmt"
	"math"
	"strings"

	"github.com/hyperifyio/papercheck/internal/template"
)

// Common holds the keys shared by every template.
type Common struct {
	Messages      map[string]string `yaml:"messages"`
	FontSizeNames []SizeName        `yaml:"font_size_names"`
}

// SizeName maps a point size to its Chinese typographic name.
type SizeName struct {
	Pt   float64 `yaml:"pt"`
	Name string  `yaml:"name"`
}

var defaultSizeNames = []SizeName{
	{9, "小五"}, {10.5, "五号"}, {12, "小四"}, {14, "四号"}, {16, "三号"},
	{18, "小二"}, {22, "二号"}, {24, "小一"}, {26, "一号"},
}

// msg returns the template override for key or def, with {name}
// placeholders replaced by the kv pairs.
func (c Common) msg(key, def string, kv ...string) string {
	s := def
	if v, ok := c.Messages[key]; ok && v != "" {
		s = v
	}
	if len(kv) == 0 {
		return s
	}
	pairs := make([]string, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, "{"+kv[i]+"}", kv[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// size renders a point size with its name, e.g. 小四（12pt）.
func (c Common) size(pt float64) string {
	names := c.FontSizeNames
	if len(names) == 0 {
		names = defaultSizeNames
	}
	for _, n := range names {
		if math.Abs(n.Pt-pt) < 0.01 {
			return fmt.Sprintf("%s（%spt）", n.Name, num(pt))
		}
	}
	return num(pt) + "pt"
}

// num formats a float without trailing zeros.
func num(v float64) string { return fmt.Sprintf("%g", math.Round(v*100)/100) }

// FormatRule describes the expected typography of one paragraph kind.
// Nil fields and empty strings are not checked.
type FormatRule struct {
	FontName        string   `yaml:"font_name"`
	FontSize        *float64 `yaml:"font_size_pt"`
	Bold            *bool    `yaml:"bold"`
	Italic          *bool    `yaml:"italic"`
	LineSpacing     *float64 `yaml:"line_spacing"`
	Alignment       string   `yaml:"alignment"`
	FirstLineIndent *float64 `yaml:"first_line_indent_pt"`
	LeftIndent      *float64 `yaml:"left_indent_pt"`
	RightIndent     *float64 `yaml:"right_indent_pt"`
	IndentTolerance float64  `yaml:"indent_tolerance_pt"`
	SpaceBefore     *float64 `yaml:"space_before_lines"`
	SpaceAfter      *float64 `yaml:"space_after_lines"`
}

// TitleRules configures the Title module.
type TitleRules struct {
	Common `yaml:",inline"`

	RunningHeaderPattern string           `yaml:"running_header_pattern"`
	StopPattern          string           `yaml:"stop_pattern"`
	Title                TitleCaseRule    `yaml:"title"`
	Authors              AuthorRules      `yaml:"authors"`
	Affiliations         AffiliationRules `yaml:"affiliations"`
	Format               TitleFormat      `yaml:"format"`
}

// TitleCaseRule limits the title paragraph.
type TitleCaseRule struct {
	MaxWords   int      `yaml:"max_words"`
	Case       string   `yaml:"case"`
	MinorWords []string `yaml:"minor_words"`
}

// AuthorRules configures author line parsing.
type AuthorRules struct {
	SeparatorPattern     string       `yaml:"separator_pattern"`
	CorrespondingMarkers string       `yaml:"corresponding_markers"`
	AuthorRegex          string       `yaml:"author_regex"`
	WarningRules         []AuthorRule `yaml:"warning_rules"`
}

// AuthorRule is a per-author pattern rule. With MustMatch a value that
// misses the pattern is reported; without it a match is reported.
type AuthorRule struct {
	Field           string `yaml:"field"`
	Pattern         string `yaml:"pattern"`
	MustMatch       *bool  `yaml:"must_match"`
	WhenPresentOnly *bool  `yaml:"when_present_only"`
	Message         string `yaml:"message"`
}

// AffiliationRules configures affiliation parsing.
type AffiliationRules struct {
	NumberedPattern     string           `yaml:"numbered_pattern"`
	InstitutionKeywords []string         `yaml:"institution_keywords"`
	Marker              string           `yaml:"marker"`
	Example             []AffiliationRef `yaml:"example"`
}

// AffiliationRef is one numbered affiliation of the template example.
type AffiliationRef struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
}

// TitleFormat holds the paragraph formats of the front matter.
type TitleFormat struct {
	Title        FormatRule `yaml:"title"`
	Authors      FormatRule `yaml:"authors"`
	Affiliations FormatRule `yaml:"affiliations"`
}

// AbstractRules configures the Abstract module.
type AbstractRules struct {
	Common `yaml:",inline"`

	HeaderPattern    string     `yaml:"header_pattern"`
	ParagraphPattern string     `yaml:"paragraph_pattern"`
	MinLength        int        `yaml:"min_length"`
	MaxLength        int        `yaml:"max_length"`
	Format           FormatRule `yaml:"format"`
}

// KeywordsRules configures the Keywords module.
type KeywordsRules struct {
	Common `yaml:",inline"`

	HeaderPattern      string        `yaml:"header_pattern"`
	LooseHeaderPattern string        `yaml:"loose_header_pattern"`
	ParagraphPattern   string        `yaml:"paragraph_pattern"`
	MinCount           int           `yaml:"min_count"`
	MaxCount           int           `yaml:"max_count"`
	MinLength          int           `yaml:"min_length"`
	MaxLength          int           `yaml:"max_length"`
	Format             FormatRule    `yaml:"format"`
	CLC                CLCRules      `yaml:"clc"`
	Footnote           FootnoteRules `yaml:"footnote"`
}

// CLCRules configures the CLC number and Document code line.
type CLCRules struct {
	Pattern         string     `yaml:"pattern"`
	CLCPattern      string     `yaml:"clc_pattern"`
	DocumentPattern string     `yaml:"document_code_pattern"`
	SpacingMin      int        `yaml:"spacing_min"`
	SpacingMax      int        `yaml:"spacing_max"`
	Window          int        `yaml:"window"`
	BoldLabels      *bool      `yaml:"bold_labels"`
	Format          FormatRule `yaml:"format"`
}

// FootnoteRules configures the first-page footnote checks.
type FootnoteRules struct {
	JournalName         string     `yaml:"journal_name"`
	JournalItalic       *bool      `yaml:"journal_italic"`
	CitationAuthorCount int        `yaml:"citation_author_count"`
	Format              FormatRule `yaml:"format"`
}

// ContentRules configures the Content module.
type ContentRules struct {
	Common `yaml:",inline"`

	Level0Pattern string        `yaml:"level0_pattern"`
	Level1Pattern string        `yaml:"level1_pattern"`
	Level2Pattern string        `yaml:"level2_pattern"`
	Level3Pattern string        `yaml:"level3_pattern"`
	MinorWords    []string      `yaml:"minor_words"`
	FormatRules   ContentFormat `yaml:"format_rules"`
}

// ContentFormat holds the heading and body paragraph formats.
type ContentFormat struct {
	Level1      FormatRule `yaml:"level1"`
	Level2      FormatRule `yaml:"level2"`
	Level3      FormatRule `yaml:"level3"`
	ContentText FormatRule `yaml:"content_text"`
}

// TabRule is one expected formula tab stop, in characters.
type TabRule struct {
	PositionChars float64 `yaml:"position_chars"`
	Alignment     string  `yaml:"alignment"`
}

// FormulaRules configures the Formula module.
type FormulaRules struct {
	Common `yaml:",inline"`

	TabStops      []TabRule `yaml:"tab_stops"`
	TabTolerance  float64   `yaml:"tab_tolerance_chars"`
	FormulaFont   string    `yaml:"formula_font"`
	NumberFont    string    `yaml:"number_font"`
	FontSize      *float64  `yaml:"font_size_pt"`
	NumberPattern string    `yaml:"number_pattern"`
	StyleKeywords []string  `yaml:"style_keywords"`
}

// CaptionRule is the typography of a figure or table caption.
type CaptionRule struct {
	FontName  string   `yaml:"font_name"`
	FontSize  *float64 `yaml:"font_size_pt"`
	Bold      *bool    `yaml:"bold"`
	Alignment string   `yaml:"alignment"`
}

// FigureRules configures the Figure module.
type FigureRules struct {
	Common `yaml:",inline"`

	CaptionPattern   string      `yaml:"caption_pattern"`
	CaptionPrefix    string      `yaml:"caption_prefix"`
	CaptionWindow    int         `yaml:"caption_window"`
	NumberingStart   int         `yaml:"numbering_start"`
	Caption          CaptionRule `yaml:"caption"`
	PictureAlignment string      `yaml:"picture_alignment"`
}

// TableRules configures the Table module.
type TableRules struct {
	Common `yaml:",inline"`

	CaptionPattern           string        `yaml:"caption_pattern"`
	CaptionPrefix            string        `yaml:"caption_prefix"`
	SearchWindow             int           `yaml:"search_window"`
	NumberingStart           int           `yaml:"numbering_start"`
	Caption                  CaptionRule   `yaml:"caption"`
	CaptionTitleUppercase    *bool         `yaml:"caption_title_uppercase"`
	AlignmentLengthThreshold int           `yaml:"alignment_length_threshold"`
	BorderWidths             *BorderWidths `yaml:"border_widths"`
}

// BorderWidths are the expected three-line table rule widths in points.
type BorderWidths struct {
	Top       float64 `yaml:"top"`
	Header    float64 `yaml:"header"`
	Bottom    float64 `yaml:"bottom"`
	Tolerance float64 `yaml:"tolerance"`
}

// decodeRules loads t into v and fills defaults through fill.
func decodeRules[T any](t *template.Template, v *T, fill func(*T)) error {
	if t != nil {
		if err := t.Decode(v); err != nil {
			return err
		}
	}
	fill(v)
	return nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
