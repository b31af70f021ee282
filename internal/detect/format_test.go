package detect

import (
	"reflect"
	"testing"

	"github.com/hyperifyio/papercheck/internal/docmodel"
)

func TestCommon_SizeAndMessages(t *testing.T) {
	var c Common
	if got := c.size(12); got != "小四（12pt）" {
		t.Fatalf("size(12) = %q", got)
	}
	if got := c.size(13); got != "13pt" {
		t.Fatalf("size(13) = %q", got)
	}
	c.Messages = map[string]string{"k": "got {a} and {b}"}
	if got := c.msg("k", "default", "a", "1", "b", "2"); got != "got 1 and 2" {
		t.Fatalf("override: %q", got)
	}
	if got := c.msg("missing", "x={a}", "a", "y"); got != "x=y" {
		t.Fatalf("default: %q", got)
	}
}

func TestSpacingMatches(t *testing.T) {
	cases := []struct {
		got, want float64
		ok        bool
	}{
		{1, 1, true},
		{1.3, 1, true},
		{1.5, 1, false},
		{0.1, 0, true},
		{0.5, 0, false},
		{2.1, 2, true},
	}
	for _, tc := range cases {
		if ok := spacingMatches(tc.got, tc.want); ok != tc.ok {
			t.Errorf("spacingMatches(%v, %v) = %v", tc.got, tc.want, ok)
		}
	}
}

func TestCheckFormat(t *testing.T) {
	var c Common
	p := docmodel.Paragraph{
		Alignment:         docmodel.AlignLeft,
		LineSpacing:       1.5,
		FirstLineIndentPt: 0,
		SpaceAfterPt:      24,
		Runs:              []docmodel.Run{{Text: "x", FontName: "SimSun", SizePt: 12}},
	}
	rule := FormatRule{
		FontName:        "Times New Roman",
		FontSize:        f64(10.5),
		LineSpacing:     f64(1),
		Alignment:       "justify",
		FirstLineIndent: f64(21),
		SpaceAfter:      f64(1),
	}
	got := c.checkFormat(p, rule)
	want := []string{
		"字体大小应为五号（10.5pt），实际为小四（12pt）",
		"字体应为Times New Roman，实际为SimSun",
		"行间距应为单倍行距（1倍），实际为1.5倍行距（1.5倍）",
		"对齐方式应为两端对齐，实际为左对齐",
		"首行缩进应为21pt，实际为0.0pt",
		"段后间距应为1行，实际为2.0行",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
	if msgs := c.checkFormat(p, FormatRule{}); len(msgs) != 0 {
		t.Fatalf("empty rule should not report: %q", msgs)
	}
}

func TestWithHeader(t *testing.T) {
	if withHeader("h", nil) != nil {
		t.Fatal("expected nil")
	}
	got := withHeader("h：", []string{"a", "b"})
	if !reflect.DeepEqual(got, []string{"h：", "  - a", "  - b"}) {
		t.Fatalf("got %q", got)
	}
}
