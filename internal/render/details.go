package render

import (
	"fmt"
	"strings"

	"github.com/hyperifyio/papercheck/internal/report"
)

// ContentDetails renders the per-paragraph body format findings of a
// Content report. It returns "" when no paragraph has issues.
func ContentDetails(document string, rep report.Report) string {
	list := rep.Details.ParagraphIssues
	if len(list) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(heavyRule + "\n正文段落格式检查详细报告\n" + heavyRule + "\n\n")
	fmt.Fprintf(&b, "文档: %s\n", document)
	fmt.Fprintf(&b, "总段落数: %d\n", rep.Details.TotalParagraphs)
	fmt.Fprintf(&b, "有问题段落数: %d\n\n", len(list))
	b.WriteString(lightRule + "\n\n")
	for _, p := range list {
		fmt.Fprintf(&b, "段落 %d\n", p.Number)
		fmt.Fprintf(&b, "内容: %s\n", p.Preview)
		b.WriteString("问题:\n")
		for _, is := range p.Issues {
			fmt.Fprintf(&b, "  - %s\n", is)
		}
		b.WriteString("\n" + lightRule + "\n\n")
	}
	return b.String()
}
