package render

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const pdfFontFamily = "report"

// PDF renders a plain-text report into a PDF at outPath. Core PDF fonts
// carry no CJK glyphs, so fontPath should name a TrueType font covering
// the report text; without it Helvetica is used.
func PDF(text, outPath, fontPath string) error {
	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	family := "Helvetica"
	if fontPath != "" {
		if _, err := os.Stat(fontPath); err != nil {
			return fmt.Errorf("load font: %w", err)
		}
		pdf.AddUTF8Font(pdfFontFamily, "", fontPath)
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("load font %s: %w", fontPath, err)
		}
		family = pdfFontFamily
	}
	pdf.SetFont(family, "", 10)
	pdf.AddPage()

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		s := strings.TrimSpace(line)
		switch {
		case s == "":
			pdf.Ln(4)
		case strings.Trim(s, "=-") == "":
			pdf.Line(pdf.GetX(), pdf.GetY()+2, 200, pdf.GetY()+2)
			pdf.Ln(4)
		case strings.HasPrefix(s, "【"):
			pdf.SetFont(family, "", 12)
			pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
			pdf.SetFont(family, "", 10)
		default:
			indent := float64(len(line)-len(strings.TrimLeft(line, " "))) * 1.5
			pdf.SetX(pdf.GetX() + indent)
			pdf.MultiCell(0, 5, s, "", "L", false)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan report: %w", err)
	}
	return pdf.OutputFileAndClose(outPath)
}
