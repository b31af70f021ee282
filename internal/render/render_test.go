package render

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/papercheck/internal/orchestrator"
	"github.com/hyperifyio/papercheck/internal/report"
)

var stamp = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func sampleResult() orchestrator.Result {
	results := report.Results{
		{
			Module: report.Title,
			Checks: report.Checks{
				{Name: "title", Result: report.Pass()},
				{Name: "format", Result: report.Fail("标题格式问题：", "  - 字号应为14pt")},
			},
			Summary: []string{"标题检测完成"},
		},
		report.Errored(report.Abstract, os.ErrNotExist),
		{
			Module: report.Figure,
			Kind:   report.Hierarchical,
			Items: []report.Item{{
				Name:  "figure1",
				Label: "图1",
				Checks: report.Checks{
					{Name: "format_check", Result: report.Pass()},
					{Name: "picture_check", Result: report.Fail("图片未居中")},
				},
			}},
			Details: report.Details{Figures: []report.FigureInfo{{Index: 1, Caption: "Fig. 1 Sample image"}}},
		},
	}
	return orchestrator.Result{Results: results, Summary: report.Tally(results)}
}

func TestCheckTitle(t *testing.T) {
	cases := map[string]string{
		"content_format":     "Content Format",
		"title":              "Title",
		"footnote_structure": "Footnote Structure",
	}
	for in, want := range cases {
		if got := CheckTitle(in); got != want {
			t.Fatalf("CheckTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestText(t *testing.T) {
	out := Text(sampleResult(), stamp)
	for _, want := range []string{
		heavyRule + "\n论文格式检测综合报告\n" + heavyRule,
		"生成时间: 2024-05-06 07:08:09",
		"【总体评估】",
		"总检测项数: 4",
		"通过率: 50.0%",
		"【Title 检测报告】",
		"  [Title] ✓ 通过",
		"  [Format] ✗ 失败\n    • 标题格式问题：\n      - 字号应为14pt",
		"  【总结】\n    标题检测完成",
		"【Abstract 检测报告】\n" + lightRule + "\n✗ 检测失败: " + os.ErrNotExist.Error(),
		"  [图1: Fig. 1 Sample image]\n    标题格式: ✓\n    图片对齐: ✗\n      • 图片未居中",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report lacks %q:\n%s", want, out)
		}
	}
	if !strings.HasSuffix(out, heavyRule+"\n报告结束\n"+heavyRule) {
		t.Fatalf("report does not end with the closing banner:\n%s", out)
	}
}

func TestItemTitle_TruncatesCaption(t *testing.T) {
	caption := strings.Repeat("长", 45)
	rep := report.Report{
		Module:  report.Table,
		Items:   []report.Item{{Name: "table1", Label: "表1"}},
		Details: report.Details{Tables: []report.TableInfo{{Index: 1, Caption: caption}}},
	}
	want := "表1: " + strings.Repeat("长", 40) + "..."
	if got := itemTitle(rep, 0); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	rep.Details.Tables = nil
	if got := itemTitle(rep, 0); got != "表1" {
		t.Fatalf("without caption got %q", got)
	}
}

func TestSaveText_CreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "report.txt")
	if err := SaveText("hello", path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "hello" {
		t.Fatalf("got %q, %v", data, err)
	}
}

func TestHTML(t *testing.T) {
	out, err := HTML(sampleResult(), stamp)
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	for _, want := range []string{
		"<!DOCTYPE html>",
		`<meta charset="utf-8"/>`,
		`<section id="Title">`,
		"<h2>Title 检测报告</h2>",
		`<span class="pass">✓ 通过</span> Title`,
		`<li class="detail">  - 字号应为14pt</li>`,
		`<p class="fail">✗ 检测失败: `,
		"<h3>图1: Fig. 1 Sample image</h3>",
		"<td>50.0%</td>",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("html lacks %q:\n%s", want, s)
		}
	}
}

func TestPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "report.pdf")
	text := heavyRule + "\nSummary\n" + heavyRule + "\n\n  [Title] ok\n    - detail"
	if err := PDF(text, path, ""); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("not a PDF: %q", data[:min(len(data), 16)])
	}
	if err := PDF(text, filepath.Join(dir, "x.pdf"), filepath.Join(dir, "missing.ttf")); err == nil {
		t.Fatal("missing font should fail")
	}
}

func TestContentDetails(t *testing.T) {
	if got := ContentDetails("paper.docx", report.Report{Module: report.Content}); got != "" {
		t.Fatalf("no issues should render nothing, got %q", got)
	}
	rep := report.Report{Module: report.Content, Details: report.Details{
		TotalParagraphs: 12,
		ParagraphIssues: []report.ParagraphIssue{
			{Number: 3, ParagraphIndex: 9, Preview: "The samples were...", Issues: []string{"首行缩进应为2字符", "行距应为1.5倍"}},
		},
	}}
	out := ContentDetails("paper.docx", rep)
	for _, want := range []string{
		"文档: paper.docx\n总段落数: 12\n有问题段落数: 1\n",
		"段落 3\n内容: The samples were...\n问题:\n  - 首行缩进应为2字符\n  - 行距应为1.5倍\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("details lack %q:\n%s", want, out)
		}
	}
}
