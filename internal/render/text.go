// Package render turns a detection run into human-readable reports.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hyperifyio/papercheck/internal/orchestrator"
	"github.com/hyperifyio/papercheck/internal/report"
)

const (
	heavyRule = "================================================================================"
	lightRule = "--------------------------------------------------------------------------------"
)

// itemCheckLabels names the per-figure and per-table checks.
var itemCheckLabels = map[string]string{
	"format_check":    "标题格式",
	"picture_check":   "图片对齐",
	"content_check":   "图片内容",
	"caption_format":  "标题格式",
	"table_style":     "表格样式",
	"table_alignment": "内容对齐",
}

// CheckTitle turns a check name such as "content_format" into
// "Content Format".
func CheckTitle(name string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(name, "_", " "))
}

func status(ok bool) string {
	if ok {
		return "✓ 通过"
	}
	return "✗ 失败"
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

// itemTitle returns the heading of item i of rep, with its caption when
// known.
func itemTitle(rep report.Report, i int) string {
	it := rep.Items[i]
	caption := ""
	switch rep.Module {
	case report.Figure:
		if i < len(rep.Details.Figures) {
			caption = rep.Details.Figures[i].Caption
		}
	case report.Table:
		if i < len(rep.Details.Tables) {
			caption = rep.Details.Tables[i].Caption
		}
	}
	label := it.Label
	if label == "" {
		label = it.Name
	}
	if caption == "" {
		return label
	}
	if r := []rune(caption); len(r) > 40 {
		caption = string(r[:40]) + "..."
	}
	return label + ": " + caption
}

// Text renders the comprehensive plain-text report.
func Text(res orchestrator.Result, now time.Time) string {
	var lines []string
	add := func(format string, args ...any) { lines = append(lines, fmt.Sprintf(format, args...)) }

	lines = append(lines, heavyRule, "论文格式检测综合报告", heavyRule)
	add("生成时间: %s", now.Format("2006-01-02 15:04:05"))
	lines = append(lines, "")

	s := res.Summary
	lines = append(lines, "【总体评估】")
	add("总检测项数: %d", s.TotalChecks)
	add("通过项数: %d", s.PassedChecks)
	add("失败项数: %d", s.FailedChecks)
	add("通过率: %.1f%%", s.PassRate)
	lines = append(lines, "")

	for _, rep := range res.Results {
		lines = append(lines, lightRule)
		add("【%s 检测报告】", rep.Module)
		lines = append(lines, lightRule)
		if rep.Error {
			add("✗ 检测失败: %s", rep.ErrorMessage)
			lines = append(lines, "")
			continue
		}
		for _, nc := range rep.Checks {
			lines = append(lines, "")
			add("  [%s] %s", CheckTitle(nc.Name), status(nc.Result.OK))
			for _, m := range nc.Result.Messages {
				if t := strings.TrimSpace(m); strings.HasPrefix(t, "-") {
					lines = append(lines, "      "+t)
				} else {
					lines = append(lines, "    • "+m)
				}
			}
		}
		for i, it := range rep.Items {
			lines = append(lines, "")
			add("  [%s]", itemTitle(rep, i))
			for _, nc := range it.Checks {
				label, ok := itemCheckLabels[nc.Name]
				if !ok {
					label = CheckTitle(nc.Name)
				}
				add("    %s: %s", label, mark(nc.Result.OK))
				if nc.Result.OK {
					continue
				}
				for _, m := range nc.Result.Messages {
					lines = append(lines, "      • "+m)
				}
			}
		}
		if len(rep.Summary) > 0 {
			lines = append(lines, "", "  【总结】")
			for _, item := range rep.Summary {
				lines = append(lines, "    "+item)
			}
		}
		lines = append(lines, "")
	}

	lines = append(lines, heavyRule, "报告结束", heavyRule)
	return strings.Join(lines, "\n")
}

// SaveText writes text to path, creating parent directories.
func SaveText(text, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
