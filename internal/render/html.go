package render

import (
	"bytes"
	"fmt"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hyperifyio/papercheck/internal/orchestrator"
	"github.com/hyperifyio/papercheck/internal/report"
)

const stylesheet = `body{font-family:sans-serif;max-width:60em;margin:2em auto}` +
	`.pass{color:#1a7f37}.fail{color:#cf222e}li.detail{list-style:none}` +
	`table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:.2em .6em}`

func element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// el builds an element holding children.
func el(a atom.Atom, children ...*html.Node) *html.Node {
	n := element(a)
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func class(n *html.Node, c string) *html.Node {
	n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: c})
	return n
}

func okClass(ok bool) string {
	if ok {
		return "pass"
	}
	return "fail"
}

func messageList(msgs []string) *html.Node {
	ul := element(atom.Ul)
	for _, m := range msgs {
		li := el(atom.Li, text(m))
		if isDetailLine(m) {
			class(li, "detail")
		}
		ul.AppendChild(li)
	}
	return ul
}

func isDetailLine(m string) bool {
	for _, r := range m {
		if r == ' ' {
			continue
		}
		return r == '-'
	}
	return false
}

func checkItem(title string, res report.CheckResult) *html.Node {
	li := el(atom.Li, class(el(atom.Span, text(status(res.OK))), okClass(res.OK)), text(" "+title))
	if len(res.Messages) > 0 {
		li.AppendChild(messageList(res.Messages))
	}
	return li
}

// HTMLDocument builds the report as an HTML node tree.
func HTMLDocument(res orchestrator.Result, now time.Time) *html.Node {
	head := el(atom.Head,
		element(atom.Meta, "charset", "utf-8"),
		el(atom.Title, text("论文格式检测综合报告")),
		el(atom.Style, text(stylesheet)),
	)
	body := el(atom.Body,
		el(atom.H1, text("论文格式检测综合报告")),
		el(atom.P, text("生成时间: "+now.Format("2006-01-02 15:04:05"))),
		el(atom.H2, text("总体评估")),
	)

	s := res.Summary
	totals := element(atom.Table)
	for _, row := range [][2]string{
		{"总检测项数", fmt.Sprint(s.TotalChecks)},
		{"通过项数", fmt.Sprint(s.PassedChecks)},
		{"失败项数", fmt.Sprint(s.FailedChecks)},
		{"通过率", fmt.Sprintf("%.1f%%", s.PassRate)},
	} {
		totals.AppendChild(el(atom.Tr, el(atom.Th, text(row[0])), el(atom.Td, text(row[1]))))
	}
	body.AppendChild(totals)

	for _, rep := range res.Results {
		sec := element(atom.Section, "id", rep.Module)
		sec.AppendChild(el(atom.H2, text(rep.Module+" 检测报告")))
		if rep.Error {
			sec.AppendChild(class(el(atom.P, text("✗ 检测失败: "+rep.ErrorMessage)), "fail"))
			body.AppendChild(sec)
			continue
		}
		checks := element(atom.Ul)
		for _, nc := range rep.Checks {
			checks.AppendChild(checkItem(CheckTitle(nc.Name), nc.Result))
		}
		sec.AppendChild(checks)
		for i, it := range rep.Items {
			sec.AppendChild(el(atom.H3, text(itemTitle(rep, i))))
			ul := element(atom.Ul)
			for _, nc := range it.Checks {
				label, ok := itemCheckLabels[nc.Name]
				if !ok {
					label = CheckTitle(nc.Name)
				}
				ul.AppendChild(checkItem(label, nc.Result))
			}
			sec.AppendChild(ul)
		}
		if len(rep.Summary) > 0 {
			sec.AppendChild(el(atom.H3, text("总结")))
			sec.AppendChild(messageList(rep.Summary))
		}
		body.AppendChild(sec)
	}

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(el(atom.Html, head, body))
	return doc
}

// HTML renders the report as a standalone HTML page.
func HTML(res orchestrator.Result, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, HTMLDocument(res, now)); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}
