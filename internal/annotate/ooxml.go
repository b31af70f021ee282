package annotate

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hyperifyio/papercheck/internal/docmodel"
)

const (
	partComments = "word/comments.xml"

	nsMain          = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	relTypeComments = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/comments"
	ctComments      = "application/vnd.openxmlformats-officedocument.wordprocessingml.comments+xml"
)

type commentMeta struct {
	Author   string
	Initials string
	Date     time.Time
}

// span locates one direct child paragraph of w:body in document.xml.
type span struct {
	Start     int64 // offset of "<w:p"
	Open      int64 // offset just after the start tag
	AfterPPr  int64 // offset after </w:pPr>, or Open
	Close     int64 // offset of "</w:p>", or -1 when self-closing
	Prefix    string
	SelfClose bool
}

// scanParagraphs returns the body paragraphs of a document.xml in order.
// Indices match docmodel.Document.Paragraphs.
func scanParagraphs(data []byte) ([]span, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	var (
		out   []span
		depth int
		body  = -1
		cur   *span
	)
	for {
		before := d.InputOffset()
		tok, err := d.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch {
			case body < 0 && t.Name.Local == "body":
				body = depth
			case body > 0 && depth == body+1 && t.Name.Local == "p":
				end := d.InputOffset()
				out = append(out, span{Start: before, Open: end, AfterPPr: end, Close: -1, Prefix: t.Name.Space})
				cur = &out[len(out)-1]
				cur.SelfClose = bytes.HasSuffix(bytes.TrimSpace(data[before:end]), []byte("/>"))
			}
		case xml.EndElement:
			switch {
			case cur != nil && depth == body+1 && t.Name.Local == "p":
				if !cur.SelfClose {
					cur.Close = before
				}
				cur = nil
			case cur != nil && depth == body+2 && t.Name.Local == "pPr":
				cur.AfterPPr = d.InputOffset()
			case depth == body:
				body = -2
			}
			depth--
		}
	}
	if body == -1 {
		return nil, errors.New("document has no body")
	}
	return out, nil
}

func qualify(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}

// spliceComments inserts range markers and a reference run for every
// comment. ids[i] is the comment id of comments[i].
func spliceComments(data []byte, comments []Comment, ids []int) ([]byte, error) {
	spans, err := scanParagraphs(data)
	if err != nil {
		return nil, err
	}
	type insert struct {
		at   int64
		text string
		// replace covers the "/>" of a self-closing paragraph
		replace int64
	}
	var edits []insert
	for i, c := range comments {
		if c.Paragraph < 0 || c.Paragraph >= len(spans) {
			return nil, fmt.Errorf("paragraph %d outside document (%d paragraphs)", c.Paragraph, len(spans))
		}
		s := spans[c.Paragraph]
		q := func(local string) string { return qualify(s.Prefix, local) }
		id := strconv.Itoa(ids[i])
		start := fmt.Sprintf(`<%s %s="%s"/>`, q("commentRangeStart"), q("id"), id)
		end := fmt.Sprintf(`<%s %s="%s"/><%s><%s %s="%s"/></%s>`,
			q("commentRangeEnd"), q("id"), id, q("r"), q("commentReference"), q("id"), id, q("r"))
		if s.SelfClose {
			tag := bytes.TrimSpace(data[s.Start:s.Open])
			open := string(bytes.TrimSuffix(bytes.TrimSuffix(tag, []byte("/>")), []byte(" "))) + ">"
			edits = append(edits, insert{at: s.Start, replace: s.Open, text: open + start + end + "</" + q("p") + ">"})
			continue
		}
		edits = append(edits,
			insert{at: s.AfterPPr, replace: s.AfterPPr, text: start},
			insert{at: s.Close, replace: s.Close, text: end})
	}
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].at < edits[j].at })

	var b bytes.Buffer
	b.Grow(len(data) + len(edits)*96)
	var last int64
	for _, e := range edits {
		b.Write(data[last:e.at])
		b.WriteString(e.text)
		last = e.replace
	}
	b.Write(data[last:])
	return b.Bytes(), nil
}

var commentIDRe = regexp.MustCompile(`<(?:\w+:)?comment\b[^>]*?\b(?:\w+:)?id="(-?\d+)"`)

// nextCommentID returns one past the highest id in an existing comments
// part, or 0.
func nextCommentID(existing []byte) int {
	next := 0
	for _, m := range commentIDRe.FindAllSubmatch(existing, -1) {
		if n, err := strconv.Atoi(string(m[1])); err == nil && n >= next {
			next = n + 1
		}
	}
	return next
}

func escapeText(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func commentXML(id int, text string, meta commentMeta) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<w:comment w:id="%d" w:author="%s" w:date="%s" w:initials="%s">`,
		id, escapeText(meta.Author), meta.Date.UTC().Format(time.RFC3339), escapeText(meta.Initials))
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			b.WriteString(`<w:p/>`)
			continue
		}
		fmt.Fprintf(&b, `<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, escapeText(line))
	}
	b.WriteString(`</w:comment>`)
	return b.String()
}

// buildComments returns the new comments part. Existing comments are kept
// and new ones are appended before the closing tag.
func buildComments(existing []byte, comments []Comment, ids []int, meta commentMeta) ([]byte, error) {
	var add strings.Builder
	for i, c := range comments {
		add.WriteString(commentXML(ids[i], c.Text, meta))
	}
	if len(existing) == 0 {
		return []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
			`<w:comments xmlns:w="` + nsMain + `">` + add.String() + `</w:comments>`), nil
	}
	s := string(existing)
	if i := strings.LastIndex(s, "</w:comments>"); i >= 0 {
		return []byte(s[:i] + add.String() + s[i:]), nil
	}
	if i := strings.LastIndex(s, "<w:comments"); i >= 0 {
		if j := strings.Index(s[i:], "/>"); j >= 0 && !strings.Contains(s[i:i+j], ">") {
			return []byte(s[:i+j] + ">" + add.String() + "</w:comments>" + s[i+j+2:]), nil
		}
	}
	return nil, errors.New("unrecognised comments part")
}

func ensureContentType(ct []byte) []byte {
	if bytes.Contains(ct, []byte(`"/`+partComments+`"`)) {
		return ct
	}
	override := `<Override PartName="/` + partComments + `" ContentType="` + ctComments + `"/>`
	s := string(ct)
	if i := strings.LastIndex(s, "</Types>"); i >= 0 {
		return []byte(s[:i] + override + s[i:])
	}
	return ct
}

var relIDRe = regexp.MustCompile(`\bId="([^"]+)"`)

func ensureRelationship(rels []byte) []byte {
	if bytes.Contains(rels, []byte(relTypeComments+`"`)) {
		return rels
	}
	if len(rels) == 0 {
		rels = []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`)
	}
	used := map[string]bool{}
	for _, m := range relIDRe.FindAllSubmatch(rels, -1) {
		used[string(m[1])] = true
	}
	id := "rIdComments"
	for n := 1; used[id]; n++ {
		id = fmt.Sprintf("rIdComments%d", n)
	}
	rel := `<Relationship Id="` + id + `" Type="` + relTypeComments + `" Target="comments.xml"/>`
	s := string(rels)
	if i := strings.LastIndex(s, "</Relationships>"); i >= 0 {
		return []byte(s[:i] + rel + s[i:])
	}
	return rels
}

func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// rewrite adds comments to the package at path, replacing it atomically.
func rewrite(path string, comments []Comment, meta commentMeta) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	closed := false
	defer func() {
		if !closed {
			zr.Close()
		}
	}()

	parts := map[string][]byte{}
	for _, f := range zr.File {
		switch f.Name {
		case docmodel.PartDocument, partComments, docmodel.PartContentTypes, docmodel.PartDocumentRels:
			data, err := readPart(f)
			if err != nil {
				return fmt.Errorf("read %s: %w", f.Name, err)
			}
			parts[f.Name] = data
		}
	}
	if _, ok := parts[docmodel.PartDocument]; !ok {
		return fmt.Errorf("missing %s", docmodel.PartDocument)
	}

	first := nextCommentID(parts[partComments])
	ids := make([]int, len(comments))
	for i := range ids {
		ids[i] = first + i
	}
	doc, err := spliceComments(parts[docmodel.PartDocument], comments, ids)
	if err != nil {
		return fmt.Errorf("splice %s: %w", docmodel.PartDocument, err)
	}
	cx, err := buildComments(parts[partComments], comments, ids, meta)
	if err != nil {
		return err
	}
	updated := map[string][]byte{
		docmodel.PartDocument:     doc,
		partComments:              cx,
		docmodel.PartContentTypes: ensureContentType(parts[docmodel.PartContentTypes]),
		docmodel.PartDocumentRels: ensureRelationship(parts[docmodel.PartDocumentRels]),
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".annotate-*.docx")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	zw := zip.NewWriter(tmp)
	written := map[string]bool{}
	for _, f := range zr.File {
		data, ok := updated[f.Name]
		if !ok {
			if err := zw.Copy(f); err != nil {
				tmp.Close()
				return fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}
		if err := writePart(zw, f.Name, data, f.Modified); err != nil {
			tmp.Close()
			return err
		}
		written[f.Name] = true
	}
	for _, name := range []string{docmodel.PartContentTypes, docmodel.PartDocumentRels, partComments} {
		if written[name] || len(updated[name]) == 0 {
			continue
		}
		if err := writePart(zw, name, updated[name], meta.Date); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	closed = true
	if err := zr.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func writePart(zw *zip.Writer, name string, data []byte, modified time.Time) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
