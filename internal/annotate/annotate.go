// Package annotate writes review comments into a copy of a submitted
// document. The source file is only ever opened for reading.
package annotate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/papercheck/internal/docmodel"
	"github.com/hyperifyio/papercheck/internal/issues"
	"github.com/hyperifyio/papercheck/internal/locate"
	"github.com/hyperifyio/papercheck/internal/report"
)

// ErrWrite wraps every failure to create or save the annotated copy.
var ErrWrite = errors.New("annotated copy could not be written")

const (
	DefaultAuthor   = "论文检测系统"
	DefaultInitials = "PDS"
)

// Annotator attaches comments authored by Author.
type Annotator struct {
	Author   string
	Initials string
	// Clock stamps the copy name and comment dates. Nil means time.Now.
	Clock func() time.Time
}

// Outcome describes one annotation run.
type Outcome struct {
	Path     string
	Comments int
	Issues   int
	// Dropped are the issues whose paragraph could not be found.
	Dropped []issues.Issue
}

func (a *Annotator) now() time.Time {
	if a == nil || a.Clock == nil {
		return time.Now()
	}
	return a.Clock()
}

// Comment is the text placed on one paragraph.
type Comment struct {
	Paragraph int
	Text      string
}

// Text renders an issue as a comment body.
func Text(is issues.Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s-%s]", is.Module, is.Section)
	for _, m := range is.Messages {
		b.WriteString("\n• ")
		b.WriteString(m)
	}
	return b.String()
}

// Plan locates every issue in doc and merges the issues that land on the
// same paragraph into one comment. Comments are ordered by first issue.
func Plan(doc *docmodel.Document, list []issues.Issue) (comments []Comment, dropped []issues.Issue) {
	engine := locate.Engine{Doc: doc}
	pos := map[int]int{}
	for _, is := range list {
		idx, err := engine.Locate(is)
		if err != nil {
			log.Warn().Err(err).Str("module", is.Module).Str("section", is.Section).
				Str("method", is.Locate.Method.String()).Msg("localization miss")
			dropped = append(dropped, is)
			continue
		}
		if i, ok := pos[idx]; ok {
			comments[i].Text += "\n\n" + Text(is)
			continue
		}
		pos[idx] = len(comments)
		comments = append(comments, Comment{Paragraph: idx, Text: Text(is)})
	}
	return comments, dropped
}

// GenerateAnnotatedDocument copies src into outDir and comments every
// located issue of results on the copy. A document without issues yields
// an unmodified copy. On failure the returned path is empty and the error
// wraps ErrWrite.
func (a *Annotator) GenerateAnnotatedDocument(ctx context.Context, src string, results report.Results, outDir string) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	now := a.now()
	dst, err := copyDocument(src, outDir, now)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Path: dst}

	list := issues.Extract(results)
	out.Issues = len(list)
	if len(list) == 0 {
		log.Info().Str("path", dst).Int("comments", 0).Msg("annotated copy written")
		return out, nil
	}

	doc, err := docmodel.Open(dst)
	if err != nil {
		_ = os.Remove(dst)
		return Outcome{}, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	comments, dropped := Plan(doc, list)
	out.Dropped = dropped
	if len(comments) > 0 {
		if err := ctx.Err(); err != nil {
			_ = os.Remove(dst)
			return Outcome{}, err
		}
		author, initials := DefaultAuthor, DefaultInitials
		if a != nil && a.Author != "" {
			author = a.Author
		}
		if a != nil && a.Initials != "" {
			initials = a.Initials
		}
		if err := rewrite(dst, comments, commentMeta{Author: author, Initials: initials, Date: now}); err != nil {
			_ = os.Remove(dst)
			return Outcome{}, fmt.Errorf("%w: %v", ErrWrite, err)
		}
	}
	out.Comments = len(comments)
	log.Info().Str("path", dst).Int("comments", out.Comments).Int("dropped", len(dropped)).Msg("annotated copy written")
	return out, nil
}

// CopyName returns the file name of the annotated copy of src.
func CopyName(src string, now time.Time, attempt int) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	name := now.Format("20060102_150405") + "_" + base + "_annotated"
	if attempt > 0 {
		name += fmt.Sprintf("_%d", attempt)
	}
	return name + ".docx"
}

const maxCopyAttempts = 1000

// copyDocument creates a fresh copy of src in outDir. The name is reserved
// with O_EXCL so that concurrent runs never share a copy.
func copyDocument(src, outDir string, now time.Time) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("%w: open source: %v", ErrWrite, err)
	}
	defer in.Close()
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create output dir: %v", ErrWrite, err)
	}
	var (
		out *os.File
		dst string
	)
	for attempt := 0; attempt < maxCopyAttempts; attempt++ {
		dst = filepath.Join(outDir, CopyName(src, now, attempt))
		out, err = os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil || !errors.Is(err, os.ErrExist) {
			break
		}
	}
	if err != nil {
		return "", fmt.Errorf("%w: create copy: %v", ErrWrite, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("%w: copy: %v", ErrWrite, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("%w: close copy: %v", ErrWrite, err)
	}
	return dst, nil
}
