package exporter

import (
	"context"
	"strings"

	"github.com/verustcode/materiality/internal/report"
)

// MarkdownExporter writes the report tree as GitHub-flavored markdown with a
// linked table of contents.
type MarkdownExporter struct{}

// NewMarkdownExporter creates a new Markdown exporter
func NewMarkdownExporter() *MarkdownExporter {
	return &MarkdownExporter{}
}

// Name returns the human-readable name of this exporter
func (e *MarkdownExporter) Name() string { return "Markdown" }

// FileExtension returns the file extension for Markdown files
func (e *MarkdownExporter) FileExtension() string { return ".md" }

// ContentType returns the MIME type of Markdown output
func (e *MarkdownExporter) ContentType() string { return "text/markdown; charset=utf-8" }

// Export renders the report as markdown.
func (e *MarkdownExporter) Export(_ context.Context, res *report.Result) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString("# ")
	sb.WriteString(documentTitle(res))
	sb.WriteString("\n\n")

	if len(res.TOC) > 0 {
		sb.WriteString("## Table of Contents\n\n")
		for _, g := range res.TOC {
			sb.WriteString("- [")
			sb.WriteString(g.Title)
			sb.WriteString("](#")
			sb.WriteString(g.ID)
			sb.WriteString(")\n")
			for _, l := range g.Links {
				sb.WriteString("  - [")
				sb.WriteString(l.Text)
				sb.WriteString("](")
				sb.WriteString(l.Href)
				sb.WriteString(")\n")
			}
		}
		sb.WriteString("\n---\n\n")
	}

	w := &markdownWriter{sb: &sb}
	w.node(res.Tree)
	return []byte(strings.TrimRight(sb.String(), "\n") + "\n"), nil
}

type markdownWriter struct {
	sb *strings.Builder
}

func (w *markdownWriter) node(n report.Node) {
	switch v := n.(type) {
	case *report.Container:
		if level := report.HeadingLevel(v); level > 0 {
			w.heading(level, v)
			return
		}
		switch v.Tag {
		case "p":
			w.block(report.PlainText(v))
		case "br", "hr":
			w.block("---")
		default:
			for _, c := range v.Children {
				w.node(c)
			}
		}
	case *report.Text:
		w.block(v.Value)
	case *report.RichText:
		w.block(v.Source)
	case *report.Table:
		w.table(v)
	}
}

// heading keeps the generated id as an explicit anchor so TOC links resolve.
func (w *markdownWriter) heading(level int, c *report.Container) {
	if c.ID != "" {
		w.sb.WriteString(`<a id="`)
		w.sb.WriteString(escapeHTMLAttr(c.ID))
		w.sb.WriteString(`"></a>` + "\n\n")
	}
	// the document title takes level one
	if level < 6 {
		level++
	}
	w.block(strings.Repeat("#", level) + " " + report.PlainText(c))
}

func (w *markdownWriter) block(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	w.sb.WriteString(s)
	w.sb.WriteString("\n\n")
}

func (w *markdownWriter) table(t *report.Table) {
	if len(t.Rows) == 0 {
		return
	}
	w.sb.WriteString("|")
	for _, h := range t.Headers {
		w.sb.WriteString(" " + escapeMarkdownCell(h) + " |")
	}
	w.sb.WriteString("\n|")
	for range t.Headers {
		w.sb.WriteString(" --- |")
	}
	w.sb.WriteString("\n")
	for _, row := range t.Rows {
		w.sb.WriteString("|")
		for _, cell := range row {
			w.sb.WriteString(" " + escapeMarkdownCell(cell) + " |")
		}
		w.sb.WriteString("\n")
	}
	w.sb.WriteString("\n")
}
