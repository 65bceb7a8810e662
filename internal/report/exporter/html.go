package exporter

import (
	"context"
	"strings"

	"github.com/verustcode/materiality/internal/report"
)

// HTMLExporter exports a self-contained page: a collapsible table of contents
// beside the report body. The navigation uses details/summary and needs no script.
type HTMLExporter struct {
	stylesheet string
}

// NewHTMLExporter creates a new HTML exporter
func NewHTMLExporter(stylesheet string) *HTMLExporter {
	return &HTMLExporter{stylesheet: stylesheet}
}

// Name returns the human-readable name of this exporter
func (e *HTMLExporter) Name() string { return "HTML" }

// FileExtension returns the file extension for HTML files
func (e *HTMLExporter) FileExtension() string { return ".html" }

// ContentType returns the MIME type of HTML output
func (e *HTMLExporter) ContentType() string { return "text/html; charset=utf-8" }

// Export renders the report page.
func (e *HTMLExporter) Export(_ context.Context, res *report.Result) ([]byte, error) {
	var body strings.Builder
	body.WriteString(`<div class="report-layout">`)
	if len(res.TOC) > 0 {
		body.WriteString(renderNav(res.TOC))
	}
	body.WriteString(`<main class="report-content">`)
	body.WriteString(res.Body)
	body.WriteString(`</main></div>`)

	css := e.stylesheet + "\n" + navCSS
	return []byte(report.WrapDocument(res.Language, documentTitle(res), css, body.String())), nil
}

// renderNav builds one collapsible group per top-level section.
func renderNav(toc []report.TOCGroup) string {
	var sb strings.Builder
	sb.WriteString(`<nav class="report-toc"><h2>Contents</h2>`)
	for i, g := range toc {
		sb.WriteString(`<details class="toc-group"`)
		if i == 0 {
			sb.WriteString(` open`)
		}
		sb.WriteString(`><summary><a href="#`)
		sb.WriteString(escapeHTMLAttr(g.ID))
		sb.WriteString(`">`)
		sb.WriteString(escapeHTMLAttr(g.Title))
		sb.WriteString(`</a></summary>`)
		if len(g.Links) > 0 {
			sb.WriteString(`<ul>`)
			for _, l := range g.Links {
				sb.WriteString(`<li><a href="`)
				sb.WriteString(escapeHTMLAttr(l.Href))
				sb.WriteString(`">`)
				sb.WriteString(escapeHTMLAttr(l.Text))
				sb.WriteString(`</a></li>`)
			}
			sb.WriteString(`</ul>`)
		}
		sb.WriteString(`</details>`)
	}
	sb.WriteString(`</nav>`)
	return sb.String()
}

const navCSS = `
.report-layout { display: flex; gap: 24px; align-items: flex-start; }
.report-toc {
  position: sticky; top: 0; flex: 0 0 240px;
  max-height: 100vh; overflow-y: auto;
  font-size: 10pt; border-right: 1px solid #dee2e6; padding-right: 12px;
}
.report-toc h2 { font-size: 12pt; margin-top: 0; }
.report-toc summary { cursor: pointer; font-weight: 700; padding: 4px 0; }
.report-toc ul { list-style: none; margin: 0 0 8px; padding-left: 12px; }
.report-toc li { padding: 2px 0; }
.report-content { flex: 1; min-width: 0; }
@media print { .report-toc { display: none; } }
`
