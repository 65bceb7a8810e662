package report

import (
	"bytes"
	"encoding/base64"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"

	"github.com/verustcode/materiality/pkg/errors"
	"github.com/verustcode/materiality/pkg/logger"
)

// Serializer renders a document tree to markup. It is built per request: the
// memo cache is keyed by node identity and must not outlive one report.
type Serializer struct {
	md       goldmark.Markdown
	assetDir string
	cache    map[Node]string
}

// NewSerializer creates a serializer resolving local images against assetDir.
func NewSerializer(assetDir string) *Serializer {
	return &Serializer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				gmhtml.WithHardWraps(),
				gmhtml.WithXHTML(),
				gmhtml.WithUnsafe(),
			),
		),
		assetDir: assetDir,
		cache:    make(map[Node]string),
	}
}

// Render serializes n.
func (s *Serializer) Render(n Node) (string, error) {
	var b strings.Builder
	if err := s.render(&b, n); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Serializer) render(b *strings.Builder, n Node) error {
	if n == nil || isNilNode(n) {
		return nil
	}
	if out, ok := s.cache[n]; ok {
		b.WriteString(out)
		return nil
	}

	var sub strings.Builder
	switch v := n.(type) {
	case *Text:
		sub.WriteString(escapeText(v.Value))
	case *RichText:
		out, err := s.markdown(v.Source)
		if err != nil {
			return err
		}
		sub.WriteString(out)
	case *Table:
		renderTable(&sub, v)
	case *Container:
		tag := v.Tag
		if tag == "" {
			tag = "div"
		}
		sub.WriteString("<" + tag + attributes(v))
		if voidTags[tag] {
			sub.WriteString(" />")
			break
		}
		sub.WriteString(">")
		for _, c := range v.Children {
			if err := s.render(&sub, c); err != nil {
				return err
			}
		}
		sub.WriteString("</" + tag + ">")
	default:
		return errors.New(errors.ErrCodeStructure, "unknown node type")
	}

	s.cache[n] = sub.String()
	b.WriteString(sub.String())
	return nil
}

func attributes(c *Container) string {
	var b strings.Builder
	if c.ID != "" {
		b.WriteString(` id="` + html.EscapeString(c.ID) + `"`)
	}
	if c.Class != "" {
		b.WriteString(` class="` + html.EscapeString(c.Class) + `"`)
	}
	if len(c.Style) > 0 {
		keys := make([]string, 0, len(c.Style))
		for k := range c.Style {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		decls := make([]string, len(keys))
		for i, k := range keys {
			decls[i] = strings.ReplaceAll(k, "_", "-") + ":" + c.Style[k]
		}
		b.WriteString(` style="` + html.EscapeString(strings.Join(decls, "; ")) + `"`)
	}
	return b.String()
}

func escapeText(s string) string {
	return html.EscapeString(strings.ReplaceAll(s, "\n", " "))
}

func escapeCell(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br />")
}

func renderTable(b *strings.Builder, t *Table) {
	b.WriteString(`<table class="datatable"><thead><tr>`)
	for _, h := range t.Headers {
		b.WriteString("<th>" + escapeCell(h) + "</th>")
	}
	b.WriteString("</tr></thead><tbody>")
	for _, row := range t.Rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			b.WriteString("<td>" + escapeCell(cell) + "</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
}

// markdown converts a fragment, inlines local images and opens links in a new tab.
func (s *Serializer) markdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(src), &buf); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to render markdown", err)
	}

	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to parse rendered markdown", err)
	}
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok {
			return
		}
		if uri, ok := s.inlineImage(src); ok {
			img.SetAttr("src", uri)
		}
	})
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		a.SetAttr("target", "_blank")
		a.SetAttr("rel", "noopener noreferrer")
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to serialize rendered markdown", err)
	}
	return strings.TrimSpace(out), nil
}

// inlineImage turns a local image reference into a data URI. Remote and data
// sources, and files that cannot be read, are left unchanged.
func (s *Serializer) inlineImage(src string) (string, bool) {
	lower := strings.ToLower(src)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "data:") {
		return "", false
	}
	path := filepath.Join(s.assetDir, filepath.FromSlash(strings.TrimPrefix(src, "/")))
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Debug("image not inlined", zap.String("src", src), zap.Error(err))
		return "", false
	}
	mime := mimetype.Detect(data)
	return "data:" + mime.String() + ";base64," + base64.StdEncoding.EncodeToString(data), true
}

// WrapDocument wraps a serialized body in a minimal standalone document with an
// inline stylesheet.
func WrapDocument(lang, title, css, body string) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html`)
	if lang != "" {
		b.WriteString(` lang="` + html.EscapeString(lang) + `"`)
	}
	b.WriteString(`><head><meta charset="utf-8" /><title>`)
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title><style>")
	b.WriteString(css)
	b.WriteString("</style></head><body>")
	b.WriteString(body)
	b.WriteString("</body></html>")
	return b.String()
}
