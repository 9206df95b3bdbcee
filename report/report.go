// Package report summarizes a redaction run as Markdown and HTML.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/wudi/redactkit/export"
	"github.com/wudi/redactkit/model"
)

// Build renders a Markdown summary of doc. res may be nil when the
// document was not exported.
func Build(doc *model.Document, res *export.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Redaction report: %s\n\n", escape(doc.Title()))
	if doc.FilePath != "" {
		fmt.Fprintf(&b, "Source: `%s`\n\n", doc.FilePath)
	}
	fmt.Fprintf(&b, "- Pages: %d\n", doc.PageCount())
	fmt.Fprintf(&b, "- Redactions: %d\n", doc.TotalRectangles())
	if res != nil {
		fmt.Fprintf(&b, "- Output: `%s` (%d pages)\n", res.Path, res.Pages)
	}
	b.WriteString("\n## Pages\n\n")
	b.WriteString("| Page | Size | Redactions | Colors |\n")
	b.WriteString("|---:|---|---:|---|\n")
	for i, p := range doc.Pages() {
		size := "-"
		if img := p.Image(); img != nil {
			size = fmt.Sprintf("%dx%d", img.Rect.Dx(), img.Rect.Dy())
		}
		fmt.Fprintf(&b, "| %d | %s | %d | %s |\n", i+1, size, p.RectangleCount(), colors(p.Rectangles()))
	}
	if res != nil && len(res.Skipped) > 0 {
		b.WriteString("\n## Failed pages\n\n")
		for _, s := range res.Skipped {
			fmt.Fprintf(&b, "- Page %d: %s\n", s.Index+1, escape(s.Err.Error()))
		}
	}
	return b.String()
}

// HTML converts Markdown produced by Build into a standalone HTML page.
func HTML(markdown string) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Table),
		goldmark.WithRendererOptions(html.WithXHTML()),
	)
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	var out strings.Builder
	out.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Redaction report</title>\n</head>\n<body>\n")
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.String(), nil
}

func colors(rects []model.Rectangle) string {
	if len(rects) == 0 {
		return "-"
	}
	counts := map[string]int{}
	for _, r := range rects {
		counts[r.Color]++
	}
	names := make([]string, 0, len(counts))
	for c := range counts {
		names = append(names, c)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, c := range names {
		parts[i] = fmt.Sprintf("%s ×%d", escape(c), counts[c])
	}
	return strings.Join(parts, ", ")
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "|", `\|`, "*", `\*`, "_", `\_`, "`", "\\`", "<", "&lt;", ">", "&gt;",
)

func escape(s string) string { return markdownEscaper.Replace(s) }
