package webui

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// docsMarkdown renders the embedded guides. Raw HTML in the source is
// dropped (no html.WithUnsafe), so the output can be trusted in templates.
var docsMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Typographer, emoji.Emoji),
	goldmark.WithRendererOptions(html.WithXHTML()),
)

func renderMarkdownHTML(src string) template.HTML {
	var out bytes.Buffer
	if err := docsMarkdown.Convert([]byte(strings.TrimSpace(src)), &out); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>")
	}
	return template.HTML(out.String())
}
