package web

import (
	"bytes"
	"html/template"

	"ruleboard/internal/format"
	"ruleboard/internal/model"

	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Raw HTML stays disabled (no html.WithUnsafe): template labels are user text.
var previewRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM, emoji.Emoji),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// previewHTML renders the submission document as the readable preview page body.
func previewHTML(doc model.Document) template.HTML {
	src := format.Markdown(doc)
	var b bytes.Buffer
	if err := previewRenderer.Convert([]byte(src), &b); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>")
	}
	return template.HTML(b.String())
}
