// Package markdown renders summary bodies to HTML for permalink views.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

var engine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
	),
)

// RenderHTML converts summary markdown to HTML. On render failure the raw
// markdown is returned as-is.
func RenderHTML(md string) string {
	var buf bytes.Buffer
	if err := engine.Convert([]byte(md), &buf); err != nil {
		return md
	}
	return buf.String()
}
