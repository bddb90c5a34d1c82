// Package markup renders user-authored markdown and sanitizes the result
// before it ever reaches a client.
package markup

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	md = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)
	bodyPolicy = bluemonday.UGCPolicy()
	textPolicy = bluemonday.StrictPolicy()
)

// RenderBody converts an article body from markdown to sanitized HTML.
func RenderBody(source string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return bodyPolicy.Sanitize(source) // Fallback
	}
	return bodyPolicy.Sanitize(buf.String())
}

// PlainText strips all markup from a comment or similar short field.
func PlainText(source string) string {
	return strings.TrimSpace(textPolicy.Sanitize(source))
}
