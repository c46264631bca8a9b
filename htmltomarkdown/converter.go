// Package htmltomarkdown renders HTML bodies and fragments as Markdown for
// terminal previews.
package htmltomarkdown

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/fwojciec/contentsync"
)

// Ensure Converter implements contentsync.Converter at compile time.
var _ contentsync.Converter = (*Converter)(nil)

// Converter wraps html-to-markdown to convert HTML to Markdown.
type Converter struct {
	conv *converter.Converter
}

// NewConverter creates a new Converter.
func NewConverter() *Converter {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	return &Converter{conv: conv}
}

// Convert transforms HTML content into Markdown.
func (c *Converter) Convert(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", contentsync.Errorf(contentsync.EINVALID, "empty HTML input")
	}
	return c.conv.ConvertString(html)
}

// ConvertFragments converts each fragment that contains markup. Empty and
// plain-text fragments are returned unchanged, as are fragments that fail
// to convert, so positions always line up with the input.
func (c *Converter) ConvertFragments(fragments []string) []string {
	out := make([]string, len(fragments))
	for i, f := range fragments {
		out[i] = f
		if !strings.Contains(f, "<") {
			continue
		}
		if md, err := c.Convert(f); err == nil {
			out[i] = strings.TrimSpace(md)
		}
	}
	return out
}
