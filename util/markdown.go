package util

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	hl "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		hl.NewHighlighting(hl.WithStyle("github")),
	),
)

// each source is rendered once per process
var mdCache sync.Map // map[string]string, keyed by cache key

// MarkdownComponent renders Markdown source to a ready-to-embed templ
// component, memoised under key. Fenced code blocks get inline syntax
// colours.
func MarkdownComponent(key string, src []byte) templ.Component {
	if v, ok := mdCache.Load(key); ok {
		return templ.Raw(v.(string))
	}

	var buf bytes.Buffer
	if err := markdown.Convert(src, &buf); err != nil {
		return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error { return err })
	}

	html := buf.String()
	mdCache.Store(key, html)
	return templ.Raw(html)
}
