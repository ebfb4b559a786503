// Package ui holds the embedded web assets and the page entry points.
package ui

import (
	"embed"

	"chabench/ui/components"
	"chabench/util"

	"github.com/a-h/templ"
)

//go:embed static
var StaticFS embed.FS

//go:embed docs/guide.md
var guideMarkdown []byte

//go:embed static/favicon.svg
var FaviconSVG []byte

// Index is the upload page; flashMsg, when non-empty, replaces the inline
// message area (e.g. after a rejected upload).
func Index(flashMsg string) templ.Component {
	guide := util.MarkdownComponent("guide", guideMarkdown)
	return components.IndexPage(flashMsg, guide)
}
