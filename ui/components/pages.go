package components

import (
	"context"
	"fmt"
	"html"
	"io"

	"chabench/internal/messages"
	"chabench/internal/session"

	"github.com/a-h/templ"
)

const datastarCDN = "https://cdn.jsdelivr.net/gh/starfederation/datastar@v0.21.4/bundles/datastar.js"

func pageShell(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<!doctype html><html lang="en"><head><meta charset="utf-8">`+
				`<meta name="viewport" content="width=device-width, initial-scale=1">`+
				`<title>%s</title>`+
				`<link rel="icon" href="/favicon.svg">`+
				`<link rel="stylesheet" href="/static/style.css">`+
				`<script type="module" src="%s"></script>`+
				`</head><body>`, html.EscapeString(title), datastarCDN)
		if err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err = io.WriteString(w, `</body></html>`)
		return err
	})
}

// IndexPage is the upload view: pre-flight form, inline message area, and the
// rendered usage guide.
func IndexPage(flashMsg string, guide templ.Component) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<main class="index"><h1>chabench</h1>`); err != nil {
			return err
		}
		if err := Flash(flashMsg, flashMsg != "").Render(ctx, w); err != nil {
			return err
		}
		if err := UploadForm().Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<section class="guide">`); err != nil {
			return err
		}
		if err := guide.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</section></main>`)
		return err
	})
	return pageShell("chabench", body)
}

// UploadForm stages exactly one .cha transcript. The accept filter matches
// the server-side pre-flight; files with any other extension are ignored, and
// picking a new file replaces the staged one.
func UploadForm() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w,
			`<form class="upload-form" method="post" action="/upload" enctype="multipart/form-data">`+
				`<input type="file" name="file" accept=".cha" multiple>`+
				`<button type="submit">upload transcript</button></form>`)
		return err
	})
}

// WorkspacePage renders the full workspace view from a session snapshot; the
// /ui stream patches its fragments afterwards.
func WorkspacePage(v session.View) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<main id="workspace-main" class="workspace" data-on-load="@get('/ui')">`+
			`<header><h1>workspace %s</h1>`, html.EscapeString(v.WorkspaceID)); err != nil {
			return err
		}
		if err := ExecStatus(v.Status.String(), v.Binary).Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `</header>`); err != nil {
			return err
		}

		parts := []templ.Component{
			Flash(v.CommandErr, v.CommandErr != ""),
			EntryTable(v.WorkspaceID, messages.EntriesFromView(v.Entries), v.EntriesErr),
			CommandForm(v.WorkspaceID, v.Catalog, v.SelectedBinary(), v.CatalogErr),
			outputFromView(v),
			DeleteForm(v.WorkspaceID),
		}
		for _, p := range parts {
			if err := p.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</main>`)
		return err
	})
	return pageShell("workspace "+v.WorkspaceID, body)
}

func outputFromView(v session.View) templ.Component {
	if v.Result == nil {
		return OutputPanes("", "", 0, false)
	}
	return OutputPanes(v.Result.Stdout, v.Result.Stderr, v.Result.ExitCode, true)
}
