package components

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"chabench/internal/messages"

	"github.com/a-h/templ"
)

// Flash renders the single inline message area. Each render replaces the
// previous message wholesale.
func Flash(message string, isError bool) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		class := "flash"
		if isError {
			class = "flash flash-error"
		}
		if message == "" {
			_, err := fmt.Fprint(w, `<div id="flash"></div>`)
			return err
		}
		_, err := fmt.Fprintf(w, `<div id="flash" class="%s">%s</div>`, class, html.EscapeString(message))
		return err
	})
}

// ExecStatus renders the invocation status line.
func ExecStatus(status, binary string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		label := status
		if binary != "" && status != "idle" {
			label = fmt.Sprintf("%s — %s", binary, status)
		}
		_, err := fmt.Fprintf(w, `<span id="exec-status" class="exec-status exec-%s">%s</span>`,
			html.EscapeString(status), html.EscapeString(label))
		return err
	})
}

// EntryTable renders the workspace file listing. The snapshot is replaced as
// a whole on every refresh, never patched row by row.
func EntryTable(workspaceID string, entries []messages.EntryInfo, errMsg string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div id="entry-table">`)
		if errMsg != "" {
			fmt.Fprintf(&b, `<p class="entry-error">listing failed: %s</p>`, html.EscapeString(errMsg))
		}
		if len(entries) == 0 && errMsg == "" {
			b.WriteString(`<p class="entry-empty">workspace is empty</p>`)
		} else if len(entries) > 0 {
			b.WriteString(`<table class="entries"><thead><tr><th>name</th><th>kind</th><th>size</th><th></th></tr></thead><tbody>`)
			for _, e := range entries {
				size := "—"
				if e.Size != nil {
					size = fmt.Sprintf("%d", *e.Size)
				}
				link := ""
				if e.Kind == "file" {
					link = fmt.Sprintf(`<a href="/workspace/%s/download/%s">download</a>`,
						templ.EscapeString(workspaceID), templ.EscapeString(e.Name))
				}
				fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
					html.EscapeString(e.Name), html.EscapeString(e.Kind), size, link)
			}
			b.WriteString(`</tbody></table>`)
		}
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// OutputPanes renders the stdout/stderr capture of the last completed run.
func OutputPanes(stdout, stderr string, returnCode int, hasResult bool) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div id="output-panes">`)
		if hasResult {
			fmt.Fprintf(&b, `<p class="returncode">return code %d</p>`, returnCode)
			fmt.Fprintf(&b, `<h3>stdout</h3><pre class="stdout">%s</pre>`, html.EscapeString(stdout))
			if stderr != "" {
				fmt.Fprintf(&b, `<h3>stderr</h3><pre class="stderr">%s</pre>`, html.EscapeString(stderr))
			}
		}
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// CommandForm renders the invocation form. The initially selected binary is
// the catalog's first element.
func CommandForm(workspaceID string, catalog []string, selected, catalogErr string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div id="command-form">`)
		if catalogErr != "" {
			fmt.Fprintf(&b, `<p class="catalog-error">binary catalog unavailable: %s</p>`, html.EscapeString(catalogErr))
		}
		fmt.Fprintf(&b, `<form data-on-submit="@post('/workspace/%s/execute', {contentType: 'form'})">`,
			templ.EscapeString(workspaceID))
		b.WriteString(`<select name="binary">`)
		for _, bin := range catalog {
			sel := ""
			if bin == selected {
				sel = ` selected`
			}
			fmt.Fprintf(&b, `<option value="%s"%s>%s</option>`, html.EscapeString(bin), sel, html.EscapeString(bin))
		}
		b.WriteString(`</select>`)
		b.WriteString(`<input type="text" name="args" placeholder="arguments" autocomplete="off">`)
		b.WriteString(`<button type="submit">run</button>`)
		b.WriteString(`</form></div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// DeleteForm renders the destructive delete control. The confirm field is
// required server-side; the dialog is a first line of defence only.
func DeleteForm(workspaceID string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<form class="delete-form" method="post" action="/workspace/%s/delete" onsubmit="return confirm('Permanently delete this workspace?')">`+
				`<input type="hidden" name="confirm" value="yes">`+
				`<button type="submit" class="danger">delete workspace</button></form>`,
			templ.EscapeString(workspaceID))
		return err
	})
}

// DeletedNotice replaces the workspace view once the workspace is gone.
func DeletedNotice() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprint(w,
			`<main id="workspace-main"><p class="deleted">This workspace has been deleted.</p>`+
				`<p><a href="/">Upload another transcript</a></p></main>`)
		return err
	})
}
