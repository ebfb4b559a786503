package runtime

import (
	"context"
	"strings"

	"chabench/internal/messages"
	"chabench/ui/components"

	"github.com/nats-io/nats.go/jetstream"
	datastar "github.com/starfederation/datastar/sdk/go"
)

func init() {
	Renderers = []Renderer{
		newTypedRenderer(messages.WorkspaceReadySubjectPattern, renderReady),
		newTypedRenderer(messages.WorkspaceEntriesSubjectPattern, renderEntries),
		newTypedRenderer(messages.ExecStartedSubjectPattern, renderExecStarted),
		newTypedRenderer(messages.ExecResultSubjectPattern, renderExecResult),
		newTypedRenderer(messages.ExecErrorSubjectPattern, renderExecError),
		newTypedRenderer(messages.WorkspaceErrorSubjectPattern, renderWorkspaceError),
		newTypedRenderer(messages.WorkspaceDeletedSubjectPattern, renderDeleted),
	}
}

// subjectWorkspace pulls the workspace id out of event.workspace.{id}...
func subjectWorkspace(subj string) string {
	parts := strings.Split(subj, ".")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

// renderReady replaces every panel of the workspace view from the initial
// snapshot: listing, command form, status line, and a cleared flash.
func renderReady(_ context.Context, msg jetstream.Msg, sse *datastar.ServerSentEventGenerator, p messages.WorkspaceReadyEvent) error {
	id := subjectWorkspace(msg.Subject())

	if err := sse.MergeFragmentTempl(components.EntryTable(id, p.Entries, p.EntriesError),
		datastar.WithSelectorID("entry-table")); err != nil {
		return err
	}
	selected := ""
	if len(p.Catalog) > 0 {
		selected = p.Catalog[0]
	}
	if err := sse.MergeFragmentTempl(components.CommandForm(id, p.Catalog, selected, p.CatalogError),
		datastar.WithSelectorID("command-form")); err != nil {
		return err
	}
	if err := sse.MergeFragmentTempl(components.ExecStatus("idle", ""),
		datastar.WithSelectorID("exec-status")); err != nil {
		return err
	}
	return sse.MergeFragmentTempl(components.Flash("", false), datastar.WithSelectorID("flash"))
}

// renderEntries swaps the whole listing for the fresh snapshot.
func renderEntries(_ context.Context, msg jetstream.Msg, sse *datastar.ServerSentEventGenerator, p messages.EntriesUpdatedEvent) error {
	id := subjectWorkspace(msg.Subject())
	return sse.MergeFragmentTempl(components.EntryTable(id, p.Entries, p.Error),
		datastar.WithSelectorID("entry-table"))
}

func renderExecStarted(_ context.Context, _ jetstream.Msg, sse *datastar.ServerSentEventGenerator, p messages.ExecStartedEvent) error {
	if err := sse.MergeFragmentTempl(components.ExecStatus("running", p.Binary),
		datastar.WithSelectorID("exec-status")); err != nil {
		return err
	}
	return sse.MergeFragmentTempl(components.Flash("", false), datastar.WithSelectorID("flash"))
}

func renderExecResult(_ context.Context, _ jetstream.Msg, sse *datastar.ServerSentEventGenerator, p messages.ExecResultEvent) error {
	if err := sse.MergeFragmentTempl(components.OutputPanes(p.Stdout, p.Stderr, p.ReturnCode, true),
		datastar.WithSelectorID("output-panes")); err != nil {
		return err
	}
	return sse.MergeFragmentTempl(components.ExecStatus("succeeded", p.Binary),
		datastar.WithSelectorID("exec-status"))
}

func renderExecError(_ context.Context, _ jetstream.Msg, sse *datastar.ServerSentEventGenerator, p messages.ExecErrorEvent) error {
	if err := sse.MergeFragmentTempl(components.Flash(p.Error, true),
		datastar.WithSelectorID("flash")); err != nil {
		return err
	}
	// Rejected submissions leave the current invocation untouched, so the
	// status line only flips when the run itself failed in flight.
	switch p.Kind {
	case "validation":
		return nil
	case "concurrency":
		return sse.MergeFragmentTempl(components.ExecStatus("running", ""),
			datastar.WithSelectorID("exec-status"))
	}
	return sse.MergeFragmentTempl(components.ExecStatus("failed", ""),
		datastar.WithSelectorID("exec-status"))
}

func renderWorkspaceError(_ context.Context, _ jetstream.Msg, sse *datastar.ServerSentEventGenerator, p messages.WorkspaceErrorEvent) error {
	return sse.MergeFragmentTempl(components.Flash(p.Op+": "+p.Error, true),
		datastar.WithSelectorID("flash"))
}

func renderDeleted(_ context.Context, _ jetstream.Msg, sse *datastar.ServerSentEventGenerator, _ messages.WorkspaceDeletedEvent) error {
	return sse.MergeFragmentTempl(components.DeletedNotice(),
		datastar.WithSelectorID("workspace-main"))
}
