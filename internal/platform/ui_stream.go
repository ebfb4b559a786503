package platform

import (
	"context"
	"log/slog"
	"net/http"

	"chabench/internal/messages"
	"chabench/internal/runtime"
	"chabench/internal/session"
	"chabench/ui/components"

	"github.com/a-h/templ"
	"github.com/nats-io/nats.go/jetstream"
	datastar "github.com/starfederation/datastar/sdk/go"
)

// minimal interface for the SSE helper we need
type sseWriter interface {
	MergeFragmentTempl(t templ.Component, opts ...datastar.MergeFragmentOption) error
}

// renderSnapshot paints the workspace panels from the engine's current view.
// The event replay that follows will repaint them, so this is only the fast
// path that avoids a blank page while the replay catches up.
func renderSnapshot(sse sseWriter, v session.View) {
	_ = sse.MergeFragmentTempl(
		components.EntryTable(v.WorkspaceID, messages.EntriesFromView(v.Entries), v.EntriesErr),
		datastar.WithSelectorID("entry-table"))
	_ = sse.MergeFragmentTempl(
		components.CommandForm(v.WorkspaceID, v.Catalog, v.SelectedBinary(), v.CatalogErr),
		datastar.WithSelectorID("command-form"))
	_ = sse.MergeFragmentTempl(
		components.ExecStatus(v.Status.String(), v.Binary),
		datastar.WithSelectorID("exec-status"))
	if v.Result != nil {
		_ = sse.MergeFragmentTempl(
			components.OutputPanes(v.Result.Stdout, v.Result.Stderr, v.Result.ExitCode, true),
			datastar.WithSelectorID("output-panes"))
	}
	_ = sse.MergeFragmentTempl(components.Flash(v.CommandErr, true), datastar.WithSelectorID("flash"))
}

// UIStream is the SSE handler for /ui. It follows the workspace bound to the
// browser session and renders that workspace's events into the page.
func UIStream(js jetstream.JetStream, engine *runtime.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sse := datastar.NewSSE(w, r)
		sid := SessionID(r)

		kv, err := js.KeyValue(r.Context(), "sessions")
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		entry, err := kv.Get(ctx, sid)
		if err != nil {
			http.Error(w, "no workspace bound", http.StatusNotFound)
			return
		}
		state, err := LoadSessionState(entry.Value())
		if err != nil || state.WorkspaceID == "" {
			http.Error(w, "no workspace bound", http.StatusNotFound)
			return
		}
		current := state.WorkspaceID

		if sess, ok := engine.Peek(current); ok {
			renderSnapshot(sse, sess.Snapshot())
		}

		createConsumer := func(workspaceID string) (context.CancelFunc, chan struct{}) {
			cctx, ccancel := context.WithCancel(ctx)
			cdone := make(chan struct{})

			cons, err := js.CreateConsumer(ctx, "EVENT", jetstream.ConsumerConfig{
				AckPolicy:      jetstream.AckNonePolicy,
				FilterSubjects: []string{messages.WorkspaceEventsSubject(workspaceID)},
				DeliverPolicy:  jetstream.DeliverAllPolicy, // replay rebuilds the view
			})
			if err != nil {
				slog.Warn("failed to create consumer", "workspace", workspaceID, "err", err)
				ccancel()
				close(cdone)
				return ccancel, cdone
			}

			go func() {
				defer close(cdone)
				_, err := cons.Consume(func(msg jetstream.Msg) {
					if err := runtime.Dispatch(ctx, msg, sse); err != nil {
						slog.Warn("render", "subj", msg.Subject(), "err", err)
					}
				})
				if err != nil {
					slog.Warn("consume failed", "err", err)
				}
				<-cctx.Done()
			}()
			return ccancel, cdone
		}

		consumerCancel, consumerDone := createConsumer(current)

		// Follow rebinds: uploading a new transcript swaps the stream over to
		// the new workspace without reloading the page.
		watcher, err := kv.Watch(ctx, sid)
		if err != nil {
			http.Error(w, "failed to watch session", http.StatusInternalServerError)
			return
		}
		defer watcher.Stop()

		go func() {
			for update := range watcher.Updates() {
				if update == nil {
					continue
				}
				if update.Operation() == jetstream.KeyValueDelete {
					cancel()
					return
				}

				newState, err := LoadSessionState(update.Value())
				if err != nil {
					slog.Warn("invalid session update", "sid", sid, "err", err)
					continue
				}
				if newState.WorkspaceID == current {
					continue
				}

				consumerCancel()
				<-consumerDone
				current = newState.WorkspaceID
				if current == "" {
					// Workspace deleted; the deleted event already replaced
					// the view, nothing left to stream.
					continue
				}
				if sess, ok := engine.Peek(current); ok {
					renderSnapshot(sse, sess.Snapshot())
				}
				consumerCancel, consumerDone = createConsumer(current)
			}
		}()

		<-ctx.Done() // Wait for disconnect
	}
}
