package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"chabench/util"

	"github.com/nats-io/nats.go/jetstream"
	datastar "github.com/starfederation/datastar/sdk/go"
)

// RenderFunc renders one event message into the SSE stream.
type RenderFunc func(ctx context.Context, msg jetstream.Msg, sse *datastar.ServerSentEventGenerator) error

type Renderer struct {
	Pattern    string
	MatchFunc  func(string) bool
	RenderFunc RenderFunc
}

// Renderers is filled by renderers.go during init and treated as read-only.
var Renderers []Renderer

// Dispatch routes an event to the first renderer whose pattern matches its
// subject. Events nobody renders are skipped quietly; the UI only subscribes
// to workspace subjects, so an unmatched event means a schema drift worth a
// debug line, not a broken stream.
func Dispatch(ctx context.Context, msg jetstream.Msg, sse *datastar.ServerSentEventGenerator) error {
	for _, r := range Renderers {
		if r.MatchFunc(msg.Subject()) {
			return r.RenderFunc(ctx, msg, sse)
		}
	}
	slog.Debug("no renderer for subject", "subject", msg.Subject())
	return nil
}

// newRenderer creates a renderer matching a specific subject pattern (with wildcards).
func newRenderer(pattern string, fn RenderFunc) Renderer {
	return Renderer{
		Pattern:    pattern,
		MatchFunc:  func(subj string) bool { return util.SubjectMatches(pattern, subj) },
		RenderFunc: fn,
	}
}

// newTypedRenderer decodes the JSON payload into T and invokes handler.
func newTypedRenderer[T any](pattern string, handler func(context.Context, jetstream.Msg, *datastar.ServerSentEventGenerator, T) error) Renderer {
	return newRenderer(pattern, func(ctx context.Context, msg jetstream.Msg, sse *datastar.ServerSentEventGenerator) error {
		var p T
		dec := json.NewDecoder(bytes.NewReader(msg.Data()))
		if err := dec.Decode(&p); err != nil {
			return fmt.Errorf("decode %T: %w", p, err)
		}
		return handler(ctx, msg, sse, p)
	})
}
