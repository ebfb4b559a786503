// Package runtime drives workspace sessions: it consumes execute commands
// from the COMMAND stream, runs them through the session dispatcher, and
// publishes lifecycle events for the UI streams to render.
package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"chabench/internal/messages"
	"chabench/internal/session"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/xid"
)

// Engine owns the per-workspace session registry. Sessions are created
// lazily on first sight of a workspace and initialized exactly once.
type Engine struct {
	js        jetstream.JetStream
	gw        session.Gateway
	publisher *messages.Publisher

	mu       sync.Mutex
	sessions map[string]*workspaceSession
}

type workspaceSession struct {
	*session.Session
	initOnce sync.Once
}

func NewEngine(js jetstream.JetStream, gw session.Gateway) *Engine {
	return &Engine{
		js:        js,
		gw:        gw,
		publisher: messages.NewPublisher(js),
		sessions:  make(map[string]*workspaceSession),
	}
}

// Start registers a durable consumer for execute commands and handles them
// until ctx is cancelled.
func (e *Engine) Start(ctx context.Context) error {
	cons, err := e.js.CreateOrUpdateConsumer(ctx, "COMMAND", jetstream.ConsumerConfig{
		Durable:        "WORKSPACE_EXEC",
		AckPolicy:      jetstream.AckExplicitPolicy,
		FilterSubjects: []string{messages.WorkspaceExecuteSubjectPattern},
	})
	if err != nil {
		return fmt.Errorf("create WORKSPACE_EXEC consumer: %w", err)
	}

	_, err = cons.Consume(func(msg jetstream.Msg) { e.handleExecute(ctx, msg) })
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	return nil
}

// Session returns the session for a workspace, creating and initializing it
// on first use. Initialization loads entries and catalog concurrently and
// publishes the ready event once both have settled.
func (e *Engine) Session(ctx context.Context, workspaceID string) *session.Session {
	e.mu.Lock()
	ws, ok := e.sessions[workspaceID]
	if !ok {
		ws = &workspaceSession{Session: session.New(e.gw)}
		e.sessions[workspaceID] = ws
		// The hook outlives whichever request created the session, so it
		// publishes on a fresh context.
		ws.Dispatcher.Started = func(invocationID, binary string, args []string) {
			evt := messages.NewExecStartedEvent(workspaceID, invocationID, binary, args)
			if err := e.publisher.PublishEvent(context.Background(), evt); err != nil {
				slog.Warn("publish exec started", "workspace", workspaceID, "err", err)
			}
		}
	}
	e.mu.Unlock()

	ws.initOnce.Do(func() {
		ws.Initialize(ctx, workspaceID)
		evt := messages.NewWorkspaceReadyEvent(ws.Snapshot())
		if err := e.publisher.PublishEvent(ctx, evt); err != nil {
			slog.Warn("publish workspace ready", "workspace", workspaceID, "err", err)
		}
	})
	return ws.Session
}

// Peek returns the session if the workspace has been seen, without creating
// one.
func (e *Engine) Peek(workspaceID string) (*session.Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ws, ok := e.sessions[workspaceID]
	if !ok {
		return nil, false
	}
	return ws.Session, true
}

// Forget drops a workspace from the registry after deletion.
func (e *Engine) Forget(workspaceID string) {
	e.mu.Lock()
	delete(e.sessions, workspaceID)
	e.mu.Unlock()
}

func (e *Engine) handleExecute(ctx context.Context, msg jetstream.Msg) {
	workspaceID := workspaceFromSubject(msg.Subject())
	if workspaceID == "" {
		slog.Warn("execute command on malformed subject", "subject", msg.Subject())
		_ = msg.Term()
		return
	}

	invocationID := xid.New().String()

	if err := messages.ValidateExecutePayload(msg.Data()); err != nil {
		slog.Warn("execute payload rejected", "workspace", workspaceID, "err", err)
		e.publishExecError(ctx, workspaceID, invocationID, "validation", err.Error())
		_ = msg.Term()
		return
	}

	var cmd messages.ExecuteCommand
	if err := json.Unmarshal(msg.Data(), &cmd); err != nil {
		slog.Warn("execute payload undecodable", "workspace", workspaceID, "err", err)
		_ = msg.Term()
		return
	}
	cmd.WorkspaceID = workspaceID

	sess := e.Session(ctx, workspaceID)

	// Each invocation runs on its own goroutine so a submission during a
	// running command is rejected by the store instead of queued behind it.
	go e.run(ctx, sess, cmd, invocationID)
	_ = msg.Ack()
}

func (e *Engine) run(ctx context.Context, sess *session.Session, cmd messages.ExecuteCommand, invocationID string) {
	err := sess.Execute(ctx, invocationID, cmd.Binary, cmd.Args)
	v := sess.Snapshot()

	rejected := false
	if err != nil {
		kind := "transport"
		var ve *session.ValidationError
		var ce *session.ConcurrencyError
		switch {
		case errors.As(err, &ve):
			kind, rejected = "validation", true
		case errors.As(err, &ce):
			kind, rejected = "concurrency", true
		}
		e.publishExecError(ctx, cmd.WorkspaceID, invocationID, kind, err.Error())
	} else {
		evt := messages.NewExecResultEvent(cmd.WorkspaceID, invocationID, cmd.Binary, v.Result)
		evt.CorrelationID = cmd.CorrelationID
		if perr := e.publisher.PublishEvent(ctx, evt); perr != nil {
			slog.Warn("publish exec result", "workspace", cmd.WorkspaceID, "err", perr)
		}
	}

	// A rejected submission never touched the gateway and never refreshed;
	// accepted ones refresh after success and failure alike.
	if !rejected {
		evt := messages.NewEntriesUpdatedEvent(cmd.WorkspaceID, v.Entries, v.EntriesErr)
		if perr := e.publisher.PublishEvent(ctx, evt); perr != nil {
			slog.Warn("publish entries", "workspace", cmd.WorkspaceID, "err", perr)
		}
	}
}

func (e *Engine) publishExecError(ctx context.Context, workspaceID, invocationID, kind, msg string) {
	evt := messages.NewExecErrorEvent(workspaceID, invocationID, kind, msg)
	if err := e.publisher.PublishEvent(ctx, evt); err != nil {
		slog.Warn("publish exec error", "workspace", workspaceID, "err", err)
	}
}

// workspaceFromSubject extracts the workspace id from
// command.workspace.{id}.execute.
func workspaceFromSubject(subj string) string {
	parts := strings.Split(subj, ".")
	if len(parts) != 4 || parts[0] != "command" || parts[1] != "workspace" || parts[3] != "execute" {
		return ""
	}
	return parts[2]
}
