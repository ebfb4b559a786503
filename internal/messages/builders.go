package messages

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"chabench/internal/session"

	"github.com/nats-io/nats.go/jetstream"
)

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// NewExecuteCommand creates an execute command for one workspace. rawArgs is
// kept verbatim; tokenization happens at dispatch time.
func NewExecuteCommand(workspaceID, binary, rawArgs string) *ExecuteCommand {
	return &ExecuteCommand{
		WorkspaceID: workspaceID,
		Binary:      binary,
		Args:        rawArgs,
	}
}

// WithCorrelation adds a correlation id to the command.
func (c *ExecuteCommand) WithCorrelation(id string) *ExecuteCommand {
	c.CorrelationID = id
	return c
}

// NewWorkspaceReadyEvent snapshots a freshly initialized session.
func NewWorkspaceReadyEvent(v session.View) *WorkspaceReadyEvent {
	return &WorkspaceReadyEvent{
		WorkspaceID:  v.WorkspaceID,
		Catalog:      v.Catalog,
		Entries:      EntriesFromView(v.Entries),
		EntriesError: v.EntriesErr,
		CatalogError: v.CatalogErr,
		ReadyAt:      time.Now(),
	}
}

// NewEntriesUpdatedEvent carries the snapshot after a refresh; errMsg is set
// when the refresh failed and the old snapshot was retained.
func NewEntriesUpdatedEvent(workspaceID string, entries []session.Entry, errMsg string) *EntriesUpdatedEvent {
	return &EntriesUpdatedEvent{
		WorkspaceID: workspaceID,
		Entries:     EntriesFromView(entries),
		Error:       errMsg,
		UpdatedAt:   time.Now(),
	}
}

// NewExecStartedEvent marks an accepted invocation.
func NewExecStartedEvent(workspaceID, invocationID, binary string, args []string) *ExecStartedEvent {
	if args == nil {
		args = []string{}
	}
	return &ExecStartedEvent{
		WorkspaceID:  workspaceID,
		InvocationID: invocationID,
		Binary:       binary,
		Args:         args,
		StartedAt:    time.Now(),
	}
}

// NewExecResultEvent wraps a completed invocation's output.
func NewExecResultEvent(workspaceID, invocationID, binary string, r *session.Result) *ExecResultEvent {
	return &ExecResultEvent{
		WorkspaceID:  workspaceID,
		InvocationID: invocationID,
		Binary:       binary,
		Stdout:       r.Stdout,
		Stderr:       r.Stderr,
		ReturnCode:   r.ExitCode,
		FinishedAt:   time.Now(),
	}
}

// NewExecErrorEvent reports a rejected or failed invocation.
func NewExecErrorEvent(workspaceID, invocationID, kind, errMsg string) *ExecErrorEvent {
	return &ExecErrorEvent{
		WorkspaceID:  workspaceID,
		InvocationID: invocationID,
		Kind:         kind,
		Error:        errMsg,
		OccurredAt:   time.Now(),
	}
}

// NewWorkspaceErrorEvent reports a failed workspace-level operation.
func NewWorkspaceErrorEvent(workspaceID, op, errMsg string) *WorkspaceErrorEvent {
	return &WorkspaceErrorEvent{
		WorkspaceID: workspaceID,
		Op:          op,
		Error:       errMsg,
		OccurredAt:  time.Now(),
	}
}

// NewWorkspaceDeletedEvent marks a destroyed workspace.
func NewWorkspaceDeletedEvent(workspaceID string) *WorkspaceDeletedEvent {
	return &WorkspaceDeletedEvent{WorkspaceID: workspaceID, DeletedAt: time.Now()}
}

// EntriesFromView converts store entries to their wire form.
func EntriesFromView(entries []session.Entry) []EntryInfo {
	out := make([]EntryInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryInfo{Name: e.Name, Kind: string(e.Kind), Size: e.Size})
	}
	return out
}

// =============================================================================
// VALIDATION
// =============================================================================

var binaryNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Characters the analysis service refuses in arguments; rejecting them here
// saves the round trip.
const forbiddenArgChars = ";&|`$\n\r"

func validateExecuteCommand(c ExecuteCommand) error {
	if c.WorkspaceID == "" {
		return fmt.Errorf("workspace id is required")
	}
	if c.Binary == "" {
		return fmt.Errorf("binary is required")
	}
	if !binaryNameRegex.MatchString(c.Binary) {
		return fmt.Errorf("binary name must contain only alphanumeric characters, hyphens, and underscores")
	}
	for _, arg := range session.Tokenize(c.Args) {
		if strings.ContainsAny(arg, forbiddenArgChars) {
			return fmt.Errorf("argument %q contains forbidden characters", arg)
		}
		if strings.HasPrefix(arg, "/") || strings.Contains(arg, "..") {
			return fmt.Errorf("argument %q escapes the workspace", arg)
		}
	}
	return nil
}

// =============================================================================
// PUBLISHER
// =============================================================================

// Publisher provides type-safe message publishing onto JetStream.
type Publisher struct {
	js jetstream.JetStream
}

func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishCommand validates and publishes a command.
func (p *Publisher) PublishCommand(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("command validation failed: %w", err)
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	if _, err := p.js.Publish(ctx, cmd.Subject(), data); err != nil {
		return fmt.Errorf("publish command: %w", err)
	}
	return nil
}

// PublishEvent validates and publishes an event.
func (p *Publisher) PublishEvent(ctx context.Context, evt Event) error {
	if err := evt.Validate(); err != nil {
		return fmt.Errorf("event validation failed: %w", err)
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if _, err := p.js.Publish(ctx, evt.Subject(), data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
