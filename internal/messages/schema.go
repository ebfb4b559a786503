package messages

import (
	"fmt"
	"time"
)

// Message is anything that travels over a stream.
type Message interface {
	Subject() string
	Validate() error
}

// Command requests something to happen.
type Command interface {
	Message
	IsCommand()
}

// Event states that something has happened.
type Event interface {
	Message
	IsEvent()
	Timestamp() time.Time
}

// =============================================================================
// SUBJECT CONSTANTS
// =============================================================================

const (
	// Workspace domain - Commands
	WorkspaceExecuteSubjectPattern = "command.workspace.*.execute" // * = workspace id

	// Workspace domain - Events
	WorkspaceReadySubjectPattern   = "event.workspace.*.ready"
	WorkspaceEntriesSubjectPattern = "event.workspace.*.entries"
	WorkspaceErrorSubjectPattern   = "event.workspace.*.error"
	WorkspaceDeletedSubjectPattern = "event.workspace.*.deleted"
	ExecStartedSubjectPattern      = "event.workspace.*.exec.*.started" // workspace id, invocation id
	ExecResultSubjectPattern       = "event.workspace.*.exec.*.result"
	ExecErrorSubjectPattern        = "event.workspace.*.exec.*.error"
)

// WorkspaceExecuteSubject builds the concrete execute-command subject for a
// workspace.
func WorkspaceExecuteSubject(workspaceID string) string {
	return fmt.Sprintf("command.workspace.%s.execute", workspaceID)
}

// WorkspaceEventsSubject is the wildcard subject covering every event of one
// workspace; UI streams subscribe with it.
func WorkspaceEventsSubject(workspaceID string) string {
	return fmt.Sprintf("event.workspace.%s.>", workspaceID)
}

// =============================================================================
// WORKSPACE DOMAIN - COMMANDS
// =============================================================================

// ExecuteCommand requests one invocation of a catalog binary inside a
// workspace. Args is the raw argument string as typed; the dispatcher
// tokenizes it.
type ExecuteCommand struct {
	WorkspaceID   string `json:"-"` // derived from subject
	Binary        string `json:"binary"`
	Args          string `json:"args,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func (c ExecuteCommand) Subject() string { return WorkspaceExecuteSubject(c.WorkspaceID) }
func (c ExecuteCommand) IsCommand()      {}
func (c ExecuteCommand) Validate() error { return validateExecuteCommand(c) }

// =============================================================================
// WORKSPACE DOMAIN - EVENTS
// =============================================================================

// EntryInfo is the wire form of one workspace entry.
type EntryInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Size *int64 `json:"size,omitempty"`
}

// WorkspaceReadyEvent is published once a workspace session has loaded its
// entry snapshot and binary catalog (each of which may have failed
// independently).
type WorkspaceReadyEvent struct {
	WorkspaceID  string      `json:"-"`
	Catalog      []string    `json:"catalog"`
	Entries      []EntryInfo `json:"entries"`
	EntriesError string      `json:"entries_error,omitempty"`
	CatalogError string      `json:"catalog_error,omitempty"`
	ReadyAt      time.Time   `json:"ready_at"`
}

func (e WorkspaceReadyEvent) Subject() string {
	return fmt.Sprintf("event.workspace.%s.ready", e.WorkspaceID)
}
func (e WorkspaceReadyEvent) IsEvent()             {}
func (e WorkspaceReadyEvent) Timestamp() time.Time { return e.ReadyAt }
func (e WorkspaceReadyEvent) Validate() error      { return nil }

// EntriesUpdatedEvent carries a fresh entry snapshot, or the error that left
// the previous snapshot in place.
type EntriesUpdatedEvent struct {
	WorkspaceID string      `json:"-"`
	Entries     []EntryInfo `json:"entries"`
	Error       string      `json:"error,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (e EntriesUpdatedEvent) Subject() string {
	return fmt.Sprintf("event.workspace.%s.entries", e.WorkspaceID)
}
func (e EntriesUpdatedEvent) IsEvent()             {}
func (e EntriesUpdatedEvent) Timestamp() time.Time { return e.UpdatedAt }
func (e EntriesUpdatedEvent) Validate() error      { return nil }

// ExecStartedEvent marks an accepted invocation, published before the execute
// request is issued.
type ExecStartedEvent struct {
	WorkspaceID   string    `json:"-"`
	InvocationID  string    `json:"-"`
	Binary        string    `json:"binary"`
	Args          []string  `json:"args"`
	StartedAt     time.Time `json:"started_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

func (e ExecStartedEvent) Subject() string {
	return fmt.Sprintf("event.workspace.%s.exec.%s.started", e.WorkspaceID, e.InvocationID)
}
func (e ExecStartedEvent) IsEvent()             {}
func (e ExecStartedEvent) Timestamp() time.Time { return e.StartedAt }
func (e ExecStartedEvent) Validate() error      { return nil }

// ExecResultEvent carries the captured output of a completed invocation.
type ExecResultEvent struct {
	WorkspaceID   string    `json:"-"`
	InvocationID  string    `json:"-"`
	Binary        string    `json:"binary"`
	Stdout        string    `json:"stdout"`
	Stderr        string    `json:"stderr"`
	ReturnCode    int       `json:"returncode"`
	FinishedAt    time.Time `json:"finished_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

func (e ExecResultEvent) Subject() string {
	return fmt.Sprintf("event.workspace.%s.exec.%s.result", e.WorkspaceID, e.InvocationID)
}
func (e ExecResultEvent) IsEvent()             {}
func (e ExecResultEvent) Timestamp() time.Time { return e.FinishedAt }
func (e ExecResultEvent) Validate() error      { return nil }

// ExecErrorEvent reports a rejected or failed invocation. Kind distinguishes
// the error taxonomy: "validation", "concurrency", or "transport".
type ExecErrorEvent struct {
	WorkspaceID   string    `json:"-"`
	InvocationID  string    `json:"-"`
	Kind          string    `json:"kind"`
	Error         string    `json:"error"`
	OccurredAt    time.Time `json:"occurred_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

func (e ExecErrorEvent) Subject() string {
	return fmt.Sprintf("event.workspace.%s.exec.%s.error", e.WorkspaceID, e.InvocationID)
}
func (e ExecErrorEvent) IsEvent()             {}
func (e ExecErrorEvent) Timestamp() time.Time { return e.OccurredAt }
func (e ExecErrorEvent) Validate() error      { return nil }

// WorkspaceErrorEvent reports a failed workspace-level operation (upload,
// download, delete, listing outside an invocation).
type WorkspaceErrorEvent struct {
	WorkspaceID string    `json:"-"`
	Op          string    `json:"op"`
	Error       string    `json:"error"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (e WorkspaceErrorEvent) Subject() string {
	return fmt.Sprintf("event.workspace.%s.error", e.WorkspaceID)
}
func (e WorkspaceErrorEvent) IsEvent()             {}
func (e WorkspaceErrorEvent) Timestamp() time.Time { return e.OccurredAt }
func (e WorkspaceErrorEvent) Validate() error      { return nil }

// WorkspaceDeletedEvent marks the irreversible end of a workspace.
type WorkspaceDeletedEvent struct {
	WorkspaceID string    `json:"-"`
	DeletedAt   time.Time `json:"deleted_at"`
}

func (e WorkspaceDeletedEvent) Subject() string {
	return fmt.Sprintf("event.workspace.%s.deleted", e.WorkspaceID)
}
func (e WorkspaceDeletedEvent) IsEvent()             {}
func (e WorkspaceDeletedEvent) Timestamp() time.Time { return e.DeletedAt }
func (e WorkspaceDeletedEvent) Validate() error      { return nil }
