// Package messages is the single source of truth for the NATS contracts that
// connect the HTTP handlers, the workspace engine, and the UI streams.
//
// Two categories of message exist:
//
//   - Commands: requests for something to happen (ExecuteCommand)
//   - Events: facts about something that has happened (ExecStartedEvent,
//     ExecResultEvent, EntriesUpdatedEvent, ...)
//
// Subject patterns are defined as constants for consumer subscriptions, with
// builder functions producing concrete subjects for publishers:
//
//	WorkspaceExecuteSubjectPattern          // "command.workspace.*.execute"
//	WorkspaceExecuteSubject("abc123")       // "command.workspace.abc123.execute"
//
// The Publisher validates before publishing, so malformed messages never make
// it onto a stream. Execute command payloads are additionally checked against
// an embedded JSON Schema that mirrors the analysis service's own server-side
// validators, so requests the service would reject are refused before a round
// trip is spent on them.
package messages
