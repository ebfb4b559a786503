// Package session holds the client-side model of one remote workspace: the
// entry snapshot, the binary catalog, and the state machine that decides
// which operations are valid at each point of the workspace lifecycle.
package session

import (
	"context"
	"strings"
)

// EntryKind discriminates files from directories in a workspace listing.
type EntryKind string

const (
	EntryFile EntryKind = "file"
	EntryDir  EntryKind = "directory"
)

// Entry is one file or directory reported by the listing operation. Size is
// nil for directories (the service omits it).
type Entry struct {
	Name string
	Kind EntryKind
	Size *int64
}

// Result is the captured output of one completed invocation. It is immutable
// once recorded; a later invocation supersedes it wholesale.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Status tracks the lifecycle of a command invocation.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Gateway is the slice of the remote service this package depends on. The
// full client (upload, download, delete) lives in internal/gateway; the
// session model only ever lists and executes.
type Gateway interface {
	ListFiles(ctx context.Context, workspaceID string) ([]Entry, error)
	ListBinaries(ctx context.Context) ([]string, error)
	Execute(ctx context.Context, workspaceID, binary string, args []string) (*Result, error)
}

// Tokenize splits a raw argument string on runs of whitespace. Empty tokens
// never occur; all-whitespace input yields an empty argument list.
func Tokenize(raw string) []string {
	return strings.Fields(raw)
}

// Session bundles a Store with the Dispatcher that drives it.
type Session struct {
	*Store
	*Dispatcher
}

// New creates an uninitialized session backed by gw. Call Initialize before
// anything else.
func New(gw Gateway) *Session {
	st := NewStore(gw)
	return &Session{
		Store:      st,
		Dispatcher: NewDispatcher(st, gw),
	}
}
