package session

import (
	"context"
	"sync"
)

// Store is the single source of truth for one workspace: identifier, entry
// snapshot, binary catalog, and the last command result or error. All
// mutation goes through its methods; none of them panic or leak errors past
// the recorded state.
type Store struct {
	mu sync.Mutex
	gw Gateway

	workspaceID string
	ready       bool

	entries    []Entry
	entriesErr string

	catalog    []string
	catalogErr string

	status       Status
	invocationID string
	binary       string
	result       *Result
	commandErr   string
}

// View is an immutable copy of the store state, safe to hand to renderers.
type View struct {
	WorkspaceID string
	Ready       bool

	Entries    []Entry
	EntriesErr string

	Catalog    []string
	CatalogErr string

	Status       Status
	InvocationID string
	Binary       string
	Result       *Result
	CommandErr   string
}

// SelectedBinary is the catalog's first element, or the binary of the current
// invocation once one has been submitted.
func (v View) SelectedBinary() string {
	if v.Binary != "" {
		return v.Binary
	}
	if len(v.Catalog) > 0 {
		return v.Catalog[0]
	}
	return ""
}

func NewStore(gw Gateway) *Store {
	return &Store{gw: gw, status: StatusIdle}
}

// Initialize sets the workspace identifier and loads the entry snapshot and
// binary catalog concurrently. The two loads settle independently; each
// failure is recorded on its own, and the store is marked ready only after
// both have resolved. Initialize never fails itself.
func (s *Store) Initialize(ctx context.Context, workspaceID string) {
	s.mu.Lock()
	s.workspaceID = workspaceID
	s.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = s.RefreshEntries(ctx)
	}()
	go func() {
		defer wg.Done()
		s.loadCatalog(ctx)
	}()
	wg.Wait()

	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
}

// RefreshEntries replaces the entry snapshot atomically. On failure the
// previous snapshot is retained and the error recorded instead.
func (s *Store) RefreshEntries(ctx context.Context) error {
	s.mu.Lock()
	id := s.workspaceID
	s.mu.Unlock()

	entries, err := s.gw.ListFiles(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.entriesErr = err.Error()
		return err
	}
	s.entries = entries
	s.entriesErr = ""
	return nil
}

// loadCatalog fetches the binary catalog once; it is treated as read-only
// for the rest of the session.
func (s *Store) loadCatalog(ctx context.Context) {
	catalog, err := s.gw.ListBinaries(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.catalogErr = err.Error()
		return
	}
	s.catalog = catalog
	s.catalogErr = ""
}

// Begin gates a new invocation. It enforces the single-flight invariant and
// the catalog-membership precondition; on acceptance the status moves to
// running. Callers must settle the invocation with RecordResult or
// RecordError.
func (s *Store) Begin(invocationID, binary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusRunning {
		return &ConcurrencyError{WorkspaceID: s.workspaceID}
	}
	if binary == "" {
		return &ValidationError{Reason: "no binary selected"}
	}
	if !s.inCatalog(binary) {
		return &ValidationError{Reason: "binary " + binary + " is not in the catalog"}
	}

	s.status = StatusRunning
	s.invocationID = invocationID
	s.binary = binary
	return nil
}

func (s *Store) inCatalog(binary string) bool {
	for _, b := range s.catalog {
		if b == binary {
			return true
		}
	}
	return false
}

// RecordResult settles the named invocation as succeeded. A success clears
// any prior command error; results supersede, they never merge. Stale
// invocation ids are ignored.
func (s *Store) RecordResult(invocationID string, r *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if invocationID != s.invocationID {
		return
	}
	s.status = StatusSucceeded
	s.result = r
	s.commandErr = ""
}

// RecordError settles the named invocation as failed, replacing any prior
// result.
func (s *Store) RecordError(invocationID, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if invocationID != s.invocationID {
		return
	}
	s.status = StatusFailed
	s.result = nil
	s.commandErr = message
}

// WorkspaceID returns the identifier set by Initialize.
func (s *Store) WorkspaceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workspaceID
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		WorkspaceID:  s.workspaceID,
		Ready:        s.ready,
		EntriesErr:   s.entriesErr,
		CatalogErr:   s.catalogErr,
		Status:       s.status,
		InvocationID: s.invocationID,
		Binary:       s.binary,
		CommandErr:   s.commandErr,
	}
	v.Entries = make([]Entry, len(s.entries))
	copy(v.Entries, s.entries)
	v.Catalog = make([]string, len(s.catalog))
	copy(v.Catalog, s.catalog)
	if s.result != nil {
		r := *s.result
		v.Result = &r
	}
	return v
}
