package session

import "fmt"

// ValidationError reports a client-side precondition failure. The remote
// service is never contacted when one is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// ConcurrencyError reports a rejected submission while another invocation is
// still running in the same workspace. Submissions are rejected, not queued.
type ConcurrencyError struct {
	WorkspaceID string
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("workspace %s already has a command running", e.WorkspaceID)
}
