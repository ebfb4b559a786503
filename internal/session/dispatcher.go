package session

import "context"

// Dispatcher validates and submits command invocations against the remote
// service, enforcing the single-flight invariant and refreshing the entry
// snapshot after every run.
type Dispatcher struct {
	store *Store
	gw    Gateway

	// Started, when set, is called after a submission is accepted and before
	// the execute request is issued. The engine uses it to publish lifecycle
	// events; rejected submissions never trigger it.
	Started func(invocationID, binary string, args []string)
}

func NewDispatcher(store *Store, gw Gateway) *Dispatcher {
	return &Dispatcher{store: store, gw: gw}
}

// Execute tokenizes rawArgs and submits one invocation of binary.
//
// A submission is rejected with *ConcurrencyError while a prior invocation is
// still running, and with *ValidationError when binary is empty or not in the
// catalog; in both cases the remote service is not contacted. An accepted
// submission moves the invocation to running, issues the execute request,
// settles as succeeded or failed, and then refreshes the entry snapshot.
// The refresh happens strictly after the execute response has resolved,
// success or failure alike, since a run may have altered the workspace
// contents.
func (d *Dispatcher) Execute(ctx context.Context, invocationID, binary, rawArgs string) error {
	args := Tokenize(rawArgs)

	if err := d.store.Begin(invocationID, binary); err != nil {
		return err
	}
	if d.Started != nil {
		d.Started(invocationID, binary, args)
	}

	result, err := d.gw.Execute(ctx, d.store.WorkspaceID(), binary, args)
	if err != nil {
		d.store.RecordError(invocationID, err.Error())
	} else {
		d.store.RecordResult(invocationID, result)
	}

	// The refresh is issued only once the run has settled, never concurrently
	// with it. A failed run still refreshes: it may have partially mutated
	// the workspace.
	_ = d.store.RefreshEntries(ctx)

	return err
}
