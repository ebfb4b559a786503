package session

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestTokenize(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"\t\n", nil},
		{"conversation.cha", []string{"conversation.cha"}},
		{"  -t  CHI   conversation.cha ", []string{"-t", "CHI", "conversation.cha"}},
		{"a\tb\nc", []string{"a", "b", "c"}},
	}
	for _, tc := range cases {
		got := Tokenize(tc.raw)
		if len(got) == 0 && len(tc.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

// orderedGateway records the order of service calls so tests can assert the
// refresh happens strictly after the execute has settled.
type orderedGateway struct {
	mu    sync.Mutex
	calls []string

	catalog    []string
	executeRes *Result
	executeErr error
	executeGo  chan struct{} // when non-nil, Execute blocks until closed
	gotArgs    []string
}

func (g *orderedGateway) record(call string) {
	g.mu.Lock()
	g.calls = append(g.calls, call)
	g.mu.Unlock()
}

func (g *orderedGateway) callLog() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *orderedGateway) ListFiles(context.Context, string) ([]Entry, error) {
	g.record("list")
	return []Entry{{Name: "conversation.cha", Kind: EntryFile}}, nil
}

func (g *orderedGateway) ListBinaries(context.Context) ([]string, error) {
	g.record("binaries")
	return g.catalog, nil
}

func (g *orderedGateway) Execute(_ context.Context, _, _ string, args []string) (*Result, error) {
	g.record("execute")
	g.mu.Lock()
	g.gotArgs = args
	g.mu.Unlock()
	if g.executeGo != nil {
		<-g.executeGo
	}
	if g.executeErr != nil {
		return nil, g.executeErr
	}
	return g.executeRes, nil
}

func newTestSession(t *testing.T, gw *orderedGateway) *Session {
	t.Helper()
	s := New(gw)
	s.Initialize(context.Background(), "ws1")
	gw.mu.Lock()
	gw.calls = nil
	gw.mu.Unlock()
	return s
}

func TestExecuteSuccessRefreshesAfterRun(t *testing.T) {
	gw := &orderedGateway{
		catalog:    []string{"freq"},
		executeRes: &Result{Stdout: "1 the\n2 a\n", ExitCode: 0},
	}
	s := newTestSession(t, gw)

	var started []string
	s.Dispatcher.Started = func(invocationID, binary string, args []string) {
		started = append(started, binary)
	}

	if err := s.Execute(context.Background(), "i1", "freq", "  conversation.cha  "); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := gw.callLog(); !reflect.DeepEqual(got, []string{"execute", "list"}) {
		t.Fatalf("call order = %v, want [execute list]", got)
	}
	if !reflect.DeepEqual(gw.gotArgs, []string{"conversation.cha"}) {
		t.Fatalf("args = %v", gw.gotArgs)
	}
	if !reflect.DeepEqual(started, []string{"freq"}) {
		t.Fatalf("Started hook calls = %v", started)
	}

	v := s.Snapshot()
	if v.Status != StatusSucceeded {
		t.Fatalf("status = %v", v.Status)
	}
	if v.Result == nil || v.Result.Stdout != "1 the\n2 a\n" {
		t.Fatalf("result = %+v", v.Result)
	}
}

func TestExecuteFailureStillRefreshes(t *testing.T) {
	gw := &orderedGateway{
		catalog:    []string{"freq"},
		executeErr: errors.New("execution timed out"),
	}
	s := newTestSession(t, gw)

	err := s.Execute(context.Background(), "i1", "freq", "")
	if err == nil || err.Error() != "execution timed out" {
		t.Fatalf("err = %v", err)
	}

	// A failed run may still have altered the workspace, so the listing is
	// refreshed after the failure exactly as after a success.
	if got := gw.callLog(); !reflect.DeepEqual(got, []string{"execute", "list"}) {
		t.Fatalf("call order = %v, want [execute list]", got)
	}

	v := s.Snapshot()
	if v.Status != StatusFailed || v.CommandErr != "execution timed out" {
		t.Fatalf("status=%v commandErr=%q", v.Status, v.CommandErr)
	}
}

func TestRejectedSubmissionNeverContactsService(t *testing.T) {
	gw := &orderedGateway{catalog: []string{"freq"}}
	s := newTestSession(t, gw)

	hookCalled := false
	s.Dispatcher.Started = func(string, string, []string) { hookCalled = true }

	var ve *ValidationError
	if err := s.Execute(context.Background(), "i1", "chip", ""); !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if err := s.Execute(context.Background(), "i2", "", ""); !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}

	if got := gw.callLog(); len(got) != 0 {
		t.Fatalf("gateway contacted on rejected submission: %v", got)
	}
	if hookCalled {
		t.Fatal("Started hook fired for rejected submission")
	}
}

func TestSubmissionWhileRunningIsRejected(t *testing.T) {
	gate := make(chan struct{})
	gw := &orderedGateway{
		catalog:    []string{"freq", "mlu"},
		executeRes: &Result{ExitCode: 0},
		executeGo:  gate,
	}
	s := newTestSession(t, gw)

	done := make(chan error, 1)
	go func() {
		done <- s.Execute(context.Background(), "i1", "freq", "")
	}()

	// Wait for the first invocation to reach the service.
	deadline := time.After(2 * time.Second)
	for {
		if log := gw.callLog(); len(log) > 0 && log[0] == "execute" {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first invocation never reached the service")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	var ce *ConcurrencyError
	if err := s.Execute(context.Background(), "i2", "mlu", ""); !errors.As(err, &ce) {
		t.Fatalf("concurrent submission: err = %v, want ConcurrencyError", err)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first invocation: %v", err)
	}
	if v := s.Snapshot(); v.Status != StatusSucceeded {
		t.Fatalf("status = %v", v.Status)
	}
}
