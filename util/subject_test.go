package util

import "testing"

func TestSubjectMatches(t *testing.T) {
	cases := []struct {
		pattern string
		subj    string
		want    bool
	}{
		{"event.workspace.abc123.ready", "event.workspace.abc123.ready", true},
		{"event.workspace.*.ready", "event.workspace.abc123.ready", true},
		{"event.workspace.*.ready", "event.workspace.abc123.entries", false},
		{"event.workspace.*.exec.*.result", "event.workspace.abc123.exec.inv1.result", true},
		{"event.workspace.*.exec.*.result", "event.workspace.abc123.exec.inv1.error", false},
		{"event.workspace.abc123.>", "event.workspace.abc123.exec.inv1.started", true},
		{"event.workspace.abc123.>", "event.workspace.other.ready", false},
		{"event.>", "event.workspace.abc123.ready", true},
		{">", "anything.at.all", true},
		{"event.workspace.*.ready", "event.workspace.ready", false},
		{"command.workspace.*.execute", "command.workspace.abc123.execute.extra", false},
	}

	for _, tc := range cases {
		if got := SubjectMatches(tc.pattern, tc.subj); got != tc.want {
			t.Errorf("SubjectMatches(%q, %q) = %v, want %v", tc.pattern, tc.subj, got, tc.want)
		}
	}
}
