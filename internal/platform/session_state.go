package platform

import (
	"context"
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/nats-io/nats.go/jetstream"
)

// SessionState is the KV record kept per browser session. The record is
// mutated with RFC 7386 merge patches so unrelated fields survive partial
// updates.
type SessionState struct {
	WorkspaceID string `json:"workspace_id,omitempty"`
}

// LoadSessionState decodes a KV record; a missing or empty record yields the
// zero state.
func LoadSessionState(data []byte) (SessionState, error) {
	var s SessionState
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("decode session record: %w", err)
	}
	return s, nil
}

// BindWorkspace points a browser session at a workspace, replacing any
// previous binding.
func BindWorkspace(ctx context.Context, kv jetstream.KeyValue, sid, workspaceID string) error {
	patch, _ := json.Marshal(map[string]any{"workspace_id": workspaceID})
	return patchSession(ctx, kv, sid, patch)
}

// UnbindWorkspace clears the binding after a workspace is deleted.
func UnbindWorkspace(ctx context.Context, kv jetstream.KeyValue, sid string) error {
	return patchSession(ctx, kv, sid, []byte(`{"workspace_id":null}`))
}

func patchSession(ctx context.Context, kv jetstream.KeyValue, sid string, patch []byte) error {
	original := []byte(`{}`)
	if entry, err := kv.Get(ctx, sid); err == nil && entry != nil {
		original = entry.Value()
	}

	merged, err := mergeRecord(original, patch)
	if err != nil {
		return err
	}
	if _, err := kv.Put(ctx, sid, merged); err != nil {
		return fmt.Errorf("store session record: %w", err)
	}
	return nil
}

func mergeRecord(original, patch []byte) ([]byte, error) {
	merged, err := jsonpatch.MergePatch(original, patch)
	if err != nil {
		return nil, fmt.Errorf("merge session record: %w", err)
	}
	return merged, nil
}
