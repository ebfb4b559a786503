package platform

import (
	"context"
	"fmt"
	"log/slog"

	"chabench/internal/gateway"
	"chabench/internal/messages"
	"chabench/internal/runtime"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// System bundles the wired pieces the HTTP layer and the engine share.
type System struct {
	JS        jetstream.JetStream
	Engine    *runtime.Engine
	Gateway   *gateway.Client
	Publisher *messages.Publisher
}

// Setup initializes JetStream, creates the streams and KV buckets, and wires
// the workspace engine. It does not start consuming; Run does that.
func Setup(ctx context.Context, nc *nats.Conn, gw *gateway.Client) (*System, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:      "COMMAND",
		Subjects:  []string{"command.>"},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		slog.Warn("Error adding COMMAND stream", "err", err)
	}
	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:     "EVENT",
		Subjects: []string{"event.>"},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		slog.Warn("Error adding EVENT stream", "err", err)
	}

	// The "sessions" bucket maps a browser session id to its bound workspace.
	_, err = js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  "sessions",
		History: 5,
		Storage: jetstream.FileStorage,
	})
	if err != nil {
		slog.Warn("Error creating sessions KV bucket", "err", err)
	}

	return &System{
		JS:        js,
		Engine:    runtime.NewEngine(js, gw),
		Gateway:   gw,
		Publisher: messages.NewPublisher(js),
	}, nil
}

// Run starts the workspace engine and blocks until ctx is cancelled.
func Run(ctx context.Context, sys *System) {
	if err := sys.Engine.Start(ctx); err != nil {
		slog.Error("workspace engine failed to start", "err", err)
		return
	}
	slog.Info("workspace engine consuming execute commands")

	<-ctx.Done()
	slog.Info("Run: shutdown requested")
}
