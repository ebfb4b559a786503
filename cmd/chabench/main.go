package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"chabench/internal/gateway"
	"chabench/internal/platform"
)

func main() {
	platform.InitMetrics()
	platform.InitLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	appCfg := platform.LoadAppConfig()

	// --- Run embedded NATS server ---
	nc, ns, natErrCh, err := platform.RunEmbeddedServer(ctx, *appCfg.NatsCfg)
	if err != nil {
		slog.Error("Failed to start embedded server", "err", err)
		os.Exit(1)
	}
	defer nc.Close()
	defer ns.Shutdown()

	gw := gateway.New(gateway.Config{
		BaseURL: appCfg.ServiceCfg.BaseURL,
		Timeout: appCfg.ServiceCfg.Timeout,
	})

	sys, err := platform.Setup(ctx, nc, gw)
	if err != nil {
		slog.Error("Failed to set up platform", "err", err)
		os.Exit(1)
	}

	var httpErrCh <-chan error
	if !appCfg.Flags.Headless {
		httpErrCh = platform.RunHTTPServer(ctx, sys, *appCfg.HTTPSrvCfg, *appCfg.ServiceCfg)
	} else {
		// Create a dummy channel that never sends
		ch := make(chan error)
		httpErrCh = ch
	}

	go func() {
		select {
		case err := <-natErrCh:
			slog.Error("Embedded server error", "err", err)
			cancel()
		case err := <-httpErrCh:
			slog.Error("HTTP server error", "err", err)
			cancel()
		}
	}()

	platform.Run(ctx, sys)
}
