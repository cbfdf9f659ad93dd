// SmartEgg Core - egg incubation monitoring engine.
//
// The smartegg binary runs the HTTP/WebSocket API, the sensor ingestion
// pipeline, the stage watcher and the notification channels (serve), and
// manages the SQLite schema (migrate).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/smartegg/smartegg-core/migrations"
)

// Version information, set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// getConfigPath returns SMARTEGG_CONFIG when set, else the default path.
func getConfigPath() string {
	if path := os.Getenv("SMARTEGG_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
