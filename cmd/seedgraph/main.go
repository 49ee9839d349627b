// Command seedgraph serves and queries seeded graph matches.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/scrypster/seedgraph/internal/server"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	server.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
