// Command vulnctl fetches and searches vulnerability records from the
// command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vuln-feed/internal/cli"
	"vuln-feed/internal/handler/http/respond"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", respond.SanitizeError(err))
		os.Exit(1)
	}
}
