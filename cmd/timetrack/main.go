package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"timetrack/internal/cli"
)

var version = "dev"

func main() {
	// Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.RootCmd(version)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cli.PrintError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
