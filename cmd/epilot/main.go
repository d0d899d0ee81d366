package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/cli"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := cli.NewSession(os.Stdout, os.Stderr)
	defer session.Close()

	if err := cli.NewRootCmd(session, version).ExecuteContext(ctx); err != nil {
		session.ReportError(err)
		return 1
	}
	return 0
}
