package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dvtools/dvbatch/internal/cli"
	"github.com/dvtools/dvbatch/internal/engine/batch"
	"github.com/dvtools/dvbatch/pkg/version"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitAborted = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(version.GetVersion())
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return extractExitCode(err)
}

// extractExitCode maps a command error to the process exit code. A batch
// that stopped at a failing dataset exits with exitAborted so scripts can
// tell it apart from a run that never started.
func extractExitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var abort *batch.AbortError
	if errors.As(err, &abort) {
		return exitAborted
	}
	return exitFailure
}
