// Command ideenfinder turns a short product idea into a structured project plan.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"ideenfinder/pkg/logx"
)

func main() {
	// run returns the exit code so deferred cleanup happens before os.Exit.
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd(newApp(stdout, os.Stdin))
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		if logx.IsDebugEnabled() {
			fmt.Fprintln(stderr, "\nRecent log entries:")
			logx.DumpRecent(stderr)
		}
		return 1
	}
	return 0
}
