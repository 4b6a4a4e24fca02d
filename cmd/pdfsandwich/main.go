package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// Manual signal handling, not signal.NotifyContext: a first Ctrl+C
	// triggers graceful shutdown through the running Job's context; a
	// second forces immediate exit rather than waiting for cleanup.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nForced exit")
		os.Exit(int(exitCtrlC))
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// RunE in run.go already printed and exited with the typed code for
		// any failure inside the Job itself; reaching here means cobra
		// rejected the invocation before run.go ever ran (bad flags, etc).
		os.Exit(int(exitBadArgs))
	}
}
