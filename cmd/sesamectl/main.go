// sesamectl is the command-line host for the Sesame unlock engine.
//
// Usage:
//
//	sesamectl [flags] <command> [args]
//
// Commands:
//
//	status                      Show enrolled modalities and storage
//	reset --yes                 Delete every enrolled pattern
//	inspect <modality>          Print a stored fingerprint
//	color enroll|unlock R G B   Enroll or unlock with a mixed color
//	shape enroll|unlock T:X:Y…  Enroll or unlock with shapes on the grid
//	run [--replay]              Drive a session from an event stream
//	config init|show            Manage the configuration file
//
// Every command loads the configuration, opens the configured pattern store
// and drives a session controller headlessly.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
