// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"noisestream/cmd"
	applog "noisestream/internal/log"
	"noisestream/pkg/build"
)

// main is the entry point for the noise generator.
//
// 1. Startup Phase:
//   - Initialize build information
//   - Route termination signals into a context
//
// 2. Run Phase:
//   - Parse command line arguments and load configuration
//   - Run the selected command until it finishes or the context is cancelled
//
// 3. Shutdown Phase:
//   - Flush buffered log entries
//   - Exit non-zero on error only; an interrupted or closed stream is a
//     normal exit
func main() {
	// ==================== STARTUP PHASE ====================

	// Development builds run without ldflags and keep the default build info.
	if err := build.Initialize(); err != nil {
		applog.Debugf("build info: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// A closed stdout must surface as a write error, not kill the process.
	signal.Ignore(syscall.SIGPIPE)

	// ==================== RUN PHASE ====================

	err := cmd.Execute(ctx)

	// ==================== SHUTDOWN PHASE ====================

	stop()
	if err != nil {
		applog.Errorf("%v", err)
		applog.Sync()
		os.Exit(1)
	}
	applog.Sync()
}
