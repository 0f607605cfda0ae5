// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"spectra/cmd"
	"spectra/internal/log"
	"spectra/pkg/build"
)

// main runs in three phases:
//
// 1. Startup: build info, command line, configuration and logging.
//
// 2. Run: the selected command. Long-running commands (live capture, the
// visualiser) block until the user quits or a termination signal arrives.
//
// 3. Shutdown: every command releases its own resources (streams, sockets,
// the store) before Execute returns.
func main() {
	// ==================== STARTUP ====================

	// Development builds run without ldflags; the defaults are fine.
	if err := build.Initialize(); err != nil {
		log.Debugf("build info incomplete: %v", err)
	}

	opts, err := cmd.ParseArgs()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if opts == nil {
		// --help or --version
		return
	}

	cfg, err := cmd.LoadConfig(opts)
	if err != nil {
		log.Fatalf("%v", err)
	}
	cmd.ConfigureLogging(cfg)

	// ==================== RUN ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = cmd.Execute(ctx, opts, cfg, os.Stdout)

	// ==================== SHUTDOWN ====================

	if err != nil {
		stop()
		log.Fatalf("%s: %v", opts.Command, err)
	}
}
