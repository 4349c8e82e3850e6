// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/soothill/smart-home-manager/app"
	"github.com/soothill/smart-home-manager/pkg/logger"
)

// setupDebugSignalHandlers installs the operator dump signals and returns a
// function that removes them.
//
//	kill -USR1 <pid>  # log inventory, simulated sensors, discovery and spool state
//	kill -USR2 <pid>  # log goroutine stack traces
func setupDebugSignalHandlers(application *app.App) func() {
	sigs := make(chan os.Signal, 2)
	done := make(chan struct{})
	signal.Notify(sigs, syscall.SIGUSR1, syscall.SIGUSR2)

	go func() {
		for {
			select {
			case sig := <-sigs:
				logger.Debug().Str("signal", sig.String()).Msg("Debug signal received")
				if sig == syscall.SIGUSR1 {
					application.DumpApplicationState()
				} else {
					app.DumpGoroutineStackTraces()
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}
