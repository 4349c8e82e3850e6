// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

//go:build windows

package main

import (
	"github.com/soothill/smart-home-manager/app"
	"github.com/soothill/smart-home-manager/pkg/logger"
)

// setupDebugSignalHandlers does nothing on Windows, which has no SIGUSR1/SIGUSR2
func setupDebugSignalHandlers(_ *app.App) func() {
	logger.Debug().Msg("State and goroutine dump signals are not available on Windows")
	return func() {}
}
