// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package config

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/soothill/smart-home-manager/pkg/logger"
)

// Watcher reloads the configuration file on SIGHUP and delivers every
// configuration that loads and validates.
type Watcher struct {
	path       string
	configChan chan<- *Config
	reloadChan chan os.Signal
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// NewWatcher creates a new configuration watcher.
func NewWatcher(path string, configChan chan<- *Config) *Watcher {
	return &Watcher{
		path:       path,
		configChan: configChan,
		reloadChan: make(chan os.Signal, 1),
		done:       make(chan struct{}),
	}
}

// Start begins watching for SIGHUP signals to trigger a configuration reload.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancelFunc = context.WithCancel(ctx)
	signal.Notify(w.reloadChan, syscall.SIGHUP)

	go w.watch(ctx)
}

// Stop stops the watcher and waits for it to exit.
func (w *Watcher) Stop() {
	if w.cancelFunc == nil {
		return
	}
	w.cancelFunc()
	signal.Stop(w.reloadChan)
	<-w.done
}

// Reload loads the configuration now, as if SIGHUP had been received.
func (w *Watcher) Reload() {
	select {
	case w.reloadChan <- syscall.SIGHUP:
	default:
	}
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.reloadChan:
			logger.Info().Str("path", w.path).Msg("Reloading configuration")
			cfg, err := Load(w.path)
			if err != nil {
				logger.Error().Err(err).Msg("Failed to reload configuration, keeping the current one")
				continue
			}
			select {
			case w.configChan <- cfg:
				logger.Info().Msg("Configuration reloaded successfully")
			case <-ctx.Done():
				return
			}
		}
	}
}
