// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package app wires the smart home manager together: stores, services, the
// HTTP API, the sensor simulator, device discovery and the InfluxDB mirror.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/soothill/smart-home-manager/api"
	"github.com/soothill/smart-home-manager/config"
	"github.com/soothill/smart-home-manager/discovery"
	"github.com/soothill/smart-home-manager/monitoring"
	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
	"github.com/soothill/smart-home-manager/pkg/interfaces"
	"github.com/soothill/smart-home-manager/pkg/logger"
	"github.com/soothill/smart-home-manager/pkg/slacknotifier"
	"github.com/soothill/smart-home-manager/sensor"
	"github.com/soothill/smart-home-manager/service"
	"github.com/soothill/smart-home-manager/storage"
	"github.com/soothill/smart-home-manager/storage/memory"
	"github.com/soothill/smart-home-manager/storage/postgres"
)

const (
	signalChannelSize   = 1
	alertContextTimeout = 5 * time.Second
	migrateTimeout      = 30 * time.Second
	flushTimeout        = 10 * time.Second
	syncQueryTimeout    = 10 * time.Second
)

// App represents the main application
type App struct {
	cfgMu sync.RWMutex
	cfg   *config.Config

	server   *http.Server
	services api.Services
	db       *sql.DB
	redis    *redis.Client
	influxDB *storage.InfluxDBStorage
	mirror   *storage.CachingStorage
	notifier *slacknotifier.Notifier
	alerts   *slacknotifier.MirrorAlerts
	hub      *api.ReadingHub
	monitor  *monitoring.SensorMonitor
	scanner  *discovery.Scanner

	configWatcher *config.Watcher
	configChan    chan *config.Config
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
	shutdownOnce  sync.Once
}

// New creates a new application instance. configPath is watched for
// reloads on SIGHUP.
func New(cfg *config.Config, configPath string) (*App, error) {
	a := &App{cfg: cfg}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	a.notifier = slacknotifier.New(cfg.Notifications.SlackWebhookURL)
	a.alerts = slacknotifier.NewMirrorAlerts(a.notifier)
	if a.notifier.IsEnabled() {
		logger.Info().Msg("Slack notifications enabled")
	} else {
		logger.Info().Msg("Slack notifications disabled (no webhook URL configured)")
	}

	if err := a.initializeComponents(); err != nil {
		a.closeBackends()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	a.configChan = make(chan *config.Config)
	a.configWatcher = config.NewWatcher(configPath, a.configChan)
	return a, nil
}

// initializeComponents builds every component from the configuration
func (a *App) initializeComponents() error {
	cfg := a.cfg
	checks := map[string]interfaces.HealthChecker{}

	repos, err := a.openRepositories(checks)
	if err != nil {
		return err
	}

	var mirror interfaces.ReadingMirror
	var source interfaces.ReadingSource
	if cfg.InfluxDB.Enabled() {
		if err := a.openMirror(); err != nil {
			return err
		}
		mirror = a.mirror
		checks["influxdb"] = a.influxDB
		if cfg.Energy.ReadingSource == config.ReadingSourceInfluxDB {
			source = a.influxDB
		}
	}

	sensors := sensor.Default()
	a.hub = api.NewReadingHub(cfg.HTTP.CORSOrigins)
	a.services = api.Services{
		Houses:   service.NewHouseService(repos),
		Devices:  service.NewDeviceService(repos, sensors, nil),
		Readings: service.NewReadingService(repos, sensors, mirror, a.hub),
		Energy:   service.NewEnergyService(repos, source),
	}

	var limiter api.Limiter
	if cfg.HTTP.RateLimit.Requests > 0 {
		limiter = a.newLimiter(checks)
	}

	var catalog interfaces.DeviceCatalog
	if cfg.Discovery.Enabled {
		a.scanner = discovery.NewScanner(cfg.Discovery.ServiceType, cfg.Discovery.Domain)
		catalog = a.scanner
	}

	if cfg.Simulation.Enabled {
		a.monitor = monitoring.NewSensorMonitor(cfg.Simulation.PollInterval, sensors, cfg.Simulation.ChannelSize, cfg.Simulation.PowerBaselines)
	}

	proxies, err := api.NewTrustedProxies(cfg.HTTP.TrustedProxies)
	if err != nil {
		return fmt.Errorf("http.trusted_proxies: %w", err)
	}

	router := api.NewRouter(a.services, api.Options{
		JWTSecret:      cfg.HTTP.JWTSecret,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		Limiter:        limiter,
		TrustedProxies: proxies,
		Catalog:        catalog,
		Hub:            a.hub,
		Checks:         checks,
	})
	a.server = &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
	return nil
}

// openRepositories returns the configured primary store
func (a *App) openRepositories(checks map[string]interfaces.HealthChecker) (interfaces.Repositories, error) {
	if a.cfg.Database.Driver != config.DriverPostgres {
		logger.Info().Msg("Using in-memory store; data is lost on restart")
		return memory.New(), nil
	}

	db, err := postgres.Open(a.cfg.Database.DSN)
	if err != nil {
		return interfaces.Repositories{}, err
	}
	a.db = db

	ctx, cancel := context.WithTimeout(a.ctx, migrateTimeout)
	defer cancel()
	if err := postgres.Migrate(ctx, db); err != nil {
		return interfaces.Repositories{}, fmt.Errorf("failed to migrate database: %w", err)
	}
	checks["database"] = postgres.HealthChecker{DB: db}
	logger.Info().Msg("PostgreSQL store ready")
	return postgres.New(db), nil
}

// openMirror connects InfluxDB behind the local spool
func (a *App) openMirror() error {
	cfg := a.cfg
	influxDB, err := storage.NewInfluxDBStorage(cfg.InfluxDB.URL, cfg.InfluxDB.Token, cfg.InfluxDB.Organization, cfg.InfluxDB.Bucket)
	if err != nil {
		return fmt.Errorf("failed to initialize InfluxDB: %w", err)
	}
	a.influxDB = influxDB

	cache, err := storage.NewLocalCache(cfg.Cache.Directory, cfg.Cache.MaxSize, cfg.Cache.MaxAge)
	if err != nil {
		return fmt.Errorf("failed to initialize local cache: %w", err)
	}
	logger.Info().Str("directory", cfg.Cache.Directory).
		Int64("max_size_mb", cfg.Cache.MaxSize/(1024*1024)).
		Dur("max_age", cfg.Cache.MaxAge).
		Msg("Local cache initialized")

	a.mirror = storage.NewCachingStorage(influxDB, cache, a.alerts, 0)
	return nil
}

// newLimiter uses Redis when configured so that limits hold across
// instances, and an in-process limiter otherwise
func (a *App) newLimiter(checks map[string]interfaces.HealthChecker) api.Limiter {
	rl := a.cfg.HTTP.RateLimit
	if a.cfg.Redis.Addr == "" {
		logger.Info().Int("requests", rl.Requests).Dur("window", rl.Window).Msg("Using in-process rate limiter")
		return api.NewLocalRateLimiter(rl.Requests, rl.Window)
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	limiter := api.NewRedisRateLimiter(a.redis, rl.Requests, rl.Window)
	checks["redis"] = limiter
	logger.Info().Str("addr", a.cfg.Redis.Addr).Int("requests", rl.Requests).Dur("window", rl.Window).
		Msg("Using Redis rate limiter")
	return limiter
}

// Handler returns the HTTP handler serving the API
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Config returns the active configuration
func (a *App) Config() *config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.cfg
}

// Run starts the application and blocks until shutdown
func (a *App) Run() {
	a.configWatcher.Start(a.ctx)

	a.startHTTPServer()
	a.setupSignalHandler()
	a.startConfigUpdater()
	if a.monitor != nil {
		a.startDataWriter()
		a.startSensorSync()
	}
	if a.scanner != nil {
		a.startDiscovery()
	}

	<-a.ctx.Done()
	logger.Info().Msg("Shutting down")
	a.performCleanup()
}

// startHTTPServer serves the API until shutdown
func (a *App) startHTTPServer() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		logger.Info().Str("addr", a.server.Addr).Msg("Starting HTTP API server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server failed")
			a.Shutdown()
		}
	}()
}

// startDataWriter records every simulated reading through the reading
// service so that it is validated, stored, mirrored and streamed
func (a *App) startDataWriter() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for reading := range a.monitor.Readings() {
			if _, err := a.services.Readings.RecordReading(a.ctx, reading); err != nil {
				if apperrors.IsNotFound(err) {
					// The sensor was deleted after the reading was produced.
					logger.Debug().Str("sensor_id", reading.SensorID).Msg("Dropping reading for deleted sensor")
					continue
				}
				logger.Error().Err(err).Str("sensor_id", reading.SensorID).Msg("Failed to record simulated reading")
			}
		}
		logger.Info().Msg("Readings channel closed, data writer exiting")
	}()
}

// startSensorSync keeps the simulator in step with the sensor inventory
func (a *App) startSensorSync() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.SyncSensors(a.ctx)

		ticker := time.NewTicker(a.Config().Simulation.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-a.ctx.Done():
				logger.Info().Msg("Sensor sync goroutine shutting down")
				return
			case <-ticker.C:
				a.SyncSensors(a.ctx)
			}
		}
	}()
}

// SyncSensors starts simulating new sensors and stops deleted ones
func (a *App) SyncSensors(ctx context.Context) {
	if a.monitor == nil {
		return
	}
	queryCtx, cancel := context.WithTimeout(ctx, syncQueryTimeout)
	sensors, err := a.services.Devices.AllSensors(queryCtx)
	cancel()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list sensors for simulation")
		return
	}

	started, stopped := a.monitor.Sync(ctx, sensors)
	if started > 0 || stopped > 0 {
		logger.Info().
			Int("started", started).
			Int("stopped", stopped).
			Int("simulated", a.monitor.GetMonitoredSensorCount()).
			Msg("Simulated sensors synchronized")
	}
}

// startDiscovery browses for Matter devices in the background
func (a *App) startDiscovery() {
	cfg := a.Config().Discovery
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		logger.Info().Dur("interval", cfg.Interval).Str("service_type", cfg.ServiceType).Msg("Starting device discovery")
		a.scanner.Run(a.ctx, cfg.Interval, cfg.Timeout, a.alertDiscoveryFailure)
		logger.Info().Msg("Discovery goroutine shutting down")
	}()
}

func (a *App) alertDiscoveryFailure(err error) {
	if !a.alerts.IsEnabled() {
		return
	}
	alertCtx, alertCancel := context.WithTimeout(context.Background(), alertContextTimeout)
	defer alertCancel()
	if notifyErr := a.alerts.SendDiscoveryFailure(alertCtx, err); notifyErr != nil {
		logger.Error().Err(notifyErr).Msg("Failed to send discovery failure alert")
	}
}

// setupSignalHandler sets up graceful shutdown on interrupt signals
func (a *App) setupSignalHandler() {
	sigChan := make(chan os.Signal, signalChannelSize)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			a.Shutdown()
		case <-a.ctx.Done():
		}
		signal.Stop(sigChan)
	}()
}

// startConfigUpdater applies configurations delivered by the watcher
func (a *App) startConfigUpdater() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for {
			select {
			case <-a.ctx.Done():
				logger.Info().Msg("Config watcher goroutine shutting down")
				return
			case newCfg := <-a.configChan:
				a.UpdateConfig(newCfg)
			}
		}
	}()
}

// UpdateConfig applies the settings that can change without a restart:
// log level, simulation poll interval and the Slack webhook. Other
// changes are logged and take effect on the next start.
func (a *App) UpdateConfig(newCfg *config.Config) {
	a.cfgMu.Lock()
	old := a.cfg
	a.cfg = newCfg
	a.cfgMu.Unlock()

	if !old.ReloadableChanged(newCfg) {
		logger.Info().Msg("Configuration reloaded; no settings that apply at runtime changed")
		return
	}

	logger.SetLevel(newCfg.Logging.Level)
	if a.monitor != nil {
		a.monitor.SetPollInterval(newCfg.Simulation.PollInterval)
	}
	a.notifier.UpdateWebhookURL(newCfg.Notifications.SlackWebhookURL)
	logger.Info().
		Str("log_level", newCfg.Logging.Level).
		Dur("poll_interval", newCfg.Simulation.PollInterval).
		Bool("slack_enabled", a.notifier.IsEnabled()).
		Msg("Application configuration updated")
}

// Shutdown stops accepting requests and stops every background component.
// Run returns once cleanup has finished.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(a.performGracefulShutdown)
}

// performGracefulShutdown handles graceful shutdown of all components
func (a *App) performGracefulShutdown() {
	logger.Info().Msg("Initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.Config().HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server stopped")
	}

	a.hub.Close()
	if a.monitor != nil {
		a.monitor.Stop()
	}
	a.configWatcher.Stop()
	a.cancel()
}

// performCleanup waits for goroutines, flushes the mirror and closes
// the backends
func (a *App) performCleanup() {
	logger.Info().Msg("Waiting for goroutines to finish...")
	a.wg.Wait()

	if a.mirror != nil {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), flushTimeout)
		defer flushCancel()

		flushDone := make(chan struct{})
		go func() {
			a.mirror.Flush()
			close(flushDone)
		}()

		select {
		case <-flushDone:
			logger.Info().Msg("InfluxDB flush completed")
		case <-flushCtx.Done():
			logger.Warn().Msg("InfluxDB flush timeout - some data may be lost")
		}
	}

	a.closeBackends()
	logger.Info().Msg("All goroutines finished, exiting")
}

// closeBackends releases connections opened by initializeComponents
func (a *App) closeBackends() {
	switch {
	case a.mirror != nil:
		a.mirror.Close()
	case a.influxDB != nil:
		a.influxDB.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close database")
		}
	}
}

// DumpApplicationState dumps current application state to logs
func (a *App) DumpApplicationState() {
	logger.Info().Msg("=== APPLICATION STATE DUMP (SIGUSR1) ===")
	ctx, cancel := context.WithTimeout(context.Background(), syncQueryTimeout)
	defer cancel()

	houses, err := a.services.Houses.ListHouses(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to list houses")
	}
	sensors, err := a.services.Devices.AllSensors(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to list sensors")
	}
	logger.Info().
		Int("houses", len(houses)).
		Int("sensors", len(sensors)).
		Msg("Inventory state")

	if a.monitor != nil {
		logger.Info().
			Int("simulated_sensors", a.monitor.GetMonitoredSensorCount()).
			Dur("poll_interval", a.monitor.PollInterval()).
			Msg("Simulation state")
		for _, s := range sensors {
			logger.Info().
				Str("sensor_id", s.ID).
				Str("model", s.Model).
				Bool("is_simulated", a.monitor.IsMonitoring(s.ID)).
				Msg("Sensor simulation status")
		}
	}

	if a.scanner != nil {
		for _, device := range a.scanner.GetDevices() {
			logger.Info().
				Str("device_id", device.GetDeviceID()).
				Str("device_name", device.Name).
				Str("address", device.Address.String()).
				Int("port", device.Port).
				Bool("has_power_measurement", device.HasPowerMeasurement()).
				Msg("Discovered device")
		}
	}

	if a.mirror != nil {
		logger.Info().Bool("spooling", a.mirror.Spooling()).Msg("InfluxDB mirror state")
	}
	logger.Info().Int("websocket_clients", a.hub.ClientCount()).Msg("Reading stream state")

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	logger.Info().
		Uint64("alloc_mb", m.Alloc/1024/1024).
		Uint64("total_alloc_mb", m.TotalAlloc/1024/1024).
		Uint32("num_gc", m.NumGC).
		Int("num_goroutines", runtime.NumGoroutine()).
		Msg("Runtime statistics")

	logger.Info().Msg("=== END STATE DUMP ===")
}

// DumpGoroutineStackTraces dumps all goroutine stack traces to logs
func DumpGoroutineStackTraces() {
	logger.Info().Msg("=== GOROUTINE STACK TRACES (SIGUSR2) ===")
	logger.Info().Int("num_goroutines", runtime.NumGoroutine()).Msg("Current goroutine count")

	buf := make([]byte, 1024*1024)
	stackLen := runtime.Stack(buf, true)
	logger.Info().Str("stack_traces", string(buf[:stackLen])).Msg("Full stack trace")

	logger.Info().Msg("=== END STACK TRACES ===")
}
