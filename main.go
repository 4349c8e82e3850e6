// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/soothill/smart-home-manager/app"
	"github.com/soothill/smart-home-manager/config"
	"github.com/soothill/smart-home-manager/pkg/logger"
)

const healthCheckTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	healthCheck := flag.Bool("health-check", false, "Perform health check and exit")
	validateConfig := flag.Bool("validate-config", false, "Validate configuration file and exit")
	flag.Parse()

	if *healthCheck {
		os.Exit(performHealthCheck(*configPath))
	}

	if *validateConfig {
		os.Exit(performConfigValidation(*configPath))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Initialize("error")
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.InitializeWithFormat(cfg.Logging.Level, cfg.Logging.Format)

	logger.Info().Msg("Starting Smart Home Manager")
	logger.Info().
		Str("http_address", cfg.HTTP.Address).
		Str("database", cfg.Database.Driver).
		Bool("influxdb", cfg.InfluxDB.Enabled()).
		Bool("simulation", cfg.Simulation.Enabled).
		Bool("discovery", cfg.Discovery.Enabled).
		Msg("Configuration loaded")

	application, err := app.New(cfg, *configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create application")
	}

	stopDebug := setupDebugSignalHandlers(application)
	defer stopDebug()
	application.Run()
}

// healthURL turns the listen address into a URL reachable from this host
func healthURL(address string) (string, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return "", fmt.Errorf("invalid http address %q: %w", address, err)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/ready", nil
}

// performHealthCheck queries the readiness endpoint of a running instance
// and returns the exit code
func performHealthCheck(configPath string) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: could not load config: %v\n", err)
		return 1
	}

	url, err := healthURL(cfg.HTTP.Address)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: %s returned %d\n", url, resp.StatusCode)
		return 1
	}

	fmt.Println("Health check passed: service is ready")
	return 0
}

// performConfigValidation validates the configuration file and returns exit code
func performConfigValidation(configPath string) int {
	logger.Initialize("info")
	logger.Info().Str("path", configPath).Msg("Validating configuration file")

	if err := config.ValidateWithSchema(configPath); err != nil {
		logger.Error().Err(err).Msg("Configuration schema validation failed")
		fmt.Fprintf(os.Stderr, "\n❌ Configuration validation FAILED\n")
		return 1
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Configuration validation failed")
		fmt.Fprintf(os.Stderr, "\n❌ Configuration validation FAILED\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		return 1
	}

	fmt.Println("\n✅ Configuration validation PASSED")
	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  HTTP Address: %s\n", cfg.HTTP.Address)
	fmt.Printf("  Database Driver: %s\n", cfg.Database.Driver)
	if cfg.InfluxDB.Enabled() {
		fmt.Printf("  InfluxDB URL: %s\n", cfg.InfluxDB.URL)
		fmt.Printf("  InfluxDB Organization: %s\n", cfg.InfluxDB.Organization)
		fmt.Printf("  InfluxDB Bucket: %s\n", cfg.InfluxDB.Bucket)
		fmt.Printf("  Cache Directory: %s\n", cfg.Cache.Directory)
	} else {
		fmt.Println("  InfluxDB Mirror: Disabled")
	}
	fmt.Printf("  Energy Reading Source: %s\n", cfg.Energy.ReadingSource)
	fmt.Printf("  Log Level: %s\n", cfg.Logging.Level)
	fmt.Printf("  Simulation: %t (poll %s)\n", cfg.Simulation.Enabled, cfg.Simulation.PollInterval)
	fmt.Printf("  Discovery: %t (interval %s)\n", cfg.Discovery.Enabled, cfg.Discovery.Interval)
	if cfg.HTTP.RateLimit.Requests > 0 {
		fmt.Printf("  Rate Limit: %d per %s\n", cfg.HTTP.RateLimit.Requests, cfg.HTTP.RateLimit.Window)
	}

	if cfg.Notifications.SlackWebhookURL != "" {
		fmt.Println("  Slack Notifications: Enabled")
	} else {
		fmt.Println("  Slack Notifications: Disabled")
	}

	fmt.Println("\nAll validation checks passed. Configuration is ready for use.")
	return 0
}
