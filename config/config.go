// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package config provides configuration management for the smart home manager.
//
// Configuration is read from a YAML file, then a .env file in the working
// directory (if any) and the process environment override individual
// fields. Defaults fill whatever is still unset before validation.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
	"github.com/soothill/smart-home-manager/pkg/util"
	"gopkg.in/yaml.v3"
)

// Reading sources for energy aggregation
const (
	ReadingSourceDatabase = "database"
	ReadingSourceInfluxDB = "influxdb"
)

// Database drivers
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config represents the application configuration
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	Cache         CacheConfig         `yaml:"cache"`
	Simulation    SimulationConfig    `yaml:"simulation"`
	Discovery     DiscoveryConfig     `yaml:"discovery"`
	Energy        EnergyConfig        `yaml:"energy"`
	Logging       LoggingConfig       `yaml:"logging"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// HTTPConfig holds the API server settings
type HTTPConfig struct {
	Address         string          `yaml:"address" validate:"required"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" validate:"min=1s,max=5m"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" validate:"min=1s,max=5m"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" validate:"min=1s,max=5m"`
	JWTSecret       string          `yaml:"jwt_secret" validate:"omitempty,min=16"`
	CORSOrigins     []string        `yaml:"cors_origins" validate:"dive,required"`
	TrustedProxies  []string        `yaml:"trusted_proxies" validate:"dive,ip|cidr"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig bounds the requests one client may make per window.
// Zero requests disables rate limiting.
type RateLimitConfig struct {
	Requests int           `yaml:"requests" validate:"min=0"`
	Window   time.Duration `yaml:"window" validate:"min=1s,max=1h"`
}

// DatabaseConfig selects the primary store
type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=memory postgres"`
	DSN    string `yaml:"dsn" validate:"required_if=Driver postgres"`
}

// RedisConfig holds the Redis connection used for rate limiting. An empty
// address disables Redis.
type RedisConfig struct {
	Addr     string `yaml:"addr" validate:"omitempty,hostname_port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"min=0,max=15"`
}

// InfluxDBConfig holds InfluxDB connection settings. An empty URL disables
// the reading mirror.
type InfluxDBConfig struct {
	URL          string `yaml:"url" validate:"omitempty,url"`
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
	Bucket       string `yaml:"bucket"`
}

// Enabled reports whether InfluxDB is configured
func (c InfluxDBConfig) Enabled() bool {
	return c.URL != ""
}

// CacheConfig holds the local spool used while InfluxDB is unreachable
type CacheConfig struct {
	Directory string        `yaml:"directory" validate:"required"`
	MaxSize   int64         `yaml:"max_size" validate:"min=1048576"`
	MaxAge    time.Duration `yaml:"max_age" validate:"min=1m"`
}

// SimulationConfig controls the sensor simulator
type SimulationConfig struct {
	Enabled      bool          `yaml:"enabled"`
	PollInterval time.Duration `yaml:"poll_interval" validate:"min=100ms,max=1h"`
	SyncInterval time.Duration `yaml:"sync_interval" validate:"min=1s,max=24h"`
	ChannelSize  int           `yaml:"channel_size" validate:"min=1,max=100000"`
	// PowerBaselines maps sensor name fragments to the simulated power
	// level in watts; negative values simulate generation.
	PowerBaselines map[string]float64 `yaml:"power_baselines"`
}

// DiscoveryConfig holds Matter device discovery settings
type DiscoveryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Interval    time.Duration `yaml:"interval" validate:"min=1s,max=24h"`
	Timeout     time.Duration `yaml:"timeout" validate:"min=100ms,max=5m"`
	ServiceType string        `yaml:"service_type" validate:"required"`
	Domain      string        `yaml:"domain" validate:"required"`
}

// EnergyConfig selects where aggregation reads readings from
type EnergyConfig struct {
	ReadingSource string `yaml:"reading_source" validate:"oneof=database influxdb"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error fatal panic"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// NotificationsConfig holds alerting settings
type NotificationsConfig struct {
	SlackWebhookURL string `yaml:"slack_webhook_url" validate:"omitempty,url"`
}

// Load reads configuration from a YAML file and applies environment variable overrides
func Load(path string) (*Config, error) {
	data, err := util.ReadFileSafely(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv loads a .env file if present. Variables already set in the
// environment win.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// applyEnvironmentOverrides applies environment variable overrides to the configuration
func (c *Config) applyEnvironmentOverrides() {
	setString := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: Failed to parse %s '%s': %v\n", name, v, err)
				return
			}
			*dst = d
		}
	}
	setBool := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: Failed to parse %s '%s': %v\n", name, v, err)
				return
			}
			*dst = b
		}
	}

	setString("HTTP_ADDRESS", &c.HTTP.Address)
	setString("JWT_SECRET", &c.HTTP.JWTSecret)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.HTTP.CORSOrigins = splitList(origins)
	}
	if proxies := os.Getenv("TRUSTED_PROXIES"); proxies != "" {
		c.HTTP.TrustedProxies = splitList(proxies)
	}

	setString("DATABASE_DRIVER", &c.Database.Driver)
	setString("DATABASE_URL", &c.Database.DSN)

	setString("REDIS_ADDR", &c.Redis.Addr)
	setString("REDIS_PASSWORD", &c.Redis.Password)

	setString("INFLUXDB_URL", &c.InfluxDB.URL)
	setString("INFLUXDB_TOKEN", &c.InfluxDB.Token)
	setString("INFLUXDB_ORG", &c.InfluxDB.Organization)
	setString("INFLUXDB_BUCKET", &c.InfluxDB.Bucket)

	setString("CACHE_DIR", &c.Cache.Directory)

	setBool("SIMULATION_ENABLED", &c.Simulation.Enabled)
	setDuration("SIMULATION_POLL_INTERVAL", &c.Simulation.PollInterval)

	setBool("DISCOVERY_ENABLED", &c.Discovery.Enabled)
	setDuration("DISCOVERY_INTERVAL", &c.Discovery.Interval)

	setString("ENERGY_READING_SOURCE", &c.Energy.ReadingSource)

	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FORMAT", &c.Logging.Format)

	setString("SLACK_WEBHOOK_URL", &c.Notifications.SlackWebhookURL)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// setDefaults sets default values for configuration fields if not provided
func (c *Config) setDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 15 * time.Second
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if c.HTTP.RateLimit.Window == 0 {
		c.HTTP.RateLimit.Window = time.Minute
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverMemory
	}
	if c.Cache.Directory == "" {
		c.Cache.Directory = "/var/cache/smart-home-manager"
	}
	if c.Cache.MaxSize == 0 {
		c.Cache.MaxSize = 100 * 1024 * 1024
	}
	if c.Cache.MaxAge == 0 {
		c.Cache.MaxAge = 24 * time.Hour
	}
	if c.Simulation.PollInterval == 0 {
		c.Simulation.PollInterval = 30 * time.Second
	}
	if c.Simulation.SyncInterval == 0 {
		c.Simulation.SyncInterval = time.Minute
	}
	if c.Simulation.ChannelSize == 0 {
		c.Simulation.ChannelSize = 1000
	}
	if c.Discovery.Interval == 0 {
		c.Discovery.Interval = 5 * time.Minute
	}
	if c.Discovery.Timeout == 0 {
		c.Discovery.Timeout = 10 * time.Second
	}
	if c.Discovery.ServiceType == "" {
		c.Discovery.ServiceType = "_matter._tcp"
	}
	if c.Discovery.Domain == "" {
		c.Discovery.Domain = "local."
	}
	if c.Energy.ReadingSource == "" {
		c.Energy.ReadingSource = ReadingSourceDatabase
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

// validate is shared; validator caches struct metadata
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their YAML names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return translateValidationError(err)
	}

	if err := c.validateInfluxDB(); err != nil {
		return err
	}
	if err := c.validateDiscovery(); err != nil {
		return err
	}
	if c.Energy.ReadingSource == ReadingSourceInfluxDB && !c.InfluxDB.Enabled() {
		return apperrors.NewConfigError("energy.reading_source", c.Energy.ReadingSource,
			errors.New("influxdb reading source requires influxdb.url"))
	}
	return nil
}

// translateValidationError reports the first failing field as a ConfigError
func translateValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.NewConfigError("", "", err)
	}

	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	reason := fmt.Errorf("%w: failed %q", apperrors.ErrInvalidConfig, fe.Tag())
	if fe.Param() != "" {
		reason = fmt.Errorf("%w: failed %q (%s)", apperrors.ErrInvalidConfig, fe.Tag(), fe.Param())
	}
	if isSecret(field) {
		return apperrors.NewConfigError(field, "", reason)
	}
	return apperrors.NewConfigError(field, fmt.Sprint(fe.Value()), reason)
}

func isSecret(field string) bool {
	return strings.HasSuffix(field, "token") ||
		strings.HasSuffix(field, "password") ||
		strings.HasSuffix(field, "jwt_secret") ||
		strings.HasSuffix(field, "dsn")
}

// validateInfluxDB validates the InfluxDB configuration when it is enabled
func (c *Config) validateInfluxDB() error {
	if !c.InfluxDB.Enabled() {
		return nil
	}

	parsedURL, err := url.Parse(c.InfluxDB.URL)
	if err != nil {
		return apperrors.NewConfigError("influxdb.url", c.InfluxDB.URL, err)
	}
	if err := validateURLSecurity(parsedURL); err != nil {
		return err
	}

	if c.InfluxDB.Token == "" {
		return apperrors.NewConfigError("influxdb.token", "", errors.New("is required"))
	}
	if len(c.InfluxDB.Token) < 8 {
		return apperrors.NewConfigError("influxdb.token", "", errors.New("must be at least 8 characters long"))
	}
	if c.InfluxDB.Organization == "" {
		return apperrors.NewConfigError("influxdb.organization", "", errors.New("is required"))
	}
	if c.InfluxDB.Bucket == "" {
		return apperrors.NewConfigError("influxdb.bucket", "", errors.New("is required"))
	}
	return nil
}

// validateURLSecurity checks if the URL uses HTTPS for non-local connections
func validateURLSecurity(parsedURL *url.URL) error {
	if parsedURL.Scheme != "http" {
		return nil
	}

	hostname := strings.ToLower(parsedURL.Hostname())
	isLocal := hostname == "localhost" ||
		hostname == "127.0.0.1" ||
		hostname == "::1" ||
		strings.HasPrefix(hostname, "192.168.") ||
		strings.HasPrefix(hostname, "10.") ||
		strings.HasPrefix(hostname, "172.")

	if !isLocal {
		return apperrors.NewConfigError("influxdb.url", parsedURL.String(),
			errors.New("must use HTTPS for non-local connections"))
	}
	return nil
}

// validateDiscovery checks the discovery timings
func (c *Config) validateDiscovery() error {
	if c.Discovery.Timeout >= c.Discovery.Interval {
		return apperrors.NewConfigError("discovery.timeout", c.Discovery.Timeout.String(),
			errors.New("must be shorter than discovery.interval"))
	}
	return nil
}

// ReloadableChanged reports whether a reload changes settings that can be
// applied without a restart.
func (c *Config) ReloadableChanged(next *Config) bool {
	return c.Logging.Level != next.Logging.Level ||
		c.Simulation.PollInterval != next.Simulation.PollInterval ||
		c.Notifications.SlackWebhookURL != next.Notifications.SlackWebhookURL
}
