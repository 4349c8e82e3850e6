// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package storage mirrors sensor readings into InfluxDB and spools them
// locally while InfluxDB is unreachable.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sony/gobreaker"
	"github.com/soothill/smart-home-manager/domain"
	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
	"github.com/soothill/smart-home-manager/pkg/interfaces"
	"github.com/soothill/smart-home-manager/pkg/logger"
	"github.com/soothill/smart-home-manager/pkg/metrics"
)

const (
	measurementName = "sensor_reading"
	valueField      = "value"

	breakerFailureThreshold = 5
	breakerOpenTimeout      = 30 * time.Second
)

// InfluxDBStorage writes readings to InfluxDB and reads them back for
// aggregation. Every call to the server goes through a circuit breaker.
type InfluxDBStorage struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	breaker  *gobreaker.CircuitBreaker
	bucket   string
	org      string
}

var _ interfaces.ReadingMirror = (*InfluxDBStorage)(nil)
var _ interfaces.ReadingSource = (*InfluxDBStorage)(nil)

// NewInfluxDBStorage creates a new InfluxDB storage client
func NewInfluxDBStorage(url, token, org, bucket string) (*InfluxDBStorage, error) {
	if url == "" {
		return nil, apperrors.NewConfigError("influxdb.url", url, fmt.Errorf("url is required"))
	}

	client := influxdb2.NewClient(url, token)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to InfluxDB: %w", err)
	}

	if health.Status != "pass" {
		client.Close()
		message := "unknown error"
		if health.Message != nil {
			message = *health.Message
		}
		return nil, fmt.Errorf("InfluxDB health check failed: %s", message)
	}

	logger.Info().Str("url", url).Str("status", string(health.Status)).Msg("Connected to InfluxDB")

	return &InfluxDBStorage{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		queryAPI: client.QueryAPI(org),
		breaker:  newBreaker("influxdb"),
		bucket:   bucket,
		org:      org,
	}, nil
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})
}

// execute runs fn through the breaker, translating a rejected call into
// ErrCircuitBreakerOpen.
func (s *InfluxDBStorage) execute(fn func() error) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("influxdb: %w", apperrors.ErrCircuitBreakerOpen)
	}
	return err
}

// toPoint converts a tagged reading into a line protocol point
func toPoint(reading *interfaces.TaggedReading) (*write.Point, error) {
	if reading == nil {
		return nil, fmt.Errorf("reading cannot be nil")
	}
	if err := reading.Validate(); err != nil {
		return nil, err
	}

	tags := map[string]string{
		"device_id": reading.DeviceID,
		"sensor_id": reading.SensorID,
	}
	if reading.HouseID != "" {
		tags["house_id"] = reading.HouseID
	}
	if reading.Model != "" {
		tags["model"] = reading.Model
	}
	if reading.Unit != "" {
		tags["unit"] = reading.Unit
	}

	return influxdb2.NewPoint(
		measurementName,
		tags,
		map[string]interface{}{valueField: reading.Value},
		reading.Timestamp,
	), nil
}

// WriteReading writes a single reading
func (s *InfluxDBStorage) WriteReading(ctx context.Context, reading *interfaces.TaggedReading) error {
	p, err := toPoint(reading)
	if err != nil {
		return err
	}

	err = s.execute(func() error {
		return s.writeAPI.WritePoint(ctx, p)
	})
	if err != nil {
		metrics.MirrorWriteErrors.Inc()
		return apperrors.NewStorageError("write reading", reading.SensorID, err)
	}
	metrics.MirrorWritesTotal.Inc()
	return nil
}

// WriteBatch writes multiple readings in one request
func (s *InfluxDBStorage) WriteBatch(ctx context.Context, readings []*interfaces.TaggedReading) error {
	if readings == nil {
		return fmt.Errorf("readings slice cannot be nil")
	}

	points := make([]*write.Point, 0, len(readings))
	for i, reading := range readings {
		p, err := toPoint(reading)
		if err != nil {
			return fmt.Errorf("invalid reading at index %d: %w", i, err)
		}
		points = append(points, p)
	}
	if len(points) == 0 {
		return nil
	}

	err := s.execute(func() error {
		return s.writeAPI.WritePoint(ctx, points...)
	})
	if err != nil {
		metrics.MirrorWriteErrors.Add(float64(len(points)))
		return apperrors.NewStorageError("write batch", "", err)
	}
	metrics.MirrorWritesTotal.Add(float64(len(points)))
	return nil
}

// Flush sends any points still buffered by the blocking writer
func (s *InfluxDBStorage) Flush() {
	_ = s.writeAPI.Flush(context.Background())
}

// Close closes the InfluxDB client
func (s *InfluxDBStorage) Close() {
	logger.Info().Msg("Closing InfluxDB connection")
	s.client.Close()
}

// Health reports whether InfluxDB answers its health endpoint
func (s *InfluxDBStorage) Health(ctx context.Context) error {
	return s.execute(func() error {
		health, err := s.client.Health(ctx)
		if err != nil {
			return fmt.Errorf("influxdb health: %w", err)
		}
		if health.Status != "pass" {
			return fmt.Errorf("influxdb health status %q", health.Status)
		}
		return nil
	})
}

// ReadingsForDeviceInRange returns the readings mirrored for a device in
// [start, end), ordered by time.
func (s *InfluxDBStorage) ReadingsForDeviceInRange(ctx context.Context, deviceID string, start, end time.Time) ([]domain.Reading, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device ID cannot be empty")
	}

	query := buildRangeQuery(s.bucket, deviceID, start, end)

	var readings []domain.Reading
	err := s.execute(func() error {
		result, err := s.queryAPI.Query(ctx, query)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}
		defer func() {
			_ = result.Close()
		}()

		for result.Next() {
			record := result.Record()
			value, ok := record.Value().(float64)
			if !ok {
				continue
			}
			sensorID, _ := record.ValueByKey("sensor_id").(string)
			readings = append(readings, domain.Reading{
				DeviceID:  deviceID,
				SensorID:  sensorID,
				Value:     value,
				Timestamp: record.Time(),
			})
		}
		if result.Err() != nil {
			return fmt.Errorf("query parsing failed: %w", result.Err())
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.NewStorageError("query readings", deviceID, err)
	}
	return readings, nil
}

// buildRangeQuery renders the Flux query for one device. Flux range stops
// are exclusive, which matches the half-open window.
func buildRangeQuery(bucket, deviceID string, start, end time.Time) string {
	return fmt.Sprintf(`
		from(bucket: "%s")
			|> range(start: time(v: "%s"), stop: time(v: "%s"))
			|> filter(fn: (r) => r._measurement == "%s")
			|> filter(fn: (r) => r.device_id == "%s")
			|> filter(fn: (r) => r._field == "%s")
			|> group()
			|> sort(columns: ["_time"])
	`,
		sanitizeFluxString(bucket),
		start.UTC().Format(time.RFC3339Nano),
		end.UTC().Format(time.RFC3339Nano),
		measurementName,
		sanitizeFluxString(deviceID),
		valueField,
	)
}

// sanitizeFluxString escapes a value for use inside a Flux string literal.
// Input is truncated to 1000 bytes and NUL bytes are dropped.
func sanitizeFluxString(s string) string {
	if len(s) > 1000 {
		s = s[:1000]
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '$':
			b.WriteString(`\$`)
		case 0:
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
