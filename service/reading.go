// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package service

import (
	"context"
	"time"

	"github.com/soothill/smart-home-manager/domain"
	"github.com/soothill/smart-home-manager/energy"
	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
	"github.com/soothill/smart-home-manager/pkg/interfaces"
	"github.com/soothill/smart-home-manager/pkg/logger"
	"github.com/soothill/smart-home-manager/pkg/metrics"
	"github.com/soothill/smart-home-manager/sensor"
)

// ReadingInput is a value reported for a sensor. A nil timestamp means now.
type ReadingInput struct {
	Value     *float64   `json:"value" validate:"required"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// ReadingPublisher receives every recorded reading
type ReadingPublisher interface {
	Publish(reading domain.Reading)
}

// ReadingService records and lists sensor readings
type ReadingService struct {
	base
	sensors   *sensor.Registry
	mirror    interfaces.ReadingMirror
	publisher ReadingPublisher
}

// NewReadingService creates a ReadingService. mirror and publisher are
// optional.
func NewReadingService(repos interfaces.Repositories, sensors *sensor.Registry, mirror interfaces.ReadingMirror, publisher ReadingPublisher, opts ...Option) *ReadingService {
	if sensors == nil {
		sensors = sensor.Default()
	}
	return &ReadingService{
		base:      newBase(repos, opts),
		sensors:   sensors,
		mirror:    mirror,
		publisher: publisher,
	}
}

// Record validates a value with the sensor's model and stores it
func (s *ReadingService) Record(ctx context.Context, sensorID string, in ReadingInput) (*domain.Reading, error) {
	if in.Value == nil {
		metrics.ReadingsRejected.Inc()
		return nil, apperrors.NewValidationError("value", nil, "is required")
	}
	sn, err := s.repos.Sensors.Get(ctx, sensorID)
	if err != nil {
		return nil, err
	}

	ts := s.now()
	if in.Timestamp != nil {
		ts = in.Timestamp.UTC()
	}
	return s.record(ctx, sn, *in.Value, ts)
}

// RecordReading stores a reading produced inside the process, such as by
// the simulator.
func (s *ReadingService) RecordReading(ctx context.Context, r domain.Reading) (*domain.Reading, error) {
	sn, err := s.repos.Sensors.Get(ctx, r.SensorID)
	if err != nil {
		return nil, err
	}
	return s.record(ctx, sn, r.Value, r.Timestamp)
}

func (s *ReadingService) record(ctx context.Context, sn *domain.Sensor, value float64, ts time.Time) (*domain.Reading, error) {
	model, err := s.sensors.New(sn.Model)
	if err != nil {
		return nil, err
	}
	value, err = model.Validate(value)
	if err != nil {
		metrics.ReadingsRejected.Inc()
		return nil, err
	}

	reading := domain.Reading{
		DeviceID:  sn.DeviceID,
		SensorID:  sn.ID,
		Value:     value,
		Timestamp: ts,
	}
	if err := reading.Validate(); err != nil {
		metrics.ReadingsRejected.Inc()
		return nil, err
	}
	if err := s.repos.Readings.Add(ctx, reading); err != nil {
		return nil, err
	}

	metrics.ReadingsRecorded.Inc()
	metrics.CurrentSensorValue.WithLabelValues(sn.ID, sn.Model).Set(value)

	logger.Debug().
		Str("device_id", sn.DeviceID).
		Str("sensor_id", sn.ID).
		Str("model", sn.Model).
		Float64("value", value).
		Time("timestamp", ts).
		Msg("Reading recorded")

	s.mirrorReading(ctx, sn, reading)
	if s.publisher != nil {
		s.publisher.Publish(reading)
	}
	return &reading, nil
}

// mirrorReading copies a stored reading to the time-series mirror. Mirror
// failures are logged; the reading is already stored.
func (s *ReadingService) mirrorReading(ctx context.Context, sn *domain.Sensor, reading domain.Reading) {
	if s.mirror == nil {
		return
	}
	houseID, err := s.houseOfDevice(ctx, sn.DeviceID)
	if err != nil {
		logger.Warn().Err(err).Str("device_id", sn.DeviceID).Msg("Failed to resolve house for mirrored reading")
	}
	tagged := &interfaces.TaggedReading{
		Reading: reading,
		HouseID: houseID,
		Model:   sn.Model,
		Unit:    sn.Unit,
	}
	if err := s.mirror.WriteReading(ctx, tagged); err != nil {
		logger.Error().Err(err).Str("sensor_id", sn.ID).Msg("Failed to mirror reading")
	}
}

// List returns the readings of a sensor in [start, end)
func (s *ReadingService) List(ctx context.Context, sensorID string, start, end time.Time) ([]domain.Reading, error) {
	if !end.After(start) {
		return nil, apperrors.NewValidationError("", nil, energy.ErrMsgEndBeforeStart)
	}
	if _, err := s.repos.Sensors.Get(ctx, sensorID); err != nil {
		return nil, err
	}
	return s.repos.Readings.ListBySensor(ctx, sensorID, start, end)
}
