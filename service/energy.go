// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soothill/smart-home-manager/domain"
	"github.com/soothill/smart-home-manager/energy"
	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
	"github.com/soothill/smart-home-manager/pkg/interfaces"
	"github.com/soothill/smart-home-manager/pkg/logger"
	"github.com/soothill/smart-home-manager/pkg/metrics"
	"github.com/soothill/smart-home-manager/sensor"
)

// EnergyService answers energy queries about a house
type EnergyService struct {
	base
	source interfaces.ReadingSource
}

// NewEnergyService creates an EnergyService. source is where readings are
// read from for aggregation; nil uses the reading repository.
func NewEnergyService(repos interfaces.Repositories, source interfaces.ReadingSource, opts ...Option) *EnergyService {
	if source == nil {
		source = repos.Readings
	}
	return &EnergyService{base: newBase(repos, opts), source: source}
}

// houseInventory returns every device and sensor of a house
func (s *EnergyService) houseInventory(ctx context.Context, houseID string) ([]domain.Device, []domain.Sensor, error) {
	rooms, err := s.repos.Rooms.ListByHouse(ctx, houseID)
	if err != nil {
		return nil, nil, err
	}

	var devices []domain.Device
	var sensors []domain.Sensor
	for _, room := range rooms {
		roomDevices, err := s.repos.Devices.ListByRoom(ctx, room.ID)
		if err != nil {
			return nil, nil, err
		}
		for _, d := range roomDevices {
			ds, err := s.repos.Sensors.ListByDevice(ctx, d.ID)
			if err != nil {
				return nil, nil, err
			}
			sensors = append(sensors, ds...)
		}
		devices = append(devices, roomDevices...)
	}
	return devices, sensors, nil
}

// PeakPowerConsumption returns the peak summed power level of the house's
// power-metering devices over [start, end) in intervals of intervalMinutes.
//
// Errors: NotFoundError for an unknown house, ValidationError for an invalid
// range, ErrNoPowerDevices when the house has no power-metering device.
func (s *EnergyService) PeakPowerConsumption(ctx context.Context, houseID string, start, end time.Time, intervalMinutes int) (energy.Peak, error) {
	began := time.Now()
	peak, err := s.peakPowerConsumption(ctx, houseID, start, end, intervalMinutes)
	metrics.PeakComputationDuration.Observe(time.Since(began).Seconds())

	switch {
	case err == nil:
		metrics.PeakComputations.WithLabelValues("ok").Inc()
	case apperrors.IsValidationError(err):
		metrics.PeakComputations.WithLabelValues("invalid").Inc()
	case apperrors.IsNotFound(err) || errors.Is(err, apperrors.ErrNoPowerDevices):
		metrics.PeakComputations.WithLabelValues("not_found").Inc()
	default:
		metrics.PeakComputations.WithLabelValues("error").Inc()
	}
	return peak, err
}

func (s *EnergyService) peakPowerConsumption(ctx context.Context, houseID string, start, end time.Time, intervalMinutes int) (energy.Peak, error) {
	if _, err := s.repos.Houses.Get(ctx, houseID); err != nil {
		return energy.Peak{}, err
	}
	if _, err := energy.Partition(start, end, intervalMinutes); err != nil {
		return energy.Peak{}, err
	}

	devices, sensors, err := s.houseInventory(ctx, houseID)
	if err != nil {
		return energy.Peak{}, fmt.Errorf("load devices of house %s: %w", houseID, err)
	}
	power := energy.ClassifyPowerDevices(devices, sensors, sensor.PowerConsumptionModel)
	if len(power) == 0 {
		return energy.Peak{}, fmt.Errorf("house %s: %w", houseID, apperrors.ErrNoPowerDevices)
	}

	peak, err := energy.PeakPowerConsumption(ctx, s.source, power, start, end, intervalMinutes)
	if err != nil {
		return energy.Peak{}, err
	}

	logger.Info().
		Str("house_id", houseID).
		Int("power_devices", len(power)).
		Int("interval_minutes", intervalMinutes).
		Bool("found", peak.Found).
		Str("peak", peak.Formatted()).
		Msg("Peak power consumption computed")
	return peak, nil
}

// TemperatureDifference returns the largest difference between an inside
// and an outside temperature sensor of a house over [start, end).
func (s *EnergyService) TemperatureDifference(ctx context.Context, houseID, insideID, outsideID string, start, end time.Time) (energy.Difference, error) {
	if _, err := s.repos.Houses.Get(ctx, houseID); err != nil {
		return energy.Difference{}, err
	}
	if !end.After(start) {
		return energy.Difference{}, apperrors.NewValidationError("", nil, energy.ErrMsgEndBeforeStart)
	}

	inside, err := s.temperatureReadings(ctx, houseID, insideID, "inside", start, end)
	if err != nil {
		return energy.Difference{}, err
	}
	outside, err := s.temperatureReadings(ctx, houseID, outsideID, "outside", start, end)
	if err != nil {
		return energy.Difference{}, err
	}

	diff, err := energy.MaxTemperatureDifference(inside, outside)
	if err != nil {
		return energy.Difference{}, fmt.Errorf("house %s: %w", houseID, err)
	}
	return diff, nil
}

// temperatureReadings loads the readings of a temperature sensor that
// belongs to the house.
func (s *EnergyService) temperatureReadings(ctx context.Context, houseID, sensorID, field string, start, end time.Time) ([]domain.Reading, error) {
	sn, err := s.repos.Sensors.Get(ctx, sensorID)
	if err != nil {
		return nil, err
	}
	if sn.Model != sensor.TemperatureModel {
		return nil, apperrors.NewValidationError(field, sensorID, "sensor must use the "+sensor.TemperatureModel+" model")
	}
	owner, err := s.houseOfDevice(ctx, sn.DeviceID)
	if err != nil {
		return nil, err
	}
	if owner != houseID {
		return nil, apperrors.NewNotFoundError("sensor", sensorID)
	}
	return s.repos.Readings.ListBySensor(ctx, sensorID, start, end)
}
