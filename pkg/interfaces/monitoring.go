// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package interfaces

import (
	"context"

	"github.com/soothill/smart-home-manager/domain"
)

// SensorSimulator drives simulated sensors, one goroutine per sensor.
type SensorSimulator interface {
	// StartMonitoringSensor starts simulating a sensor.
	// Returns true if simulation started, false if already running
	StartMonitoringSensor(ctx context.Context, sensor domain.Sensor) bool

	// StopMonitoringSensor stops simulating a specific sensor
	StopMonitoringSensor(sensorID string)

	// IsMonitoring checks if a sensor is currently simulated
	IsMonitoring(sensorID string) bool

	// GetMonitoredSensorCount returns the number of simulated sensors
	GetMonitoredSensorCount() int

	// Readings returns the channel of simulated readings
	Readings() <-chan domain.Reading

	// Stop stops all simulation and closes the readings channel
	Stop()
}
