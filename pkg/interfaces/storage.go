// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package interfaces defines abstract interfaces for core system components.
// This package promotes loose coupling and testability by allowing
// dependency injection and easy mocking in tests.
package interfaces

import (
	"context"
	"time"

	"github.com/soothill/smart-home-manager/domain"
)

// ReadingSource looks up the readings a device recorded in [start, end).
type ReadingSource interface {
	ReadingsForDeviceInRange(ctx context.Context, deviceID string, start, end time.Time) ([]domain.Reading, error)
}

// HealthChecker is implemented by backends that can report their health.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HouseRepository stores houses. Create fails with a ConflictError when the
// id is taken; Get, Update and Delete fail with a NotFoundError when it is not.
type HouseRepository interface {
	Create(ctx context.Context, house *domain.House) error
	Get(ctx context.Context, id string) (*domain.House, error)
	List(ctx context.Context) ([]domain.House, error)
	Update(ctx context.Context, house *domain.House) error
	Delete(ctx context.Context, id string) error
}

// RoomRepository stores rooms.
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	Get(ctx context.Context, id string) (*domain.Room, error)
	ListByHouse(ctx context.Context, houseID string) ([]domain.Room, error)
	Update(ctx context.Context, room *domain.Room) error
	Delete(ctx context.Context, id string) error
}

// DeviceRepository stores devices.
type DeviceRepository interface {
	Create(ctx context.Context, device *domain.Device) error
	Get(ctx context.Context, id string) (*domain.Device, error)
	ListByRoom(ctx context.Context, roomID string) ([]domain.Device, error)
	Update(ctx context.Context, device *domain.Device) error
	Delete(ctx context.Context, id string) error
}

// SensorRepository stores sensors.
type SensorRepository interface {
	Create(ctx context.Context, sensor *domain.Sensor) error
	Get(ctx context.Context, id string) (*domain.Sensor, error)
	List(ctx context.Context) ([]domain.Sensor, error)
	ListByDevice(ctx context.Context, deviceID string) ([]domain.Sensor, error)
	Delete(ctx context.Context, id string) error
}

// ActuatorRepository stores actuators.
type ActuatorRepository interface {
	Create(ctx context.Context, actuator *domain.Actuator) error
	Get(ctx context.Context, id string) (*domain.Actuator, error)
	ListByDevice(ctx context.Context, deviceID string) ([]domain.Actuator, error)
	Update(ctx context.Context, actuator *domain.Actuator) error
	Delete(ctx context.Context, id string) error
}

// ReadingRepository stores sensor readings. Readings are append-only.
type ReadingRepository interface {
	ReadingSource
	Add(ctx context.Context, reading domain.Reading) error
	ListBySensor(ctx context.Context, sensorID string, start, end time.Time) ([]domain.Reading, error)
	DeleteBySensor(ctx context.Context, sensorID string) error
}

// Repositories bundles every aggregate store of one backend.
type Repositories struct {
	Houses    HouseRepository
	Rooms     RoomRepository
	Devices   DeviceRepository
	Sensors   SensorRepository
	Actuators ActuatorRepository
	Readings  ReadingRepository
}

// TaggedReading is a reading with the context a time-series store indexes it by.
type TaggedReading struct {
	domain.Reading
	HouseID string `json:"houseId,omitempty"`
	Model   string `json:"model,omitempty"`
	Unit    string `json:"unit,omitempty"`
}

// ReadingMirror copies recorded readings to a time-series store.
type ReadingMirror interface {
	HealthChecker

	// WriteReading writes a single reading
	WriteReading(ctx context.Context, reading *TaggedReading) error

	// WriteBatch writes multiple readings efficiently
	WriteBatch(ctx context.Context, readings []*TaggedReading) error

	// Flush ensures all pending writes are completed
	Flush()

	// Close gracefully shuts down the connection
	Close()
}
