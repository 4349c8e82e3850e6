// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package service

import (
	"context"

	"github.com/soothill/smart-home-manager/actuator"
	"github.com/soothill/smart-home-manager/domain"
	"github.com/soothill/smart-home-manager/pkg/interfaces"
	"github.com/soothill/smart-home-manager/pkg/logger"
	"github.com/soothill/smart-home-manager/sensor"
)

// DeviceInput carries the client-settable fields of a device
type DeviceInput struct {
	Name string `json:"name" validate:"required,max=200"`
	Type string `json:"type" validate:"required,max=100"`
}

// SensorInput creates a sensor of a registered model
type SensorInput struct {
	Name  string `json:"name" validate:"required,max=200"`
	Model string `json:"model" validate:"required"`
}

// ActuatorInput creates an actuator of a registered model. Nil bounds use
// the model defaults; a nil value starts at the lower bound.
type ActuatorInput struct {
	Name   string         `json:"name" validate:"required,max=200"`
	Model  string         `json:"model" validate:"required"`
	Bounds *domain.Bounds `json:"bounds,omitempty"`
	Value  *float64       `json:"value,omitempty"`
}

// DeviceService manages devices with their sensors and actuators
type DeviceService struct {
	base
	sensors   *sensor.Registry
	actuators *actuator.Registry
}

// NewDeviceService creates a DeviceService. Nil registries use the
// process-wide defaults.
func NewDeviceService(repos interfaces.Repositories, sensors *sensor.Registry, actuators *actuator.Registry, opts ...Option) *DeviceService {
	if sensors == nil {
		sensors = sensor.Default()
	}
	if actuators == nil {
		actuators = actuator.Default()
	}
	return &DeviceService{base: newBase(repos, opts), sensors: sensors, actuators: actuators}
}

// CreateDevice adds a device to an existing room
func (s *DeviceService) CreateDevice(ctx context.Context, roomID string, in DeviceInput) (*domain.Device, error) {
	if _, err := s.repos.Rooms.Get(ctx, roomID); err != nil {
		return nil, err
	}
	device := &domain.Device{ID: s.newID(), RoomID: roomID, Name: in.Name, Type: in.Type}
	if err := device.Validate(); err != nil {
		return nil, err
	}
	if err := s.repos.Devices.Create(ctx, device); err != nil {
		return nil, err
	}
	logger.Info().Str("room_id", roomID).Str("device_id", device.ID).Str("type", device.Type).Msg("Device created")
	return device, nil
}

// GetDevice returns a device by id
func (s *DeviceService) GetDevice(ctx context.Context, id string) (*domain.Device, error) {
	return s.repos.Devices.Get(ctx, id)
}

// ListDevices returns the devices of a room
func (s *DeviceService) ListDevices(ctx context.Context, roomID string) ([]domain.Device, error) {
	if _, err := s.repos.Rooms.Get(ctx, roomID); err != nil {
		return nil, err
	}
	return s.repos.Devices.ListByRoom(ctx, roomID)
}

// UpdateDevice renames or retypes a device
func (s *DeviceService) UpdateDevice(ctx context.Context, id string, in DeviceInput) (*domain.Device, error) {
	device, err := s.repos.Devices.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	device.Name = in.Name
	device.Type = in.Type
	if err := device.Validate(); err != nil {
		return nil, err
	}
	if err := s.repos.Devices.Update(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

// DeleteDevice deletes a device with its sensors, readings and actuators
func (s *DeviceService) DeleteDevice(ctx context.Context, id string) error {
	if _, err := s.repos.Devices.Get(ctx, id); err != nil {
		return err
	}
	return s.deleteDeviceTree(ctx, id)
}

// CreateSensor attaches a sensor to a device. The unit comes from the model.
func (s *DeviceService) CreateSensor(ctx context.Context, deviceID string, in SensorInput) (*domain.Sensor, error) {
	if _, err := s.repos.Devices.Get(ctx, deviceID); err != nil {
		return nil, err
	}
	model, err := s.sensors.New(in.Model)
	if err != nil {
		return nil, err
	}
	sn := &domain.Sensor{
		ID:        s.newID(),
		DeviceID:  deviceID,
		Name:      in.Name,
		Model:     model.Name(),
		Unit:      model.Unit(),
		CreatedAt: s.now(),
	}
	if err := sn.Validate(); err != nil {
		return nil, err
	}
	if err := s.repos.Sensors.Create(ctx, sn); err != nil {
		return nil, err
	}
	logger.Info().Str("device_id", deviceID).Str("sensor_id", sn.ID).Str("model", sn.Model).Msg("Sensor created")
	return sn, nil
}

// GetSensor returns a sensor by id
func (s *DeviceService) GetSensor(ctx context.Context, id string) (*domain.Sensor, error) {
	return s.repos.Sensors.Get(ctx, id)
}

// ListSensors returns the sensors of a device
func (s *DeviceService) ListSensors(ctx context.Context, deviceID string) ([]domain.Sensor, error) {
	if _, err := s.repos.Devices.Get(ctx, deviceID); err != nil {
		return nil, err
	}
	return s.repos.Sensors.ListByDevice(ctx, deviceID)
}

// AllSensors returns every sensor of every device
func (s *DeviceService) AllSensors(ctx context.Context) ([]domain.Sensor, error) {
	return s.repos.Sensors.List(ctx)
}

// DeleteSensor deletes a sensor and its readings
func (s *DeviceService) DeleteSensor(ctx context.Context, id string) error {
	if _, err := s.repos.Sensors.Get(ctx, id); err != nil {
		return err
	}
	return s.deleteSensorTree(ctx, id)
}

// CreateActuator attaches an actuator to a device. The initial value goes
// through the model like any later command.
func (s *DeviceService) CreateActuator(ctx context.Context, deviceID string, in ActuatorInput) (*domain.Actuator, error) {
	if _, err := s.repos.Devices.Get(ctx, deviceID); err != nil {
		return nil, err
	}
	model, err := s.actuators.New(in.Model)
	if err != nil {
		return nil, err
	}

	bounds := model.DefaultBounds()
	if in.Bounds != nil {
		bounds = *in.Bounds
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}

	requested := bounds.Min
	if in.Value != nil {
		requested = *in.Value
	}
	value, err := model.Apply(bounds, requested)
	if err != nil {
		return nil, err
	}

	a := &domain.Actuator{
		ID:        s.newID(),
		DeviceID:  deviceID,
		Name:      in.Name,
		Model:     model.Name(),
		Value:     value,
		Bounds:    bounds,
		UpdatedAt: s.now(),
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := s.repos.Actuators.Create(ctx, a); err != nil {
		return nil, err
	}
	logger.Info().Str("device_id", deviceID).Str("actuator_id", a.ID).Str("model", a.Model).Msg("Actuator created")
	return a, nil
}

// GetActuator returns an actuator by id
func (s *DeviceService) GetActuator(ctx context.Context, id string) (*domain.Actuator, error) {
	return s.repos.Actuators.Get(ctx, id)
}

// ListActuators returns the actuators of a device
func (s *DeviceService) ListActuators(ctx context.Context, deviceID string) ([]domain.Actuator, error) {
	if _, err := s.repos.Devices.Get(ctx, deviceID); err != nil {
		return nil, err
	}
	return s.repos.Actuators.ListByDevice(ctx, deviceID)
}

// DeleteActuator deletes an actuator
func (s *DeviceService) DeleteActuator(ctx context.Context, id string) error {
	return s.repos.Actuators.Delete(ctx, id)
}

// CommandActuator applies a requested value through the actuator's model
// and stores the value actually set.
func (s *DeviceService) CommandActuator(ctx context.Context, id string, requested float64) (*domain.Actuator, error) {
	a, err := s.repos.Actuators.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	model, err := s.actuators.New(a.Model)
	if err != nil {
		return nil, err
	}
	value, err := model.Apply(a.Bounds, requested)
	if err != nil {
		return nil, err
	}

	a.Value = value
	a.UpdatedAt = s.now()
	if err := s.repos.Actuators.Update(ctx, a); err != nil {
		return nil, err
	}
	logger.Info().
		Str("actuator_id", id).
		Str("model", a.Model).
		Float64("requested", requested).
		Float64("value", value).
		Msg("Actuator command applied")
	return a, nil
}

// SensorModels lists the registered sensor model names
func (s *DeviceService) SensorModels() []string {
	return s.sensors.Names()
}

// ActuatorModels lists the registered actuator model names
func (s *DeviceService) ActuatorModels() []string {
	return s.actuators.Names()
}
