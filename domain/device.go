// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package domain

import (
	"time"

	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
)

// Device is a physical appliance placed in a room. Type is a free label such as "Fridge".
type Device struct {
	ID     string `json:"deviceId"`
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
	Type   string `json:"type"`
}

// Validate checks the device invariants.
func (d *Device) Validate() error {
	if err := requireID("deviceId", d.ID); err != nil {
		return err
	}
	if err := requireID("roomId", d.RoomID); err != nil {
		return err
	}
	if err := requireName("name", d.Name); err != nil {
		return err
	}
	return requireName("type", d.Type)
}

// Sensor measures one quantity on a device. Model names an entry of the sensor registry.
type Sensor struct {
	ID        string    `json:"sensorId"`
	DeviceID  string    `json:"deviceId"`
	Name      string    `json:"name"`
	Model     string    `json:"model"`
	Unit      string    `json:"unit"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks the sensor invariants. The model itself is resolved by the registry.
func (s *Sensor) Validate() error {
	if err := requireID("sensorId", s.ID); err != nil {
		return err
	}
	if err := requireID("deviceId", s.DeviceID); err != nil {
		return err
	}
	if err := requireName("name", s.Name); err != nil {
		return err
	}
	return requireName("model", s.Model)
}

// Bounds limit the values an actuator accepts. Precision is the number of
// fractional digits kept by decimal actuators.
type Bounds struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Precision int     `json:"precision"`
}

// Validate requires Min < Max and a non-negative precision.
func (b Bounds) Validate() error {
	if b.Min >= b.Max {
		return apperrors.NewValidationError("bounds", b, "min must be lower than max")
	}
	if b.Precision < 0 {
		return apperrors.NewValidationError("bounds.precision", b.Precision, "must not be negative")
	}
	return nil
}

// Clamp restricts v to [Min, Max].
func (b Bounds) Clamp(v float64) float64 {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// Actuator changes the state of a device. Value is the last applied command.
type Actuator struct {
	ID        string    `json:"actuatorId"`
	DeviceID  string    `json:"deviceId"`
	Name      string    `json:"name"`
	Model     string    `json:"model"`
	Value     float64   `json:"value"`
	Bounds    Bounds    `json:"bounds"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the actuator invariants.
func (a *Actuator) Validate() error {
	if err := requireID("actuatorId", a.ID); err != nil {
		return err
	}
	if err := requireID("deviceId", a.DeviceID); err != nil {
		return err
	}
	if err := requireName("name", a.Name); err != nil {
		return err
	}
	if err := requireName("model", a.Model); err != nil {
		return err
	}
	return a.Bounds.Validate()
}
