// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package domain

import (
	"math"
	"time"

	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
)

// Reading is one recorded sensor value. Positive power values are
// consumption, negative ones generation fed back to the grid.
// Readings are never modified after they are recorded.
type Reading struct {
	DeviceID  string    `json:"deviceId"`
	SensorID  string    `json:"sensorId"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks that the reading is attributable and finite.
func (r *Reading) Validate() error {
	if err := requireID("deviceId", r.DeviceID); err != nil {
		return err
	}
	if err := requireID("sensorId", r.SensorID); err != nil {
		return err
	}
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return apperrors.NewValidationError("value", r.Value, "must be a finite number")
	}
	if r.Timestamp.IsZero() {
		return apperrors.NewValidationError("timestamp", r.Timestamp, "is required")
	}
	return nil
}
