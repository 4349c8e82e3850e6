// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package domain

import (
	"time"

	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
)

// Address is the postal address of a house.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

// GPS is a WGS84 position.
type GPS struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}

// Validate checks the coordinate ranges.
func (g GPS) Validate() error {
	if g.Latitude < -90 || g.Latitude > 90 {
		return apperrors.NewValidationError("location.gps.latitude", g.Latitude, "must be between -90 and 90")
	}
	if g.Longitude < -180 || g.Longitude > 180 {
		return apperrors.NewValidationError("location.gps.longitude", g.Longitude, "must be between -180 and 180")
	}
	return nil
}

// Location combines a postal address and a GPS position.
type Location struct {
	Address Address `json:"address"`
	GPS     GPS     `json:"gps"`
}

// House is the root aggregate. Rooms, and through them devices, belong to a house.
type House struct {
	ID        string    `json:"houseId"`
	Name      string    `json:"name"`
	Location  Location  `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks the house invariants.
func (h *House) Validate() error {
	if err := requireID("houseId", h.ID); err != nil {
		return err
	}
	if err := requireName("name", h.Name); err != nil {
		return err
	}
	return h.Location.GPS.Validate()
}
