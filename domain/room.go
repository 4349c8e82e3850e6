// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package domain

import (
	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
)

// Dimensions of a room in metres.
type Dimensions struct {
	Width  float64 `json:"width"`
	Length float64 `json:"length"`
	Height float64 `json:"height"`
}

// Validate requires every dimension to be strictly positive.
func (d Dimensions) Validate() error {
	switch {
	case d.Width <= 0:
		return apperrors.NewValidationError("dimensions.width", d.Width, "must be greater than zero")
	case d.Length <= 0:
		return apperrors.NewValidationError("dimensions.length", d.Length, "must be greater than zero")
	case d.Height <= 0:
		return apperrors.NewValidationError("dimensions.height", d.Height, "must be greater than zero")
	}
	return nil
}

// Area is the floor area in square metres.
func (d Dimensions) Area() float64 {
	return d.Width * d.Length
}

// Volume in cubic metres.
func (d Dimensions) Volume() float64 {
	return d.Width * d.Length * d.Height
}

// Room is a space inside a house.
type Room struct {
	ID         string     `json:"roomId"`
	HouseID    string     `json:"houseId"`
	Name       string     `json:"name"`
	Floor      int        `json:"floor"`
	Dimensions Dimensions `json:"dimensions"`
}

// Validate checks the room invariants.
func (r *Room) Validate() error {
	if err := requireID("roomId", r.ID); err != nil {
		return err
	}
	if err := requireID("houseId", r.HouseID); err != nil {
		return err
	}
	if err := requireName("name", r.Name); err != nil {
		return err
	}
	return r.Dimensions.Validate()
}
