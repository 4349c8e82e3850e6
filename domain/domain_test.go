// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package domain

import (
	"math"
	"testing"
	"time"

	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
)

func validHouse() *House {
	return &House{
		ID:   "h-1",
		Name: "Cottage",
		Location: Location{
			Address: Address{Street: "1 Lane", City: "Porto", ZipCode: "4000-001", Country: "PT"},
			GPS:     GPS{Latitude: 41.15, Longitude: -8.61, Altitude: 100},
		},
	}
}

func TestHouseValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(h *House)
		wantErr bool
		field   string
	}{
		{"valid house", func(h *House) {}, false, ""},
		{"missing id", func(h *House) { h.ID = "" }, true, "houseId"},
		{"blank name", func(h *House) { h.Name = "   " }, true, "name"},
		{"latitude too high", func(h *House) { h.Location.GPS.Latitude = 90.1 }, true, "location.gps.latitude"},
		{"longitude too low", func(h *House) { h.Location.GPS.Longitude = -180.5 }, true, "location.gps.longitude"},
		{"boundary coordinates", func(h *House) { h.Location.GPS = GPS{Latitude: -90, Longitude: 180} }, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := validHouse()
			tt.mutate(h)
			err := h.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			ve, ok := err.(*apperrors.ValidationError)
			if !ok {
				t.Fatalf("Validate() returned %T, want *ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestRoomValidateAndGeometry(t *testing.T) {
	r := &Room{ID: "r-1", HouseID: "h-1", Name: "Kitchen", Dimensions: Dimensions{Width: 4, Length: 5, Height: 2.5}}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
	if r.Dimensions.Area() != 20 {
		t.Errorf("Area() = %v, want 20", r.Dimensions.Area())
	}
	if r.Dimensions.Volume() != 50 {
		t.Errorf("Volume() = %v, want 50", r.Dimensions.Volume())
	}

	r.Dimensions.Height = 0
	if !apperrors.IsValidationError(r.Validate()) {
		t.Error("zero height should fail validation")
	}

	r.Dimensions.Height = 2
	r.HouseID = ""
	if !apperrors.IsValidationError(r.Validate()) {
		t.Error("room without house should fail validation")
	}
}

func TestDeviceAndSensorValidate(t *testing.T) {
	d := &Device{ID: "d-1", RoomID: "r-1", Name: "Fridge", Type: "Fridge"}
	if err := d.Validate(); err != nil {
		t.Errorf("device Validate() unexpected error: %v", err)
	}
	d.Type = ""
	if err := d.Validate(); err == nil {
		t.Error("device without type should fail validation")
	}

	s := &Sensor{ID: "s-1", DeviceID: "d-1", Name: "meter", Model: "PowerConsumptionSensor"}
	if err := s.Validate(); err != nil {
		t.Errorf("sensor Validate() unexpected error: %v", err)
	}
	s.Model = ""
	if err := s.Validate(); err == nil {
		t.Error("sensor without model should fail validation")
	}
}

func TestBounds(t *testing.T) {
	b := Bounds{Min: 0, Max: 100}
	if err := b.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	tests := []struct {
		in, want float64
	}{
		{-5, 0},
		{0, 0},
		{42.5, 42.5},
		{100, 100},
		{150, 100},
	}
	for _, tt := range tests {
		if got := b.Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if err := (Bounds{Min: 10, Max: 10}).Validate(); err == nil {
		t.Error("equal min and max should fail validation")
	}
	if err := (Bounds{Min: 0, Max: 1, Precision: -1}).Validate(); err == nil {
		t.Error("negative precision should fail validation")
	}
}

func TestActuatorValidate(t *testing.T) {
	a := &Actuator{ID: "a-1", DeviceID: "d-1", Name: "blind", Model: "BlindRollerActuator", Bounds: Bounds{Min: 0, Max: 100}}
	if err := a.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
	a.Bounds = Bounds{Min: 5, Max: 1}
	if err := a.Validate(); err == nil {
		t.Error("inverted bounds should fail validation")
	}
}

func TestReadingValidate(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		reading Reading
		wantErr bool
	}{
		{"consumption", Reading{DeviceID: "d", SensorID: "s", Value: 12.5, Timestamp: now}, false},
		{"generation is negative", Reading{DeviceID: "d", SensorID: "s", Value: -150, Timestamp: now}, false},
		{"NaN value", Reading{DeviceID: "d", SensorID: "s", Value: math.NaN(), Timestamp: now}, true},
		{"infinite value", Reading{DeviceID: "d", SensorID: "s", Value: math.Inf(1), Timestamp: now}, true},
		{"missing timestamp", Reading{DeviceID: "d", SensorID: "s", Value: 1}, true},
		{"missing sensor", Reading{DeviceID: "d", Value: 1, Timestamp: now}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.reading.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
