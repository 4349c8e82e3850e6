// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package sensor

import (
	"math"
	"math/rand"
	"testing"

	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
)

func TestRegistry_BuiltinsResolve(t *testing.T) {
	r := NewRegistry()
	want := []string{
		HumidityModel, PositionModel, PowerConsumptionModel, SolarIrradianceModel,
		SwitchModel, TemperatureModel, WindSpeedModel,
	}

	names := r.Names()
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %s, want %s", i, names[i], want[i])
		}
		m, err := r.New(want[i])
		if err != nil {
			t.Fatalf("New(%s) unexpected error: %v", want[i], err)
		}
		if m.Name() != want[i] {
			t.Errorf("New(%s).Name() = %s", want[i], m.Name())
		}
		if m.Unit() == "" {
			t.Errorf("New(%s).Unit() is empty", want[i])
		}
	}
}

func TestRegistry_UnknownModel(t *testing.T) {
	_, err := NewRegistry().New("Barometer")
	if !apperrors.IsUnknownModelError(err) {
		t.Fatalf("New(Barometer) error = %v, want UnknownModelError", err)
	}
}

func TestRegistry_RegisterCustomModel(t *testing.T) {
	r := NewRegistry()
	r.Register("GridMeter", func() Model { return &PowerConsumptionSensor{Baseline: -500} })

	m, err := r.New("GridMeter")
	if err != nil {
		t.Fatalf("New(GridMeter) unexpected error: %v", err)
	}
	if m.Unit() != "W" {
		t.Errorf("Unit() = %s, want W", m.Unit())
	}
}

func TestDefault_IsShared(t *testing.T) {
	if Default() != Default() {
		t.Error("Default() should return the same registry")
	}
}

func TestModelValidate(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		model   string
		value   float64
		wantErr bool
	}{
		{PowerConsumptionModel, 250, false},
		{PowerConsumptionModel, -150, false},
		{PowerConsumptionModel, math.NaN(), true},
		{TemperatureModel, -40, false},
		{TemperatureModel, -274, true},
		{HumidityModel, 0, false},
		{HumidityModel, 100, false},
		{HumidityModel, 100.1, true},
		{SolarIrradianceModel, -1, true},
		{WindSpeedModel, 120, false},
		{WindSpeedModel, math.Inf(1), true},
		{SwitchModel, 1, false},
		{SwitchModel, 0, false},
		{SwitchModel, 0.5, true},
		{PositionModel, 101, true},
	}

	for _, tt := range tests {
		m, err := r.New(tt.model)
		if err != nil {
			t.Fatalf("New(%s): %v", tt.model, err)
		}
		got, err := m.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s.Validate(%v) error = %v, wantErr %v", tt.model, tt.value, err, tt.wantErr)
			continue
		}
		if err != nil {
			if !apperrors.IsValidationError(err) {
				t.Errorf("%s.Validate(%v) returned %T, want ValidationError", tt.model, tt.value, err)
			}
			continue
		}
		if got != tt.value {
			t.Errorf("%s.Validate(%v) = %v", tt.model, tt.value, got)
		}
	}
}

func TestModelValidate_ReasonNamesRange(t *testing.T) {
	_, err := NewHumiditySensor().Validate(150)
	if err == nil || err.(*apperrors.ValidationError).Reason != "must be between 0 and 100 %" {
		t.Errorf("unexpected error: %v", err)
	}
	_, err = NewWindSpeedSensor().Validate(-3)
	if err == nil || err.(*apperrors.ValidationError).Reason != "must be at least 0 km/h" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSimulate_StaysValid(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := NewRegistry()

	for _, name := range r.Names() {
		m, _ := r.New(name)
		value := math.NaN()
		for i := 0; i < 500; i++ {
			value = m.Simulate(rng, value)
			if _, err := m.Validate(value); err != nil {
				t.Fatalf("%s simulated invalid value %v at step %d: %v", name, value, i, err)
			}
		}
	}
}

func TestSimulate_GeneratorNeverConsumes(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	solar := &PowerConsumptionSensor{Baseline: -300}

	value := 0.0
	for i := 0; i < 1000; i++ {
		value = solar.Simulate(rng, value)
		if value > 0 {
			t.Fatalf("generator produced consumption %v at step %d", value, i)
		}
	}
}

func TestTemperatureConversions(t *testing.T) {
	boiling, err := FromCelsius(100)
	if err != nil {
		t.Fatal(err)
	}
	if boiling.Fahrenheit() != 212 {
		t.Errorf("Fahrenheit() = %v, want 212", boiling.Fahrenheit())
	}
	if math.Abs(boiling.Kelvin()-373.15) > 1e-9 {
		t.Errorf("Kelvin() = %v, want 373.15", boiling.Kelvin())
	}

	freezing, _ := FromFahrenheit(32)
	if math.Abs(freezing.Celsius()) > 1e-9 {
		t.Errorf("FromFahrenheit(32).Celsius() = %v, want 0", freezing.Celsius())
	}

	room, _ := FromKelvin(293.15)
	if math.Abs(room.Difference(freezing)-20) > 1e-9 {
		t.Errorf("Difference() = %v, want 20", room.Difference(freezing))
	}
	if freezing.Difference(room) != room.Difference(freezing) {
		t.Error("Difference() should be symmetric")
	}

	if _, err := FromKelvin(-1); !apperrors.IsValidationError(err) {
		t.Errorf("FromKelvin(-1) error = %v, want ValidationError", err)
	}
}
