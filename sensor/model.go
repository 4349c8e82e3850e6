// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package sensor defines the sensor model family. A model owns the unit of
// its readings, the rules a value must satisfy, and how to simulate a value
// when no hardware is attached.
package sensor

import (
	"math"
	"math/rand"
	"strconv"

	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
)

// Built-in model names.
const (
	PowerConsumptionModel = "PowerConsumptionSensor"
	TemperatureModel      = "TemperatureSensor"
	HumidityModel         = "HumiditySensor"
	SolarIrradianceModel  = "SolarIrradianceSensor"
	WindSpeedModel        = "WindSpeedSensor"
	SwitchModel           = "SwitchSensor"
	PositionModel         = "PositionSensor"
)

// Model describes one kind of sensor.
type Model interface {
	// Name is the registry key of the model
	Name() string
	// Unit of the values produced by the model
	Unit() string
	// Validate checks a raw value and returns the value to store
	Validate(value float64) (float64, error)
	// Simulate produces the next value of a random walk starting at previous
	Simulate(rng *rand.Rand, previous float64) float64
}

// rangeModel accepts values in [min, max]. Simulation walks around the
// baseline in steps of at most step, kept inside [simMin, simMax].
type rangeModel struct {
	name     string
	unit     string
	min      float64
	max      float64
	simMin   float64
	simMax   float64
	baseline float64
	step     float64
}

func (m *rangeModel) Name() string { return m.name }
func (m *rangeModel) Unit() string { return m.unit }

func (m *rangeModel) Validate(value float64) (float64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, apperrors.NewValidationError("value", value, "must be a finite number")
	}
	if value < m.min || value > m.max {
		return 0, apperrors.NewValidationError("value", value, outOfRangeReason(m.min, m.max, m.unit))
	}
	return value, nil
}

func (m *rangeModel) Simulate(rng *rand.Rand, previous float64) float64 {
	if math.IsNaN(previous) || previous < m.simMin || previous > m.simMax {
		previous = m.baseline
	}
	next := previous + (rng.Float64()*2-1)*m.step
	// drift back towards the baseline so long runs stay realistic
	next += (m.baseline - next) * 0.05
	return math.Max(m.simMin, math.Min(m.simMax, next))
}

func outOfRangeReason(min, max float64, unit string) string {
	switch {
	case math.IsInf(max, 1):
		return "must be at least " + formatBound(min) + " " + unit
	case math.IsInf(min, -1):
		return "must be at most " + formatBound(max) + " " + unit
	default:
		return "must be between " + formatBound(min) + " and " + formatBound(max) + " " + unit
	}
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// PowerConsumptionSensor reports active power in watts. Negative values are
// generation fed back to the grid, so any finite value is accepted.
type PowerConsumptionSensor struct {
	// Baseline is the level the simulation walks around. A negative
	// baseline simulates a generator such as a solar panel.
	Baseline float64
}

// NewPowerConsumptionSensor returns a consumption meter simulating a 100 W load.
func NewPowerConsumptionSensor() Model {
	return &PowerConsumptionSensor{Baseline: 100}
}

func (p *PowerConsumptionSensor) Name() string { return PowerConsumptionModel }
func (p *PowerConsumptionSensor) Unit() string { return "W" }

func (p *PowerConsumptionSensor) Validate(value float64) (float64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, apperrors.NewValidationError("value", value, "must be a finite number")
	}
	return value, nil
}

func (p *PowerConsumptionSensor) Simulate(rng *rand.Rand, previous float64) float64 {
	step := math.Abs(p.Baseline)*0.1 + 5
	if math.IsNaN(previous) || previous == 0 {
		previous = p.Baseline
	}
	next := previous + (rng.Float64()*2-1)*step
	next += (p.Baseline - next) * 0.05
	// a consumer never generates and a generator never consumes
	if p.Baseline >= 0 && next < 0 {
		next = 0
	}
	if p.Baseline < 0 && next > 0 {
		next = 0
	}
	return next
}

// NewTemperatureSensor returns a thermometer in degrees Celsius.
func NewTemperatureSensor() Model {
	return &rangeModel{
		name: TemperatureModel, unit: "°C",
		min: AbsoluteZeroCelsius, max: math.Inf(1),
		simMin: -30, simMax: 50, baseline: 20, step: 0.5,
	}
}

// NewHumiditySensor returns a relative humidity sensor.
func NewHumiditySensor() Model {
	return &rangeModel{
		name: HumidityModel, unit: "%",
		min: 0, max: 100,
		simMin: 0, simMax: 100, baseline: 50, step: 2,
	}
}

// NewSolarIrradianceSensor returns a pyranometer in W/m².
func NewSolarIrradianceSensor() Model {
	return &rangeModel{
		name: SolarIrradianceModel, unit: "W/m²",
		min: 0, max: math.Inf(1),
		simMin: 0, simMax: 1200, baseline: 400, step: 40,
	}
}

// NewWindSpeedSensor returns an anemometer in km/h.
func NewWindSpeedSensor() Model {
	return &rangeModel{
		name: WindSpeedModel, unit: "km/h",
		min: 0, max: math.Inf(1),
		simMin: 0, simMax: 150, baseline: 15, step: 3,
	}
}

// NewPositionSensor returns a position sensor reporting percent open.
func NewPositionSensor() Model {
	return &rangeModel{
		name: PositionModel, unit: "%",
		min: 0, max: 100,
		simMin: 0, simMax: 100, baseline: 50, step: 10,
	}
}

// SwitchSensor reports an on/off state as 1 or 0.
type SwitchSensor struct{}

// NewSwitchSensor returns an on/off sensor.
func NewSwitchSensor() Model {
	return SwitchSensor{}
}

func (SwitchSensor) Name() string { return SwitchModel }
func (SwitchSensor) Unit() string { return "on/off" }

func (SwitchSensor) Validate(value float64) (float64, error) {
	if value != 0 && value != 1 {
		return 0, apperrors.NewValidationError("value", value, "must be 0 (off) or 1 (on)")
	}
	return value, nil
}

// Simulate flips the state one time in ten.
func (SwitchSensor) Simulate(rng *rand.Rand, previous float64) float64 {
	state := 0.0
	if previous == 1 {
		state = 1
	}
	if rng.Float64() < 0.1 {
		return 1 - state
	}
	return state
}
