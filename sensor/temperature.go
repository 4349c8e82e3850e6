// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package sensor

import (
	"math"

	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
)

// AbsoluteZeroCelsius is the lowest physically possible temperature.
const AbsoluteZeroCelsius = -273.15

// Temperature is an immutable temperature value stored in degrees Celsius.
type Temperature struct {
	celsius float64
}

// FromCelsius builds a temperature from degrees Celsius.
func FromCelsius(c float64) (Temperature, error) {
	if math.IsNaN(c) || c < AbsoluteZeroCelsius {
		return Temperature{}, apperrors.NewValidationError("temperature", c, "must not be below absolute zero")
	}
	return Temperature{celsius: c}, nil
}

// FromFahrenheit builds a temperature from degrees Fahrenheit.
func FromFahrenheit(f float64) (Temperature, error) {
	return FromCelsius((f - 32) * 5 / 9)
}

// FromKelvin builds a temperature from kelvin.
func FromKelvin(k float64) (Temperature, error) {
	return FromCelsius(k + AbsoluteZeroCelsius)
}

func (t Temperature) Celsius() float64    { return t.celsius }
func (t Temperature) Fahrenheit() float64 { return t.celsius*9/5 + 32 }
func (t Temperature) Kelvin() float64     { return t.celsius - AbsoluteZeroCelsius }

// Difference is the absolute difference in degrees Celsius (equal to kelvin).
func (t Temperature) Difference(other Temperature) float64 {
	return math.Abs(t.celsius - other.celsius)
}
