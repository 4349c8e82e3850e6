// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package actuator defines the actuator model family. A model decides how a
// requested value is turned into the value actually applied to a device.
package actuator

import (
	"math"
	"sort"
	"sync"

	"github.com/soothill/smart-home-manager/domain"
	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
)

// Built-in model names.
const (
	SwitchModel      = "SwitchActuator"
	BlindRollerModel = "BlindRollerActuator"
	SetIntegerModel  = "SetIntegerActuator"
	SetDecimalModel  = "SetDecimalActuator"
	ThermostatModel  = "ThermostatActuator"
)

// Model describes one kind of actuator.
type Model interface {
	Name() string
	// Apply validates requested against bounds and returns the value to set
	Apply(bounds domain.Bounds, requested float64) (float64, error)
	// DefaultBounds are used when an actuator is created without bounds
	DefaultBounds() domain.Bounds
}

func checkFinite(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return apperrors.NewValidationError("value", v, "must be a finite number")
	}
	return nil
}

// SwitchActuator accepts only 0 (off) and 1 (on).
type SwitchActuator struct{}

func (SwitchActuator) Name() string                 { return SwitchModel }
func (SwitchActuator) DefaultBounds() domain.Bounds { return domain.Bounds{Min: 0, Max: 1} }

func (SwitchActuator) Apply(_ domain.Bounds, requested float64) (float64, error) {
	if requested != 0 && requested != 1 {
		return 0, apperrors.NewValidationError("value", requested, "must be 0 (off) or 1 (on)")
	}
	return requested, nil
}

// BlindRollerActuator sets a blind position in percent, clamped to [0, 100].
type BlindRollerActuator struct{}

func (BlindRollerActuator) Name() string                 { return BlindRollerModel }
func (BlindRollerActuator) DefaultBounds() domain.Bounds { return domain.Bounds{Min: 0, Max: 100} }

func (BlindRollerActuator) Apply(_ domain.Bounds, requested float64) (float64, error) {
	if err := checkFinite(requested); err != nil {
		return 0, err
	}
	return domain.Bounds{Min: 0, Max: 100}.Clamp(requested), nil
}

// SetIntegerActuator rounds to the nearest integer and clamps to the bounds.
type SetIntegerActuator struct{}

func (SetIntegerActuator) Name() string                 { return SetIntegerModel }
func (SetIntegerActuator) DefaultBounds() domain.Bounds { return domain.Bounds{Min: 0, Max: 100} }

func (SetIntegerActuator) Apply(bounds domain.Bounds, requested float64) (float64, error) {
	if err := checkFinite(requested); err != nil {
		return 0, err
	}
	lo, hi := math.Ceil(bounds.Min), math.Floor(bounds.Max)
	return domain.Bounds{Min: lo, Max: hi}.Clamp(math.Round(requested)), nil
}

// SetDecimalActuator rounds to bounds.Precision fractional digits and clamps to the bounds.
type SetDecimalActuator struct{}

func (SetDecimalActuator) Name() string { return SetDecimalModel }
func (SetDecimalActuator) DefaultBounds() domain.Bounds {
	return domain.Bounds{Min: 0, Max: 100, Precision: 2}
}

func (SetDecimalActuator) Apply(bounds domain.Bounds, requested float64) (float64, error) {
	if err := checkFinite(requested); err != nil {
		return 0, err
	}
	scale := math.Pow(10, float64(bounds.Precision))
	return bounds.Clamp(math.Round(requested*scale) / scale), nil
}

// ThermostatActuator sets a target temperature in °C, clamped to [5, 35]
// and to the actuator bounds when they are narrower. Half degrees are kept.
type ThermostatActuator struct{}

const (
	thermostatMin = 5.0
	thermostatMax = 35.0
)

func (ThermostatActuator) Name() string { return ThermostatModel }
func (ThermostatActuator) DefaultBounds() domain.Bounds {
	return domain.Bounds{Min: thermostatMin, Max: thermostatMax, Precision: 1}
}

func (ThermostatActuator) Apply(bounds domain.Bounds, requested float64) (float64, error) {
	if err := checkFinite(requested); err != nil {
		return 0, err
	}
	limits := domain.Bounds{
		Min: math.Max(thermostatMin, bounds.Min),
		Max: math.Min(thermostatMax, bounds.Max),
	}
	if limits.Min > limits.Max {
		limits = domain.Bounds{Min: thermostatMin, Max: thermostatMax}
	}
	return limits.Clamp(math.Round(requested*2) / 2), nil
}

// Constructor builds a model instance.
type Constructor func() Model

// Registry maps actuator model names to constructors.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// Default returns the process-wide registry holding the built-in models.
func Default() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with the built-in models registered.
func NewRegistry() *Registry {
	r := &Registry{constructors: make(map[string]Constructor)}
	r.Register(SwitchModel, func() Model { return SwitchActuator{} })
	r.Register(BlindRollerModel, func() Model { return BlindRollerActuator{} })
	r.Register(SetIntegerModel, func() Model { return SetIntegerActuator{} })
	r.Register(SetDecimalModel, func() Model { return SetDecimalActuator{} })
	r.Register(ThermostatModel, func() Model { return ThermostatActuator{} })
	return r
}

// Register adds or replaces a model constructor.
func (r *Registry) Register(name string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[name] = c
}

// New instantiates the named model.
func (r *Registry) New(name string) (Model, error) {
	r.mu.RLock()
	c, ok := r.constructors[name]
	r.mu.RUnlock()

	if !ok {
		return nil, apperrors.NewUnknownModelError("actuator", name)
	}
	return c(), nil
}

// Names lists the registered model names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
