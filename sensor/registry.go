// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package sensor

import (
	"sort"
	"sync"

	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
)

// Constructor builds a fresh instance of a model.
type Constructor func() Model

// Registry maps model names to constructors.
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
	r.Register(PowerConsumptionModel, NewPowerConsumptionSensor)
	r.Register(TemperatureModel, NewTemperatureSensor)
	r.Register(HumidityModel, NewHumiditySensor)
	r.Register(SolarIrradianceModel, NewSolarIrradianceSensor)
	r.Register(WindSpeedModel, NewWindSpeedSensor)
	r.Register(SwitchModel, NewSwitchSensor)
	r.Register(PositionModel, NewPositionSensor)
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
		return nil, apperrors.NewUnknownModelError("sensor", name)
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
