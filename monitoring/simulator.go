// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package monitoring drives simulated sensors. Each simulated sensor runs in
// its own goroutine and publishes readings produced by its sensor model.
package monitoring

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/soothill/smart-home-manager/domain"
	"github.com/soothill/smart-home-manager/pkg/interfaces"
	"github.com/soothill/smart-home-manager/pkg/logger"
	"github.com/soothill/smart-home-manager/pkg/metrics"
	"github.com/soothill/smart-home-manager/sensor"
)

const defaultChannelSize = 100

// monitored is the handle of one sensor goroutine
type monitored struct {
	cancel context.CancelFunc
}

// SensorMonitor simulates sensors with their models' random walks
type SensorMonitor struct {
	registry  *sensor.Registry
	readings  chan domain.Reading
	baselines map[string]float64

	intervalMu   sync.RWMutex
	pollInterval time.Duration

	sensorMutex      sync.RWMutex
	monitoredSensors map[string]*monitored
	wg               sync.WaitGroup
	stopped          bool
}

var _ interfaces.SensorSimulator = (*SensorMonitor)(nil)

// NewSensorMonitor creates a monitor. baselines maps lower-case name
// fragments to the level power sensors with a matching name walk around;
// a negative level simulates generation.
func NewSensorMonitor(pollInterval time.Duration, registry *sensor.Registry, channelSize int, baselines map[string]float64) *SensorMonitor {
	if registry == nil {
		registry = sensor.Default()
	}
	if channelSize <= 0 {
		channelSize = defaultChannelSize
	}
	normalized := make(map[string]float64, len(baselines))
	for k, v := range baselines {
		normalized[strings.ToLower(k)] = v
	}
	return &SensorMonitor{
		registry:         registry,
		readings:         make(chan domain.Reading, channelSize),
		baselines:        normalized,
		pollInterval:     pollInterval,
		monitoredSensors: make(map[string]*monitored),
	}
}

// SetPollInterval changes the interval of running and future simulations
func (sm *SensorMonitor) SetPollInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	sm.intervalMu.Lock()
	defer sm.intervalMu.Unlock()
	sm.pollInterval = d
}

// PollInterval returns the current simulation interval
func (sm *SensorMonitor) PollInterval() time.Duration {
	sm.intervalMu.RLock()
	defer sm.intervalMu.RUnlock()
	return sm.pollInterval
}

// Sync starts simulating sensors that are new and stops the ones no longer
// listed. It returns the number of sensors started and stopped.
func (sm *SensorMonitor) Sync(ctx context.Context, sensors []domain.Sensor) (started, stopped int) {
	want := make(map[string]bool, len(sensors))
	for _, s := range sensors {
		want[s.ID] = true
		if sm.StartMonitoringSensor(ctx, s) {
			started++
		}
	}

	sm.sensorMutex.RLock()
	var gone []string
	for id := range sm.monitoredSensors {
		if !want[id] {
			gone = append(gone, id)
		}
	}
	sm.sensorMutex.RUnlock()

	for _, id := range gone {
		sm.StopMonitoringSensor(id)
	}
	return started, len(gone)
}

// StartMonitoringSensor starts simulating a sensor if it is not already
// simulated and its model is registered.
func (sm *SensorMonitor) StartMonitoringSensor(ctx context.Context, s domain.Sensor) bool {
	model, err := sm.modelFor(s)
	if err != nil {
		logger.Warn().Err(err).Str("sensor_id", s.ID).Msg("Cannot simulate sensor")
		return false
	}

	sm.sensorMutex.Lock()
	defer sm.sensorMutex.Unlock()

	if sm.stopped {
		return false
	}
	if _, exists := sm.monitoredSensors[s.ID]; exists {
		return false
	}

	sensorCtx, cancel := context.WithCancel(ctx)
	handle := &monitored{cancel: cancel}
	sm.monitoredSensors[s.ID] = handle
	metrics.SensorsSimulated.Set(float64(len(sm.monitoredSensors)))

	logger.Info().
		Str("sensor_id", s.ID).
		Str("device_id", s.DeviceID).
		Str("model", s.Model).
		Msg("Starting sensor simulation")

	sm.wg.Add(1)
	go sm.simulate(sensorCtx, handle, s, model)
	return true
}

// modelFor resolves the sensor model, applying a configured power baseline
func (sm *SensorMonitor) modelFor(s domain.Sensor) (sensor.Model, error) {
	model, err := sm.registry.New(s.Model)
	if err != nil {
		return nil, err
	}
	if power, ok := model.(*sensor.PowerConsumptionSensor); ok {
		if baseline, ok := sm.baselineFor(s.Name); ok {
			power.Baseline = baseline
		}
	}
	return model, nil
}

// baselineFor returns the baseline of the longest fragment contained in
// name. Equal lengths resolve to the alphabetically first fragment.
func (sm *SensorMonitor) baselineFor(name string) (float64, bool) {
	name = strings.ToLower(name)
	best, found := "", false
	for fragment := range sm.baselines {
		if !strings.Contains(name, fragment) {
			continue
		}
		if !found || len(fragment) > len(best) || (len(fragment) == len(best) && fragment < best) {
			best, found = fragment, true
		}
	}
	return sm.baselines[best], found
}

// StopMonitoringSensor stops simulating a specific sensor
func (sm *SensorMonitor) StopMonitoringSensor(sensorID string) {
	sm.sensorMutex.Lock()
	defer sm.sensorMutex.Unlock()

	if handle, exists := sm.monitoredSensors[sensorID]; exists {
		handle.cancel()
		delete(sm.monitoredSensors, sensorID)
		metrics.SensorsSimulated.Set(float64(len(sm.monitoredSensors)))
		logger.Info().Str("sensor_id", sensorID).Msg("Stopped sensor simulation")
	}
}

// IsMonitoring checks if a sensor is currently simulated
func (sm *SensorMonitor) IsMonitoring(sensorID string) bool {
	sm.sensorMutex.RLock()
	defer sm.sensorMutex.RUnlock()
	_, exists := sm.monitoredSensors[sensorID]
	return exists
}

// GetMonitoredSensorCount returns the number of simulated sensors
func (sm *SensorMonitor) GetMonitoredSensorCount() int {
	sm.sensorMutex.RLock()
	defer sm.sensorMutex.RUnlock()
	return len(sm.monitoredSensors)
}

// simulate produces a reading every poll interval until ctx is cancelled
func (sm *SensorMonitor) simulate(ctx context.Context, handle *monitored, s domain.Sensor, model sensor.Model) {
	defer sm.wg.Done()

	// Only remove the entry if it still belongs to this goroutine; the
	// sensor may have been stopped and started again in the meantime.
	defer func() {
		sm.sensorMutex.Lock()
		if sm.monitoredSensors[s.ID] == handle {
			delete(sm.monitoredSensors, s.ID)
			metrics.SensorsSimulated.Set(float64(len(sm.monitoredSensors)))
		}
		sm.sensorMutex.Unlock()
	}()

	rng := rand.New(rand.NewSource(seedFor(s.ID)))
	previous := math.NaN()

	interval := sm.PollInterval()
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if current := sm.PollInterval(); current > 0 && current != interval {
				interval = current
				ticker.Reset(interval)
			}

			previous = model.Simulate(rng, previous)
			reading := domain.Reading{
				DeviceID:  s.DeviceID,
				SensorID:  s.ID,
				Value:     previous,
				Timestamp: now.UTC(),
			}

			select {
			case sm.readings <- reading:
			case <-ctx.Done():
				return
			default:
				metrics.SimulatedReadingsDropped.Inc()
				logger.Warn().Str("sensor_id", s.ID).Msg("Readings channel full, dropping reading")
			}
		}
	}
}

// seedFor derives a stable seed so a sensor replays the same walk
func seedFor(sensorID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(sensorID))
	return int64(h.Sum64())
}

// Readings returns the channel of simulated readings
func (sm *SensorMonitor) Readings() <-chan domain.Reading {
	return sm.readings
}

// Stop stops all simulations and closes the readings channel
func (sm *SensorMonitor) Stop() {
	sm.sensorMutex.Lock()
	if sm.stopped {
		sm.sensorMutex.Unlock()
		return
	}
	sm.stopped = true

	for sensorID, handle := range sm.monitoredSensors {
		logger.Debug().Str("sensor_id", sensorID).Msg("Stopping sensor simulation")
		handle.cancel()
	}
	sm.sensorMutex.Unlock()

	sm.wg.Wait()

	close(sm.readings)
	metrics.SensorsSimulated.Set(0)
	logger.Info().Msg("Sensor monitor stopped, readings channel closed")
}
