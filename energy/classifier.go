// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package energy

import (
	"sort"

	"github.com/soothill/smart-home-manager/domain"
)

// PowerDevice is a device that carries at least one power consumption sensor.
type PowerDevice struct {
	DeviceID  string
	SensorIDs []string
}

// ClassifyPowerDevices returns the devices that own a sensor of powerModel,
// each with the ids of those sensors, ordered by device id. Sensors of
// devices not in devices are ignored.
func ClassifyPowerDevices(devices []domain.Device, sensors []domain.Sensor, powerModel string) []PowerDevice {
	known := make(map[string]bool, len(devices))
	for _, d := range devices {
		known[d.ID] = true
	}

	byDevice := make(map[string][]string)
	for _, s := range sensors {
		if s.Model != powerModel || !known[s.DeviceID] {
			continue
		}
		byDevice[s.DeviceID] = append(byDevice[s.DeviceID], s.ID)
	}

	result := make([]PowerDevice, 0, len(byDevice))
	for deviceID, sensorIDs := range byDevice {
		sort.Strings(sensorIDs)
		result = append(result, PowerDevice{DeviceID: deviceID, SensorIDs: sensorIDs})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DeviceID < result[j].DeviceID })
	return result
}
