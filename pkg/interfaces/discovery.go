// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package interfaces

// DiscoveredDevice is a device found on the local network.
// This is redeclared here to avoid circular dependencies.
type DiscoveredDevice struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Address              string `json:"address"`
	Port                 int    `json:"port"`
	Hostname             string `json:"hostname,omitempty"`
	PowerMetering        bool   `json:"powerMetering"`
	SuggestedSensorModel string `json:"suggestedSensorModel,omitempty"`
}

// DeviceCatalog exposes the devices found by discovery.
type DeviceCatalog interface {
	DiscoveredDevices() []DiscoveredDevice
}
