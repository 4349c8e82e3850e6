// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package discovery finds Matter devices on the local network via mDNS.
//
// Matter devices advertise the "_matter._tcp" service. Their TXT records
// carry a discriminator (D), vendor/product (VP) and, on most firmware, the
// list of supported clusters (C). The cluster list tells which sensor model
// a discovered device is best represented by:
//
//   - 0x0B04 Electrical Measurement / 0x0091 Electrical Power Measurement:
//     PowerConsumptionSensor
//   - 0x0402 Temperature Measurement: TemperatureSensor
//   - 0x0405 Relative Humidity Measurement: HumiditySensor
//   - 0x0102 Window Covering: PositionSensor
//   - 0x0006 On/Off: SwitchSensor
//
// Example:
//
//	scanner := discovery.NewScanner("_matter._tcp", "local.")
//	devices, err := scanner.Discover(ctx, 10*time.Second)
//	if err != nil {
//	    return err
//	}
//	for _, d := range scanner.DiscoveredDevices() {
//	    fmt.Println(d.Name, d.SuggestedSensorModel)
//	}
package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
	"github.com/soothill/smart-home-manager/pkg/interfaces"
	"github.com/soothill/smart-home-manager/pkg/logger"
	"github.com/soothill/smart-home-manager/pkg/metrics"
	"github.com/soothill/smart-home-manager/sensor"
)

// Matter cluster ids, upper-case hex without prefix
const (
	clusterOnOff                      = "0006"
	clusterWindowCovering             = "0102"
	clusterTemperatureMeasurement     = "0402"
	clusterHumidityMeasurement        = "0405"
	clusterElectricalMeasurement      = "0B04"
	clusterElectricalPowerMeasurement = "0091"
)

// clusterModels maps clusters to sensor models in order of preference
var clusterModels = []struct {
	cluster string
	model   string
}{
	{clusterElectricalMeasurement, sensor.PowerConsumptionModel},
	{clusterElectricalPowerMeasurement, sensor.PowerConsumptionModel},
	{clusterTemperatureMeasurement, sensor.TemperatureModel},
	{clusterHumidityMeasurement, sensor.HumidityModel},
	{clusterWindowCovering, sensor.PositionModel},
	{clusterOnOff, sensor.SwitchModel},
}

// Device represents a discovered Matter device
type Device struct {
	Name      string
	Address   net.IP
	Port      int
	TXTRecord map[string]string
	Hostname  string
}

// Clusters returns the normalized cluster ids listed in the C TXT record.
// Entries may be separated by commas or whitespace and may carry a 0x
// prefix; ids that are not hexadecimal are skipped.
func (d *Device) Clusters() []string {
	raw, ok := d.TXTRecord["C"]
	if !ok {
		return nil
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})

	clusters := make([]string, 0, len(fields))
	for _, f := range fields {
		if c, ok := normalizeCluster(f); ok {
			clusters = append(clusters, c)
		}
	}
	return clusters
}

func normalizeCluster(s string) (string, bool) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if s == "" || len(s) > 4 {
		return "", false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return "", false
		}
	}
	return strings.Repeat("0", 4-len(s)) + strings.ToUpper(s), true
}

// HasCluster reports whether the device lists a cluster
func (d *Device) HasCluster(cluster string) bool {
	want, ok := normalizeCluster(cluster)
	if !ok {
		return false
	}
	for _, c := range d.Clusters() {
		if c == want {
			return true
		}
	}
	return false
}

// HasPowerMeasurement checks if the device supports power measurement
func (d *Device) HasPowerMeasurement() bool {
	return d.HasCluster(clusterElectricalMeasurement) || d.HasCluster(clusterElectricalPowerMeasurement)
}

// SuggestedSensorModel returns the sensor model that best represents the
// device, or "" when none of its clusters maps to a model.
func (d *Device) SuggestedSensorModel() string {
	clusters := d.Clusters()
	for _, cm := range clusterModels {
		for _, c := range clusters {
			if c == cm.cluster {
				return cm.model
			}
		}
	}
	return ""
}

// GetDeviceID returns a unique identifier for the device
func (d *Device) GetDeviceID() string {
	if d.TXTRecord != nil {
		if id, ok := d.TXTRecord["D"]; ok && id != "" {
			return id
		}
	}
	return fmt.Sprintf("%s:%d", d.Address.String(), d.Port)
}

// toDiscovered converts the device into its API representation
func (d *Device) toDiscovered() interfaces.DiscoveredDevice {
	addr := ""
	if d.Address != nil {
		addr = d.Address.String()
	}
	return interfaces.DiscoveredDevice{
		ID:                   d.GetDeviceID(),
		Name:                 d.Name,
		Address:              addr,
		Port:                 d.Port,
		Hostname:             d.Hostname,
		PowerMetering:        d.HasPowerMeasurement(),
		SuggestedSensorModel: d.SuggestedSensorModel(),
	}
}

// Scanner handles Matter device discovery via mDNS
type Scanner struct {
	serviceType string
	domain      string
	devices     map[string]*Device
	mu          sync.RWMutex // Protects devices map
}

var _ interfaces.DeviceCatalog = (*Scanner)(nil)

// NewScanner creates a new device scanner
func NewScanner(serviceType, domain string) *Scanner {
	return &Scanner{
		serviceType: serviceType,
		domain:      domain,
		devices:     make(map[string]*Device),
	}
}

// Discover browses for devices until timeout or ctx expires and returns
// the devices seen during this scan. Devices accumulate across scans.
func (s *Scanner) Discover(ctx context.Context, timeout time.Duration) ([]*Device, error) {
	began := time.Now()
	defer func() {
		metrics.DiscoveryDuration.Observe(time.Since(began).Seconds())
	}()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, apperrors.NewDiscoveryError("create resolver", err)
	}

	// Buffered so the resolver does not block on bursts of advertisements
	entries := make(chan *zeroconf.ServiceEntry, 10)
	discovered := make([]*Device, 0)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		// zeroconf closes entries when browsing ends
		for entry := range entries {
			device := parseServiceEntry(entry)
			if device == nil {
				continue
			}
			s.add(device)
			discovered = append(discovered, device)

			logger.Info().
				Str("device_id", device.GetDeviceID()).
				Str("device_name", device.Name).
				Str("address", device.Address.String()).
				Int("port", device.Port).
				Bool("has_power_measurement", device.HasPowerMeasurement()).
				Str("suggested_model", device.SuggestedSensorModel()).
				Msg("Discovered Matter device")
		}
	}()

	discoverCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := resolver.Browse(discoverCtx, s.serviceType, s.domain, entries); err != nil {
		return nil, apperrors.NewDiscoveryError("browse "+s.serviceType, err)
	}

	<-discoverCtx.Done()
	wg.Wait()

	s.updateMetrics()
	return discovered, nil
}

func (s *Scanner) add(device *Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[device.GetDeviceID()] = device
}

func (s *Scanner) updateMetrics() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	power := 0
	for _, d := range s.devices {
		if d.HasPowerMeasurement() {
			power++
		}
	}
	metrics.DevicesDiscovered.Set(float64(len(s.devices)))
	metrics.PowerDevicesDiscovered.Set(float64(power))
}

// parseServiceEntry converts a zeroconf service entry to a Device
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Device {
	if entry == nil {
		return nil
	}
	if len(entry.AddrIPv4) == 0 && len(entry.AddrIPv6) == 0 {
		return nil
	}

	// Prefer IPv4, fallback to IPv6
	var addr net.IP
	if len(entry.AddrIPv4) > 0 {
		addr = entry.AddrIPv4[0]
	} else {
		addr = entry.AddrIPv6[0]
	}

	return &Device{
		Name:      entry.Instance,
		Address:   addr,
		Port:      entry.Port,
		TXTRecord: parseTXT(entry.Text),
		Hostname:  entry.HostName,
	}
}

func parseTXT(records []string) map[string]string {
	txt := make(map[string]string, len(records))
	for _, record := range records {
		if key, value, ok := strings.Cut(record, "="); ok && key != "" {
			txt[key] = value
		}
	}
	return txt
}

// GetDevices returns all discovered devices
func (s *Scanner) GetDevices() []*Device {
	s.mu.RLock()
	defer s.mu.RUnlock()

	devices := make([]*Device, 0, len(s.devices))
	for _, device := range s.devices {
		devices = append(devices, device)
	}
	return devices
}

// GetPowerDevices returns only devices that support power measurement
func (s *Scanner) GetPowerDevices() []*Device {
	s.mu.RLock()
	defer s.mu.RUnlock()

	powerDevices := make([]*Device, 0)
	for _, device := range s.devices {
		if device.HasPowerMeasurement() {
			powerDevices = append(powerDevices, device)
		}
	}
	return powerDevices
}

// GetDeviceByID returns a device by its ID, or nil if not found
func (s *Scanner) GetDeviceByID(deviceID string) *Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.devices[deviceID]
}

// DiscoveredDevices returns every known device ordered by id
func (s *Scanner) DiscoveredDevices() []interfaces.DiscoveredDevice {
	s.mu.RLock()
	out := make([]interfaces.DiscoveredDevice, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d.toDiscovered())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Run scans every interval until ctx is cancelled. Scan failures are
// logged, passed to onFailure when it is set, and retried on the next tick.
func (s *Scanner) Run(ctx context.Context, interval, timeout time.Duration, onFailure func(error)) {
	scan := func() {
		if _, err := s.Discover(ctx, timeout); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn().Err(err).Msg("Device discovery failed")
			if onFailure != nil {
				onFailure(err)
			}
		}
	}

	scan()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			scan()
		}
	}
}
