// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package metrics provides Prometheus metrics for the smart home manager.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts API requests by route template, method and status code
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smarthome_http_requests_total",
		Help: "Total number of HTTP requests handled",
	}, []string{"route", "method", "status"})

	// HTTPRequestDuration tracks API latency by route template
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "smarthome_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	// RateLimitedRequests counts requests rejected by the rate limiter
	RateLimitedRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smarthome_http_rate_limited_total",
		Help: "Total number of requests rejected by rate limiting",
	})

	// ReadingsRecorded tracks the number of sensor readings accepted
	ReadingsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smarthome_readings_recorded_total",
		Help: "Total number of sensor readings recorded",
	})

	// ReadingsRejected tracks readings refused by sensor model validation
	ReadingsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smarthome_readings_rejected_total",
		Help: "Total number of sensor readings rejected by model validation",
	})

	// CurrentSensorValue holds the most recent value per sensor
	CurrentSensorValue = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "smarthome_sensor_value",
		Help: "Most recent value recorded for a sensor",
	}, []string{"sensor_id", "model"})

	// MirrorWritesTotal tracks readings written to InfluxDB
	MirrorWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smarthome_influxdb_writes_total",
		Help: "Total number of readings written to InfluxDB",
	})

	// MirrorWriteErrors tracks failed InfluxDB writes
	MirrorWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smarthome_influxdb_write_errors_total",
		Help: "Total number of failed writes to InfluxDB",
	})

	// SpooledReadings is the number of readings waiting in the local spool
	SpooledReadings = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smarthome_spooled_readings",
		Help: "Number of readings held in the local spool while InfluxDB is unavailable",
	})

	// PeakComputations counts peak power computations by outcome
	PeakComputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smarthome_peak_computations_total",
		Help: "Total number of peak power consumption computations",
	}, []string{"result"})

	// PeakComputationDuration tracks how long a peak computation takes
	PeakComputationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "smarthome_peak_computation_duration_seconds",
		Help:    "Duration of peak power consumption computations in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// SensorsSimulated is the number of sensors currently driven by the simulator
	SensorsSimulated = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smarthome_sensors_simulated",
		Help: "Number of sensors currently being simulated",
	})

	// SimulatedReadingsDropped counts readings dropped because the channel was full
	SimulatedReadingsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smarthome_simulated_readings_dropped_total",
		Help: "Total number of simulated readings dropped due to a full channel",
	})

	// DevicesDiscovered tracks the number of Matter devices found on the network
	DevicesDiscovered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smarthome_devices_discovered",
		Help: "Number of Matter devices discovered on the local network",
	})

	// PowerDevicesDiscovered tracks discovered devices with power measurement capability
	PowerDevicesDiscovered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smarthome_power_devices_discovered",
		Help: "Number of discovered Matter devices with power measurement capability",
	})

	// DiscoveryDuration tracks how long device discovery takes
	DiscoveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "smarthome_discovery_duration_seconds",
		Help:    "Duration of device discovery in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// WebsocketClients is the number of connected reading stream clients
	WebsocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smarthome_websocket_clients",
		Help: "Number of connected websocket reading stream clients",
	})
)
