// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package api exposes the smart home manager over HTTP. Resources are
// rendered as HAL-style JSON with _links and, for collections, _embedded.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/soothill/smart-home-manager/pkg/interfaces"
	"github.com/soothill/smart-home-manager/service"
)

// Services are the application services the handlers call
type Services struct {
	Houses   *service.HouseService
	Devices  *service.DeviceService
	Readings *service.ReadingService
	Energy   *service.EnergyService
}

// Options configure the router's cross-cutting behavior
type Options struct {
	// JWTSecret enables bearer token checks on mutating routes
	JWTSecret string
	// CORSOrigins lists the allowed origins; empty disables CORS headers
	CORSOrigins []string
	// Limiter rate limits API requests per client; nil disables it
	Limiter Limiter
	// TrustedProxies may set X-Forwarded-For; nil trusts no one
	TrustedProxies *TrustedProxies
	// Catalog lists discovered devices; nil serves an empty list
	Catalog interfaces.DeviceCatalog
	// Hub streams recorded readings over websockets; nil disables the stream
	Hub *ReadingHub
	// Checks are consulted by /ready
	Checks map[string]interfaces.HealthChecker
}

// Server holds the handler dependencies
type Server struct {
	svc  Services
	opts Options
}

// NewRouter builds the HTTP handler for every API route
func NewRouter(svc Services, opts Options) http.Handler {
	s := &Server{svc: svc, opts: opts}

	r := mux.NewRouter()
	r.StrictSlash(true)
	r.Use(accessLog, instrument)

	r.Handle("/health", limitHealth(http.HandlerFunc(s.health))).Methods(http.MethodGet)
	r.Handle("/ready", limitHealth(http.HandlerFunc(s.ready))).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	if opts.Hub != nil {
		r.Handle("/ws/readings", opts.Hub).Methods(http.MethodGet)
	}

	read := r.NewRoute().Subrouter()
	write := r.NewRoute().Subrouter()
	if opts.Limiter != nil {
		read.Use(RateLimit(opts.Limiter, opts.TrustedProxies))
		write.Use(RateLimit(opts.Limiter, opts.TrustedProxies))
	}
	if opts.JWTSecret != "" {
		write.Use(RequireToken(opts.JWTSecret))
	}
	s.routes(read, write)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "resource not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	if len(opts.CORSOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)
}

func (s *Server) routes(read, write *mux.Router) {
	get := func(path string, h http.HandlerFunc) { read.HandleFunc(path, h).Methods(http.MethodGet) }
	post := func(path string, h http.HandlerFunc) { write.HandleFunc(path, h).Methods(http.MethodPost) }
	put := func(path string, h http.HandlerFunc) { write.HandleFunc(path, h).Methods(http.MethodPut) }
	del := func(path string, h http.HandlerFunc) { write.HandleFunc(path, h).Methods(http.MethodDelete) }

	get("/houses", s.listHouses)
	post("/houses", s.createHouse)
	get("/houses/{houseId}", s.getHouse)
	put("/houses/{houseId}", s.updateHouse)
	del("/houses/{houseId}", s.deleteHouse)
	get("/houses/{houseId}/rooms", s.listRooms)
	post("/houses/{houseId}/rooms", s.createRoom)
	get("/houses/{houseId}/peak-power-consumption", s.peakPowerConsumption)
	get("/houses/{houseId}/temperature-difference", s.temperatureDifference)

	get("/rooms/{roomId}", s.getRoom)
	put("/rooms/{roomId}", s.updateRoom)
	del("/rooms/{roomId}", s.deleteRoom)
	get("/rooms/{roomId}/devices", s.listDevices)
	post("/rooms/{roomId}/devices", s.createDevice)

	get("/devices/{deviceId}", s.getDevice)
	put("/devices/{deviceId}", s.updateDevice)
	del("/devices/{deviceId}", s.deleteDevice)
	get("/devices/{deviceId}/sensors", s.listSensors)
	post("/devices/{deviceId}/sensors", s.createSensor)
	get("/devices/{deviceId}/actuators", s.listActuators)
	post("/devices/{deviceId}/actuators", s.createActuator)

	get("/sensors/{sensorId}", s.getSensor)
	del("/sensors/{sensorId}", s.deleteSensor)
	get("/sensors/{sensorId}/readings", s.listReadings)
	post("/sensors/{sensorId}/readings", s.recordReading)

	get("/actuators/{actuatorId}", s.getActuator)
	del("/actuators/{actuatorId}", s.deleteActuator)
	post("/actuators/{actuatorId}/commands", s.commandActuator)

	get("/models/sensors", s.sensorModels)
	get("/models/actuators", s.actuatorModels)
	get("/discovery/devices", s.discoveredDevices)
}
