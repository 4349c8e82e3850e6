// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/soothill/smart-home-manager/pkg/interfaces"
	"github.com/soothill/smart-home-manager/service"
)

// commandRequest asks an actuator to move to a value
type commandRequest struct {
	Value *float64 `json:"value" validate:"required"`
}

func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	devices, err := s.svc.Devices.ListDevices(r.Context(), roomID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeHAL(w, http.StatusOK, newCollection(roomHref(roomID)+"/devices", "devices", mapAll(devices, deviceRes)))
}

func (s *Server) createDevice(w http.ResponseWriter, r *http.Request) {
	var in service.DeviceInput
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	device, err := s.svc.Devices.CreateDevice(r.Context(), mux.Vars(r)["roomId"], in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", deviceHref(device.ID))
	writeHAL(w, http.StatusCreated, deviceRes(*device))
}

func (s *Server) getDevice(w http.ResponseWriter, r *http.Request) {
	device, err := s.svc.Devices.GetDevice(r.Context(), mux.Vars(r)["deviceId"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeHAL(w, http.StatusOK, deviceRes(*device))
}

func (s *Server) updateDevice(w http.ResponseWriter, r *http.Request) {
	var in service.DeviceInput
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	device, err := s.svc.Devices.UpdateDevice(r.Context(), mux.Vars(r)["deviceId"], in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeHAL(w, http.StatusOK, deviceRes(*device))
}

func (s *Server) deleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Devices.DeleteDevice(r.Context(), mux.Vars(r)["deviceId"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSensors(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceId"]
	sensors, err := s.svc.Devices.ListSensors(r.Context(), deviceID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeHAL(w, http.StatusOK, newCollection(deviceHref(deviceID)+"/sensors", "sensors", mapAll(sensors, sensorRes)))
}

func (s *Server) createSensor(w http.ResponseWriter, r *http.Request) {
	var in service.SensorInput
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	sn, err := s.svc.Devices.CreateSensor(r.Context(), mux.Vars(r)["deviceId"], in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", sensorHref(sn.ID))
	writeHAL(w, http.StatusCreated, sensorRes(*sn))
}

func (s *Server) getSensor(w http.ResponseWriter, r *http.Request) {
	sn, err := s.svc.Devices.GetSensor(r.Context(), mux.Vars(r)["sensorId"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeHAL(w, http.StatusOK, sensorRes(*sn))
}

func (s *Server) deleteSensor(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Devices.DeleteSensor(r.Context(), mux.Vars(r)["sensorId"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listActuators(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceId"]
	actuators, err := s.svc.Devices.ListActuators(r.Context(), deviceID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeHAL(w, http.StatusOK, newCollection(deviceHref(deviceID)+"/actuators", "actuators", mapAll(actuators, actuatorRes)))
}

func (s *Server) createActuator(w http.ResponseWriter, r *http.Request) {
	var in service.ActuatorInput
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	a, err := s.svc.Devices.CreateActuator(r.Context(), mux.Vars(r)["deviceId"], in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", actuatorHref(a.ID))
	writeHAL(w, http.StatusCreated, actuatorRes(*a))
}

func (s *Server) getActuator(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.Devices.GetActuator(r.Context(), mux.Vars(r)["actuatorId"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeHAL(w, http.StatusOK, actuatorRes(*a))
}

func (s *Server) deleteActuator(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Devices.DeleteActuator(r.Context(), mux.Vars(r)["actuatorId"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) commandActuator(w http.ResponseWriter, r *http.Request) {
	var in commandRequest
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	a, err := s.svc.Devices.CommandActuator(r.Context(), mux.Vars(r)["actuatorId"], *in.Value)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeHAL(w, http.StatusOK, actuatorRes(*a))
}

func (s *Server) sensorModels(w http.ResponseWriter, _ *http.Request) {
	writeHAL(w, http.StatusOK, newCollection("/models/sensors", "models", s.svc.Devices.SensorModels()))
}

func (s *Server) actuatorModels(w http.ResponseWriter, _ *http.Request) {
	writeHAL(w, http.StatusOK, newCollection("/models/actuators", "models", s.svc.Devices.ActuatorModels()))
}

func (s *Server) discoveredDevices(w http.ResponseWriter, _ *http.Request) {
	devices := []interfaces.DiscoveredDevice{}
	if s.opts.Catalog != nil {
		devices = s.opts.Catalog.DiscoveredDevices()
	}
	writeHAL(w, http.StatusOK, newCollection("/discovery/devices", "devices", devices))
}
