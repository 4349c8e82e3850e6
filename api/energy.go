// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/soothill/smart-home-manager/energy"
	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
)

type peakResponse struct {
	PeakPowerConsumption string `json:"peakPowerConsumption"`
}

type differenceResponse struct {
	energy.Difference
	Links links `json:"_links"`
}

func (s *Server) peakPowerConsumption(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end, err := queryRange(q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	raw := q.Get("interval")
	if raw == "" {
		writeServiceError(w, r, apperrors.NewValidationError("interval", nil, "interval is required"))
		return
	}
	interval, err := energy.ParseInterval(raw)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	peak, err := s.svc.Energy.PeakPowerConsumption(r.Context(), mux.Vars(r)["houseId"], start, end, interval)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, peakResponse{PeakPowerConsumption: peak.Formatted()})
}

func (s *Server) temperatureDifference(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	houseID := mux.Vars(r)["houseId"]
	inside, outside := q.Get("inside"), q.Get("outside")
	if inside == "" || outside == "" {
		writeServiceError(w, r, apperrors.NewValidationError("", nil, "inside and outside sensor ids are required"))
		return
	}
	start, end, err := queryRange(q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	diff, err := s.svc.Energy.TemperatureDifference(r.Context(), houseID, inside, outside, start, end)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeHAL(w, http.StatusOK, differenceResponse{Difference: diff, Links: links{
		"house":   {Href: houseHref(houseID)},
		"inside":  {Href: sensorHref(inside)},
		"outside": {Href: sensorHref(outside)},
	}})
}
