// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package api

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
	"github.com/soothill/smart-home-manager/service"
)

// queryTime parses a required RFC 3339 query parameter
func queryTime(q url.Values, name string) (time.Time, error) {
	raw := q.Get(name)
	if raw == "" {
		return time.Time{}, apperrors.NewValidationError(name, nil, name+" is required")
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, &apperrors.ValidationError{
			Field:   name,
			Value:   raw,
			Reason:  name + " must be an RFC 3339 timestamp",
			Details: err,
		}
	}
	return ts.UTC(), nil
}

// queryRange parses the start and end query parameters
func queryRange(q url.Values) (time.Time, time.Time, error) {
	start, err := queryTime(q, "start")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := queryTime(q, "end")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func (s *Server) listReadings(w http.ResponseWriter, r *http.Request) {
	sensorID := mux.Vars(r)["sensorId"]
	start, end, err := queryRange(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	readings, err := s.svc.Readings.List(r.Context(), sensorID, start, end)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeHAL(w, http.StatusOK, newCollection(sensorHref(sensorID)+"/readings", "readings", mapAll(readings, readingRes)))
}

func (s *Server) recordReading(w http.ResponseWriter, r *http.Request) {
	var in service.ReadingInput
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	reading, err := s.svc.Readings.Record(r.Context(), mux.Vars(r)["sensorId"], in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeHAL(w, http.StatusCreated, readingRes(*reading))
}
