// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package domain holds the aggregates managed by the smart home manager:
// houses, rooms, devices, sensors, actuators and sensor readings.
//
// Aggregates are plain structs. Each one validates its own invariants and
// reports violations as *errors.ValidationError so callers can surface the
// reason unchanged.
package domain

import (
	"strings"

	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
)

func requireName(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperrors.NewValidationError(field, value, "must not be empty")
	}
	return nil
}

func requireID(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperrors.NewValidationError(field, value, "is required")
	}
	return nil
}
