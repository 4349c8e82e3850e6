// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("name", "", "must not be empty")

	errMsg := err.Error()
	if !strings.Contains(errMsg, "name") || !strings.Contains(errMsg, "must not be empty") {
		t.Errorf("Error() = %q, want message containing field and reason", errMsg)
	}

	if !IsValidationError(err) {
		t.Error("IsValidationError() should return true for ValidationError")
	}

	wrapped := fmt.Errorf("create house: %w", err)
	var ve *ValidationError
	if !errors.As(wrapped, &ve) {
		t.Fatal("errors.As() should extract ValidationError through wrapping")
	}
	if ve.Reason != "must not be empty" {
		t.Errorf("Reason = %q, want %q", ve.Reason, "must not be empty")
	}
}

func TestValidationError_NoFieldUsesReasonVerbatim(t *testing.T) {
	err := &ValidationError{Reason: "end time can't be before start time"}
	if err.Error() != "end time can't be before start time" {
		t.Errorf("Error() = %q, want reason verbatim", err.Error())
	}
}

func TestValidationError_Details(t *testing.T) {
	details := fmt.Errorf("parse failure")
	err := &ValidationError{Field: "start", Value: "x", Reason: "invalid timestamp", Details: details}

	if !errors.Is(err, details) {
		t.Error("errors.Is() should find wrapped details")
	}
	if !strings.Contains(err.Error(), "parse failure") {
		t.Errorf("Error() = %q, want details included", err.Error())
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("house", "h-1")

	if err.Error() != "house h-1 not found" {
		t.Errorf("Error() = %q, want %q", err.Error(), "house h-1 not found")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("errors.Is(err, ErrNotFound) should be true")
	}
	if !IsNotFound(fmt.Errorf("lookup: %w", err)) {
		t.Error("IsNotFound() should see through wrapping")
	}
	if errors.Is(err, ErrConflict) {
		t.Error("NotFoundError should not match ErrConflict")
	}
}

func TestConflictError(t *testing.T) {
	err := NewConflictError("room", "r-7")

	if !errors.Is(err, ErrConflict) {
		t.Error("errors.Is(err, ErrConflict) should be true")
	}
	if !strings.Contains(err.Error(), "r-7") {
		t.Errorf("Error() = %q, want id in message", err.Error())
	}
}

func TestUnknownModelError(t *testing.T) {
	err := NewUnknownModelError("sensor", "Barometer")

	if !IsUnknownModelError(err) {
		t.Error("IsUnknownModelError() should return true")
	}
	if !strings.Contains(err.Error(), "Barometer") || !strings.Contains(err.Error(), "sensor") {
		t.Errorf("Error() = %q, want kind and model in message", err.Error())
	}
}

func TestStorageError(t *testing.T) {
	baseErr := fmt.Errorf("connection timeout")
	err := NewStorageError("insert reading", "s-123", baseErr)

	errMsg := err.Error()
	if !strings.Contains(errMsg, "storage") || !strings.Contains(errMsg, "insert reading") || !strings.Contains(errMsg, "s-123") {
		t.Errorf("Error() = %q, want message containing 'storage', op and id", errMsg)
	}

	if !errors.Is(err, baseErr) {
		t.Error("errors.Is() should find wrapped error")
	}

	if !IsStorageError(err) {
		t.Error("IsStorageError() should return true for StorageError")
	}
}

func TestStorageError_WithoutID(t *testing.T) {
	err := NewStorageError("migrate", "", fmt.Errorf("syntax error"))
	if strings.Contains(err.Error(), "id=") {
		t.Errorf("Error() = %q, should not include id", err.Error())
	}

	err = NewStorageError("ping", "", nil)
	if err.Error() != "storage ping failed" {
		t.Errorf("Error() = %q, want %q", err.Error(), "storage ping failed")
	}
}

func TestConfigError(t *testing.T) {
	baseErr := fmt.Errorf("must be positive")
	err := NewConfigError("simulation.poll_interval", "-1s", baseErr)

	errMsg := err.Error()
	if !strings.Contains(errMsg, "simulation.poll_interval") || !strings.Contains(errMsg, "-1s") {
		t.Errorf("Error() = %q, want field and value", errMsg)
	}
	if !errors.Is(err, baseErr) {
		t.Error("errors.Is() should find wrapped error")
	}
	if !IsConfigError(err) {
		t.Error("IsConfigError() should return true for ConfigError")
	}
}

func TestDiscoveryError(t *testing.T) {
	baseErr := fmt.Errorf("network unreachable")
	err := NewDiscoveryError("mDNS scan", baseErr)

	errMsg := err.Error()
	if !strings.Contains(errMsg, "discovery") || !strings.Contains(errMsg, "mDNS scan") {
		t.Errorf("Error() = %q, want message containing 'discovery' and 'mDNS scan'", errMsg)
	}
	if !errors.Is(err, baseErr) {
		t.Error("errors.Is() should find wrapped error")
	}
	if !IsDiscoveryError(err) {
		t.Error("IsDiscoveryError() should return true for DiscoveryError")
	}
}

func TestNotificationError(t *testing.T) {
	baseErr := fmt.Errorf("webhook returned 500")
	err := NewNotificationError("slack", baseErr)

	if !strings.Contains(err.Error(), "slack") {
		t.Errorf("Error() = %q, want type in message", err.Error())
	}
	if !IsNotificationError(err) {
		t.Error("IsNotificationError() should return true")
	}
	if NewNotificationError("slack", nil).Error() != "notification slack failed" {
		t.Error("nil underlying error should produce generic message")
	}
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{ErrNotFound, ErrConflict, ErrNoPowerDevices, ErrNoData, ErrCircuitBreakerOpen, ErrInvalidConfig}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %v should not match %v", a, b)
			}
		}
	}
}
