// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package errors provides structured error types for the Smart Home Manager.
//
// Every layer returns one of these types (or wraps one with fmt.Errorf and
// %w) so that the HTTP layer can map failures to status codes with
// errors.As and errors.Is instead of matching strings.
//
// # Example Usage
//
//	err := errors.NewNotFoundError("house", "h-1")
//	if errors.Is(err, errors.ErrNotFound) {
//	    // 404
//	}
//
//	var ve *errors.ValidationError
//	if errors.As(err, &ve) {
//	    log.Printf("rejected %s: %s", ve.Field, ve.Reason)
//	}
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	// ErrNotFound indicates a requested aggregate does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates an aggregate with the same identity already exists
	ErrConflict = errors.New("already exists")

	// ErrNoPowerDevices indicates no device carries a power consumption sensor
	ErrNoPowerDevices = errors.New("no power consumption devices found")

	// ErrNoData indicates there were no readings to compute a result from
	ErrNoData = errors.New("no readings available")

	// ErrCircuitBreakerOpen indicates the circuit breaker is open
	ErrCircuitBreakerOpen = errors.New("circuit breaker open")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError represents a data validation error.
// Reason is safe to show to API callers as-is.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   any    // Invalid value
	Reason  string // Why validation failed
	Details error  // Additional details (optional)
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	if e.Details != nil {
		return fmt.Sprintf("validation error: field %q with value %v: %s (%v)", e.Field, e.Value, e.Reason, e.Details)
	}
	return fmt.Sprintf("validation error: field %q with value %v: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Details
}

// NewValidationError creates a new validation error.
func NewValidationError(field string, value any, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotFoundError reports a missing aggregate.
type NotFoundError struct {
	Kind string // Aggregate kind (e.g., "house", "sensor")
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// Is lets errors.Is(err, ErrNotFound) match any NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new not-found error.
func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// IsNotFound checks if an error means something was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ConflictError reports an attempt to create an aggregate whose id is taken.
type ConflictError struct {
	Kind string
	ID   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Kind, e.ID)
}

// Is lets errors.Is(err, ErrConflict) match any ConflictError.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NewConflictError creates a new conflict error.
func NewConflictError(kind, id string) *ConflictError {
	return &ConflictError{Kind: kind, ID: id}
}

// UnknownModelError is returned by the model registries on a lookup miss.
type UnknownModelError struct {
	Kind  string // "sensor" or "actuator"
	Model string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown %s model %q", e.Kind, e.Model)
}

// NewUnknownModelError creates a new unknown model error.
func NewUnknownModelError(kind, model string) *UnknownModelError {
	return &UnknownModelError{Kind: kind, Model: model}
}

// IsUnknownModelError checks if an error is an UnknownModelError.
func IsUnknownModelError(err error) bool {
	var ue *UnknownModelError
	return errors.As(err, &ue)
}

// StorageError represents an error during storage operations.
type StorageError struct {
	Op  string // Operation being performed (e.g., "insert house", "query readings")
	ID  string // Identifier involved in the operation (if applicable)
	Err error  // Underlying error
}

func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("storage %s (id=%s): %v", e.Op, e.ID, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s failed", e.Op)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new storage error.
func NewStorageError(op string, id string, err error) *StorageError {
	return &StorageError{Op: op, ID: id, Err: err}
}

// IsStorageError checks if an error is a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field string // Configuration field that caused the error
	Value string // Invalid value (optional, may be redacted for sensitive fields)
	Err   error  // Underlying error or description
}

func (e *ConfigError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("config error in field %q (value=%q): %v", e.Field, e.Value, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("config error in field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config error in field %q", e.Field)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new configuration error.
func NewConfigError(field string, value string, err error) *ConfigError {
	return &ConfigError{Field: field, Value: value, Err: err}
}

// IsConfigError checks if an error is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// DiscoveryError represents an error during device discovery operations.
type DiscoveryError struct {
	Op  string // Operation being performed (e.g., "mDNS scan")
	Err error  // Underlying error
}

func (e *DiscoveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("discovery %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("discovery %s failed", e.Op)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// NewDiscoveryError creates a new discovery error.
func NewDiscoveryError(op string, err error) *DiscoveryError {
	return &DiscoveryError{Op: op, Err: err}
}

// IsDiscoveryError checks if an error is a DiscoveryError.
func IsDiscoveryError(err error) bool {
	var de *DiscoveryError
	return errors.As(err, &de)
}

// NotificationError represents an error sending notifications.
type NotificationError struct {
	Type string // Notification type (e.g., "slack")
	Err  error  // Underlying error
}

func (e *NotificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("notification %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("notification %s failed", e.Type)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// NewNotificationError creates a new notification error.
func NewNotificationError(notifType string, err error) *NotificationError {
	return &NotificationError{Type: notifType, Err: err}
}

// IsNotificationError checks if an error is a NotificationError.
func IsNotificationError(err error) bool {
	var ne *NotificationError
	return errors.As(err, &ne)
}
