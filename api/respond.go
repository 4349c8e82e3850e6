// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/soothill/smart-home-manager/pkg/errors"
	"github.com/soothill/smart-home-manager/pkg/logger"
)

const (
	contentTypeJSON = "application/json"
	contentTypeHAL  = "application/hal+json"
	maxBodyBytes    = 1 << 20
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeHAL(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", contentTypeHAL)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusFor maps a service error to its HTTP status and client message
func statusFor(err error) (int, string) {
	var ve *apperrors.ValidationError
	var ume *apperrors.UnknownModelError

	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Reason
	case errors.As(err, &ume):
		return http.StatusBadRequest, ume.Error()
	case apperrors.IsNotFound(err):
		return http.StatusNotFound, rootMessage(err)
	case errors.Is(err, apperrors.ErrNoPowerDevices), errors.Is(err, apperrors.ErrNoData):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, rootMessage(err)
	case errors.Is(err, apperrors.ErrCircuitBreakerOpen):
		return http.StatusServiceUnavailable, "time-series store temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// rootMessage returns the message of the typed error at the bottom of the
// wrap chain so clients do not see internal context.
func rootMessage(err error) string {
	var nf *apperrors.NotFoundError
	if errors.As(err, &nf) {
		return nf.Error()
	}
	var ce *apperrors.ConflictError
	if errors.As(err, &ce) {
		return ce.Error()
	}
	return err.Error()
}

// writeServiceError logs unexpected failures and writes the mapped response
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
	}
	writeError(w, status, message)
}

// decodeBody decodes a JSON request body into dst and validates its struct
// tags. Failures are returned as ValidationErrors.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.NewValidationError("body", nil, "invalid JSON body: "+describeDecodeError(err))
	}
	if err := validate.Struct(dst); err != nil {
		return fromValidator(err)
	}
	return nil
}

func describeDecodeError(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return "empty body"
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("syntax error at offset %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		return fmt.Sprintf("field %q must be %s", typeErr.Field, typeErr.Type)
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		return strings.TrimPrefix(err.Error(), "json: ")
	default:
		return err.Error()
	}
}

// fromValidator converts the first validator failure into a ValidationError
func fromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.NewValidationError("body", nil, err.Error())
	}
	fe := verrs[0]
	field := lowerFirst(fe.Field())

	var reason string
	switch fe.Tag() {
	case "required":
		reason = field + " is required"
	case "max":
		reason = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		reason = fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
	return apperrors.NewValidationError(field, fe.Value(), reason)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
