// Package services holds the analysis control flow between the transports
// (HTTP handlers, queue worker) and the core profile and anomaly packages.
package services

import (
	"errors"
	"net/http"
)

// Error codes returned at the service boundary
const (
	CodeInvalidJSON      = "INVALID_JSON"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeNotFound         = "NOT_FOUND"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeUpdateConflict   = "UPDATE_CONFLICT"
	CodeInternal         = "INTERNAL_ERROR"
	CodeUnauthorized     = "UNAUTHORIZED"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// StatusCode maps the error code to an HTTP status
func (e *ServiceError) StatusCode() int {
	switch e.Code {
	case CodeInvalidJSON, CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUpdateConflict:
		return http.StatusConflict
	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// AsServiceError unwraps err into a ServiceError, wrapping unknown errors as
// INTERNAL_ERROR.
func AsServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return NewServiceError(CodeInternal, err.Error())
}
