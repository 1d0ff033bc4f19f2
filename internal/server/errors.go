package server

import (
	"errors"
	"log/slog"

	"github.com/localrivet/cratescribe/internal/errortypes"
	"github.com/localrivet/cratescribe/internal/tools"
)

// Error response codes
const (
	StatusCodeValidationError = "VALIDATION_ERROR"
	StatusCodeConfigError     = "CONFIG_ERROR"
	StatusCodeDatabaseError   = "DATABASE_ERROR"
	StatusCodeNetworkError    = "NETWORK_ERROR"
	StatusCodeAuthError       = "AUTHENTICATION_ERROR"
	StatusCodeQuotaError      = "QUOTA_EXCEEDED"
	StatusCodeProviderError   = "PROVIDER_ERROR"
	StatusCodeInternalError   = "INTERNAL_ERROR"
	StatusCodeExternalError   = "EXTERNAL_ERROR"
	StatusCodeUnknownError    = "UNKNOWN_ERROR"
)

// CodeForType maps an error category to its response code.
func CodeForType(errType errortypes.ErrorType) string {
	switch errType {
	case errortypes.ErrorTypeValidation:
		return StatusCodeValidationError
	case errortypes.ErrorTypeConfig:
		return StatusCodeConfigError
	case errortypes.ErrorTypeDatabase:
		return StatusCodeDatabaseError
	case errortypes.ErrorTypeNetwork:
		return StatusCodeNetworkError
	case errortypes.ErrorTypeAuth:
		return StatusCodeAuthError
	case errortypes.ErrorTypeQuota:
		return StatusCodeQuotaError
	case errortypes.ErrorTypeAPI, errortypes.ErrorTypeMalformedResponse:
		return StatusCodeProviderError
	case errortypes.ErrorTypeInternal:
		return StatusCodeInternalError
	case errortypes.ErrorTypeExternal:
		return StatusCodeExternalError
	default:
		return StatusCodeUnknownError
	}
}

// CodeFor returns the response code for err.
func CodeFor(err error) string {
	var appErr *errortypes.AppError
	if errors.As(err, &appErr) {
		return CodeForType(appErr.Type)
	}
	return StatusCodeUnknownError
}

// errorFields logs err and converts it to the error part of a tool response.
func errorFields(logger *slog.Logger, tool string, err error) tools.ErrorFields {
	errortypes.LogError(logger.With("tool", tool), err)
	return tools.ErrorFields{
		Status: tools.StatusError,
		Code:   CodeFor(err),
		Error:  err.Error(),
	}
}

func success() tools.ErrorFields {
	return tools.ErrorFields{Status: tools.StatusSuccess}
}
