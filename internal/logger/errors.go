package logger

import (
	"errors"

	"github.com/localrivet/cratescribe/internal/errortypes"
)

// Exit codes returned by the command for each error category.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitValidation = 2
	ExitConfig     = 3
	ExitDatabase   = 4
	ExitProvider   = 5
)

// LogError logs err on the default logger. Errors built with errortypes are
// logged with their type, fields and innermost frame.
func LogError(err error) {
	if err == nil {
		return
	}

	var appErr *errortypes.AppError
	if !errors.As(err, &appErr) {
		Error("Unstructured error: %v", err)
		return
	}

	fields := make(map[string]interface{}, len(appErr.Fields)+2)
	for k, v := range appErr.Fields {
		fields[k] = v
	}
	fields["error_type"] = string(appErr.Type)
	if frame := firstFrame(appErr.StackInfo); frame != "" {
		fields["at"] = frame
	}

	GetDefaultLogger().WithFields(fields).Error("%s", appErr.Error())
}

func firstFrame(stack string) string {
	for i := 0; i < len(stack); i++ {
		if stack[i] == '\n' {
			return stack[:i]
		}
	}
	return stack
}

// ExitCode maps err to the command's exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch errortypes.TypeOf(err) {
	case errortypes.ErrorTypeValidation:
		return ExitValidation
	case errortypes.ErrorTypeConfig:
		return ExitConfig
	case errortypes.ErrorTypeDatabase:
		return ExitDatabase
	case errortypes.ErrorTypeNetwork, errortypes.ErrorTypeAPI, errortypes.ErrorTypeAuth,
		errortypes.ErrorTypeQuota, errortypes.ErrorTypeMalformedResponse:
		return ExitProvider
	default:
		return ExitFailure
	}
}
