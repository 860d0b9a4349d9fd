package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Task errors
	ErrNotFound          = fmt.Errorf("task not found")
	ErrInvalidTransition = fmt.Errorf("invalid status transition")

	// Collaborator errors
	ErrExternalUnavailable = fmt.Errorf("external service unavailable")
	ErrEngineRejected      = fmt.Errorf("engine rejected request")
	ErrPersistenceFailure  = fmt.Errorf("persistence failure")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// ErrorKind names the failure class of err for structured logs ("NotFound", "ExternalUnavailable", ...).
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrExternalUnavailable):
		return "ExternalUnavailable"
	case errors.Is(err, ErrEngineRejected):
		return "EngineRejected"
	case errors.Is(err, ErrPersistenceFailure):
		return "PersistenceFailure"
	case errors.Is(err, ErrInvalidTransition):
		return "InvalidTransition"
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrMissingArgument):
		return "InvalidInput"
	default:
		return "Unknown"
	}
}
