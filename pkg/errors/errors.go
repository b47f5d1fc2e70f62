package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown    ErrorCode = "UNKNOWN"
	ErrInternal   ErrorCode = "INTERNAL"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrConfigLoad ErrorCode = "CONFIG_LOAD"

	// Pre-execution errors: resolved before any process starts,
	// reported without touching hardware
	ErrUnreadableFile          ErrorCode = "UNREADABLE_FILE"
	ErrImageKindMismatch       ErrorCode = "IMAGE_KIND_MISMATCH"
	ErrToolUnsupportedByDevice ErrorCode = "TOOL_UNSUPPORTED_BY_DEVICE"
	ErrToolMissing             ErrorCode = "TOOL_MISSING"
	ErrDestructiveWithoutAck   ErrorCode = "DESTRUCTIVE_WITHOUT_ACK"

	// UnsupportedCombination means the safety gate and the command
	// builder rule tables are out of sync. It is a defect in this
	// program, not a user error.
	ErrUnsupportedCombination ErrorCode = "UNSUPPORTED_COMBINATION"

	// Execution errors
	ErrElevationDenied      ErrorCode = "ELEVATION_DENIED"
	ErrProcessExitNonZero   ErrorCode = "PROCESS_EXIT_NONZERO"
	ErrCrashed              ErrorCode = "CRASHED"
	ErrCancelled            ErrorCode = "CANCELLED"
	ErrDeviceStateUndefined ErrorCode = "DEVICE_STATE_UNDEFINED"
	ErrDeviceBusy           ErrorCode = "DEVICE_BUSY"

	// Device / download errors
	ErrDeviceNotFound ErrorCode = "DEVICE_NOT_FOUND"
	ErrDownloadFailed ErrorCode = "DOWNLOAD_FAILED"
)

// FlashError represents a structured error with code and details
type FlashError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *FlashError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *FlashError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *FlashError) Is(target error) bool {
	var targetErr *FlashError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new FlashError with the given code and message
func New(code ErrorCode, message string) *FlashError {
	return &FlashError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new FlashError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *FlashError {
	return &FlashError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a FlashError
func Wrap(err error, code ErrorCode, message string) *FlashError {
	if err == nil {
		return nil
	}
	return &FlashError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *FlashError {
	if err == nil {
		return nil
	}
	return &FlashError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *FlashError) WithDetail(key string, value interface{}) *FlashError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var flashErr *FlashError
	if errors.As(err, &flashErr) {
		return flashErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a FlashError
func GetErrorCode(err error) ErrorCode {
	var flashErr *FlashError
	if errors.As(err, &flashErr) {
		return flashErr.Code
	}
	return ErrUnknown
}

// IsUserFacing reports whether the error is something the user can act
// on, as opposed to an internal-consistency fault that should be
// reported as a bug.
func IsUserFacing(err error) bool {
	switch GetErrorCode(err) {
	case ErrUnsupportedCombination, ErrInternal:
		return false
	}
	return true
}
