package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrNotImplemented  ErrorCode = "not_implemented"
	ErrUnavailable     ErrorCode = "service_unavailable"

	// Configuration errors
	ErrInvalidConfig ErrorCode = "invalid_configuration"
	ErrBindFlags     ErrorCode = "bind_flags_failed"
	ErrReadConfig    ErrorCode = "read_config_failed"
	ErrInvalidOutput ErrorCode = "invalid_output_format"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Resource errors
	ErrResourceBusy     ErrorCode = "resource_busy"
	ErrResourceNotFound ErrorCode = "resource_not_found"
	ErrAlreadyRunning   ErrorCode = "already_running"

	// Application errors
	ErrListChips     ErrorCode = "list_chips_failed"
	ErrConfigureChan ErrorCode = "configure_channel_failed"
	ErrRecordHistory ErrorCode = "record_history_failed"
	ErrPublishState  ErrorCode = "publish_state_failed"

	// Operation errors
	ErrOperationFailed  ErrorCode = "operation_failed"
	ErrTimeout          ErrorCode = "operation_timeout"
	ErrInvalidOperation ErrorCode = "invalid_operation"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:         "Internal error occurred",
	ErrInvalidArgument:  "Invalid argument provided",
	ErrNotImplemented:   "Operation not implemented",
	ErrUnavailable:      "Service unavailable",
	ErrInvalidConfig:    "Invalid configuration",
	ErrBindFlags:        "Failed to bind flags",
	ErrReadConfig:       "Failed to read config file",
	ErrInvalidOutput:    "Invalid output format",
	ErrInvalidLogLevel:  "Invalid log level",
	ErrInitFailed:       "Initialization failed",
	ErrShutdownFailed:   "Shutdown failed",
	ErrResourceBusy:     "Resource is busy",
	ErrResourceNotFound: "Resource not found",
	ErrAlreadyRunning:   "Another instance is already running",
	ErrListChips:        "Failed to list PWM chips",
	ErrConfigureChan:    "Failed to configure PWM channel",
	ErrRecordHistory:    "Failed to record history",
	ErrPublishState:     "Failed to publish channel state",
	ErrOperationFailed:  "Operation failed",
	ErrTimeout:          "Operation timed out",
	ErrInvalidOperation: "Invalid operation",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
