package errors

// ErrorCode identifies a failure class. Codes are stable strings so they can
// be matched, logged and compared across package boundaries.
type ErrorCode string

// Error is a coded error. Two Errors compare equal under errors.Is when
// their codes match, whatever their message, data or cause.
type Error interface {
	error
	Code() ErrorCode
	// WithMessage and WithData return copies, the receiver is unchanged.
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
	Is(target error) bool
}

// Factory builds coded errors.
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
