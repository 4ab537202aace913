package studio

import "errors"

// Code identifies a studio failure in API responses.
type Code string

const (
	CodeEmptyInput       Code = "EMPTY_INPUT"
	CodeInvalidFormat    Code = "INVALID_FORMAT"
	CodeSizeOutOfRange   Code = "SIZE_OUT_OF_RANGE"
	CodeRenderFailure    Code = "RENDER_FAILURE"
	CodeCompositeFailure Code = "COMPOSITE_FAILURE"
	CodeDownloadFailure  Code = "DOWNLOAD_FAILURE"
	CodeNoResult         Code = "NO_RESULT"
	CodeUnknownField     Code = "UNKNOWN_FIELD"
)

var (
	ErrEmptyInput       = errors.New("empty input")
	ErrInvalidFormat    = errors.New("invalid input format")
	ErrSizeOutOfRange   = errors.New("size out of range")
	ErrRenderFailure    = errors.New("render failure")
	ErrCompositeFailure = errors.New("composite failure")
	ErrDownloadFailure  = errors.New("download failure")
	ErrNoResult         = errors.New("no rendered result")
	ErrUnknownField     = errors.New("unknown form field")
)

var sentinels = map[Code]error{
	CodeEmptyInput:       ErrEmptyInput,
	CodeInvalidFormat:    ErrInvalidFormat,
	CodeSizeOutOfRange:   ErrSizeOutOfRange,
	CodeRenderFailure:    ErrRenderFailure,
	CodeCompositeFailure: ErrCompositeFailure,
	CodeDownloadFailure:  ErrDownloadFailure,
	CodeNoResult:         ErrNoResult,
	CodeUnknownField:     ErrUnknownField,
}

// User-facing messages.
const (
	msgEmptyInput     = "Data cannot be empty!"
	msgInvalidFormat  = "Please enter a valid URL starting with http://, https://, or www."
	msgSizeOutOfRange = "Size must be a positive number! Defaulting to 256."
	msgRenderFailure  = "Error generating QR code. Check the server logs for details."
	msgDownload       = "Error downloading QR code. Check the server logs for details."
	msgNoResult       = "Please generate a QR code first."
)

// Error is a studio failure with a stable code and a message safe to show
// to users. It matches both its code's sentinel and its cause under
// errors.Is.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if s, ok := sentinels[e.Code]; ok {
		out = append(out, s)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

func newError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code carried by err, or "" when err is not a studio
// error.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
