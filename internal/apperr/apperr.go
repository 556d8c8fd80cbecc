// Package apperr defines the error taxonomy shared by every layer.
//
// Errors carry a machine-readable code, a human message, and optional
// structured detail. The web layer owns the translation from code to
// HTTP status; nothing below it knows about transports.
package apperr

import (
	"errors"
	"fmt"
)

// Error codes. The numeric scheme groups codes by concern:
// 1xxx internal, 2xxx validation, 3xxx generic data errors,
// 4xxx customer-specific data errors, 5xxx file handling.
const (
	CodeInternal              = "1001"
	CodeValidation            = "2001"
	CodeDuplicateData         = "3002"
	CodeNotFound              = "3003"
	CodeDuplicateEmail        = "4001"
	CodeDuplicatePhone        = "4002"
	CodeDuplicateCode         = "4003"
	CodeCustomerNotFound      = "4004"
	CodeUnsupportedFileFormat = "5001"
	CodeFileSizeExceeded      = "5002"
	CodeEmptyFile             = "5003"
	CodeMissingColumns        = "5004"
)

// Error is a typed application error.
type Error struct {
	Code    string
	Message string
	Details any

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates an Error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithDetails attaches structured detail and returns the error.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// NewNotFound reports that no non-deleted row matches the given id.
func NewNotFound(entity string, id any) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("Không tìm thấy %s với ID: %v", entity, id),
	}
}

// NewValidation reports a malformed or missing field value.
func NewValidation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

// NewDuplicate reports a uniqueness collision for the named field.
// The field determines the specific code, matching the taxonomy above.
func NewDuplicate(field, value string) *Error {
	code := CodeDuplicateData
	switch field {
	case "Email":
		code = CodeDuplicateEmail
	case "Số điện thoại":
		code = CodeDuplicatePhone
	case "Mã khách hàng":
		code = CodeDuplicateCode
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf("%s '%s' đã tồn tại trong hệ thống", field, value),
	}
}

// NewInternal wraps an unexpected failure. The client-facing message is
// generic; the cause stays available via Unwrap for server-side logging.
func NewInternal(cause error) *Error {
	return &Error{
		Code:    CodeInternal,
		Message: "Lỗi server nội bộ. Vui lòng thử lại sau.",
		cause:   cause,
	}
}

// From extracts an *Error from an error chain.
func From(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HasCode reports whether err carries the given application code.
func HasCode(err error, code string) bool {
	if e, ok := From(err); ok {
		return e.Code == code
	}
	return false
}
