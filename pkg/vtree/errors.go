package vtree

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of an error for recovery logic.
type ErrorClass string

const (
	// ErrorClassFatal indicates a broken reconciliation invariant.
	// The current cycle is aborted and the owning session must be recreated.
	ErrorClassFatal ErrorClass = "fatal"

	// ErrorClassInput indicates a malformed snapshot or a schema violation
	// detected by the tree-construction layer before any diff ran.
	ErrorClassInput ErrorClass = "input"

	// ErrorClassTransient indicates an I/O failure that may succeed on retry.
	// Examples: a locked database, a snapshot file being rewritten.
	ErrorClassTransient ErrorClass = "transient"
)

// Error represents a classified error with tree context.
type Error struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Path is the tree position the error refers to, if applicable.
	Path string `json:"path,omitempty"`

	// Operation is the operation being performed when the error occurred.
	Operation string `json:"operation,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	if e.Path != "" && e.Operation != "" {
		msg = fmt.Sprintf("%s (path=%s, operation=%s)", msg, e.Path, e.Operation)
	} else if e.Path != "" {
		msg = fmt.Sprintf("%s (path=%s)", msg, e.Path)
	} else if e.Operation != "" {
		msg = fmt.Sprintf("%s (operation=%s)", msg, e.Operation)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewFatalError creates a new fatal error.
func NewFatalError(message string, err error) *Error {
	return &Error{
		Class:   ErrorClassFatal,
		Message: message,
		Err:     err,
	}
}

// NewInputError creates a new input error.
func NewInputError(message string, err error) *Error {
	return &Error{
		Class:   ErrorClassInput,
		Message: message,
		Err:     err,
	}
}

// NewTransientError creates a new transient error.
func NewTransientError(message string, err error) *Error {
	return &Error{
		Class:   ErrorClassTransient,
		Message: message,
		Err:     err,
	}
}

// WithPath adds tree position context to an error.
func (e *Error) WithPath(p Path) *Error {
	e.Path = p.String()
	return e
}

// WithOperation adds operation context to an error.
func (e *Error) WithOperation(operation string) *Error {
	e.Operation = operation
	return e
}

// WithCode adds an error code to an error.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithDetail adds a detail field to the error context.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsFatal returns true if the error is classified as fatal.
func IsFatal(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassFatal
	}
	return false
}

// IsInput returns true if the error is classified as an input error.
func IsInput(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassInput
	}
	return false
}

// IsTransient returns true if the error is classified as transient.
func IsTransient(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassTransient
	}
	return false
}

// HasCode returns true if any classified error in the chain carries code.
func HasCode(err error, code string) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Err
	}
	return false
}

// ClassOf returns the class of the outermost classified error, or "" for
// unclassified errors.
func ClassOf(err error) ErrorClass {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return ""
}

// CodeOf returns the code of the outermost classified error, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Error codes.
const (
	ErrCodeIdentityViolation      = "IDENTITY_VIOLATION"
	ErrCodeRegistryInconsistency  = "REGISTRY_INCONSISTENCY"
	ErrCodeDuplicateAdd           = "DUPLICATE_ADD"
	ErrCodeInvalidOperation       = "INVALID_OPERATION"
	ErrCodeNormalizationViolation = "NORMALIZATION_VIOLATION"
	ErrCodeSessionBroken          = "SESSION_BROKEN"
	ErrCodeSchemaViolation        = "SCHEMA_VIOLATION"
	ErrCodeUnsupportedKind        = "UNSUPPORTED_KIND"
	ErrCodeDecodeFailed           = "DECODE_FAILED"
	ErrCodeStoreFailed            = "STORE_FAILED"
	ErrCodeToolkitFailed          = "TOOLKIT_FAILED"
)
