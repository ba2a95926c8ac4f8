package toggler

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	ErrCodeMissingAttribute   = "MISSING_ATTRIBUTE"
	ErrCodeWrongType          = "WRONG_TYPE"
	ErrCodeEmptyValue         = "EMPTY_VALUE"
	ErrCodeDependencyNotFound = "DEPENDENCY_NOT_FOUND"
	ErrCodeCapabilityMismatch = "CAPABILITY_MISMATCH"
	ErrCodePinNotFound        = "PIN_NOT_FOUND"
	ErrCodeIO                 = "IO_ERROR"
	ErrCodeTimeout            = "TIMEOUT"
	ErrCodeNotImplemented     = "NOT_IMPLEMENTED"
)

// Kind groups error codes by the stage that produced them.
type Kind string

// Error kinds.
const (
	KindConfigValidation     Kind = "config_validation"
	KindDependencyResolution Kind = "dependency_resolution"
	KindPinOperation         Kind = "pin_operation"
	KindNotImplemented       Kind = "not_implemented"
	KindUnknown              Kind = "unknown"
)

// Error is returned by every toggler operation.
type Error struct {
	Code      string
	Attribute string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	msg := e.Code + ": " + e.Message
	if e.Attribute != "" {
		msg = fmt.Sprintf("%s: %s: %s", e.Code, e.Attribute, e.Message)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code, and by attribute when the target names one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	return t.Attribute == "" || t.Attribute == e.Attribute
}

// Kind reports which stage the error belongs to.
func (e *Error) Kind() Kind {
	switch e.Code {
	case ErrCodeMissingAttribute, ErrCodeWrongType, ErrCodeEmptyValue:
		return KindConfigValidation
	case ErrCodeDependencyNotFound, ErrCodeCapabilityMismatch:
		return KindDependencyResolution
	case ErrCodePinNotFound, ErrCodeIO, ErrCodeTimeout:
		return KindPinOperation
	case ErrCodeNotImplemented:
		return KindNotImplemented
	default:
		return KindUnknown
	}
}

// Sentinels for errors.Is. They match any attribute.
var (
	ErrMissingAttribute   = &Error{Code: ErrCodeMissingAttribute}
	ErrWrongType          = &Error{Code: ErrCodeWrongType}
	ErrEmptyValue         = &Error{Code: ErrCodeEmptyValue}
	ErrDependencyNotFound = &Error{Code: ErrCodeDependencyNotFound}
	ErrCapabilityMismatch = &Error{Code: ErrCodeCapabilityMismatch}
	ErrPinNotFound        = &Error{Code: ErrCodePinNotFound}
	ErrIO                 = &Error{Code: ErrCodeIO}
	ErrTimeout            = &Error{Code: ErrCodeTimeout}
	ErrNotImplemented     = &Error{Code: ErrCodeNotImplemented}
)

// MissingAttribute reports an absent required attribute.
func MissingAttribute(attr string) *Error {
	return &Error{Code: ErrCodeMissingAttribute, Attribute: attr, Message: "missing required attribute"}
}

// WrongType reports an attribute holding a value of the wrong type.
func WrongType(attr, want string, got any) *Error {
	return &Error{Code: ErrCodeWrongType, Attribute: attr, Message: fmt.Sprintf("must be a %s, got %T", want, got)}
}

// EmptyValue reports a required attribute set to the empty string.
func EmptyValue(attr string) *Error {
	return &Error{Code: ErrCodeEmptyValue, Attribute: attr, Message: "cannot be empty"}
}

func newError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf extracts the code of a toggler error, or "" if err is not one.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// KindOf extracts the kind of a toggler error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind()
	}
	return KindUnknown
}
