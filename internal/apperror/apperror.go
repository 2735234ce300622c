package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies failures so callers can decide whether a session, a turn,
// or only a single message is affected.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthFailure
	KindProtocolViolation
	KindAdapterFailure
	KindPersistenceError
	KindOverloaded
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindAuthFailure:
		return "AuthFailure"
	case KindProtocolViolation:
		return "ProtocolViolation"
	case KindAdapterFailure:
		return "AdapterFailure"
	case KindPersistenceError:
		return "PersistenceError"
	case KindOverloaded:
		return "Overloaded"
	case KindNotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

type AppError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *AppError {
	return &AppError{Kind: kind, Message: message, Cause: cause}
}

func AuthFailure(message string) *AppError {
	return New(KindAuthFailure, message)
}

func ProtocolViolation(message string) *AppError {
	return New(KindProtocolViolation, message)
}

func AdapterFailure(message string, cause error) *AppError {
	return Wrap(KindAdapterFailure, message, cause)
}

func PersistenceError(message string, cause error) *AppError {
	return Wrap(KindPersistenceError, message, cause)
}

func Overloaded(message string) *AppError {
	return New(KindOverloaded, message)
}

func NotFound(message string) *AppError {
	return New(KindNotFound, message)
}

// KindOf returns the Kind of err if it is (or wraps) an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
