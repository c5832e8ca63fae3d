package core

import (
	"errors"
	"fmt"
)

type ErrKind int

const (
	ErrKindUnknown ErrKind = iota
	ErrKindValidation
	ErrKindRateLimited
	ErrKindContentBlocked
	ErrKindUnavailable
	ErrKindBusy
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindValidation:
		return "validation"
	case ErrKindRateLimited:
		return "rate_limited"
	case ErrKindContentBlocked:
		return "content_blocked"
	case ErrKindUnavailable:
		return "unavailable"
	case ErrKindBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// ChatError is a classified failure from the session manager or an upstream
// chat service. Message is safe to show to the user.
type ChatError struct {
	Kind    ErrKind
	Message string
	cause   error
}

func (e *ChatError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ChatError) Unwrap() error {
	return e.cause
}

func NewChatError(kind ErrKind, message string, cause error) *ChatError {
	return &ChatError{Kind: kind, Message: message, cause: cause}
}

// ErrKindOf extracts the classification of err, returning ErrKindUnknown for
// anything that is not a *ChatError.
func ErrKindOf(err error) ErrKind {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ErrKindUnknown
}

// UserMessage returns the user-facing message of err, or a generic apology.
func UserMessage(err error) string {
	var ce *ChatError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return "Sorry, something went wrong. Please try again."
}
