package botport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Package botport provides the outbound interface between the conversation engine and chat adapters.

// BotMessage captures adapter-agnostic identifiers for previously sent messages.
type BotMessage struct {
	SenderID  string
	MessageID int
	Transport string
	Payload   string
	Meta      map[string]string
}

// BotError wraps adapter failures with retry hints and normalized codes.
type BotError struct {
	Op         string
	Code       string
	RetryAfter time.Duration
	Wrapped    error
}

func (e *BotError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

// Unwrap exposes the underlying adapter error for errors.Is/As.
func (e *BotError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Wrapped
}

// NewBotError builds a BotError with the provided operation/code, preserving the wrapped error.
func NewBotError(op, code string, err error) *BotError {
	return &BotError{
		Op:      op,
		Code:    code,
		Wrapped: err,
	}
}

// IsCode determines whether err represents a BotError with the provided code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var be *BotError
	if errors.As(err, &be) {
		return be != nil && be.Code == code
	}
	return false
}

// IsRetryable reports whether err is a BotError the transport may accept later.
func IsRetryable(err error) bool {
	var be *BotError
	if !errors.As(err, &be) || be == nil {
		return false
	}
	switch be.Code {
	case CodeRateLimited, CodeContextDeadline:
		return true
	default:
		return false
	}
}

const (
	CodeRateLimited     = "rate_limited"
	CodeBadRequest      = "bad_request"
	CodeBadPayload      = "bad_payload"
	CodeForbidden       = "forbidden"
	CodeUnknown         = "unknown"
	CodeContextCanceled = "context_canceled"
	CodeContextDeadline = "context_deadline"
	CodeContextError    = "context_error"
)

// BotPort abstracts outbound replies for adapters (Telegram, fake, etc.).
// senderID is the stable conversation participant identifier the gateway delivered.
type BotPort interface {
	SendText(ctx context.Context, senderID string, text string) (BotMessage, error)
}
