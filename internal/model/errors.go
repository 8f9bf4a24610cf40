package model

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across layers. Wrap them with fmt.Errorf("...: %w")
// and test with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrUpstream     = errors.New("upstream service failed")
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError is an ErrValidation carrying a translatable message.
// MessageID names an entry in the locale bundle; Data fills its template.
type ValidationError struct {
	MessageID string
	Data      map[string]any
	Msg       string
}

func (e *ValidationError) Error() string { return e.Msg }

// Unwrap makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid returns a ValidationError.
func Invalid(messageID string, data map[string]any, format string, args ...any) error {
	return &ValidationError{MessageID: messageID, Data: data, Msg: fmt.Sprintf(format, args...)}
}
