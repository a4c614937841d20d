package models

import (
	"errors"
	"fmt"
)

var (
	ErrEvidenceRequired = errors.New("evidence required")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrConflict         = errors.New("already exists")
	ErrNotFound         = errors.New("not found")
	ErrBusy             = errors.New("another update for this case is in flight")
)

// Motivos de rechazo del guardia.
const (
	ReasonAdminOnly     = "adminOnly"
	ReasonWrongState    = "wrongState"
	ReasonTerminalState = "terminalState"
	ReasonNotAssignee   = "notAssignee"
)

var (
	ErrAdminOnly     = &ForbiddenError{Reason: ReasonAdminOnly}
	ErrWrongState    = &ForbiddenError{Reason: ReasonWrongState}
	ErrTerminalState = &ForbiddenError{Reason: ReasonTerminalState}
	ErrNotAssignee   = &ForbiddenError{Reason: ReasonNotAssignee}
)

// ForbiddenError es un rechazo del guardia de flujo.
type ForbiddenError struct {
	Reason  string
	Message string
}

func (e *ForbiddenError) Error() string {
	if e.Message != "" {
		return "forbidden: " + e.Reason + ": " + e.Message
	}
	return "forbidden: " + e.Reason
}

// Is compara por motivo. Un caso finalizado tambien es un estado incorrecto.
func (e *ForbiddenError) Is(target error) bool {
	t, ok := target.(*ForbiddenError)
	if !ok {
		return false
	}
	if t.Reason == e.Reason {
		return true
	}
	return e.Reason == ReasonTerminalState && t.Reason == ReasonWrongState
}

// Forbidden construye un rechazo con mensaje para el usuario.
func Forbidden(reason, message string) error {
	return &ForbiddenError{Reason: reason, Message: message}
}

// ValidationError describe una entrada mal formada.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// EvidenceRequired envuelve ErrEvidenceRequired con el detalle faltante.
func EvidenceRequired(message string) error {
	return fmt.Errorf("%w: %s", ErrEvidenceRequired, message)
}
