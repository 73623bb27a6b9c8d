package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Stable error codes surfaced by the engine.
const (
	CodeValidationFailed        = "VALIDATION_FAILED"
	CodeNotFound                = "NOT_FOUND"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeForbidden               = "FORBIDDEN"
	CodeConflict                = "CONFLICT"
	CodeInternal                = "INTERNAL_ERROR"
	CodeNoEligibleAgent         = "NO_ELIGIBLE_AGENT"
	CodeCapacityExceeded        = "CAPACITY_EXCEEDED"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	CodeTicketClosed            = "TICKET_CLOSED"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewNoEligibleAgent signals that no active agent has spare capacity.
func NewNoEligibleAgent(category string) error {
	return NewDomainError(CodeNoEligibleAgent, "no eligible agent", http.StatusConflict, map[string]any{
		"category": category,
	})
}

// NewCapacityExceeded rejects an assignment to an agent at max load.
func NewCapacityExceeded(agentID string) error {
	return NewDomainError(CodeCapacityExceeded, "agent at maximum load", http.StatusConflict, map[string]any{
		"agent_id": agentID,
	})
}

// NewInvalidStatusTransition rejects a disallowed lifecycle transition.
func NewInvalidStatusTransition(from, to string) error {
	return NewDomainError(CodeInvalidStatusTransition, "invalid status transition", http.StatusConflict, map[string]any{
		"from": from,
		"to":   to,
	})
}

// NewTicketClosed rejects writes against a closed ticket.
func NewTicketClosed(ticketID string) error {
	return NewDomainError(CodeTicketClosed, "ticket is closed", http.StatusConflict, map[string]any{
		"ticket_id": ticketID,
	})
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err carries the given domain error code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
