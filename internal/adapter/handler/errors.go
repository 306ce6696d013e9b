package handler

import (
	"errors"
	"net/http"

	"github.com/pscode22/payment-app/internal/core/domain"
)

// statusForError maps domain outcomes onto HTTP statuses. Anything
// unrecognized is a server fault and surfaces without internal detail.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrSelfTransfer),
		errors.Is(err, domain.ErrEmailTaken):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAuthenticationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrSenderNotFound),
		errors.Is(err, domain.ErrReceiverNotFound),
		errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage is what the caller sees. Server faults stay generic; details
// live in the logs only.
func clientMessage(err error) string {
	if statusForError(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}
