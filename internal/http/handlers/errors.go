package handlers

import (
	"errors"
	"net/http"

	"github.com/tbourn/go-wishlist-backend/internal/services"
)

// Error codes carried in ErrorResponse.Code. They are part of the API
// contract: clients branch on them, so existing values never change.
const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeNotFound           = "not_found"
	ErrCodeMethodNotAllowed   = "method_not_allowed"
	ErrCodeInternal           = "internal_error"
	ErrCodeValidation         = "validation_failed"
	ErrCodeInvalidCredentials = "invalid_credentials"
)

// apiError is how a sentinel service error is answered.
type apiError struct {
	status  int
	code    string
	message string
	// field, when set, turns the answer into validation_failed on that field
	field string
}

// serviceErrors maps sentinel errors from the services package, first match
// wins. *services.ValidationError is handled before the table.
var serviceErrors = []struct {
	target error
	apiError
}{
	{services.ErrFeatureNotFound, apiError{http.StatusNotFound, ErrCodeNotFound, "feature not found", ""}},
	{services.ErrInvalidStatus, apiError{http.StatusBadRequest, ErrCodeValidation,
		"status must be one of OPEN, IN_PROGRESS, DONE, REJECTED", "status"}},
	{services.ErrInvalidVoter, apiError{http.StatusBadRequest, ErrCodeBadRequest, "voter identity missing", ""}},
}

var errInternal = apiError{http.StatusInternalServerError, ErrCodeInternal, "internal server error", ""}

// lookupServiceError returns the answer for err, or errInternal when err is
// not a known sentinel.
func lookupServiceError(err error) apiError {
	for _, se := range serviceErrors {
		if errors.Is(err, se.target) {
			return se.apiError
		}
	}
	return errInternal
}
