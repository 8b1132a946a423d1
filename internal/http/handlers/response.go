// Package handlers implements the HTTP endpoints of the wishlist API.
//
// Every failure is answered with an ErrorResponse:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "feature not found"
//	}
//
// validation_failed answers add a "fields" list naming each rejected input.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wishlist-backend/internal/http/middleware"
	"github.com/tbourn/go-wishlist-backend/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Echo of X-Request-ID, for correlating with server logs
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"feature not found"`
	// Rejected input fields (validation_failed only)
	Fields []services.FieldError `json:"fields,omitempty"`
}

func abort(c *gin.Context, status int, resp ErrorResponse) {
	resp.RequestID = c.Writer.Header().Get("X-Request-ID")
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", resp.Code).
			Str("route", c.FullPath()).
			Msg(resp.Message)
	}
	c.AbortWithStatusJSON(status, resp)
}

// fail aborts with an error envelope; 5xx answers are logged.
func fail(c *gin.Context, status int, code, msg string) {
	abort(c, status, ErrorResponse{Code: code, Message: msg})
}

// Fail lets the router answer NoRoute and NoMethod with the same envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func failValidation(c *gin.Context, fields []services.FieldError) {
	abort(c, http.StatusBadRequest, ErrorResponse{
		Code:    ErrCodeValidation,
		Message: services.ErrValidation.Error(),
		Fields:  fields,
	})
}

// failService answers err from the services package. Unknown errors are
// storage or programming faults: they go on the Gin context for the access
// log and the client only sees a generic 500.
func failService(c *gin.Context, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		failValidation(c, verr.Fields)
		return
	}
	ae := lookupServiceError(err)
	switch {
	case ae == errInternal:
		_ = c.Error(err)
		fail(c, ae.status, ae.code, ae.message)
	case ae.field != "":
		failValidation(c, []services.FieldError{{Field: ae.field, Message: ae.message}})
	default:
		fail(c, ae.status, ae.code, ae.message)
	}
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
