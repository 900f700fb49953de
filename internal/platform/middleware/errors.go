package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/INFO333/mhoms-api/internal/platform/apperr"
	"github.com/INFO333/mhoms-api/internal/platform/db"
)

const (
	detailsNotFound       = "The requested resource could not be found."
	detailsConflict       = "This operation conflicts with existing data or business rules."
	detailsDuplicate      = "Please modify your request to avoid duplicating existing data."
	detailsBadRequest     = "Please check the request parameters and try again."
	detailsForbidden      = "Your current role does not have permission to access this resource. Contact your administrator if you believe this is an error."
	detailsInternal       = "Please contact support if this issue persists."
	msgInternal           = "An unexpected error occurred"
	msgDuplicate          = "Data conflict - This record already exists"
	msgReferenced         = "Data conflict - This record is referenced by other records"
	msgDuplicateUsername  = "Username already exists - Please choose a different username"
	msgDuplicateEmail     = "Email already registered - Please use a different email"
	msgDuplicateBooking   = "Doctor already has an appointment at this time - Please choose a different time slot"
	msgServiceUnavailable = "Request timed out - Please try again"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Timestamp time.Time         `json:"timestamp"`
	Status    int               `json:"status"`
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Details   string            `json:"details,omitempty"`
	Path      string            `json:"path"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// ErrorHandler renders errors returned by handlers and middleware. Server
// faults are logged with their cause; the caller only sees a generic body.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		body := Describe(err)
		body.Timestamp = time.Now()
		body.Path = c.Request().URL.Path

		if body.Status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().
				Err(err).
				Str("request_id", rid).
				Str("method", c.Request().Method).
				Str("path", body.Path).
				Msg("request failed")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(body.Status)
		} else {
			werr = c.JSON(body.Status, body)
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}

// Describe maps err onto status, message and details without the request
// specific fields.
func Describe(err error) ErrorResponse {
	var ae *apperr.Error
	var he *echo.HTTPError

	switch {
	case errors.As(err, &ae):
		return describeAppErr(ae)
	case db.IsUniqueViolation(err):
		return newBody(http.StatusConflict, duplicateMessage(db.ConstraintText(err)), detailsDuplicate)
	case db.IsForeignKeyViolation(err):
		return newBody(http.StatusConflict, msgReferenced, detailsDuplicate)
	case errors.Is(err, context.DeadlineExceeded):
		return newBody(http.StatusServiceUnavailable, msgServiceUnavailable, "")
	case errors.As(err, &he):
		return describeHTTPErr(he)
	default:
		return newBody(http.StatusInternalServerError, msgInternal, detailsInternal)
	}
}

func describeAppErr(ae *apperr.Error) ErrorResponse {
	status := ae.Kind.Status()
	details := ae.Details
	if details == "" {
		switch ae.Kind {
		case apperr.KindNotFound:
			details = detailsNotFound
		case apperr.KindConflict, apperr.KindInvalidState:
			details = detailsConflict
		case apperr.KindInvalidArgument:
			details = detailsBadRequest
		case apperr.KindForbidden:
			details = detailsForbidden
		}
	}
	if ae.Kind == apperr.KindInternal {
		return newBody(status, msgInternal, detailsInternal)
	}
	body := newBody(status, ae.Message, details)
	if ae.Kind == apperr.KindValidation {
		body.Errors = ae.Fields
	}
	return body
}

func describeHTTPErr(he *echo.HTTPError) ErrorResponse {
	if he.Code >= http.StatusInternalServerError {
		return newBody(he.Code, msgInternal, detailsInternal)
	}
	msg := http.StatusText(he.Code)
	if he.Message != nil {
		msg = fmt.Sprint(he.Message)
	}
	details := ""
	switch he.Code {
	case http.StatusNotFound:
		details = detailsNotFound
	case http.StatusBadRequest:
		details = detailsBadRequest
	}
	return newBody(he.Code, msg, details)
}

func duplicateMessage(text string) string {
	switch {
	case strings.Contains(text, "username"):
		return msgDuplicateUsername
	case strings.Contains(text, "email"):
		return msgDuplicateEmail
	case strings.Contains(text, "doctor") && strings.Contains(text, "appointment_date"):
		return msgDuplicateBooking
	default:
		return msgDuplicate
	}
}

func newBody(status int, message, details string) ErrorResponse {
	return ErrorResponse{
		Status:  status,
		Error:   http.StatusText(status),
		Message: message,
		Details: details,
	}
}
