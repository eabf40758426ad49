package server

import (
	"context"
	"database/sql/driver"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/guestlist/internal/authorization"
	"github.com/smallbiznis/guestlist/internal/capacity"
	carpooldomain "github.com/smallbiznis/guestlist/internal/carpool/domain"
	guestdomain "github.com/smallbiznis/guestlist/internal/guest/domain"
	transportdomain "github.com/smallbiznis/guestlist/internal/transport/domain"
	"github.com/smallbiznis/guestlist/internal/validation"
	"github.com/smallbiznis/guestlist/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field string `json:"field"`
	Code  string `json:"code"`
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return validation.Field("request", "invalid_request")
}

// classifyErrorForLog feeds the request logger the same type and code the
// client receives.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	return payload.Type, payload.Code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var vErr *validation.Errors
	if errors.As(err, &vErr) && vErr != nil {
		fields := make([]ValidationError, 0, len(vErr.Fields))
		for _, f := range vErr.Fields {
			fields = append(fields, ValidationError{Field: f.Field, Code: f.Code})
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    "validation_failed",
			Message: "validation error",
			Errors:  fields,
		}
	}

	if code := matchCode(err, validationErrors); code != "" {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    code,
			Message: "validation error",
		}
	}
	if code := matchCode(err, notFoundErrors); code != "" {
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Code:    code,
			Message: "not found",
		}
	}
	if code := matchCode(err, conflictErrors); code != "" {
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Code:    code,
			Message: "conflict",
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, capacity.ErrFull):
		return http.StatusConflict, errorPayload{
			Type:    "capacity_full",
			Code:    fullCode(err),
			Message: "no seats left",
		}
	case errors.Is(err, carpooldomain.ErrAlreadyJoined):
		return http.StatusConflict, errorPayload{
			Type:    "already_joined",
			Message: "already joined this carpool",
		}
	case errors.Is(err, carpooldomain.ErrSelfJoinForbidden):
		return http.StatusConflict, errorPayload{
			Type:    "self_join_forbidden",
			Message: "drivers cannot join their own carpool",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, driver.ErrBadConn):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

var validationErrors = []error{
	validation.ErrValidation,
	ErrInvalidRequest,
	pagination.ErrInvalidPageToken,
	guestdomain.ErrInvalidID,
	guestdomain.ErrInvalidStatus,
	guestdomain.ErrInvalidAccount,
	guestdomain.ErrUnrecognizedReply,
	transportdomain.ErrInvalidID,
	carpooldomain.ErrInvalidID,
}

var notFoundErrors = []error{
	ErrNotFound,
	ErrNotLinked,
	guestdomain.ErrNotFound,
	transportdomain.ErrOptionNotFound,
	transportdomain.ErrScheduleNotFound,
	transportdomain.ErrBookingNotFound,
	transportdomain.ErrGuestNotFound,
	carpooldomain.ErrOfferNotFound,
	carpooldomain.ErrParticipantNotFound,
	carpooldomain.ErrGuestNotFound,
	gorm.ErrRecordNotFound,
}

var conflictErrors = []error{
	ErrConflict,
	guestdomain.ErrAccountAlreadyLinked,
	guestdomain.ErrReminderInProgress,
	transportdomain.ErrAlreadyBooked,
	transportdomain.ErrOptionExists,
	carpooldomain.ErrActiveOfferExists,
	carpooldomain.ErrOfferNotActive,
}

// matchCode returns the code of the first sentinel err wraps, or "".
func matchCode(err error, targets []error) string {
	for _, target := range targets {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return ""
}

func fullCode(err error) string {
	switch {
	case errors.Is(err, transportdomain.ErrFull):
		return "schedule_full"
	case errors.Is(err, carpooldomain.ErrFull):
		return "carpool_full"
	default:
		return capacity.ErrFull.Error()
	}
}
