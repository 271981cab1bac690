package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Leganyst/autoservice-booking/internal/booking"
)

type errorResponse struct {
	Error   string               `json:"error"`
	Message string               `json:"message"`
	Details []booking.FieldError `json:"details,omitempty"`
}

// statusOf сопоставляет доменную ошибку HTTP-статусу и коду ошибки ответа.
func statusOf(err error) (int, string) {
	var (
		verr     *booking.ValidationError
		notFound *booking.ReferenceNotFoundError
		trans    *booking.InvalidTransitionError
		conflict *booking.SchedulingConflictError
		authz    *booking.AuthorizationError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, "validation_error"
	case errors.As(err, &notFound):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &trans):
		return http.StatusConflict, "invalid_transition"
	case errors.As(err, &conflict):
		return http.StatusConflict, "scheduling_conflict"
	case errors.As(err, &authz):
		return http.StatusForbidden, "forbidden"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(c *gin.Context, log *logrus.Logger, err error) {
	status, code := statusOf(err)
	resp := errorResponse{Error: code, Message: err.Error()}

	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		resp.Details = verr.Fields
	}

	if status == http.StatusInternalServerError {
		// Детали сбоя хранилища наружу не отдаём.
		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("request failed")
		resp.Message = "internal server error"
	}

	c.AbortWithStatusJSON(status, resp)
}

func badRequest(c *gin.Context, field, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		Error:   "validation_error",
		Message: field + ": " + msg,
		Details: []booking.FieldError{{Field: field, Message: msg}},
	})
}
