package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskforge/taskforge-backend/internal/apperr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondServiceError maps the domain error taxonomy onto HTTP statuses.
func RespondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, apperr.ErrCapacityExceeded):
		RespondError(c, http.StatusConflict, "capacity_exceeded", err)
	case errors.Is(err, apperr.ErrConflict):
		RespondError(c, http.StatusConflict, "conflict", err)
	case errors.Is(err, apperr.ErrForbidden):
		RespondError(c, http.StatusForbidden, "forbidden", err)
	case errors.Is(err, apperr.ErrUnauthorized):
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, apperr.ErrInvalidState):
		RespondError(c, http.StatusBadRequest, "invalid_state", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
