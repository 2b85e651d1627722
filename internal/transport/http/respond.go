// Package http exposes the application over a JSON REST surface. Handlers
// hold narrow service interfaces so tests can fake them; all error-to-status
// mapping lives in respondError.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"agendapastoral/backend/internal/backup"
	"agendapastoral/backend/internal/calendar"
	"agendapastoral/backend/internal/service/appointments"
	"agendapastoral/backend/internal/service/pastors"
	"agendapastoral/backend/internal/service/schedule"
	"agendapastoral/backend/internal/settings"
	"agendapastoral/backend/internal/store"
)

type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, response{Success: true, Data: data})
}

func respondError(c *gin.Context, err error) {
	var apptValidation *appointments.ValidationError
	var schedValidation *schedule.ValidationError
	var pastorValidation *pastors.ValidationError
	var settingsValidation *settings.ValidationError
	var duplicate *appointments.DuplicateBookingError

	switch {
	case errors.As(err, &apptValidation),
		errors.As(err, &schedValidation),
		errors.As(err, &pastorValidation):
		c.JSON(http.StatusBadRequest, response{Success: false, Error: err.Error()})
	case errors.As(err, &settingsValidation):
		c.JSON(http.StatusBadRequest, response{
			Success: false,
			Error:   "settings validation failed",
			Details: settingsValidation.Fields,
		})
	case errors.As(err, &duplicate):
		c.JSON(http.StatusConflict, response{
			Success: false,
			Error:   err.Error(),
			Details: duplicate.Conflicts,
		})
	case errors.Is(err, backup.ErrInvalidFile):
		c.JSON(http.StatusBadRequest, response{Success: false, Error: err.Error()})
	case errors.Is(err, store.ErrDuplicateSchedule), errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, response{Success: false, Error: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, response{Success: false, Error: "not found"})
	case errors.Is(err, store.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, response{Success: false, Error: "invalid credentials"})
	case errors.Is(err, calendar.ErrNotAuthorized):
		c.JSON(http.StatusUnauthorized, response{Success: false, Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, response{Success: false, Error: "internal error"})
	}
}
