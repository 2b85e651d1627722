package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type calendarService interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) error
	Authorized(ctx context.Context) bool
	Revoke(ctx context.Context) error
}

type CalendarHandler struct {
	svc calendarService
	log *slog.Logger
}

func NewCalendarHandler(svc calendarService, log *slog.Logger) *CalendarHandler {
	if log == nil {
		log = slog.Default()
	}
	return &CalendarHandler{
		svc: svc,
		log: log.With(slog.String("component", "http.calendar")),
	}
}

func (h *CalendarHandler) Status(c *gin.Context) {
	respondData(c, http.StatusOK, gin.H{
		"authorized": h.svc.Authorized(c.Request.Context()),
	})
}

func (h *CalendarHandler) AuthURL(c *gin.Context) {
	respondData(c, http.StatusOK, gin.H{
		"url": h.svc.AuthURL(c.Query("state")),
	})
}

// Callback completes the OAuth consent flow with the code Google redirects
// back with.
func (h *CalendarHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, response{Success: false, Error: "code is required"})
		return
	}
	if err := h.svc.Exchange(c.Request.Context(), code); err != nil {
		h.log.Warn("oauth exchange failed", slog.Any("err", err))
		c.JSON(http.StatusBadGateway, response{Success: false, Error: "authorization exchange failed"})
		return
	}
	respondData(c, http.StatusOK, gin.H{"authorized": true})
}

func (h *CalendarHandler) Revoke(c *gin.Context) {
	if err := h.svc.Revoke(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"authorized": false})
}
