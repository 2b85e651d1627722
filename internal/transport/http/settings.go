package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"agendapastoral/backend/internal/settings"
)

type settingsService interface {
	Get() settings.Settings
	Update(ctx context.Context, partial map[string]any) error
	Reset(ctx context.Context, category string) error
	Export() ([]byte, error)
	Import(ctx context.Context, data []byte) error
}

type SettingsHandler struct {
	svc settingsService
	log *slog.Logger
}

func NewSettingsHandler(svc settingsService, log *slog.Logger) *SettingsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SettingsHandler{
		svc: svc,
		log: log.With(slog.String("component", "http.settings")),
	}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	respondData(c, http.StatusOK, h.svc.Get())
}

func (h *SettingsHandler) Update(c *gin.Context) {
	var partial map[string]any
	if err := c.ShouldBindJSON(&partial); err != nil {
		c.JSON(http.StatusBadRequest, response{Success: false, Error: "invalid request body"})
		return
	}

	if err := h.svc.Update(c.Request.Context(), partial); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, h.svc.Get())
}

// Reset restores one category to its defaults; an empty category resets all.
func (h *SettingsHandler) Reset(c *gin.Context) {
	if err := h.svc.Reset(c.Request.Context(), c.Query("category")); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, h.svc.Get())
}

func (h *SettingsHandler) Export(c *gin.Context) {
	doc, err := h.svc.Export()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=settings.json")
	c.Data(http.StatusOK, "application/json", doc)
}

func (h *SettingsHandler) Import(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, importSizeLimit))
	if err != nil {
		c.JSON(http.StatusBadRequest, response{Success: false, Error: "unreadable request body"})
		return
	}

	if err := h.svc.Import(c.Request.Context(), data); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, h.svc.Get())
}
