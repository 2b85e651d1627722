package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"agendapastoral/backend/internal/domain"
	"agendapastoral/backend/internal/service/schedule"
)

type scheduleService interface {
	Create(ctx context.Context, in schedule.CreateInput) (domain.AvailabilityWindow, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.AvailabilityWindow, error)
	AvailableSlots(ctx context.Context, pastorName, date string) ([]string, error)
}

type ScheduleHandler struct {
	svc scheduleService
	log *slog.Logger
}

func NewScheduleHandler(svc scheduleService, log *slog.Logger) *ScheduleHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ScheduleHandler{
		svc: svc,
		log: log.With(slog.String("component", "http.schedule")),
	}
}

type createScheduleRequest struct {
	PastorID    string `json:"pastor_id"`
	PastorName  string `json:"pastor"`
	Date        string `json:"data"`
	StartTime   string `json:"hora_inicio"`
	EndTime     string `json:"hora_fim"`
	SlotMinutes int    `json:"duracao_slot"`
	LunchStart  string `json:"almoco_inicio"`
	LunchEnd    string `json:"almoco_fim"`
}

func (h *ScheduleHandler) Create(c *gin.Context) {
	var req createScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response{Success: false, Error: "invalid request body"})
		return
	}

	w, err := h.svc.Create(c.Request.Context(), schedule.CreateInput{
		PastorID:    req.PastorID,
		PastorName:  req.PastorName,
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		SlotMinutes: req.SlotMinutes,
		LunchStart:  req.LunchStart,
		LunchEnd:    req.LunchEnd,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, w)
}

func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ScheduleHandler) List(c *gin.Context) {
	rows, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, rows)
}

func (h *ScheduleHandler) AvailableSlots(c *gin.Context) {
	slots, err := h.svc.AvailableSlots(c.Request.Context(), c.Query("pastor"), c.Query("data"))
	if err != nil {
		respondError(c, err)
		return
	}
	if slots == nil {
		slots = []string{}
	}
	respondData(c, http.StatusOK, slots)
}
