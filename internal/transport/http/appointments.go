package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"agendapastoral/backend/internal/domain"
	"agendapastoral/backend/internal/service/appointments"
)

type appointmentsService interface {
	Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
	Update(ctx context.Context, id string, fields map[string]any) (domain.Appointment, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (domain.Appointment, error)
	List(ctx context.Context) ([]domain.Appointment, error)
	Search(ctx context.Context, nameFragment, phone string) ([]domain.Appointment, error)
	History(ctx context.Context) ([]domain.HistoryRecord, error)
	ReconcileExpired(ctx context.Context) (int, error)
}

type AppointmentsHandler struct {
	svc appointmentsService
	log *slog.Logger
}

func NewAppointmentsHandler(svc appointmentsService, log *slog.Logger) *AppointmentsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AppointmentsHandler{
		svc: svc,
		log: log.With(slog.String("component", "http.appointments")),
	}
}

type createAppointmentRequest struct {
	Name   string `json:"nome"`
	Phone  string `json:"telefone"`
	Email  string `json:"email"`
	Type   string `json:"tipo_agendamento"`
	Pastor string `json:"pastor"`
	Date   string `json:"data"`
	Time   string `json:"horario"`
	Notes  string `json:"observacoes"`
	Origin string `json:"origem"`
}

func (h *AppointmentsHandler) Create(c *gin.Context) {
	var req createAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response{Success: false, Error: "invalid request body"})
		return
	}

	appt, err := h.svc.Create(c.Request.Context(), appointments.CreateInput{
		Name:   req.Name,
		Phone:  req.Phone,
		Email:  req.Email,
		Type:   req.Type,
		Pastor: req.Pastor,
		Date:   req.Date,
		Time:   req.Time,
		Notes:  req.Notes,
		Origin: domain.Origin(req.Origin),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, appt)
}

func (h *AppointmentsHandler) Update(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, response{Success: false, Error: "invalid request body"})
		return
	}

	appt, err := h.svc.Update(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, appt)
}

func (h *AppointmentsHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AppointmentsHandler) Get(c *gin.Context) {
	appt, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, appt)
}

func (h *AppointmentsHandler) List(c *gin.Context) {
	if name, phone := c.Query("nome"), c.Query("telefone"); name != "" || phone != "" {
		rows, err := h.svc.Search(c.Request.Context(), name, phone)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, rows)
		return
	}

	rows, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, rows)
}

func (h *AppointmentsHandler) History(c *gin.Context) {
	recs, err := h.svc.History(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if recs == nil {
		recs = []domain.HistoryRecord{}
	}
	respondData(c, http.StatusOK, recs)
}

// Reconcile triggers the expired-appointment sweep on demand; the same sweep
// also runs on a timer.
func (h *AppointmentsHandler) Reconcile(c *gin.Context) {
	moved, err := h.svc.ReconcileExpired(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"moved": moved})
}
