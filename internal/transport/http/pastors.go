package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"agendapastoral/backend/internal/domain"
	"agendapastoral/backend/internal/service/pastors"
)

type pastorsService interface {
	Create(ctx context.Context, in pastors.CreateInput) (domain.Pastor, error)
	List(ctx context.Context) ([]domain.Pastor, error)
	Delete(ctx context.Context, id string) error
	Authenticate(ctx context.Context, name, credential string) (domain.Pastor, error)
}

type PastorsHandler struct {
	svc pastorsService
	log *slog.Logger
}

func NewPastorsHandler(svc pastorsService, log *slog.Logger) *PastorsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PastorsHandler{
		svc: svc,
		log: log.With(slog.String("component", "http.pastors")),
	}
}

type createPastorRequest struct {
	Name       string `json:"nome"`
	Phone      string `json:"telefone"`
	Credential string `json:"senha"`
}

func (h *PastorsHandler) Create(c *gin.Context) {
	var req createPastorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response{Success: false, Error: "invalid request body"})
		return
	}

	p, err := h.svc.Create(c.Request.Context(), pastors.CreateInput{
		Name:       req.Name,
		Phone:      req.Phone,
		Credential: req.Credential,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, p)
}

func (h *PastorsHandler) List(c *gin.Context) {
	rows, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, rows)
}

func (h *PastorsHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type loginRequest struct {
	Name       string `json:"nome"`
	Credential string `json:"senha"`
}

func (h *PastorsHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response{Success: false, Error: "invalid request body"})
		return
	}

	p, err := h.svc.Authenticate(c.Request.Context(), req.Name, req.Credential)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, p)
}
