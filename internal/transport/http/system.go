package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"agendapastoral/backend/internal/domain"
	"agendapastoral/backend/internal/service/system"
)

type systemService interface {
	Get(ctx context.Context) (domain.SystemConfig, error)
	Update(ctx context.Context, in system.UpdateInput) (domain.SystemConfig, error)
	VerifyAdmin(ctx context.Context, credential string) error
}

type SystemHandler struct {
	svc systemService
	log *slog.Logger
}

func NewSystemHandler(svc systemService, log *slog.Logger) *SystemHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SystemHandler{
		svc: svc,
		log: log.With(slog.String("component", "http.system")),
	}
}

func (h *SystemHandler) Get(c *gin.Context) {
	cfg, err := h.svc.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, cfg)
}

type updateSystemRequest struct {
	BusinessHours   *string `json:"horario_funcionamento"`
	ContactInfo     *string `json:"contato"`
	PolicyText      *string `json:"politica"`
	AdminCredential *string `json:"admin_senha"`
}

func (h *SystemHandler) Update(c *gin.Context) {
	var req updateSystemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response{Success: false, Error: "invalid request body"})
		return
	}

	cfg, err := h.svc.Update(c.Request.Context(), system.UpdateInput{
		BusinessHours:   req.BusinessHours,
		ContactInfo:     req.ContactInfo,
		PolicyText:      req.PolicyText,
		AdminCredential: req.AdminCredential,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, cfg)
}

type adminLoginRequest struct {
	Credential string `json:"senha"`
}

func (h *SystemHandler) AdminLogin(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response{Success: false, Error: "invalid request body"})
		return
	}

	if err := h.svc.VerifyAdmin(c.Request.Context(), req.Credential); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"authenticated": true})
}
