package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"agendapastoral/backend/internal/backup"
)

// importSizeLimit caps uploaded backup files.
const importSizeLimit = 10 << 20

type backupService interface {
	Create(ctx context.Context, userID string) (int64, error)
	Restore(ctx context.Context, id int64) error
	List(ctx context.Context) ([]backup.Meta, error)
	Delete(ctx context.Context, id int64) error
	Export(ctx context.Context, id int64) ([]byte, error)
	Import(ctx context.Context, data []byte) (int64, error)
}

type BackupsHandler struct {
	svc backupService
	log *slog.Logger
}

func NewBackupsHandler(svc backupService, log *slog.Logger) *BackupsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &BackupsHandler{
		svc: svc,
		log: log.With(slog.String("component", "http.backups")),
	}
}

func (h *BackupsHandler) Create(c *gin.Context) {
	id, err := h.svc.Create(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, gin.H{"id": id})
}

func (h *BackupsHandler) List(c *gin.Context) {
	metas, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, metas)
}

func (h *BackupsHandler) Restore(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Restore(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"restored": id})
}

func (h *BackupsHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Export streams a snapshot as a downloadable JSON document.
func (h *BackupsHandler) Export(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	doc, err := h.svc.Export(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=backup-"+strconv.FormatInt(id, 10)+".json")
	c.Data(http.StatusOK, "application/json", doc)
}

func (h *BackupsHandler) Import(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, importSizeLimit))
	if err != nil {
		c.JSON(http.StatusBadRequest, response{Success: false, Error: "unreadable request body"})
		return
	}

	id, err := h.svc.Import(c.Request.Context(), data)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, gin.H{"id": id})
}

func (h *BackupsHandler) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, response{Success: false, Error: "id must be numeric"})
		return 0, false
	}
	return id, true
}
