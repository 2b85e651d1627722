package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Handlers carries every handler group the router mounts. Nil groups are
// skipped so partial deployments (no calendar credentials, no backups) still
// serve the rest.
type Handlers struct {
	Appointments *AppointmentsHandler
	Schedule     *ScheduleHandler
	Pastors      *PastorsHandler
	System       *SystemHandler
	Backups      *BackupsHandler
	Settings     *SettingsHandler
	Calendar     *CalendarHandler
}

func NewRouter(h Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	if h.Appointments != nil {
		g := api.Group("/agendamentos")
		g.POST("", h.Appointments.Create)
		g.GET("", h.Appointments.List)
		g.GET("/:id", h.Appointments.Get)
		g.PATCH("/:id", h.Appointments.Update)
		g.DELETE("/:id", h.Appointments.Delete)
		api.GET("/agendamentos-historico", h.Appointments.History)
		api.POST("/agendamentos-reconciliar", h.Appointments.Reconcile)
	}

	if h.Schedule != nil {
		g := api.Group("/escalas")
		g.POST("", h.Schedule.Create)
		g.GET("", h.Schedule.List)
		g.DELETE("/:id", h.Schedule.Delete)
		api.GET("/horarios-disponiveis", h.Schedule.AvailableSlots)
	}

	if h.Pastors != nil {
		g := api.Group("/pastores")
		g.POST("", h.Pastors.Create)
		g.GET("", h.Pastors.List)
		g.DELETE("/:id", h.Pastors.Delete)
		api.POST("/auth/login", h.Pastors.Login)
	}

	if h.System != nil {
		api.GET("/configuracoes", h.System.Get)
		api.PATCH("/configuracoes", h.System.Update)
		api.POST("/auth/admin", h.System.AdminLogin)
	}

	if h.Backups != nil {
		g := api.Group("/backups")
		g.POST("", h.Backups.Create)
		g.GET("", h.Backups.List)
		g.POST("/:id/restore", h.Backups.Restore)
		g.DELETE("/:id", h.Backups.Delete)
		g.GET("/:id/export", h.Backups.Export)
		g.POST("/import", h.Backups.Import)
	}

	if h.Settings != nil {
		g := api.Group("/settings")
		g.GET("", h.Settings.Get)
		g.PATCH("", h.Settings.Update)
		g.POST("/reset", h.Settings.Reset)
		g.GET("/export", h.Settings.Export)
		g.POST("/import", h.Settings.Import)
	}

	if h.Calendar != nil {
		g := api.Group("/calendar")
		g.GET("/status", h.Calendar.Status)
		g.GET("/auth-url", h.Calendar.AuthURL)
		g.GET("/callback", h.Calendar.Callback)
		g.POST("/revoke", h.Calendar.Revoke)
	}

	return r
}

// Server wraps the listener with graceful shutdown.
type Server struct {
	srv *http.Server
	log *slog.Logger
}

func NewServer(addr string, router *gin.Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log.With(slog.String("component", "http.server")),
	}
}

func (s *Server) Run() error {
	s.log.Info("http server listening", slog.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("http server shutting down")
	return s.srv.Shutdown(ctx)
}
