// Package server is the thin HTTP shell over the personalization
// services: one route per operation, auth and CORS wired as
// collaborators, no domain logic of its own.
package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lernpfad/backend/internal/config"
	"github.com/lernpfad/backend/internal/curriculum"
	"github.com/lernpfad/backend/internal/plan"
	"github.com/lernpfad/backend/internal/session"
	"github.com/lernpfad/backend/internal/store"
)

// Server bundles the services behind the HTTP handlers.
type Server struct {
	sessions   *session.Service
	plans      *plan.Service
	curriculum *curriculum.Service
	settings   store.SettingsRepo
	log        *zap.Logger
}

// New creates the server.
func New(sessions *session.Service, plans *plan.Service, curr *curriculum.Service, settings store.SettingsRepo, log *zap.Logger) *Server {
	return &Server{
		sessions:   sessions,
		plans:      plans,
		curriculum: curr,
		settings:   settings,
		log:        log,
	}
}

// Router builds the gin engine with middleware and all routes.
func (s *Server) Router(cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(s.log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api", Auth(cfg.JWTSecret))
	{
		api.GET("/session", s.getSession)
		api.POST("/session", s.generateSession)
		api.POST("/session/tasks/done", s.completeSessionTasks)

		api.GET("/plan", s.getPlan)
		api.POST("/plan", s.generatePlan)
		api.POST("/plan/tasks/done", s.completePlanTasks)
		api.DELETE("/plan", s.abandonPlan)

		api.GET("/curriculum", s.getCurriculum)

		api.PUT("/settings/spelling", s.setSpelling)
	}

	return r
}
