package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/taskflowhq/taskflow-backend/internal/handlers"
	"github.com/taskflowhq/taskflow-backend/internal/logger"
	"github.com/taskflowhq/taskflow-backend/internal/middleware"
	"github.com/taskflowhq/taskflow-backend/internal/services"
	"github.com/taskflowhq/taskflow-backend/internal/utils"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	User        *handlers.UserHandler
	Project     *handlers.ProjectHandler
	Issue       *handlers.IssueHandler
	Healthcheck *handlers.HealthcheckHandler
}

type Server struct {
	log    *logger.Logger
	engine *gin.Engine
	port   int
}

func New(log *logger.Logger, authService services.AuthService, h Handlers) *Server {
	if utils.GetEnv("APP_MODE", "dev", log) == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     utils.GetEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}, log),
		AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	engine.GET("/healthcheck", h.Healthcheck.Check)

	auth := engine.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
	}

	authed := engine.Group("/")
	authed.Use(middleware.RequireAuth(log, authService))
	{
		authed.POST("/auth/logout", h.Auth.Logout)

		users := authed.Group("/users")
		{
			users.GET("/me", h.User.GetMe)
			users.PATCH("/me", h.User.UpdateName)
			users.POST("/me/password", h.User.ChangePassword)
			users.GET("/search", h.User.Search)
		}

		projects := authed.Group("/projects")
		{
			projects.POST("", h.Project.Create)
			projects.GET("", h.Project.ListMine)
			projects.GET("/invitations", h.Project.ListMyInvitations)
			projects.POST("/invitations/:invitationId/accept", h.Project.AcceptInvitation)
			projects.POST("/invitations/:invitationId/decline", h.Project.DeclineInvitation)
			projects.GET("/:projectId", h.Project.Get)
			projects.PATCH("/:projectId", h.Project.Update)
			projects.DELETE("/:projectId", h.Project.Delete)
			projects.POST("/:projectId/invitations", h.Project.Invite)
			projects.POST("/:projectId/issues", h.Issue.Create)
			projects.GET("/:projectId/issues", h.Issue.ListByProject)
		}

		issues := authed.Group("/issues")
		{
			issues.GET("/:issueId", h.Issue.Get)
			issues.PATCH("/:issueId", h.Issue.Update)
			issues.DELETE("/:issueId", h.Issue.Delete)
			issues.POST("/:issueId/assignee/self", h.Issue.AssignToSelf)
			issues.DELETE("/:issueId/assignee", h.Issue.Unassign)
			issues.POST("/:issueId/status", h.Issue.ChangeStatus)
			issues.POST("/:issueId/reopen", h.Issue.Reopen)
			issues.POST("/:issueId/subtasks", h.Issue.CreateSubtask)
			issues.GET("/:issueId/subtasks", h.Issue.ListSubtasks)
		}
	}

	return &Server{
		log:    log.With("component", "Server"),
		engine: engine,
		port:   utils.GetEnvAsInt("APP_PORT", 8080, log),
	}
}

// Run serves until SIGINT/SIGTERM, then drains in-flight requests.
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Server listening", "port", s.port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		s.log.Info("Shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
