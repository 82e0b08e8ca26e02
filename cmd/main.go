package main

import (
	"os"
	"time"

	"github.com/taskflowhq/taskflow-backend/internal/authz"
	"github.com/taskflowhq/taskflow-backend/internal/db"
	"github.com/taskflowhq/taskflow-backend/internal/handlers"
	"github.com/taskflowhq/taskflow-backend/internal/logger"
	"github.com/taskflowhq/taskflow-backend/internal/repos"
	"github.com/taskflowhq/taskflow-backend/internal/sendgrid"
	"github.com/taskflowhq/taskflow-backend/internal/server"
	"github.com/taskflowhq/taskflow-backend/internal/services"
	"github.com/taskflowhq/taskflow-backend/internal/utils"
)

func main() {
	log, err := logger.New(utils.GetEnv("APP_MODE", "dev", nil))
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Failed to initialize database", "error", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}
	gormDB := pg.DB()

	userRepo := repos.NewUserRepo(gormDB, log)
	userTokenRepo := repos.NewUserTokenRepo(gormDB, log)
	projectRepo := repos.NewProjectRepo(gormDB, log)
	memberRepo := repos.NewProjectMemberRepo(gormDB, log)
	invitationRepo := repos.NewProjectInvitationRepo(gormDB, log)
	issueRepo := repos.NewIssueRepo(gormDB, log)

	resolver := authz.NewResolver(memberRepo, log)

	jwtSecret := utils.GetEnv("JWT_SECRET_KEY", "", log)
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET_KEY is required")
	}
	accessTTL := time.Duration(utils.GetEnvAsInt("JWT_ACCESS_TTL_MINUTES", 15, log)) * time.Minute
	refreshTTL := time.Duration(utils.GetEnvAsInt("JWT_REFRESH_TTL_HOURS", 24*7, log)) * time.Hour

	var notifier services.InvitationNotifier
	mailCfg := sendgrid.ConfigFromEnv(log)
	if mailCfg.APIKey != "" {
		mail, err := sendgrid.New(log, mailCfg)
		if err != nil {
			log.Fatal("Failed to initialize mail client", "error", err)
		}
		notifier = services.NewEmailInvitationNotifier(log, mail, utils.GetEnv("APP_BASE_URL", "http://localhost:5173", log))
	} else {
		log.Warn("SENDGRID_API_KEY not set, invitation emails will only be logged")
		notifier = services.NewLogInvitationNotifier(log)
	}

	authService := services.NewAuthService(gormDB, log, userRepo, userTokenRepo, jwtSecret, accessTTL, refreshTTL)
	userService := services.NewUserService(gormDB, log, userRepo)
	projectService := services.NewProjectService(gormDB, log, projectRepo, memberRepo, resolver)
	invitationService := services.NewInvitationService(gormDB, log, projectRepo, memberRepo, invitationRepo, userRepo, resolver, notifier)
	issueService := services.NewIssueService(gormDB, log, issueRepo, projectRepo, userRepo, resolver)

	srv := server.New(log, authService, server.Handlers{
		Auth:        handlers.NewAuthHandler(log, authService),
		User:        handlers.NewUserHandler(log, userService),
		Project:     handlers.NewProjectHandler(log, projectService, invitationService),
		Issue:       handlers.NewIssueHandler(log, issueService),
		Healthcheck: handlers.NewHealthcheckHandler(gormDB),
	})

	if err := srv.Run(); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
