package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow-backend/internal/logger"
	"github.com/taskflowhq/taskflow-backend/internal/types"
	"github.com/taskflowhq/taskflow-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "taskflow", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	serviceLog.Info("Connecting to Postgres...")
	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	return &PostgresService{db: gormDB, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := s.db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.Project{},
		&types.ProjectMember{},
		&types.ProjectInvitation{},
		&types.Issue{},
	); err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	s.log.Info("Configuring foreign key relationships for postgres tables...")
	constraints := []struct {
		name string
		ddl  string
	}{
		{"fk_user_token_user_id", `ALTER TABLE "user_tokens" ADD CONSTRAINT "fk_user_token_user_id" FOREIGN KEY ("user_id") REFERENCES "users"("id") ON DELETE CASCADE`},
		{"fk_project_owner_id", `ALTER TABLE "projects" ADD CONSTRAINT "fk_project_owner_id" FOREIGN KEY ("owner_id") REFERENCES "users"("id") ON DELETE CASCADE`},
		{"fk_project_member_project_id", `ALTER TABLE "project_members" ADD CONSTRAINT "fk_project_member_project_id" FOREIGN KEY ("project_id") REFERENCES "projects"("id") ON DELETE CASCADE`},
		{"fk_project_member_user_id", `ALTER TABLE "project_members" ADD CONSTRAINT "fk_project_member_user_id" FOREIGN KEY ("user_id") REFERENCES "users"("id") ON DELETE CASCADE`},
		{"fk_project_invitation_project_id", `ALTER TABLE "project_invitations" ADD CONSTRAINT "fk_project_invitation_project_id" FOREIGN KEY ("project_id") REFERENCES "projects"("id") ON DELETE CASCADE`},
		{"fk_project_invitation_user_id", `ALTER TABLE "project_invitations" ADD CONSTRAINT "fk_project_invitation_user_id" FOREIGN KEY ("invited_user_id") REFERENCES "users"("id") ON DELETE CASCADE`},
		{"fk_issue_project_id", `ALTER TABLE "issues" ADD CONSTRAINT "fk_issue_project_id" FOREIGN KEY ("project_id") REFERENCES "projects"("id") ON DELETE CASCADE`},
		{"fk_issue_parent_issue_id", `ALTER TABLE "issues" ADD CONSTRAINT "fk_issue_parent_issue_id" FOREIGN KEY ("parent_issue_id") REFERENCES "issues"("id") ON DELETE CASCADE`},
	}
	for _, c := range constraints {
		var count int64
		if err := s.db.Raw(
			`SELECT COUNT(1) FROM information_schema.table_constraints WHERE constraint_name = ?`, c.name,
		).Scan(&count).Error; err != nil {
			return fmt.Errorf("failed to check constraint %s: %w", c.name, err)
		}
		if count > 0 {
			continue
		}
		if err := s.db.Exec(c.ddl).Error; err != nil {
			return fmt.Errorf("failed to add %s: %w", c.name, err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
