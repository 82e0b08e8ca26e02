package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow-backend/internal/authz"
	"github.com/taskflowhq/taskflow-backend/internal/logger"
	"github.com/taskflowhq/taskflow-backend/internal/repos"
	"github.com/taskflowhq/taskflow-backend/internal/requestdata"
	"github.com/taskflowhq/taskflow-backend/internal/types"
	"github.com/taskflowhq/taskflow-backend/internal/utils"
)

// recordingNotifier captures dispatched invitation notifications.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (n *recordingNotifier) NotifyInvitation(ctx context.Context, invitation *types.ProjectInvitation, project *types.Project, invited *types.User) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, invitation.ID)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type testEnv struct {
	db             *gorm.DB
	userRepo       repos.UserRepo
	projectRepo    repos.ProjectRepo
	memberRepo     repos.ProjectMemberRepo
	invitationRepo repos.ProjectInvitationRepo
	issueRepo      repos.IssueRepo
	notifier       *recordingNotifier

	auth        AuthService
	users       UserService
	projects    ProjectService
	invitations InvitationService
	issues      IssueService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		t.Fatalf("unwrapping sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := gormDB.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.Project{},
		&types.ProjectMember{},
		&types.ProjectInvitation{},
		&types.Issue{},
	); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("creating logger: %v", err)
	}

	env := &testEnv{
		db:             gormDB,
		userRepo:       repos.NewUserRepo(gormDB, log),
		projectRepo:    repos.NewProjectRepo(gormDB, log),
		memberRepo:     repos.NewProjectMemberRepo(gormDB, log),
		invitationRepo: repos.NewProjectInvitationRepo(gormDB, log),
		issueRepo:      repos.NewIssueRepo(gormDB, log),
		notifier:       &recordingNotifier{},
	}
	userTokenRepo := repos.NewUserTokenRepo(gormDB, log)
	resolver := authz.NewResolver(env.memberRepo, log)

	env.auth = NewAuthService(gormDB, log, env.userRepo, userTokenRepo, "test-secret", 15*time.Minute, 24*time.Hour)
	env.users = NewUserService(gormDB, log, env.userRepo)
	env.projects = NewProjectService(gormDB, log, env.projectRepo, env.memberRepo, resolver)
	env.invitations = NewInvitationService(gormDB, log, env.projectRepo, env.memberRepo, env.invitationRepo, env.userRepo, resolver, env.notifier)
	env.issues = NewIssueService(gormDB, log, env.issueRepo, env.projectRepo, env.userRepo, resolver)
	return env
}

func (e *testEnv) mustUser(t *testing.T, username string) *types.User {
	t.Helper()
	hash, err := utils.HashPassword("password123")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	user := &types.User{
		Username:  username,
		Email:     username + "@example.com",
		Password:  hash,
		FirstName: "Test",
		LastName:  username,
	}
	if _, err := e.userRepo.Create(context.Background(), nil, []*types.User{user}); err != nil {
		t.Fatalf("creating user %s: %v", username, err)
	}
	return user
}

func (e *testEnv) mustProject(t *testing.T, key string, owner *types.User) *types.Project {
	t.Helper()
	project := &types.Project{
		Key:     key,
		Name:    key + " project",
		OwnerID: owner.ID,
	}
	if _, err := e.projectRepo.Create(context.Background(), nil, []*types.Project{project}); err != nil {
		t.Fatalf("creating project %s: %v", key, err)
	}
	return project
}

func (e *testEnv) mustMember(t *testing.T, project *types.Project, user *types.User, role types.ProjectRole) {
	t.Helper()
	if _, err := e.memberRepo.Create(context.Background(), nil, []*types.ProjectMember{{
		ProjectID: project.ID,
		UserID:    user.ID,
		Role:      role,
	}}); err != nil {
		t.Fatalf("creating membership: %v", err)
	}
}

func asUser(user *types.User) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{UserID: user.ID})
}
