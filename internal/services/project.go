package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow-backend/internal/apierr"
	"github.com/taskflowhq/taskflow-backend/internal/authz"
	"github.com/taskflowhq/taskflow-backend/internal/logger"
	"github.com/taskflowhq/taskflow-backend/internal/repos"
	"github.com/taskflowhq/taskflow-backend/internal/requestdata"
	"github.com/taskflowhq/taskflow-backend/internal/types"
)

type ProjectInput struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ProjectMemberView struct {
	UserID    uuid.UUID         `json:"user_id"`
	Username  string            `json:"username"`
	Email     string            `json:"email"`
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Role      types.ProjectRole `json:"role"`
}

type ProjectView struct {
	ID          uuid.UUID           `json:"id"`
	Key         string              `json:"key"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	OwnerID     uuid.UUID           `json:"owner_id"`
	Members     []ProjectMemberView `json:"members"`
}

type ProjectService interface {
	Create(ctx context.Context, input ProjectInput) (*ProjectView, error)
	GetByID(ctx context.Context, projectID uuid.UUID) (*ProjectView, error)
	ListMine(ctx context.Context) ([]*ProjectView, error)
	PartialUpdate(ctx context.Context, projectID uuid.UUID, input ProjectInput) (*ProjectView, error)
	Delete(ctx context.Context, projectID uuid.UUID) error
}

type projectService struct {
	db          *gorm.DB
	log         *logger.Logger
	projectRepo repos.ProjectRepo
	memberRepo  repos.ProjectMemberRepo
	resolver    authz.Resolver
}

func NewProjectService(
	db *gorm.DB,
	log *logger.Logger,
	projectRepo repos.ProjectRepo,
	memberRepo repos.ProjectMemberRepo,
	resolver authz.Resolver,
) ProjectService {
	return &projectService{
		db:          db,
		log:         log.With("service", "ProjectService"),
		projectRepo: projectRepo,
		memberRepo:  memberRepo,
		resolver:    resolver,
	}
}

func (ps *projectService) Create(ctx context.Context, input ProjectInput) (*ProjectView, error) {
	actorID := requestdata.UserID(ctx)
	if actorID == uuid.Nil {
		return nil, apierr.Unauthorized("no authenticated user")
	}
	key := strings.TrimSpace(input.Key)
	name := strings.TrimSpace(input.Name)
	if key == "" || name == "" {
		return nil, apierr.InvalidInput("project key and name are required")
	}

	project := &types.Project{
		Key:         key,
		Name:        name,
		Description: input.Description,
		OwnerID:     actorID,
	}

	if err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := ps.projectRepo.KeyExists(ctx, tx, key)
		if err != nil {
			return fmt.Errorf("checking project key: %w", err)
		}
		if taken {
			return apierr.Conflict("project key %q is already in use", key)
		}
		if _, err := ps.projectRepo.Create(ctx, tx, []*types.Project{project}); err != nil {
			// The unique index decides races the KeyExists check misses.
			return keyConflict(err, key)
		}
		// The creator also gets a manager membership so they show up in
		// member listings alongside invited users.
		_, err = ps.memberRepo.Create(ctx, tx, []*types.ProjectMember{{
			ProjectID: project.ID,
			UserID:    actorID,
			Role:      types.RoleProjectManager,
		}})
		return err
	}); err != nil {
		return nil, err
	}

	ps.log.Info("Project created", "project_id", project.ID, "key", key)
	return ps.toView(ctx, nil, project)
}

func (ps *projectService) GetByID(ctx context.Context, projectID uuid.UUID) (*ProjectView, error) {
	actorID := requestdata.UserID(ctx)
	project, err := ps.load(ctx, nil, projectID)
	if err != nil {
		return nil, err
	}
	ok, err := ps.resolver.IsMemberOrOwner(ctx, nil, project, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierr.NotAuthorized("not a member of this project")
	}
	return ps.toView(ctx, nil, project)
}

func (ps *projectService) ListMine(ctx context.Context) ([]*ProjectView, error) {
	actorID := requestdata.UserID(ctx)
	if actorID == uuid.Nil {
		return nil, apierr.Unauthorized("no authenticated user")
	}

	owned, err := ps.projectRepo.GetByOwnerIDs(ctx, nil, []uuid.UUID{actorID})
	if err != nil {
		return nil, err
	}
	memberships, err := ps.memberRepo.GetByUserIDs(ctx, nil, []uuid.UUID{actorID})
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(owned))
	all := make([]*types.Project, 0, len(owned)+len(memberships))
	for _, p := range owned {
		seen[p.ID] = true
		all = append(all, p)
	}
	memberProjectIDs := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		if !seen[m.ProjectID] {
			memberProjectIDs = append(memberProjectIDs, m.ProjectID)
		}
	}
	memberProjects, err := ps.projectRepo.GetByIDs(ctx, nil, memberProjectIDs)
	if err != nil {
		return nil, err
	}
	all = append(all, memberProjects...)

	views := make([]*ProjectView, 0, len(all))
	for _, p := range all {
		v, err := ps.toView(ctx, nil, p)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (ps *projectService) PartialUpdate(ctx context.Context, projectID uuid.UUID, input ProjectInput) (*ProjectView, error) {
	actorID := requestdata.UserID(ctx)

	var updated *types.Project
	if err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := ps.load(ctx, tx, projectID)
		if err != nil {
			return err
		}
		membership, err := ps.resolver.RoleOf(ctx, tx, project, actorID)
		if err != nil {
			return err
		}
		if err := authz.CanManageProject(membership); err != nil {
			return err
		}

		if key := strings.TrimSpace(input.Key); key != "" && key != project.Key {
			taken, err := ps.projectRepo.KeyExists(ctx, tx, key)
			if err != nil {
				return err
			}
			if taken {
				return apierr.Conflict("project key %q is already in use", key)
			}
			project.Key = key
		}
		if name := strings.TrimSpace(input.Name); name != "" {
			project.Name = name
		}
		if desc := strings.TrimSpace(input.Description); desc != "" {
			project.Description = input.Description
		}

		updated, err = ps.projectRepo.Save(ctx, tx, project)
		if err != nil {
			return keyConflict(err, project.Key)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return ps.toView(ctx, nil, updated)
}

// keyConflict converts a duplicated-key storage error into the same conflict
// the pre-insert key check reports.
func keyConflict(err error, key string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apierr.Conflict("project key %q is already in use", key)
	}
	return err
}

func (ps *projectService) Delete(ctx context.Context, projectID uuid.UUID) error {
	actorID := requestdata.UserID(ctx)
	return ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := ps.load(ctx, tx, projectID)
		if err != nil {
			return err
		}
		membership, err := ps.resolver.RoleOf(ctx, tx, project, actorID)
		if err != nil {
			return err
		}
		if err := authz.CanManageProject(membership); err != nil {
			return err
		}
		return ps.projectRepo.Delete(ctx, tx, projectID)
	})
}

func (ps *projectService) load(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*types.Project, error) {
	found, err := ps.projectRepo.GetByIDs(ctx, tx, []uuid.UUID{projectID})
	if err != nil {
		return nil, fmt.Errorf("fetching project: %w", err)
	}
	if len(found) == 0 {
		return nil, apierr.NotFound("project %s not found", projectID)
	}
	return found[0], nil
}

func (ps *projectService) toView(ctx context.Context, tx *gorm.DB, project *types.Project) (*ProjectView, error) {
	members, err := ps.memberRepo.GetByProjectIDs(ctx, tx, []uuid.UUID{project.ID})
	if err != nil {
		return nil, err
	}
	memberViews := make([]ProjectMemberView, 0, len(members))
	for _, m := range members {
		view := ProjectMemberView{UserID: m.UserID, Role: m.Role}
		if m.User != nil {
			view.Username = m.User.Username
			view.Email = m.User.Email
			view.FirstName = m.User.FirstName
			view.LastName = m.User.LastName
		}
		memberViews = append(memberViews, view)
	}
	return &ProjectView{
		ID:          project.ID,
		Key:         project.Key,
		Name:        project.Name,
		Description: project.Description,
		OwnerID:     project.OwnerID,
		Members:     memberViews,
	}, nil
}
