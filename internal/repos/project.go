package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow-backend/internal/logger"
	"github.com/taskflowhq/taskflow-backend/internal/types"
)

type ProjectRepo interface {
	Create(ctx context.Context, tx *gorm.DB, projects []*types.Project) ([]*types.Project, error)
	Save(ctx context.Context, tx *gorm.DB, project *types.Project) (*types.Project, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, projectIDs []uuid.UUID) ([]*types.Project, error)
	GetByOwnerIDs(ctx context.Context, tx *gorm.DB, ownerIDs []uuid.UUID) ([]*types.Project, error)
	KeyExists(ctx context.Context, tx *gorm.DB, key string) (bool, error)
	// Delete removes the project row together with everything the project
	// owns: memberships, invitations, and issues. Cascading is explicit here,
	// not an object-graph side effect.
	Delete(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error
}

type projectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	return &projectRepo{db: db, log: baseLog.With("repo", "ProjectRepo")}
}

func (pr *projectRepo) Create(ctx context.Context, tx *gorm.DB, projects []*types.Project) ([]*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if len(projects) == 0 {
		return []*types.Project{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (pr *projectRepo) Save(ctx context.Context, tx *gorm.DB, project *types.Project) (*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if err := transaction.WithContext(ctx).Save(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

func (pr *projectRepo) GetByIDs(ctx context.Context, tx *gorm.DB, projectIDs []uuid.UUID) ([]*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var results []*types.Project
	if len(projectIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", projectIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *projectRepo) GetByOwnerIDs(ctx context.Context, tx *gorm.DB, ownerIDs []uuid.UUID) ([]*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var results []*types.Project
	if len(ownerIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("owner_id IN ?", ownerIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *projectRepo) KeyExists(ctx context.Context, tx *gorm.DB, key string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Project{}).
		Where("project_key = ?", key).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (pr *projectRepo) Delete(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	db := transaction.WithContext(ctx)
	if err := db.Where("project_id = ?", projectID).Delete(&types.Issue{}).Error; err != nil {
		return err
	}
	if err := db.Where("project_id = ?", projectID).Delete(&types.ProjectMember{}).Error; err != nil {
		return err
	}
	if err := db.Where("project_id = ?", projectID).Delete(&types.ProjectInvitation{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", projectID).Delete(&types.Project{}).Error
}
